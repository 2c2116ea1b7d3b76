package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/geogate/internal/adapters/nats"
	"github.com/samirrijal/geogate/internal/pkg/logging"
	"github.com/samirrijal/geogate/internal/pkg/metrics"
)

// wsMessage is sent from client to resolve a layer or follow resolution events.
type wsMessage struct {
	Action string `json:"action"` // "resolve" | "subscribe" | "unsubscribe"
	Layer  string `json:"layer"`  // buildings | terraces ("" = all, subscribe only)
	BBox   string `json:"bbox"`   // resolve only, optional
	ID     string `json:"id"`     // echoed back on resolve results
}

// wsResult wraps a resolve answer so clients can correlate it with their request.
type wsResult struct {
	ID     string `json:"id,omitempty"`
	Layer  string `json:"layer"`
	Result any    `json:"result"`
}

// WebSocketHandler returns a handler that resolves layers on demand and relays
// resolution events from NATS to connected clients.
// Clients send JSON: {"action":"resolve","layer":"terraces","bbox":"4.88,52.36,4.90,52.38"}
// or {"action":"subscribe","layer":"buildings"}. An empty layer subscribes to all.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		log := slog.Default().With("remote", c.RemoteAddr().String())
		if rid, ok := c.Locals("requestid").(string); ok {
			log = log.With("request_id", rid)
		}
		log.Info("ws client connected")

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "resolve":
				ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), log), deps.requestTimeout())
				res, err := resolveLayer(ctx, deps, m.Layer, m.BBox)
				cancel()
				if err != nil {
					_ = writeJSON(map[string]string{"id": m.ID, "error": err.Error()})
					continue
				}
				_ = writeJSON(wsResult{ID: m.ID, Layer: m.Layer, Result: LayerResponse(res)})

			case "subscribe":
				if deps.NATS == nil {
					_ = writeJSON(map[string]string{"error": "event relay not configured"})
					continue
				}
				subject := natsadapter.ResolvedSubject(m.Layer)
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := deps.NATS.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				subject := natsadapter.ResolvedSubject(m.Layer)
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		// Cleanup
		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}

package natsadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geogate/internal/core/domain"
)

// Subscriber follows resolution events on core NATS.
type Subscriber struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewSubscriber connects to NATS for subscribing.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn}, nil
}

// SubscribeResolutions calls handler for every event of layer ("" for all).
// Malformed messages are logged and skipped.
func (s *Subscriber) SubscribeResolutions(ctx context.Context, layer string, handler func(ctx context.Context, event *domain.ResolutionEvent) error) error {
	sub, err := s.conn.Subscribe(ResolvedSubject(layer), func(msg *nats.Msg) {
		var event domain.ResolutionEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Warn("malformed resolution event", "subject", msg.Subject, "error", err)
			return
		}
		if err := handler(ctx, &event); err != nil {
			slog.Warn("resolution event handler failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}

package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/pkg/telemetry"
)

// StreamName is the JetStream stream retaining resolution events.
const StreamName = "GEODATA_RESOLUTIONS"

const subjectPrefix = "geodata.resolved."

// ResolvedSubject returns the subject for a layer's events; "" matches all layers.
func ResolvedSubject(layer string) string {
	if layer == "" {
		return subjectPrefix + ">"
	}
	return subjectPrefix + layer
}

// ErrNotConnected is returned when an event is published while NATS is unreachable.
var ErrNotConnected = errors.New("nats: not connected")

// Publisher implements ports.EventPublisher over NATS. Events go through
// JetStream when the server supports it and core NATS otherwise.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext // nil without JetStream
}

// NewPublisher connects to NATS and ensures the resolution stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}

	p := &Publisher{conn: conn}

	js, err := conn.JetStream()
	if err != nil {
		slog.Warn("jetstream unavailable, publishing on core nats", "error", err)
		return p, nil
	}

	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{ResolvedSubject("")},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			slog.Warn("ensure stream failed, publishing on core nats", "stream", StreamName, "error", err)
			return p, nil
		}
	}
	p.js = js

	return p, nil
}

// PublishResolution publishes one provenance event on geodata.resolved.<layer>.
// It fails fast while the connection is down instead of buffering.
func (p *Publisher) PublishResolution(ctx context.Context, event *domain.ResolutionEvent) error {
	if status := p.conn.Status(); status != nats.CONNECTED {
		return fmt.Errorf("%w (%s)", ErrNotConnected, status)
	}
	subject := ResolvedSubject(string(event.Layer))
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, telemetry.SpanPublish,
		trace.WithAttributes(attribute.String(telemetry.AttrSubject, subject)))
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if p.js != nil {
		_, err = p.js.Publish(subject, data, nats.Context(ctx))
	} else {
		err = p.conn.Publish(subject, data)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Conn exposes the underlying connection for relays and readiness checks.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// Connect opens a NATS connection that keeps reconnecting.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("geogate"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

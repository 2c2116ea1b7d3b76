package natsadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geogate/internal/core/domain"
)

func TestResolvedSubject(t *testing.T) {
	if got := ResolvedSubject("buildings"); got != "geodata.resolved.buildings" {
		t.Errorf("expected geodata.resolved.buildings, got %s", got)
	}
	if got := ResolvedSubject(""); got != "geodata.resolved.>" {
		t.Errorf("expected geodata.resolved.>, got %s", got)
	}
}

func TestPublishResolution_FailsFastWhileDisconnected(t *testing.T) {
	// Nothing listens on port 1; the connection stays in its retry loop.
	conn, err := nats.Connect("nats://127.0.0.1:1",
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Minute),
	)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	p := &Publisher{conn: conn}
	start := time.Now()
	err = p.PublishResolution(context.Background(), &domain.ResolutionEvent{Layer: domain.LayerBuildings})
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected an immediate failure, took %v", elapsed)
	}
}

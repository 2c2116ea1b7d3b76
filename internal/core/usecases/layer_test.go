package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/normalize"
	"github.com/samirrijal/geogate/internal/core/usecases"
)

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	events    []*domain.ResolutionEvent
	err       error
	publishFn func(ctx context.Context) error
}

func (m *mockPublisher) PublishResolution(ctx context.Context, event *domain.ResolutionEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx)
	}
	return m.err
}

func (m *mockPublisher) published() []*domain.ResolutionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.ResolutionEvent(nil), m.events...)
}

func TestTerraceService_ExhaustedWithoutPlaceholder(t *testing.T) {
	orch := usecases.NewOrchestrator(&mockUpstream{}, testConfig)
	svc := usecases.NewTerraceService(orch, []usecases.Strategy{wfsStrategy("ams-wfs", "http://ams")}, nil, false)

	c := svc.Find(context.Background(), testBox, true)

	if c.Count() != 0 {
		t.Errorf("expected count 0, got %d", c.Count())
	}
	if c.Source != usecases.SourceNone {
		t.Errorf("expected source %s, got %s", usecases.SourceNone, c.Source)
	}
	if c.Points == nil {
		t.Error("expected an empty placePoints collection")
	}
	if !c.Diagnostics.BBoxDefaulted {
		t.Error("expected bboxDefaulted to be carried into diagnostics")
	}
}

func TestTerraceService_ExhaustedWithPlaceholder(t *testing.T) {
	up := &mockUpstream{
		fetchCollectionFn: func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
			return nil, errors.New("HTTP 401")
		},
	}
	orch := usecases.NewOrchestrator(up, testConfig)
	svc := usecases.NewTerraceService(orch, []usecases.Strategy{wfsStrategy("ams-wfs", "http://ams")}, nil, true)

	c := svc.Find(context.Background(), testBox, false)

	if c.Source != usecases.SourceDemo {
		t.Errorf("expected source %s, got %s", usecases.SourceDemo, c.Source)
	}
	if c.Count() != 4 {
		t.Errorf("expected 4 demo terraces, got %d", c.Count())
	}
	if c.Error == "" {
		t.Error("expected error to stay set on placeholder data")
	}
	for _, f := range c.Features.Features {
		if f.Properties["demo"] != true {
			t.Errorf("expected demo=true on %v", f.ID)
		}
	}
}

func TestTerraceService_PublishesEvent(t *testing.T) {
	up := &mockUpstream{
		fetchCollectionFn: func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
			return squares("t", 2), nil
		},
	}
	pub := &mockPublisher{err: errors.New("nats down")}
	orch := usecases.NewOrchestrator(up, testConfig)
	svc := usecases.NewTerraceService(orch, []usecases.Strategy{wfsStrategy("ams-wfs", "http://ams")}, pub, true)

	c := svc.Find(context.Background(), testBox, false)
	svc.Wait()

	if c.Source != "ams-wfs" {
		t.Errorf("expected source ams-wfs, got %s", c.Source)
	}
	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Layer != domain.LayerTerraces || ev.Count != 2 || ev.Source != "ams-wfs" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestBuildingService_SlowPublisherDoesNotDelayFind(t *testing.T) {
	up := &mockUpstream{
		fetchCollectionFn: func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
			return squares("pand", 1), nil
		},
	}
	release := make(chan struct{})
	deadlines := make(chan time.Time, 1)
	pub := &mockPublisher{
		publishFn: func(ctx context.Context) error {
			dl, _ := ctx.Deadline()
			deadlines <- dl
			select {
			case <-release:
				return ctx.Err()
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
	orch := usecases.NewOrchestrator(up, testConfig)
	svc := usecases.NewBuildingService(orch, []usecases.Strategy{wfsStrategy("3dbag", "http://3dbag")}, pub)

	reqCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	start := time.Now()
	c := svc.Find(reqCtx, testBox, false)
	elapsed := time.Since(start)
	cancel()

	if c.Count() != 1 {
		t.Errorf("expected 1 building, got %d", c.Count())
	}
	if elapsed >= usecases.PublishTimeout/2 {
		t.Errorf("expected Find to return before the publish finished, took %v", elapsed)
	}

	dl := <-deadlines
	if dl.IsZero() || dl.After(start.Add(usecases.PublishTimeout+time.Second)) {
		t.Errorf("expected publish deadline within %v, got %v", usecases.PublishTimeout, dl.Sub(start))
	}

	close(release)
	svc.Wait()
	if len(pub.published()) != 1 {
		t.Errorf("expected 1 event, got %d", len(pub.published()))
	}
}

func TestBuildingService_Stats(t *testing.T) {
	up := &mockUpstream{
		fetchCollectionFn: func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
			raw := squares("pand", 3)
			raw[0].Properties["height"] = "12m"
			raw[1].Properties["building:levels"] = "3"
			raw[2].Properties["height"] = "2"
			return raw, nil
		},
	}
	s := wfsStrategy("overpass", "http://overpass")
	s.Profile = normalize.Profile{Label: "Pand", Heights: true}
	orch := usecases.NewOrchestrator(up, testConfig)
	svc := usecases.NewBuildingService(orch, []usecases.Strategy{s}, nil)

	c := svc.Find(context.Background(), testBox, false)

	if c.Count() != 2 {
		t.Fatalf("expected 2 buildings, got %d", c.Count())
	}
	want := domain.HeightStats{UsedHeight: 1, UsedLevels: 1, SkippedTooLow: 1}
	if *c.Stats != want {
		t.Errorf("expected stats %+v, got %+v", want, *c.Stats)
	}
	if got := svc.Strategies(); len(got) != 1 || got[0] != "overpass" {
		t.Errorf("expected [overpass], got %v", got)
	}
}

func TestBuildingService_ExhaustedHasStats(t *testing.T) {
	orch := usecases.NewOrchestrator(&mockUpstream{}, testConfig)
	svc := usecases.NewBuildingService(orch, nil, nil)

	c := svc.Find(context.Background(), testBox, false)

	if c.Stats == nil {
		t.Fatal("expected zero stats, got nil")
	}
	if c.Error == "" {
		t.Error("expected error to be set")
	}
}

func TestDemoTerraces_ClosedRings(t *testing.T) {
	for _, f := range usecases.DemoTerraces().Features {
		if _, ok := normalize.CloseRing(f.Geometry.Bound().ToRing()); !ok {
			t.Errorf("expected a valid ring for %v", f.ID)
		}
	}
}

package usecases

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/ports"
	"github.com/samirrijal/geogate/internal/pkg/logging"
	"github.com/samirrijal/geogate/internal/pkg/metrics"
)

// PublishTimeout bounds how long one provenance event may take to publish.
const PublishTimeout = 2 * time.Second

// layerService owns the strategy chain of one layer.
type layerService struct {
	layer     domain.Layer
	orch      *Orchestrator
	chain     []Strategy
	publisher ports.EventPublisher // optional
	pending   sync.WaitGroup       // in-flight event publishes
}

// Wait blocks until every event published so far has been handed off or timed out.
func (s *layerService) Wait() {
	s.pending.Wait()
}

// Strategies returns the names of the configured chain, in priority order.
func (s *layerService) Strategies() []string {
	names := make([]string, len(s.chain))
	for i, st := range s.chain {
		names[i] = st.Name
	}
	return names
}

func (s *layerService) resolve(ctx context.Context, box domain.BoundingBox, defaulted bool) *domain.Collection {
	c := s.orch.Resolve(ctx, s.layer, box, s.chain)
	c.Diagnostics.BBoxDefaulted = defaulted
	return c
}

// finish records metrics and publishes the provenance event in the background,
// so a slow or disconnected broker never holds up the response.
func (s *layerService) finish(ctx context.Context, c *domain.Collection, start time.Time) {
	elapsed := time.Since(start)

	metrics.Resolutions.WithLabelValues(string(s.layer), c.Source).Inc()
	metrics.ResolvedFeatures.WithLabelValues(string(s.layer)).Observe(float64(c.Count()))
	if c.Stats != nil {
		metrics.HeightBasis.WithLabelValues(string(domain.BasisExplicitHeight)).Add(float64(c.Stats.UsedHeight))
		metrics.HeightBasis.WithLabelValues(string(domain.BasisLevelCount)).Add(float64(c.Stats.UsedLevels))
		metrics.HeightBasis.WithLabelValues(string(domain.BasisRoofMinusGround)).Add(float64(c.Stats.UsedRoofGround))
		metrics.HeightBasis.WithLabelValues(string(domain.BasisDefault)).Add(float64(c.Stats.UsedDefault))
	}

	log := logging.FromContext(ctx)
	log.Info("layer resolved",
		"layer", s.layer,
		"source", c.Source,
		"count", c.Count(),
		"attempts", len(c.Diagnostics.Attempts),
		"duration", elapsed,
	)

	if s.publisher == nil {
		return
	}
	event := &domain.ResolutionEvent{
		Time:     start.UTC(),
		Layer:    s.layer,
		Source:   c.Source,
		Count:    c.Count(),
		BBox:     c.Diagnostics.BBoxWGS,
		Attempts: len(c.Diagnostics.Attempts),
		Errors:   slices.Clone(c.Diagnostics.Errors),
		Duration: elapsed.String(),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
		defer cancel()
		if err := s.publisher.PublishResolution(pctx, event); err != nil {
			log.Warn("publish resolution event", "layer", s.layer, "error", err)
		}
	}()
}

package usecases

import (
	"context"
	"time"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/ports"
)

// BuildingService resolves building footprints with height estimates.
type BuildingService struct {
	layerService
}

// NewBuildingService creates a new BuildingService.
func NewBuildingService(orch *Orchestrator, chain []Strategy, publisher ports.EventPublisher) *BuildingService {
	return &BuildingService{layerService{
		layer:     domain.LayerBuildings,
		orch:      orch,
		chain:     chain,
		publisher: publisher,
	}}
}

// Find returns the buildings inside box. defaulted marks a box substituted for
// a missing or unusable request parameter.
func (s *BuildingService) Find(ctx context.Context, box domain.BoundingBox, defaulted bool) *domain.Collection {
	start := time.Now()
	c := s.resolve(ctx, box, defaulted)
	if c.Stats == nil {
		c.Stats = &domain.HeightStats{}
	}
	s.finish(ctx, c, start)
	return c
}

package usecases

import (
	"context"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/ports"
)

// SourceDemo tags placeholder terraces served after exhaustion.
const SourceDemo = "demo(exhausted)"

// TerraceService resolves outdoor seating areas, with point fallbacks.
type TerraceService struct {
	layerService
	placeholder bool
}

// NewTerraceService creates a new TerraceService. With placeholder set, an
// exhausted chain answers with a fixed demo set instead of an empty collection.
func NewTerraceService(orch *Orchestrator, chain []Strategy, publisher ports.EventPublisher, placeholder bool) *TerraceService {
	return &TerraceService{
		layerService: layerService{
			layer:     domain.LayerTerraces,
			orch:      orch,
			chain:     chain,
			publisher: publisher,
		},
		placeholder: placeholder,
	}
}

// Find returns terrace polygons and place points inside box.
func (s *TerraceService) Find(ctx context.Context, box domain.BoundingBox, defaulted bool) *domain.Collection {
	start := time.Now()
	c := s.resolve(ctx, box, defaulted)
	if c.Points == nil {
		c.Points = geojson.NewFeatureCollection()
	}
	if c.Empty() && s.placeholder {
		c.Source = SourceDemo
		c.Features = DemoTerraces()
	}
	s.finish(ctx, c, start)
	return c
}

type demoTerrace struct {
	id, name string
	box      domain.BoundingBox
}

var demoTerraces = []demoTerrace{
	{"jaren", "Café de Jaren (demo)", domain.BoundingBox{LonMin: 4.89451, LatMin: 52.36608, LonMax: 4.89475, LatMax: 52.36620}},
	{"waterkant", "Waterkant (demo)", domain.BoundingBox{LonMin: 4.88061, LatMin: 52.36748, LonMax: 4.88084, LatMax: 52.36759}},
	{"thijssen", "Café Thijssen (demo)", domain.BoundingBox{LonMin: 4.88662, LatMin: 52.37680, LonMax: 4.88674, LatMax: 52.37688}},
	{"brandstof", "Brandstof (demo)", domain.BoundingBox{LonMin: 4.89546, LatMin: 52.35625, LonMax: 4.89564, LatMax: 52.35636}},
}

// DemoTerraces returns the placeholder terrace set. Every feature carries demo=true.
func DemoTerraces() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, d := range demoTerraces {
		b := d.box
		ring := orb.Ring{
			{b.LonMin, b.LatMax},
			{b.LonMax, b.LatMax},
			{b.LonMax, b.LatMin},
			{b.LonMin, b.LatMin},
			{b.LonMin, b.LatMax},
		}
		f := geojson.NewFeature(orb.Polygon{ring})
		f.ID = d.id
		f.Properties["name"] = d.name
		f.Properties["demo"] = true
		fc.Append(f)
	}
	return fc
}

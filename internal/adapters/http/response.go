package http

import (
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/usecases"
)

// BuildingsResponse is the body of GET /v1/buildings.
type BuildingsResponse struct {
	Source    string                     `json:"source"`
	Count     int                        `json:"count"`
	Error     string                     `json:"error,omitempty"`
	Buildings *geojson.FeatureCollection `json:"buildings"`
	Stats     *domain.HeightStats        `json:"stats"`
	Debug     domain.Diagnostics         `json:"debug"`
}

// TerracesResponse is the body of GET /v1/terraces.
type TerracesResponse struct {
	Source       string                     `json:"source"`
	Count        int                        `json:"count"`
	Error        string                     `json:"error,omitempty"`
	TerracePolys *geojson.FeatureCollection `json:"terracePolys"`
	PlacePoints  *geojson.FeatureCollection `json:"placePoints"`
	Debug        domain.Diagnostics         `json:"debug"`
}

func buildingsResponse(c *domain.Collection) BuildingsResponse {
	stats := c.Stats
	if stats == nil {
		stats = &domain.HeightStats{}
	}
	return BuildingsResponse{
		Source:    c.Source,
		Count:     c.Count(),
		Error:     c.Error,
		Buildings: orEmpty(c.Features),
		Stats:     stats,
		Debug:     c.Diagnostics,
	}
}

func terracesResponse(c *domain.Collection) TerracesResponse {
	return TerracesResponse{
		Source:       c.Source,
		Count:        c.Count(),
		Error:        c.Error,
		TerracePolys: orEmpty(c.Features),
		PlacePoints:  orEmpty(c.Points),
		Debug:        c.Diagnostics,
	}
}

// LayerResponse renders a collection in the shape of its layer's REST endpoint.
func LayerResponse(c *domain.Collection) any {
	if c.Layer == domain.LayerTerraces {
		return terracesResponse(c)
	}
	return buildingsResponse(c)
}

// cacheable reports whether clients may reuse the result.
func cacheable(c *domain.Collection) bool {
	return !c.Empty() && c.Source != usecases.SourceDemo
}

func orEmpty(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	if fc == nil {
		return geojson.NewFeatureCollection()
	}
	return fc
}

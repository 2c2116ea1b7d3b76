package ports

import (
	"context"

	"github.com/samirrijal/geogate/internal/core/domain"
)

// Upstream performs the network side of a source strategy.
type Upstream interface {
	// FetchCollection issues one GET and decodes a GeoJSON FeatureCollection.
	FetchCollection(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error)
	// FetchAll follows continuation links from req.URL and accumulates every page.
	FetchAll(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error)
	// QueryOverpass posts req.Body to the Overpass endpoint at req.URL.
	QueryOverpass(ctx context.Context, req domain.UpstreamRequest) ([]domain.OSMElement, error)
}

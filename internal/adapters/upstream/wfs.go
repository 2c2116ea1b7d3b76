package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samirrijal/geogate/internal/core/domain"
)

type featurePage struct {
	Features []domain.RawFeature `json:"features"`
}

// FetchCollection issues one GET and decodes a GeoJSON FeatureCollection.
func (c *Client) FetchCollection(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
	body, _, err := c.get(ctx, req.URL, req.UseAPIKey)
	if err != nil {
		return nil, err
	}

	var page featurePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode %s: %w", redact(req.URL), err)
	}
	return page.Features, nil
}

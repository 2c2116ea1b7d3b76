package upstream

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"

	"github.com/samirrijal/geogate/internal/core/domain"
)

// QueryOverpass posts req.Body to the Overpass endpoint at req.URL.
// Untagged elements only carry geometry for their parents and are not returned.
func (c *Client) QueryOverpass(ctx context.Context, req domain.UpstreamRequest) ([]domain.OSMElement, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	httpClient := &http.Client{
		Transport: &requestTransport{ctx: ctx, client: c, useKey: req.UseAPIKey},
	}
	client := overpass.NewWithSettings(req.URL, 1, httpClient)

	result, err := client.Query(req.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("overpass %s: %w", redact(req.URL), ctxErr)
		}
		return nil, fmt.Errorf("overpass %s: %w", redact(req.URL), err)
	}
	return convertElements(&result), nil
}

// requestTransport binds the per-call context and common headers to requests
// issued by the Overpass client, which has no context support of its own.
type requestTransport struct {
	ctx    context.Context
	client *Client
	useKey bool
}

func (t *requestTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(t.ctx)
	t.client.setHeaders(r, t.useKey)

	base := t.client.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: redact(r.URL.String()), StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// convertElements flattens a result into elements ordered by type and id.
func convertElements(result *overpass.Result) []domain.OSMElement {
	var elements []domain.OSMElement

	for _, id := range sortedKeys(result.Nodes) {
		node := result.Nodes[id]
		if len(node.Tags) == 0 {
			continue
		}
		elements = append(elements, domain.OSMElement{
			Type:  string(overpass.ElementTypeNode),
			ID:    node.ID,
			Tags:  node.Tags,
			Point: orb.Point{node.Lon, node.Lat},
		})
	}

	for _, id := range sortedKeys(result.Ways) {
		way := result.Ways[id]
		if len(way.Tags) == 0 {
			continue
		}
		elements = append(elements, domain.OSMElement{
			Type:  string(overpass.ElementTypeWay),
			ID:    way.ID,
			Tags:  way.Tags,
			Nodes: wayPoints(way),
		})
	}

	for _, id := range sortedKeys(result.Relations) {
		rel := result.Relations[id]
		if len(rel.Tags) == 0 {
			continue
		}
		el := domain.OSMElement{
			Type: string(overpass.ElementTypeRelation),
			ID:   rel.ID,
			Tags: rel.Tags,
		}
		for _, m := range rel.Members {
			if m.Type != overpass.ElementTypeWay || m.Way == nil {
				continue
			}
			el.Members = append(el.Members, domain.OSMMember{Role: m.Role, Nodes: wayPoints(m.Way)})
		}
		elements = append(elements, el)
	}

	return elements
}

func wayPoints(way *overpass.Way) []orb.Point {
	pts := make([]orb.Point, 0, len(way.Nodes))
	for _, n := range way.Nodes {
		if n == nil || (n.Lat == 0 && n.Lon == 0) {
			continue // referenced but not returned
		}
		pts = append(pts, orb.Point{n.Lon, n.Lat})
	}
	return pts
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

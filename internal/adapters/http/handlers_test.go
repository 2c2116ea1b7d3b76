package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/geogate/internal/adapters/http"
	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/geo"
	"github.com/samirrijal/geogate/internal/core/normalize"
	"github.com/samirrijal/geogate/internal/core/usecases"
)

// ---- Mock upstream ----

type mockUpstream struct {
	fetchCollectionFn func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error)
	calls             int
	lastURL           string
}

func (m *mockUpstream) FetchCollection(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
	m.calls++
	m.lastURL = req.URL
	if m.fetchCollectionFn != nil {
		return m.fetchCollectionFn(ctx, req)
	}
	return nil, nil
}

func (m *mockUpstream) FetchAll(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
	m.calls++
	return nil, nil
}

func (m *mockUpstream) QueryOverpass(ctx context.Context, req domain.UpstreamRequest) ([]domain.OSMElement, error) {
	m.calls++
	return nil, nil
}

// ---- Helpers ----

var defaultBBox = geo.MustParseBBox("4.87,52.355,4.91,52.38")

func testStrategy(name string, profile normalize.Profile) usecases.Strategy {
	return usecases.Strategy{
		Name:      name,
		Kind:      domain.ProviderWFS,
		Endpoints: []string{"http://upstream.test/wfs"},
		Area:      usecases.AreaWGS84,
		Profile:   profile,
		Build: func(endpoint string, q usecases.Query) domain.UpstreamRequest {
			return domain.UpstreamRequest{URL: endpoint + "?bbox=" + q.BBox.String()}
		},
	}
}

type options struct {
	placeholder bool
	noSources   bool
}

func makeDeps(up *mockUpstream, opts options) *handler.Dependencies {
	orch := usecases.NewOrchestrator(up, usecases.OrchestratorConfig{PadDegrees: 0.0025})

	buildingChain := []usecases.Strategy{testStrategy("test-wfs", normalize.Profile{Label: "Pand", Heights: true})}
	terraceChain := []usecases.Strategy{testStrategy("test-terras", normalize.Profile{Label: "Terras", NameKeys: []string{"naam"}, KeepPoints: true})}
	if opts.noSources {
		buildingChain, terraceChain = nil, nil
	}

	return &handler.Dependencies{
		Buildings:   usecases.NewBuildingService(orch, buildingChain, nil),
		Terraces:    usecases.NewTerraceService(orch, terraceChain, nil, opts.placeholder),
		DefaultBBox: defaultBBox,
	}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: handler.ErrorHandler})
	handler.SetupRoutes(app, deps)
	return app
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func square(id string, props map[string]any) domain.RawFeature {
	return domain.RawFeature{
		ID:         id,
		Geometry:   json.RawMessage(`{"type":"Polygon","coordinates":[[[4.89,52.37],[4.8905,52.37],[4.8905,52.3705],[4.89,52.3705],[4.89,52.37]]]}`),
		Properties: props,
	}
}

func buildingUpstream() *mockUpstream {
	return &mockUpstream{
		fetchCollectionFn: func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
			return []domain.RawFeature{
				square("pand.1", map[string]any{"b3_h_dak_max": 18.5, "b3_h_maaiveld": 0.5}),
				square("pand.2", map[string]any{"height": "12m"}),
			}, nil
		},
	}
}

// ---- Buildings ----

func TestBuildings_Success(t *testing.T) {
	up := buildingUpstream()
	app := setupApp(makeDeps(up, options{}))

	req := httptest.NewRequest("GET", "/v1/buildings?bbox=4.88,52.36,4.90,52.38", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body handler.BuildingsResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Source != "test-wfs" {
		t.Errorf("expected source test-wfs, got %s", body.Source)
	}
	if body.Count != 2 || len(body.Buildings.Features) != 2 {
		t.Errorf("expected 2 buildings, got count=%d features=%d", body.Count, len(body.Buildings.Features))
	}
	if body.Stats.UsedRoofGround != 1 || body.Stats.UsedHeight != 1 {
		t.Errorf("unexpected stats %+v", *body.Stats)
	}
	if h := body.Buildings.Features[0].Properties["h_m"]; h != 18.0 {
		t.Errorf("expected h_m 18 for pand.1, got %v", h)
	}
	if got := fmt.Sprint(body.Debug.BBoxWGS); got != "[4.88 52.36 4.9 52.38]" {
		t.Errorf("unexpected bboxWgs %s", got)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=300" {
		t.Errorf("expected public caching, got %q", cc)
	}
	if resp.Header.Get("ETag") == "" {
		t.Error("expected ETag header")
	}
}

func TestBuildings_InvalidBBox(t *testing.T) {
	tests := []string{
		"4.9,52.3,invalid,52.4",
		"4.9,52.3,4.95",
		"4.9,52.3,4.95,52.4,1",
		"a,b,c,d",
	}

	for _, bbox := range tests {
		t.Run(bbox, func(t *testing.T) {
			up := buildingUpstream()
			app := setupApp(makeDeps(up, options{}))

			req := httptest.NewRequest("GET", "/v1/buildings?bbox="+bbox, nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}

			var apiErr handler.APIError
			if err := json.Unmarshal(readBody(t, resp.Body), &apiErr); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if apiErr.Code != "bad_request" {
				t.Errorf("expected code bad_request, got %s", apiErr.Code)
			}
			if apiErr.RequestID == "" {
				t.Error("expected request_id in error")
			}
			if up.calls != 0 {
				t.Errorf("expected no upstream call, got %d", up.calls)
			}
		})
	}
}

func TestBuildings_DefaultBBox(t *testing.T) {
	up := buildingUpstream()
	app := setupApp(makeDeps(up, options{}))

	for _, target := range []string{"/v1/buildings", "/v1/buildings?bbox=5,53,4,52"} {
		resp, err := app.Test(httptest.NewRequest("GET", target, nil))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("%s: expected 200, got %d", target, resp.StatusCode)
		}

		var body handler.BuildingsResponse
		if err := json.Unmarshal(readBody(t, resp.Body), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !body.Debug.BBoxDefaulted {
			t.Errorf("%s: expected bboxDefaulted", target)
		}
		if !strings.HasSuffix(up.lastURL, "bbox="+defaultBBox.String()) {
			t.Errorf("%s: expected default bbox upstream, got %s", target, up.lastURL)
		}
	}
}

// ---- Terraces ----

func TestTerraces_Exhausted(t *testing.T) {
	up := &mockUpstream{
		fetchCollectionFn: func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
			return nil, errors.New("HTTP 401 from http://upstream.test/wfs")
		},
	}
	app := setupApp(makeDeps(up, options{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/terraces?bbox=4.88,52.36,4.90,52.38", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body handler.TerracesResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 0 {
		t.Errorf("expected count 0, got %d", body.Count)
	}
	if body.Error == "" {
		t.Error("expected error field")
	}
	if body.TerracePolys == nil || len(body.TerracePolys.Features) != 0 {
		t.Error("expected an empty terracePolys collection")
	}
	if body.PlacePoints == nil {
		t.Error("expected placePoints collection")
	}
	if len(body.Debug.Errors) != 1 || !strings.Contains(body.Debug.Errors[0], "401") {
		t.Errorf("expected the 401 in debug.errors, got %v", body.Debug.Errors)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
	if resp.Header.Get("ETag") != "" {
		t.Error("expected no ETag on an exhausted result")
	}
}

func TestTerraces_Placeholder(t *testing.T) {
	app := setupApp(makeDeps(&mockUpstream{}, options{placeholder: true}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/terraces", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var body handler.TerracesResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Source != usecases.SourceDemo {
		t.Errorf("expected source %s, got %s", usecases.SourceDemo, body.Source)
	}
	if body.Count != 4 {
		t.Errorf("expected 4 demo terraces, got %d", body.Count)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}
}

func TestTerraces_LegacyAlias(t *testing.T) {
	up := &mockUpstream{
		fetchCollectionFn: func(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
			return []domain.RawFeature{square("T-1", map[string]any{"naam": "Café de Jaren"})}, nil
		},
	}
	app := setupApp(makeDeps(up, options{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/terraces?bbox=4.88,52.36,4.90,52.38", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, "/v1/terraces") {
		t.Errorf("expected successor link, got %q", link)
	}

	var body handler.TerracesResponse
	if err := json.Unmarshal(readBody(t, resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := body.TerracePolys.Features[0].Properties["name"]; got != "Café de Jaren" {
		t.Errorf("expected name Café de Jaren, got %v", got)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(buildingUpstream(), options{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/buildings?bbox=4.88,52.36,4.90,52.38", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}

	req := httptest.NewRequest("GET", "/v1/buildings?bbox=4.88,52.36,4.90,52.38", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- Health ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&mockUpstream{}, options{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name string
		opts options
		want int
	}{
		{"sources configured", options{}, 200},
		{"no sources", options{noSources: true}, 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(makeDeps(&mockUpstream{}, tt.opts))
			resp, err := app.Test(httptest.NewRequest("GET", "/v1/ready", nil))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

// ---- GraphQL ----

func TestGraphQL_Buildings(t *testing.T) {
	app := setupApp(makeDeps(buildingUpstream(), options{}))

	query := `{"query":"{ buildings(bbox: \"4.88,52.36,4.90,52.38\") { source count stats { used_roof_ground } features } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(query))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var result struct {
		Data struct {
			Buildings struct {
				Source string `json:"source"`
				Count  int    `json:"count"`
				Stats  struct {
					UsedRoofGround int `json:"used_roof_ground"`
				} `json:"stats"`
				Features struct {
					Type     string `json:"type"`
					Features []any  `json:"features"`
				} `json:"features"`
			} `json:"buildings"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	b := result.Data.Buildings
	if b.Source != "test-wfs" || b.Count != 2 {
		t.Errorf("expected test-wfs/2, got %s/%d", b.Source, b.Count)
	}
	if b.Stats.UsedRoofGround != 1 {
		t.Errorf("expected used_roof_ground 1, got %d", b.Stats.UsedRoofGround)
	}
	if b.Features.Type != "FeatureCollection" || len(b.Features.Features) != 2 {
		t.Errorf("expected a FeatureCollection of 2, got %s of %d", b.Features.Type, len(b.Features.Features))
	}
}

func TestGraphQL_InvalidBBox(t *testing.T) {
	up := &mockUpstream{}
	app := setupApp(makeDeps(up, options{}))

	query := `{"query":"{ terraces(bbox: \"4.9,52.3,invalid,52.4\") { count } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(query))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected a GraphQL error")
	}
	if up.calls != 0 {
		t.Errorf("expected no upstream call, got %d", up.calls)
	}
}

// ---- Misc ----

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(&mockUpstream{}, options{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/ws", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("expected 426, got %d", resp.StatusCode)
	}
}

func TestNotFound(t *testing.T) {
	app := setupApp(makeDeps(&mockUpstream{}, options{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/nope", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(readBody(t, resp.Body), &apiErr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if apiErr.Code != "not_found" {
		t.Errorf("expected code not_found, got %s", apiErr.Code)
	}
}

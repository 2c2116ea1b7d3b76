package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/geogate/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("geogate-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Upstream.Timeout != 30 {
		t.Errorf("expected upstream timeout 30, got %d", cfg.Upstream.Timeout)
	}
	if cfg.Region.PadDegrees != 0.0025 {
		t.Errorf("expected pad 0.0025, got %g", cfg.Region.PadDegrees)
	}
	if got := strings.Join(cfg.Sources.Bag3DLevels, ","); got != "lod22,lod13" {
		t.Errorf("expected lod22,lod13, got %s", got)
	}
	if cfg.Fallback.Placeholder {
		t.Error("expected placeholder off by default")
	}
	if cfg.Region.Default().String() != "4.87,52.355,4.91,52.38" {
		t.Errorf("unexpected default bbox %s", cfg.Region.Default())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEOGATE_SERVER_PORT", "9090")
	t.Setenv("AMS_API_KEY", "from-legacy-env")
	t.Setenv("GEOGATE_FALLBACK_PLACEHOLDER", "true")

	cfg, err := config.Load("geogate-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Upstream.APIKey != "from-legacy-env" {
		t.Errorf("expected api key from AMS_API_KEY, got %q", cfg.Upstream.APIKey)
	}
	if !cfg.Fallback.Placeholder {
		t.Error("expected placeholder on")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Server:   config.ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 120, RequestTimeout: 90},
			Upstream: config.UpstreamConfig{Timeout: 30, MaxPages: 30, APIKeyHeader: "X-Api-Key"},
			Region:   config.RegionConfig{DefaultBBox: "4.87,52.355,4.91,52.38", WideBBox: "4.55,52.20,5.10,52.50", PadDegrees: 0.0025},
			Sources:  config.SourcesConfig{Overpass: []string{"https://overpass-api.de/api/interpreter"}},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
		want   string
	}{
		{"port", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"short upstream timeout", func(c *config.Config) { c.Upstream.Timeout = 10 }, "upstream.timeout"},
		{"bad default bbox", func(c *config.Config) { c.Region.DefaultBBox = "4.9,52.3,oops,52.4" }, "region.default_bbox"},
		{"inverted wide bbox", func(c *config.Config) { c.Region.WideBBox = "5.10,52.50,4.55,52.20" }, "region.wide_bbox"},
		{"no sources", func(c *config.Config) { c.Sources = config.SourcesConfig{} }, "building source"},
		{"levels missing", func(c *config.Config) { c.Sources.Bag3DWFS = "https://data.3dbag.nl/api/BAG3D/wfs" }, "bag3d_levels"},
		{"too many levels", func(c *config.Config) { c.Sources.Bag3DLevels = []string{"lod22", "lod13", "lod12"} }, "one fallback level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

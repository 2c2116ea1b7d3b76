package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/geo"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Region    RegionConfig    `mapstructure:"region"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Fallback  FallbackConfig  `mapstructure:"fallback"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	ReadTimeout    int `mapstructure:"read_timeout"`
	WriteTimeout   int `mapstructure:"write_timeout"`
	RequestTimeout int `mapstructure:"request_timeout"` // seconds per geodata request
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type UpstreamConfig struct {
	Timeout      int    `mapstructure:"timeout"` // seconds per upstream call
	APIKey       string `mapstructure:"api_key"`
	APIKeyHeader string `mapstructure:"api_key_header"`
	UserAgent    string `mapstructure:"user_agent"`
	MaxPages     int    `mapstructure:"max_pages"`
}

// TimeoutDuration returns the upstream timeout as a time.Duration.
func (u UpstreamConfig) TimeoutDuration() time.Duration {
	return time.Duration(u.Timeout) * time.Second
}

type RegionConfig struct {
	DefaultBBox string  `mapstructure:"default_bbox"`
	WideBBox    string  `mapstructure:"wide_bbox"`
	PadDegrees  float64 `mapstructure:"pad_degrees"`
}

// Default returns the parsed default bbox. Only valid after Validate.
func (r RegionConfig) Default() domain.BoundingBox {
	return geo.MustParseBBox(r.DefaultBBox)
}

// Wide returns the parsed wide region. Only valid after Validate.
func (r RegionConfig) Wide() domain.BoundingBox {
	return geo.MustParseBBox(r.WideBBox)
}

type SourcesConfig struct {
	Bag3DWFS      string   `mapstructure:"bag3d_wfs"`
	Bag3DLevels   []string `mapstructure:"bag3d_levels"` // primary, then the single fallback
	PDOKBAGWFS    string   `mapstructure:"pdok_bag_wfs"`
	AmsterdamWFS  string   `mapstructure:"amsterdam_wfs"`
	AmsterdamREST string   `mapstructure:"amsterdam_rest"`
	Overpass      []string `mapstructure:"overpass"`
}

type FallbackConfig struct {
	Placeholder bool `mapstructure:"placeholder"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"` // empty disables event publishing
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.request_timeout", 90)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("upstream.timeout", 30)
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.api_key_header", "X-Api-Key")
	v.SetDefault("upstream.user_agent", "geogate/1.0 (+https://github.com/samirrijal/geogate)")
	v.SetDefault("upstream.max_pages", 30)
	v.SetDefault("region.default_bbox", "4.87,52.355,4.91,52.38")
	v.SetDefault("region.wide_bbox", "4.55,52.20,5.10,52.50")
	v.SetDefault("region.pad_degrees", 0.0025)
	v.SetDefault("sources.bag3d_wfs", "https://data.3dbag.nl/api/BAG3D/wfs")
	v.SetDefault("sources.bag3d_levels", []string{"lod22", "lod13"})
	v.SetDefault("sources.pdok_bag_wfs", "https://service.pdok.nl/lv/bag/wfs/v2_0")
	v.SetDefault("sources.amsterdam_wfs", "https://api.data.amsterdam.nl/v1/wfs/horeca/")
	v.SetDefault("sources.amsterdam_rest", "https://api.data.amsterdam.nl/v1/horeca/exploitatievergunning")
	v.SetDefault("sources.overpass", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
	})
	v.SetDefault("fallback.placeholder", false)
	v.SetDefault("nats.url", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: GEOGATE_UPSTREAM_TIMEOUT → upstream.timeout
	v.SetEnvPrefix("GEOGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("upstream.api_key", "GEOGATE_UPSTREAM_API_KEY", "AMS_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}
	if c.Upstream.Timeout < 25 {
		errs = append(errs, fmt.Sprintf("upstream.timeout must be at least 25s to outlast Overpass, got %d", c.Upstream.Timeout))
	}
	if c.Upstream.MaxPages <= 0 {
		errs = append(errs, "upstream.max_pages must be positive")
	}
	if c.Upstream.APIKeyHeader == "" {
		errs = append(errs, "upstream.api_key_header is required")
	}
	for key, raw := range map[string]string{
		"region.default_bbox": c.Region.DefaultBBox,
		"region.wide_bbox":    c.Region.WideBBox,
	} {
		if _, defaulted, err := geo.ParseBBox(raw, domain.BoundingBox{}); err != nil || defaulted {
			errs = append(errs, fmt.Sprintf("%s must be a valid lonMin,latMin,lonMax,latMax box, got %q", key, raw))
		}
	}
	if c.Region.PadDegrees < 0 || c.Region.PadDegrees > 1 {
		errs = append(errs, fmt.Sprintf("region.pad_degrees must be within 0-1, got %g", c.Region.PadDegrees))
	}
	if c.Sources.Bag3DWFS == "" && c.Sources.PDOKBAGWFS == "" && len(c.Sources.Overpass) == 0 {
		errs = append(errs, "at least one building source is required")
	}
	if c.Sources.Bag3DWFS != "" && len(c.Sources.Bag3DLevels) == 0 {
		errs = append(errs, "sources.bag3d_levels is required when sources.bag3d_wfs is set")
	}
	if len(c.Sources.Bag3DLevels) > 2 {
		errs = append(errs, fmt.Sprintf("sources.bag3d_levels takes a primary and one fallback level, got %d", len(c.Sources.Bag3DLevels)))
	}
	if c.Sources.AmsterdamWFS == "" && c.Sources.AmsterdamREST == "" && len(c.Sources.Overpass) == 0 {
		errs = append(errs, "at least one terrace source is required")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPAddr == "" {
		errs = append(errs, "telemetry.otlp_addr is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

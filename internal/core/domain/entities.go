package domain

import (
	"encoding/json"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Layer names a kind of geodata the gateway serves.
type Layer string

const (
	LayerBuildings Layer = "buildings"
	LayerTerraces  Layer = "terraces"
)

// ProviderKind identifies the wire shape an upstream answers with.
type ProviderKind string

const (
	ProviderWFS      ProviderKind = "wfs"      // single GeoJSON FeatureCollection
	ProviderREST     ProviderKind = "rest"     // paginated GeoJSON collection
	ProviderOverpass ProviderKind = "overpass" // Overpass QL elements
)

// UpstreamRequest is a fully built request against one endpoint.
type UpstreamRequest struct {
	URL       string `json:"url"`
	Body      string `json:"body,omitempty"` // Overpass QL, empty for GET requests
	UseAPIKey bool   `json:"-"`              // attach the configured API key header
}

// RawFeature is a provider GeoJSON feature before normalization.
type RawFeature struct {
	ID         any             `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

// OSMElement is an Overpass element with its node references resolved.
type OSMElement struct {
	Type    string            `json:"type"` // node, way, relation
	ID      int64             `json:"id"`
	Tags    map[string]string `json:"tags,omitempty"`
	Point   orb.Point         `json:"point"`             // nodes only
	Nodes   []orb.Point       `json:"nodes,omitempty"`   // ways only
	Members []OSMMember       `json:"members,omitempty"` // relations only
}

// OSMMember is one way member of a relation.
type OSMMember struct {
	Role  string      `json:"role"`
	Nodes []orb.Point `json:"nodes"`
}

// HeightBasis records which input a height estimate came from.
type HeightBasis string

const (
	BasisExplicitHeight  HeightBasis = "explicit_height"
	BasisLevelCount      HeightBasis = "level_count"
	BasisRoofMinusGround HeightBasis = "roof_minus_ground"
	BasisDefault         HeightBasis = "default"
)

// HeightEstimate is a derived height above ground in meters.
type HeightEstimate struct {
	Value float64     `json:"value"`
	Basis HeightBasis `json:"basis"`
}

// HeightStats counts how the heights in one response were obtained.
type HeightStats struct {
	UsedHeight     int `json:"used_height"`
	UsedLevels     int `json:"used_levels"`
	UsedRoofGround int `json:"used_roof_ground"`
	UsedDefault    int `json:"used_default"`
	SkippedTooLow  int `json:"skipped_too_low"`
}

// Record counts one accepted estimate.
func (s *HeightStats) Record(basis HeightBasis) {
	switch basis {
	case BasisExplicitHeight:
		s.UsedHeight++
	case BasisLevelCount:
		s.UsedLevels++
	case BasisRoofMinusGround:
		s.UsedRoofGround++
	default:
		s.UsedDefault++
	}
}

// Attempt is one upstream call made while resolving a request.
type Attempt struct {
	Strategy string `json:"strategy"`
	Endpoint string `json:"endpoint"`
	Variant  string `json:"variant"`
	Level    string `json:"level,omitempty"`
	Features int    `json:"features"`
	Error    string `json:"error,omitempty"`
}

// Diagnostics is the trail of decisions behind a Collection.
type Diagnostics struct {
	BBoxWGS       []float64 `json:"bboxWgs"`
	BBoxRD        []float64 `json:"bboxRd,omitempty"`
	BBoxDefaulted bool      `json:"bboxDefaulted,omitempty"`
	Endpoint      string    `json:"endpoint,omitempty"`
	Level         string    `json:"level,omitempty"`
	Variant       string    `json:"variant,omitempty"`
	Attempts      []Attempt `json:"attempts"`
	Errors        []string  `json:"errors"`
}

// Collection is the canonical, request-scoped result for one layer.
type Collection struct {
	Layer       Layer
	Source      string
	Features    *geojson.FeatureCollection
	Points      *geojson.FeatureCollection // point fallbacks, nil when the layer has none
	Stats       *HeightStats
	Error       string
	Diagnostics Diagnostics
}

// Count returns the number of features across polygons and points.
func (c *Collection) Count() int {
	n := 0
	if c.Features != nil {
		n += len(c.Features.Features)
	}
	if c.Points != nil {
		n += len(c.Points.Features)
	}
	return n
}

// Empty reports whether no source produced data.
func (c *Collection) Empty() bool {
	return c.Count() == 0
}

// ResolutionEvent is published after every resolve, without feature payloads.
type ResolutionEvent struct {
	Time     time.Time `json:"time"`
	Layer    Layer     `json:"layer"`
	Source   string    `json:"source"`
	Count    int       `json:"count"`
	BBox     []float64 `json:"bbox"`
	Attempts int       `json:"attempts"`
	Errors   []string  `json:"errors,omitempty"`
	Duration string    `json:"duration"`
}

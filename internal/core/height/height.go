// Package height derives a building height above ground from loosely typed
// provider attributes.
package height

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/geogate/internal/core/domain"
)

const (
	MetersPerLevel = 3.2
	MetersPerFoot  = 0.3048
	DefaultMeters  = 10.0
	// MinMeters is the lowest height kept; anything lower is a fence or shed.
	MinMeters = 3.0
)

// Attribute keys tried in order.
var (
	HeightKeys = []string{"height", "building:height", "hoogte"}
	LevelKeys  = []string{"building:levels", "levels", "bouwlagen", "aantal_bouwlagen"}
	RoofKeys   = []string{"b3_h_dak_max", "h_dak_max", "roof_height"}
	GroundKeys = []string{"b3_h_maaiveld", "h_maaiveld", "ground_height"}
)

// Estimate resolves a height from explicit height, level count, or roof minus
// ground elevation, in that order, and falls back to DefaultMeters.
func Estimate(props map[string]any) domain.HeightEstimate {
	if v, ok := first(props, HeightKeys, ParseLength); ok {
		return domain.HeightEstimate{Value: round(v), Basis: domain.BasisExplicitHeight}
	}
	if v, ok := first(props, LevelKeys, parseLevels); ok {
		return domain.HeightEstimate{Value: round(v * MetersPerLevel), Basis: domain.BasisLevelCount}
	}
	roof, okRoof := first(props, RoofKeys, number)
	ground, okGround := first(props, GroundKeys, number)
	if okRoof && okGround {
		return domain.HeightEstimate{Value: round(math.Max(0, roof-ground)), Basis: domain.BasisRoofMinusGround}
	}
	return domain.HeightEstimate{Value: DefaultMeters, Basis: domain.BasisDefault}
}

// Keep reports whether an estimate passes the minimum-height filter.
func Keep(e domain.HeightEstimate) bool {
	return e.Value >= MinMeters
}

// ParseLength parses "12", "12.5", "3,5", "12m", "12 m" or "40ft" into meters.
// Malformed or negative values yield false.
func ParseLength(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		f, ok := number(v)
		return f, ok && f >= 0
	}

	s = strings.ToLower(strings.TrimSpace(s))
	factor := 1.0
	switch {
	case strings.HasSuffix(s, "ft"):
		s = strings.TrimSuffix(s, "ft")
		factor = MetersPerFoot
	case strings.HasSuffix(s, "m"):
		s = strings.TrimSuffix(s, "m")
	}

	f, err := parseDecimal(s)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f * factor, true
}

func parseLevels(v any) (float64, bool) {
	f, ok := number(v)
	return f, ok && f > 0
}

// number accepts JSON numbers and numeric strings.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		var err error
		if f, err = n.Float64(); err != nil {
			return 0, false
		}
	case string:
		var err error
		if f, err = parseDecimal(n); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseDecimal accepts a decimal comma ("3,5") as Dutch sources write it.
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}

func first(props map[string]any, keys []string, parse func(any) (float64, bool)) (float64, bool) {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		if f, ok := parse(v); ok {
			return f, true
		}
	}
	return 0, false
}

// round to millimeters.
func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

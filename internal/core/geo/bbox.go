package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samirrijal/geogate/internal/core/domain"
)

// ErrInvalidBBox is returned for a bbox that is not four comma-separated numbers.
var ErrInvalidBBox = errors.New("invalid bbox: use lonMin,latMin,lonMax,latMax")

// ParseBBox parses "lonMin,latMin,lonMax,latMax".
//
// An empty string, or a well-formed box that is inverted or out of range,
// yields fallback with defaulted set. Wrong arity or non-numeric parts are
// an ErrInvalidBBox.
func ParseBBox(raw string, fallback domain.BoundingBox) (box domain.BoundingBox, defaulted bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return domain.BoundingBox{}, false, fmt.Errorf("%w: expected 4 values, got %d", ErrInvalidBBox, len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.BoundingBox{}, false, fmt.Errorf("%w: %q is not a number", ErrInvalidBBox, p)
		}
		v[i] = f
	}

	box = domain.BoundingBox{LonMin: v[0], LatMin: v[1], LonMax: v[2], LatMax: v[3]}
	if !box.Valid() {
		return fallback, true, nil
	}
	return box, false, nil
}

// MustParseBBox parses a configured bbox constant and panics on error.
func MustParseBBox(raw string) domain.BoundingBox {
	box, defaulted, err := ParseBBox(raw, domain.BoundingBox{})
	if err != nil || defaulted {
		panic(fmt.Sprintf("geo: bad bbox constant %q", raw))
	}
	return box
}

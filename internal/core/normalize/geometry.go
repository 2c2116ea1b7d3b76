package normalize

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// CloseRing turns a vertex sequence into a closed ring. It needs at least
// three distinct vertices and four positions once closed.
func CloseRing(pts []orb.Point) (orb.Ring, bool) {
	if len(pts) < 3 {
		return nil, false
	}

	ring := make(orb.Ring, len(pts), len(pts)+1)
	copy(ring, pts)
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil, false
	}

	distinct := make(map[orb.Point]struct{}, len(ring))
	for _, p := range ring {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, false
	}
	return ring, true
}

// repairPolygon closes every ring. The polygon is dropped when its outer ring
// is degenerate; degenerate holes are removed.
func repairPolygon(poly orb.Polygon) (orb.Polygon, bool) {
	if len(poly) == 0 {
		return nil, false
	}
	outer, ok := CloseRing(poly[0])
	if !ok {
		return nil, false
	}
	out := orb.Polygon{outer}
	for _, hole := range poly[1:] {
		if r, ok := CloseRing(hole); ok {
			out = append(out, r)
		}
	}
	return out, true
}

// fromParts emits a Polygon for one part and a MultiPolygon for several.
func fromParts(parts []orb.Polygon) orb.Geometry {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	default:
		return orb.MultiPolygon(parts)
	}
}

// repair restricts a geometry to Point, Polygon or MultiPolygon with closed
// rings, or returns nil.
func repair(g orb.Geometry) orb.Geometry {
	switch g := g.(type) {
	case orb.Point:
		return g
	case orb.Polygon:
		if p, ok := repairPolygon(g); ok {
			return p
		}
	case orb.MultiPolygon:
		var parts []orb.Polygon
		for _, poly := range g {
			if p, ok := repairPolygon(poly); ok {
				parts = append(parts, p)
			}
		}
		return fromParts(parts)
	}
	return nil
}

// outerRings assembles relation members into polygons, one per valid outer way.
func outerRings(members [][]orb.Point) orb.Geometry {
	var parts []orb.Polygon
	for _, m := range members {
		if r, ok := CloseRing(m); ok {
			parts = append(parts, orb.Polygon{r})
		}
	}
	return fromParts(parts)
}

// decodeGeometry parses a GeoJSON geometry object. Null or malformed input yields nil.
func decodeGeometry(raw []byte) orb.Geometry {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil || g == nil {
		return nil
	}
	return g.Coordinates
}

// embeddedGeometry reads a geometry stored inside a property, either as a
// JSON-encoded string or as an already decoded object.
func embeddedGeometry(v any) orb.Geometry {
	switch v := v.(type) {
	case string:
		return decodeGeometry([]byte(v))
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return decodeGeometry(b)
	}
	return nil
}

func isPolygonal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	}
	return false
}

// Package normalize converts provider payloads into canonical GeoJSON features.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/height"
)

// Profile configures how one layer/provider pair is normalized.
type Profile struct {
	Label        string   // prefix of synthesized names, e.g. "Terras" -> "Terras #3"
	NameKeys     []string // display-name candidates, first non-empty wins
	IDKeys       []string // id candidates used when the provider has no native id
	GeometryKeys []string // properties that may carry an embedded geometry
	Heights      bool     // enrich polygons with h_m and apply the minimum-height filter
	KeepPoints   bool     // keep point features not covered by a polygon
}

// Result is the canonical output of one normalization pass.
type Result struct {
	Polygons []*geojson.Feature
	Points   []*geojson.Feature
	Stats    domain.HeightStats
}

// Count returns the number of accepted features.
func (r Result) Count() int {
	return len(r.Polygons) + len(r.Points)
}

// Normalizer is single-use: ordinals and dedup keys are scoped to one payload.
type Normalizer struct {
	profile Profile
	ordinal int
	claimed map[string]struct{}
	result  Result
}

// New returns a Normalizer for the given profile.
func New(p Profile) *Normalizer {
	return &Normalizer{profile: p, claimed: make(map[string]struct{})}
}

type candidate struct {
	ordinal  int
	nativeID any
	props    map[string]any
	geom     orb.Geometry
}

// Features normalizes WFS and REST GeoJSON features.
func (n *Normalizer) Features(raw []domain.RawFeature) Result {
	items := make([]candidate, 0, len(raw))
	for _, rf := range raw {
		n.ordinal++
		props := cloneProps(rf.Properties)

		geom := decodeGeometry(rf.Geometry)
		if geom == nil {
			geom = n.embedded(props)
		}
		if geom = repair(geom); geom == nil {
			continue
		}
		items = append(items, candidate{ordinal: n.ordinal, nativeID: rf.ID, props: props, geom: geom})
	}
	return n.accept(items)
}

// Elements normalizes Overpass elements. Ways become polygons, relations
// become one polygon per outer member, nodes become points.
func (n *Normalizer) Elements(els []domain.OSMElement) Result {
	items := make([]candidate, 0, len(els))
	for _, el := range els {
		n.ordinal++
		props := make(map[string]any, len(el.Tags)+2)
		for k, v := range el.Tags {
			props[k] = v
		}
		props["osm_type"] = el.Type
		props["osm_id"] = el.ID

		var geom orb.Geometry
		switch el.Type {
		case "node":
			geom = el.Point
		case "way":
			if r, ok := CloseRing(el.Nodes); ok {
				geom = orb.Polygon{r}
			}
		case "relation":
			var outers [][]orb.Point
			for _, m := range el.Members {
				if m.Role == "outer" || m.Role == "" {
					outers = append(outers, m.Nodes)
				}
			}
			geom = outerRings(outers)
		}
		if geom == nil {
			continue
		}
		items = append(items, candidate{
			ordinal:  n.ordinal,
			nativeID: fmt.Sprintf("%s/%d", el.Type, el.ID),
			props:    props,
			geom:     geom,
		})
	}
	return n.accept(items)
}

// accept emits polygons before points so a point is only kept when no
// polygon with the same id or name was accepted.
func (n *Normalizer) accept(items []candidate) Result {
	sort.SliceStable(items, func(i, j int) bool {
		return isPolygonal(items[i].geom) && !isPolygonal(items[j].geom)
	})

	for _, it := range items {
		id, idSynth := n.resolveID(it)
		name, nameSynth := n.resolveName(it)
		it.props["name"] = name
		k := keys(id, idSynth, name, nameSynth)

		if !isPolygonal(it.geom) {
			if !n.profile.KeepPoints || n.isClaimed(k) {
				continue
			}
			n.result.Points = append(n.result.Points, newFeature(id, it.geom, it.props))
			continue
		}

		if n.profile.Heights {
			est := height.Estimate(it.props)
			if !height.Keep(est) {
				n.result.Stats.SkippedTooLow++
				continue
			}
			n.result.Stats.Record(est.Basis)
			it.props["h_m"] = est.Value
			it.props["h_basis"] = string(est.Basis)
		}

		for _, key := range k {
			n.claimed[key] = struct{}{}
		}
		n.result.Polygons = append(n.result.Polygons, newFeature(id, it.geom, it.props))
	}
	return n.result
}

// resolveID returns the native id, else the first IDKeys hit, else the ordinal.
func (n *Normalizer) resolveID(it candidate) (any, bool) {
	lookups := []lookup{func(map[string]any) (any, bool) { return present(it.nativeID) }}
	for _, k := range n.profile.IDKeys {
		lookups = append(lookups, keyLookup(k))
	}
	if v, ok := firstOf(it.props, lookups); ok {
		return v, false
	}
	return it.ordinal, true
}

func (n *Normalizer) resolveName(it candidate) (string, bool) {
	for _, k := range n.profile.NameKeys {
		if s, ok := it.props[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s, false
			}
		}
	}
	label := n.profile.Label
	if label == "" {
		label = "Entity"
	}
	return fmt.Sprintf("%s #%d", label, it.ordinal), true
}

// keys are the dedup keys of a feature; synthesized ids and names never match.
func keys(id any, idSynth bool, name string, nameSynth bool) []string {
	var out []string
	if !idSynth {
		out = append(out, "id:"+fmt.Sprint(id))
	}
	if !nameSynth {
		out = append(out, "name:"+strings.ToLower(name))
	}
	return out
}

func (n *Normalizer) isClaimed(keys []string) bool {
	for _, k := range keys {
		if _, ok := n.claimed[k]; ok {
			return true
		}
	}
	return false
}

// embedded returns the first parseable geometry among GeometryKeys and
// removes that property from props.
func (n *Normalizer) embedded(props map[string]any) orb.Geometry {
	for _, k := range n.profile.GeometryKeys {
		if g := embeddedGeometry(props[k]); g != nil {
			delete(props, k)
			return g
		}
	}
	return nil
}

type lookup func(props map[string]any) (any, bool)

func keyLookup(key string) lookup {
	return func(props map[string]any) (any, bool) {
		return present(props[key])
	}
}

func firstOf(props map[string]any, lookups []lookup) (any, bool) {
	for _, l := range lookups {
		if v, ok := l(props); ok {
			return v, true
		}
	}
	return nil, false
}

// present treats nil and blank strings as absent.
func present(v any) (any, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false
		}
	}
	return v, true
}

func newFeature(id any, g orb.Geometry, props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.ID = id
	f.Properties = geojson.Properties(props)
	return f
}

func cloneProps(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+3)
	for k, v := range in {
		out[k] = v
	}
	return out
}

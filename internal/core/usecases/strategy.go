package usecases

import (
	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/normalize"
)

// Area selects the coordinate space a strategy queries in.
type Area int

const (
	AreaWGS84 Area = iota // bbox in degrees
	AreaRD                // bbox projected to EPSG:28992
	AreaNone              // unfiltered catalog, paginated
)

// Escalation is the fallback a strategy applies when its primary query is empty.
type Escalation int

const (
	EscalateNone   Escalation = iota
	EscalateLevels            // the next, coarser dataset level
	EscalatePad               // bbox padded outward by the pad margin
	EscalateRegion            // configured wide region
)

// Selection decides which non-empty variant a strategy keeps.
type Selection int

const (
	SelectFirst    Selection = iota // first non-empty variant wins
	SelectSmallest                  // every variant is tried, the smallest non-empty result wins
)

// Query is the input handed to a strategy's request builder.
type Query struct {
	BBox  domain.BoundingBox
	RD    domain.ProjectedBoundingBox // set when Area is AreaRD
	Level string                      // set when the strategy has dataset levels
}

// Strategy describes one upstream source declaratively.
type Strategy struct {
	Name       string
	Kind       domain.ProviderKind
	Endpoints  []string // mirrors, tried in order
	Levels     []string // dataset levels, finest first; only the first two are queried
	Area       Area
	Escalation Escalation
	Selection  Selection
	Profile    normalize.Profile
	Build      func(endpoint string, q Query) domain.UpstreamRequest
}

type variant struct {
	name  string
	level string
	box   domain.BoundingBox
}

// variants lists the primary query followed by at most one escalation.
func (s Strategy) variants(box, region domain.BoundingBox, pad float64) []variant {
	primary := variant{name: "primary", box: box}
	if len(s.Levels) > 0 {
		primary.level = s.Levels[0]
	}
	out := []variant{primary}

	switch s.Escalation {
	case EscalateLevels:
		if len(s.Levels) > 1 {
			lvl := s.Levels[1]
			out = append(out, variant{name: "level:" + lvl, level: lvl, box: box})
		}
	case EscalatePad:
		if s.Area != AreaNone && pad > 0 {
			out = append(out, variant{name: "padded", level: primary.level, box: box.Pad(pad)})
		}
	case EscalateRegion:
		if s.Area != AreaNone && region.Valid() && region != box {
			out = append(out, variant{name: "region", level: primary.level, box: region})
		}
	}
	return out
}

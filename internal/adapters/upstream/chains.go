package upstream

import (
	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/usecases"
)

// Sources lists the configured provider endpoints.
type Sources struct {
	Bag3DWFS      string
	Bag3DLevels   []string
	PDOKBAGWFS    string
	AmsterdamWFS  string
	AmsterdamREST string
	Overpass      []string // mirrors, tried in order
}

// BuildingChain returns the building strategies in priority order. Sources
// without an endpoint are left out.
func BuildingChain(src Sources) []usecases.Strategy {
	var chain []usecases.Strategy
	if src.Bag3DWFS != "" && len(src.Bag3DLevels) > 0 {
		chain = append(chain, usecases.Strategy{
			Name:       Bag3DWFS,
			Kind:       domain.ProviderWFS,
			Endpoints:  []string{src.Bag3DWFS},
			Levels:     src.Bag3DLevels,
			Area:       usecases.AreaWGS84,
			Escalation: usecases.EscalateLevels,
			Profile:    buildingProfile,
			Build:      bag3DRequest,
		})
	}
	if src.PDOKBAGWFS != "" {
		chain = append(chain, usecases.Strategy{
			Name:       PDOKBAGWFS,
			Kind:       domain.ProviderWFS,
			Endpoints:  []string{src.PDOKBAGWFS},
			Area:       usecases.AreaRD,
			Escalation: usecases.EscalatePad,
			Profile:    buildingProfile,
			Build:      pdokRequest,
		})
	}
	if len(src.Overpass) > 0 {
		chain = append(chain, usecases.Strategy{
			Name:       Overpass,
			Kind:       domain.ProviderOverpass,
			Endpoints:  src.Overpass,
			Area:       usecases.AreaWGS84,
			Escalation: usecases.EscalatePad,
			Profile:    buildingProfile,
			Build:      overpassBuildingsRequest,
		})
	}
	return chain
}

// TerraceChain returns the terrace strategies in priority order.
func TerraceChain(src Sources) []usecases.Strategy {
	var chain []usecases.Strategy
	if src.AmsterdamWFS != "" {
		chain = append(chain, usecases.Strategy{
			Name:       AmsterdamWFS,
			Kind:       domain.ProviderWFS,
			Endpoints:  []string{src.AmsterdamWFS},
			Area:       usecases.AreaWGS84,
			Escalation: usecases.EscalateRegion,
			Selection:  usecases.SelectSmallest,
			Profile:    terraceWFSProfile,
			Build:      amsterdamWFSRequest,
		})
	}
	if src.AmsterdamREST != "" {
		chain = append(chain, usecases.Strategy{
			Name:      AmsterdamAPI,
			Kind:      domain.ProviderREST,
			Endpoints: []string{src.AmsterdamREST},
			Area:      usecases.AreaNone,
			Profile:   terraceRESTProfile,
			Build:     amsterdamRESTRequest,
		})
	}
	if len(src.Overpass) > 0 {
		chain = append(chain, usecases.Strategy{
			Name:       Overpass,
			Kind:       domain.ProviderOverpass,
			Endpoints:  src.Overpass,
			Area:       usecases.AreaWGS84,
			Escalation: usecases.EscalatePad,
			Profile:    terraceOSMProfile,
			Build:      overpassTerracesRequest,
		})
	}
	return chain
}

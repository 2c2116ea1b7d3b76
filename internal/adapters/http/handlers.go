package http

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/core/geo"
)

const bboxUsage = "invalid bbox: use ?bbox=lonMin,latMin,lonMax,latMax"

// finder resolves one layer for a bbox.
type finder func(ctx context.Context, box domain.BoundingBox, defaulted bool) *domain.Collection

// BuildingsHandler returns building footprints with heights for ?bbox=.
func BuildingsHandler(deps *Dependencies) fiber.Handler {
	return layerHandler(deps, deps.Buildings.Find)
}

// TerracesHandler returns terrace polygons and place points for ?bbox=.
func TerracesHandler(deps *Dependencies) fiber.Handler {
	return layerHandler(deps, deps.Terraces.Find)
}

// layerHandler answers 400 only for a malformed bbox. Degraded and exhausted
// results are 200 with diagnostics.
func layerHandler(deps *Dependencies, find finder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		box, defaulted, err := geo.ParseBBox(c.Query("bbox"), deps.DefaultBBox)
		if err != nil {
			return errBadRequest(c, bboxUsage)
		}

		res := find(c.UserContext(), box, defaulted)

		setResultCaching(c, cacheable(res))
		c.Set("X-Data-Source", res.Source)
		return c.JSON(LayerResponse(res))
	}
}

// resolveLayer is shared by the GraphQL and WebSocket surfaces.
func resolveLayer(ctx context.Context, deps *Dependencies, layer, rawBBox string) (*domain.Collection, error) {
	box, defaulted, err := geo.ParseBBox(rawBBox, deps.DefaultBBox)
	if err != nil {
		return nil, err
	}
	switch domain.Layer(layer) {
	case domain.LayerBuildings:
		return deps.Buildings.Find(ctx, box, defaulted), nil
	case domain.LayerTerraces:
		return deps.Terraces.Find(ctx, box, defaulted), nil
	default:
		return nil, fmt.Errorf("unknown layer %q", layer)
	}
}

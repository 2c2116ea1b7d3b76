package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/samirrijal/geogate/internal/core/domain"
)

// jsonScalar passes GeoJSON and diagnostics through untouched.
var jsonScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "JSON",
	Description: "Arbitrary JSON value (GeoJSON FeatureCollection, diagnostics)",
	Serialize: func(value interface{}) interface{} {
		data, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		var out interface{}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil
		}
		return out
	},
	ParseValue: func(value interface{}) interface{} { return value },
	ParseLiteral: func(valueAST ast.Value) interface{} {
		return valueAST.GetValue()
	},
})

// buildSchema creates the GraphQL schema wired to the layer services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "HeightStats",
		Fields: graphql.Fields{
			"used_height":      &graphql.Field{Type: graphql.Int},
			"used_levels":      &graphql.Field{Type: graphql.Int},
			"used_roof_ground": &graphql.Field{Type: graphql.Int},
			"used_default":     &graphql.Field{Type: graphql.Int},
			"skipped_too_low":  &graphql.Field{Type: graphql.Int},
		},
	})

	resultType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "LayerResult",
		Description: "Resolved features of one layer with provenance",
		Fields: graphql.Fields{
			"source":   &graphql.Field{Type: graphql.String},
			"count":    &graphql.Field{Type: graphql.Int},
			"error":    &graphql.Field{Type: graphql.String},
			"features": &graphql.Field{Type: jsonScalar, Description: "Polygon FeatureCollection"},
			"points":   &graphql.Field{Type: jsonScalar, Description: "Point FeatureCollection (terraces only)"},
			"stats":    &graphql.Field{Type: statsType, Description: "Height statistics (buildings only)"},
			"debug":    &graphql.Field{Type: jsonScalar},
		},
	})

	layerField := func(layer domain.Layer, desc string) *graphql.Field {
		return &graphql.Field{
			Type:        resultType,
			Description: desc,
			Args: graphql.FieldConfigArgument{
				"bbox": &graphql.ArgumentConfig{Type: graphql.String, Description: "lonMin,latMin,lonMax,latMax"},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				raw, _ := p.Args["bbox"].(string)
				res, err := resolveLayer(p.Context, deps, string(layer), raw)
				if err != nil {
					return nil, err
				}
				return graphqlResult(res), nil
			},
		}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"buildings": layerField(domain.LayerBuildings, "Building footprints with estimated heights"),
			"terraces":  layerField(domain.LayerTerraces, "Terrace areas and places with outdoor seating"),
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func graphqlResult(c *domain.Collection) map[string]interface{} {
	out := map[string]interface{}{
		"source":   c.Source,
		"count":    c.Count(),
		"features": orEmpty(c.Features),
		"debug":    c.Diagnostics,
	}
	if c.Error != "" {
		out["error"] = c.Error
	}
	if c.Points != nil {
		out["points"] = c.Points
	}
	if c.Stats != nil {
		out["stats"] = map[string]interface{}{
			"used_height":      c.Stats.UsedHeight,
			"used_levels":      c.Stats.UsedLevels,
			"used_roof_ground": c.Stats.UsedRoofGround,
			"used_default":     c.Stats.UsedDefault,
			"skipped_too_low":  c.Stats.SkippedTooLow,
		}
	}
	return out
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}

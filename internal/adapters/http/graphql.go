package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// buildSchema exposes the transit endpoints as a single GraphQL query.
// Records stay opaque and are returned as JSON scalars.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	recordType := graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Record",
		Description: "An upstream record, passed through unchanged",
		Serialize:   func(v interface{}) interface{} { return v },
	})

	envelopeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Envelope",
		Fields: graphql.Fields{
			"success":   &graphql.Field{Type: graphql.Boolean},
			"data":      &graphql.Field{Type: graphql.NewList(recordType)},
			"total":     &graphql.Field{Type: graphql.Int},
			"filtered":  &graphql.Field{Type: graphql.Int},
			"timestamp": &graphql.Field{Type: graphql.String},
		},
	})

	endpointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Endpoint",
		Fields: graphql.Fields{
			"mode":              &graphql.Field{Type: graphql.String},
			"resource":          &graphql.Field{Type: graphql.String},
			"path":              &graphql.Field{Type: graphql.String},
			"default_radius_km": &graphql.Field{Type: graphql.Float},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"health": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return "OK", nil
				},
			},
			"endpoints": &graphql.Field{
				Type:        graphql.NewList(endpointType),
				Description: "Every endpoint the proxy serves",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var out []map[string]interface{}
					for _, e := range deps.Transit.Catalog().All() {
						out = append(out, map[string]interface{}{
							"mode":              string(e.Mode),
							"resource":          e.Resource,
							"path":              e.Path(),
							"default_radius_km": e.DefaultRadiusKm,
						})
					}
					return out, nil
				},
			},
			"transit": &graphql.Field{
				Type:        envelopeType,
				Description: "Fetch one endpoint, optionally filtered around a point",
				Args: graphql.FieldConfigArgument{
					"mode":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"resource": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":      &graphql.ArgumentConfig{Type: graphql.Float},
					"lng":      &graphql.ArgumentConfig{Type: graphql.Float},
					"radio":    &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var q transitQuery
					if v, ok := p.Args["lat"].(float64); ok {
						q.Lat = &v
					}
					if v, ok := p.Args["lng"].(float64); ok {
						q.Lng = &v
					}
					if v, ok := p.Args["radio"].(float64); ok {
						q.Radio = &v
					}
					if err := q.check(); err != nil {
						return nil, fmt.Errorf("%s: %w", msgInvalidParams, err)
					}
					env, err := deps.Transit.Fetch(p.Context, domain.ProxyRequest{
						Mode:     domain.Mode(p.Args["mode"].(string)),
						Resource: p.Args["resource"].(string),
						Origin:   q.origin(),
						RadiusKm: q.radius(),
					})
					if err != nil {
						return nil, err
					}
					return map[string]interface{}{
						"success":   env.Success,
						"data":      env.Data,
						"total":     env.Total,
						"filtered":  env.Filtered,
						"timestamp": env.Timestamp,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
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

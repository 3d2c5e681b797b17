package http

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

var validate = validator.New()

// transitQuery holds the optional query parameters of a transit endpoint.
type transitQuery struct {
	Lat    *float64 `query:"lat" validate:"omitempty,latitude"`
	Lng    *float64 `query:"lng" validate:"omitempty,longitude"`
	Radio  *float64 `query:"radio" validate:"omitempty,gt=0,lte=50"`
	Offset int      `query:"offset" validate:"gte=0"`
	Limit  int      `query:"limit" validate:"gte=0,lte=1000"`
}

// origin returns the requested point, nil when no point was given.
func (q transitQuery) origin() *domain.GeoPoint {
	if q.Lat == nil || q.Lng == nil {
		return nil
	}
	return &domain.GeoPoint{Lat: *q.Lat, Lon: *q.Lng}
}

func (q transitQuery) radius() float64 {
	if q.Radio == nil {
		return 0
	}
	return *q.Radio
}

// parseTransitQuery parses and validates the query string. Error text is
// returned to the client as the 400 details.
func parseTransitQuery(c *fiber.Ctx) (transitQuery, error) {
	var q transitQuery
	if err := c.QueryParser(&q); err != nil {
		return q, fmt.Errorf("query: %w", err)
	}
	return q, q.check()
}

// check validates ranges and that lat and lng come together.
func (q transitQuery) check() error {
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, describeField(fe))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	if (q.Lat == nil) != (q.Lng == nil) {
		return errors.New("lat y lng deben enviarse juntos")
	}
	return nil
}

func describeField(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "latitude":
		return name + " debe estar entre -90 y 90"
	case "longitude":
		return name + " debe estar entre -180 y 180"
	case "gt":
		return name + " debe ser mayor a " + fe.Param()
	case "gte":
		return name + " debe ser mayor o igual a " + fe.Param()
	case "lte":
		return name + " debe ser menor o igual a " + fe.Param()
	default:
		return name + " inválido"
	}
}

// TransitHandler serves one catalog endpoint.
func TransitHandler(deps *Dependencies, endpoint domain.Endpoint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseTransitQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		env, err := deps.Transit.Fetch(c.UserContext(), domain.ProxyRequest{
			Mode:     endpoint.Mode,
			Resource: endpoint.Resource,
			Origin:   q.origin(),
			RadiusKm: q.radius(),
			Offset:   q.Offset,
			Limit:    q.Limit,
		})
		if err != nil {
			if errors.Is(err, domain.ErrUnknownEndpoint) {
				return errNotFound(c, err.Error())
			}
			return errUpstream(c, err)
		}

		if q.origin() == nil {
			limit := deps.Transit.MaxRecords()
			if q.Limit > 0 && q.Limit < limit {
				limit = q.Limit
			}
			SetLinkHeaders(c, Pagination{Offset: q.Offset, Limit: limit, Total: env.Total})
		}
		return c.JSON(env)
	}
}

// LegacyNearbyStopsHandler serves /api/paradas-cercanas.
func LegacyNearbyStopsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := parseTransitQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		origin := q.origin()
		if origin == nil {
			return errBadRequest(c, "lat y lng son obligatorios")
		}

		res, err := deps.Transit.NearbyStops(c.UserContext(), *origin, q.radius())
		if err != nil {
			return errLegacyUpstream(c, err)
		}
		return c.JSON(res)
	}
}

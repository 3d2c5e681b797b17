package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute describes an endpoint kept for old clients.
type DeprecatedRoute struct {
	Path        string
	SunsetDate  time.Time
	Alternative string
}

// LegacyRoutes lists the deprecated endpoints the proxy still serves.
var LegacyRoutes = []DeprecatedRoute{
	{
		Path:        "/api/paradas-cercanas",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/api/colectivos/paradas",
	},
}

// DeprecationMiddleware adds Deprecation, Sunset and Link headers (RFC 8594,
// RFC 8288) to the routes in deprecated.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	byPath := make(map[string]DeprecatedRoute, len(deprecated))
	for _, d := range deprecated {
		byPath[d.Path] = d
	}

	return func(c *fiber.Ctx) error {
		d, ok := byPath[c.Path()]
		if !ok {
			return c.Next()
		}

		c.Set("Deprecation", "true")
		c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))
		if d.Alternative != "" {
			c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
		}
		days := time.Until(d.SunsetDate).Hours() / 24
		c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))

		return c.Next()
	}
}

package http

import (
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// noCacheExt lists the static asset types that must always be revalidated so
// a new deploy reaches clients immediately.
var noCacheExt = map[string]bool{
	".html": true,
	".css":  true,
	".js":   true,
	".json": true,
	".svg":  true,
}

// CachingMiddleware sets Cache-Control on GET responses.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet {
			return err
		}

		p := c.Path()
		if p == "/" || noCacheExt[strings.ToLower(path.Ext(p))] {
			setNoStore(c)
			return err
		}
		if len(c.Response().Header.Peek(fiber.HeaderCacheControl)) > 0 {
			return err
		}

		switch {
		case p == "/health" || p == "/ready" || p == "/metrics":
			c.Set(fiber.HeaderCacheControl, "no-cache")
		case p == "/graphql":
			c.Set(fiber.HeaderCacheControl, "private, max-age=0")
		case strings.HasPrefix(p, "/api/"):
			// realtime data; the offline worker keeps its own copy
			c.Set(fiber.HeaderCacheControl, "no-cache")
		}
		return err
	}
}

func setNoStore(c *fiber.Ctx) {
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set("Pragma", "no-cache")
	c.Set("Expires", "0")
}

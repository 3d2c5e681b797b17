package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware logs one structured line per request. Static assets log
// at debug so the API traffic stays readable.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		switch {
		case err != nil || status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case !isAPIPath(c.Path()):
			level = slog.LevelDebug
		}

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		LoggerFromCtx(c.UserContext()).LogAttrs(c.UserContext(), level, "http request", attrs...)
		return err
	}
}

func isAPIPath(p string) bool {
	return len(p) >= 5 && p[:5] == "/api/" || p == "/graphql"
}

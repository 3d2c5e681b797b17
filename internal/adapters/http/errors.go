package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// Error strings shown to API clients.
const (
	msgUpstreamFailed = "API falló"
	msgInvalidParams  = "Parámetros inválidos"
	msgNotFound       = "Recurso no encontrado"
)

// newError writes a failure envelope. The request ID is echoed in a header so
// the envelope keeps its public shape.
func newError(c *fiber.Ctx, status int, msg, details string) error {
	if reqID, ok := c.Locals("requestid").(string); ok && reqID != "" {
		c.Set(fiber.HeaderXRequestID, reqID)
	}
	return c.Status(status).JSON(domain.FailedEnvelope(msg, details, time.Now()))
}

// errBadRequest returns a 400 envelope.
func errBadRequest(c *fiber.Ctx, details string) error {
	return newError(c, fiber.StatusBadRequest, msgInvalidParams, details)
}

// errNotFound returns a 404 envelope.
func errNotFound(c *fiber.Ctx, details string) error {
	return newError(c, fiber.StatusNotFound, msgNotFound, details)
}

// errUpstream returns the 500 envelope used for every upstream failure.
func errUpstream(c *fiber.Ctx, err error) error {
	LoggerFromCtx(c.UserContext()).Error("upstream request failed", "path", c.Path(), "error", err)
	return newError(c, fiber.StatusInternalServerError, msgUpstreamFailed, err.Error())
}

// legacyError is the failure body of /api/paradas-cercanas.
type legacyError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// errLegacyUpstream returns the 500 body old clients of the legacy endpoint expect.
func errLegacyUpstream(c *fiber.Ctx, err error) error {
	LoggerFromCtx(c.UserContext()).Error("upstream request failed", "path", c.Path(), "error", err)
	if reqID, ok := c.Locals("requestid").(string); ok && reqID != "" {
		c.Set(fiber.HeaderXRequestID, reqID)
	}
	return c.Status(fiber.StatusInternalServerError).JSON(legacyError{Error: msgUpstreamFailed, Details: err.Error()})
}

package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/transporteba/internal/core/usecases"
)

// Pinger is anything /ready can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Transit *usecases.TransitService
	// Upstream is probed by /ready; nil skips the check.
	Upstream Pinger
	// Cache is the shared offline cache backend, when one is configured.
	Cache Pinger
	NATS  *nats.Conn

	StaticDir    string
	OpenAPIPath  string
	AllowOrigins string
	// RateLimit is requests per minute per IP; 0 disables limiting.
	RateLimit int
	Version   string
}

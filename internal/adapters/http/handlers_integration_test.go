//go:build integration
// +build integration

package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	handler "github.com/samirrijal/transporteba/internal/adapters/http"
	"github.com/samirrijal/transporteba/internal/adapters/upstream"
	"github.com/samirrijal/transporteba/internal/core/catalog"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/usecases"
	"github.com/samirrijal/transporteba/internal/pkg/config"
)

// setupLiveDeps talks to the real transit API. Credentials come from
// TRANSPORTEBA_UPSTREAM_CLIENT_ID and TRANSPORTEBA_UPSTREAM_CLIENT_SECRET.
func setupLiveDeps(t *testing.T) *handler.Dependencies {
	cfg, err := config.Load("transporteba-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Upstream.ClientID == "" {
		t.Skip("upstream credentials not configured")
	}

	up := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.ClientID, cfg.Upstream.ClientSecret, cfg.Upstream.UpstreamTimeout())
	return &handler.Dependencies{
		Transit:  usecases.NewTransitService(catalog.Default(), up, nil, cfg.Upstream.MaxRecords),
		Upstream: up,
		Version:  "integration",
	}
}

func TestSubteStations_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	app := setupApp(setupLiveDeps(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/subtes/estaciones", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var env domain.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !env.Success || env.Total == 0 {
		t.Errorf("expected live stations, got success=%v total=%d", env.Success, env.Total)
	}
	if env.Filtered != len(env.Data) {
		t.Errorf("filtered = %d, data = %d", env.Filtered, len(env.Data))
	}
}

func TestBusStopsNearObelisco_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	app := setupApp(setupLiveDeps(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/colectivos/paradas?lat=-34.6037&lng=-58.3816&radio=1", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var env domain.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Filtered > env.Total {
		t.Errorf("filtered %d exceeds total %d", env.Filtered, env.Total)
	}
}

func TestReady_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	app := setupApp(setupLiveDeps(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

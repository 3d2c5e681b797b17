package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

func TestClient_Get_InjectsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/subtes/stations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("client_id") != "abc" || r.URL.Query().Get("client_secret") != "xyz" {
			t.Errorf("credentials not injected: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"nombre":"Plaza de Mayo"}]`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "abc", "xyz", 2*time.Second)
	body, err := c.Get(context.Background(), "/subtes/stations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(body), "Plaza de Mayo") {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestClient_Get_OmitsEmptyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query string, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, "", "", time.Second).Get(context.Background(), "/trenes/stations"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Get_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`upstream internals`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "id", "secret", time.Second).Get(context.Background(), "/colectivos/stops")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if strings.Contains(err.Error(), "upstream internals") {
		t.Fatal("upstream body leaked into error")
	}
}

func TestClient_Get_NetworkErrorHidesCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "id", "very-secret", time.Second).Get(context.Background(), "/colectivos/stops")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if strings.Contains(err.Error(), "very-secret") {
		t.Fatalf("secret leaked into error: %v", err)
	}
}

func TestClient_Get_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", "", 20*time.Millisecond).Get(context.Background(), "/slow")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead || r.URL.RawQuery != "" {
			t.Errorf("unexpected ping %s %s", r.Method, r.URL)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	c := NewClient(server.URL, "abc", "xyz", time.Second)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("any status counts as reachable: %v", err)
	}

	server.Close()
	if err := c.Ping(context.Background()); !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable after shutdown, got %v", err)
	}
}

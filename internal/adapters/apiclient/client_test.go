package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

func TestClient_URL(t *testing.T) {
	c := New("http://localhost:3000/", nil, time.Second)
	if got := c.URL("subtes/estaciones", nil); got != "http://localhost:3000/api/subtes/estaciones" {
		t.Errorf("got %s", got)
	}
	got := c.URL("colectivos/paradas", &domain.GeoPoint{Lat: -34.6037, Lon: -58.3816})
	if got != "http://localhost:3000/api/colectivos/paradas?lat=-34.6037&lng=-58.3816" {
		t.Errorf("got %s", got)
	}
}

func TestClient_Transit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/subtes/estaciones" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":[{"nombre":"Catedral"}],"total":1,"filtered":1,"timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer server.Close()

	env, err := New(server.URL, nil, time.Second).Transit(context.Background(), "subtes/estaciones", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Total != 1 || env.Data[0].Label() != "Catedral" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestClient_Transit_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"offline without cache", http.StatusServiceUnavailable, `{"success":false,"error":"API falló - Sin conexión y sin datos en cache"}`, domain.ErrNoCacheAvailable},
		{"proxy failure", http.StatusInternalServerError, `{"success":false,"error":"API falló","details":"timeout"}`, domain.ErrUpstreamUnavailable},
		{"not json", http.StatusBadGateway, `<html>`, domain.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL, nil, time.Second).Transit(context.Background(), "trenes/estado", nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

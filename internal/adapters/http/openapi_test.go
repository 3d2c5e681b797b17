package http_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/transporteba/internal/core/catalog"
)

// findOpenAPISpec locates api/openapi.yaml by walking up from the test directory.
func findOpenAPISpec(t *testing.T) string {
	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "api", "openapi.yaml")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	t.Fatalf("could not find api/openapi.yaml")
	return ""
}

func loadOpenAPISpec(t *testing.T) *openapi3.T {
	t.Helper()
	data, err := os.ReadFile(findOpenAPISpec(t))
	if err != nil {
		t.Fatalf("failed to read openapi.yaml: %v", err)
	}
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return spec
}

// TestOpenAPISpec validates the document and checks it covers every route.
func TestOpenAPISpec(t *testing.T) {
	spec := loadOpenAPISpec(t)
	if err := spec.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	expectedPaths := append([]string{
		"/health",
		"/ready",
		"/api/paradas-cercanas",
		"/graphql",
	}, catalog.Default().Paths()...)

	for _, path := range expectedPaths {
		if item := spec.Paths.Find(path); item == nil {
			t.Errorf("expected path %s not found", path)
		}
	}

	legacy := spec.Paths.Find("/api/paradas-cercanas")
	if legacy != nil && (legacy.Get == nil || !legacy.Get.Deprecated) {
		t.Error("/api/paradas-cercanas should be marked deprecated")
	}

	for _, schema := range []string{"Envelope", "ErrorEnvelope", "LegacyError", "NearbyStops", "GeoPoint", "Health", "Ready"} {
		if spec.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	t.Logf("OpenAPI document valid: %d paths, %d schemas", len(spec.Paths.Map()), len(spec.Components.Schemas))
}

func TestOpenAPIInfo(t *testing.T) {
	spec := loadOpenAPISpec(t)

	if spec.Info.Title != "Transporte BA API" {
		t.Errorf("expected title 'Transporte BA API', got %q", spec.Info.Title)
	}
	if spec.Info.Version != "1.1.0" {
		t.Errorf("expected version 1.1.0, got %q", spec.Info.Version)
	}
	if spec.Info.Description == "" {
		t.Error("expected non-empty description")
	}
	if len(spec.Servers) == 0 {
		t.Fatal("expected at least one server")
	}
}

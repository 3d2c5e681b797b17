package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/usecases"
)

// --- Mock PreferenceStore ---

type mockPrefs struct {
	loaded domain.LayerPreferences
	saved  []domain.LayerPreferences
	err    error
}

func (m *mockPrefs) Load(ctx context.Context) (domain.LayerPreferences, error) {
	return m.loaded, m.err
}

func (m *mockPrefs) Save(ctx context.Context, prefs domain.LayerPreferences) error {
	m.saved = append(m.saved, prefs)
	return m.err
}

// --- Mock TransitReader ---

type mockReader struct {
	keys   []string
	origin *domain.GeoPoint
	fn     func(key string) (*domain.Envelope, error)
}

func (m *mockReader) Transit(ctx context.Context, key string, origin *domain.GeoPoint) (*domain.Envelope, error) {
	m.keys = append(m.keys, key)
	m.origin = origin
	if m.fn != nil {
		return m.fn(key)
	}
	return &domain.Envelope{Success: true, Data: []domain.Record{}}, nil
}

func TestAppState_Defaults(t *testing.T) {
	state := usecases.NewAppState(&mockPrefs{}, &mockReader{}, 0)
	if !state.IsActive(domain.LayerColectivos) || !state.IsActive(domain.LayerParadas) {
		t.Error("bus layers should start active")
	}
	if state.IsActive(domain.LayerEcobici) {
		t.Error("ecobici should start inactive")
	}
}

func TestAppState_RestoreIgnoresUnknownLayers(t *testing.T) {
	store := &mockPrefs{loaded: domain.LayerPreferences{
		domain.LayerEcobici:    true,
		domain.LayerColectivos: false,
		"tranvia":              true,
	}}
	state := usecases.NewAppState(store, &mockReader{}, 0)
	if err := state.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}

	prefs := state.Preferences()
	if !prefs[domain.LayerEcobici] || prefs[domain.LayerColectivos] {
		t.Errorf("prefs = %v", prefs)
	}
	if !prefs[domain.LayerParadas] {
		t.Error("layers absent from the store keep their default")
	}
	if _, ok := prefs["tranvia"]; ok {
		t.Error("unknown layer leaked into state")
	}
}

func TestAppState_RestoreError(t *testing.T) {
	state := usecases.NewAppState(&mockPrefs{err: errors.New("disk full")}, &mockReader{}, 0)
	if err := state.Restore(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if !state.IsActive(domain.LayerColectivos) {
		t.Error("defaults must survive a failed restore")
	}
}

func TestAppState_TogglePersists(t *testing.T) {
	store := &mockPrefs{}
	state := usecases.NewAppState(store, &mockReader{}, 0)

	if err := state.Toggle(context.Background(), domain.LayerSubtes, true); err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != 1 || !store.saved[0][domain.LayerSubtes] {
		t.Fatalf("saved = %v", store.saved)
	}
	if len(store.saved[0]) != len(domain.Layers) {
		t.Errorf("expected the full preference set, got %v", store.saved[0])
	}
}

func TestAppState_ToggleUnknownLayer(t *testing.T) {
	store := &mockPrefs{}
	state := usecases.NewAppState(store, &mockReader{}, 0)
	err := state.Toggle(context.Background(), "tranvia", true)
	if !errors.Is(err, domain.ErrUnknownLayer) {
		t.Errorf("err = %v, want ErrUnknownLayer", err)
	}
	if len(store.saved) != 0 {
		t.Error("nothing should be persisted")
	}
}

func TestAppState_RefreshActiveSequentialWithDelay(t *testing.T) {
	reader := &mockReader{fn: func(key string) (*domain.Envelope, error) {
		if key == "colectivos/posiciones" {
			return nil, domain.ErrUpstreamUnavailable
		}
		return &domain.Envelope{Success: true, Data: []domain.Record{}}, nil
	}}
	var pauses []time.Duration
	state := usecases.NewAppState(&mockPrefs{}, reader, 450*time.Millisecond).
		WithSleep(func(ctx context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		})
	_ = state.Toggle(context.Background(), domain.LayerEcobici, true)

	results := state.RefreshActive(context.Background(), &obelisco)

	want := []string{"colectivos/posiciones", "colectivos/paradas", "ecobici/estaciones"}
	if len(reader.keys) != len(want) {
		t.Fatalf("fetched %v, want %v", reader.keys, want)
	}
	for i := range want {
		if reader.keys[i] != want[i] {
			t.Errorf("fetch %d = %s, want %s", i, reader.keys[i], want[i])
		}
	}
	if len(pauses) != 2 || pauses[0] != 450*time.Millisecond {
		t.Errorf("pauses = %v, want two of 450ms", pauses)
	}
	if results[0].Err == nil || results[1].Err != nil {
		t.Errorf("a failed layer must not stop the others: %+v", results)
	}
	if reader.origin == nil || *reader.origin != obelisco {
		t.Errorf("origin = %v", reader.origin)
	}
}

func TestAppState_RefreshActiveStopsOnCancel(t *testing.T) {
	reader := &mockReader{}
	ctx, cancel := context.WithCancel(context.Background())
	state := usecases.NewAppState(&mockPrefs{}, reader, 0).
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		})

	results := state.RefreshActive(ctx, nil)
	if len(results) != 1 || len(reader.keys) != 1 {
		t.Errorf("results = %d, fetches = %d; want 1 each", len(results), len(reader.keys))
	}
}

package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
)

// DefaultLayerDelay separates consecutive layer fetches in RefreshActive.
const DefaultLayerDelay = 400 * time.Millisecond

// DefaultLayerPreferences is used until the user toggles something.
func DefaultLayerPreferences() domain.LayerPreferences {
	prefs := make(domain.LayerPreferences, len(domain.Layers))
	for _, l := range domain.Layers {
		prefs[l.ID] = l.ID == domain.LayerColectivos || l.ID == domain.LayerParadas
	}
	return prefs
}

// LayerResult is the outcome of refreshing one layer.
type LayerResult struct {
	Layer    domain.Layer
	Envelope *domain.Envelope
	Err      error
}

// AppState owns the client's layer toggles.
type AppState struct {
	mu     sync.Mutex
	active domain.LayerPreferences
	store  ports.PreferenceStore
	reader ports.TransitReader
	delay  time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewAppState creates an AppState holding the default preferences.
func NewAppState(store ports.PreferenceStore, reader ports.TransitReader, delay time.Duration) *AppState {
	if delay <= 0 {
		delay = DefaultLayerDelay
	}
	return &AppState{
		active: DefaultLayerPreferences(),
		store:  store,
		reader: reader,
		delay:  delay,
		sleep:  sleepCtx,
	}
}

// WithSleep overrides the pause between layer fetches. Intended for tests.
func (a *AppState) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *AppState {
	a.sleep = sleep
	return a
}

// Restore loads persisted preferences. Unknown layer ids are ignored and
// layers missing from the store keep their default.
func (a *AppState) Restore(ctx context.Context) error {
	prefs, err := a.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load layer preferences: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, on := range prefs {
		if _, ok := domain.LookupLayer(id); !ok {
			slog.DebugContext(ctx, "ignoring unknown layer preference", "layer", id)
			continue
		}
		a.active[id] = on
	}
	return nil
}

// Toggle sets a layer's flag and persists the whole preference set.
func (a *AppState) Toggle(ctx context.Context, id domain.LayerID, on bool) error {
	if _, ok := domain.LookupLayer(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownLayer, id)
	}

	a.mu.Lock()
	a.active[id] = on
	snapshot := a.preferencesLocked()
	a.mu.Unlock()

	if err := a.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save layer preferences: %w", err)
	}
	return nil
}

// IsActive reports whether a layer is switched on.
func (a *AppState) IsActive(id domain.LayerID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active[id]
}

// Preferences returns a copy of every layer flag.
func (a *AppState) Preferences() domain.LayerPreferences {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.preferencesLocked()
}

// ActiveLayers returns the active layers in display order.
func (a *AppState) ActiveLayers() []domain.Layer {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []domain.Layer
	for _, l := range domain.Layers {
		if a.active[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

// RefreshActive fetches every active layer one after another, pausing between
// requests so the upstream API is not hit in a burst. A failed layer does not
// stop the others; cancelling ctx does.
func (a *AppState) RefreshActive(ctx context.Context, origin *domain.GeoPoint) []LayerResult {
	layers := a.ActiveLayers()
	results := make([]LayerResult, 0, len(layers))
	for i, l := range layers {
		if i > 0 {
			if err := a.sleep(ctx, a.delay); err != nil {
				break
			}
		}
		env, err := a.reader.Transit(ctx, l.Endpoint, origin)
		if err != nil {
			slog.WarnContext(ctx, "layer refresh failed", "layer", l.ID, "error", err)
		}
		results = append(results, LayerResult{Layer: l, Envelope: env, Err: err})
	}
	return results
}

func (a *AppState) preferencesLocked() domain.LayerPreferences {
	out := make(domain.LayerPreferences, len(a.active))
	for k, v := range a.active {
		out[k] = v
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

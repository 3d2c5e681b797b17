// Package client wires the terminal client: the offline worker in front of
// every request, the position fallback chain and the layer toggles.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/samirrijal/transporteba/internal/adapters/apiclient"
	"github.com/samirrijal/transporteba/internal/adapters/geoip"
	"github.com/samirrijal/transporteba/internal/adapters/position"
	"github.com/samirrijal/transporteba/internal/adapters/prefs"
	"github.com/samirrijal/transporteba/internal/adapters/valkey"
	"github.com/samirrijal/transporteba/internal/core/catalog"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
	"github.com/samirrijal/transporteba/internal/core/usecases"
	"github.com/samirrijal/transporteba/internal/offline"
	"github.com/samirrijal/transporteba/internal/pkg/config"
)

// Options overrides the collaborators New would otherwise build from config.
type Options struct {
	// Device is the position source; nil skips straight to the IP lookup.
	Device ports.PositionProvider
	// Network is the transport the worker uses; nil means http.DefaultTransport.
	Network http.RoundTripper
	// Storage replaces the configured cache backend.
	Storage ports.CacheStorage
	// IP replaces the configured IP locator.
	IP ports.IPLocator
	// Store replaces the preference file.
	Store ports.PreferenceStore
}

// App is a configured client. Start must be called before issuing requests.
type App struct {
	Registration *offline.Registration
	API          *apiclient.Client
	Location     *usecases.LocationService
	Layers       *usecases.AppState

	worker    *offline.Worker
	workerCfg offline.Config
	storage   ports.CacheStorage
	network   http.RoundTripper
	closers   []func()
}

// New builds an App from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	origin, err := url.Parse(cfg.Offline.APIBase)
	if err != nil {
		return nil, fmt.Errorf("parse offline.api_base: %w", err)
	}

	a := &App{}

	storage := opts.Storage
	if storage == nil {
		storage, err = a.openStorage(cfg)
		if err != nil {
			return nil, err
		}
	}

	a.workerCfg = offline.Config{
		Version:        cfg.Offline.Version,
		Origin:         origin,
		Precache:       offline.DefaultPrecache,
		APIPaths:       offline.APIPaths(catalog.Default()),
		NetworkTimeout: cfg.Upstream.UpstreamTimeout(),
	}
	a.storage = storage
	a.network = opts.Network
	worker, err := offline.NewWorker(a.workerCfg, storage, opts.Network)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.worker = worker
	a.Registration = offline.NewRegistration(opts.Network)
	a.API = apiclient.New(cfg.Offline.APIBase, a.Registration, 2*cfg.Upstream.UpstreamTimeout())

	ip := opts.IP
	if ip == nil {
		ip = geoip.NewLocator(cfg.Geolocation.IPLookupURL, time.Duration(cfg.Geolocation.IPTimeoutSecs)*time.Second, opts.Network)
	}
	a.Location = usecases.NewLocationService(opts.Device, ip, usecases.LocationOptions{
		Timeout:      time.Duration(cfg.Geolocation.Timeout) * time.Second,
		MaximumAge:   time.Duration(cfg.Geolocation.MaxAge) * time.Second,
		MaxAccuracyM: cfg.Geolocation.MaxAccuracyM,
		Fallback:     domain.GeoPoint{Lat: cfg.Geolocation.DefaultLat, Lon: cfg.Geolocation.DefaultLng},
	})

	store := opts.Store
	if store == nil {
		store = prefs.NewFileStore(cfg.Offline.PrefsPath)
	}
	a.Layers = usecases.NewAppState(store, a.API, time.Duration(cfg.Offline.LayerDelay)*time.Millisecond)

	return a, nil
}

func (a *App) openStorage(cfg *config.Config) (ports.CacheStorage, error) {
	switch cfg.Offline.Storage {
	case "valkey":
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			return nil, fmt.Errorf("offline storage: %w", err)
		}
		a.closers = append(a.closers, cache.Close)
		return cache, nil
	default:
		return offline.NewMemoryStorage(), nil
	}
}

// Start runs the registration until ctx ends, resumes the version a previous
// run activated, registers the configured worker and restores layer
// preferences. An install failure is logged and the client keeps going
// straight to the network.
func (a *App) Start(ctx context.Context) error {
	go a.Registration.Run(ctx)

	a.resume(ctx)
	if err := a.Registration.Register(ctx, a.worker); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		slog.WarnContext(ctx, "offline worker not installed", "version", a.worker.Version(), "error", err)
	}
	if err := a.Layers.Restore(ctx); err != nil {
		slog.WarnContext(ctx, "layer preferences not restored", "error", err)
	}
	return nil
}

// resume reactivates the version recorded in storage when it differs from the
// configured one, so the configured version waits for SKIP_WAITING.
func (a *App) resume(ctx context.Context) {
	prev, err := offline.ActiveVersion(ctx, a.storage)
	if err != nil {
		slog.WarnContext(ctx, "active worker version not read", "error", err)
		return
	}
	if prev == "" || prev == a.worker.Version() {
		return
	}
	wc := a.workerCfg
	wc.Version = prev
	w, err := offline.NewWorker(wc, a.storage, a.network)
	if err != nil {
		return
	}
	if err := a.Registration.Resume(ctx, w); err != nil {
		slog.WarnContext(ctx, "previous worker not resumed", "version", prev, "error", err)
	}
}

// Upgrade installs a new worker version next to the active one. It waits
// until a SKIP_WAITING message reaches the registration.
func (a *App) Upgrade(ctx context.Context, version string) error {
	wc := a.workerCfg
	wc.Version = version
	w, err := offline.NewWorker(wc, a.storage, a.network)
	if err != nil {
		return err
	}
	return a.Registration.Register(ctx, w)
}

// Close releases the storage backend.
func (a *App) Close() {
	for _, c := range a.closers {
		c()
	}
	a.closers = nil
}

// StaticPosition builds a device source from command-line values. A nil fix
// with denied false reports the position as unavailable.
func StaticPosition(lat, lng, accuracyM *float64, denied bool) position.Static {
	s := position.Static{Denied: denied, CapturedAt: time.Now()}
	if lat != nil && lng != nil {
		acc := 10.0
		if accuracyM != nil {
			acc = *accuracyM
		}
		s.Fix = &domain.Position{
			Point:     domain.GeoPoint{Lat: *lat, Lon: *lng},
			AccuracyM: acc,
			Source:    usecases.SourceGPS,
		}
	}
	return s
}

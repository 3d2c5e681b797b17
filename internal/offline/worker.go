// Package offline implements the client's offline worker: it intercepts
// outgoing requests and applies network-first caching so the client keeps
// working when the network or the upstream API degrades.
package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samirrijal/transporteba/internal/core/catalog"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
	"github.com/samirrijal/transporteba/internal/pkg/metrics"
)

// UnavailableMessage is the error of the envelope synthesized when an API
// request fails and nothing is cached.
const UnavailableMessage = "API falló - Sin conexión y sin datos en cache"

const cachePrefix = "transporteba-"

// registrationCache records which version was last activated. It outlives
// every worker version.
const (
	registrationCache = cachePrefix + "registration"
	activeVersionKey  = "active-version"
)

// DefaultPrecache lists the application shell installed into the static cache.
var DefaultPrecache = []string{
	"/",
	"/index.html",
	"/css/styles.css",
	"/js/app.js",
	"/manifest.json",
	"/icons/icon-192.svg",
	"/icons/icon-512.svg",
}

// LegacyAPIPath is allow-listed alongside the catalog endpoints.
const LegacyAPIPath = "/api/paradas-cercanas"

// APIPaths returns the API allow-list for cat.
func APIPaths(cat *catalog.Catalog) []string {
	return append(cat.Paths(), LegacyAPIPath)
}

// Class is how the worker treats a request.
type Class string

const (
	ClassStatic      Class = "static"
	ClassAPI         Class = "api"
	ClassPassthrough Class = "passthrough"
)

// Outcome states reported for intercepted requests.
const (
	StateFresh         = "fresh"
	StateFreshCached   = "fresh_cached"
	StateStaleFallback = "stale_fallback"
	StateMissing       = "missing"
	StateUnavailable   = "unavailable"
)

// Config describes one worker version.
type Config struct {
	Version string
	// Origin is the application base URL; only same-origin requests are intercepted.
	Origin *url.URL
	// Precache is the static allow-list, as paths.
	Precache []string
	// APIPaths is the API allow-list, as paths.
	APIPaths []string
	// NetworkTimeout bounds each network attempt made by the worker.
	NetworkTimeout time.Duration
}

// Worker is one version of the offline worker. A Worker holds no mutable
// state of its own; its lifecycle is driven by a Registration.
type Worker struct {
	cfg         Config
	storage     ports.CacheStorage
	network     http.RoundTripper
	staticCache string
	apiCache    string
	static      map[string]bool
	api         map[string]bool
	logger      *slog.Logger
	now         func() time.Time
}

// NewWorker builds a worker version backed by storage and network.
func NewWorker(cfg Config, storage ports.CacheStorage, network http.RoundTripper) (*Worker, error) {
	if cfg.Version == "" {
		return nil, errors.New("offline worker: version is required")
	}
	if cfg.Origin == nil || cfg.Origin.Host == "" {
		return nil, errors.New("offline worker: origin is required")
	}
	if network == nil {
		network = http.DefaultTransport
	}
	if cfg.NetworkTimeout <= 0 {
		cfg.NetworkTimeout = 15 * time.Second
	}

	w := &Worker{
		cfg:         cfg,
		storage:     storage,
		network:     network,
		staticCache: cachePrefix + "static-" + cfg.Version,
		apiCache:    cachePrefix + "api-" + cfg.Version,
		static:      make(map[string]bool, len(cfg.Precache)),
		api:         make(map[string]bool, len(cfg.APIPaths)),
		logger:      slog.Default().With("component", "offline-worker", "version", cfg.Version),
		now:         time.Now,
	}
	for _, p := range cfg.Precache {
		w.static[p] = true
	}
	for _, p := range cfg.APIPaths {
		w.api[p] = true
	}
	return w, nil
}

// Version returns the worker version.
func (w *Worker) Version() string { return w.cfg.Version }

// CacheNames returns the versioned static and API namespace names.
func (w *Worker) CacheNames() (static, api string) {
	return w.staticCache, w.apiCache
}

// Classify decides which policy applies to req.
func (w *Worker) Classify(req *http.Request) Class {
	if req.Method != http.MethodGet {
		return ClassPassthrough
	}
	if !w.sameOrigin(req.URL) {
		return ClassPassthrough
	}
	switch {
	case w.api[req.URL.Path]:
		return ClassAPI
	case w.static[req.URL.Path]:
		return ClassStatic
	default:
		return ClassPassthrough
	}
}

func (w *Worker) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, w.cfg.Origin.Scheme) && strings.EqualFold(u.Host, w.cfg.Origin.Host)
}

// Install fetches every precache path and stores them in the static cache.
// Nothing is stored unless every path answers 200.
func (w *Worker) Install(ctx context.Context) error {
	entries := make([]*domain.CacheEntry, 0, len(w.cfg.Precache))
	for _, p := range w.cfg.Precache {
		u := w.cfg.Origin.ResolveReference(&url.URL{Path: p})
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return fmt.Errorf("precache %s: %w", p, err)
		}
		entry, err := w.fetchNetwork(req)
		if err != nil {
			return fmt.Errorf("precache %s: %w", p, err)
		}
		if entry.Status != http.StatusOK {
			return fmt.Errorf("precache %s: status %d", p, entry.Status)
		}
		entries = append(entries, entry)
	}

	for _, e := range entries {
		if err := w.storage.Put(ctx, w.staticCache, e); err != nil {
			return fmt.Errorf("precache store %s: %w", e.URL, err)
		}
	}
	w.logger.Info("installed", "precached", len(entries))
	return nil
}

// Installed reports whether an earlier Install stored this version's static
// cache.
func (w *Worker) Installed(ctx context.Context) (bool, error) {
	names, err := w.storage.Namespaces(ctx)
	if err != nil {
		return false, fmt.Errorf("list caches: %w", err)
	}
	for _, name := range names {
		if name == w.staticCache {
			return true, nil
		}
	}
	return false, nil
}

// Activate deletes every cache namespace that does not belong to this version.
func (w *Worker) Activate(ctx context.Context) error {
	names, err := w.storage.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("list caches: %w", err)
	}
	for _, name := range names {
		if name == w.staticCache || name == w.apiCache || name == registrationCache {
			continue
		}
		if err := w.storage.DeleteNamespace(ctx, name); err != nil {
			return fmt.Errorf("delete cache %s: %w", name, err)
		}
		w.logger.Info("deleted stale cache", "cache", name)
	}
	return nil
}

// markActive records w as the active version in storage.
func (w *Worker) markActive(ctx context.Context) error {
	return w.storage.Put(ctx, registrationCache, &domain.CacheEntry{
		URL:        activeVersionKey,
		Status:     http.StatusOK,
		Body:       []byte(w.cfg.Version),
		CapturedAt: w.now().UTC(),
	})
}

// ActiveVersion returns the version last activated against storage, or ""
// when none was.
func ActiveVersion(ctx context.Context, storage ports.CacheStorage) (string, error) {
	e, err := storage.Match(ctx, registrationCache, activeVersionKey)
	if errors.Is(err, domain.ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(e.Body), nil
}

// Fetch applies the request's policy. Intercepted requests never return an
// error; passthrough requests surface the network error unchanged.
func (w *Worker) Fetch(req *http.Request) (*http.Response, error) {
	switch w.Classify(req) {
	case ClassAPI:
		return w.fetchAPI(req), nil
	case ClassStatic:
		return w.fetchStatic(req), nil
	default:
		return w.network.RoundTrip(req)
	}
}

// fetchStatic is network-first: the cache is only consulted after a failed
// network attempt.
func (w *Worker) fetchStatic(req *http.Request) *http.Response {
	key := req.URL.String()

	entry, err := w.fetchNetwork(req)
	if err == nil && entry.Status == http.StatusOK {
		w.store(req.Context(), w.staticCache, entry)
		w.observe(ClassStatic, StateFresh)
		return toResponse(req, entry)
	}
	w.logNetworkFailure(req, entry, err)

	if cached := w.match(req.Context(), w.staticCache, key); cached != nil {
		w.observe(ClassStatic, StateStaleFallback)
		return toResponse(req, cached)
	}

	if isDocument(req) {
		for _, p := range []string{"/", "/index.html"} {
			root := w.cfg.Origin.ResolveReference(&url.URL{Path: p}).String()
			if cached := w.match(req.Context(), w.staticCache, root); cached != nil {
				w.observe(ClassStatic, StateStaleFallback)
				return toResponse(req, cached)
			}
		}
	}

	w.observe(ClassStatic, StateMissing)
	return textResponse(req, http.StatusNotFound, "not found")
}

// fetchAPI is network-first with write-through on 200 only.
func (w *Worker) fetchAPI(req *http.Request) *http.Response {
	key := req.URL.String()

	entry, err := w.fetchNetwork(req)
	if err == nil && entry.Status == http.StatusOK {
		w.store(req.Context(), w.apiCache, entry)
		w.observe(ClassAPI, StateFreshCached)
		return toResponse(req, entry)
	}
	w.logNetworkFailure(req, entry, err)

	if cached := w.match(req.Context(), w.apiCache, key); cached != nil {
		w.observe(ClassAPI, StateStaleFallback)
		return toResponse(req, cached)
	}

	w.observe(ClassAPI, StateUnavailable)
	body, _ := json.Marshal(domain.FailedEnvelope(UnavailableMessage, "", w.now()))
	resp := textResponse(req, http.StatusServiceUnavailable, string(body))
	resp.Header.Set("Content-Type", "application/json; charset=utf-8")
	return resp
}

// fetchNetwork performs one network round trip and buffers the body.
func (w *Worker) fetchNetwork(req *http.Request) (*domain.CacheEntry, error) {
	ctx, cancel := context.WithTimeout(req.Context(), w.cfg.NetworkTimeout)
	defer cancel()

	resp, err := w.network.RoundTrip(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &domain.CacheEntry{
		URL:        req.URL.String(),
		Status:     resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		CapturedAt: w.now().UTC(),
	}, nil
}

func (w *Worker) store(ctx context.Context, namespace string, entry *domain.CacheEntry) {
	if err := w.storage.Put(ctx, namespace, entry); err != nil {
		w.logger.Warn("cache write failed", "cache", namespace, "url", entry.URL, "error", err)
	}
}

func (w *Worker) match(ctx context.Context, namespace, key string) *domain.CacheEntry {
	entry, err := w.storage.Match(ctx, namespace, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			w.logger.Warn("cache read failed", "cache", namespace, "url", key, "error", err)
		}
		return nil
	}
	return entry
}

func (w *Worker) logNetworkFailure(req *http.Request, entry *domain.CacheEntry, err error) {
	if err != nil {
		w.logger.Warn("network request failed", "url", req.URL.String(), "error", err)
		return
	}
	w.logger.Warn("network request not ok", "url", req.URL.String(), "status", entry.Status)
}

func (w *Worker) observe(class Class, state string) {
	metrics.OfflineResponses.WithLabelValues(string(class), state).Inc()
}

// isDocument reports whether req navigates to a page rather than loading a subresource.
func isDocument(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Dest") == "document" {
		return true
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}

func toResponse(req *http.Request, e *domain.CacheEntry) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.Status, http.StatusText(e.Status)),
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func textResponse(req *http.Request, status int, body string) *http.Response {
	return toResponse(req, &domain.CacheEntry{
		Status: status,
		Header: http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:   []byte(body),
	})
}

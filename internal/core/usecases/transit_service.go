package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samirrijal/transporteba/internal/core/catalog"
	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/core/ports"
	"github.com/samirrijal/transporteba/internal/pkg/geospatial"
	"github.com/samirrijal/transporteba/internal/pkg/metrics"
)

// fallbackRadiusKm applies when coordinates are given for an endpoint without
// a default radius.
const fallbackRadiusKm = 1.0

// legacyRadiusKm is the default radius of /api/paradas-cercanas.
const legacyRadiusKm = 1.0

// TransitService fetches, normalizes and geo-filters upstream collections.
// It keeps no state between calls.
type TransitService struct {
	catalog    *catalog.Catalog
	upstream   ports.UpstreamClient
	publisher  ports.EventPublisher
	maxRecords int
	now        func() time.Time
}

// NewTransitService creates a new TransitService. publisher may be nil.
func NewTransitService(cat *catalog.Catalog, upstream ports.UpstreamClient, publisher ports.EventPublisher, maxRecords int) *TransitService {
	if maxRecords <= 0 {
		maxRecords = 100
	}
	return &TransitService{
		catalog:    cat,
		upstream:   upstream,
		publisher:  publisher,
		maxRecords: maxRecords,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *TransitService) WithClock(now func() time.Time) *TransitService {
	s.now = now
	return s
}

// Catalog returns the endpoint table the service serves.
func (s *TransitService) Catalog() *catalog.Catalog {
	return s.catalog
}

// MaxRecords is the cap applied to every returned collection.
func (s *TransitService) MaxRecords() int {
	return s.maxRecords
}

// Fetch performs one upstream call for the requested endpoint and returns a
// success envelope. Upstream failures wrap domain.ErrUpstreamUnavailable.
func (s *TransitService) Fetch(ctx context.Context, req domain.ProxyRequest) (*domain.Envelope, error) {
	endpoint, err := s.catalog.Lookup(string(req.Mode), req.Resource)
	if err != nil {
		return nil, err
	}

	records, total, err := s.fetchRecords(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var data []domain.Record
	if req.Origin != nil {
		radius := s.radiusFor(endpoint, req.RadiusKm)
		data = FilterWithin(records, *req.Origin, radius)
	} else {
		data = records
		if req.Offset > 0 {
			if req.Offset >= len(data) {
				data = nil
			} else {
				data = data[req.Offset:]
			}
		}
	}
	limit := s.maxRecords
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	if len(data) > limit {
		data = data[:limit]
	}
	if data == nil {
		data = []domain.Record{}
	}

	now := s.now()
	env := &domain.Envelope{
		Success:   true,
		Data:      data,
		Total:     total,
		Filtered:  len(data),
		Timestamp: now.UTC().Format(time.RFC3339),
	}

	metrics.RecordsFiltered.WithLabelValues(endpoint.Key()).Observe(float64(len(data)))
	s.publish(ctx, &domain.Snapshot{
		Endpoint:  endpoint.Key(),
		Total:     total,
		Filtered:  len(data),
		FetchedAt: now.UTC(),
	})

	return env, nil
}

// NearbyStops serves the legacy nearby-stops contract from the bus stop endpoint.
func (s *TransitService) NearbyStops(ctx context.Context, origin domain.GeoPoint, radiusKm float64) (*domain.NearbyStops, error) {
	if radiusKm <= 0 {
		radiusKm = legacyRadiusKm
	}
	env, err := s.Fetch(ctx, domain.ProxyRequest{
		Mode:     domain.ModeColectivos,
		Resource: "paradas",
		Origin:   &origin,
		RadiusKm: radiusKm,
	})
	if err != nil {
		return nil, err
	}
	return &domain.NearbyStops{
		Location:  origin,
		RadiusKm:  radiusKm,
		Stops:     env.Data,
		Total:     env.Filtered,
		Timestamp: env.Timestamp,
	}, nil
}

// radiusFor picks the requested radius, then the endpoint default, then 1 km.
func (s *TransitService) radiusFor(e domain.Endpoint, requested float64) float64 {
	if requested > 0 {
		return requested
	}
	if e.DefaultRadiusKm > 0 {
		return e.DefaultRadiusKm
	}
	return fallbackRadiusKm
}

func (s *TransitService) fetchRecords(ctx context.Context, e domain.Endpoint) ([]domain.Record, int, error) {
	body, err := s.upstream.Get(ctx, e.UpstreamPath)
	if err != nil {
		return nil, 0, err
	}
	records, total, err := DecodeRecords(body, e.ItemsPath)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: %w", domain.ErrUpstreamUnavailable, e.UpstreamPath, err)
	}
	return records, total, nil
}

func (s *TransitService) publish(ctx context.Context, snap *domain.Snapshot) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSnapshot(ctx, snap); err != nil {
		slog.WarnContext(ctx, "publish snapshot failed", "endpoint", snap.Endpoint, "error", err)
	}
}

// ErrMalformedPayload is returned when the upstream body is not the expected JSON shape.
var ErrMalformedPayload = errors.New("malformed upstream payload")

// DecodeRecords parses an upstream body and returns the object items found at
// itemsPath (a dot separated path, empty for a top-level array) along with
// the upstream item count. Non-object items are dropped.
func DecodeRecords(body []byte, itemsPath string) ([]domain.Record, int, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	node := root
	if itemsPath != "" {
		for _, part := range strings.Split(itemsPath, ".") {
			obj, ok := node.(map[string]any)
			if !ok {
				return nil, 0, fmt.Errorf("%w: %q is not an object", ErrMalformedPayload, part)
			}
			node = obj[part]
		}
	}

	items, ok := node.([]any)
	if !ok {
		return nil, 0, fmt.Errorf("%w: expected an array", ErrMalformedPayload)
	}

	records := make([]domain.Record, 0, len(items))
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			records = append(records, domain.Record(obj))
		}
	}
	return records, len(items), nil
}

// FilterWithin keeps the records located within radiusKm of origin. Records
// without usable coordinates are skipped.
func FilterWithin(records []domain.Record, origin domain.GeoPoint, radiusKm float64) []domain.Record {
	out := make([]domain.Record, 0)
	box := geospatial.BoundingBox(origin, radiusKm)
	for _, r := range records {
		p, ok := r.Point()
		if !ok || !box.Contains(p) {
			continue
		}
		if geospatial.Within(origin, p, radiusKm) {
			out = append(out, r)
		}
	}
	return out
}

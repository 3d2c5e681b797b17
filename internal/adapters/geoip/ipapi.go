// Package geoip approximates a position from the caller's public IP.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// Locator implements ports.IPLocator against an ipapi.co compatible endpoint.
type Locator struct {
	url        string
	httpClient *http.Client
}

// NewLocator creates a Locator. transport may be nil.
func NewLocator(url string, timeout time.Duration, transport http.RoundTripper) *Locator {
	return &Locator{
		url:        url,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
	}
}

type lookupResponse struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

// Locate performs a single lookup.
func (l *Locator) Locate(ctx context.Context) (domain.GeoPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("build ip lookup: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("ip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return domain.GeoPoint{}, fmt.Errorf("ip lookup: status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return domain.GeoPoint{}, fmt.Errorf("decode ip lookup: %w", err)
	}
	if body.Error {
		return domain.GeoPoint{}, fmt.Errorf("ip lookup: %s", body.Reason)
	}
	if body.Latitude == nil || body.Longitude == nil {
		return domain.GeoPoint{}, errors.New("ip lookup: response has no coordinates")
	}

	p := domain.GeoPoint{Lat: *body.Latitude, Lon: *body.Longitude}
	if !p.Valid() {
		return domain.GeoPoint{}, fmt.Errorf("ip lookup: invalid coordinates %v", p)
	}
	return p, nil
}

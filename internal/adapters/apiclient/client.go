// Package apiclient reads the proxy API from the terminal client.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// Client implements ports.TransitReader. Requests go through transport, which
// is normally the offline worker registration.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the proxy at baseURL.
func New(baseURL string, transport http.RoundTripper, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
	}
}

// URL builds the request URL for an endpoint key such as "subtes/estaciones".
func (c *Client) URL(endpointKey string, origin *domain.GeoPoint) string {
	u := c.baseURL + "/api/" + strings.Trim(endpointKey, "/")
	if origin == nil {
		return u
	}
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(origin.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(origin.Lon, 'f', -1, 64))
	return u + "?" + q.Encode()
}

// Transit fetches one endpoint. Failed envelopes are returned with an error
// wrapping domain.ErrNoCacheAvailable (offline, nothing cached) or
// domain.ErrUpstreamUnavailable (anything else).
func (c *Client) Transit(ctx context.Context, endpointKey string, origin *domain.GeoPoint) (*domain.Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpointKey, origin), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", endpointKey, err)
	}

	var env domain.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %s: status %d: %w", domain.ErrUpstreamUnavailable, endpointKey, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return &env, fmt.Errorf("%w: %s", domain.ErrNoCacheAvailable, env.Error)
	case resp.StatusCode != http.StatusOK || !env.Success:
		return &env, fmt.Errorf("%w: %s: status %d: %s", domain.ErrUpstreamUnavailable, endpointKey, resp.StatusCode, env.Error)
	}
	return &env, nil
}

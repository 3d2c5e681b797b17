// Package upstream talks to the Buenos Aires transit API.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/transporteba/internal/core/domain"
	"github.com/samirrijal/transporteba/internal/pkg/metrics"
	"github.com/samirrijal/transporteba/internal/pkg/telemetry"
)

// maxBody bounds how much of an upstream payload is read.
const maxBody = 32 << 20

// Client implements ports.UpstreamClient over HTTP. Every Get performs exactly
// one request; there are no retries.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClient creates a client for baseURL. Empty credentials are omitted from
// the query string.
func NewClient(baseURL, clientID, clientSecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Get fetches path and returns the raw body of a 2xx response. All failures
// wrap domain.ErrUpstreamUnavailable.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "upstream.Get")
	defer span.End()
	span.SetAttributes(attribute.String("upstream.path", path))

	start := time.Now()
	body, err := c.get(ctx, path)
	metrics.UpstreamDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.UpstreamRequests.WithLabelValues(path, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream failure")
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	metrics.UpstreamRequests.WithLabelValues(path, "ok").Inc()
	return body, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "transporteba-proxy/1.1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, credentials included
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, fmt.Errorf("GET %s: %w", path, uerr.Err)
		}
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return body, nil
}

func (c *Client) endpointURL(path string) string {
	u := c.baseURL + path
	if c.clientID == "" {
		return u
	}
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("client_secret", c.clientSecret)
	return u + "?" + q.Encode()
}

// Ping checks that the API host answers HTTP at all. Credentials are not
// sent and any status code counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

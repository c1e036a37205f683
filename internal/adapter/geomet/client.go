// Package geomet fetches point values from the MSC GeoMet OGC services.
// Two source implementations satisfy domain.ScalarSource: WCS pulls a small
// NetCDF coverage tile and reads the nearest cell, WMS asks GetFeatureInfo
// for the pixel under the point. Both share one HTTP client and circuit
// breaker.
package geomet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/hrdps-weather-service/internal/observability"
)

// Client is the shared HTTP plumbing for the GeoMet endpoints. The breaker
// trips after consecutive upstream failures so a struggling GeoMet sheds
// load instead of holding every request for the full timeout.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a GeoMet client. Pass a nil httpClient to use a default
// one; per-request deadlines come from the caller's context either way.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "geomet",
			MaxRequests: 5,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
		}),
		logger:  logger,
		metrics: metrics,
	}
}

// get performs one GET through the breaker and returns the response body.
// encoding labels the metrics, "wcs" or "wms".
func (c *Client) get(ctx context.Context, fullURL, encoding string) ([]byte, error) {
	start := time.Now()

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("geomet API error: status %d: %s", resp.StatusCode, truncate(string(body), 200))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		return body, nil
	})

	c.metrics.UpstreamRequestDuration.WithLabelValues(encoding).Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
			err = fmt.Errorf("circuit breaker open: %w", err)
		}
		c.metrics.UpstreamRequests.WithLabelValues(encoding, outcome).Inc()
		return nil, err
	}

	c.metrics.UpstreamRequests.WithLabelValues(encoding, "success").Inc()
	return result.([]byte), nil
}

// truncate keeps logged URLs and error bodies readable.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

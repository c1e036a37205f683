// Package probe keeps a live view of GeoMet availability by periodically
// fetching a canary layer. Readiness checks read the last probe result, so
// /readyz reflects upstream health rather than bare process liveness.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
	"github.com/couchcryptid/hrdps-weather-service/internal/observability"
)

// Canary target: the temperature primary layer at Ottawa, well inside the
// HRDPS continental grid.
const canaryLayer = "HRDPS.CONTINENTAL_TT"

var canaryPoint = domain.Coordinate{Lat: 45.42, Lon: -75.69}

// Probe periodically fetches one known-good layer and records whether the
// upstream answered.
type Probe struct {
	source    domain.ScalarSource
	scheduler *gocron.Scheduler
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu      sync.RWMutex
	probed  bool
	healthy bool
	lastErr error
}

// New creates a probe. interval controls how often the canary fetch runs,
// timeout bounds each individual fetch.
func New(source domain.ScalarSource, interval, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Probe {
	return &Probe{
		source:    source,
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start runs one probe immediately and schedules the rest at the configured
// interval.
func (p *Probe) Start() error {
	minutes := int(p.interval.Minutes())
	if minutes <= 0 {
		minutes = 5
	}

	if _, err := p.scheduler.Every(minutes).Minutes().Do(func() {
		p.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule upstream probe: %w", err)
	}

	p.scheduler.StartAsync()
	go p.RunOnce(context.Background())
	return nil
}

// Stop cancels future probes.
func (p *Probe) Stop() {
	if p.scheduler != nil {
		p.scheduler.Stop()
	}
}

// RunOnce performs a single canary fetch and records the result.
func (p *Probe) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	_, err := p.source.FetchScalar(ctx, canaryLayer, canaryPoint)
	p.metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	// A no-data reply still proves GeoMet answered and the payload decoded.
	if errors.Is(err, domain.ErrNoData) {
		err = nil
	}

	p.mu.Lock()
	p.probed = true
	p.healthy = err == nil
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.metrics.UpstreamUp.Set(0)
		p.logger.Warn("upstream probe failed",
			"layer", canaryLayer,
			"error", err,
		)
		return
	}

	p.metrics.UpstreamUp.Set(1)
	p.logger.Debug("upstream probe succeeded",
		"layer", canaryLayer,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// CheckReadiness reports nil when the most recent probe saw a healthy
// upstream.
func (p *Probe) CheckReadiness(_ context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.probed {
		return errors.New("no successful upstream probe yet")
	}
	if !p.healthy {
		return fmt.Errorf("upstream unhealthy: %w", p.lastErr)
	}
	return nil
}

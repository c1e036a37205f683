// Package resolver turns semantic variable names into point values by
// walking each variable's layer chain against an upstream scalar source.
// A variable resolves from its primary layer first, then its alternates in
// order; wind speed and direction additionally fall back to composition
// from the U/V component layers when no direct layer serves them.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
	"github.com/couchcryptid/hrdps-weather-service/internal/observability"
)

// Resolver resolves weather variables at a coordinate. Safe for concurrent
// use; every upstream call gets its own timeout so one stuck layer cannot
// hold a whole request.
type Resolver struct {
	source  domain.ScalarSource
	catalog *domain.Catalog
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// New creates a Resolver over the given source and catalog. timeout bounds
// each individual upstream call, not the whole resolution.
func New(source domain.ScalarSource, catalog *domain.Catalog, logger *slog.Logger, metrics *observability.Metrics, timeout time.Duration) *Resolver {
	return &Resolver{
		source:  source,
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
}

// Resolve resolves a single variable. A variable with more than one
// retrieval path that exhausts all of them reports not_available; a
// single-layer variable keeps the typed outcome of its only attempt.
func (r *Resolver) Resolve(ctx context.Context, name string, coord domain.Coordinate) domain.Outcome {
	if hasDerivation(name) {
		return r.resolveWind(ctx, coord, []string{name})[name]
	}

	v, ok := r.catalog.Lookup(name)
	if !ok {
		out := domain.NotAvailableOutcome("", fmt.Sprintf("unknown variable %q", name))
		r.countOutcome(name, out)
		return out
	}

	out := r.resolveDirect(ctx, v, coord)
	if !out.OK() && len(v.Alternates) > 0 {
		out = domain.NotAvailableOutcome(out.Layer, out.Detail)
	}
	r.countOutcome(name, out)
	return out
}

// ResolveAll resolves the named variables concurrently. Wind speed and
// direction are resolved together so that a single pair of component
// fetches can serve both derivations.
func (r *Resolver) ResolveAll(ctx context.Context, coord domain.Coordinate, names []string) map[string]domain.Outcome {
	outcomes := make(map[string]domain.Outcome, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup

	var windNames []string
	for _, name := range names {
		if hasDerivation(name) {
			windNames = append(windNames, name)
			continue
		}
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			out := r.Resolve(ctx, name, coord)
			mu.Lock()
			outcomes[name] = out
			mu.Unlock()
		}(name)
	}

	if len(windNames) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wind := r.resolveWind(ctx, coord, windNames)
			mu.Lock()
			for name, out := range wind {
				outcomes[name] = out
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return outcomes
}

// resolveWind resolves wind_speed and/or wind_direction. Direct layer
// chains run first, concurrently; if either variable is still unresolved,
// one shared pair of component fetches feeds both derivations.
func (r *Resolver) resolveWind(ctx context.Context, coord domain.Coordinate, names []string) map[string]domain.Outcome {
	outcomes := make(map[string]domain.Outcome, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		v, ok := r.catalog.Lookup(name)
		if !ok {
			mu.Lock()
			outcomes[name] = domain.NotAvailableOutcome("", fmt.Sprintf("unknown variable %q", name))
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(name string, v domain.Variable) {
			defer wg.Done()
			out := r.resolveDirect(ctx, v, coord)
			mu.Lock()
			outcomes[name] = out
			mu.Unlock()
		}(name, v)
	}
	wg.Wait()

	var unresolved []string
	for _, name := range names {
		if out, ok := outcomes[name]; ok && !out.OK() {
			unresolved = append(unresolved, name)
		}
	}

	if len(unresolved) > 0 {
		uOut, vOut := r.fetchComponents(ctx, coord)
		for _, name := range unresolved {
			direct := outcomes[name]
			derived, ok := composeWind(name, uOut, vOut)
			if !ok {
				outcomes[name] = domain.NotAvailableOutcome(direct.Layer, direct.Detail)
				continue
			}
			r.metrics.ResolveFallbacks.WithLabelValues(name, "derived").Inc()
			r.logger.Info("wind derived from components",
				"variable", name,
				"layers", derived.Layer,
			)
			outcomes[name] = derived
		}
	}

	for name, out := range outcomes {
		r.countOutcome(name, out)
	}
	return outcomes
}

// resolveDirect walks the primary layer and its alternates in order,
// returning the first success or the outcome of the last attempt.
func (r *Resolver) resolveDirect(ctx context.Context, v domain.Variable, coord domain.Coordinate) domain.Outcome {
	var last domain.Outcome
	for i, layerID := range append([]string{v.Primary}, v.Alternates...) {
		out := r.fetchLayer(ctx, layerID, v.Units, coord)
		if out.OK() {
			if i > 0 {
				r.metrics.ResolveFallbacks.WithLabelValues(v.Name, "alternate").Inc()
				r.logger.Info("alternate layer served variable",
					"variable", v.Name,
					"layer", layerID,
				)
			}
			return out
		}
		last = out
	}
	return last
}

// fetchComponents resolves the U and V wind component layers concurrently.
func (r *Resolver) fetchComponents(ctx context.Context, coord domain.Coordinate) (domain.Outcome, domain.Outcome) {
	var uOut, vOut domain.Outcome
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		uOut = r.resolveComponent(ctx, domain.VarWindU, coord)
	}()
	go func() {
		defer wg.Done()
		vOut = r.resolveComponent(ctx, domain.VarWindV, coord)
	}()
	wg.Wait()
	return uOut, vOut
}

func (r *Resolver) resolveComponent(ctx context.Context, name string, coord domain.Coordinate) domain.Outcome {
	v, ok := r.catalog.Lookup(name)
	if !ok {
		return domain.NotAvailableOutcome("", fmt.Sprintf("unknown variable %q", name))
	}
	return r.resolveDirect(ctx, v, coord)
}

// fetchLayer makes one upstream call under the per-call timeout and maps
// the result to a typed outcome.
func (r *Resolver) fetchLayer(ctx context.Context, layerID, fallbackUnits string, coord domain.Coordinate) domain.Outcome {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	point, err := r.source.FetchScalar(callCtx, layerID, coord)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoData):
			r.logger.Warn("layer has no data at point",
				"layer", layerID,
				"coordinate", coord.String(),
			)
			return domain.NotAvailableOutcome(layerID, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			r.logger.Warn("layer fetch timed out",
				"layer", layerID,
				"timeout", r.timeout,
			)
			return domain.TimeoutOutcome(layerID)
		default:
			r.logger.Warn("layer fetch failed",
				"layer", layerID,
				"error", err,
			)
			return domain.UpstreamErrorOutcome(layerID, err.Error())
		}
	}

	units := point.Units
	if units == "" || units == "unknown" {
		units = fallbackUnits
	}
	return domain.SuccessOutcome(point.Value, units, layerID)
}

func (r *Resolver) countOutcome(name string, out domain.Outcome) {
	r.metrics.ResolveOutcomes.WithLabelValues(name, string(out.Status)).Inc()
}

// composeWind builds a derived outcome for wind_speed or wind_direction
// from two resolved component outcomes.
func composeWind(name string, uOut, vOut domain.Outcome) (domain.Outcome, bool) {
	if !uOut.OK() || !vOut.OK() {
		return domain.Outcome{}, false
	}

	speed, direction := domain.WindFromComponents(uOut.Value, vOut.Value)
	layer := uOut.Layer + "+" + vOut.Layer

	var out domain.Outcome
	switch name {
	case domain.VarWindSpeed:
		out = domain.SuccessOutcome(speed, "m/s", layer)
	case domain.VarWindDirection:
		out = domain.SuccessOutcome(direction, "degrees", layer)
	default:
		return domain.Outcome{}, false
	}
	out.Derived = true
	return out, true
}

func hasDerivation(name string) bool {
	return name == domain.VarWindSpeed || name == domain.VarWindDirection
}

// Command assess runs a single BVLOS go/no-go assessment from the command
// line. It resolves the assessment variables for one coordinate against
// GeoMet, classifies them against the flight thresholds, and prints the
// assessment JSON to stdout.
//
// Usage:
//
//	go run ./cmd/assess -lat 45.42 -lon -75.69
//	go run ./cmd/assess -lat 45.42 -lon -75.69 -max-wind-kts 15 -encoding wms
//
// Exit codes: 0 GREEN, 1 YELLOW, 2 RED, 3 usage or configuration error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/hrdps-weather-service/internal/adapter/geomet"
	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
	"github.com/couchcryptid/hrdps-weather-service/internal/observability"
	"github.com/couchcryptid/hrdps-weather-service/internal/resolver"
)

type options struct {
	lat, lon   float64
	thresholds domain.Thresholds
	baseURL    string
	encoding   string
	timeout    time.Duration
	verbose    bool
}

func main() {
	defaults := domain.DefaultThresholds()

	var opts options
	flag.Float64Var(&opts.lat, "lat", math.NaN(), "latitude in decimal degrees (required)")
	flag.Float64Var(&opts.lon, "lon", math.NaN(), "longitude in decimal degrees (required)")
	flag.Float64Var(&opts.thresholds.MaxWindKts, "max-wind-kts", defaults.MaxWindKts, "maximum sustained wind, knots")
	flag.Float64Var(&opts.thresholds.MaxGustKts, "max-gust-kts", defaults.MaxGustKts, "maximum gust, knots")
	flag.Float64Var(&opts.thresholds.MaxPrecipMM, "max-precip-mm", defaults.MaxPrecipMM, "maximum precipitation, mm")
	flag.Float64Var(&opts.thresholds.MinTempC, "min-temp-c", defaults.MinTempC, "minimum temperature, Celsius")
	flag.Float64Var(&opts.thresholds.MaxTempC, "max-temp-c", defaults.MaxTempC, "maximum temperature, Celsius")
	flag.StringVar(&opts.baseURL, "base-url", "https://geo.weather.gc.ca/geomet", "GeoMet endpoint")
	flag.StringVar(&opts.encoding, "encoding", "wcs", `upstream encoding, "wcs" or "wms"`)
	flag.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-layer fetch timeout")
	flag.BoolVar(&opts.verbose, "v", false, "log resolution progress to stderr")
	flag.Parse()

	os.Exit(run(opts))
}

func run(opts options) int {
	if math.IsNaN(opts.lat) || math.IsNaN(opts.lon) {
		fmt.Fprintln(os.Stderr, "both -lat and -lon are required")
		flag.Usage()
		return 3
	}
	coord, err := domain.NewCoordinate(opts.lat, opts.lon)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid coordinate: %v\n", err)
		return 3
	}
	if opts.encoding != "wcs" && opts.encoding != "wms" {
		fmt.Fprintln(os.Stderr, `-encoding must be "wcs" or "wms"`)
		return 3
	}
	if err := checkThresholds(opts.thresholds); err != nil {
		fmt.Fprintf(os.Stderr, "invalid thresholds: %v\n", err)
		return 3
	}
	if opts.timeout <= 0 {
		fmt.Fprintln(os.Stderr, "-timeout must be positive")
		return 3
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	metrics := observability.NewMetrics()

	catalog := domain.DefaultCatalog()
	client := geomet.NewClient(opts.baseURL, nil, logger, metrics)

	var source domain.ScalarSource
	if opts.encoding == "wms" {
		source = geomet.NewWMSSource(client)
	} else {
		source = geomet.NewWCSSource(client)
	}
	res := resolver.New(source, catalog, logger, metrics, opts.timeout)

	outcomes := res.ResolveAll(context.Background(), coord, domain.AssessmentVariables())
	assessment := domain.NewAssessment(coord, opts.thresholds, domain.Classify(outcomes, opts.thresholds))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(assessment); err != nil {
		fmt.Fprintf(os.Stderr, "encode assessment: %v\n", err)
		return 3
	}

	switch assessment.Status {
	case domain.StatusGreen:
		return 0
	case domain.StatusYellow:
		return 1
	default:
		return 2
	}
}

func checkThresholds(th domain.Thresholds) error {
	if th.MaxWindKts <= 0 {
		return fmt.Errorf("-max-wind-kts must be positive")
	}
	if th.MaxGustKts <= 0 {
		return fmt.Errorf("-max-gust-kts must be positive")
	}
	if th.MaxPrecipMM < 0 {
		return fmt.Errorf("-max-precip-mm must not be negative")
	}
	if th.MaxTempC <= th.MinTempC {
		return fmt.Errorf("-max-temp-c must be greater than -min-temp-c")
	}
	return nil
}

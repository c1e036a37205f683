package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
	"github.com/couchcryptid/hrdps-weather-service/internal/observability"
)

// publishTimeout bounds the fire-and-forget audit publish so a slow broker
// never leaks goroutines for long.
const publishTimeout = 5 * time.Second

// VariableResolver resolves weather variables at a coordinate.
type VariableResolver interface {
	ResolveAll(ctx context.Context, coord domain.Coordinate, names []string) map[string]domain.Outcome
}

// AssessmentPublisher records completed assessments on the audit trail.
type AssessmentPublisher interface {
	PublishAssessment(ctx context.Context, a domain.Assessment) error
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	Addr           string
	Resolver       VariableResolver
	Catalog        *domain.Catalog
	Publisher      AssessmentPublisher // nil disables audit publishing
	Ready          ReadinessChecker    // nil reports always ready
	RequestTimeout time.Duration
	Logger         *slog.Logger
	Metrics        *observability.Metrics
}

// Server exposes the weather, assessment, and operational HTTP endpoints.
type Server struct {
	httpServer     *http.Server
	resolver       VariableResolver
	catalog        *domain.Catalog
	publisher      AssessmentPublisher
	logger         *slog.Logger
	metrics        *observability.Metrics
	validate       *validator.Validate
	requestTimeout time.Duration
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()

	s := &Server{
		resolver:       cfg.Resolver,
		catalog:        cfg.Catalog,
		publisher:      cfg.Publisher,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		validate:       validator.New(),
		requestTimeout: cfg.RequestTimeout,
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      withCORS(withRequestID(withAccessLog(cfg.Logger, mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /weather", s.handleWeather)
	mux.HandleFunc("GET /bvlos-assessment", s.handleAssessment)
	mux.HandleFunc("GET /layers", s.handleLayers)
	mux.HandleFunc("GET /readyz", handleReady(cfg.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "Environment Canada HRDPS Weather API",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	coord, ok := s.parseCoordinate(w, r, "/weather?lat=46.3&lon=-79.5")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	s.logger.Info("building weather report", "lat", coord.Lat, "lon", coord.Lon)
	outcomes := s.resolver.ResolveAll(ctx, coord, domain.ReportVariables())
	writeJSON(w, http.StatusOK, domain.BuildWeatherReport(coord, outcomes))
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	coord, ok := s.parseCoordinate(w, r, "/bvlos-assessment?lat=46.3&lon=-79.5")
	if !ok {
		return
	}

	th, err := s.parseThresholds(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "Invalid parameters",
			"detail": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	s.logger.Info("running flight assessment", "lat", coord.Lat, "lon", coord.Lon)
	outcomes := s.resolver.ResolveAll(ctx, coord, domain.AssessmentVariables())
	assessment := domain.NewAssessment(coord, th, domain.Classify(outcomes, th))

	s.metrics.AssessmentsTotal.WithLabelValues(string(assessment.Status)).Inc()
	s.publishAssessment(assessment)

	writeJSON(w, http.StatusOK, assessment)
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"primary_layers":   s.catalog.Primaries(),
		"alternate_layers": s.catalog.Alternates(),
		"data_source":      domain.DataSourceName,
		"note":             "Layer names may vary; service will try alternates automatically",
	})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// parseCoordinate reads the lat/lon query parameters, writing the 400
// response itself when they are missing, malformed, or outside coverage.
func (s *Server) parseCoordinate(w http.ResponseWriter, r *http.Request, usage string) (domain.Coordinate, bool) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid or missing lat/lon parameters",
			"usage": usage,
		})
		return domain.Coordinate{}, false
	}

	coord, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":    "Coordinates outside HRDPS coverage area",
			"coverage": "Approximately 40°N to 85°N, 145°W to 50°W",
		})
		return domain.Coordinate{}, false
	}
	return coord, true
}

// assessmentThresholds validates the tunable limits: a zero wind or gust
// limit would make every flight RED, and an inverted temperature envelope
// rejects everything.
type assessmentThresholds struct {
	MaxWindKts  float64 `validate:"gt=0"`
	MaxGustKts  float64 `validate:"gt=0"`
	MaxPrecipMM float64 `validate:"gte=0"`
	MinTempC    float64
	MaxTempC    float64 `validate:"gtfield=MinTempC"`
}

// parseThresholds reads the optional threshold overrides, starting from the
// defaults.
func (s *Server) parseThresholds(r *http.Request) (domain.Thresholds, error) {
	th := domain.DefaultThresholds()
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"max_wind_kts", &th.MaxWindKts},
		{"max_gust_kts", &th.MaxGustKts},
		{"max_precip_mm", &th.MaxPrecipMM},
		{"min_temp_c", &th.MinTempC},
		{"max_temp_c", &th.MaxTempC},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return th, fmt.Errorf("invalid %s", p.name)
		}
		*p.dst = v
	}

	if err := s.validate.Struct(assessmentThresholds{
		MaxWindKts:  th.MaxWindKts,
		MaxGustKts:  th.MaxGustKts,
		MaxPrecipMM: th.MaxPrecipMM,
		MinTempC:    th.MinTempC,
		MaxTempC:    th.MaxTempC,
	}); err != nil {
		return th, err
	}
	return th, nil
}

// publishAssessment hands the assessment to the audit trail without
// blocking the response.
func (s *Server) publishAssessment(a domain.Assessment) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.PublishAssessment(ctx, a); err != nil {
			s.logger.Error("assessment publish failed", "error", err)
			s.metrics.AssessmentPublishErrors.Inc()
			return
		}
		s.metrics.AssessmentsPublished.Inc()
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}

// withRequestID tags every request and response with an X-Request-ID,
// minting one when the caller did not send one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// withAccessLog logs one line per request with status and duration.
func withAccessLog(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", r.Header.Get("X-Request-ID"),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withCORS lets browser-based planning tools call the API directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

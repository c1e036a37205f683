package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/hrdps-weather-service/internal/adapter/http"
	"github.com/couchcryptid/hrdps-weather-service/internal/domain"
	"github.com/couchcryptid/hrdps-weather-service/internal/observability"
)

type stubResolver struct {
	mu       sync.Mutex
	outcomes map[string]domain.Outcome
	names    []string
	coord    domain.Coordinate
}

func (s *stubResolver) ResolveAll(_ context.Context, coord domain.Coordinate, names []string) map[string]domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coord = coord
	s.names = append([]string(nil), names...)

	out := make(map[string]domain.Outcome, len(names))
	for _, name := range names {
		if o, ok := s.outcomes[name]; ok {
			out[name] = o
		} else {
			out[name] = domain.NotAvailableOutcome("", "not stubbed")
		}
	}
	return out
}

func (s *stubResolver) requestedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names
}

type spyPublisher struct {
	mu        sync.Mutex
	published []domain.Assessment
	err       error
}

func (p *spyPublisher) PublishAssessment(_ context.Context, a domain.Assessment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, a)
	return nil
}

func (p *spyPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func (p *spyPublisher) last() domain.Assessment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published[len(p.published)-1]
}

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(resolver *stubResolver, publisher httpadapter.AssessmentPublisher, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:           ":0",
		Resolver:       resolver,
		Catalog:        domain.DefaultCatalog(),
		Publisher:      publisher,
		Ready:          &mockReadiness{err: readyErr},
		RequestTimeout: 5 * time.Second,
		Logger:         slog.Default(),
		Metrics:        observability.NewMetricsForTesting(),
	})
}

// reportOutcomes resolves every report variable with plausible values.
func reportOutcomes() map[string]domain.Outcome {
	return map[string]domain.Outcome{
		domain.VarTemperature:      domain.SuccessOutcome(-5.34, "°C", "HRDPS.CONTINENTAL_TT"),
		domain.VarWindSpeed:        domain.SuccessOutcome(10.0, "m/s", "HRDPS.CONTINENTAL_WSPD"),
		domain.VarWindDirection:    domain.SuccessOutcome(237.4, "degrees", "HRDPS.CONTINENTAL_WD"),
		domain.VarWindGust:         domain.SuccessOutcome(14.97, "m/s", "HRDPS.CONTINENTAL_GUST"),
		domain.VarPrecipAccum:      domain.SuccessOutcome(0.456, "kg/m²", "HRDPS.CONTINENTAL_PR"),
		domain.VarCloudCover:       domain.SuccessOutcome(75.6, "%", "HRDPS.CONTINENTAL_TCDC"),
		domain.VarSpecificHumidity: domain.SuccessOutcome(0.0034567, "kg/kg", "HRDPS.CONTINENTAL_HU"),
	}
}

// assessmentOutcomes resolves the assessment variables inside all limits.
func assessmentOutcomes() map[string]domain.Outcome {
	return map[string]domain.Outcome{
		domain.VarWindSpeed:   domain.SuccessOutcome(10.0, "m/s", "HRDPS.CONTINENTAL_WSPD"),
		domain.VarWindGust:    domain.SuccessOutcome(12.0, "m/s", "HRDPS.CONTINENTAL_GUST"),
		domain.VarTemperature: domain.SuccessOutcome(-5.0, "°C", "HRDPS.CONTINENTAL_TT"),
		domain.VarPrecipAccum: domain.SuccessOutcome(0.5, "kg/m²", "HRDPS.CONTINENTAL_PR"),
	}
}

func doGet(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthReturns200(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)
	rec := doGet(srv, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "Environment Canada HRDPS Weather API", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)
	rec := doGet(srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, fmt.Errorf("no successful upstream probe yet"))
	rec := doGet(srv, "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unavailable", body["status"])
	assert.Equal(t, "no successful upstream probe yet", body["error"])
}

func TestReadyzWithoutCheckerReportsReady(t *testing.T) {
	srv := httpadapter.NewServer(httpadapter.ServerConfig{
		Addr:           ":0",
		Resolver:       &stubResolver{},
		Catalog:        domain.DefaultCatalog(),
		RequestTimeout: 5 * time.Second,
		Logger:         slog.Default(),
		Metrics:        observability.NewMetricsForTesting(),
	})
	rec := doGet(srv, "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)
	rec := doGet(srv, "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestWeather_FullReport(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	resolver := &stubResolver{outcomes: reportOutcomes()}
	srv := newTestServer(resolver, nil, nil)
	rec := doGet(srv, "/weather?lat=46.3&lon=-79.5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ReportVariables(), resolver.requestedNames())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "Environment Canada HRDPS", body["data_source"])
	assert.Equal(t, 2.5, body["resolution_km"])
	assert.Equal(t, float64(48), body["forecast_hours"])
	assert.Equal(t, "2026-01-15T10:30:00Z", body["timestamp"])

	loc, ok := body["location"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 46.3, loc["lat"])
	assert.Equal(t, -79.5, loc["lon"])

	assert.Equal(t, -5.3, body["temperature_c"])
	assert.Equal(t, 10.0, body["wind_speed_mps"])
	assert.Equal(t, 19.4, body["wind_speed_kts"])
	assert.Equal(t, float64(237), body["wind_direction_deg"])
	assert.Equal(t, 15.0, body["wind_gust_mps"])
	assert.Equal(t, 29.1, body["wind_gust_kts"])
	assert.Equal(t, 0.46, body["precipitation_mm"])
	assert.Equal(t, float64(76), body["cloud_cover_pct"])
	assert.InDelta(t, 0.003457, body["specific_humidity_kgkg"].(float64), 1e-9)

	assert.NotContains(t, body, "unavailable_data")
	assert.NotContains(t, body, "note")
}

func TestWeather_PartialReport(t *testing.T) {
	outcomes := reportOutcomes()
	delete(outcomes, domain.VarTemperature)
	delete(outcomes, domain.VarSpecificHumidity)

	resolver := &stubResolver{outcomes: outcomes}
	srv := newTestServer(resolver, nil, nil)
	rec := doGet(srv, "/weather?lat=46.3&lon=-79.5")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, []any{"temperature", "humidity"}, body["unavailable_data"])
	assert.Equal(t, "Some data layers unavailable; layer names may need adjustment", body["note"])
	assert.NotContains(t, body, "temperature_c")
	assert.Equal(t, 10.0, body["wind_speed_mps"])
}

func TestWeather_InvalidParams(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)

	for _, target := range []string{
		"/weather",
		"/weather?lat=46.3",
		"/weather?lon=-79.5",
		"/weather?lat=abc&lon=-79.5",
	} {
		t.Run(target, func(t *testing.T) {
			rec := doGet(srv, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Invalid or missing lat/lon parameters", body["error"])
			assert.Equal(t, "/weather?lat=46.3&lon=-79.5", body["usage"])
		})
	}
}

func TestWeather_OutOfCoverage(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)

	for _, target := range []string{
		"/weather?lat=30.0&lon=-79.5",
		"/weather?lat=46.3&lon=-20.0",
		"/weather?lat=86.0&lon=-79.5",
		"/weather?lat=46.3&lon=-146.0",
	} {
		t.Run(target, func(t *testing.T) {
			rec := doGet(srv, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "Coordinates outside HRDPS coverage area", body["error"])
			assert.Equal(t, "Approximately 40°N to 85°N, 145°W to 50°W", body["coverage"])
		})
	}
}

func TestAssessment_Green(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	resolver := &stubResolver{outcomes: assessmentOutcomes()}
	publisher := &spyPublisher{}
	srv := newTestServer(resolver, publisher, nil)
	rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.AssessmentVariables(), resolver.requestedNames())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "GREEN", body["status"])
	assert.Equal(t, "GO: Conditions within limits", body["recommendation"])
	assert.Equal(t, "Environment Canada HRDPS (2.5km resolution)", body["data_source"])
	assert.Equal(t, "2026-01-15T10:30:00Z", body["timestamp"])
	assert.Equal(t, []any{}, body["issues"])

	thresholds, ok := body["thresholds"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(20), thresholds["max_wind_kts"])
	assert.Equal(t, float64(25), thresholds["max_gust_kts"])
	assert.Equal(t, float64(5), thresholds["max_precip_mm"])
	assert.Equal(t, float64(-25), thresholds["min_temp_c"])
	assert.Equal(t, float64(40), thresholds["max_temp_c"])

	conditions, ok := body["conditions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 19.4, conditions["wind_speed_kts"])
	assert.Equal(t, 23.3, conditions["wind_gust_kts"])
	assert.Equal(t, -5.0, conditions["temperature_c"])
	assert.Equal(t, 0.5, conditions["precipitation_mm"])

	require.Eventually(t, func() bool { return publisher.count() == 1 },
		time.Second, 10*time.Millisecond, "assessment should reach the audit trail")
	published := publisher.last()
	assert.Equal(t, domain.StatusGreen, published.Status)
	assert.Equal(t, 45.0, published.Location.Lat)
}

func TestAssessment_CustomThresholdsTriggerRed(t *testing.T) {
	resolver := &stubResolver{outcomes: assessmentOutcomes()}
	srv := newTestServer(resolver, nil, nil)
	rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0&max_wind_kts=15")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "RED", body["status"])
	assert.Equal(t, "NO-GO: Conditions exceed safe limits", body["recommendation"])

	issues, ok := body["issues"].([]any)
	require.True(t, ok)
	require.Len(t, issues, 1)
	issue := issues[0].(map[string]any)
	assert.Equal(t, "exceeds", issue["severity"])
	assert.Equal(t, "Wind 19.4 kts exceeds 15 kts limit", issue["text"])

	thresholds := body["thresholds"].(map[string]any)
	assert.Equal(t, float64(15), thresholds["max_wind_kts"])
}

func TestAssessment_UnavailableWindIsYellow(t *testing.T) {
	outcomes := assessmentOutcomes()
	delete(outcomes, domain.VarWindSpeed)
	delete(outcomes, domain.VarWindGust)

	resolver := &stubResolver{outcomes: outcomes}
	srv := newTestServer(resolver, nil, nil)
	rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "YELLOW", body["status"])
	assert.Equal(t, "CAUTION: Some data unavailable", body["recommendation"])

	// Gust degrades silently to an explicit null.
	assert.Contains(t, rec.Body.String(), `"wind_gust_kts":null`)
}

func TestAssessment_InvalidThresholds(t *testing.T) {
	resolver := &stubResolver{outcomes: assessmentOutcomes()}
	srv := newTestServer(resolver, nil, nil)

	t.Run("malformed number", func(t *testing.T) {
		rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0&max_wind_kts=abc")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Invalid parameters", body["error"])
		assert.Equal(t, "invalid max_wind_kts", body["detail"])
	})

	t.Run("zero wind limit", func(t *testing.T) {
		rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0&max_wind_kts=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inverted temperature envelope", func(t *testing.T) {
		rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0&max_temp_c=-30")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Invalid parameters", body["error"])
		assert.Contains(t, body["detail"], "MaxTempC")
	})
}

func TestAssessment_InvalidCoords(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)

	t.Run("missing params", func(t *testing.T) {
		rec := doGet(srv, "/bvlos-assessment")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Invalid or missing lat/lon parameters", body["error"])
		assert.Equal(t, "/bvlos-assessment?lat=46.3&lon=-79.5", body["usage"])
	})

	t.Run("out of coverage", func(t *testing.T) {
		rec := doGet(srv, "/bvlos-assessment?lat=10.0&lon=-75.0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Coordinates outside HRDPS coverage area", body["error"])
	})
}

func TestAssessment_NoPublisherConfigured(t *testing.T) {
	resolver := &stubResolver{outcomes: assessmentOutcomes()}
	srv := newTestServer(resolver, nil, nil)
	rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAssessment_PublisherFailureDoesNotAffectResponse(t *testing.T) {
	resolver := &stubResolver{outcomes: assessmentOutcomes()}
	publisher := &spyPublisher{err: fmt.Errorf("broker unreachable")}
	srv := newTestServer(resolver, publisher, nil)
	rec := doGet(srv, "/bvlos-assessment?lat=45.0&lon=-75.0")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "GREEN", body["status"])
}

func TestLayers(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)
	rec := doGet(srv, "/layers")

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	primaries, ok := body["primary_layers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "HRDPS.CONTINENTAL_TT", primaries["temperature"])
	assert.Equal(t, "HRDPS.CONTINENTAL_WSPD", primaries["wind_speed"])

	alternates, ok := body["alternate_layers"].(map[string]any)
	require.True(t, ok)
	gustAlts, ok := alternates["wind_gust"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"HRDPS.CONTINENTAL_WGST", "HRDPS-WEonG_2.5km_WindGust"}, gustAlts)

	assert.Equal(t, "Environment Canada HRDPS", body["data_source"])
	assert.Equal(t, "Layer names may vary; service will try alternates automatically", body["note"])
}

func TestRequestIDAndCORSHeaders(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)

	t.Run("request id minted", func(t *testing.T) {
		rec := doGet(srv, "/health")
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("request id echoed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "req-123")
		srv.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("preflight", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/weather", nil)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubResolver{}, nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/weather", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

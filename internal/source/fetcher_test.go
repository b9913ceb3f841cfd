package source

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquaguardian/aquaboard/internal/degrade"
	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/fallback"
	"github.com/aquaguardian/aquaboard/internal/metric"
)

var fixedNow = time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)

func testLog() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	return log
}

func testCatalog() *fallback.Catalog {
	return fallback.New(
		fallback.WithNow(func() time.Time { return fixedNow }),
		fallback.WithRandSource(func() rand.Source { return rand.NewPCG(7, 7) }),
	)
}

func newTestServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newRegistry(
	t *testing.T,
	baseURL string,
	health *export.HealthMetrics,
) *Registry {
	t.Helper()

	client := NewClient(testLog(), Config{
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	}, health)

	return NewRegistry(
		testLog(), client, testCatalog(), health,
		WithClock(func() time.Time { return fixedNow }),
	)
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestFetchStats_Live(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard/stats", jsonHandler(
		`{"total_reports":1,"active_users":5,"resolved_reports":0,"avg_response_time":"1h"}`,
	))

	reg := newRegistry(t, newTestServer(t, mux).URL, nil)

	res := reg.Stats().Fetch(context.Background(), metric.DefaultParams())
	assert.Equal(t, metric.OriginLive, res.Origin)
	assert.Equal(t, metric.KindStats, res.Kind)
	assert.Equal(t, fixedNow, res.FetchedAt)
	assert.Equal(t, metric.Stats{
		TotalReports:    1,
		ActiveUsers:     5,
		AvgResponseTime: "1h",
	}, res.Value)
}

func TestFetchStats_ZeroCounterFallsBack(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard/stats", jsonHandler(
		`{"total_reports":0,"active_users":5,"resolved_reports":0,"avg_response_time":"1h"}`,
	))

	health := export.NewHealthMetrics(testLog(), export.HealthConfig{})
	reg := newRegistry(t, newTestServer(t, mux).URL, health)

	res := reg.Stats().Fetch(context.Background(), metric.DefaultParams())
	assert.Equal(t, metric.OriginFallback, res.Origin)
	assert.Equal(t, 125, res.Value.TotalReports)

	assert.InDelta(t, 1, testutil.ToFloat64(
		health.SourceRejections.WithLabelValues("stats", string(degrade.ReasonZeroSentinel)),
	), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		health.SourceResults.WithLabelValues("stats", "fallback"),
	), 0)
}

func TestFetchTimeline_SendsDays(t *testing.T) {
	var gotDays string

	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard/reports/timeline", func(w http.ResponseWriter, r *http.Request) {
		gotDays = r.URL.Query().Get("days")
		assert.Equal(t, "aquaboard/dev", r.Header.Get("User-Agent"))
		jsonHandler(`[{"date":"2024-11-19","count":0},{"date":"2024-11-20","count":4}]`)(w, r)
	})

	reg := newRegistry(t, newTestServer(t, mux).URL, nil)

	res := reg.Timeline().Fetch(context.Background(), metric.Params{Days: 7})
	assert.Equal(t, "7", gotDays)
	assert.Equal(t, metric.OriginLive, res.Origin)
	assert.Equal(t, []metric.TimelinePoint{
		{Date: "2024-11-19", Count: 0},
		{Date: "2024-11-20", Count: 4},
	}, res.Value)
}

func TestRegistry_TypedFetchersLive(t *testing.T) {
	var gotLimit string

	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard/reports/geographic-heatmap", jsonHandler(
		`[{"location":"Marina Beach","lat":13.05,"lng":80.28,"reports":9,"severity":7}]`,
	))
	mux.HandleFunc("/dashboard/reports/severity-distribution", jsonHandler(
		`[{"name":"High","value":4,"fill":"#f97316"}]`,
	))
	mux.HandleFunc("/dashboard/water-quality", jsonHandler(
		`{"pH":7.4,"turbidity":2.1,"oxygen":6.8,"salinity":34.2,"temperature":26.5}`,
	))
	mux.HandleFunc("/dashboard/water-quality-history", func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		jsonHandler(`[{"time":"09:00","pH":7.2,"oxygen":7,"turbidity":1.5,"temperature":26,"salinity":34.5}]`)(w, r)
	})
	mux.HandleFunc("/dashboard/success-stories", jsonHandler(
		`[{"id":1,"title":"Adyar Creek","location":"Chennai","results":["Clearer water"]}]`,
	))
	mux.HandleFunc("/dashboard/marine-impact/metrics", jsonHandler(
		`{"ecosystem_health":{"water_quality":70,"biodiversity":60,"pollution_level":40,"conservation_effort":80}}`,
	))

	reg := newRegistry(t, newTestServer(t, mux).URL, nil)
	ctx := context.Background()
	params := metric.Params{Days: 30, Months: 6, Limit: 5}

	heatmap := reg.GeoHeatmap().Fetch(ctx, params)
	assert.Equal(t, metric.OriginLive, heatmap.Origin)
	assert.Equal(t, []metric.HeatmapPoint{
		{Location: "Marina Beach", Lat: 13.05, Lng: 80.28, Reports: 9, Severity: 7},
	}, heatmap.Value)

	severity := reg.Severity().Fetch(ctx, params)
	assert.Equal(t, metric.OriginLive, severity.Origin)
	assert.Equal(t, []metric.SeverityBucket{{Name: "High", Value: 4, Fill: "#f97316"}}, severity.Value)

	water := reg.WaterQuality().Fetch(ctx, params)
	assert.Equal(t, metric.OriginLive, water.Origin)
	assert.InDelta(t, 7.4, water.Value.PH, 0.001)

	history := reg.WaterQualityHistory().Fetch(ctx, params)
	assert.Equal(t, "5", gotLimit)
	assert.Equal(t, metric.OriginLive, history.Origin)
	require.Len(t, history.Value, 1)
	assert.Equal(t, "09:00", history.Value[0].Time)

	stories := reg.SuccessStories().Fetch(ctx, params)
	assert.Equal(t, metric.OriginLive, stories.Origin)
	require.Len(t, stories.Value, 1)
	assert.Equal(t, "Adyar Creek", stories.Value[0].Title)

	marine := reg.MarineImpact().Fetch(ctx, params)
	assert.Equal(t, metric.OriginLive, marine.Origin)
	assert.Equal(t, 60, marine.Value.EcosystemHealth.Biodiversity)
}

func TestFetcher_FallbackNeedsNoBackend(t *testing.T) {
	reg := newRegistry(t, "http://127.0.0.1:1", nil)
	catalog := testCatalog()

	assert.Equal(t, catalog.GeoHeatmap(), reg.GeoHeatmap().Fallback(metric.Params{}))
	assert.Equal(t, catalog.SeverityDistribution(), reg.Severity().Fallback(metric.Params{}))
	assert.Equal(t, catalog.WaterQuality(), reg.WaterQuality().Fallback(metric.Params{}))
	assert.Equal(t, catalog.SuccessStories(), reg.SuccessStories().Fallback(metric.Params{}))
	assert.Equal(t, catalog.MarineImpact(), reg.MarineImpact().Fallback(metric.Params{}))

	// Unset params take their defaults.
	history := reg.WaterQualityHistory().Fallback(metric.Params{})
	assert.Len(t, history, metric.DefaultParams().Limit)
	assert.Equal(t, catalog.WaterQualityHistory(metric.DefaultParams().Limit), history)
}

func TestFetch_DegradedResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "empty array", handler: jsonHandler(`[]`)},
		{name: "null", handler: jsonHandler(`null`)},
		{name: "empty object", handler: jsonHandler(`{}`)},
		{name: "malformed json", handler: jsonHandler(`not json`)},
		{name: "wrong shape", handler: jsonHandler(`{"name":"Oil Spill","value":3}`)},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("internal error"))
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/dashboard/reports/by-type", tt.handler)

			reg := newRegistry(t, newTestServer(t, mux).URL, nil)

			res := reg.ByType().Fetch(context.Background(), metric.DefaultParams())
			assert.Equal(t, metric.OriginFallback, res.Origin)
			assert.Equal(t, testCatalog().ByType(), res.Value)
		})
	}
}

func TestFetch_UnreachableMatchesFallbackForEveryKind(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	baseURL := server.URL
	server.Close()

	reg := newRegistry(t, baseURL, nil)
	params := metric.Params{Days: 30, Months: 6, Limit: 12}

	for _, kind := range metric.AllKinds() {
		src, ok := reg.Source(kind)
		require.True(t, ok, kind)

		res := src.Collect(context.Background(), params)
		assert.Equal(t, kind, res.Kind)
		assert.Equal(t, metric.OriginFallback, res.Origin, kind)
		assert.Equal(t, testCatalog().For(kind, params), res.Value, kind)
	}
}

func TestFetch_UnreachableTimelineScenario(t *testing.T) {
	server := httptest.NewServer(http.NewServeMux())
	baseURL := server.URL
	server.Close()

	client := NewClient(testLog(), Config{BaseURL: baseURL}, nil)
	reg := NewRegistry(testLog(), client, fallback.New(), nil)

	res := reg.Timeline().Fetch(context.Background(), metric.Params{Days: 30})
	require.Equal(t, metric.OriginFallback, res.Origin)
	require.Len(t, res.Value, 30)
	assert.Equal(t, time.Now().Format("2006-01-02"), res.Value[29].Date)

	for _, p := range res.Value {
		assert.GreaterOrEqual(t, p.Count, 2)
		assert.Less(t, p.Count, 17)
	}
}

func TestFetch_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard/reports/by-status", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	server := newTestServer(t, mux)
	client := NewClient(testLog(), Config{
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	}, nil)
	reg := NewRegistry(testLog(), client, testCatalog(), nil)

	res := reg.ByStatus().Fetch(context.Background(), metric.DefaultParams())
	assert.Equal(t, metric.OriginFallback, res.Origin)
	assert.Equal(t, testCatalog().ByStatus(), res.Value)
}

func TestFetch_CancelledContext(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard/stats", jsonHandler(`{"total_reports":9}`))

	reg := newRegistry(t, newTestServer(t, mux).URL, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := reg.Stats().Fetch(ctx, metric.DefaultParams())
	assert.Equal(t, metric.OriginFallback, res.Origin)
}

func TestFetch_RecordsBackendMetrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/dashboard/reports/trend-comparison", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("months"))
		jsonHandler(`[{"month":"Oct","reports":4,"resolved":1,"avgResponseTime":2.8}]`)(w, r)
	})

	health := export.NewHealthMetrics(testLog(), export.HealthConfig{})
	reg := newRegistry(t, newTestServer(t, mux).URL, health)

	res := reg.Trend().Fetch(context.Background(), metric.Params{Months: 3})
	assert.Equal(t, metric.OriginLive, res.Origin)

	assert.InDelta(t, 1, testutil.ToFloat64(
		health.BackendRequests.WithLabelValues("trend", "200"),
	), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(
		health.SourceResults.WithLabelValues("trend", "live"),
	), 0)
}

func TestSources_UnknownKind(t *testing.T) {
	reg := newRegistry(t, "http://127.0.0.1:1", nil)

	sources, err := reg.Sources(metric.DashboardKinds())
	require.NoError(t, err)
	assert.Len(t, sources, 7)

	_, err = reg.Sources([]metric.Kind{"bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no source registered for kind "bogus"`)
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "")

	cfg := Config{}
	cfg.ApplyEnv()
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)

	t.Setenv(EnvBaseURL, "http://backend:9000")

	cfg = Config{BaseURL: "http://ignored"}
	cfg.ApplyEnv()
	assert.Equal(t, "http://backend:9000", cfg.BaseURL)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient(testLog(), Config{BaseURL: "http://backend:8000/"}, nil)
	assert.Equal(t, "http://backend:8000", client.BaseURL())
}

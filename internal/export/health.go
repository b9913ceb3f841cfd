package export

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "aquaboard"

// HealthConfig configures the metrics and status server.
type HealthConfig struct {
	// Addr is the listen address for the server.
	// Defaults to ":9090".
	Addr string `yaml:"addr"`
}

// HealthMetrics exposes Prometheus metrics for the dashboard daemon and
// serves them together with any extra status routes.
type HealthMetrics struct {
	log      logrus.FieldLogger
	addr     string
	server   *http.Server
	listener net.Listener
	registry *prometheus.Registry

	mu     sync.Mutex
	routes map[string]http.Handler

	// Aggregation cycles.
	CyclesTotal     prometheus.Counter
	CycleFailures   prometheus.Counter
	CyclesDiscarded *prometheus.CounterVec // reason (stale/stopped/cancelled)
	CycleDuration   prometheus.Histogram
	SnapshotSeq     prometheus.Gauge
	SnapshotTime    prometheus.Gauge
	IsLoading       prometheus.Gauge
	CyclesInFlight  prometheus.Gauge
	FallbackKinds   prometheus.Gauge

	// Sources.
	SourceResults    *prometheus.CounterVec // kind, origin
	SourceRejections *prometheus.CounterVec // kind, reason

	// Backend client.
	BackendRequests        *prometheus.CounterVec   // kind, status
	BackendRequestDuration *prometheus.HistogramVec // kind

	// Report submission.
	ReportSubmissions *prometheus.CounterVec // status

	// Snapshot sinks.
	SinkSnapshots     *prometheus.CounterVec   // sink
	SinkErrors        *prometheus.CounterVec   // sink
	SinkFlushDuration *prometheus.HistogramVec // sink

	running atomic.Bool
}

// NewHealthMetrics creates the metrics registry and server.
func NewHealthMetrics(
	log logrus.FieldLogger,
	cfg HealthConfig,
) *HealthMetrics {
	reg := prometheus.NewRegistry()

	h := &HealthMetrics{
		log:      log.WithField("component", "health"),
		addr:     cfg.Addr,
		registry: reg,
		routes:   make(map[string]http.Handler, 4),

		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total aggregation cycles that published a snapshot.",
		}),
		CycleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycle_failures_total",
			Help:      "Total aggregation cycles that failed and kept the previous snapshot.",
		}),
		CyclesDiscarded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_discarded_total",
				Help:      "Total completed cycles whose results were not published, by reason.",
			},
			[]string{"reason"},
		),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time from fan-out to fan-in of one aggregation cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10}, // 10ms-10s
		}),
		SnapshotSeq: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_sequence",
			Help:      "Sequence number of the published snapshot.",
		}),
		SnapshotTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_published_timestamp_seconds",
			Help:      "Unix time the current snapshot was published.",
		}),
		IsLoading: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "is_loading",
			Help:      "Whether the first aggregation cycle has yet to settle (1=yes, 0=no).",
		}),
		CyclesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cycles_in_flight",
			Help:      "Number of aggregation cycles currently running.",
		}),
		FallbackKinds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_fallback_kinds",
			Help:      "Number of kinds in the current snapshot served from fallback.",
		}),
		SourceResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_results_total",
				Help:      "Total source fetch results by kind and origin.",
			},
			[]string{"kind", "origin"},
		),
		SourceRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "source_rejections_total",
				Help:      "Total live values rejected by the degradation policy.",
			},
			[]string{"kind", "reason"},
		),
		BackendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_requests_total",
				Help:      "Total backend API requests by kind and status.",
			},
			[]string{"kind", "status"},
		),
		BackendRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "backend_request_duration_seconds",
				Help:      "Backend API request duration by kind.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5}, // 10ms-5s
			},
			[]string{"kind"},
		),
		ReportSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "report_submissions_total",
				Help:      "Total report submissions by outcome.",
			},
			[]string{"status"},
		),
		SinkSnapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_snapshots_total",
				Help:      "Total snapshots handed to each sink.",
			},
			[]string{"sink"},
		),
		SinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_errors_total",
				Help:      "Total sink write errors.",
			},
			[]string{"sink"},
		),
		SinkFlushDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sink_flush_duration_seconds",
				Help:      "Time to write one snapshot by sink.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}, // 1ms-1s
			},
			[]string{"sink"},
		),
	}

	reg.MustRegister(
		h.CyclesTotal,
		h.CycleFailures,
		h.CyclesDiscarded,
		h.CycleDuration,
		h.SnapshotSeq,
		h.SnapshotTime,
		h.IsLoading,
		h.CyclesInFlight,
		h.FallbackKinds,
	)

	reg.MustRegister(
		h.SourceResults,
		h.SourceRejections,
		h.BackendRequests,
		h.BackendRequestDuration,
		h.ReportSubmissions,
	)

	reg.MustRegister(
		h.SinkSnapshots,
		h.SinkErrors,
		h.SinkFlushDuration,
	)

	return h
}

// Handle registers an extra route. Routes must be registered before Start.
func (h *HealthMetrics) Handle(pattern string, handler http.Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.routes[pattern] = handler
}

// Start begins serving /metrics, /healthz and registered routes.
func (h *HealthMetrics) Start(_ context.Context) error {
	if h.addr == "" {
		h.addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		h.registry,
		promhttp.HandlerOpts{},
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	h.mu.Lock()
	for pattern, handler := range h.routes {
		mux.Handle(pattern, handler)
	}
	h.mu.Unlock()

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	h.listener = ln

	h.server = &http.Server{
		Handler: mux,
	}

	h.running.Store(true)

	go func() {
		h.log.WithField("addr", ln.Addr().String()).
			Info("Status server started")

		if err := h.server.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			h.log.WithError(err).
				Error("Status server error")
		}

		h.running.Store(false)
	}()

	return nil
}

// Addr returns the actual listener address. Useful when started
// with ":0" to get the OS-assigned port.
func (h *HealthMetrics) Addr() string {
	if h.listener != nil {
		return h.listener.Addr().String()
	}

	return h.addr
}

// Registry exposes the underlying registry, mainly for tests.
func (h *HealthMetrics) Registry() *prometheus.Registry {
	return h.registry
}

// Stop shuts down the server.
func (h *HealthMetrics) Stop() error {
	if h.server == nil {
		return nil
	}

	return h.server.Close()
}

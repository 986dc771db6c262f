package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AccessDecisionsTotal *prometheus.CounterVec
	ModuleFailuresTotal  *prometheus.CounterVec
	ChainDuration        *prometheus.HistogramVec
	ConfigErrorsTotal    *prometheus.CounterVec

	// Claims metrics
	ClaimsGeneratedTotal *prometheus.CounterVec
	ClaimsLayerDuration  *prometheus.HistogramVec
	TokensIssuedTotal    prometheus.Counter
	TokensRejectedTotal  *prometheus.CounterVec

	// Licensing metrics
	LicenseChecksTotal      *prometheus.CounterVec
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration prometheus.Histogram

	// Database metrics
	DBQueriesTotal      *prometheus.CounterVec
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Redis metrics
	RedisCommandsTotal   *prometheus.CounterVec
	TokensRevokedTotal   prometheus.Counter
	RevocationSweepRuns  prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Authorization metrics
		AccessDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_access_decisions_total",
				Help: "Total number of access decisions by outcome",
			},
			[]string{"webservice", "decision"},
		),
		ModuleFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_module_failures_total",
				Help: "Total number of permission module failures treated as abstentions",
			},
			[]string{"module"},
		),
		ChainDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_chain_duration_seconds",
				Help:    "Permission chain evaluation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"webservice"},
		),
		ConfigErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_config_errors_total",
				Help: "Total number of entity configuration errors hit at runtime",
			},
			[]string{"entity"},
		),

		// Claims metrics
		ClaimsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_claims_generated_total",
				Help: "Total number of claims generations",
			},
			[]string{"status"},
		),
		ClaimsLayerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_claims_layer_duration_seconds",
				Help:    "Claims layer execution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"layer"},
		),
		TokensIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_tokens_issued_total",
				Help: "Total number of access tokens issued",
			},
		),
		TokensRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_tokens_rejected_total",
				Help: "Total number of access tokens rejected",
			},
			[]string{"reason"},
		),

		// Licensing metrics
		LicenseChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_license_checks_total",
				Help: "Total number of license checks",
			},
			[]string{"check", "result"},
		),
		ProviderRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_provider_requests_total",
				Help: "Total number of licensing provider requests",
			},
			[]string{"status"},
		),
		ProviderRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gatehouse_provider_request_duration_seconds",
				Help:    "Licensing provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		// Database metrics
		DBQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_db_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"store", "status"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),

		// Redis metrics
		RedisCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_redis_commands_total",
				Help: "Total number of Redis commands",
			},
			[]string{"command", "status"},
		),
		TokensRevokedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_tokens_revoked_total",
				Help: "Total number of tokens marked revoked",
			},
		),
		RevocationSweepRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_revocation_sweeps_total",
				Help: "Total number of revocation sweep runs",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AccessDecisionsTotal,
		m.ModuleFailuresTotal,
		m.ChainDuration,
		m.ConfigErrorsTotal,
		m.ClaimsGeneratedTotal,
		m.ClaimsLayerDuration,
		m.TokensIssuedTotal,
		m.TokensRejectedTotal,
		m.LicenseChecksTotal,
		m.ProviderRequestsTotal,
		m.ProviderRequestDuration,
		m.DBQueriesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.RedisCommandsTotal,
		m.TokensRevokedTotal,
		m.RevocationSweepRuns,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics endpoint
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

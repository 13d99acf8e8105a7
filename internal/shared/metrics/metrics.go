package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lukeswagga/discord-auction-bot/internal/shared/logger"
)

// Metrics holds all Prometheus metrics. Recording methods are no-ops on a nil
// *Metrics so components work with metrics disabled.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Database metrics
	dbConnectionsOpen   prometheus.Gauge
	dbConnectionsActive prometheus.Gauge
	dbConnectionsIdle   prometheus.Gauge
	dbQueryDuration     *prometheus.HistogramVec
	dbQueryErrorsTotal  *prometheus.CounterVec

	// Redis metrics
	redisOperationDuration *prometheus.HistogramVec
	redisErrorsTotal       *prometheus.CounterVec

	// Bot metrics
	listingsReceivedTotal  *prometheus.CounterVec
	listingsDeliveredTotal *prometheus.CounterVec
	batchesFlushedTotal    prometheus.Counter
	batchBufferSize        prometheus.Gauge
	botReady               prometheus.Gauge

	// Sniper metrics
	scrapeCyclesTotal      *prometheus.CounterVec
	scrapeListingsTotal    *prometheus.CounterVec
	yahooRequestsTotal     *prometheus.CounterVec
	scrapeCycleDuration    prometheus.Histogram
	exchangeRate           prometheus.Gauge
	downstreamBotReachable prometheus.Gauge

	// System metrics
	uptime prometheus.Gauge

	logger *logger.Logger
}

// New creates a new metrics instance with its own registry
func New(logger *logger.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		logger:   logger.Named("metrics"),
	}

	factory := promauto.With(reg)
	m.initHTTPMetrics(factory)
	m.initDatabaseMetrics(factory)
	m.initRedisMetrics(factory)
	m.initBotMetrics(factory)
	m.initSniperMetrics(factory)
	m.initSystemMetrics(factory)

	m.logger.Info("Metrics initialized")

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// initHTTPMetrics initializes HTTP-related metrics
func (m *Metrics) initHTTPMetrics(f promauto.Factory) {
	m.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	m.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	m.httpRequestsInFlight = f.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method", "endpoint"},
	)
}

// initDatabaseMetrics initializes database-related metrics
func (m *Metrics) initDatabaseMetrics(f promauto.Factory) {
	m.dbConnectionsOpen = f.NewGauge(prometheus.GaugeOpts{
		Name: "db_connections_open",
		Help: "Number of open database connections",
	})

	m.dbConnectionsActive = f.NewGauge(prometheus.GaugeOpts{
		Name: "db_connections_active",
		Help: "Number of active database connections",
	})

	m.dbConnectionsIdle = f.NewGauge(prometheus.GaugeOpts{
		Name: "db_connections_idle",
		Help: "Number of idle database connections",
	})

	m.dbQueryDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	m.dbQueryErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Total number of database query errors",
		},
		[]string{"operation", "table"},
	)
}

// initRedisMetrics initializes Redis-related metrics
func (m *Metrics) initRedisMetrics(f promauto.Factory) {
	m.redisOperationDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.redisErrorsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis errors",
		},
		[]string{"operation"},
	)
}

func (m *Metrics) initBotMetrics(f promauto.Factory) {
	m.listingsReceivedTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_listings_received_total",
			Help: "Listings received on the webhook, by outcome",
		},
		[]string{"outcome"},
	)

	m.listingsDeliveredTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_listings_delivered_total",
			Help: "Listings delivered to Discord, by result",
		},
		[]string{"result"},
	)

	m.batchesFlushedTotal = f.NewCounter(prometheus.CounterOpts{
		Name: "bot_batches_flushed_total",
		Help: "Number of listing batches flushed",
	})

	m.batchBufferSize = f.NewGauge(prometheus.GaugeOpts{
		Name: "bot_batch_buffer_size",
		Help: "Listings currently waiting in the batch buffer",
	})

	m.botReady = f.NewGauge(prometheus.GaugeOpts{
		Name: "bot_ready",
		Help: "1 when the Discord bot is connected and ready",
	})
}

func (m *Metrics) initSniperMetrics(f promauto.Factory) {
	m.scrapeCyclesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_cycles_total",
			Help: "Scrape cycles run, by result",
		},
		[]string{"result"},
	)

	m.scrapeListingsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_listings_total",
			Help: "Listings seen by the sniper, by stage",
		},
		[]string{"stage"},
	)

	m.yahooRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sniper_yahoo_requests_total",
			Help: "Yahoo Auctions page requests, by result",
		},
		[]string{"result"},
	)

	m.scrapeCycleDuration = f.NewHistogram(prometheus.HistogramOpts{
		Name:    "sniper_cycle_duration_seconds",
		Help:    "Duration of a full scrape cycle",
		Buckets: []float64{5, 15, 30, 60, 120, 240, 480},
	})

	m.exchangeRate = f.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_usd_jpy_rate",
		Help: "USD to JPY rate used for price conversion",
	})

	m.downstreamBotReachable = f.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_bot_reachable",
		Help: "1 when the downstream Discord bot reports ready",
	})
}

// initSystemMetrics initializes system metrics
func (m *Metrics) initSystemMetrics(f promauto.Factory) {
	m.uptime = f.NewGauge(prometheus.GaugeOpts{
		Name: "app_uptime_seconds",
		Help: "Application uptime in seconds",
	})
}

// HTTP Metrics Methods

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusStr := strconv.Itoa(status)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Database Metrics Methods

// UpdateDBConnections updates database connection metrics
func (m *Metrics) UpdateDBConnections(open, active, idle int) {
	if m == nil {
		return
	}
	m.dbConnectionsOpen.Set(float64(open))
	m.dbConnectionsActive.Set(float64(active))
	m.dbConnectionsIdle.Set(float64(idle))
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())

	if err != nil {
		m.dbQueryErrorsTotal.WithLabelValues(operation, table).Inc()
	}
}

// Redis Metrics Methods

// RecordRedisOperation records a Redis operation
func (m *Metrics) RecordRedisOperation(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.redisOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())

	if err != nil {
		m.redisErrorsTotal.WithLabelValues(operation).Inc()
	}
}

// Bot Metrics Methods

// RecordListingReceived records a webhook listing by outcome (queued, duplicate, invalid)
func (m *Metrics) RecordListingReceived(outcome string) {
	if m == nil {
		return
	}
	m.listingsReceivedTotal.WithLabelValues(outcome).Inc()
}

// RecordListingDelivered records a Discord delivery attempt
func (m *Metrics) RecordListingDelivered(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.listingsDeliveredTotal.WithLabelValues(result).Inc()
}

// RecordBatchFlush records a flushed batch and the remaining buffer size
func (m *Metrics) RecordBatchFlush(remaining int) {
	if m == nil {
		return
	}
	m.batchesFlushedTotal.Inc()
	m.batchBufferSize.Set(float64(remaining))
}

// SetBatchBufferSize updates the buffer gauge
func (m *Metrics) SetBatchBufferSize(size int) {
	if m == nil {
		return
	}
	m.batchBufferSize.Set(float64(size))
}

// SetBotReady updates the bot readiness gauge
func (m *Metrics) SetBotReady(ready bool) {
	if m == nil {
		return
	}
	m.botReady.Set(boolToFloat(ready))
}

// Sniper Metrics Methods

// RecordScrapeCycle records a completed scrape cycle
func (m *Metrics) RecordScrapeCycle(duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.scrapeCyclesTotal.WithLabelValues(result).Inc()
	m.scrapeCycleDuration.Observe(duration.Seconds())
}

// AddScrapeListings adds n listings to the given stage (found, filtered, published)
func (m *Metrics) AddScrapeListings(stage string, n int) {
	if m == nil {
		return
	}
	m.scrapeListingsTotal.WithLabelValues(stage).Add(float64(n))
}

// RecordYahooRequest records one search page fetch
func (m *Metrics) RecordYahooRequest(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.yahooRequestsTotal.WithLabelValues(result).Inc()
}

// SetExchangeRate updates the USD/JPY gauge
func (m *Metrics) SetExchangeRate(rate float64) {
	if m == nil {
		return
	}
	m.exchangeRate.Set(rate)
}

// SetBotReachable updates the downstream bot gauge
func (m *Metrics) SetBotReachable(ok bool) {
	if m == nil {
		return
	}
	m.downstreamBotReachable.Set(boolToFloat(ok))
}

// System Metrics Methods

// RecordUptime records the application uptime
func (m *Metrics) RecordUptime(uptime time.Duration) {
	if m == nil {
		return
	}
	m.uptime.Set(uptime.Seconds())
}

// GinMiddleware returns a Gin middleware for collecting HTTP metrics
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		// Route templates keep label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		m.httpRequestsInFlight.WithLabelValues(method, path).Inc()
		defer m.httpRequestsInFlight.WithLabelValues(method, path).Dec()

		// Process request
		c.Next()

		m.RecordHTTPRequest(method, path, c.Writer.Status(), time.Since(start))
	}
}

// GinMetricsHandler returns a Gin handler for the /metrics endpoint
func (m *Metrics) GinMetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

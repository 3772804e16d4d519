package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scanforge/scanforge/pkg/types"
)

// Collector exposes cache and pool metrics through a dedicated Prometheus
// registry. A disabled collector is a safe no-op so call sites never need to
// guard on configuration.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	// Prometheus metrics
	requestCounter   *prometheus.CounterVec
	evictionCounter  prometheus.Counter
	expiredCounter   prometheus.Counter
	timeSavedCounter prometheus.Counter
	entryGauge       prometheus.Gauge
	memoryGauge      prometheus.Gauge
	poolAvailable    *prometheus.GaugeVec
	poolCapacity     *prometheus.GaugeVec
	analysisDuration prometheus.Histogram

	// HTTP server for metrics endpoint
	server *http.Server
}

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NewCollector creates a new metrics collector
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Port:      9410,
			Path:      "/metrics",
			Namespace: "scanforge",
		}
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()

	collector := &Collector{
		config:   config,
		registry: registry,
	}

	collector.initMetrics()

	if err := collector.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return collector, nil
}

// Registry returns the collector's Prometheus registry, or nil when the
// collector is disabled.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Start serves the metrics endpoint until Stop is called.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second, // Prevent Slowloris attacks
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Metrics server error: %v\n", err)
		}
	}()

	return nil
}

// Stop shuts down the metrics endpoint.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// RecordHit records a cache hit and the analysis time it saved.
func (c *Collector) RecordHit(timeSavedMS uint64) {
	if !c.config.Enabled {
		return
	}

	c.requestCounter.With(prometheus.Labels{
		"result": "hit",
		"reason": "",
	}).Inc()
	c.timeSavedCounter.Add(float64(timeSavedMS) / 1000.0)
}

// RecordMiss records a cache miss with its reason (absent, config_mismatch,
// content_changed, file_unreadable).
func (c *Collector) RecordMiss(reason string) {
	if !c.config.Enabled {
		return
	}

	c.requestCounter.With(prometheus.Labels{
		"result": "miss",
		"reason": reason,
	}).Inc()
}

// RecordEviction records one capacity or replacement eviction.
func (c *Collector) RecordEviction() {
	if !c.config.Enabled {
		return
	}

	c.evictionCounter.Inc()
}

// RecordExpired records n entries removed by an age sweep.
func (c *Collector) RecordExpired(n int) {
	if !c.config.Enabled {
		return
	}

	c.expiredCounter.Add(float64(n))
}

// ObserveAnalysisDuration records how long one analysis took.
func (c *Collector) ObserveAnalysisDuration(d time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.analysisDuration.Observe(d.Seconds())
}

// UpdateCacheSize updates the entry-count and memory gauges.
func (c *Collector) UpdateCacheSize(entries int, memoryBytes uint64) {
	if !c.config.Enabled {
		return
	}

	c.entryGauge.Set(float64(entries))
	c.memoryGauge.Set(float64(memoryBytes))
}

// UpdatePool updates the per-pool gauges.
func (c *Collector) UpdatePool(name string, stats types.PoolStats) {
	if !c.config.Enabled {
		return
	}

	c.poolAvailable.With(prometheus.Labels{"pool": name}).Set(float64(stats.Available))
	c.poolCapacity.With(prometheus.Labels{"pool": name}).Set(float64(stats.TotalCapacity))
}

// Helper methods

func (c *Collector) initMetrics() {
	c.requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "cache_requests_total",
			Help:      "Total number of cache requests by result and miss reason",
		},
		[]string{"result", "reason"},
	)

	c.evictionCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of cache entries evicted",
		},
	)

	c.expiredCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "cache_expired_total",
			Help:      "Total number of cache entries removed by age sweeps",
		},
	)

	c.timeSavedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Name:      "cache_time_saved_seconds_total",
			Help:      "Cumulative analysis time avoided by cache hits",
		},
	)

	c.entryGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      "cache_entries",
			Help:      "Current number of cache entries",
		},
	)

	c.memoryGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      "cache_memory_bytes",
			Help:      "Estimated memory held by cache entries",
		},
	)

	c.poolAvailable = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      "pool_available_buffers",
			Help:      "Free buffers per pool",
		},
		[]string{"pool"},
	)

	c.poolCapacity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: c.config.Namespace,
			Name:      "pool_capacity_elements",
			Help:      "Total pooled capacity per pool in elements",
		},
		[]string{"pool"},
	)

	c.analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of file analyses in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
	)
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.requestCounter,
		c.evictionCounter,
		c.expiredCounter,
		c.timeSavedCounter,
		c.entryGauge,
		c.memoryGauge,
		c.poolAvailable,
		c.poolCapacity,
		c.analysisDuration,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

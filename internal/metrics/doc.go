/*
Package metrics provides Prometheus-based metrics collection for ScanForge.

# Overview

The metrics package exports cache and buffer-pool metrics through a dedicated
Prometheus registry and an optional HTTP endpoint. The collector is safe to
share across goroutines and degrades to a no-op when disabled, so callers
never need configuration guards around recording calls.

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled:   true,
		Port:      9410,
		Path:      "/metrics",
		Namespace: "scanforge",
	})
	if err != nil {
		log.Fatal(err)
	}

	if err := collector.Start(ctx); err != nil {
		log.Fatal(err)
	}
	defer collector.Stop(ctx)

# Exported Metrics

Counters:
  - scanforge_cache_requests_total{result,reason}: Cache lookups by outcome.
    Misses carry a reason label (absent, config_mismatch, content_changed,
    file_unreadable); hits carry an empty reason.
  - scanforge_cache_evictions_total: Entries removed by capacity pressure or
    replacement.
  - scanforge_cache_expired_total: Entries removed by age sweeps.
  - scanforge_cache_time_saved_seconds_total: Cumulative analysis time avoided
    by serving cached results.

Gauges:
  - scanforge_cache_entries: Current entry count.
  - scanforge_cache_memory_bytes: Estimated memory held by entries.
  - scanforge_pool_available_buffers{pool}: Free buffers per pool.
  - scanforge_pool_capacity_elements{pool}: Total pooled capacity per pool.

Histograms:
  - scanforge_analysis_duration_seconds: Analysis latency distribution.

# Recording

Recording methods map directly onto cache lifecycle events:

	collector.RecordHit(entry.AnalysisDurationMS)
	collector.RecordMiss("content_changed")
	collector.RecordEviction()
	collector.UpdateCacheSize(cache.Len(), cache.MemoryBytes())

Keep label cardinality low. Miss reasons are a small fixed set; never use
file paths as label values.

# Prometheus Setup

	scrape_configs:
	  - job_name: 'scanforge'
	    static_configs:
	      - targets: ['localhost:9410']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

# See Also

- internal/cache: The result cache that drives these metrics
- internal/pool: Buffer pools reported through UpdatePool
*/
package metrics

package types

// ResultStore defines the caching contract consumed by the analysis
// pipeline. The concrete implementation lives in internal/cache.
type ResultStore interface {
	Get(path, configHash string) ([]Finding, bool)
	Put(path string, results []Finding, configHash string, analysisDurationMS uint64) error
	Cleanup(maxAgeHours float64) int
	Clear()
	Len() int
	Stats() CacheStats
	Utilization() Utilization
}

// BufferPools defines the pooled-allocation contract the pipeline workers
// use for hot-path buffers.
type BufferPools interface {
	Stats() map[string]PoolStats
	Report() string
}

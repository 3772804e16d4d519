package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scanforge/scanforge/internal/fingerprint"
	"github.com/scanforge/scanforge/internal/metrics"
	"github.com/scanforge/scanforge/pkg/types"
	"github.com/scanforge/scanforge/pkg/utils"
)

// Entry holds one file's cached analysis results plus the validation
// metadata and access statistics used for invalidation and eviction. The
// priority score is never stored: it is derived on demand by priorityScore
// so there is a single source of truth.
type Entry struct {
	Results            []types.Finding `json:"results"`
	ContentHash        string          `json:"content_hash"`
	ConfigHash         string          `json:"config_hash"`
	ModifiedTime       int64           `json:"modified_time"`
	FileSizeBytes      uint64          `json:"file_size_bytes"`
	AccessCount        uint64          `json:"access_count"`
	LastAccessed       int64           `json:"last_accessed"`
	AnalysisDurationMS uint64          `json:"analysis_duration_ms"`

	// Estimated in-memory footprint, maintained by the store. Recomputed
	// from the entry on snapshot load, never persisted.
	estimatedSize uint64
}

// Config represents result cache configuration
type Config struct {
	MaxEntries  int  `yaml:"max_entries"`
	MaxMemoryMB int  `yaml:"max_memory_mb"`
	Compression bool `yaml:"compression"`
}

// ResultCache is a bounded path-keyed store of analysis results. All
// operations take the store under a single coarse lock; cache operations are
// fast relative to the analysis that happens between a miss and the
// following Put, so finer-grained locking buys nothing here.
type ResultCache struct {
	mu             sync.RWMutex
	entries        map[string]*Entry
	maxEntries     int
	maxMemoryBytes uint64
	currentMemory  uint64
	compress       bool
	stats          types.CacheStats

	group     singleflight.Group
	collector *metrics.Collector
	logger    *utils.Logger
}

// Option configures optional collaborators of a ResultCache.
type Option func(*ResultCache)

// WithMetrics attaches a Prometheus collector; nil is ignored.
func WithMetrics(collector *metrics.Collector) Option {
	return func(c *ResultCache) {
		c.collector = collector
	}
}

// WithLogger attaches a logger; nil is ignored.
func WithLogger(logger *utils.Logger) Option {
	return func(c *ResultCache) {
		c.logger = logger
	}
}

// NewResultCache creates a result cache. A nil config uses defaults.
func NewResultCache(config *Config, opts ...Option) *ResultCache {
	if config == nil {
		config = &Config{
			MaxEntries:  1000,
			MaxMemoryMB: 100,
		}
	}

	cache := &ResultCache{
		entries:        make(map[string]*Entry),
		maxEntries:     config.MaxEntries,
		maxMemoryBytes: uint64(config.MaxMemoryMB) * 1024 * 1024,
		compress:       config.Compression,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Get returns the cached results for path produced under configHash, or
// (nil, false) on a miss. An entry produced under a different config hash is
// removed immediately without touching the filesystem; an entry whose file
// changed on disk or became unreadable is removed after fingerprinting. On a
// hit the entry's access statistics are updated and the caller receives its
// own copy of the results.
func (c *ResultCache) Get(path, configHash string) ([]types.Finding, bool) {
	path = utils.NormalizePath(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.TotalRequests++

	entry, exists := c.entries[path]
	if !exists {
		c.stats.Misses++
		c.recordMiss("absent")
		return nil, false
	}

	// Config changes invalidate unconditionally, no grace.
	if entry.ConfigHash != configHash {
		c.stats.Misses++
		c.stats.ConfigMismatches++
		c.deleteLocked(path)
		c.recordMiss("config_mismatch")
		return nil, false
	}

	fp, err := fingerprint.Compute(path)
	if err != nil {
		c.stats.Misses++
		c.stats.FileUnreadable++
		c.deleteLocked(path)
		c.recordMiss("file_unreadable")
		return nil, false
	}

	if fp.ModifiedTime != entry.ModifiedTime ||
		fp.SizeBytes != entry.FileSizeBytes ||
		fp.ContentHash != entry.ContentHash {
		c.stats.Misses++
		c.stats.ContentChanged++
		c.deleteLocked(path)
		c.recordMiss("content_changed")
		return nil, false
	}

	c.stats.Hits++
	c.stats.TotalHitTimeSavedMS += entry.AnalysisDurationMS
	entry.AccessCount++
	entry.LastAccessed = time.Now().Unix()

	if c.collector != nil {
		c.collector.RecordHit(entry.AnalysisDurationMS)
	}

	// Return a copy so callers cannot mutate the stored results.
	results := make([]types.Finding, len(entry.Results))
	copy(results, entry.Results)
	return results, true
}

// Put fingerprints path and stores its results under configHash, replacing
// any existing entry. The only error path is a fingerprint failure, e.g. the
// file vanished between analysis and caching; the caller decides whether to
// proceed uncached. Capacity ceilings are enforced before insertion.
func (c *ResultCache) Put(path string, results []types.Finding, configHash string, analysisDurationMS uint64) error {
	path = utils.NormalizePath(path)

	fp, err := fingerprint.Compute(path)
	if err != nil {
		return err
	}

	entry := &Entry{
		Results:            make([]types.Finding, len(results)),
		ContentHash:        fp.ContentHash,
		ConfigHash:         configHash,
		ModifiedTime:       fp.ModifiedTime,
		FileSizeBytes:      fp.SizeBytes,
		AccessCount:        1,
		LastAccessed:       time.Now().Unix(),
		AnalysisDurationMS: analysisDurationMS,
	}
	copy(entry.Results, results)
	entry.estimatedSize = estimateEntrySize(path, entry)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replace-in-place counts as an eviction to keep memory accounting
	// and audit counters correct.
	if _, exists := c.entries[path]; exists {
		c.deleteLocked(path)
		c.stats.EntriesEvicted++
		c.recordEviction()
	}

	c.evictToFitLocked(entry.estimatedSize, 1)

	c.entries[path] = entry
	c.currentMemory += entry.estimatedSize
	c.stats.EntriesAdded++
	c.updateSizeMetrics()

	return nil
}

// GetOrCompute returns cached results for (path, configHash) or runs compute
// to produce them, deduplicating concurrent computations for the same key so
// parallel workers analyzing one file share a single analysis. compute
// returns the results and the analysis duration in milliseconds. If caching
// the computed results fails (file vanished mid-flight) the results are
// still returned, just not cached.
func (c *ResultCache) GetOrCompute(path, configHash string, compute func() ([]types.Finding, uint64, error)) ([]types.Finding, error) {
	if results, ok := c.Get(path, configHash); ok {
		return results, nil
	}

	key := path + "\x00" + configHash
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent caller may have filled the entry while this one
		// waited on the flight group.
		if results, ok := c.Get(path, configHash); ok {
			return results, nil
		}

		results, durationMS, err := compute()
		if err != nil {
			return nil, err
		}
		if putErr := c.Put(path, results, configHash, durationMS); putErr != nil {
			if c.logger != nil {
				c.logger.Warn("failed to cache analysis results",
					utils.F("path", path), utils.F("error", putErr))
			}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}

	// Every waiter on the shared flight gets its own copy, matching Get's
	// copy-out contract.
	shared := v.([]types.Finding)
	results := make([]types.Finding, len(shared))
	copy(results, shared)
	return results, nil
}

// Remove deletes the entry for path, reporting whether one existed.
func (c *ResultCache) Remove(path string) bool {
	path = utils.NormalizePath(path)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[path]; !exists {
		return false
	}
	c.deleteLocked(path)
	c.updateSizeMetrics()
	return true
}

// Cleanup removes every entry not accessed within maxAgeHours and returns
// the number removed. Ages are measured against last access, not creation.
// This is a full O(n) sweep; callers invoke it periodically.
func (c *ResultCache) Cleanup(maxAgeHours float64) int {
	cutoff := time.Now().Unix() - int64(maxAgeHours*3600)

	c.mu.Lock()
	defer c.mu.Unlock()

	var expired []string
	for path, entry := range c.entries {
		if entry.LastAccessed <= cutoff {
			expired = append(expired, path)
		}
	}

	for _, path := range expired {
		c.deleteLocked(path)
		c.stats.EntriesExpired++
	}

	if len(expired) > 0 {
		if c.collector != nil {
			c.collector.RecordExpired(len(expired))
		}
		c.updateSizeMetrics()
		if c.logger != nil {
			c.logger.Debug("expired cache entries", utils.F("count", len(expired)))
		}
	}

	return len(expired)
}

// Clear removes all entries. Removed entries count as evictions for audit
// visibility; cumulative hit/miss counters are not reset.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.currentMemory = 0
	c.stats.EntriesEvicted += uint64(removed)
	for i := 0; i < removed; i++ {
		c.recordEviction()
	}
	c.updateSizeMetrics()
}

// Len returns the number of entries currently stored.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MemoryBytes returns the running estimate of memory held by entries.
func (c *ResultCache) MemoryBytes() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentMemory
}

// Stats returns a copy of the cumulative counters.
func (c *ResultCache) Stats() types.CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Utilization returns a point-in-time occupancy view. Pure read, no side
// effects.
func (c *ResultCache) Utilization() types.Utilization {
	c.mu.RLock()
	defer c.mu.RUnlock()

	util := types.Utilization{
		EntryCount:    len(c.entries),
		MaxEntries:    c.maxEntries,
		MemoryUsageMB: float64(c.currentMemory) / (1024 * 1024),
		MaxMemoryMB:   float64(c.maxMemoryBytes) / (1024 * 1024),
		HitRate:       c.stats.HitRate(),
	}
	if len(c.entries) > 0 {
		util.AverageEntrySizeKB = float64(c.currentMemory) / float64(len(c.entries)) / 1024
	}
	return util
}

// deleteLocked removes an entry and keeps the memory estimate incremental.
// Caller must hold the write lock.
func (c *ResultCache) deleteLocked(path string) {
	entry, exists := c.entries[path]
	if !exists {
		return
	}
	c.currentMemory -= entry.estimatedSize
	delete(c.entries, path)
}

func (c *ResultCache) recordMiss(reason string) {
	if c.collector != nil {
		c.collector.RecordMiss(reason)
	}
}

func (c *ResultCache) recordEviction() {
	if c.collector != nil {
		c.collector.RecordEviction()
	}
}

func (c *ResultCache) updateSizeMetrics() {
	if c.collector != nil {
		c.collector.UpdateCacheSize(len(c.entries), c.currentMemory)
	}
}

// Size-estimation constants. The estimate approximates heap footprint, not
// exact RSS: fixed per-entry and per-finding overheads plus the length of
// every string field.
const (
	entryOverheadBytes   = 256
	findingOverheadBytes = 96
)

func estimateEntrySize(path string, entry *Entry) uint64 {
	size := uint64(entryOverheadBytes)
	size += uint64(len(path))
	size += uint64(len(entry.ContentHash) + len(entry.ConfigHash))
	for i := range entry.Results {
		f := &entry.Results[i]
		size += findingOverheadBytes
		size += uint64(len(f.RuleID) + len(f.Severity) + len(f.Message) + len(f.File) + len(f.Snippet))
	}
	return size
}

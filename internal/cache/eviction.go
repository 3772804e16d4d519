package cache

import (
	"math"
	"time"

	"github.com/scanforge/scanforge/pkg/utils"
)

// priorityScore derives an entry's retention value: higher scores are kept
// longer. Frequently accessed, recently accessed, and small entries are
// cheap to keep and expensive to recompute relative to their footprint.
//
//	access_weight  = ln(1 + access_count)
//	recency_weight = 1 / (1 + age_seconds/3600)
//	size_weight    = 1 / (1 + file_size_bytes/1024)
//	score          = access_weight * recency_weight * size_weight
func priorityScore(entry *Entry, now int64) float64 {
	accessWeight := math.Log(1 + float64(entry.AccessCount))

	ageSeconds := float64(now - entry.LastAccessed)
	if ageSeconds < 0 {
		ageSeconds = 0
	}
	recencyWeight := 1.0 / (1.0 + ageSeconds/3600.0)

	sizeWeight := 1.0 / (1.0 + float64(entry.FileSizeBytes)/1024.0)

	return accessWeight * recencyWeight * sizeWeight
}

// evictToFitLocked makes room for incomingCount entries of incomingSize
// total estimated bytes by evicting minimum-score entries until both the
// memory and entry ceilings hold. Scores are recomputed on every selection, never read from
// stored state. Selection is O(n) per victim, which is fine: evictions are
// amortized rare relative to lookups.
//
// Eviction never fails. If the store empties before the ceilings hold (a
// single entry larger than the whole budget), the caller inserts anyway and
// the capacity invariant is transiently violated by exactly that entry.
//
// Caller must hold the write lock.
func (c *ResultCache) evictToFitLocked(incomingSize uint64, incomingCount int) {
	now := time.Now().Unix()

	for (c.currentMemory+incomingSize > c.maxMemoryBytes) || (len(c.entries)+incomingCount > c.maxEntries) {
		if len(c.entries) == 0 {
			return
		}

		victim := c.lowestScoreLocked(now)
		if c.logger != nil {
			c.logger.Debug("evicting cache entry",
				utils.F("path", victim),
				utils.F("score", priorityScore(c.entries[victim], now)))
		}
		c.deleteLocked(victim)
		c.stats.EntriesEvicted++
		c.recordEviction()
	}
}

// lowestScoreLocked returns the path of the entry with the minimum priority
// score. Ties break arbitrarily via map iteration order. Caller must hold
// the lock and guarantee the store is non-empty.
func (c *ResultCache) lowestScoreLocked(now int64) string {
	var victim string
	lowest := math.Inf(1)

	for path, entry := range c.entries {
		if score := priorityScore(entry, now); score < lowest {
			lowest = score
			victim = path
		}
	}
	return victim
}

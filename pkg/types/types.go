package types

// Finding represents a single analyzer result for a file. The cache treats
// findings as an opaque payload; fields exist only so the payload can be
// sized, copied, and serialized.
type Finding struct {
	RuleID   string `json:"rule_id"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Snippet  string `json:"snippet,omitempty"`
}

// CacheStats represents cache performance counters. All counters are
// cumulative and monotonically increasing for the lifetime of a store.
type CacheStats struct {
	TotalRequests       uint64 `json:"total_requests"`
	Hits                uint64 `json:"hits"`
	Misses              uint64 `json:"misses"`
	ConfigMismatches    uint64 `json:"config_mismatches"`
	ContentChanged      uint64 `json:"content_changed"`
	FileUnreadable      uint64 `json:"file_unreadable"`
	EntriesAdded        uint64 `json:"entries_added"`
	EntriesEvicted      uint64 `json:"entries_evicted"`
	EntriesExpired      uint64 `json:"entries_expired"`
	TotalHitTimeSavedMS uint64 `json:"total_hit_time_saved_ms"`
}

// HitRate returns hits / total requests, or 0 before the first request.
func (s CacheStats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests)
}

// MissRate returns misses / total requests, or 0 before the first request.
func (s CacheStats) MissRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Misses) / float64(s.TotalRequests)
}

// TimeSavedSeconds returns the cumulative analysis time avoided by cache
// hits, in seconds.
func (s CacheStats) TimeSavedSeconds() float64 {
	return float64(s.TotalHitTimeSavedMS) / 1000.0
}

// Utilization is a point-in-time view of store occupancy.
type Utilization struct {
	EntryCount         int     `json:"entry_count"`
	MaxEntries         int     `json:"max_entries"`
	MemoryUsageMB      float64 `json:"memory_usage_mb"`
	MaxMemoryMB        float64 `json:"max_memory_mb"`
	HitRate            float64 `json:"hit_rate"`
	AverageEntrySizeKB float64 `json:"average_entry_size_kb"`
}

// EntryUtilizationPercentage returns entry count as a percentage of the
// entry ceiling.
func (u Utilization) EntryUtilizationPercentage() float64 {
	if u.MaxEntries == 0 {
		return 0
	}
	return float64(u.EntryCount) / float64(u.MaxEntries) * 100
}

// MemoryUtilizationPercentage returns memory usage as a percentage of the
// memory ceiling.
func (u Utilization) MemoryUtilizationPercentage() float64 {
	if u.MaxMemoryMB == 0 {
		return 0
	}
	return u.MemoryUsageMB / u.MaxMemoryMB * 100
}

// PoolStats represents the state of one buffer pool.
type PoolStats struct {
	Available     int    `json:"available"`
	MaxSize       int    `json:"max_size"`
	TotalCapacity uint64 `json:"total_capacity"`
}

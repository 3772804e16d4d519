package cache

import (
	"fmt"
	"strings"

	"github.com/scanforge/scanforge/pkg/utils"
)

// Report returns a human-readable multi-line summary of cache performance
// and occupancy. Only the underlying figures are contractual; the wording is
// a display concern.
func (c *ResultCache) Report() string {
	stats := c.Stats()
	util := c.Utilization()

	var sb strings.Builder
	sb.WriteString("Analysis Cache Report\n")
	sb.WriteString("=====================\n")
	sb.WriteString(fmt.Sprintf("Requests:     %d (hits %d, misses %d)\n",
		stats.TotalRequests, stats.Hits, stats.Misses))
	sb.WriteString(fmt.Sprintf("Hit rate:     %.1f%%\n", stats.HitRate()*100))
	sb.WriteString(fmt.Sprintf("Miss rate:    %.1f%%\n", stats.MissRate()*100))
	sb.WriteString(fmt.Sprintf("Miss reasons: config=%d content=%d unreadable=%d\n",
		stats.ConfigMismatches, stats.ContentChanged, stats.FileUnreadable))
	sb.WriteString(fmt.Sprintf("Time saved:   %.1fs\n", stats.TimeSavedSeconds()))
	sb.WriteString(fmt.Sprintf("Entries:      %d/%d (%.1f%%)\n",
		util.EntryCount, util.MaxEntries, util.EntryUtilizationPercentage()))
	sb.WriteString(fmt.Sprintf("Memory:       %s / %s (%.1f%%)\n",
		utils.FormatBytes(int64(util.MemoryUsageMB*1024*1024)),
		utils.FormatBytes(int64(util.MaxMemoryMB*1024*1024)),
		util.MemoryUtilizationPercentage()))
	sb.WriteString(fmt.Sprintf("Avg entry:    %.1f KB\n", util.AverageEntrySizeKB))
	sb.WriteString(fmt.Sprintf("Lifecycle:    added=%d evicted=%d expired=%d\n",
		stats.EntriesAdded, stats.EntriesEvicted, stats.EntriesExpired))
	return sb.String()
}

package pool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scanforge/scanforge/pkg/types"
	"github.com/scanforge/scanforge/pkg/utils"
)

// ManagerConfig sizes the per-shape pools. Zero values fall back to the
// defaults below.
type ManagerConfig struct {
	TextBufferCapacity    int `yaml:"text_buffer_capacity"`
	FindingBufferCapacity int `yaml:"finding_buffer_capacity"`
	PathBufferCapacity    int `yaml:"path_buffer_capacity"`
	MaxIdlePerPool        int `yaml:"max_idle_per_pool"`
}

// Manager aggregates one buffer pool per hot-path shape used by the analysis
// pipeline: raw text being scanned, finding records being accumulated, and
// path lists being walked. Construct one Manager at pipeline startup and
// pass it to every worker; there is deliberately no package-level instance.
type Manager struct {
	text     *SlicePool[byte]
	findings *SlicePool[types.Finding]
	paths    *SlicePool[string]
}

// NewManager creates a pool manager. A nil config uses defaults sized for
// typical source files.
func NewManager(config *ManagerConfig) *Manager {
	if config == nil {
		config = &ManagerConfig{
			TextBufferCapacity:    64 * 1024,
			FindingBufferCapacity: 64,
			PathBufferCapacity:    256,
			MaxIdlePerPool:        32,
		}
	}

	return &Manager{
		text:     NewSlicePool[byte](config.TextBufferCapacity, config.MaxIdlePerPool),
		findings: NewSlicePool[types.Finding](config.FindingBufferCapacity, config.MaxIdlePerPool),
		paths:    NewSlicePool[string](config.PathBufferCapacity, config.MaxIdlePerPool),
	}
}

// AcquireText returns a pooled byte buffer for file-content accumulation.
func (m *Manager) AcquireText() *Handle[byte] {
	return m.text.Acquire()
}

// AcquireFindings returns a pooled finding buffer for result accumulation.
func (m *Manager) AcquireFindings() *Handle[types.Finding] {
	return m.findings.Acquire()
}

// AcquirePaths returns a pooled string buffer for path collection.
func (m *Manager) AcquirePaths() *Handle[string] {
	return m.paths.Acquire()
}

// Stats returns per-pool free-list state keyed by pool name.
func (m *Manager) Stats() map[string]types.PoolStats {
	return map[string]types.PoolStats{
		"text":     m.text.Stats(),
		"findings": m.findings.Stats(),
		"paths":    m.paths.Stats(),
	}
}

// Usage returns cumulative per-pool activity counters keyed by pool name.
func (m *Manager) Usage() map[string]Usage {
	return map[string]Usage{
		"text":     m.text.UsageCounters(),
		"findings": m.findings.UsageCounters(),
		"paths":    m.paths.UsageCounters(),
	}
}

// Report returns a human-readable utilization summary.
func (m *Manager) Report() string {
	stats := m.Stats()
	usage := m.Usage()

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Buffer Pool Utilization\n")
	sb.WriteString("=======================\n")
	for _, name := range names {
		s := stats[name]
		u := usage[name]

		capacity := fmt.Sprintf("%d elems", s.TotalCapacity)
		if name == "text" {
			capacity = utils.FormatBytes(int64(s.TotalCapacity))
		}

		reuseRate := 0.0
		if u.Acquires > 0 {
			reuseRate = float64(u.Reuses) / float64(u.Acquires) * 100
		}

		sb.WriteString(fmt.Sprintf("%-10s available=%d/%d  pooled=%s  acquires=%d  reuse=%.1f%%\n",
			name+":", s.Available, s.MaxSize, capacity, u.Acquires, reuseRate))
	}
	return sb.String()
}

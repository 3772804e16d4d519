// Package memmon provides lightweight heap monitoring for long-lived
// analyzer processes. It samples runtime memory on a timer and fires a
// pressure callback when the heap crosses a budget, which callers typically
// wire to an aggressive cache sweep.
package memmon

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scanforge/scanforge/pkg/utils"
)

// MonitorConfig configures heap monitoring behavior
type MonitorConfig struct {
	// SampleInterval is how often to collect memory stats
	SampleInterval time.Duration

	// HeapBudgetBytes triggers the pressure callback when HeapAlloc
	// exceeds it. Zero disables pressure callbacks.
	HeapBudgetBytes uint64

	// MaxSamples is the number of samples to keep in history
	MaxSamples int

	// OnPressure runs (on the monitor goroutine) whenever a sample
	// exceeds the heap budget
	OnPressure func(Sample)

	// Logger for monitoring events
	Logger *utils.Logger
}

// DefaultMonitorConfig returns sensible defaults
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		SampleInterval: 30 * time.Second,
		MaxSamples:     100,
	}
}

// Sample is one point-in-time view of process memory
type Sample struct {
	Timestamp    time.Time
	HeapAlloc    uint64
	HeapSys      uint64
	NumGC        uint32
	NumGoroutine int
}

// Monitor samples heap usage on a timer
type Monitor struct {
	config MonitorConfig
	logger *utils.Logger

	mu      sync.RWMutex
	samples []Sample

	stopCh chan struct{}
	wg     sync.WaitGroup
	active int32
}

// NewMonitor creates a heap monitor
func NewMonitor(config MonitorConfig) *Monitor {
	if config.SampleInterval <= 0 {
		config.SampleInterval = 30 * time.Second
	}
	if config.MaxSamples <= 0 {
		config.MaxSamples = 100
	}

	return &Monitor{
		config:  config,
		logger:  config.Logger,
		samples: make([]Sample, 0, config.MaxSamples),
	}
}

// Start begins sampling. A stopped monitor may be started again.
func (m *Monitor) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.active, 0, 1) {
		return fmt.Errorf("monitor already running")
	}

	if m.logger != nil {
		m.logger.Info("starting heap monitor",
			utils.F("interval", m.config.SampleInterval.String()),
			utils.F("budget_bytes", m.config.HeapBudgetBytes))
	}

	// A fresh channel per run, so a previous Stop's closed channel cannot
	// kill this run's loop.
	stopCh := make(chan struct{})
	m.mu.Lock()
	m.stopCh = stopCh
	m.mu.Unlock()

	m.wg.Add(1)
	go m.loop(ctx, stopCh)

	return nil
}

// Stop stops sampling
func (m *Monitor) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.active, 1, 0) {
		return nil // Already stopped
	}

	m.mu.Lock()
	stopCh := m.stopCh
	m.mu.Unlock()

	close(stopCh)
	m.wg.Wait()
	return nil
}

func (m *Monitor) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.SampleInterval)
	defer ticker.Stop()

	m.sampleOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.sampleOnce()
		}
	}
}

func (m *Monitor) sampleOnce() {
	sample := TakeSample()

	m.mu.Lock()
	m.samples = append(m.samples, sample)
	if len(m.samples) > m.config.MaxSamples {
		m.samples = m.samples[1:]
	}
	m.mu.Unlock()

	if m.config.HeapBudgetBytes > 0 && sample.HeapAlloc > m.config.HeapBudgetBytes {
		if m.logger != nil {
			m.logger.Warn("heap budget exceeded",
				utils.F("heap_alloc", utils.FormatBytes(int64(sample.HeapAlloc))),
				utils.F("budget", utils.FormatBytes(int64(m.config.HeapBudgetBytes))))
		}
		if m.config.OnPressure != nil {
			m.config.OnPressure(sample)
		}
	}
}

// Current returns the most recent sample, taking one if none exist yet.
func (m *Monitor) Current() Sample {
	m.mu.RLock()
	if n := len(m.samples); n > 0 {
		sample := m.samples[n-1]
		m.mu.RUnlock()
		return sample
	}
	m.mu.RUnlock()
	return TakeSample()
}

// History returns a copy of the retained samples, oldest first.
func (m *Monitor) History() []Sample {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}

// TakeSample reads runtime memory statistics immediately.
func TakeSample() Sample {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Sample{
		Timestamp:    time.Now(),
		HeapAlloc:    memStats.HeapAlloc,
		HeapSys:      memStats.HeapSys,
		NumGC:        memStats.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
}

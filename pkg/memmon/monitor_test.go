package memmon

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTakeSample(t *testing.T) {
	t.Parallel()

	sample := TakeSample()
	if sample.HeapAlloc == 0 {
		t.Error("HeapAlloc = 0, want > 0")
	}
	if sample.NumGoroutine < 1 {
		t.Errorf("NumGoroutine = %d, want >= 1", sample.NumGoroutine)
	}
	if sample.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestMonitorStartStop(t *testing.T) {
	t.Parallel()

	monitor := NewMonitor(MonitorConfig{
		SampleInterval: 10 * time.Millisecond,
		MaxSamples:     5,
	})

	ctx := context.Background()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := monitor.Start(ctx); err == nil {
		t.Error("second Start() succeeded, want error")
	}

	// Let a few samples accumulate.
	time.Sleep(60 * time.Millisecond)

	if err := monitor.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := monitor.Stop(); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}

	history := monitor.History()
	if len(history) == 0 {
		t.Fatal("no samples collected")
	}
	if len(history) > 5 {
		t.Errorf("history holds %d samples, want <= 5", len(history))
	}
	if monitor.Current().HeapAlloc == 0 {
		t.Error("Current() returned a zero sample")
	}
}

func TestMonitorPressureCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	fired := 0

	monitor := NewMonitor(MonitorConfig{
		SampleInterval: 10 * time.Millisecond,
		// One byte budget: every sample is over.
		HeapBudgetBytes: 1,
		OnPressure: func(s Sample) {
			mu.Lock()
			fired++
			mu.Unlock()
		},
	})

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := monitor.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if fired == 0 {
		t.Error("pressure callback never fired despite tiny budget")
	}
}

func TestMonitorNoPressureWithoutBudget(t *testing.T) {
	t.Parallel()

	monitor := NewMonitor(MonitorConfig{
		SampleInterval: 10 * time.Millisecond,
		OnPressure: func(s Sample) {
			t.Error("pressure callback fired with zero budget")
		},
	})

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	if err := monitor.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}

func TestMonitorRestart(t *testing.T) {
	t.Parallel()

	monitor := NewMonitor(MonitorConfig{
		SampleInterval: 10 * time.Millisecond,
		MaxSamples:     50,
	})

	ctx := context.Background()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := monitor.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	firstRun := len(monitor.History())
	if firstRun == 0 {
		t.Fatal("no samples collected in first run")
	}

	// Restarting must spin up a live sampling loop again.
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("restart Start() error = %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := monitor.Stop(); err != nil {
		t.Fatalf("restart Stop() error = %v", err)
	}

	if got := len(monitor.History()); got <= firstRun {
		t.Errorf("history grew from %d to %d after restart, want more samples", firstRun, got)
	}
}

func TestMonitorContextCancellation(t *testing.T) {
	t.Parallel()

	monitor := NewMonitor(MonitorConfig{SampleInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	// The loop exits on context cancellation; Stop still cleans up.
	done := make(chan struct{})
	go func() {
		monitor.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() hung after context cancellation")
	}
}

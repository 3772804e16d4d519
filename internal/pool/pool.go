package pool

import (
	"sync"

	"github.com/scanforge/scanforge/pkg/types"
)

// SlicePool is a free list of reusable slice buffers for one hot-path
// element type. Acquire returns an empty buffer with at least the default
// capacity; Release returns it to the free list unless the list is full or
// the buffer grew past four times the default capacity, which keeps one
// oversized allocation from bloating the pool permanently.
type SlicePool[E any] struct {
	mu         sync.Mutex
	free       [][]E
	defaultCap int
	maxIdle    int

	// Usage counters
	acquires uint64
	reuses   uint64
	discards uint64
}

// Usage reports cumulative pool activity.
type Usage struct {
	Acquires uint64 `json:"acquires"`
	Reuses   uint64 `json:"reuses"`
	Discards uint64 `json:"discards"`
}

// NewSlicePool creates a pool whose buffers start at defaultCap capacity and
// whose free list holds at most maxIdle buffers.
func NewSlicePool[E any](defaultCap, maxIdle int) *SlicePool[E] {
	if defaultCap <= 0 {
		defaultCap = 64
	}
	if maxIdle <= 0 {
		maxIdle = 32
	}
	return &SlicePool[E]{
		defaultCap: defaultCap,
		maxIdle:    maxIdle,
	}
}

// Acquire returns a handle to an empty buffer, reusing a pooled one when
// available. Release the handle when done, typically via defer:
//
//	h := pool.Acquire()
//	defer h.Release()
func (p *SlicePool[E]) Acquire() *Handle[E] {
	p.mu.Lock()
	p.acquires++
	var buf []E
	if n := len(p.free); n > 0 {
		buf = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.reuses++
	}
	p.mu.Unlock()

	if buf == nil {
		buf = make([]E, 0, p.defaultCap)
	}
	return &Handle[E]{Buf: buf, pool: p}
}

func (p *SlicePool[E]) release(buf []E) {
	// Clear retained elements so pooled buffers do not pin payloads.
	var zero E
	for i := range buf {
		buf[i] = zero
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) >= p.maxIdle || cap(buf) > 4*p.defaultCap {
		p.discards++
		return
	}
	p.free = append(p.free, buf[:0])
}

// Stats returns the pool's current free-list state.
func (p *SlicePool[E]) Stats() types.PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var totalCap uint64
	for _, buf := range p.free {
		totalCap += uint64(cap(buf))
	}
	return types.PoolStats{
		Available:     len(p.free),
		MaxSize:       p.maxIdle,
		TotalCapacity: totalCap,
	}
}

// UsageCounters returns cumulative acquire/reuse/discard counts.
func (p *SlicePool[E]) UsageCounters() Usage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Usage{Acquires: p.acquires, Reuses: p.reuses, Discards: p.discards}
}

// Handle is a scoped acquisition of one pooled buffer. Append to Buf freely;
// Release returns the buffer to the pool and must be called on every exit
// path. A second Release is a no-op, and the pool never tracks outstanding
// handles: a leaked handle just loses its buffer to the garbage collector.
type Handle[E any] struct {
	Buf []E

	pool     *SlicePool[E]
	released bool
}

// Release returns the buffer to the pool's free list. The handle's buffer
// must not be used after Release.
func (h *Handle[E]) Release() {
	if h.released || h.pool == nil {
		return
	}
	h.released = true
	buf := h.Buf
	h.Buf = nil
	h.pool.release(buf)
}

// Package mpool serves byte buffers out of an early allocator's bytes zone
// through the arrow memory.Allocator interface, and page runs out of its
// pages zone.
package mpool

import (
	"fmt"
	"sync"

	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/shenjiangwei/earlyAllocator/early"
	"github.com/shenjiangwei/earlyAllocator/internal/region"
)

// Alignment of every buffer handed out by a Pool.
const Alignment = 64

// Arena is the allocator a Pool carves memory from.
type Arena interface {
	early.ByteAllocator
	early.PageAllocator
}

// PoolStats represents memory pool statistics
type PoolStats struct {
	TotalAllocations uint64 `json:"total_allocations"`
	PoolHits         uint64 `json:"pool_hits"`
	PoolMisses       uint64 `json:"pool_misses"`
	TotalFrees       uint64 `json:"total_frees"`
	PoolFreeHits     uint64 `json:"pool_free_hits"`
	PoolFreeMisses   uint64 `json:"pool_free_misses"`
	PageRuns         uint64 `json:"page_runs"`
}

// Pool backs an Arena with host memory. Requests the arena cannot satisfy
// fall back to another allocator, so Allocate never fails. Buffers are
// zeroed like those of every other memory.Allocator. Pool is safe for
// concurrent use.
type Pool struct {
	mu       sync.Mutex
	arena    Arena
	region   *region.Region
	fallback memory.Allocator
	stats    PoolStats

	// lowest address handed out by AllocPages; byte buffers lie below it
	pageFloor uintptr
}

var _ memory.Allocator = (*Pool)(nil)

// NewPool maps size bytes of host memory and initializes arena over it.
// A nil fallback means memory.DefaultAllocator.
func NewPool(arena Arena, size int, fallback memory.Allocator) (*Pool, error) {
	r, err := region.New(size)
	if err != nil {
		return nil, err
	}
	if err := arena.Init(r.Base(), r.Size()); err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to initialize arena: %w", err)
	}
	if fallback == nil {
		fallback = memory.DefaultAllocator
	}
	early.Info("Memory pool mapped %d bytes at %#x", r.Size(), r.Base())
	return &Pool{
		arena:     arena,
		region:    r,
		fallback:  fallback,
		pageFloor: r.Base() + r.Size(),
	}, nil
}

// Allocate returns a buffer of size bytes. It is carved from the arena when
// possible and from the fallback allocator otherwise.
func (p *Pool) Allocate(size int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalAllocations++
	if size > 0 {
		if b, ok := p.allocateLocked(size); ok {
			p.stats.PoolHits++
			return b
		}
	}

	p.stats.PoolMisses++
	return p.fallback.Allocate(size)
}

func (p *Pool) allocateLocked(size int) ([]byte, bool) {
	layout := early.Layout{Size: uintptr(size), Align: Alignment}
	addr, err := p.arena.Alloc(layout)
	if err != nil {
		early.Debug("Pool miss for %d bytes: %v", size, err)
		return nil, false
	}
	b, err := p.region.Slice(addr, layout.Size)
	if err != nil {
		// the arena and the mapping disagree; give the bytes back
		p.arena.Dealloc(addr, layout)
		early.Error("Arena returned %#x outside the pool mapping: %v", addr, err)
		return nil, false
	}
	// the bytes zone is reused after a reset
	clear(b)
	return b, true
}

// Reallocate resizes b, copying its contents into a new buffer when the
// size changes.
func (p *Pool) Reallocate(size int, b []byte) []byte {
	if size == len(b) {
		return b
	}
	if !p.owns(b) {
		return p.fallback.Reallocate(size, b)
	}

	// allocate before freeing so the arena cannot reset under the copy
	nb := p.Allocate(size)
	copy(nb, b)
	p.Free(b)
	return nb
}

// Free releases b. Arena memory is only reused once every buffer carved
// from it has been freed. Page runs from AllocPages are never released, so
// freeing one only counts as a miss.
func (p *Pool) Free(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalFrees++
	if addr, ok := p.region.AddrOf(b); ok {
		if addr >= p.pageFloor {
			early.Debug("Ignoring free of %d bytes inside the pages zone at %#x", len(b), addr)
			p.stats.PoolFreeMisses++
			return
		}
		p.arena.Dealloc(addr, early.Layout{Size: uintptr(len(b)), Align: Alignment})
		p.stats.PoolFreeHits++
		return
	}

	p.stats.PoolFreeMisses++
	p.fallback.Free(b)
}

// AllocPages returns numPages pages from the arena. Pages stay allocated
// until the pool is closed.
func (p *Pool) AllocPages(numPages int) ([]byte, error) {
	if numPages <= 0 {
		return nil, fmt.Errorf("%w: %d pages", early.ErrInvalidParam, numPages)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pageSize := p.arena.PageSize()
	addr, err := p.arena.AllocPages(uintptr(numPages), pageSize)
	if err != nil {
		return nil, err
	}
	p.stats.PageRuns++
	if addr < p.pageFloor {
		p.pageFloor = addr
	}
	return p.region.Slice(addr, uintptr(numPages)*pageSize)
}

// Stats returns a copy of the pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close unmaps the pool's memory. Buffers carved from the arena must not be
// used afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	early.Info("Memory pool closing: %d allocations (%d hits, %d misses), %d frees, %d page runs",
		s.TotalAllocations, s.PoolHits, s.PoolMisses, s.TotalFrees, s.PageRuns)
	return p.region.Close()
}

func (p *Pool) owns(b []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.region.AddrOf(b)
	return ok
}

package early

import (
	"sync"
)

// Handle is the process-wide entry point to an EarlyAllocator. It is built
// once with NewHandle and passed to every consumer. Init may be called only
// once, and each call holds the handle's mutex for its whole duration.
type Handle struct {
	mu          sync.Mutex
	alloc       *EarlyAllocator
	initialized bool
}

// NewHandle creates an uninitialized handle serving pages of pageSize bytes.
func NewHandle(pageSize uintptr) *Handle {
	return &Handle{alloc: NewEarlyAllocator(pageSize)}
}

// Init initializes the underlying allocator. A second call returns
// ErrAlreadyInitialized and leaves the allocator untouched.
func (h *Handle) Init(start, size uintptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		Error("Handle initialized twice, keeping [%#x, %#x)", h.alloc.start, h.alloc.end)
		return ErrAlreadyInitialized
	}
	if err := h.alloc.Init(start, size); err != nil {
		return err
	}
	h.initialized = true
	return nil
}

// Initialized reports whether Init has succeeded.
func (h *Handle) Initialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.initialized
}

// AddMemory extends the arena; see EarlyAllocator.AddMemory.
func (h *Handle) AddMemory(start, size uintptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return ErrNotInitialized
	}
	return h.alloc.AddMemory(start, size)
}

// Alloc allocates bytes under the lock.
func (h *Handle) Alloc(layout Layout) (uintptr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return 0, ErrNotInitialized
	}
	return h.alloc.Alloc(layout)
}

// Dealloc releases a byte allocation. It does nothing before Init.
func (h *Handle) Dealloc(addr uintptr, layout Layout) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		h.alloc.Dealloc(addr, layout)
	}
}

// AllocPages allocates a page run under the lock.
func (h *Handle) AllocPages(numPages, alignPow2 uintptr) (uintptr, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return 0, ErrNotInitialized
	}
	return h.alloc.AllocPages(numPages, alignPow2)
}

// DeallocPages fails with ErrUnsupported once initialized.
func (h *Handle) DeallocPages(addr, numPages uintptr) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return ErrNotInitialized
	}
	return h.alloc.DeallocPages(addr, numPages)
}

// PageSize does not need the lock: the page size never changes.
func (h *Handle) PageSize() uintptr {
	return h.alloc.PageSize()
}

// TotalBytes returns the byte capacity, or zero before Init.
func (h *Handle) TotalBytes() uintptr { return h.query((*EarlyAllocator).TotalBytes) }

// UsedBytes returns the size of the bytes-used zone, or zero before Init.
func (h *Handle) UsedBytes() uintptr { return h.query((*EarlyAllocator).UsedBytes) }

// AvailableBytes returns the gap between the zones, or zero before Init.
func (h *Handle) AvailableBytes() uintptr { return h.query((*EarlyAllocator).AvailableBytes) }

// TotalPages returns the pages spanned by the arena, or zero before Init.
func (h *Handle) TotalPages() uintptr { return h.query((*EarlyAllocator).TotalPages) }

// UsedPages returns the pages handed out so far, or zero before Init.
func (h *Handle) UsedPages() uintptr { return h.query((*EarlyAllocator).UsedPages) }

// AvailablePages returns the whole pages left between the zones, or zero
// before Init.
func (h *Handle) AvailablePages() uintptr { return h.query((*EarlyAllocator).AvailablePages) }

// Stats returns a snapshot taken under the lock.
func (h *Handle) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alloc.Stats()
}

// query runs f under the lock. Before Init every query reports zero.
func (h *Handle) query(f func(*EarlyAllocator) uintptr) uintptr {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return 0
	}
	return f(h.alloc)
}

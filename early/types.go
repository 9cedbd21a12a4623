// Package early provides the boot-time memory allocator used before any
// general-purpose allocator is available.
package early

const (
	// DefaultPageSize is the page size used when none is configured
	DefaultPageSize = 4 * 1024 // 4KB
)

// Layout describes the size and alignment of a byte allocation.
type Layout struct {
	Size  uintptr
	Align uintptr
}

// NewLayout returns a Layout, rejecting alignments that are not a power of two.
func NewLayout(size, align uintptr) (Layout, error) {
	if !isPowerOfTwo(align) {
		return Layout{}, ErrInvalidParam
	}
	return Layout{Size: size, Align: align}, nil
}

// BaseAllocator is the lifecycle capability shared by every allocator.
type BaseAllocator interface {
	// Init hands the range [start, start+size) to the allocator.
	Init(start, size uintptr) error
	// AddMemory grows the managed range.
	AddMemory(start, size uintptr) error
}

// ByteAllocator serves byte-granularity allocations.
type ByteAllocator interface {
	BaseAllocator

	Alloc(layout Layout) (uintptr, error)
	Dealloc(addr uintptr, layout Layout)
	TotalBytes() uintptr
	UsedBytes() uintptr
	AvailableBytes() uintptr
}

// PageAllocator serves page-granularity allocations.
type PageAllocator interface {
	BaseAllocator

	PageSize() uintptr
	AllocPages(numPages, alignPow2 uintptr) (uintptr, error)
	DeallocPages(addr, numPages uintptr) error
	TotalPages() uintptr
	UsedPages() uintptr
	AvailablePages() uintptr
}

// EarlyAllocator manages one contiguous range as two zones growing toward
// each other:
//
//	[ bytes-used | available | pages-used ]
//	|            | -->   <-- |            |
//	start     bytePos     pagePos        end
//
// Byte allocations only keep a count of live allocations; when the count
// drops to zero the whole bytes-used zone is reclaimed at once. Pages are
// never reclaimed.
//
// The zero value is an empty arena with DefaultPageSize pages; Init gives
// it a range. EarlyAllocator holds no lock. Use Handle when more than one
// goroutine can reach it.
type EarlyAllocator struct {
	start      uintptr
	end        uintptr
	bytePos    uintptr
	pagePos    uintptr
	allocCount uintptr
	pageSize   uintptr
}

// Stats is a point-in-time view of an EarlyAllocator.
type Stats struct {
	Start      uintptr `json:"start"`
	End        uintptr `json:"end"`
	BytePos    uintptr `json:"byte_pos"`
	PagePos    uintptr `json:"page_pos"`
	AllocCount uintptr `json:"alloc_count"`
	PageSize   uintptr `json:"page_size"`
}

var (
	_ ByteAllocator = (*EarlyAllocator)(nil)
	_ PageAllocator = (*EarlyAllocator)(nil)
	_ ByteAllocator = (*Handle)(nil)
	_ PageAllocator = (*Handle)(nil)
)

package early

import (
	"fmt"
)

// NewEarlyAllocator creates an unconfigured allocator serving pages of
// pageSize bytes. Call Init before using it.
func NewEarlyAllocator(pageSize uintptr) *EarlyAllocator {
	if !isPowerOfTwo(pageSize) {
		panic(fmt.Sprintf("early: page size %d is not a power of two", pageSize))
	}
	return &EarlyAllocator{pageSize: pageSize}
}

// Init sets the managed range to [start, start+size) and resets both
// cursors and the live allocation count. The caller must not re-initialize
// while byte allocations are live.
func (a *EarlyAllocator) Init(start, size uintptr) error {
	if size > maxAddr-start {
		Error("Init range %#x+%d overflows the address space", start, size)
		return fmt.Errorf("%w: range %#x+%d overflows", ErrInvalidParam, start, size)
	}
	a.start = start
	a.end = start + size
	a.bytePos = a.start
	a.pagePos = a.end
	a.allocCount = 0
	Info("Initialized arena [%#x, %#x), page size %d", a.start, a.end, a.PageSize())
	return nil
}

// AddMemory grows the arena by a range that touches one of its ends. The
// range must start at the current end while no pages are in use, or end at
// the current start while the bytes zone is empty. Every other range is
// rejected with ErrUnsupported.
func (a *EarlyAllocator) AddMemory(start, size uintptr) error {
	if size > maxAddr-start {
		return fmt.Errorf("%w: range %#x+%d overflows", ErrUnsupported, start, size)
	}
	switch {
	case start == a.end && a.pagePos == a.end:
		a.end += size
		a.pagePos = a.end
	case start+size == a.start && a.bytePos == a.start && a.allocCount == 0:
		a.start = start
		a.bytePos = start
	default:
		Debug("Rejected extension [%#x, %#x) for arena [%#x, %#x)", start, start+size, a.start, a.end)
		return fmt.Errorf("%w: cannot extend [%#x, %#x) with [%#x, %#x)",
			ErrUnsupported, a.start, a.end, start, start+size)
	}
	Info("Extended arena to [%#x, %#x)", a.start, a.end)
	return nil
}

// Stats returns a snapshot of the allocator state.
func (a *EarlyAllocator) Stats() Stats {
	return Stats{
		Start:      a.start,
		End:        a.end,
		BytePos:    a.bytePos,
		PagePos:    a.pagePos,
		AllocCount: a.allocCount,
		PageSize:   a.PageSize(),
	}
}

// String renders the three zones of the arena.
func (s Stats) String() string {
	return fmt.Sprintf("[%#x bytes:%d | avail:%d | pages:%d %#x) live=%d",
		s.Start, s.BytePos-s.Start, s.PagePos-s.BytePos, s.End-s.PagePos, s.End, s.AllocCount)
}

const maxAddr = ^uintptr(0)

func isPowerOfTwo(v uintptr) bool {
	return v != 0 && v&(v-1) == 0
}

// alignUp rounds addr up to align. ok is false if the result overflows.
func alignUp(addr, align uintptr) (aligned uintptr, ok bool) {
	if addr > maxAddr-(align-1) {
		return 0, false
	}
	return (addr + align - 1) &^ (align - 1), true
}

func alignDown(addr, align uintptr) uintptr {
	return addr &^ (align - 1)
}

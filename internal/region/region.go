// Package region provides host memory that can back an early allocator, and
// translates the allocator's addresses back into byte slices.
package region

import (
	"errors"
	"fmt"
	"unsafe"
)

var (
	// ErrOutOfRange indicates an address range that is not inside the region.
	ErrOutOfRange = errors.New("region: range outside mapped memory")
	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("region: closed")
)

// Region is a contiguous block of host memory. Its base address never
// changes while it is open.
type Region struct {
	data    []byte
	base    uintptr
	release func([]byte) error
}

// New maps size bytes of zeroed, read-write memory. size is rounded up to
// the host page size.
func New(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region: invalid size %d", size)
	}
	pageSize := HostPageSize()
	size = (size + pageSize - 1) &^ (pageSize - 1)

	data, release, err := mapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("region: map %d bytes: %w", size, err)
	}
	return &Region{
		data:    data,
		base:    uintptr(unsafe.Pointer(unsafe.SliceData(data))),
		release: release,
	}, nil
}

// Base returns the address of the first byte.
func (r *Region) Base() uintptr { return r.base }

// Size returns the mapped length.
func (r *Region) Size() uintptr { return uintptr(len(r.data)) }

// Contains reports whether [addr, addr+size) lies inside the region.
func (r *Region) Contains(addr, size uintptr) bool {
	if r.data == nil || addr < r.base {
		return false
	}
	off := addr - r.base
	return off <= r.Size() && size <= r.Size()-off
}

// Slice returns the bytes at [addr, addr+size) with capacity size.
func (r *Region) Slice(addr, size uintptr) ([]byte, error) {
	if r.data == nil {
		return nil, ErrClosed
	}
	if !r.Contains(addr, size) {
		return nil, fmt.Errorf("%w: %#x+%d not in [%#x, %#x)", ErrOutOfRange, addr, size, r.base, r.base+r.Size())
	}
	off := addr - r.base
	return r.data[off : off+size : off+size], nil
}

// AddrOf returns the address of b's first element, and false if b is empty
// or does not start inside the region.
func (r *Region) AddrOf(b []byte) (uintptr, bool) {
	if cap(b) == 0 {
		return 0, false
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return addr, r.Contains(addr, 1)
}

// Close unmaps the region. Slices obtained from it must not be used
// afterwards. Closing twice is a no-op.
func (r *Region) Close() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	return r.release(data)
}

package early

import "fmt"

// PageSize returns the page size fixed at construction. The zero value
// uses DefaultPageSize.
func (a *EarlyAllocator) PageSize() uintptr {
	if a.pageSize == 0 {
		return DefaultPageSize
	}
	return a.pageSize
}

// AllocPages reserves numPages pages from the high end of the available
// zone. The returned base address is the highest address aligned to
// alignPow2 whose run still ends at or below the page cursor; alignPow2 must
// be a power of two and a multiple of the page size. The page cursor only
// moves when the allocation succeeds.
func (a *EarlyAllocator) AllocPages(numPages, alignPow2 uintptr) (uintptr, error) {
	pageSize := a.PageSize()
	if !isPowerOfTwo(alignPow2) || alignPow2%pageSize != 0 {
		return 0, fmt.Errorf("%w: page alignment %d with page size %d", ErrInvalidParam, alignPow2, pageSize)
	}
	if numPages > maxAddr/pageSize {
		return 0, ErrNoMemory
	}
	size := numPages * pageSize

	if size > a.pagePos {
		return 0, ErrNoMemory
	}
	base := alignDown(a.pagePos-size, alignPow2)
	if base < a.bytePos {
		Debug("Page allocation of %d pages (align %d) failed, %d pages available",
			numPages, alignPow2, a.AvailablePages())
		return 0, ErrNoMemory
	}

	a.pagePos = base
	Debug("Allocated %d pages at address %#x", numPages, a.pagePos)
	return a.pagePos, nil
}

// DeallocPages always fails with ErrUnsupported. Pages handed out by this
// allocator stay allocated for its whole lifetime; a later page-frame
// manager takes them over as in use.
func (a *EarlyAllocator) DeallocPages(addr, numPages uintptr) error {
	Debug("Ignoring release of %d pages at %#x", numPages, addr)
	return fmt.Errorf("%w: pages are never reclaimed", ErrUnsupported)
}

// TotalPages returns the number of pages spanned by the whole arena.
func (a *EarlyAllocator) TotalPages() uintptr {
	return (a.end - a.start) / a.PageSize()
}

// UsedPages returns the number of pages in the pages-used zone.
func (a *EarlyAllocator) UsedPages() uintptr {
	return (a.end - a.pagePos) / a.PageSize()
}

// AvailablePages returns how many whole pages fit between the two cursors.
func (a *EarlyAllocator) AvailablePages() uintptr {
	return (a.pagePos - a.bytePos) / a.PageSize()
}

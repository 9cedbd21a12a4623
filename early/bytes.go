package early

// Alloc reserves layout.Size bytes aligned to layout.Align from the low end
// of the available zone. The memory is not zeroed.
func (a *EarlyAllocator) Alloc(layout Layout) (uintptr, error) {
	if !isPowerOfTwo(layout.Align) {
		return 0, ErrInvalidParam
	}

	aligned, ok := alignUp(a.bytePos, layout.Align)
	if !ok || layout.Size > maxAddr-aligned || aligned+layout.Size > a.pagePos {
		Debug("Byte allocation of %d bytes (align %d) failed, %d bytes available",
			layout.Size, layout.Align, a.AvailableBytes())
		return 0, ErrNoMemory
	}

	a.bytePos = aligned + layout.Size
	a.allocCount++
	Debug("Allocated %d bytes at address %#x", layout.Size, aligned)
	return aligned, nil
}

// Dealloc releases one byte allocation. addr and layout are not used to find
// the block: only the number of live allocations is tracked, and the whole
// bytes-used zone is reclaimed once that number drops to zero.
func (a *EarlyAllocator) Dealloc(addr uintptr, layout Layout) {
	if a.allocCount > 0 {
		a.allocCount--
	}
	if a.allocCount == 0 {
		a.bytePos = a.start
		Debug("Last byte allocation released at %#x, bytes zone reset", addr)
	}
}

// TotalBytes returns the capacity of the byte zone, which shrinks as pages
// are taken from the high end.
func (a *EarlyAllocator) TotalBytes() uintptr {
	return a.pagePos - a.start
}

// UsedBytes returns the size of the bytes-used zone, alignment padding included.
func (a *EarlyAllocator) UsedBytes() uintptr {
	return a.bytePos - a.start
}

// AvailableBytes returns the size of the zone between the two cursors.
func (a *EarlyAllocator) AvailableBytes() uintptr {
	return a.pagePos - a.bytePos
}

package early

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandle_InitOnce(t *testing.T) {
	h := NewHandle(DefaultPageSize)
	assert.False(t, h.Initialized())

	require.NoError(t, h.Init(0x10000, 64*KB))
	assert.True(t, h.Initialized())

	err := h.Init(0x20000, 64*KB)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Equal(t, uintptr(0x10000), h.Stats().Start, "second Init must not reset the arena")
}

func TestHandle_FailedInitCanRetry(t *testing.T) {
	h := NewHandle(DefaultPageSize)
	require.ErrorIs(t, h.Init(maxAddr, 2), ErrInvalidParam)
	assert.False(t, h.Initialized())
	require.NoError(t, h.Init(0, 16*KB))
}

func TestHandle_NotInitialized(t *testing.T) {
	h := NewHandle(DefaultPageSize)

	_, err := h.Alloc(Layout{Size: 8, Align: 8})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = h.AllocPages(1, DefaultPageSize)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, h.DeallocPages(0, 1), ErrNotInitialized)
	assert.ErrorIs(t, h.AddMemory(0, 4*KB), ErrNotInitialized)

	h.Dealloc(0, Layout{Size: 8, Align: 8})
	assert.Zero(t, h.TotalBytes())
	assert.Zero(t, h.AvailablePages())
	assert.Equal(t, uintptr(DefaultPageSize), h.PageSize())
}

func TestHandle_Capabilities(t *testing.T) {
	h := NewHandle(DefaultPageSize)
	require.NoError(t, h.Init(0, 64*KB))

	var bytes ByteAllocator = h
	var pages PageAllocator = h

	addr, err := bytes.Alloc(Layout{Size: 100, Align: 16})
	require.NoError(t, err)
	assert.Zero(t, addr)

	base, err := pages.AllocPages(4, DefaultPageSize)
	require.NoError(t, err)
	assert.Equal(t, uintptr(48*KB), base)

	assert.Equal(t, uintptr(100), bytes.UsedBytes())
	assert.Equal(t, uintptr(48*KB), bytes.TotalBytes())
	assert.Equal(t, uintptr(48*KB-100), bytes.AvailableBytes())
	assert.Equal(t, uintptr(16), pages.TotalPages())
	assert.Equal(t, uintptr(4), pages.UsedPages())
	assert.Equal(t, uintptr(11), pages.AvailablePages())

	assert.ErrorIs(t, pages.DeallocPages(base, 4), ErrUnsupported)
	assert.ErrorIs(t, pages.AddMemory(64*KB, 4*KB), ErrUnsupported)

	bytes.Dealloc(addr, Layout{Size: 100, Align: 16})
	assert.Zero(t, bytes.UsedBytes())
}

func TestHandle_Concurrent(t *testing.T) {
	h := NewHandle(DefaultPageSize)
	require.NoError(t, h.Init(0, 4*MB))

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			layout := Layout{Size: 64, Align: 8}
			addrs := make([]uintptr, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				addr, err := h.Alloc(layout)
				if err != nil {
					t.Errorf("alloc failed: %v", err)
					return
				}
				addrs = append(addrs, addr)
				if j%50 == 0 {
					if _, err := h.AllocPages(1, DefaultPageSize); err != nil {
						t.Errorf("page alloc failed: %v", err)
						return
					}
				}
			}
			for _, addr := range addrs {
				h.Dealloc(addr, layout)
			}
		}()
	}
	wg.Wait()

	s := h.Stats()
	assert.Zero(t, s.AllocCount)
	assert.Equal(t, s.Start, s.BytePos)
	assert.Equal(t, uintptr(workers*perWorker/50), h.UsedPages())
}

package early

import "errors"

// Error definitions
var (
	// ErrNoMemory is returned when a request would make the byte and page zones cross
	ErrNoMemory = errors.New("alloc: out of memory")
	// ErrUnsupported is returned for operations this allocator never performs
	ErrUnsupported = errors.New("alloc: operation not supported")
	// ErrInvalidParam is returned for malformed sizes, alignments or ranges
	ErrInvalidParam = errors.New("alloc: invalid parameter")
	// ErrAlreadyInitialized is returned when a Handle is initialized twice
	ErrAlreadyInitialized = errors.New("alloc: already initialized")
	// ErrNotInitialized is returned when a Handle is used before Init
	ErrNotInitialized = errors.New("alloc: not initialized")
)

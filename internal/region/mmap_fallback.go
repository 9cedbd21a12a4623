//go:build !unix

package region

import "os"

// HostPageSize returns the page size of the running system.
func HostPageSize() int {
	return os.Getpagesize()
}

// mapAnon falls back to heap memory where anonymous mappings are not
// available. The Go heap does not move objects, so the base stays fixed.
func mapAnon(size int) ([]byte, func([]byte) error, error) {
	return make([]byte, size), func([]byte) error { return nil }, nil
}

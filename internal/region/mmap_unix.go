//go:build unix

package region

import (
	"golang.org/x/sys/unix"
)

// HostPageSize returns the page size of the running system.
func HostPageSize() int {
	return unix.Getpagesize()
}

func mapAnon(size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

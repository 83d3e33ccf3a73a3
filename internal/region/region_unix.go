//go:build unix

package region

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Map reserves size bytes of zeroed, read-write anonymous memory.
// The returned release func unmaps it; calling release twice is a no-op.
func Map(size int) ([]byte, func() error, error) {
	if err := checkSize(size); err != nil {
		return nil, nil, err
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data[:size:size], release, nil
}

// Mapped reports whether Map returns memory outside the Go heap.
func Mapped() bool { return true }

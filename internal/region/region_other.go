//go:build !unix

package region

import "unsafe"

// Map allocates size bytes on the Go heap when mmap is not available.
// The slice is trimmed so it starts on a PageSize boundary.
func Map(size int) ([]byte, func() error, error) {
	if err := checkSize(size); err != nil {
		return nil, nil, err
	}
	raw := make([]byte, size+PageSize)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	pad := int((PageSize - base%PageSize) % PageSize)
	return raw[pad : pad+size : pad+size], func() error { return nil }, nil
}

// Mapped reports whether Map returns memory outside the Go heap.
func Mapped() bool { return false }

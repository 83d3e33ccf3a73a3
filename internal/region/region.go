// Package region acquires the raw backing memory for arenas.
//
// On unix platforms Map returns an anonymous private mapping obtained with
// mmap, so the memory never lives on the Go heap. Elsewhere it falls back to
// a heap slice trimmed to a page boundary. Either way the returned slice
// starts on a PageSize boundary and is exactly size bytes long.
package region

import (
	"errors"
	"fmt"
)

// PageSize is the alignment guaranteed for the start of every region.
const PageSize = 4096

// ErrBadSize is returned when a non-positive size is requested.
var ErrBadSize = errors.New("region: size must be positive")

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	return nil
}

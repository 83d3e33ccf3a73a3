package arena

import "errors"

var (
	// ErrBadCapacity indicates a non-positive arena capacity.
	ErrBadCapacity = errors.New("arena: capacity must be positive")

	// ErrLeaked indicates the arena was closed while allocations were still live.
	ErrLeaked = errors.New("arena: closed with live allocations")

	// ErrClosed indicates use of an arena after Close.
	ErrClosed = errors.New("arena: closed")
)

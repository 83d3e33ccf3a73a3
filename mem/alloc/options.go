package alloc

import (
	"log/slog"

	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/arena"
)

// Options configures an allocator. A nil *Options means defaults.
type Options struct {
	// Source of arena memory.
	// Default: arena.Heap
	Source arena.Source

	// Logger receives growth, relocation and leak events.
	// Default: logger.L at construction time
	Logger *slog.Logger

	// MaxCapacity caps the total bytes a FreeList may grow to (0 = unlimited).
	MaxCapacity int

	// GrowthSize is the minimum size of each FreeList growth segment.
	// Default: the initial capacity
	GrowthSize int
}

func (o *Options) resolve() Options {
	var r Options
	if o != nil {
		r = *o
	}
	if r.Logger == nil {
		r.Logger = logger.L
	}
	return r
}

func (o Options) arena() *arena.Options {
	return &arena.Options{Source: o.Source}
}

package alloc

// Stats is a point-in-time view of an allocator's counters.
// Fields that do not apply to a strategy stay zero.
type Stats struct {
	Kind        string `json:"kind"`
	Capacity    int    `json:"capacity"`
	BytesInUse  int    `json:"bytes_in_use"`
	Allocations int    `json:"allocations"`

	FreeBlocks int `json:"free_blocks,omitempty"` // free-list nodes or free pool chunks
	Segments   int `json:"segments,omitempty"`

	Grows            int `json:"grows,omitempty"`
	Splits           int `json:"splits,omitempty"`
	CoalesceForward  int `json:"coalesce_forward,omitempty"`
	CoalesceBackward int `json:"coalesce_backward,omitempty"`
	Relocations      int `json:"relocations,omitempty"`
}

// Free returns the capacity not charged to live allocations.
func (s Stats) Free() int { return s.Capacity - s.BytesInUse }

// Utilization returns BytesInUse/Capacity in [0, 1].
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.BytesInUse) / float64(s.Capacity)
}

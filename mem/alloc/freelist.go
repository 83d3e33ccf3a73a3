package alloc

import (
	"errors"
	"fmt"
	"log/slog"
	"math/bits"
	"sort"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/mem/arena"
)

// FreeList header layout. One copy sits immediately behind the user offset
// and a second copy at the first byte of the block (the two coincide when
// the adjustment equals the header size and are disjoint otherwise), so a
// block can be found both
// from its user offset and by walking from the free node before it.
//
//	0x00 u32  total block size, adjustment included
//	0x04 u8   adjustment from block start to user offset
//	0x05 u8   log2 of the requested alignment
//	0x06 u16  live magic
const (
	flHeaderSize = 8
	flTotalOff   = 0
	flAdjOff     = 4
	flShiftOff   = 5
	flMagicOff   = 6

	flLive uint16 = 0xA110
)

// Free node layout, written into the first bytes of every free region.
//
//	0x00 u32  region size
//	0x04 u32  address of the next free node (noOffset at the tail)
const (
	nodeSize    = 8
	nodeSizeOff = 0
	nodeNextOff = 4
)

const (
	// minBlockSize is the smallest free region worth keeping as a node.
	// Smaller surpluses stay attached to the allocation that produced them.
	minBlockSize = 16

	// maxAddress bounds the address space so every address fits the u32
	// node fields and a node's next field can never read as flLive.
	maxAddress = 1<<31 - 1
)

// Extent is a free region of a FreeList.
type Extent struct {
	Off  int `json:"off"`
	Size int `json:"size"`
}

// segment is one owned arena mapped at base in the allocator's address space.
type segment struct {
	base int
	ar   *arena.Arena
}

func (s segment) end() int { return s.base + s.ar.Cap() }

type flHeader struct {
	total int
	adj   int
	shift int
	magic uint16
}

type freeListCounters struct {
	grows            int
	splits           int
	coalesceForward  int
	coalesceBackward int
	relocations      int
}

// FreeList is a general-purpose allocator: first-fit search over an
// address-ordered list of free regions, with neighbouring regions merged on
// every deallocation.
//
// When no region fits, the allocator appends a new segment and retries once.
// Segments are placed above every existing one in a single address space
// (bases aligned to arena.MaxAlign), so the free list stays address-ordered
// across segments; regions in different segments are never merged.
type FreeList struct {
	id   uint32
	opts Options
	log  *slog.Logger

	segs []segment

	// head is the address of the lowest free node, -1 when none.
	head   int
	growth int

	counters freeListCounters
}

// NewFreeList creates a FreeList with an initial segment of capacity bytes.
func NewFreeList(capacity int, opts *Options) (*FreeList, error) {
	o := opts.resolve()
	if capacity < minBlockSize || capacity > maxAddress {
		return nil, fmt.Errorf("%w: free list capacity %d outside [%d, %d]", ErrBadSize, capacity, minBlockSize, maxAddress)
	}
	if o.MaxCapacity > 0 && o.MaxCapacity < capacity {
		return nil, fmt.Errorf("%w: capacity %d exceeds MaxCapacity %d", ErrBadSize, capacity, o.MaxCapacity)
	}

	fl := &FreeList{
		id:     nextID(),
		opts:   o,
		log:    o.Logger.With("allocator", "freelist"),
		head:   -1,
		growth: capacity,
	}
	if o.GrowthSize > 0 {
		fl.growth = o.GrowthSize
	}
	if err := fl.addSegment(capacity); err != nil {
		return nil, fmt.Errorf("alloc: freelist: %w", err)
	}
	return fl, nil
}

// addSegment maps a new arena above the existing ones and frees all of it.
func (fl *FreeList) addSegment(size int) error {
	base := 0
	if n := len(fl.segs); n > 0 {
		base = arena.AlignForward(fl.segs[n-1].end(), arena.MaxAlign)
	}
	if end, ok := buf.AddOverflowSafe(base, size); !ok || end > maxAddress {
		return fmt.Errorf("address space exhausted: %d bytes at %d", size, base)
	}

	ar, err := arena.New(size, fl.opts.arena())
	if err != nil {
		return err
	}
	fl.segs = append(fl.segs, segment{base: base, ar: ar})
	fl.insert(base, size)
	return nil
}

func (fl *FreeList) grow(need int) error {
	size := max(fl.growth, need)
	total := fl.Capacity() + size
	if fl.opts.MaxCapacity > 0 && total > fl.opts.MaxCapacity {
		return fmt.Errorf("%w: %d bytes would exceed the %d-byte limit", ErrGrowFail, total, fl.opts.MaxCapacity)
	}
	if err := fl.addSegment(size); err != nil {
		fl.log.Error("grow failed", "bytes", size, "error", err)
		return fmt.Errorf("%w: %w", ErrGrowFail, err)
	}
	fl.counters.grows++
	fl.log.Debug("grow", "segment", len(fl.segs)-1, "bytes", size, "capacity", total)
	return nil
}

func (fl *FreeList) closed() bool {
	return len(fl.segs) == 0 || fl.segs[0].ar.Closed()
}

// segmentIndex returns the segment holding addr, or -1.
func (fl *FreeList) segmentIndex(addr int) int {
	i := sort.Search(len(fl.segs), func(i int) bool { return fl.segs[i].base > addr }) - 1
	if i < 0 || addr >= fl.segs[i].end() {
		return -1
	}
	return i
}

// locate maps [addr, addr+n) to its segment buffer and local offset.
func (fl *FreeList) locate(addr, n int) ([]byte, int, int) {
	i := fl.segmentIndex(addr)
	if i < 0 {
		return nil, 0, -1
	}
	s := fl.segs[i]
	local := addr - s.base
	if !buf.Has(s.ar.Bytes(), local, n) {
		return nil, 0, -1
	}
	return s.ar.Bytes(), local, i
}

func (fl *FreeList) node(addr int) (size, next int) {
	mem, local, _ := fl.locate(addr, nodeSize)
	return int(buf.U32(mem, local+nodeSizeOff)), decodeOff(buf.U32(mem, local+nodeNextOff))
}

func (fl *FreeList) setNode(addr, size, next int) {
	mem, local, _ := fl.locate(addr, nodeSize)
	buf.PutU32(mem, local+nodeSizeOff, uint32(size))
	buf.PutU32(mem, local+nodeNextOff, encodeOff(next))
}

// link makes n follow prev, or the head when prev is -1.
func (fl *FreeList) link(prev, n int) {
	if prev < 0 {
		fl.head = n
		return
	}
	mem, local, _ := fl.locate(prev, nodeSize)
	buf.PutU32(mem, local+nodeNextOff, encodeOff(n))
}

func (fl *FreeList) readHeader(addr int) (flHeader, bool) {
	mem, local, _ := fl.locate(addr, flHeaderSize)
	if mem == nil {
		return flHeader{}, false
	}
	return flHeader{
		total: int(buf.U32(mem, local+flTotalOff)),
		adj:   int(buf.U8(mem, local+flAdjOff)),
		shift: int(buf.U8(mem, local+flShiftOff)),
		magic: buf.U16(mem, local+flMagicOff),
	}, true
}

func (fl *FreeList) writeHeader(addr int, h flHeader) {
	mem, local, _ := fl.locate(addr, flHeaderSize)
	buf.PutU32(mem, local+flTotalOff, uint32(h.total))
	buf.PutU8(mem, local+flAdjOff, uint8(h.adj))
	buf.PutU8(mem, local+flShiftOff, uint8(h.shift))
	buf.PutU16(mem, local+flMagicOff, h.magic)
}

func (fl *FreeList) clearMagic(addr int) {
	mem, local, _ := fl.locate(addr, flHeaderSize)
	buf.PutU16(mem, local+flMagicOff, 0)
}

// Allocate reserves size bytes aligned to align from the first free region
// large enough, growing once if none is.
func (fl *FreeList) Allocate(size, align int) (Block, error) {
	arena.MustAlign(align)
	if fl.closed() {
		return Block{}, arena.ErrClosed
	}
	if size < 0 || size > maxAddress {
		return Block{}, fmt.Errorf("%w: %d", ErrBadSize, size)
	}

	for attempt := 0; attempt < 2; attempt++ {
		if blk, ok := fl.firstFit(size, align); ok {
			return blk, nil
		}
		if attempt == 0 {
			if err := fl.grow(size + align + flHeaderSize); err != nil {
				return Block{}, err
			}
		}
	}
	return Block{}, fmt.Errorf("%w: freelist needs %d bytes (align %d)", ErrOutOfMemory, size, align)
}

func (fl *FreeList) firstFit(size, align int) (Block, bool) {
	prev := -1
	for cur := fl.head; cur >= 0; {
		nsize, next := fl.node(cur)
		adj := blockAdjustment(cur, align)
		if adj+size <= nsize {
			return fl.carve(prev, cur, nsize, next, adj, size, align), true
		}
		prev, cur = cur, next
	}
	return Block{}, false
}

// blockAdjustment returns the distance from a block start at addr to a
// user offset aligned to align. The result is either exactly one header or
// at least two, so the copy at the block start and the copy behind the
// user offset never partially overlap.
func blockAdjustment(addr, align int) int {
	adj := arena.AdjustmentWithHeader(addr, align, flHeaderSize)
	if adj > flHeaderSize && adj < 2*flHeaderSize {
		adj = arena.AdjustmentWithHeader(addr, align, 2*flHeaderSize)
	}
	return adj
}

// carve takes adj+size bytes from the front of the free node at cur.
// A surplus of at least minBlockSize becomes a new node in cur's place;
// anything smaller is handed out with the block.
func (fl *FreeList) carve(prev, cur, nsize, next, adj, size, align int) Block {
	total := adj + size
	if surplus := nsize - total; surplus >= minBlockSize {
		rest := cur + total
		fl.setNode(rest, surplus, next)
		fl.link(prev, rest)
		fl.counters.splits++
	} else {
		total = nsize
		fl.link(prev, next)
	}

	user := cur + adj
	h := flHeader{total: total, adj: adj, shift: bits.TrailingZeros(uint(align)), magic: flLive}
	fl.writeHeader(cur, h)
	fl.writeHeader(user-flHeaderSize, h)
	fl.segs[fl.segmentIndex(cur)].ar.Charge(total)
	return Block{Off: user, Size: size, owner: fl.id}
}

// Check reports whether b is a live allocation of this FreeList.
func (fl *FreeList) Check(b Block) error {
	_, err := fl.liveHeader(b)
	return err
}

func (fl *FreeList) liveHeader(b Block) (flHeader, error) {
	if fl.closed() {
		return flHeader{}, arena.ErrClosed
	}
	if b.owner != fl.id {
		return flHeader{}, ErrForeignBlock
	}
	h, ok := fl.readHeader(b.Off - flHeaderSize)
	if !ok {
		return flHeader{}, fmt.Errorf("%w: offset %d is not mapped", ErrBadBlock, b.Off)
	}
	if h.magic != flLive {
		return flHeader{}, fmt.Errorf("%w: offset %d", ErrDoubleFree, b.Off)
	}
	s := fl.segs[fl.segmentIndex(b.Off-flHeaderSize)]
	start := b.Off - h.adj
	if h.adj < flHeaderSize || start < s.base || start+h.total > s.end() || b.Off+b.Size > start+h.total {
		return flHeader{}, fmt.Errorf("%w: block at %d claims %d bytes from %d", ErrCorrupt, b.Off, h.total, start)
	}
	return h, nil
}

// Deallocate returns b's region to the free list and merges it with any
// free neighbour on either side.
func (fl *FreeList) Deallocate(b Block) error {
	h, err := fl.liveHeader(b)
	if err != nil {
		return err
	}
	start := b.Off - h.adj
	fl.clearMagic(b.Off - flHeaderSize)
	fl.clearMagic(start)
	fl.segs[fl.segmentIndex(start)].ar.Refund(h.total)
	fl.insert(start, h.total)
	return nil
}

// insert links the region [addr, addr+size) into address order, then
// merges it with its right neighbour and its left neighbour with it.
func (fl *FreeList) insert(addr, size int) {
	prev := -1
	cur := fl.head
	for cur >= 0 && cur < addr {
		_, next := fl.node(cur)
		prev, cur = cur, next
	}

	fl.setNode(addr, size, cur)
	fl.link(prev, addr)

	if fl.mergeRight(addr) {
		fl.counters.coalesceForward++
	}
	if prev >= 0 && fl.mergeRight(prev) {
		fl.counters.coalesceBackward++
	}
}

// mergeRight absorbs the node after addr when the two touch inside one segment.
func (fl *FreeList) mergeRight(addr int) bool {
	size, next := fl.node(addr)
	if next < 0 || addr+size != next || fl.segmentIndex(addr) != fl.segmentIndex(next) {
		return false
	}
	nsize, nnext := fl.node(next)
	fl.setNode(addr, size+nsize, nnext)
	return true
}

// Defragment moves the live block directly after the first free region
// down into that region, so the freed space joins whatever follows. It does
// a bounded amount of work and is meant to be called incrementally.
//
// The returned Move must be applied to every Ref, Array or Block that
// points at the relocated allocation (see Rebind); ok is false when nothing
// was moved.
func (fl *FreeList) Defragment() (Move, bool, error) {
	if fl.closed() {
		return Move{}, false, arena.ErrClosed
	}
	f := fl.head
	if f < 0 {
		return Move{}, false, nil
	}
	fsize, fnext := fl.node(f)
	si := fl.segmentIndex(f)
	s := fl.segs[si]
	lstart := f + fsize
	if lstart >= s.end() || lstart == fnext {
		return Move{}, false, nil
	}

	h, ok := fl.readHeader(lstart)
	if !ok || h.magic != flLive {
		return Move{}, false, fmt.Errorf("%w: no live block at %d after free region %d", ErrCorrupt, lstart, f)
	}

	payload := h.total - h.adj
	newAdj := blockAdjustment(f, 1<<h.shift)
	newTotal := newAdj + payload
	leftover := lstart + h.total - (f + newTotal)
	if leftover < minBlockSize {
		return Move{}, false, nil
	}

	oldUser := lstart + h.adj
	newUser := f + newAdj
	fl.clearMagic(lstart)
	fl.clearMagic(oldUser - flHeaderSize)

	mem := s.ar.Bytes()
	copy(mem[newUser-s.base:newUser-s.base+payload], mem[oldUser-s.base:oldUser-s.base+payload])

	nh := flHeader{total: newTotal, adj: newAdj, shift: h.shift, magic: flLive}
	fl.writeHeader(f, nh)
	fl.writeHeader(newUser-flHeaderSize, nh)

	rest := f + newTotal
	fl.setNode(rest, leftover, fnext)
	fl.head = rest
	if fl.mergeRight(rest) {
		fl.counters.coalesceForward++
	}
	s.ar.Resize(newTotal - h.total)
	fl.counters.relocations++

	fl.log.Debug("relocated block", "from", oldUser, "to", newUser, "bytes", payload)
	return Move{From: oldUser, To: newUser, owner: fl.id}, true, nil
}

// Bytes returns the user region of b, or nil if b is foreign or unmapped.
func (fl *FreeList) Bytes(b Block) []byte {
	if b.owner != fl.id || fl.closed() {
		return nil
	}
	// Resolve through the header so an empty block at a segment's end
	// still maps to its own segment.
	mem, local, _ := fl.locate(b.Off-flHeaderSize, flHeaderSize+b.Size)
	if mem == nil {
		return nil
	}
	s, _ := buf.Slice(mem, local+flHeaderSize, b.Size)
	return s
}

// FreeBlocks returns the free regions in address order.
func (fl *FreeList) FreeBlocks() []Extent {
	var out []Extent
	for cur := fl.head; cur >= 0; {
		size, next := fl.node(cur)
		out = append(out, Extent{Off: cur, Size: size})
		cur = next
	}
	return out
}

// LargestFree returns the size of the largest free region.
func (fl *FreeList) LargestFree() int {
	largest := 0
	for _, e := range fl.FreeBlocks() {
		largest = max(largest, e.Size)
	}
	return largest
}

// Capacity returns the total size of all segments.
func (fl *FreeList) Capacity() int {
	n := 0
	for _, s := range fl.segs {
		n += s.ar.Cap()
	}
	return n
}

// Segments returns the number of owned segments.
func (fl *FreeList) Segments() int { return len(fl.segs) }

// BytesInUse returns the bytes charged to live allocations, headers and
// alignment padding included.
func (fl *FreeList) BytesInUse() int {
	n := 0
	for _, s := range fl.segs {
		n += s.ar.BytesInUse()
	}
	return n
}

// AllocationCount returns the number of live allocations.
func (fl *FreeList) AllocationCount() int {
	n := 0
	for _, s := range fl.segs {
		n += s.ar.AllocationCount()
	}
	return n
}

// Stats returns a snapshot of the allocator's counters.
func (fl *FreeList) Stats() Stats {
	return Stats{
		Kind:             "freelist",
		Capacity:         fl.Capacity(),
		BytesInUse:       fl.BytesInUse(),
		Allocations:      fl.AllocationCount(),
		FreeBlocks:       len(fl.FreeBlocks()),
		Segments:         len(fl.segs),
		Grows:            fl.counters.grows,
		Splits:           fl.counters.splits,
		CoalesceForward:  fl.counters.coalesceForward,
		CoalesceBackward: fl.counters.coalesceBackward,
		Relocations:      fl.counters.relocations,
	}
}

// Close releases every segment. Live allocations are reported through
// arena.ErrLeaked.
func (fl *FreeList) Close() error {
	if fl.closed() {
		return nil
	}
	inUse, count := fl.BytesInUse(), fl.AllocationCount()
	var errs []error
	for _, s := range fl.segs {
		errs = append(errs, s.ar.Close())
	}
	err := errors.Join(errs...)
	if errors.Is(err, arena.ErrLeaked) {
		fl.log.Warn("closed with live allocations", "bytes", inUse, "allocations", count)
	}
	fl.head = -1
	return err
}

var _ Allocator = (*FreeList)(nil)

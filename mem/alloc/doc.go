// Package alloc provides arena-backed sub-allocators for real-time code
// that must not lean on the garbage-collected heap inside hot loops.
//
// # Overview
//
// Every allocator owns one or more arenas (see package arena) acquired at
// construction and hands out Blocks: offset/size tokens into that memory.
// Bookkeeping lives inside the arena itself, as small headers next to each
// allocation or as intrusive nodes threaded through free memory, and is
// read and written at explicit byte offsets.
//
// # Allocators
//
// Linear: bump pointer, O(1) allocation, memory reclaimed only by Reset.
//
// Stack: LIFO allocation with an 8-byte header per block. Blocks are freed
// newest-first; anything else fails with ErrOutOfOrder.
//
// Pool[T]: fixed-size chunks for one element type, O(1) New/Delete through
// an intrusive free list, LIFO reuse, no growth.
//
// FreeList: variable-size, first-fit, address-ordered free list with
// coalescing on both sides, on-demand growth by whole segments and
// incremental Defragment.
//
// DoubleFrame: two stacks swapped once per frame, so last frame's data is
// readable while this frame's is written.
//
// # Typed Allocation
//
// Go has no generic methods, so typed allocation is done with functions
// that accept any Allocator:
//
//	fl, err := alloc.NewFreeList(64<<10, nil)
//	if err != nil {
//	    return err
//	}
//	defer fl.Close()
//
//	ref, err := alloc.NewWith(fl, Vec3{X: 1, Y: 2, Z: 3})
//	if err != nil {
//	    return err // alloc.ErrOutOfMemory, alloc.ErrGrowFail, ...
//	}
//	ref.Get().X += 1
//
//	verts, err := alloc.NewArray[Vec3](fl, 128)
//	...
//	_ = alloc.DeleteArray(fl, verts)
//	_ = alloc.Delete(fl, ref)
//
// Element types must not contain Go pointers (strings, slices, maps,
// interfaces, pointers): arena memory is invisible to the garbage
// collector. Such types are rejected with ErrPointerType. Types whose
// pointer implements Destroyer get Destroy called before their storage is
// returned.
//
// # Failure Modes
//
// Exhaustion is reported as ErrOutOfMemory and never retried, except by
// FreeList, which grows once and reports ErrGrowFail if that fails.
// Misuse of tokens (out-of-order stack frees, double frees, blocks from
// another allocator) is detected and returned as an error rather than
// corrupting the arena. Misaligned requests panic.
//
// # Relocation
//
// FreeList.Defragment moves one live block per call and returns a Move
// describing it. Apply the Move with Rebind (or Move.Apply for raw Blocks)
// to every handle that may refer to the moved allocation; handles that are
// not rebound point at stale memory.
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Callers must synchronize access
// externally.
package alloc

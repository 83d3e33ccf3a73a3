package main

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"unsafe"

	"github.com/joshuapare/memkit/mem/alloc"
	"github.com/joshuapare/memkit/mem/report"
)

type vec3 struct{ X, Y, Z float32 }

type particle struct {
	Pos, Vel vec3
	Age      float32
	ID       uint32
}

// workload sizes a synthetic run.
type workload struct {
	Capacity int
	Ops      int // operations per frame
	Frames   int
	Seed     int64
}

// runResult is what a workload reports.
type runResult struct {
	Workload string         `json:"workload"`
	Entries  []report.Entry `json:"allocators"`
	Refused  int            `json:"refused"`
}

type workloadFunc func(cfg workload, rng *rand.Rand, res *runResult) error

var workloads = map[string]workloadFunc{
	"linear":   runLinear,
	"stack":    runStack,
	"pool":     runPool,
	"freelist": runFreeList,
	"frames":   runFrames,
}

func workloadNames() []string {
	names := make([]string, 0, len(workloads))
	for name := range workloads {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runWorkload(name string, cfg workload) (runResult, error) {
	fn, ok := workloads[name]
	if !ok {
		return runResult{}, fmt.Errorf("unknown workload %q", name)
	}
	if cfg.Capacity <= 0 || cfg.Ops <= 0 || cfg.Frames <= 0 {
		return runResult{}, fmt.Errorf("capacity, ops and frames must be positive")
	}
	res := runResult{Workload: name}
	err := fn(cfg, rand.New(rand.NewSource(cfg.Seed)), &res)
	return res, err
}

// refused counts out-of-memory failures and passes every other error on.
func (r *runResult) refused(err error) error {
	if errors.Is(err, alloc.ErrOutOfMemory) {
		r.Refused++
		return nil
	}
	return err
}

// keepPeak records a snapshot of a when it uses more than the current one.
func keepPeak(peak *report.Entry, name string, a alloc.Allocator) {
	if peak.Kind == "" || a.BytesInUse() > peak.BytesInUse {
		*peak = report.Snapshot(name, a)
	}
}

// runLinear fills a bump allocator with vertex batches every frame and
// rewinds it at frame end.
func runLinear(cfg workload, rng *rand.Rand, res *runResult) (err error) {
	l, err := alloc.NewLinear(cfg.Capacity, nil)
	if err != nil {
		return err
	}
	defer func() { l.Reset(); err = errors.Join(err, l.Close()) }()

	var peak report.Entry
	for frame := range cfg.Frames {
		for range cfg.Ops {
			if _, err := alloc.NewArray[vec3](l, 1+rng.Intn(16)); err != nil {
				if err := res.refused(err); err != nil {
					return err
				}
			}
		}
		keepPeak(&peak, fmt.Sprintf("linear@%d", frame), l)
		printVerbose("frame %d: %d bytes in %d allocations\n", frame, l.BytesInUse(), l.AllocationCount())
		l.Reset()
	}
	res.Entries = append(res.Entries, peak)
	return nil
}

// runStack opens and closes nested scopes, always popping the newest block.
func runStack(cfg workload, rng *rand.Rand, res *runResult) (err error) {
	s, err := alloc.NewStack(cfg.Capacity, nil)
	if err != nil {
		return err
	}
	defer func() { s.Clear(); err = errors.Join(err, s.Close()) }()

	var peak report.Entry
	var live []alloc.Block
	for frame := range cfg.Frames {
		for range cfg.Ops {
			if len(live) > 0 && rng.Intn(3) == 0 {
				if err := s.Deallocate(live[len(live)-1]); err != nil {
					return err
				}
				live = live[:len(live)-1]
				continue
			}
			b, err := s.Allocate(8+rng.Intn(248), 1<<rng.Intn(5))
			if err != nil {
				if err := res.refused(err); err != nil {
					return err
				}
				continue
			}
			live = append(live, b)
		}
		keepPeak(&peak, fmt.Sprintf("stack@%d", frame), s)
		for i := len(live) - 1; i >= 0; i-- {
			if err := s.Deallocate(live[i]); err != nil {
				return err
			}
		}
		live = live[:0]
	}
	res.Entries = append(res.Entries, peak)
	return nil
}

// runPool spawns and ages particles; a particle dies after a few frames.
func runPool(cfg workload, rng *rand.Rand, res *runResult) (err error) {
	chunks := max(cfg.Capacity/int(unsafe.Sizeof(particle{})), 1)
	p, err := alloc.NewPool[particle](chunks, nil)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, p.Close()) }()

	var peak report.Entry
	var live []alloc.Ref[particle]
	var nextID uint32
	for frame := range cfg.Frames {
		for range cfg.Ops {
			nextID++
			r, err := p.NewWith(particle{
				Vel: vec3{X: rng.Float32(), Y: rng.Float32(), Z: rng.Float32()},
				ID:  nextID,
			})
			if err != nil {
				if err := res.refused(err); err != nil {
					return err
				}
				continue
			}
			live = append(live, r)
		}
		keepPeak(&peak, fmt.Sprintf("pool@%d", frame), p)

		kept := live[:0]
		for _, r := range live {
			pt := r.Get()
			pt.Age++
			pt.Pos.X += pt.Vel.X
			pt.Pos.Y += pt.Vel.Y
			pt.Pos.Z += pt.Vel.Z
			if pt.Age > 2+float32(rng.Intn(3)) {
				if err := p.Delete(r); err != nil {
					return err
				}
				continue
			}
			kept = append(kept, r)
		}
		live = kept
		printVerbose("frame %d: %d live particles, %d free chunks\n", frame, p.LiveChunks(), p.FreeChunks())
	}
	for _, r := range live {
		if err := p.Delete(r); err != nil {
			return err
		}
	}
	res.Entries = append(res.Entries, peak)
	return nil
}

// runFreeList allocates and frees blocks of mixed size and alignment,
// letting the heap grow when it runs out.
func runFreeList(cfg workload, rng *rand.Rand, res *runResult) (err error) {
	fl, err := alloc.NewFreeList(cfg.Capacity, nil)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, fl.Close()) }()

	live, err := churn(fl, cfg, rng, res)
	if err != nil {
		return err
	}
	res.Entries = append(res.Entries, report.Snapshot("freelist", fl))
	for _, lb := range live {
		if err := fl.Deallocate(lb.blk); err != nil {
			return err
		}
	}
	return nil
}

type liveBlock struct {
	blk alloc.Block
	tag byte
}

// churn runs cfg.Frames*cfg.Ops random steps against fl and returns the
// blocks still live. Every block is filled with its own tag byte.
func churn(fl *alloc.FreeList, cfg workload, rng *rand.Rand, res *runResult) ([]liveBlock, error) {
	var live []liveBlock
	for step := range cfg.Frames * cfg.Ops {
		if len(live) > 0 && rng.Intn(5) < 2 {
			k := rng.Intn(len(live))
			if err := fl.Deallocate(live[k].blk); err != nil {
				return nil, err
			}
			live[k] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		b, err := fl.Allocate(16+rng.Intn(1009), 1<<rng.Intn(7))
		if err != nil {
			if err := res.refused(err); err != nil {
				return nil, err
			}
			continue
		}
		lb := liveBlock{blk: b, tag: byte(step)}
		mem := fl.Bytes(b)
		for i := range mem {
			mem[i] = lb.tag
		}
		live = append(live, lb)
	}
	return live, nil
}

// runFrames writes per-frame vertex data into a DoubleFrame and reads the
// previous frame's data back before it is discarded.
func runFrames(cfg workload, rng *rand.Rand, res *runResult) (err error) {
	df, err := alloc.NewDoubleFrame(cfg.Capacity, nil)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, df.Close()) }()

	var peak report.Entry
	var prev []alloc.Array[vec3]
	for frame := range cfg.Frames {
		df.SwapBuffers()
		df.ClearActiveBuffer()

		var cur []alloc.Array[vec3]
		for range cfg.Ops {
			arr, err := alloc.NewArray[vec3](df, 1+rng.Intn(32))
			if err != nil {
				if err := res.refused(err); err != nil {
					return err
				}
				continue
			}
			for i := range arr.Elems() {
				arr.Elems()[i] = vec3{X: float32(frame), Y: float32(i)}
			}
			cur = append(cur, arr)
		}
		for _, arr := range prev {
			if got := arr.Elems()[0].X; got != float32(frame-1) {
				return fmt.Errorf("frame %d: previous frame data overwritten (found frame %v)", frame, got)
			}
		}
		keepPeak(&peak, "frames", df)
		printVerbose("frame %d: buffer %d holds %d bytes\n", frame, df.Active(), df.Buffer(df.Active()).BytesInUse())
		prev = cur
	}
	res.Entries = append(res.Entries, peak,
		report.Snapshot("frame[0]", df.Buffer(0)),
		report.Snapshot("frame[1]", df.Buffer(1)))
	return nil
}

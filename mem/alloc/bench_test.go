package alloc

import (
	"math/rand"
	"testing"
)

func BenchmarkLinear_Allocate(b *testing.B) {
	l, err := NewLinear(1<<20, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer l.Close()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := l.Allocate(48, 16); err != nil {
			l.Reset()
		}
	}
	l.Reset()
}

func BenchmarkStack_PushPop(b *testing.B) {
	s, err := NewStack(1<<16, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer s.Close()

	b.ReportAllocs()
	for b.Loop() {
		x, _ := s.Allocate(64, 16)
		y, _ := s.Allocate(32, 8)
		_ = s.Deallocate(y)
		_ = s.Deallocate(x)
	}
}

func BenchmarkPool_NewDelete(b *testing.B) {
	p, err := NewPool[Mat4](1024, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	b.ReportAllocs()
	for b.Loop() {
		r, err := p.New()
		if err != nil {
			b.Fatal(err)
		}
		_ = p.Delete(r)
	}
}

func BenchmarkFreeList_AllocFree(b *testing.B) {
	fl, err := NewFreeList(1<<20, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer fl.Close()

	b.ReportAllocs()
	for b.Loop() {
		blk, err := fl.Allocate(128, 16)
		if err != nil {
			b.Fatal(err)
		}
		_ = fl.Deallocate(blk)
	}
}

// BenchmarkFreeList_Fragmented measures first-fit over a list of many
// small free regions left by freeing every other block.
func BenchmarkFreeList_Fragmented(b *testing.B) {
	fl, err := NewFreeList(1<<20, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer fl.Close()

	rng := rand.New(rand.NewSource(42))
	var keep []Block
	for i := range 2048 {
		blk, err := fl.Allocate(16+rng.Intn(112), 8)
		if err != nil {
			b.Fatal(err)
		}
		if i%2 == 0 {
			_ = fl.Deallocate(blk)
		} else {
			keep = append(keep, blk)
		}
	}

	b.ReportAllocs()
	for b.Loop() {
		blk, err := fl.Allocate(96, 8)
		if err != nil {
			b.Fatal(err)
		}
		_ = fl.Deallocate(blk)
	}
	b.StopTimer()
	for _, blk := range keep {
		_ = fl.Deallocate(blk)
	}
}

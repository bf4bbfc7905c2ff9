package bitset

import (
	"sync"
	"testing"
)

func TestBitSet(t *testing.T) {
	b := New(100)

	if b.Len() != 100 {
		t.Errorf("expected len 100, got %d", b.Len())
	}

	b.Set(10)
	if !b.Test(10) {
		t.Errorf("expected bit 10 to be set")
	}
	if b.Count() != 1 {
		t.Errorf("expected count 1, got %d", b.Count())
	}

	b.Unset(10)
	if b.Test(10) {
		t.Errorf("expected bit 10 to be unset")
	}

	b.Set(10)
	b.Set(20)
	b.Set(30)
	b.Set(500) // out of range, ignored
	if b.Count() != 3 {
		t.Errorf("expected count 3, got %d", b.Count())
	}

	b.ClearAll()
	if b.Count() != 0 {
		t.Errorf("expected count 0 after clear, got %d", b.Count())
	}
}

func TestBitSet_Grow(t *testing.T) {
	b := New(10)
	b.Set(5)

	b.Grow(200000)
	if !b.Test(5) {
		t.Errorf("expected bit 5 to persist after grow")
	}
	b.Set(150000)
	if !b.Test(150000) {
		t.Errorf("expected bit 150000 to be set")
	}

	b.Grow(10)
	if b.Len() != 200000 {
		t.Errorf("shrinking grow must be a no-op, got len %d", b.Len())
	}
}

func TestBitSet_NextSetBit(t *testing.T) {
	b := New(200000)
	for _, i := range []uint64{3, 64, 70000} {
		b.Set(i)
	}

	var got []int64
	for i := b.NextSetBit(0); i >= 0; i = b.NextSetBit(uint64(i) + 1) {
		got = append(got, i)
	}
	want := []int64{3, 64, 70000}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if n := b.NextSetBit(70001); n != -1 {
		t.Errorf("expected -1, got %d", n)
	}
	if n := New(0).NextSetBit(0); n != -1 {
		t.Errorf("expected -1 on empty set, got %d", n)
	}
}

func TestBitSet_ConcurrentReaders(t *testing.T) {
	b := New(1024)
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := uint64(0); i < 1024; i++ {
				_ = b.Test(i)
			}
		}()
	}
	for i := uint64(0); i < 1024; i += 2 {
		b.Set(i)
	}
	wg.Wait()

	if b.Count() != 512 {
		t.Errorf("expected 512 set bits, got %d", b.Count())
	}
}

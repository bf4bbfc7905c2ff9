package bitset

import (
	"math/bits"
	"sync/atomic"
)

const (
	// segmentBits determines the size of each segment.
	// 16 bits = 65536 bits per segment.
	segmentBits = 16
	segmentSize = 1 << segmentBits
	segmentMask = segmentSize - 1

	wordsPerSegment = segmentSize / 64
)

// BitSegment is a fixed-size segment of the bitset.
type BitSegment [wordsPerSegment]atomic.Uint64

// BitSet is a lock-free, segmented bitset. Bits may be read from any goroutine
// while a single writer sets and clears them; growth never moves a segment.
type BitSet struct {
	segments atomic.Pointer[[]*BitSegment]
	size     atomic.Uint64
}

// New creates a new BitSet with the given size (in bits).
func New(size uint64) *BitSet {
	b := &BitSet{}
	b.Grow(size)
	return b
}

func (b *BitSet) growSegments(size uint64) {
	if size == 0 {
		return
	}
	targetIdx := int((size - 1) >> segmentBits)

	for {
		old := b.segments.Load()
		currentLen := 0
		if old != nil {
			currentLen = len(*old)
		}
		if targetIdx < currentLen {
			return
		}

		grown := make([]*BitSegment, targetIdx+1)
		if old != nil {
			copy(grown, *old)
		}
		for i := currentLen; i < len(grown); i++ {
			grown[i] = new(BitSegment)
		}
		if b.segments.CompareAndSwap(old, &grown) {
			return
		}
	}
}

// word returns the word holding bit i and the mask selecting it, or nil if
// i is out of range.
func (b *BitSet) word(i uint64) (*atomic.Uint64, uint64) {
	if i >= b.size.Load() {
		return nil, 0
	}
	segments := b.segments.Load()
	segIdx := int(i >> segmentBits)
	if segments == nil || segIdx >= len(*segments) {
		return nil, 0
	}
	offset := i & segmentMask
	return &(*segments)[segIdx][offset/64], uint64(1) << (offset % 64)
}

// Set sets the bit at the given index. Out of range indices are ignored.
func (b *BitSet) Set(i uint64) {
	if w, mask := b.word(i); w != nil {
		w.Or(mask)
	}
}

// Unset clears the bit at the given index.
func (b *BitSet) Unset(i uint64) {
	if w, mask := b.word(i); w != nil {
		w.And(^mask)
	}
}

// Test returns true if the bit at the given index is set.
func (b *BitSet) Test(i uint64) bool {
	w, mask := b.word(i)
	return w != nil && w.Load()&mask != 0
}

// NextSetBit returns the index of the next set bit starting from i (inclusive).
// Returns -1 if no bit is set at or after i.
func (b *BitSet) NextSetBit(i uint64) int64 {
	size := b.size.Load()
	segments := b.segments.Load()
	if i >= size || segments == nil {
		return -1
	}

	segIdx := int(i >> segmentBits)
	wordIdx := int((i & segmentMask) / 64)
	val := (*segments)[segIdx][wordIdx].Load() &^ ((uint64(1) << (i % 64)) - 1)

	for {
		if val != 0 {
			found := uint64(segIdx)*segmentSize + uint64(wordIdx)*64 + uint64(bits.TrailingZeros64(val))
			if found >= size {
				return -1
			}
			return int64(found)
		}
		wordIdx++
		if wordIdx == wordsPerSegment {
			wordIdx = 0
			segIdx++
			if segIdx >= len(*segments) {
				return -1
			}
		}
		val = (*segments)[segIdx][wordIdx].Load()
	}
}

// Grow ensures the bitset can hold at least size bits.
func (b *BitSet) Grow(size uint64) {
	// Segments must exist before the size makes them reachable.
	b.growSegments(size)
	for {
		cur := b.size.Load()
		if size <= cur || b.size.CompareAndSwap(cur, size) {
			return
		}
	}
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	segments := b.segments.Load()
	if segments == nil {
		return 0
	}
	count := 0
	for _, seg := range *segments {
		for i := range seg {
			if v := seg[i].Load(); v != 0 {
				count += bits.OnesCount64(v)
			}
		}
	}
	return count
}

// ClearAll clears all bits in the bitset.
func (b *BitSet) ClearAll() {
	segments := b.segments.Load()
	if segments == nil {
		return
	}
	for _, seg := range *segments {
		for i := range seg {
			seg[i].Store(0)
		}
	}
}

// Len returns the size of the bitset in bits.
func (b *BitSet) Len() uint64 {
	return b.size.Load()
}

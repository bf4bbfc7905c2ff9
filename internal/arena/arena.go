// Package arena provides a generational fixed-slot arena for pooled graph
// entities.
//
// # Concurrency Model
//
// The arena has exactly one writer. Create, Free and Close must not run
// concurrently with each other. Liveness bits are atomic, so Validate, RefAt
// and All may be called from other goroutines while the writer is idle or
// holds a lock that the reader also respects (the Model's RWMutex).
//
// # Memory Management
//
// Slots live in chunks that are never moved once allocated, so a slot's
// bytes stay addressable across growth. Chunks come from the Go heap or,
// with WithOffHeap, from anonymous memory mappings outside the GC. Freed
// slot indices are recycled LIFO; each free bumps the slot generation so
// outstanding Refs to it resolve to ErrStaleRef.
package arena

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"math/bits"
	"sync/atomic"

	"github.com/hupe1980/celltrack/internal/bitset"
	"github.com/hupe1980/celltrack/internal/mmap"
)

// MemoryAcquirer reserves memory for new chunks. resource.Controller
// satisfies it.
type MemoryAcquirer interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

var (
	// ErrStaleRef is returned when a Ref points at a freed or reused slot.
	ErrStaleRef = errors.New("arena: stale reference")
	// ErrClosed is returned by operations on a closed arena.
	ErrClosed = errors.New("arena: closed")
	// ErrCapacityExceeded is returned when the slot index space is exhausted.
	ErrCapacityExceeded = errors.New("arena: capacity exceeded")
)

const (
	// DefaultChunkSize is the target chunk size in bytes (1MB).
	DefaultChunkSize = 1024 * 1024
	// MaxSlots bounds slot indices to the int32 range used in slot layouts.
	MaxSlots = math.MaxInt32
)

// Ref is a generation-tagged reference to an arena slot.
type Ref struct {
	Index int32
	Gen   uint32
}

// NilRef is the reference to no slot.
var NilRef = Ref{Index: -1}

// IsNil reports whether r refers to no slot.
func (r Ref) IsNil() bool { return r.Index < 0 }

func (r Ref) String() string {
	if r.IsNil() {
		return "Ref(nil)"
	}
	return fmt.Sprintf("Ref(%d@%d)", r.Index, r.Gen)
}

// StaleRefError describes a Ref that no longer resolves.
type StaleRefError struct {
	Ref Ref
	// Current is the slot's present generation, 0 if the index was never
	// allocated.
	Current uint32
}

func (e *StaleRefError) Error() string {
	return fmt.Sprintf("arena: stale reference %s (current generation %d)", e.Ref, e.Current)
}

func (e *StaleRefError) Unwrap() error { return ErrStaleRef }

// Stats tracks arena usage.
type Stats struct {
	Live            int    // Current: live slots
	HighWater       int    // Current: slot indices ever handed out
	Free            int    // Current: recyclable slot indices
	ActiveChunks    int    // Current: chunks held
	BytesReserved   uint64 // Current: bytes held by chunks
	ChunksAllocated uint64 // Historical: chunks ever created
	Creates         uint64 // Historical: Create calls
	Reuses          uint64 // Historical: Creates served from the free list
}

type chunk struct {
	data   []byte
	region *mmap.Region // off-heap backing, nil for heap chunks
}

// Arena is a growable array of fixed-size slots.
type Arena struct {
	slotSize  int
	chunkBits int
	chunkMask int32
	chunks    []*chunk

	gens []uint32
	live *bitset.BitSet
	free []int32
	high int32
	n    int

	offHeap  bool
	acquirer MemoryAcquirer
	logger   *slog.Logger
	closed   bool

	chunksAllocated atomic.Uint64
	bytesReserved   atomic.Uint64
	creates         atomic.Uint64
	reuses          atomic.Uint64
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithOffHeap backs chunks with anonymous memory mappings.
func WithOffHeap() Option {
	return func(a *Arena) {
		a.offHeap = true
	}
}

// WithMemoryAcquirer sets the memory acquirer consulted before each chunk.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithLogger sets the logger used for chunk growth.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithCapacity preallocates chunks for at least n slots.
func WithCapacity(n int) Option {
	return func(a *Arena) {
		a.gens = make([]uint32, 0, max(n, 0))
	}
}

// New creates an Arena whose slots are slotSize bytes.
func New(slotSize int, opts ...Option) (*Arena, error) {
	if slotSize <= 0 {
		return nil, fmt.Errorf("arena: invalid slot size %d", slotSize)
	}

	// Largest power of two slot count that fits the chunk size, at least 1.
	perChunk := max(DefaultChunkSize/slotSize, 1)
	chunkBits := bits.Len(uint(perChunk)) - 1

	a := &Arena{
		slotSize:  slotSize,
		chunkBits: chunkBits,
		chunkMask: int32(1)<<chunkBits - 1,
		live:      bitset.New(0),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}

	if want := cap(a.gens); want > 0 {
		for len(a.chunks)<<a.chunkBits < want {
			if err := a.allocateChunk(); err != nil {
				a.Close()
				return nil, err
			}
		}
	}
	return a, nil
}

func (a *Arena) chunkBytes() int {
	return a.slotSize << a.chunkBits
}

func (a *Arena) allocateChunk() error {
	size := a.chunkBytes()
	if a.acquirer != nil {
		if err := a.acquirer.AcquireMemory(int64(size)); err != nil {
			return err
		}
	}

	c := &chunk{}
	if a.offHeap {
		m, err := mmap.Anon(size)
		if err != nil {
			if a.acquirer != nil {
				a.acquirer.ReleaseMemory(int64(size))
			}
			return fmt.Errorf("failed to map anonymous memory for chunk: %w", err)
		}
		c.data, c.region = m.Bytes(), m
	} else {
		c.data = make([]byte, size)
	}

	a.chunks = append(a.chunks, c)
	a.live.Grow(uint64(len(a.chunks) << a.chunkBits))
	a.chunksAllocated.Add(1)
	a.bytesReserved.Add(uint64(size))

	a.logger.Debug("arena chunk allocated",
		slog.Int("chunk", len(a.chunks)-1),
		slog.Int("bytes", size),
		slog.Bool("off_heap", a.offHeap),
	)
	return nil
}

// SlotSize returns the size of one slot in bytes.
func (a *Arena) SlotSize() int { return a.slotSize }

// Len returns the number of live slots.
func (a *Arena) Len() int { return a.n }

// HighWater returns one past the largest slot index ever handed out.
func (a *Arena) HighWater() int32 { return a.high }

// Create allocates a zeroed slot and returns its reference.
func (a *Arena) Create() (Ref, error) {
	if a.closed {
		return NilRef, ErrClosed
	}

	var idx int32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		clear(a.Slot(idx))
		a.reuses.Add(1)
	} else {
		if a.high == MaxSlots {
			return NilRef, ErrCapacityExceeded
		}
		idx = a.high
		if int(idx)>>a.chunkBits >= len(a.chunks) {
			if err := a.allocateChunk(); err != nil {
				return NilRef, err
			}
		}
		a.high++
		// Generation 0 is never live, so a zero Ref never resolves.
		a.gens = append(a.gens, 1)
	}

	a.live.Set(uint64(idx))
	a.n++
	a.creates.Add(1)
	return Ref{Index: idx, Gen: a.gens[idx]}, nil
}

// Free returns the slot to the free list and invalidates every Ref to it.
func (a *Arena) Free(ref Ref) error {
	if err := a.Validate(ref); err != nil {
		return err
	}
	idx := ref.Index
	a.gens[idx]++
	if a.gens[idx] == 0 {
		a.gens[idx] = 1
	}
	a.live.Unset(uint64(idx))
	a.free = append(a.free, idx)
	a.n--
	return nil
}

// Validate returns a *StaleRefError unless ref resolves to a live slot.
func (a *Arena) Validate(ref Ref) error {
	if a.closed {
		return ErrClosed
	}
	if ref.Index < 0 || ref.Index >= a.high {
		return &StaleRefError{Ref: ref}
	}
	cur := a.gens[ref.Index]
	if cur != ref.Gen || !a.live.Test(uint64(ref.Index)) {
		return &StaleRefError{Ref: ref, Current: cur}
	}
	return nil
}

// Bytes returns the slot bytes for ref after validating it.
func (a *Arena) Bytes(ref Ref) ([]byte, error) {
	if err := a.Validate(ref); err != nil {
		return nil, err
	}
	return a.Slot(ref.Index), nil
}

// Slot returns the bytes of slot idx without any validity check.
// The index must be below HighWater.
func (a *Arena) Slot(idx int32) []byte {
	c := a.chunks[idx>>a.chunkBits]
	off := int(idx&a.chunkMask) * a.slotSize
	return c.data[off : off+a.slotSize : off+a.slotSize]
}

// RefAt returns the current Ref of slot idx if it is live.
func (a *Arena) RefAt(idx int32) (Ref, bool) {
	if idx < 0 || idx >= a.high || !a.live.Test(uint64(idx)) {
		return NilRef, false
	}
	return Ref{Index: idx, Gen: a.gens[idx]}, true
}

// Live reports whether slot idx is currently allocated.
func (a *Arena) Live(idx int32) bool {
	return idx >= 0 && idx < a.high && a.live.Test(uint64(idx))
}

// All yields every live slot in ascending index order.
func (a *Arena) All() iter.Seq[Ref] {
	return func(yield func(Ref) bool) {
		for i := a.live.NextSetBit(0); i >= 0; i = a.live.NextSetBit(uint64(i) + 1) {
			idx := int32(i)
			if !yield(Ref{Index: idx, Gen: a.gens[idx]}) {
				return
			}
		}
	}
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		Live:            a.n,
		HighWater:       int(a.high),
		Free:            len(a.free),
		ActiveChunks:    len(a.chunks),
		BytesReserved:   a.bytesReserved.Load(),
		ChunksAllocated: a.chunksAllocated.Load(),
		Creates:         a.creates.Load(),
		Reuses:          a.reuses.Load(),
	}
}

// Close releases all chunks. Slices obtained from Slot or Bytes become
// invalid and every Ref resolves to ErrClosed. Close is idempotent.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	for _, c := range a.chunks {
		if c.region != nil {
			errs = append(errs, c.region.Close())
		}
	}
	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(int64(a.bytesReserved.Load()))
	}
	a.chunks = nil
	a.free = nil
	a.bytesReserved.Store(0)
	return errors.Join(errs...)
}

func (a *Arena) String() string {
	s := a.Stats()
	return fmt.Sprintf(
		"Arena{slot: %dB, live: %d, free: %d, chunks: %d, reserved: %.2f MB}",
		a.slotSize, s.Live, s.Free, s.ActiveChunks, float64(s.BytesReserved)/(1024*1024),
	)
}

package mmap

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrClosed is returned by Advise on a closed region.
	ErrClosed = errors.New("mmap: region is closed")
	// ErrInvalidSize is returned for empty anonymous regions and files too
	// large to address.
	ErrInvalidSize = errors.New("mmap: invalid size")
)

// Advice tells the kernel how a region will be read.
type Advice int

const (
	// Normal drops any earlier advice.
	Normal Advice = iota
	// Sequential favors read-ahead, as when a saved model is parsed front
	// to back.
	Sequential
	// Random disables read-ahead.
	Random
	// DontNeed lets the kernel reclaim the pages. Anonymous pages read back
	// as zero afterwards.
	DontNeed
)

// Region is a mapped byte range that is unmapped on Close.
type Region struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// File maps the file at path read-only. An empty file yields an empty
// region that needs no unmapping.
func File(path string) (*Region, error) {
	data, unmap, err := mapFile(path)
	if err != nil {
		return nil, err
	}
	return &Region{data: data, unmap: unmap}, nil
}

// Anon maps size zero-filled, writable bytes that the GC never scans.
func Anon(size int) (*Region, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, unmap, err := mapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Region{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped memory, or nil once closed.
func (r *Region) Bytes() []byte {
	if r.closed.Load() {
		return nil
	}
	return r.data
}

// Len returns the mapped size in bytes.
func (r *Region) Len() int {
	if r.closed.Load() {
		return 0
	}
	return len(r.data)
}

// Advise passes a to the kernel. Platforms without madvise ignore it.
func (r *Region) Advise(a Advice) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if len(r.data) == 0 {
		return nil
	}
	return advise(r.data, a)
}

// Close unmaps the region.
func (r *Region) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	data := r.data
	r.data = nil
	if r.unmap == nil || data == nil {
		return nil
	}
	return r.unmap(data)
}

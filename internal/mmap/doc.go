// Package mmap maps memory outside the Go heap.
//
// Two kinds of Region exist. Anon regions back off-heap arena chunks and
// are read-write and zero-filled. File regions give local blob stores a
// read-only, zero-copy view of a saved model.
//
// A Region must not be touched after Close. Close itself is idempotent.
package mmap

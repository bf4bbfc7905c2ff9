// Package bitset provides a lock-free segmented bitset.
//
// Architecture:
//   - Segmented design: 1024 uint64 words (65536 bits) per segment
//   - Lock-free: atomic.Pointer for the segment table, atomic.Uint64 for words
//   - Growth appends segments and never moves existing ones
//
// Used internally for slot liveness in the arena, so that iteration and
// validity checks can run concurrently with the single graph writer.
package bitset

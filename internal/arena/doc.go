// Package arena stores pooled graph entities in fixed-size byte slots.
//
// # Features
//
//   - Fixed slot size per arena, one arena per entity kind
//   - Stable slot addresses: chunks are appended, never moved
//   - Optional off-heap chunks via anonymous mmap (no GC scanning)
//   - Generation-tagged Refs: resolving a freed or reused slot returns a
//     *StaleRefError matching ErrStaleRef
//
// # Safety
//
// Checked accessors (Bytes, Validate, Free) return errors instead of
// panicking. Slot is the unchecked fast path for callers that have already
// validated a Ref.
package arena

// Package conv narrows and widens integers at the int32 boundaries of slot
// storage and the raw graph format. Conversions that are safe by
// construction, like loop indices below an arena's high water mark, use
// plain casts instead.
package conv

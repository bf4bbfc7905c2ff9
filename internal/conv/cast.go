package conv

import (
	"fmt"
	"math"
)

// RangeError reports a value that does not fit the target width.
type RangeError struct {
	Value  int64
	Target string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("conv: %d out of range for %s", e.Value, e.Target)
}

// Int32 narrows an index or count to the int32 used in slots and in the
// raw graph format.
func Int32(v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, &RangeError{Value: int64(v), Target: "int32"}
	}
	return int32(v), nil
}

// Count widens a stored count, rejecting negative values.
func Count(v int32) (int, error) {
	if v < 0 {
		return 0, &RangeError{Value: int64(v), Target: "count"}
	}
	return int(v), nil
}

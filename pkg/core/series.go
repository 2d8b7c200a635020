package core

import (
	"golang.org/x/exp/constraints"
)

// Series is a time series of ordered values, oldest first
type Series[T constraints.Ordered] []T

// Last returns the value at a specified position from the end.
// Position 0 is the last value, 1 is the second-to-last, etc.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

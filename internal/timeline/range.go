// Package timeline provides the half-open time interval used by every
// editing operation that needs temporal bounds on a media timeline.
package timeline

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned when an interval is malformed or falls outside
// the media it refers to.
var ErrInvalidRange = errors.New("invalid time range")

// Range is an immutable half-open interval [begin, end) in seconds.
// The zero value is not a valid range; use New.
type Range struct {
	begin float64
	end   float64
}

// New returns the range [begin, end).
// It fails with ErrInvalidRange when end <= begin, when either bound is
// negative, or when either bound is NaN or infinite.
func New(begin, end float64) (Range, error) {
	if !finite(begin) || !finite(end) {
		return Range{}, fmt.Errorf("%w: bounds must be finite (begin=%v, end=%v)", ErrInvalidRange, begin, end)
	}
	if begin < 0 || end < 0 {
		return Range{}, fmt.Errorf("%w: bounds must not be negative (begin=%.3f, end=%.3f)", ErrInvalidRange, begin, end)
	}
	if end <= begin {
		return Range{}, fmt.Errorf("%w: end %.3f must be after begin %.3f", ErrInvalidRange, end, begin)
	}
	return Range{begin: begin, end: end}, nil
}

// MustNew is like New but panics on error. Intended for constants and tests.
func MustNew(begin, end float64) Range {
	r, err := New(begin, end)
	if err != nil {
		panic(err)
	}
	return r
}

// Begin returns the inclusive start of the range in seconds.
func (r Range) Begin() float64 { return r.begin }

// End returns the exclusive end of the range in seconds.
func (r Range) End() float64 { return r.end }

// Duration returns End - Begin.
func (r Range) Duration() float64 { return r.end - r.begin }

// IsZero reports whether r is the zero value.
func (r Range) IsZero() bool { return r.begin == 0 && r.end == 0 }

// Overlaps reports whether the two half-open ranges share any instant.
// Ranges that only touch at a boundary do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.begin < other.end && other.begin < r.end
}

// Within reports whether r lies entirely inside [0, total].
func (r Range) Within(total float64) bool {
	return r.end <= total
}

// Contains reports whether the instant t falls inside the range.
func (r Range) Contains(t float64) bool {
	return t >= r.begin && t < r.end
}

// String formats the range as "[begin, end)".
func (r Range) String() string {
	return fmt.Sprintf("[%.3f, %.3f)", r.begin, r.end)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

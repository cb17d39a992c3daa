// Package interval provides arithmetic on half-open bit ranges and an
// ordered list of range-keyed items that merges overlapping entries.
package interval

import "fmt"

// Range is a half-open range of bit positions [First, Last).  Positions are
// signed: a range may transiently go negative before being clipped.
type Range struct {
	first, last int
}

// Make builds the range [first, last).
func Make(first, last int) Range {
	if last < first {
		panic(fmt.Sprintf("interval: inverted range [%d, %d)", first, last))
	}
	return Range{first: first, last: last}
}

// Empty reports whether the range contains no bits.
func (r Range) Empty() bool { return r.first == r.last }

// First returns the position of the first bit in the range.
func (r Range) First() int { return r.first }

// Last returns the position one past the final bit of the range.
func (r Range) Last() int { return r.last }

// Width returns the number of bits in the range.
func (r Range) Width() int { return r.last - r.first }

// Equal reports whether two ranges cover the same bits.  All empty ranges
// compare equal regardless of position.
func (r Range) Equal(o Range) bool {
	if r.Empty() || o.Empty() {
		return r.Empty() && o.Empty()
	}
	return r.first == o.first && r.last == o.last
}

// Contains reports whether every bit of o lies inside r.  An empty range is
// contained in anything.
func (r Range) Contains(o Range) bool {
	if o.Empty() {
		return true
	}
	return r.first <= o.first && o.last <= r.last
}

// Intersects reports whether the two ranges share at least one bit.
func (r Range) Intersects(o Range) bool {
	if r.Empty() || o.Empty() {
		return false
	}
	return r.first < o.last && o.first < r.last
}

// Join returns the convex hull: the smallest range containing both operands.
func (r Range) Join(o Range) Range {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Range{first: minInt(r.first, o.first), last: maxInt(r.last, o.last)}
}

// Meet returns the intersection of the two ranges, which may be empty.
func (r Range) Meet(o Range) Range {
	if r.Empty() || o.Empty() {
		return Range{}
	}
	first := maxInt(r.first, o.first)
	last := minInt(r.last, o.last)
	if last < first {
		return Range{}
	}
	return Range{first: first, last: last}
}

// Displace slides both ends of the range by the given offset.
func (r Range) Displace(offset int) Range {
	if r.Empty() {
		return r
	}
	return Range{first: r.first + offset, last: r.last + offset}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.first, r.last)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

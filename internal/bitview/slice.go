// Package bitview decomposes structural constants into raw bit windows and
// reconstructs typed constants from them, respecting target endianness and
// ABI layout.  It is the bidirectional core the field layout engine and the
// aggregate builders are built on.
package bitview

import (
	"fmt"
	"math/big"

	"bitsmith/internal/cval"
	"bitsmith/internal/interval"
)

// Slice is a contiguous range of bits held in memory.  On little-endian
// targets the least significant bit of the contents corresponds to the first
// bit of the range; on big-endian targets it corresponds to the last bit.
// Contents are nil if and only if the range is empty, and otherwise have
// integer type of bit width exactly the range width.
type Slice struct {
	eng      *Engine
	r        interval.Range
	contents cval.Value // *cval.Int or *cval.Undef
}

func (e *Engine) emptySlice() Slice {
	return Slice{eng: e}
}

// EmptySlice returns the slice with no bits.
func (e *Engine) EmptySlice() Slice {
	return e.emptySlice()
}

// MakeSlice builds a slice for the given range of bits.  Contents must be an
// integer-typed value of the range's width, or nil for an empty range.
func (e *Engine) MakeSlice(r interval.Range, contents cval.Value) Slice {
	return e.newSlice(r, contents)
}

func (e *Engine) newSlice(r interval.Range, contents cval.Value) Slice {
	if r.Empty() {
		if contents != nil {
			panic("bitview: contents for an empty slice")
		}
		return Slice{eng: e}
	}
	if contents == nil {
		panic("bitview: missing contents")
	}
	if w := e.Fold.Width(contents.Type()); w != r.Width() {
		panic(fmt.Sprintf("bitview: contents width %d does not match range %s", w, r))
	}
	return Slice{eng: e, r: r, contents: contents}
}

// Empty reports whether the bit range is empty.
func (s Slice) Empty() bool { return s.r.Empty() }

// Range returns the range of bits in this slice.
func (s Slice) Range() interval.Range { return s.r }

// Width returns the number of bits in the range.
func (s Slice) Width() int { return s.r.Width() }

// Displace returns the result of sliding all bits by the given offset.
func (s Slice) Displace(offset int) Slice {
	return Slice{eng: s.eng, r: s.r.Displace(offset), contents: s.contents}
}

// ExtendRange extends the slice to a wider range.  The added bits have an
// unspecified value: callers must not rely on them being zero.
func (s Slice) ExtendRange(r interval.Range) Slice {
	if !r.Contains(s.r) {
		panic(fmt.Sprintf("bitview: %s does not extend %s", r, s.r))
	}
	if s.r.Equal(r) {
		return s
	}
	e := s.eng
	extTy := e.Fold.IntTy(r.Width())
	if s.Empty() {
		return e.newSlice(r, &cval.Undef{Ty: extTy})
	}
	c := e.Fold.ZExtOrTrunc(s.contents, extTy)
	deltaFirst := s.r.First() - r.First()
	deltaLast := r.Last() - s.r.Last()
	if e.BigEndian() && deltaLast != 0 {
		c = e.Fold.Shl(c, deltaLast)
	} else if !e.BigEndian() && deltaFirst != 0 {
		c = e.Fold.Shl(c, deltaFirst)
	}
	return e.newSlice(r, c)
}

// ReduceRange reduces the slice to a smaller range, discarding any bits that
// do not belong to the new range.
func (s Slice) ReduceRange(r interval.Range) Slice {
	if !s.r.Contains(r) {
		panic(fmt.Sprintf("bitview: %s does not reduce %s", r, s.r))
	}
	if s.r.Equal(r) {
		return s
	}
	e := s.eng
	if r.Empty() {
		return e.emptySlice()
	}
	c := s.contents
	deltaFirst := r.First() - s.r.First()
	deltaLast := s.r.Last() - r.Last()
	if e.BigEndian() && deltaLast != 0 {
		c = e.Fold.LShr(c, deltaLast)
	} else if !e.BigEndian() && deltaFirst != 0 {
		c = e.Fold.LShr(c, deltaFirst)
	}
	c = e.Fold.Trunc(c, e.Fold.IntTy(r.Width()))
	return e.newSlice(r, c)
}

// GetBits returns the bits in the given range as an integer value.  The
// range need not be contained in the slice's own range; bits outside it are
// unspecified.
func (s Slice) GetBits(r interval.Range) cval.Value {
	if r.Empty() {
		return &cval.Undef{Ty: s.eng.Fold.IntTy(0)}
	}
	if s.r.Equal(r) {
		return s.contents
	}
	retTy := s.eng.Fold.IntTy(r.Width())
	if s.Empty() {
		return &cval.Undef{Ty: retTy}
	}
	widened := s.ExtendRange(s.r.Join(r))
	return widened.ReduceRange(r).contents
}

// Merge joins the slice with another occupying a disjoint range, forming the
// convex hull of the two ranges.  Bits inside either operand's own range
// come from that operand; bits outside both are unspecified.
func (s Slice) Merge(other Slice) Slice {
	if other.Empty() {
		return s
	}
	if s.Empty() {
		return other
	}
	if s.r.Intersects(other.r) {
		panic(fmt.Sprintf("bitview: merge of overlapping slices %s and %s", s.r, other.r))
	}

	e := s.eng
	hull := s.r.Join(other.r)
	extThis := s.ExtendRange(hull)
	extOther := other.ExtendRange(hull)

	// The bits added by extension may hold anything.  Mask each side down to
	// its own range before combining.
	hullWidth := hull.Width()
	var thisBits, otherBits *big.Int
	if e.BigEndian() {
		thisBits = bitsSet(hullWidth, hull.Last()-s.r.Last(), hull.Last()-s.r.First())
		otherBits = bitsSet(hullWidth, hull.Last()-other.r.Last(), hull.Last()-other.r.First())
	} else {
		thisBits = bitsSet(hullWidth, s.r.First()-hull.First(), s.r.Last()-hull.First())
		otherBits = bitsSet(hullWidth, other.r.First()-hull.First(), other.r.Last()-hull.First())
	}
	// Clear in each extended slice the bits corresponding to the other one.
	hullTy := e.Fold.IntTy(hullWidth)
	all := bitsSet(hullWidth, 0, hullWidth)
	clearThis := cval.NewIntBits(hullTy, new(big.Int).AndNot(all, thisBits))
	clearOther := cval.NewIntBits(hullTy, new(big.Int).AndNot(all, otherBits))
	thisPart := e.Fold.And(extThis.contents, clearOther)
	otherPart := e.Fold.And(extOther.contents, clearThis)
	return e.newSlice(hull, e.Fold.Or(thisPart, otherPart))
}

// bitsSet builds a width-bit mask with bits [lo, hi) set.
func bitsSet(width, lo, hi int) *big.Int {
	if lo < 0 || hi < lo || hi > width {
		panic(fmt.Sprintf("bitview: bad mask [%d, %d) of %d", lo, hi, width))
	}
	m := new(big.Int).Lsh(big.NewInt(1), uint(hi-lo))
	m.Sub(m, big.NewInt(1))
	return m.Lsh(m, uint(lo))
}

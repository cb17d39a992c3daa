package conv

import (
	"bitsmith/internal/bitview"
	"bitsmith/internal/cval"
	"bitsmith/internal/interval"
)

// fieldContents is one maximal run of initialized bits inside a record being
// built: a bit range, the value occupying it, and the anchor bit at which
// the value considers its own bit zero to sit.  The anchor lets a value be
// trimmed to a subrange without re-extracting it.
type fieldContents struct {
	eng    *bitview.Engine
	r      interval.Range
	val    cval.Value // nil iff r is empty
	anchor int
}

func makeFieldContents(eng *bitview.Engine, r interval.Range, val cval.Value) fieldContents {
	return fieldContents{eng: eng, r: r, val: val, anchor: r.First()}
}

func (f fieldContents) Range() interval.Range { return f.r }

// WithRange narrows or widens the occupied range while keeping the value
// anchored where it was.  Bits that were not previously in range read as
// undefined.
func (f fieldContents) WithRange(r interval.Range) fieldContents {
	f.r = r
	return f
}

// Union merges two bit-disjoint runs into one covering their convex hull.
func (f fieldContents) Union(o fieldContents) fieldContents {
	bits := f.slice().Merge(o.slice())
	r := bits.Range()
	return fieldContents{eng: f.eng, r: r, val: bits.GetBits(r), anchor: r.First()}
}

func (f fieldContents) slice() bitview.Slice {
	if f.r.Empty() {
		return f.eng.EmptySlice()
	}
	return f.eng.MakeSlice(f.r, f.getAsBits())
}

// getAsBits reads the occupied range out of the value as a single integer of
// the range's width.
func (f fieldContents) getAsBits() cval.Value {
	if f.r.Empty() {
		return nil
	}
	ity := f.eng.Fold.IntTy(f.r.Width())
	return f.eng.InterpretAsType(f.val, ity, f.r.First()-f.anchor)
}

// extractContents returns a value that occupies exactly this run's range.
// The held value is used directly when it already fits; otherwise the bits
// are re-read as an integer, and as a byte array when the integer's
// allocation would overhang the range.  The range must be byte aligned.
func (f fieldContents) extractContents() cval.Value {
	if f.r.Width()%8 != 0 {
		panic("conv: extracting contents of an unaligned run")
	}
	if f.val != nil && f.r.First() == f.anchor &&
		f.eng.Layout.AllocSizeBits(f.val.Type()) <= f.r.Width() {
		return f.val
	}
	units := uint32(f.r.Width() / 8)
	if f.val == nil {
		return &cval.Undef{Ty: f.eng.Types.UnitArray(units)}
	}
	c := f.getAsBits()
	if f.eng.Layout.AllocSizeBits(c.Type()) <= f.r.Width() {
		return c
	}
	return f.eng.InterpretAsType(c, f.eng.Types.UnitArray(units), 0)
}

var _ interval.Item[fieldContents] = fieldContents{}

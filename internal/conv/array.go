package conv

import (
	"math/big"

	"fortio.org/safecast"

	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/expr"
	"bitsmith/internal/types"
)

// convertArrayCtor builds an array or vector value from positioned entries.
// The result degrades gracefully: undersized elements are padded into
// structs, mixed element types force a struct of parts, and over-aligned
// parts force packing.
func (c *Converter) convertArrayCtor(e *expr.Ctor) cval.Value {
	tt := c.Types.MustLookup(e.Ty)
	elemTy := tt.Elem
	elemSize := c.Layout.AllocSizeBits(elemTy)

	lower := big.NewInt(0)
	if e.LowerBound != nil {
		lower = e.LowerBound
	}

	// Size to the declared element count when known, so elements without an
	// entry come out default initialized and the result stays an array.
	var elems []cval.Value
	if tt.Count != types.ArrayDynamicLength {
		elems = make([]cval.Value, int(tt.Count))
	}
	next := 0
	for _, ent := range e.Entries {
		val := c.convertWithCast(ent.Value, elemTy)
		valSize := c.Layout.AllocSizeBits(val.Type())
		if valSize > elemSize {
			diag.Failf(diag.ConvTooBig,
				"element initializer covers %d bits, element has %d", valSize, elemSize)
		}
		if valSize < elemSize {
			// Pad the element with undefined bytes so the stride of
			// the whole stays right.
			val = c.structValue([]cval.Value{val, c.undefUnits((elemSize - valSize) / 8)}, false)
		}

		first, last := next, next
		if ent.HasIndex {
			first = c.entryIndex(ent.First, lower)
			last = first
			if ent.Last != nil {
				last = c.entryIndex(ent.Last, lower)
			}
			if last < first {
				diag.Failf(diag.ConvBadIndex, "inverted index range %d..%d", first, last)
			}
		}
		if tt.Count != types.ArrayDynamicLength && last >= int(tt.Count) {
			diag.Failf(diag.ConvBadIndex,
				"element %d of a %d element array", last, tt.Count)
		}
		for len(elems) <= last {
			elems = append(elems, nil)
		}
		for i := first; i <= last; i++ {
			elems[i] = val
		}
		next = last + 1
	}

	if len(elems) == 0 {
		return cval.DefaultValue(c.Types, e.Ty)
	}
	for i, v := range elems {
		if v == nil {
			elems[i] = cval.DefaultValue(c.Types, elemTy)
		}
	}

	actualEltTy := elems[0].Type()
	useStruct := false
	maxAlign := c.Layout.ABIAlignmentBits(actualEltTy)
	for _, v := range elems[1:] {
		if v.Type() != actualEltTy {
			useStruct = true
		}
		if al := c.Layout.ABIAlignmentBits(v.Type()); al > maxAlign {
			maxAlign = al
		}
	}
	pack := maxAlign > c.Layout.ABIAlignmentBits(e.Ty)

	if useStruct || pack {
		return c.structValue(elems, pack)
	}

	n, err := safecast.Conv[uint32](len(elems))
	if err != nil {
		diag.Failf(diag.ConvBadIndex, "array initializer of %d elements", len(elems))
	}
	if tt.Kind == types.KindVector {
		vecTy := e.Ty
		if n != tt.Count {
			vecTy = c.Types.Intern(types.MakeVector(elemTy, n))
		}
		return &cval.Array{Ty: vecTy, Elems: elems}
	}
	return &cval.Array{Ty: c.Types.Intern(types.MakeArray(actualEltTy, n)), Elems: elems}
}

// entryIndex normalizes a constructor index against the array's lower bound.
func (c *Converter) entryIndex(v, lower *big.Int) int {
	if v == nil {
		diag.Failf(diag.ConvBadIndex, "missing array index")
	}
	idx := new(big.Int).Sub(v, lower)
	if idx.Sign() < 0 || !idx.IsInt64() {
		diag.Failf(diag.ConvBadIndex, "array index %s out of range", idx)
	}
	n, err := safecast.Conv[int](idx.Int64())
	if err != nil {
		diag.Failf(diag.ConvBadIndex, "array index %s out of range", idx)
	}
	return n
}

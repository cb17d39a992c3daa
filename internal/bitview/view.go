package bitview

import (
	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/interval"
	"bitsmith/internal/layout"
	"bitsmith/internal/types"
)

// Engine reinterprets constants as bits and back for one target.
type Engine struct {
	Types  *types.Interner
	Layout *layout.Engine
	Fold   cval.Folder
}

// New builds a bit view engine over the given type domain and layout oracle.
func New(typesIn *types.Interner, lay *layout.Engine) *Engine {
	return &Engine{
		Types:  typesIn,
		Layout: lay,
		Fold:   cval.Folder{Types: typesIn, PtrBits: lay.Target.PtrBits},
	}
}

// BigEndian reports the byte order of the engine's target.
func (e *Engine) BigEndian() bool { return e.Layout.BigEndian() }

// ViewAsBits views the given constant as one big integer over the requested
// window.  Only bits inside the window are needed; it is harmless for the
// result to carry extra defined bits, and unspecified bits need not be
// materialized at all.
func (e *Engine) ViewAsBits(c cval.Value, r interval.Range) Slice {
	if r.Empty() {
		return e.emptySlice()
	}

	// Clip to the constant's storage so the recursion below never walks off
	// the end of an aggregate.
	ty := c.Type()
	storeSize := e.Layout.StoreSizeBits(ty)
	r = r.Meet(interval.Make(0, storeSize))
	if r.Empty() {
		return e.emptySlice()
	}

	tt := e.Types.MustLookup(ty)
	switch tt.Kind {
	case types.KindPointer:
		return e.newSlice(interval.Make(0, storeSize), e.Fold.PtrToInt(c))

	case types.KindInt, types.KindFloat:
		width := int(tt.Width)
		bits := e.Fold.RawBits(c)
		// If the width is a multiple of the address unit the bits simply
		// occupy [0, storeSize).  Otherwise the placement of the padding
		// bits depends on endianness: at the start on big-endian targets,
		// at the end on little-endian ones.
		if e.BigEndian() {
			return e.newSlice(interval.Make(storeSize-width, storeSize), bits)
		}
		return e.newSlice(interval.Make(0, width), bits)

	case types.KindArray, types.KindVector:
		stride := e.Layout.AllocSizeBits(tt.Elem)
		if stride <= 0 {
			diag.Failf(diag.ConvUnsupportedKind, "zero-stride element in %s", e.Types.String(ty))
		}
		firstElt := r.First() / stride
		lastElt := (r.Last() + stride - 1) / stride
		bits := e.emptySlice()
		strideRange := interval.Make(0, stride)
		for i := firstElt; i < lastElt; i++ {
			elt := cval.ElementOf(e.Types, c, i, tt.Elem)
			eltBits := e.ViewAsBits(elt, strideRange)
			bits = bits.Merge(eltBits.Displace(i * stride))
		}
		return bits

	case types.KindStruct:
		info, ok := e.Types.StructInfo(ty)
		if !ok || len(info.Fields) == 0 {
			return e.emptySlice()
		}
		firstIdx := e.Layout.FieldIndexContainingByteOffset(ty, (r.First()+7)/8)
		lastIdx := 1 + e.Layout.FieldIndexContainingByteOffset(ty, (r.Last()+6)/8)
		bits := e.emptySlice()
		for i := firstIdx; i < lastIdx; i++ {
			fieldTy := info.Fields[i].Type
			field := cval.ElementOf(e.Types, c, i, fieldTy)
			fieldStore := e.Layout.StoreSizeBits(fieldTy)
			fieldBits := e.ViewAsBits(field, interval.Make(0, fieldStore))
			bits = bits.Merge(fieldBits.Displace(e.Layout.FieldOffsetBits(ty, i)))
		}
		return bits

	default:
		diag.Failf(diag.ConvUnsupportedKind, "bit view of %s", e.Types.String(ty))
		return Slice{}
	}
}

// InterpretAsType interprets the bits of the given constant, starting at
// startBit, as a constant of type ty.  The result is what a store of c
// followed by a load of a ty value from the same memory would produce.
func (e *Engine) InterpretAsType(c cval.Value, ty types.TypeID, startBit int) cval.Value {
	if c.Type() == ty {
		return c
	}

	tt := e.Types.MustLookup(ty)
	switch tt.Kind {
	case types.KindInt:
		width := int(tt.Width)
		storeSize := e.Layout.StoreSizeBits(ty)
		// Only the bits to be "loaded" out are needed, so this converts just
		// enough of the constant to cover them.
		bits := e.ViewAsBits(c, interval.Make(startBit, startBit+storeSize))
		bits = bits.Displace(-startBit)
		// Padding bits sit at the start on big-endian targets and at the end
		// on little-endian ones.
		var raw cval.Value
		if e.BigEndian() {
			raw = bits.GetBits(interval.Make(storeSize-width, storeSize))
		} else {
			raw = bits.GetBits(interval.Make(0, width))
		}
		return e.Fold.FromRawBits(raw, ty)

	case types.KindPointer:
		i := e.InterpretAsType(c, e.Fold.IntTy(e.Fold.PtrBits), startBit)
		return e.Fold.IntToPtr(i, ty)

	case types.KindFloat:
		i := e.InterpretAsType(c, e.Fold.IntTy(int(tt.Width)), startBit)
		return e.Fold.FromRawBits(i, ty)

	case types.KindArray, types.KindVector:
		stride := e.Layout.AllocSizeBits(tt.Elem)
		count := int(tt.Count)
		if tt.Count == types.ArrayDynamicLength {
			count = 0
		}
		elems := make([]cval.Value, count)
		for i := range elems {
			elems[i] = e.InterpretAsType(c, tt.Elem, startBit+i*stride)
		}
		return &cval.Array{Ty: ty, Elems: elems}

	case types.KindStruct:
		info, ok := e.Types.StructInfo(ty)
		if !ok {
			diag.Failf(diag.ConvUnsupportedKind, "interpret as malformed struct #%d", ty)
		}
		fields := make([]cval.Value, len(info.Fields))
		for i := range fields {
			off := e.Layout.FieldOffsetBits(ty, i)
			fields[i] = e.InterpretAsType(c, info.Fields[i].Type, startBit+off)
		}
		return &cval.Struct{Ty: ty, Fields: fields}

	default:
		diag.Failf(diag.ConvUnsupportedKind, "interpret as %s", e.Types.String(ty))
		return nil
	}
}

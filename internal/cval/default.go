package cval

import (
	"math/big"

	"bitsmith/internal/diag"
	"bitsmith/internal/types"
)

// DefaultValue builds the zero-equivalent value of a type: zero scalars,
// null pointers, and aggregates of defaults.
func DefaultValue(in *types.Interner, ty types.TypeID) Value {
	tt := in.MustLookup(ty)
	switch tt.Kind {
	case types.KindInt:
		return &Int{Ty: ty, V: new(big.Int)}
	case types.KindFloat:
		return &Float{Ty: ty, Bits: new(big.Int)}
	case types.KindPointer:
		return &Ptr{Ty: ty}
	case types.KindArray, types.KindVector:
		count := int(tt.Count)
		if tt.Count == types.ArrayDynamicLength {
			count = 0
		}
		elems := make([]Value, count)
		for i := range elems {
			elems[i] = DefaultValue(in, tt.Elem)
		}
		return &Array{Ty: ty, Elems: elems}
	case types.KindStruct:
		info, ok := in.StructInfo(ty)
		if !ok {
			diag.Failf(diag.ConvUnsupportedKind, "default value of malformed struct #%d", ty)
		}
		fields := make([]Value, len(info.Fields))
		for i, fld := range info.Fields {
			fields[i] = DefaultValue(in, fld.Type)
		}
		return &Struct{Ty: ty, Fields: fields}
	default:
		diag.Failf(diag.ConvUnsupportedKind, "default value of %s", in.String(ty))
		return nil
	}
}

// ElementOf projects the i-th sub-value out of an aggregate.  Undef
// aggregates yield undef elements.
func ElementOf(in *types.Interner, v Value, i int, elemTy types.TypeID) Value {
	switch v := v.(type) {
	case *Array:
		return v.Elems[i]
	case *Struct:
		return v.Fields[i]
	case *Undef:
		return &Undef{Ty: elemTy}
	default:
		diag.Failf(diag.ConvUnsupportedKind, "element of %s", in.String(v.Type()))
		return nil
	}
}

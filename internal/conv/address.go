package conv

import (
	"math/big"

	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/expr"
	"bitsmith/internal/types"
)

// addressOfObject resolves an object path to a pointer value.  Every step
// stays symbolic: the result is a symbol plus a byte offset, never bits.
func (c *Converter) addressOfObject(o expr.Object) cval.Value {
	switch o := o.(type) {
	case *expr.SymObject:
		sym, ok := c.Syms.Lookup(o.Sym)
		if !ok {
			diag.Failf(diag.ConvBadExpr, "address of undeclared symbol %d", o.Sym)
		}
		return &cval.Ptr{Ty: c.ptrTo(sym.Type), Sym: o.Sym}

	case *expr.LitObject:
		// A literal needs its own storage.  Identical literals share it.
		init := c.convert(o.X)
		id := c.Syms.InternConstant(init, c.Layout.ABIAlignmentBits(o.X.Type()))
		return &cval.Ptr{Ty: c.ptrTo(o.X.Type()), Sym: id}

	case *expr.ElemObject:
		base := c.mustPtr(c.addressOfObject(o.Base))
		at := c.Types.MustLookup(o.Ty)
		if at.Kind != types.KindArray && at.Kind != types.KindVector {
			diag.Failf(diag.ConvBadExpr, "element of %s", c.Types.String(o.Ty))
		}
		idx := c.intOperand(o.Index)
		if o.LowerBound != nil {
			idx = new(big.Int).Sub(idx, o.LowerBound)
		}
		if !idx.IsInt64() {
			diag.Failf(diag.ConvBadIndex, "array index %s out of range", idx)
		}
		stride := int64(c.Layout.AllocSizeBits(at.Elem) / 8)
		return &cval.Ptr{Ty: c.ptrTo(at.Elem), Sym: base.Sym, Off: base.Off + idx.Int64()*stride}

	case *expr.FieldObject:
		base := c.mustPtr(c.addressOfObject(o.Base))
		info, ok := c.Types.StructInfo(o.Ty)
		if !ok || o.Field < 0 || o.Field >= len(info.Fields) {
			diag.Failf(diag.ConvBadExpr, "no field %d in %s", o.Field, c.Types.String(o.Ty))
		}
		offBits := c.Layout.FieldOffsetBits(o.Ty, o.Field)
		if offBits%8 != 0 {
			diag.Failf(diag.ConvBadExpr, "address of a field that is not byte aligned")
		}
		fldTy := info.Fields[o.Field].Type
		return &cval.Ptr{Ty: c.ptrTo(fldTy), Sym: base.Sym, Off: base.Off + int64(offBits/8)}

	case *expr.DerefObject:
		p := c.convert(o.Ptr)
		switch p := p.(type) {
		case *cval.Ptr, *cval.Undef:
			return p
		}
		diag.Failf(diag.ConvBadExpr, "dereference of %s", c.Types.String(p.Type()))
		return nil

	default:
		diag.Failf(diag.ConvBadExpr, "unhandled address form %T", o)
		return nil
	}
}

func (c *Converter) mustPtr(v cval.Value) *cval.Ptr {
	p, ok := v.(*cval.Ptr)
	if !ok {
		diag.Failf(diag.ConvBadExpr, "base address is not constant")
	}
	return p
}

func (c *Converter) ptrTo(ty types.TypeID) types.TypeID {
	return c.Types.Intern(types.MakePointer(ty))
}

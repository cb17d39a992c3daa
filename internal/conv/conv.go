// Package conv materializes front-end initializer expressions into typed
// constant values whose bit layout is fully determined for one target.  The
// two entry points are ConvertInitializer and AddressOf; everything else is
// the machinery behind them.
package conv

import (
	"math/big"

	"fortio.org/safecast"

	"bitsmith/internal/bitview"
	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/expr"
	"bitsmith/internal/layout"
	"bitsmith/internal/symtab"
	"bitsmith/internal/types"
)

// Converter drives initializer conversion for one target.  It is safe to
// share across goroutines: all mutable state lives in the type interner, the
// layout cache and the symbol table, each of which synchronizes itself.
type Converter struct {
	Types  *types.Interner
	Layout *layout.Engine
	View   *bitview.Engine
	Syms   *symtab.Table

	// DefaultInitialize pre-seeds every record field with its zero value
	// before constructor entries are applied, so fields without an entry
	// come out as definite zero bits instead of undef.
	DefaultInitialize bool
}

// New builds a converter over an interner, a layout oracle and a symbol
// table.
func New(in *types.Interner, lay *layout.Engine, syms *symtab.Table) *Converter {
	return &Converter{
		Types:             in,
		Layout:            lay,
		View:              bitview.New(in, lay),
		Syms:              syms,
		DefaultInitialize: true,
	}
}

// ConvertInitializer converts a constant initializer expression into a value
// suitable for emission.  The result's type may differ from the declared
// type (padding and bitfields force substitute shapes) but always occupies
// the same storage and never demands more alignment.
func (c *Converter) ConvertInitializer(e expr.Expr) (v cval.Value, err error) {
	defer diag.Recover(&err)
	v = c.convert(e)
	c.checkConverted(e, v)
	return v, nil
}

// AddressOf resolves the address of an object with constant address into a
// pointer value, symbolic or absolute.
func (c *Converter) AddressOf(e *expr.AddrOf) (v cval.Value, err error) {
	defer diag.Recover(&err)
	return c.retype(c.addressOfObject(e.Obj), e.Ty), nil
}

func (c *Converter) convert(e expr.Expr) cval.Value {
	switch e := e.(type) {
	case *expr.IntLit:
		return c.convertIntLit(e)
	case *expr.FloatLit:
		return c.convertFloatLit(e)
	case *expr.StringLit:
		return c.convertString(e)
	case *expr.Ctor:
		return c.convertCtor(e)
	case *expr.AddrOf:
		return c.retype(c.addressOfObject(e.Obj), e.Ty)
	case *expr.BinOp:
		return c.convertBinOp(e)
	case *expr.PtrPlus:
		return c.convertPtrPlus(e)
	case *expr.ViewConvert:
		// A view conversion changes the type, never the bits.  The
		// operand's value stands; consumers reinterpret as needed.
		return c.convert(e.X)
	case *expr.Cast:
		return c.convertWithCast(e.X, e.Ty)
	default:
		diag.Failf(diag.ConvBadExpr, "unhandled initializer form %T", e)
		return nil
	}
}

func (c *Converter) convertIntLit(e *expr.IntLit) cval.Value {
	tt := c.Types.MustLookup(e.Ty)
	switch tt.Kind {
	case types.KindInt:
		return c.encodeScalar(cval.NewInt(c.Types, e.Ty, e.V))
	case types.KindPointer:
		// Absolute pointer literal, e.g. a null pointer.
		w := c.View.Fold.IntTy(c.View.Fold.Width(e.Ty))
		return c.View.Fold.IntToPtr(cval.NewInt(c.Types, w, e.V), e.Ty)
	default:
		diag.Failf(diag.ConvBadExpr, "integer literal of type %s", c.Types.String(e.Ty))
		return nil
	}
}

func (c *Converter) convertFloatLit(e *expr.FloatLit) cval.Value {
	tt := c.Types.MustLookup(e.Ty)
	if tt.Kind != types.KindFloat {
		diag.Failf(diag.ConvBadExpr, "float literal of type %s", c.Types.String(e.Ty))
	}
	bits := new(big.Int).Mod(e.Bits, new(big.Int).Lsh(big.NewInt(1), uint(tt.Width)))
	return c.encodeScalar(&cval.Float{Ty: e.Ty, Bits: bits})
}

// encodeScalar writes a scalar constant into its target byte image and reads
// it back through the bit engine.  Literals thus take the exact path that
// aggregate members take, so a scalar emitted alone and the same scalar
// extracted from a record agree bit for bit.
func (c *Converter) encodeScalar(v cval.Value) cval.Value {
	raw := c.View.Fold.RawBits(v)
	iv, ok := raw.(*cval.Int)
	if !ok {
		// Undef and relocatable scalars have no byte image to roundtrip.
		return v
	}
	units := c.Layout.StoreSizeBits(v.Type()) / 8
	byteTy := c.Types.Builtins().Byte
	bytes := make([]cval.Value, units)
	for i := 0; i < units; i++ {
		shift := i * 8
		if c.Layout.BigEndian() {
			shift = (units - 1 - i) * 8
		}
		b := new(big.Int).Rsh(iv.V, uint(shift))
		b.And(b, big.NewInt(0xff))
		bytes[i] = cval.NewIntBits(byteTy, b)
	}
	n, err := safecast.Conv[uint32](units)
	if err != nil {
		panic(err)
	}
	arr := &cval.Array{Ty: c.Types.UnitArray(n), Elems: bytes}
	return c.View.InterpretAsType(arr, v.Type(), 0)
}

func (c *Converter) convertCtor(e *expr.Ctor) cval.Value {
	tt := c.Types.MustLookup(e.Ty)
	if len(e.Entries) == 0 && e.Record == nil {
		return cval.DefaultValue(c.Types, e.Ty)
	}
	switch tt.Kind {
	case types.KindArray, types.KindVector:
		return c.convertArrayCtor(e)
	case types.KindStruct:
		return c.convertRecordCtor(e)
	default:
		diag.Failf(diag.ConvUnsupportedKind, "constructor for %s", c.Types.String(e.Ty))
		return nil
	}
}

// convertWithCast converts an initializer destined for a slot of the given
// type, inserting the implicit scalar conversion front ends leave out.
func (c *Converter) convertWithCast(e expr.Expr, ty types.TypeID) cval.Value {
	v := c.convert(e)
	if v.Type() == ty {
		return v
	}
	if c.Types.MustLookup(ty).Kind.IsAggregate() ||
		c.Types.MustLookup(v.Type()).Kind.IsAggregate() {
		// Aggregate slots take the converted value as-is; placement
		// deals in bits, not in types.
		return v
	}
	return c.View.Fold.Cast(v, ty)
}

func (c *Converter) convertBinOp(e *expr.BinOp) cval.Value {
	ity := c.View.Fold.IntTy(c.View.Fold.Width(e.Ty))
	l := c.scalarBits(c.convert(e.L), ity)
	r := c.scalarBits(c.convert(e.R), ity)
	var res cval.Value
	switch e.Op {
	case expr.OpAdd:
		res = c.View.Fold.Add(l, r)
	case expr.OpSub:
		res = c.View.Fold.Sub(l, r)
	default:
		diag.Failf(diag.ConvBadExpr, "unknown arithmetic op %d", e.Op)
	}
	return c.retype(res, e.Ty)
}

// scalarBits turns a scalar operand into an integer image of the result
// width.  Signed sources sign-extend; relocatable operands pass through
// untouched since their width is fixed by the target.
func (c *Converter) scalarBits(v cval.Value, ity types.TypeID) cval.Value {
	switch v := v.(type) {
	case *cval.Ptr:
		return c.View.Fold.PtrToInt(v)
	case *cval.Reloc:
		return v
	case *cval.Int:
		st := c.Types.MustLookup(v.Ty)
		if st.Signed && c.View.Fold.Width(ity) > int(st.Width) {
			return c.View.Fold.SExt(v, ity)
		}
		return c.View.Fold.ZExtOrTrunc(v, ity)
	case *cval.Float:
		return c.View.Fold.ZExtOrTrunc(c.View.Fold.RawBits(v), ity)
	case *cval.Undef:
		return &cval.Undef{Ty: ity}
	default:
		diag.Failf(diag.ConvBadExpr, "arithmetic on %s", c.Types.String(v.Type()))
		return nil
	}
}

func (c *Converter) convertPtrPlus(e *expr.PtrPlus) cval.Value {
	p := c.convert(e.Ptr)
	off := c.intOperand(e.Off)
	if !off.IsInt64() {
		diag.Failf(diag.ConvBadExpr, "pointer offset out of range")
	}
	switch p := p.(type) {
	case *cval.Ptr:
		return &cval.Ptr{Ty: e.Ty, Sym: p.Sym, Off: p.Off + off.Int64()}
	case *cval.Undef:
		return &cval.Undef{Ty: e.Ty}
	}
	diag.Failf(diag.ConvBadExpr, "pointer arithmetic on %s", c.Types.String(p.Type()))
	return nil
}

// intOperand evaluates an index or offset operand to its mathematical value,
// honoring the signedness of its declared type.
func (c *Converter) intOperand(e expr.Expr) *big.Int {
	v := c.convert(e)
	iv, ok := v.(*cval.Int)
	if !ok {
		diag.Failf(diag.ConvBadIndex, "index is not a constant integer")
	}
	tt := c.Types.MustLookup(v.Type())
	if tt.Kind == types.KindInt && tt.Signed {
		return signedImage(iv.V, int(tt.Width))
	}
	return new(big.Int).Set(iv.V)
}

// retype adjusts a scalar result to its declared type without changing the
// bits.  Relocatable values may only move between a pointer and an integer
// of pointer width.
func (c *Converter) retype(v cval.Value, ty types.TypeID) cval.Value {
	if v.Type() == ty {
		return v
	}
	switch v := v.(type) {
	case *cval.Undef:
		return &cval.Undef{Ty: ty}
	case *cval.Ptr:
		if c.Types.MustLookup(ty).Kind == types.KindPointer {
			return &cval.Ptr{Ty: ty, Sym: v.Sym, Off: v.Off}
		}
		return c.retype(c.View.Fold.PtrToInt(v), ty)
	case *cval.Reloc:
		tt := c.Types.MustLookup(ty)
		switch tt.Kind {
		case types.KindPointer:
			return &cval.Ptr{Ty: ty, Sym: v.Sym, Off: v.Off}
		case types.KindInt:
			if int(tt.Width) != c.View.Fold.Width(v.Ty) {
				diag.Failf(diag.ConvRelocatable, "link-time address does not fit %s", c.Types.String(ty))
			}
			return &cval.Reloc{Ty: ty, Sym: v.Sym, Off: v.Off}
		}
		diag.Failf(diag.ConvRelocatable, "link-time address used as %s", c.Types.String(ty))
		return nil
	default:
		raw := c.View.Fold.RawBits(v)
		raw = c.View.Fold.ZExtOrTrunc(raw, c.View.Fold.IntTy(c.View.Fold.Width(ty)))
		return c.View.Fold.FromRawBits(raw, ty)
	}
}

// checkConverted enforces the storage contract on a finished conversion:
// the value covers exactly the declared storage (at least, when the declared
// size is not a compile-time constant) and demands no extra alignment.
func (c *Converter) checkConverted(e expr.Expr, v cval.Value) {
	declTy := e.Type()
	declSize := c.Layout.AllocSizeBits(declTy)
	declAlign := c.Layout.ABIAlignmentBits(declTy)
	sizeKnown := true
	if tt := c.Types.MustLookup(declTy); tt.Kind == types.KindArray && tt.Count == types.ArrayDynamicLength {
		sizeKnown = false
	}
	if ct, ok := e.(*expr.Ctor); ok && ct.Record != nil {
		declSize = ct.Record.SizeBits
		declAlign = ct.Record.AlignBits
	}
	got := c.Layout.AllocSizeBits(v.Type())
	if sizeKnown && got < declSize {
		diag.Failf(diag.ConvTooSmall, "initializer covers %d bits of a %d bit object", got, declSize)
	}
	if sizeKnown && got > declSize {
		diag.Failf(diag.ConvTooBig, "initializer covers %d bits, object has %d", got, declSize)
	}
	if c.Layout.ABIAlignmentBits(v.Type()) > declAlign {
		diag.Failf(diag.ConvOverAligned, "initializer wants %d bit alignment, object allows %d",
			c.Layout.ABIAlignmentBits(v.Type()), declAlign)
	}
}

func signedImage(v *big.Int, width int) *big.Int {
	if width == 0 || v.Bit(width-1) == 0 {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(width)))
}

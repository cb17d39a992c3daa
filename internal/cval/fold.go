package cval

import (
	"math"
	"math/big"

	"bitsmith/internal/diag"
	"bitsmith/internal/types"
)

// Folder provides constant folding over values.  It needs the interner for
// widths and the target pointer width for pointer/integer moves.
type Folder struct {
	Types   *types.Interner
	PtrBits int
}

// Width returns the primitive bit width of a scalar type.
func (f Folder) Width(ty types.TypeID) int {
	tt := f.Types.MustLookup(ty)
	switch tt.Kind {
	case types.KindInt, types.KindFloat:
		return int(tt.Width)
	case types.KindPointer:
		return f.PtrBits
	default:
		diag.Failf(diag.ConvUnsupportedKind, "no primitive width for %s", f.Types.String(ty))
		return 0
	}
}

// IntTy interns an unsigned integer type of the given width.
func (f Folder) IntTy(width int) types.TypeID {
	return f.Types.Intern(types.MakeInt(uint32(width), false))
}

// bitsOf forces an integer-typed value into its bit image.  Undef reads as
// zero; anything symbolic aborts the conversion.
func (f Folder) bitsOf(v Value) *big.Int {
	switch v := v.(type) {
	case *Int:
		return v.V
	case *Undef:
		return new(big.Int)
	case *Reloc:
		diag.Failf(diag.ConvRelocatable, "link-time address used where bits are required")
		return nil
	default:
		diag.Failf(diag.ConvUnsupportedKind, "integer operation on %s", f.Types.String(v.Type()))
		return nil
	}
}

// Add folds a + b.  Both must share an integer type; a relocatable operand
// keeps its symbol and accumulates the offset.
func (f Folder) Add(a, b Value) Value {
	if r := f.foldRelocAdd(a, b, 1); r != nil {
		return r
	}
	ty := a.Type()
	sum := new(big.Int).Add(f.bitsOf(a), f.bitsOf(b))
	return NewInt(f.Types, ty, sum)
}

// Sub folds a - b.
func (f Folder) Sub(a, b Value) Value {
	if r := f.foldRelocAdd(a, b, -1); r != nil {
		return r
	}
	ty := a.Type()
	d := new(big.Int).Sub(f.bitsOf(a), f.bitsOf(b))
	return NewInt(f.Types, ty, d)
}

// foldRelocAdd handles additive folding when either side is a Reloc.  sign
// is +1 for addition, -1 for subtraction of b.
func (f Folder) foldRelocAdd(a, b Value, sign int64) Value {
	ra, aIsReloc := a.(*Reloc)
	rb, bIsReloc := b.(*Reloc)
	switch {
	case aIsReloc && bIsReloc:
		if sign < 0 && ra.Sym == rb.Sym {
			// Difference of two addresses of the same symbol is concrete.
			return NewInt(f.Types, ra.Ty, big.NewInt(ra.Off-rb.Off))
		}
		diag.Failf(diag.ConvRelocatable, "arithmetic on two link-time addresses")
	case aIsReloc:
		off := f.bitsOf(b)
		if !off.IsInt64() {
			diag.Failf(diag.ConvBadExpr, "pointer offset out of range")
		}
		return &Reloc{Ty: ra.Ty, Sym: ra.Sym, Off: ra.Off + sign*off.Int64()}
	case bIsReloc:
		if sign < 0 {
			diag.Failf(diag.ConvRelocatable, "subtraction of a link-time address")
		}
		off := f.bitsOf(a)
		if !off.IsInt64() {
			diag.Failf(diag.ConvBadExpr, "pointer offset out of range")
		}
		return &Reloc{Ty: rb.Ty, Sym: rb.Sym, Off: rb.Off + off.Int64()}
	}
	return nil
}

// And folds a & b over a shared integer type.
func (f Folder) And(a, b Value) Value {
	return NewIntBits(a.Type(), new(big.Int).And(f.bitsOf(a), f.bitsOf(b)))
}

// Or folds a | b over a shared integer type.
func (f Folder) Or(a, b Value) Value {
	return NewIntBits(a.Type(), new(big.Int).Or(f.bitsOf(a), f.bitsOf(b)))
}

// Shl folds a << n.
func (f Folder) Shl(a Value, n int) Value {
	ty := a.Type()
	v := new(big.Int).Lsh(f.bitsOf(a), uint(n))
	return NewInt(f.Types, ty, v)
}

// LShr folds a >> n with zero fill.
func (f Folder) LShr(a Value, n int) Value {
	return NewIntBits(a.Type(), new(big.Int).Rsh(f.bitsOf(a), uint(n)))
}

// Trunc narrows an integer value to the given integer type.
func (f Folder) Trunc(a Value, ty types.TypeID) Value {
	return NewInt(f.Types, ty, f.bitsOf(a))
}

// ZExt widens an integer value to the given integer type with zero fill.
func (f Folder) ZExt(a Value, ty types.TypeID) Value {
	if _, ok := a.(*Undef); ok {
		return &Undef{Ty: ty}
	}
	return NewInt(f.Types, ty, f.bitsOf(a))
}

// ZExtOrTrunc resizes an integer bit image to the width of ty.
func (f Folder) ZExtOrTrunc(a Value, ty types.TypeID) Value {
	if f.Width(ty) >= f.Width(a.Type()) {
		return f.ZExt(a, ty)
	}
	return f.Trunc(a, ty)
}

// SExt widens an integer value to the given type, replicating the sign bit
// of the source width.
func (f Folder) SExt(a Value, ty types.TypeID) Value {
	srcW := f.Width(a.Type())
	v := f.bitsOf(a)
	signed := toSigned(v, srcW)
	return NewInt(f.Types, ty, signed)
}

// PtrToInt reinterprets a pointer as an integer of pointer width.
func (f Folder) PtrToInt(a Value) Value {
	ty := f.IntTy(f.PtrBits)
	switch a := a.(type) {
	case *Ptr:
		if a.Sym != 0 {
			return &Reloc{Ty: ty, Sym: a.Sym, Off: a.Off}
		}
		return NewInt(f.Types, ty, big.NewInt(a.Off))
	case *Undef:
		return &Undef{Ty: ty}
	default:
		diag.Failf(diag.ConvUnsupportedKind, "ptrtoint on %s", f.Types.String(a.Type()))
		return nil
	}
}

// IntToPtr reinterprets an integer (or relocatable) as a pointer of the
// given type.
func (f Folder) IntToPtr(a Value, ty types.TypeID) Value {
	switch a := a.(type) {
	case *Int:
		if !a.V.IsInt64() {
			diag.Failf(diag.ConvBadExpr, "pointer value out of range")
		}
		return &Ptr{Ty: ty, Off: a.V.Int64()}
	case *Reloc:
		return &Ptr{Ty: ty, Sym: a.Sym, Off: a.Off}
	case *Undef:
		return &Undef{Ty: ty}
	default:
		diag.Failf(diag.ConvUnsupportedKind, "inttoptr on %s", f.Types.String(a.Type()))
		return nil
	}
}

// RawBits reinterprets a scalar as an integer of its own primitive width,
// preserving the bit pattern.
func (f Folder) RawBits(a Value) Value {
	switch a := a.(type) {
	case *Int:
		tt := f.Types.MustLookup(a.Ty)
		if !tt.Signed {
			return a
		}
		return NewIntBits(f.IntTy(int(tt.Width)), a.V)
	case *Float:
		tt := f.Types.MustLookup(a.Ty)
		return NewIntBits(f.IntTy(int(tt.Width)), a.Bits)
	case *Ptr:
		return f.PtrToInt(a)
	case *Undef:
		return &Undef{Ty: f.IntTy(f.Width(a.Ty))}
	default:
		diag.Failf(diag.ConvUnsupportedKind, "bit view of %s", f.Types.String(a.Type()))
		return nil
	}
}

// FromRawBits reinterprets an integer bit image as a scalar of the given
// type.  The widths must agree.
func (f Folder) FromRawBits(a Value, ty types.TypeID) Value {
	tt := f.Types.MustLookup(ty)
	switch tt.Kind {
	case types.KindInt:
		if _, ok := a.(*Undef); ok {
			return &Undef{Ty: ty}
		}
		return NewIntBits(ty, f.bitsOf(a))
	case types.KindFloat:
		if _, ok := a.(*Undef); ok {
			return &Undef{Ty: ty}
		}
		return &Float{Ty: ty, Bits: f.bitsOf(a)}
	case types.KindPointer:
		return f.IntToPtr(a, ty)
	default:
		diag.Failf(diag.ConvUnsupportedKind, "bit cast to %s", f.Types.String(ty))
		return nil
	}
}

// Cast performs a value cast between scalar types: extension and truncation
// for integers (sign-aware), rounding for floats, truncation toward zero for
// float to integer.
func (f Folder) Cast(a Value, ty types.TypeID) Value {
	src := f.Types.MustLookup(a.Type())
	dst := f.Types.MustLookup(ty)
	if a.Type() == ty {
		return a
	}
	if _, ok := a.(*Undef); ok {
		return &Undef{Ty: ty}
	}

	switch {
	case src.Kind == types.KindInt && dst.Kind == types.KindInt:
		if dst.Width <= src.Width {
			return f.Trunc(a, ty)
		}
		if src.Signed {
			return f.SExt(a, ty)
		}
		return f.ZExt(a, ty)

	case src.Kind == types.KindInt && dst.Kind == types.KindFloat:
		v := f.bitsOf(a)
		n := new(big.Int).Set(v)
		if src.Signed {
			n = toSigned(v, int(src.Width))
		}
		fv, _ := new(big.Float).SetInt(n).Float64()
		return f.floatFromHost(fv, ty)

	case src.Kind == types.KindFloat && dst.Kind == types.KindFloat:
		return f.floatFromHost(f.floatToHost(a.(*Float)), ty)

	case src.Kind == types.KindFloat && dst.Kind == types.KindInt:
		fv := f.floatToHost(a.(*Float))
		n, _ := big.NewFloat(math.Trunc(fv)).Int(nil)
		return NewInt(f.Types, ty, n)

	case src.Kind == types.KindPointer && dst.Kind == types.KindInt:
		return f.ZExtOrTrunc(f.PtrToInt(a), ty)

	case src.Kind == types.KindInt && dst.Kind == types.KindPointer:
		return f.IntToPtr(f.ZExtOrTrunc(a, f.IntTy(f.PtrBits)), ty)

	case src.Kind == types.KindPointer && dst.Kind == types.KindPointer:
		p := a.(*Ptr)
		return &Ptr{Ty: ty, Sym: p.Sym, Off: p.Off}

	default:
		diag.Failf(diag.ConvBadCast, "unsupported cast %s to %s",
			f.Types.String(a.Type()), f.Types.String(ty))
		return nil
	}
}

// floatToHost decodes an f32 or f64 bit pattern into a host float.
func (f Folder) floatToHost(v *Float) float64 {
	tt := f.Types.MustLookup(v.Ty)
	switch tt.Width {
	case 32:
		return float64(math.Float32frombits(uint32(v.Bits.Uint64())))
	case 64:
		return math.Float64frombits(v.Bits.Uint64())
	default:
		diag.Failf(diag.ConvBadCast, "value cast of f%d is not supported", tt.Width)
		return 0
	}
}

// floatFromHost encodes a host float into an f32 or f64 constant.
func (f Folder) floatFromHost(v float64, ty types.TypeID) Value {
	tt := f.Types.MustLookup(ty)
	switch tt.Width {
	case 32:
		return &Float{Ty: ty, Bits: new(big.Int).SetUint64(uint64(math.Float32bits(float32(v))))}
	case 64:
		return &Float{Ty: ty, Bits: new(big.Int).SetUint64(math.Float64bits(v))}
	default:
		diag.Failf(diag.ConvBadCast, "value cast to f%d is not supported", tt.Width)
		return nil
	}
}

// toSigned decodes a width-bit unsigned image as a signed value.
func toSigned(v *big.Int, width int) *big.Int {
	if width == 0 || v.Bit(width-1) == 0 {
		return new(big.Int).Set(v)
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return new(big.Int).Sub(v, mod)
}

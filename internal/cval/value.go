// Package cval is the domain of compile-time constant values: immutable,
// recursively structured, and always tagged with an interned type.  The
// folder in fold.go supplies the integer and bitwise primitives the bit
// engines are built from.
package cval

import (
	"math/big"

	"bitsmith/internal/types"
)

// SymID refers to a symbol with an addressable storage location.  The zero
// value means "no symbol": a pointer with SymID 0 is a plain address.
type SymID uint32

// Value is a constant structural value.  The set of implementations is
// closed; dispatch is an exhaustive switch.
type Value interface {
	Type() types.TypeID
	isValue()
}

// Int is an integer constant.  V is the unsigned bit image, masked to the
// type's width; signed types store their two's complement image.
type Int struct {
	Ty types.TypeID
	V  *big.Int
}

// Float is a float constant held as its raw bit pattern, so that odd widths
// (f80) need no host representation.
type Float struct {
	Ty   types.TypeID
	Bits *big.Int
}

// Undef is a value with unspecified bits.  Forcing it into integer form
// yields zeros, for deterministic output.
type Undef struct {
	Ty types.TypeID
}

// Ptr is a pointer constant: the address of Sym plus Off bytes, or the plain
// address Off when Sym is zero.
type Ptr struct {
	Ty  types.TypeID
	Sym SymID
	Off int64
}

// Reloc is an integer whose value is only known at link time: the address of
// Sym plus Off.  It supports additive folding but cannot be viewed as bits.
type Reloc struct {
	Ty  types.TypeID
	Sym SymID
	Off int64
}

// Array is an array or vector constant, one element per declared slot.
type Array struct {
	Ty    types.TypeID
	Elems []Value
}

// Struct is a struct constant, one value per declared field.
type Struct struct {
	Ty     types.TypeID
	Fields []Value
}

func (v *Int) Type() types.TypeID    { return v.Ty }
func (v *Float) Type() types.TypeID  { return v.Ty }
func (v *Undef) Type() types.TypeID  { return v.Ty }
func (v *Ptr) Type() types.TypeID    { return v.Ty }
func (v *Reloc) Type() types.TypeID  { return v.Ty }
func (v *Array) Type() types.TypeID  { return v.Ty }
func (v *Struct) Type() types.TypeID { return v.Ty }

func (*Int) isValue()    {}
func (*Float) isValue()  {}
func (*Undef) isValue()  {}
func (*Ptr) isValue()    {}
func (*Reloc) isValue()  {}
func (*Array) isValue()  {}
func (*Struct) isValue() {}

// NewInt builds an integer constant, masking v to the type's width.
func NewInt(in *types.Interner, ty types.TypeID, v *big.Int) *Int {
	tt := in.MustLookup(ty)
	if tt.Kind != types.KindInt {
		panic("cval: NewInt on non-integer type")
	}
	return &Int{Ty: ty, V: maskTo(v, int(tt.Width))}
}

// NewIntBits is NewInt for values already known to fit.
func NewIntBits(ty types.TypeID, v *big.Int) *Int {
	return &Int{Ty: ty, V: v}
}

// maskTo reduces v to the unsigned bit image of the given width.  Negative
// values become their two's complement image.
func maskTo(v *big.Int, width int) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width))
	return new(big.Int).Mod(v, mod)
}

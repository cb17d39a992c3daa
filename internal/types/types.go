package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindPointer
	KindArray
	KindVector
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ArrayDynamicLength marks arrays whose length is fixed by the initializer
// rather than the type.
const ArrayDynamicLength = ^uint32(0)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Width   uint32 // bit width for int/float
	Signed  bool   // for int
	Elem    TypeID // for pointer/array/vector
	Count   uint32 // for array/vector (ArrayDynamicLength means unsized)
	Payload uint32 // for struct: index into the interner's struct infos
}

// StructField describes one declared field of a struct type.
type StructField struct {
	Type TypeID
}

// StructInfo carries the field list of a struct type.
type StructInfo struct {
	Fields []StructField
	Packed bool
}

// MakeInt builds an integer descriptor of the given bit width.
func MakeInt(width uint32, signed bool) Type {
	return Type{Kind: KindInt, Width: width, Signed: signed}
}

// MakeFloat builds a float descriptor of the given bit width.
func MakeFloat(width uint32) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer builds a pointer descriptor.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// MakeArray builds a fixed-length array descriptor.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeVector builds a vector descriptor.
func MakeVector(elem TypeID, count uint32) Type {
	return Type{Kind: KindVector, Elem: elem, Count: count}
}

// IsAggregate reports whether the kind has sub-values.
func (k Kind) IsAggregate() bool {
	return k == KindArray || k == KindVector || k == KindStruct
}

// IsScalar reports whether the kind is a single-valued bit pattern.
func (k Kind) IsScalar() bool {
	return k == KindInt || k == KindFloat || k == KindPointer
}

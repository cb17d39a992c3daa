// Package expr describes fully-constant initializer expressions as handed
// over by a front end.  The converter walks these descriptions; nothing here
// evaluates anything.
package expr

import (
	"math/big"

	"bitsmith/internal/cval"
	"bitsmith/internal/types"
)

// Expr is one constant initializer expression.  The set of forms is closed.
type Expr interface {
	Type() types.TypeID
	isExpr()
}

// IntLit is an integer literal.  V may be negative for signed types.
type IntLit struct {
	Ty types.TypeID
	V  *big.Int
}

// FloatLit is a float literal held as the raw bit pattern of its type.
type FloatLit struct {
	Ty   types.TypeID
	Bits *big.Int
}

// StringLit is a string literal initializing an array of integer elements
// (8, 16 or 32 bits per element).
type StringLit struct {
	Ty types.TypeID
	S  string
}

// CtorEntry is a single positioned entry of an aggregate constructor.
type CtorEntry struct {
	// Array constructors: First/Last give the inclusive index range the
	// value fills; HasIndex false means "next available slot".
	HasIndex    bool
	First, Last *big.Int

	// Record constructors: Field is the declared field index, or -1 for
	// "next field in declaration order".
	Field int

	Value Expr
}

// RecordField places one declared field of a source record.  Bitfields may
// start mid-byte and may be narrower than their declared type.
type RecordField struct {
	Ty         types.TypeID
	OffsetBits int
	// SizeBits is the declared constant bit size, or 0 when the size is
	// variable or unknown and must be taken from the initializer.
	SizeBits int
}

// RecordShape is the source-level layout of a record being initialized.
// It is distinct from the layout oracle's view: source records may pack
// bitfields at positions the oracle's struct types cannot express.
type RecordShape struct {
	SizeBits  int // declared alloc size of the record
	AlignBits int // declared ABI alignment of the record
	Fields    []RecordField
}

// Ctor is an aggregate constructor for array, vector or record types.
type Ctor struct {
	Ty      types.TypeID
	Entries []CtorEntry

	// LowerBound is subtracted from array indices before use, for source
	// languages whose arrays do not start at zero.  Nil means zero.
	LowerBound *big.Int

	// Record describes the source record shape.  Nil for a struct-typed
	// constructor means "derive the shape from the declared type".
	Record *RecordShape
}

// AddrOf takes the address of an object with constant address.
type AddrOf struct {
	Ty  types.TypeID // pointer type of the result
	Obj Object
}

// BinOpKind enumerates constant arithmetic forms.
type BinOpKind uint8

const (
	OpAdd BinOpKind = iota
	OpSub
)

// BinOp is constant arithmetic over two initializers.
type BinOp struct {
	Ty   types.TypeID
	Op   BinOpKind
	L, R Expr
}

// PtrPlus is pointer-plus-offset-in-bytes.
type PtrPlus struct {
	Ty  types.TypeID
	Ptr Expr
	Off Expr
}

// ViewConvert reinterprets the bits of the operand as another type without
// changing them.
type ViewConvert struct {
	Ty types.TypeID
	X  Expr
}

// Cast converts the operand's value (not its bits) to another scalar type.
type Cast struct {
	Ty types.TypeID
	X  Expr
}

func (e *IntLit) Type() types.TypeID      { return e.Ty }
func (e *FloatLit) Type() types.TypeID    { return e.Ty }
func (e *StringLit) Type() types.TypeID   { return e.Ty }
func (e *Ctor) Type() types.TypeID        { return e.Ty }
func (e *AddrOf) Type() types.TypeID      { return e.Ty }
func (e *BinOp) Type() types.TypeID       { return e.Ty }
func (e *PtrPlus) Type() types.TypeID     { return e.Ty }
func (e *ViewConvert) Type() types.TypeID { return e.Ty }
func (e *Cast) Type() types.TypeID        { return e.Ty }

func (*IntLit) isExpr()      {}
func (*FloatLit) isExpr()    {}
func (*StringLit) isExpr()   {}
func (*Ctor) isExpr()        {}
func (*AddrOf) isExpr()      {}
func (*BinOp) isExpr()       {}
func (*PtrPlus) isExpr()     {}
func (*ViewConvert) isExpr() {}
func (*Cast) isExpr()        {}

// Object is something with a constant address.
type Object interface {
	isObject()
}

// SymObject is a declared symbol.
type SymObject struct {
	Sym cval.SymID
}

// LitObject is a literal constant that needs its own private storage.
type LitObject struct {
	X Expr
}

// ElemObject is an element of an array object.
type ElemObject struct {
	Base  Object
	Ty    types.TypeID // array type of the base
	Index Expr
	// LowerBound is subtracted from the index, when non-nil.
	LowerBound *big.Int
}

// FieldObject is a field of a struct object.
type FieldObject struct {
	Base  Object
	Ty    types.TypeID // struct type of the base
	Field int
}

// DerefObject is a dereference: the address is the operand's value.
type DerefObject struct {
	Ptr Expr
}

func (*SymObject) isObject()   {}
func (*LitObject) isObject()   {}
func (*ElemObject) isObject()  {}
func (*FieldObject) isObject() {}
func (*DerefObject) isObject() {}

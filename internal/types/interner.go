package types

import (
	"fmt"
	"strings"
	"sync"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	I1      TypeID
	Byte    TypeID
	I16     TypeID
	I32     TypeID
	I64     TypeID
	F32     TypeID
	F64     TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Interning and lookups are safe for concurrent use.
type Interner struct {
	mu          sync.RWMutex
	types       []Type
	index       map[Type]TypeID
	structs     []StructInfo
	structIndex map[string]TypeID
	builtins    Builtins
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:       make(map[Type]TypeID, 64),
		structIndex: make(map[string]TypeID, 16),
	}
	in.structs = append(in.structs, StructInfo{}) // reserve 0 as invalid sentinel
	in.mu.Lock()
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.mu.Unlock()
	in.builtins.I1 = in.Intern(MakeInt(1, false))
	in.builtins.Byte = in.Intern(MakeInt(8, false))
	in.builtins.I16 = in.Intern(MakeInt(16, false))
	in.builtins.I32 = in.Intern(MakeInt(32, false))
	in.builtins.I64 = in.Intern(MakeInt(64, false))
	in.builtins.F32 = in.Intern(MakeFloat(32))
	in.builtins.F64 = in.Intern(MakeFloat(64))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if t.Kind == KindStruct {
		panic("types: struct types must go through InternStruct")
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// InternStruct ensures the struct shape has a stable TypeID.  Two structs
// with the same field list and packing share one TypeID.
func (in *Interner) InternStruct(info StructInfo) TypeID {
	key := structKey(info)
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.structIndex[key]; ok {
		return id
	}
	payload, err := safecast.Conv[uint32](len(in.structs))
	if err != nil {
		panic(fmt.Errorf("len(structs) overflow: %w", err))
	}
	in.structs = append(in.structs, info)
	id := in.internRaw(Type{Kind: KindStruct, Payload: payload})
	in.structIndex[key] = id
	return id
}

// internRaw adds the descriptor to the storage.  Callers hold in.mu.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// StructInfo returns the field list of a struct type.  The returned info is
// immutable once interned.
func (in *Interner) StructInfo(id TypeID) (*StructInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(in.types) {
		return nil, false
	}
	tt := in.types[id]
	if tt.Kind != KindStruct {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.structs) {
		return nil, false
	}
	return &in.structs[tt.Payload], true
}

// UnitArray returns the type of n bytes, i.e. [n x i8].
func (in *Interner) UnitArray(n uint32) TypeID {
	return in.Intern(MakeArray(in.builtins.Byte, n))
}

// structKey folds a field list into a map key.  Struct descriptors
// themselves are keyed by payload index, which InternStruct keeps unique per
// shape.
func structKey(info StructInfo) string {
	var b strings.Builder
	if info.Packed {
		b.WriteByte('p')
	}
	for _, f := range info.Fields {
		fmt.Fprintf(&b, "%d,", f.Type)
	}
	return b.String()
}

// String renders a type for diagnostics.
func (in *Interner) String(id TypeID) string {
	tt, ok := in.Lookup(id)
	if !ok {
		return "<invalid>"
	}
	switch tt.Kind {
	case KindInt:
		if tt.Signed {
			return fmt.Sprintf("s%d", tt.Width)
		}
		return fmt.Sprintf("i%d", tt.Width)
	case KindFloat:
		return fmt.Sprintf("f%d", tt.Width)
	case KindPointer:
		return fmt.Sprintf("*%s", in.String(tt.Elem))
	case KindArray:
		if tt.Count == ArrayDynamicLength {
			return fmt.Sprintf("[? x %s]", in.String(tt.Elem))
		}
		return fmt.Sprintf("[%d x %s]", tt.Count, in.String(tt.Elem))
	case KindVector:
		return fmt.Sprintf("<%d x %s>", tt.Count, in.String(tt.Elem))
	case KindStruct:
		info, ok := in.StructInfo(id)
		if !ok {
			return "{?}"
		}
		parts := make([]string, 0, len(info.Fields))
		for _, f := range info.Fields {
			parts = append(parts, in.String(f.Type))
		}
		open, closeBr := "{", "}"
		if info.Packed {
			open, closeBr = "<{", "}>"
		}
		return open + strings.Join(parts, ", ") + closeBr
	default:
		return tt.Kind.String()
	}
}

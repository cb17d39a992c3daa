// Package script loads constant descriptions from TOML files.  A script
// names a target, declares struct shapes, and lists constants with typed
// initializer values; the loader turns those into expression trees ready
// for the driver.
package script

import (
	"fmt"
	"math"
	"math/big"

	"github.com/BurntSushi/toml"

	"bitsmith/internal/driver"
	"bitsmith/internal/expr"
	"bitsmith/internal/layout"
	"bitsmith/internal/symtab"
	"bitsmith/internal/types"
)

// File is the raw TOML shape of a script.
type File struct {
	Target    string               `toml:"target"`
	Structs   map[string]StructDef `toml:"structs"`
	Constants []ConstantDef        `toml:"constants"`
}

// StructDef declares a named struct type.
type StructDef struct {
	Fields []string `toml:"fields"`
	Packed bool     `toml:"packed"`
}

// ConstantDef declares one constant to materialize.
type ConstantDef struct {
	Name      string   `toml:"name"`
	Type      string   `toml:"type"`
	AlignBits int      `toml:"align_bits"`
	Value     ValueDef `toml:"value"`
}

// ValueDef is one initializer value.  Exactly one of the value fields should
// be set; none at all means the type's zero value.
type ValueDef struct {
	Int    *int64     `toml:"int"`
	Float  *float64   `toml:"float"`
	Bits   *int64     `toml:"bits"` // raw bit pattern, for NaNs and the like
	String *string    `toml:"string"`
	Addr   *string    `toml:"addr"`   // address of another constant by name
	Offset int64      `toml:"offset"` // byte offset applied to addr
	Elems  []ValueDef `toml:"elems"`

	// Position inside the enclosing aggregate.  Index/Last address array
	// slots, Field names a struct field; unset means "next".
	Index *int64 `toml:"index"`
	Last  *int64 `toml:"last"`
	Field *int64 `toml:"field"`
}

// Script is a loaded, resolved constant batch.
type Script struct {
	Target layout.Target
	Types  *types.Interner
	Syms   *symtab.Table
	Reqs   []driver.Request
}

// Load reads and resolves a script file, picking the target from the given
// set (built-in targets serve as fallback).
func Load(path string, targets []layout.Target) (*Script, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return Resolve(&f, targets)
}

// Resolve turns a decoded file into a script.
func Resolve(f *File, targets []layout.Target) (*Script, error) {
	name := f.Target
	if name == "" {
		name = "x86_64-linux"
	}
	target, ok := layout.FindTarget(targets, name)
	if !ok {
		return nil, fmt.Errorf("unknown target %q", name)
	}

	b := &builder{
		in:      types.NewInterner(),
		syms:    symtab.NewTable(),
		structs: f.Structs,
		named:   make(map[string]types.TypeID),
	}
	lay := layout.New(target, b.in)

	// Two passes: declare every constant first so values can take each
	// other's addresses in any order.
	ids := make([]types.TypeID, len(f.Constants))
	for i, c := range f.Constants {
		ty, err := b.parseType(c.Type)
		if err != nil {
			return nil, fmt.Errorf("constant %q: %w", c.Name, err)
		}
		ids[i] = ty
		align := c.AlignBits
		if align == 0 {
			align = lay.ABIAlignmentBits(ty)
		}
		b.syms.Declare(c.Name, ty, align)
	}

	s := &Script{Target: target, Types: b.in, Syms: b.syms}
	for i, c := range f.Constants {
		init, err := b.buildExpr(&c.Value, ids[i])
		if err != nil {
			return nil, fmt.Errorf("constant %q: %w", c.Name, err)
		}
		s.Reqs = append(s.Reqs, driver.Request{
			Name:      c.Name,
			Init:      init,
			AlignBits: c.AlignBits,
		})
	}
	return s, nil
}

// ResolveTypes resolves type expressions against the file's struct
// declarations without building any constants.
func (f *File) ResolveTypes(exprs []string) (*types.Interner, []types.TypeID, error) {
	b := &builder{
		in:      types.NewInterner(),
		syms:    symtab.NewTable(),
		structs: f.Structs,
		named:   make(map[string]types.TypeID),
	}
	ids := make([]types.TypeID, len(exprs))
	for i, e := range exprs {
		id, err := b.parseType(e)
		if err != nil {
			return nil, nil, err
		}
		ids[i] = id
	}
	return b.in, ids, nil
}

type builder struct {
	in      *types.Interner
	syms    *symtab.Table
	structs map[string]StructDef
	named   map[string]types.TypeID
}

func (b *builder) buildExpr(v *ValueDef, ty types.TypeID) (expr.Expr, error) {
	tt := b.in.MustLookup(ty)
	switch {
	case v.Int != nil:
		return &expr.IntLit{Ty: ty, V: big.NewInt(*v.Int)}, nil

	case v.Float != nil:
		bits, err := floatBits(*v.Float, tt)
		if err != nil {
			return nil, err
		}
		return &expr.FloatLit{Ty: ty, Bits: bits}, nil

	case v.Bits != nil:
		raw := new(big.Int).SetUint64(uint64(*v.Bits))
		if tt.Kind == types.KindFloat {
			return &expr.FloatLit{Ty: ty, Bits: raw}, nil
		}
		return &expr.IntLit{Ty: ty, V: raw}, nil

	case v.String != nil:
		return &expr.StringLit{Ty: ty, S: *v.String}, nil

	case v.Addr != nil:
		sym, ok := b.syms.LookupName(*v.Addr)
		if !ok {
			return nil, fmt.Errorf("addr of unknown constant %q", *v.Addr)
		}
		var e expr.Expr = &expr.AddrOf{Ty: ty, Obj: &expr.SymObject{Sym: sym}}
		if v.Offset != 0 {
			off := b.in.Intern(types.MakeInt(64, true))
			e = &expr.PtrPlus{Ty: ty, Ptr: e, Off: &expr.IntLit{Ty: off, V: big.NewInt(v.Offset)}}
		}
		return e, nil

	case v.Elems != nil:
		return b.buildCtor(v, ty, tt)

	default:
		// No value: the zero of the type.
		if tt.Kind.IsAggregate() {
			return &expr.Ctor{Ty: ty}, nil
		}
		if tt.Kind == types.KindFloat {
			return &expr.FloatLit{Ty: ty, Bits: new(big.Int)}, nil
		}
		return &expr.IntLit{Ty: ty, V: new(big.Int)}, nil
	}
}

func (b *builder) buildCtor(v *ValueDef, ty types.TypeID, tt types.Type) (expr.Expr, error) {
	ct := &expr.Ctor{Ty: ty}
	next := 0
	for i := range v.Elems {
		ev := &v.Elems[i]
		slot := next
		if ev.Field != nil {
			slot = int(*ev.Field)
		}
		next = slot + 1
		slotTy, err := b.slotType(tt, ty, slot)
		if err != nil {
			return nil, err
		}
		sub, err := b.buildExpr(ev, slotTy)
		if err != nil {
			return nil, err
		}
		ent := expr.CtorEntry{Field: -1, Value: sub}
		if ev.Index != nil {
			ent.HasIndex = true
			ent.First = big.NewInt(*ev.Index)
			ent.Last = ent.First
			if ev.Last != nil {
				ent.Last = big.NewInt(*ev.Last)
			}
		}
		if ev.Field != nil {
			ent.Field = int(*ev.Field)
		}
		ct.Entries = append(ct.Entries, ent)
	}
	return ct, nil
}

// slotType finds the declared type of the aggregate slot an element lands
// in, so element values can be built against it.
func (b *builder) slotType(tt types.Type, ty types.TypeID, slot int) (types.TypeID, error) {
	switch tt.Kind {
	case types.KindArray, types.KindVector:
		return tt.Elem, nil
	case types.KindStruct:
		info, ok := b.in.StructInfo(ty)
		if !ok {
			return types.NoTypeID, fmt.Errorf("malformed struct type %s", b.in.String(ty))
		}
		if slot < 0 || slot >= len(info.Fields) {
			return types.NoTypeID, fmt.Errorf("no field %d in %s", slot, b.in.String(ty))
		}
		return info.Fields[slot].Type, nil
	default:
		return types.NoTypeID, fmt.Errorf("elements for scalar type %s", b.in.String(ty))
	}
}

func floatBits(v float64, tt types.Type) (*big.Int, error) {
	if tt.Kind != types.KindFloat {
		return nil, fmt.Errorf("float value for %s type", tt.Kind)
	}
	switch tt.Width {
	case 32:
		return new(big.Int).SetUint64(uint64(math.Float32bits(float32(v)))), nil
	case 64:
		return new(big.Int).SetUint64(math.Float64bits(v)), nil
	default:
		return nil, fmt.Errorf("no literal form for f%d, use bits", tt.Width)
	}
}

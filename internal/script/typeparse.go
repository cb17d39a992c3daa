package script

import (
	"fmt"
	"strconv"
	"strings"

	"bitsmith/internal/types"
)

// parseType parses a type expression: "i8"/"s32"/"f64" scalars, "*T"
// pointers, "[4 x T]" arrays ("[? x T]" when the initializer decides the
// length), "<4 x T>" vectors.  Any other word names a declared struct.
func (b *builder) parseType(s string) (types.TypeID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.NoTypeID, fmt.Errorf("empty type")
	}
	switch s[0] {
	case '*':
		elem, err := b.parseType(s[1:])
		if err != nil {
			return types.NoTypeID, err
		}
		return b.in.Intern(types.MakePointer(elem)), nil
	case '[':
		return b.parseSeq(s, ']', false)
	case '<':
		return b.parseSeq(s, '>', true)
	}
	if id, ok := b.scalarType(s); ok {
		return id, nil
	}
	return b.structType(s)
}

func (b *builder) scalarType(s string) (types.TypeID, bool) {
	if len(s) < 2 {
		return types.NoTypeID, false
	}
	w, err := strconv.ParseUint(s[1:], 10, 24)
	if err != nil || w == 0 {
		return types.NoTypeID, false
	}
	switch s[0] {
	case 'i':
		return b.in.Intern(types.MakeInt(uint32(w), false)), true
	case 's':
		return b.in.Intern(types.MakeInt(uint32(w), true)), true
	case 'f':
		return b.in.Intern(types.MakeFloat(uint32(w))), true
	}
	return types.NoTypeID, false
}

func (b *builder) parseSeq(s string, term byte, vector bool) (types.TypeID, error) {
	if s[len(s)-1] != term {
		return types.NoTypeID, fmt.Errorf("missing %q in %q", string(term), s)
	}
	countStr, elemStr, ok := strings.Cut(s[1:len(s)-1], " x ")
	if !ok {
		return types.NoTypeID, fmt.Errorf("want \"[N x T]\", got %q", s)
	}
	elem, err := b.parseType(elemStr)
	if err != nil {
		return types.NoTypeID, err
	}
	countStr = strings.TrimSpace(countStr)
	if !vector && countStr == "?" {
		return b.in.Intern(types.MakeArray(elem, types.ArrayDynamicLength)), nil
	}
	n, err := strconv.ParseUint(countStr, 10, 31)
	if err != nil {
		return types.NoTypeID, fmt.Errorf("bad element count %q", countStr)
	}
	if vector {
		return b.in.Intern(types.MakeVector(elem, uint32(n))), nil
	}
	return b.in.Intern(types.MakeArray(elem, uint32(n))), nil
}

func (b *builder) structType(name string) (types.TypeID, error) {
	if id, ok := b.named[name]; ok {
		if id == types.NoTypeID {
			return id, fmt.Errorf("struct %q refers to itself", name)
		}
		return id, nil
	}
	def, ok := b.structs[name]
	if !ok {
		return types.NoTypeID, fmt.Errorf("unknown type %q", name)
	}
	b.named[name] = types.NoTypeID // cycle marker
	info := types.StructInfo{Packed: def.Packed}
	for _, fs := range def.Fields {
		fty, err := b.parseType(fs)
		if err != nil {
			return types.NoTypeID, fmt.Errorf("struct %q: %w", name, err)
		}
		info.Fields = append(info.Fields, types.StructField{Type: fty})
	}
	id := b.in.InternStruct(info)
	b.named[name] = id
	return id, nil
}

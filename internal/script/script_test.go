package script

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"bitsmith/internal/conv"
	"bitsmith/internal/driver"
	"bitsmith/internal/expr"
	"bitsmith/internal/layout"
	"bitsmith/internal/types"
)

func TestBuilder_ParseType(t *testing.T) {
	f := &File{Structs: map[string]StructDef{
		"pair":   {Fields: []string{"i8", "i32"}},
		"tight":  {Fields: []string{"i8", "i32"}, Packed: true},
		"nested": {Fields: []string{"pair", "[2 x pair]"}},
	}}

	tests := []struct {
		name string
		in   string
		want string // interner's rendering
	}{
		{name: "unsigned int", in: "i8", want: "i8"},
		{name: "signed int", in: "s32", want: "s32"},
		{name: "float", in: "f64", want: "f64"},
		{name: "pointer", in: "*i8", want: "*i8"},
		{name: "array", in: "[4 x i8]", want: "[4 x i8]"},
		{name: "dynamic array", in: "[? x i8]", want: "[? x i8]"},
		{name: "vector", in: "<4 x f32>", want: "<4 x f32>"},
		{name: "nested array", in: "[2 x [3 x i16]]", want: "[2 x [3 x i16]]"},
		{name: "struct", in: "pair", want: "{i8, i32}"},
		{name: "packed struct", in: "tight", want: "<{i8, i32}>"},
		{name: "struct of structs", in: "nested", want: "{{i8, i32}, [2 x {i8, i32}]}"},
		{name: "whitespace tolerated", in: "  i16 ", want: "i16"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ids, err := f.ResolveTypes([]string{tt.in})
			if err != nil {
				t.Fatalf("ResolveTypes(%q): %v", tt.in, err)
			}
			if got := in.String(ids[0]); got != tt.want {
				t.Errorf("type = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuilder_ParseTypeErrors(t *testing.T) {
	f := &File{Structs: map[string]StructDef{
		"selfish": {Fields: []string{"i8", "selfish"}},
	}}

	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "unknown name", in: "gizmo"},
		{name: "zero width", in: "i0"},
		{name: "bad count", in: "[x x i8]"},
		{name: "unterminated", in: "[4 x i8"},
		{name: "dynamic vector", in: "<? x i8>"},
		{name: "recursive struct", in: "selfish"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := f.ResolveTypes([]string{tt.in}); err == nil {
				t.Errorf("ResolveTypes(%q) should fail", tt.in)
			}
		})
	}
}

func i64p(v int64) *int64     { return &v }
func f64p(v float64) *float64 { return &v }
func strp(s string) *string   { return &s }

func TestResolve_Constants(t *testing.T) {
	f := &File{
		Target: "x86_64-linux",
		Structs: map[string]StructDef{
			"pair": {Fields: []string{"i8", "i32"}},
		},
		Constants: []ConstantDef{
			{Name: "answer", Type: "i32", Value: ValueDef{Int: i64p(42)}},
			{Name: "ratio", Type: "f64", Value: ValueDef{Float: f64p(0.5)}},
			{Name: "greeting", Type: "[? x i8]", Value: ValueDef{String: strp("hello")}},
			{Name: "zeroed", Type: "pair"},
			{Name: "link", Type: "*i32", Value: ValueDef{Addr: strp("answer"), Offset: 4}},
			{Name: "mixed", Type: "pair", Value: ValueDef{Elems: []ValueDef{
				{Int: i64p(1)},
				{Int: i64p(2)},
			}}},
			{Name: "sparse", Type: "[4 x i8]", Value: ValueDef{Elems: []ValueDef{
				{Index: i64p(1), Last: i64p(2), Int: i64p(9)},
			}}},
		},
	}

	s, err := Resolve(f, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Target.Name != "x86_64-linux" {
		t.Fatalf("target = %s", s.Target.Name)
	}
	if len(s.Reqs) != len(f.Constants) {
		t.Fatalf("requests = %d", len(s.Reqs))
	}

	if _, ok := s.Reqs[0].Init.(*expr.IntLit); !ok {
		t.Errorf("answer init = %T", s.Reqs[0].Init)
	}
	if _, ok := s.Reqs[1].Init.(*expr.FloatLit); !ok {
		t.Errorf("ratio init = %T", s.Reqs[1].Init)
	}
	if _, ok := s.Reqs[2].Init.(*expr.StringLit); !ok {
		t.Errorf("greeting init = %T", s.Reqs[2].Init)
	}
	if _, ok := s.Reqs[3].Init.(*expr.Ctor); !ok {
		t.Errorf("zeroed init = %T", s.Reqs[3].Init)
	}
	if _, ok := s.Reqs[4].Init.(*expr.PtrPlus); !ok {
		t.Errorf("link init with offset = %T", s.Reqs[4].Init)
	}

	sparse := s.Reqs[6].Init.(*expr.Ctor)
	ent := sparse.Entries[0]
	if !ent.HasIndex || ent.First.Int64() != 1 || ent.Last.Int64() != 2 {
		t.Errorf("sparse entry = %+v", ent)
	}

	// Every constant is declared before any value resolves, so "link"
	// could name "answer" regardless of order.
	if _, ok := s.Syms.LookupName("answer"); !ok {
		t.Error("answer not declared")
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name string
		f    *File
	}{
		{
			name: "unknown target",
			f:    &File{Target: "pdp11"},
		},
		{
			name: "bad type",
			f: &File{Constants: []ConstantDef{
				{Name: "x", Type: "wat"},
			}},
		},
		{
			name: "addr of unknown constant",
			f: &File{Constants: []ConstantDef{
				{Name: "p", Type: "*i8", Value: ValueDef{Addr: strp("ghost")}},
			}},
		},
		{
			name: "float literal for odd width",
			f: &File{Constants: []ConstantDef{
				{Name: "x", Type: "f80", Value: ValueDef{Float: f64p(1)}},
			}},
		},
		{
			name: "elements for scalar",
			f: &File{Constants: []ConstantDef{
				{Name: "x", Type: "i32", Value: ValueDef{Elems: []ValueDef{{Int: i64p(1)}}}},
			}},
		},
		{
			name: "field out of range",
			f: &File{
				Structs: map[string]StructDef{"one": {Fields: []string{"i8"}}},
				Constants: []ConstantDef{
					{Name: "x", Type: "one", Value: ValueDef{Elems: []ValueDef{
						{Field: i64p(3), Int: i64p(1)},
					}}},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Resolve(tt.f, nil); err == nil {
				t.Error("Resolve should fail")
			}
		})
	}
}

func TestSlotType_MalformedStruct(t *testing.T) {
	b := &builder{
		in:    types.NewInterner(),
		named: make(map[string]types.TypeID),
	}
	bt := b.in.Builtins()

	// A struct descriptor whose id carries no struct info must error, not
	// dereference a nil info.
	_, err := b.slotType(types.Type{Kind: types.KindStruct, Payload: 99}, bt.I32, 0)
	if err == nil {
		t.Fatal("malformed struct type should be rejected")
	}
}

func TestResolve_DefaultTarget(t *testing.T) {
	s, err := Resolve(&File{}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if s.Target.Name != "x86_64-linux" {
		t.Fatalf("default target = %s", s.Target.Name)
	}
}

func TestLoad_EndToEnd(t *testing.T) {
	src := `
target = "x86_64-linux"

[structs.header]
fields = ["i16", "i16"]

[[constants]]
name = "magic"
type = "header"
[constants.value]
elems = [{ int = 0xCAFE }, { int = 0x0001 }]

[[constants]]
name = "banner"
type = "[8 x i8]"
[constants.value]
string = "bits"
`
	path := filepath.Join(t.TempDir(), "consts.toml")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	c := conv.New(s.Types, layout.New(s.Target, s.Types), s.Syms)
	results, err := driver.Materialize(context.Background(), c, s.Reqs, driver.Options{})
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	if got := results[0].Bytes; !bytes.Equal(got, []byte{0xfe, 0xca, 0x01, 0x00}) {
		t.Errorf("magic bytes = %x", got)
	}
	if got := results[1].Bytes; !bytes.Equal(got, []byte{'b', 'i', 't', 's', 0, 0, 0, 0}) {
		t.Errorf("banner bytes = %x", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml"), nil); err == nil {
		t.Fatal("Load of a missing file should fail")
	}
}

package bitview

import (
	"math/big"
	"testing"

	"bitsmith/internal/cval"
	"bitsmith/internal/interval"
	"bitsmith/internal/types"
)

func mkInt(e *Engine, ty types.TypeID, v int64) *cval.Int {
	return cval.NewInt(e.Types, ty, big.NewInt(v))
}

func TestViewAsBits_Scalars(t *testing.T) {
	le := leEngine(t)
	be := beEngine(t)
	i7le := le.Fold.IntTy(7)
	i7be := be.Fold.IntTy(7)

	// A full-byte integer occupies its whole store either way.
	s := le.ViewAsBits(mkInt(le, le.Types.Builtins().I16, 0x1234), interval.Make(0, 16))
	wantInt(t, s.GetBits(interval.Make(0, 16)), 0x1234)

	// An i7 leaves its padding bit at the end on little-endian targets and
	// at the start on big-endian ones.
	s = le.ViewAsBits(mkInt(le, i7le, 0x55), interval.Make(0, 8))
	if !s.Range().Equal(interval.Make(0, 7)) {
		t.Fatalf("le i7 range = %s", s.Range())
	}
	s = be.ViewAsBits(mkInt(be, i7be, 0x55), interval.Make(0, 8))
	if !s.Range().Equal(interval.Make(1, 8)) {
		t.Fatalf("be i7 range = %s", s.Range())
	}
}

func TestViewAsBits_Array(t *testing.T) {
	le := leEngine(t)
	bt := le.Types.Builtins()
	arrTy := le.Types.Intern(types.MakeArray(bt.Byte, 4))
	arr := &cval.Array{Ty: arrTy, Elems: []cval.Value{
		mkInt(le, bt.Byte, 0x44), mkInt(le, bt.Byte, 0x33),
		mkInt(le, bt.Byte, 0x22), mkInt(le, bt.Byte, 0x11),
	}}

	s := le.ViewAsBits(arr, interval.Make(0, 32))
	wantInt(t, s.GetBits(interval.Make(0, 32)), 0x11223344)

	// A partial window only walks the covered elements.
	s = le.ViewAsBits(arr, interval.Make(8, 24))
	wantInt(t, s.GetBits(interval.Make(8, 24)), 0x2233)
}

func TestViewAsBits_ArrayBigEndian(t *testing.T) {
	be := beEngine(t)
	bt := be.Types.Builtins()
	arrTy := be.Types.Intern(types.MakeArray(bt.Byte, 2))
	arr := &cval.Array{Ty: arrTy, Elems: []cval.Value{
		mkInt(be, bt.Byte, 0xab), mkInt(be, bt.Byte, 0xcd),
	}}
	s := be.ViewAsBits(arr, interval.Make(0, 16))
	wantInt(t, s.GetBits(interval.Make(0, 16)), 0xabcd)
}

func TestViewAsBits_Struct(t *testing.T) {
	le := leEngine(t)
	bt := le.Types.Builtins()
	st := le.Types.InternStruct(types.StructInfo{
		Fields: []types.StructField{{Type: bt.Byte}, {Type: bt.I16}},
	})
	v := &cval.Struct{Ty: st, Fields: []cval.Value{
		mkInt(le, bt.Byte, 0x42), mkInt(le, bt.I16, 0xbeef),
	}}
	s := le.ViewAsBits(v, interval.Make(0, 32))
	wantInt(t, s.GetBits(interval.Make(0, 8)), 0x42)
	wantInt(t, s.GetBits(interval.Make(16, 32)), 0xbeef)
}

func TestInterpretAsType_Identity(t *testing.T) {
	le := leEngine(t)
	bt := le.Types.Builtins()
	v := mkInt(le, bt.I32, 77)
	if got := le.InterpretAsType(v, bt.I32, 0); got != v {
		t.Fatal("same-type interpretation should return the value unchanged")
	}
}

func TestInterpretAsType_IntWindows(t *testing.T) {
	le := leEngine(t)
	bt := le.Types.Builtins()
	v := mkInt(le, bt.I32, 0x11223344)

	tests := []struct {
		name  string
		ty    types.TypeID
		start int
		want  uint64
	}{
		{name: "first byte", ty: bt.Byte, start: 0, want: 0x44},
		{name: "second byte", ty: bt.Byte, start: 8, want: 0x33},
		{name: "low half", ty: bt.I16, start: 0, want: 0x3344},
		{name: "high half", ty: bt.I16, start: 16, want: 0x1122},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantInt(t, le.InterpretAsType(v, tt.ty, tt.start), tt.want)
		})
	}
}

func TestInterpretAsType_IntWindowsBigEndian(t *testing.T) {
	be := beEngine(t)
	bt := be.Types.Builtins()
	v := mkInt(be, bt.I32, 0x11223344)

	// The first memory byte holds the most significant bits.
	wantInt(t, be.InterpretAsType(v, bt.Byte, 0), 0x11)
	wantInt(t, be.InterpretAsType(v, bt.Byte, 24), 0x44)
	wantInt(t, be.InterpretAsType(v, bt.I16, 0), 0x1122)
}

func TestInterpretAsType_Aggregates(t *testing.T) {
	le := leEngine(t)
	bt := le.Types.Builtins()
	v := mkInt(le, bt.I32, 0x11223344)

	arr := le.InterpretAsType(v, le.Types.UnitArray(4), 0).(*cval.Array)
	want := []uint64{0x44, 0x33, 0x22, 0x11}
	for i, w := range want {
		wantInt(t, arr.Elems[i], w)
	}

	st := le.Types.InternStruct(types.StructInfo{
		Fields: []types.StructField{{Type: bt.I16}, {Type: bt.I16}},
	})
	sv := le.InterpretAsType(v, st, 0).(*cval.Struct)
	wantInt(t, sv.Fields[0], 0x3344)
	wantInt(t, sv.Fields[1], 0x1122)
}

func TestInterpretAsType_FloatRoundTrip(t *testing.T) {
	le := leEngine(t)
	bt := le.Types.Builtins()
	f := &cval.Float{Ty: bt.F32, Bits: big.NewInt(0x3fc00000)} // 1.5f
	asInt := le.InterpretAsType(f, bt.I32, 0)
	wantInt(t, asInt, 0x3fc00000)
	back := le.InterpretAsType(asInt, bt.F32, 0).(*cval.Float)
	if back.Bits.Uint64() != 0x3fc00000 {
		t.Fatalf("bits = %#x", back.Bits.Uint64())
	}
}

func TestInterpretAsType_Pointer(t *testing.T) {
	le := leEngine(t)
	bt := le.Types.Builtins()
	ptrTy := le.Types.Intern(types.MakePointer(bt.Byte))
	v := mkInt(le, bt.I64, 0xdeadbeef)
	p, ok := le.InterpretAsType(v, ptrTy, 0).(*cval.Ptr)
	if !ok || p.Off != 0xdeadbeef {
		t.Fatalf("pointer = %#v", p)
	}
}

package bitview

import (
	"math/big"
	"testing"

	"bitsmith/internal/cval"
	"bitsmith/internal/interval"
	"bitsmith/internal/layout"
	"bitsmith/internal/types"
)

func newEngine(t *testing.T, target layout.Target) *Engine {
	t.Helper()
	in := types.NewInterner()
	return New(in, layout.New(target, in))
}

func leEngine(t *testing.T) *Engine { return newEngine(t, layout.X86_64Linux()) }
func beEngine(t *testing.T) *Engine { return newEngine(t, layout.PPC64Linux()) }

func intSlice(e *Engine, first, last int, v uint64) Slice {
	r := interval.Make(first, last)
	return e.MakeSlice(r, cval.NewIntBits(e.Fold.IntTy(r.Width()), new(big.Int).SetUint64(v)))
}

func wantInt(t *testing.T, v cval.Value, want uint64) {
	t.Helper()
	iv, ok := v.(*cval.Int)
	if !ok {
		t.Fatalf("value = %#v, want integer", v)
	}
	if iv.V.Uint64() != want {
		t.Fatalf("value = %#x, want %#x", iv.V.Uint64(), want)
	}
}

func TestSlice_GetBitsLittleEndian(t *testing.T) {
	e := leEngine(t)
	s := intSlice(e, 0, 32, 0x11223344)

	tests := []struct {
		name  string
		first int
		last  int
		want  uint64
	}{
		{name: "whole", first: 0, last: 32, want: 0x11223344},
		{name: "low byte", first: 0, last: 8, want: 0x44},
		{name: "middle byte", first: 8, last: 16, want: 0x33},
		{name: "top byte", first: 24, last: 32, want: 0x11},
		{name: "nibble straddle", first: 4, last: 12, want: 0x34},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantInt(t, s.GetBits(interval.Make(tt.first, tt.last)), tt.want)
		})
	}
}

func TestSlice_GetBitsBigEndian(t *testing.T) {
	e := beEngine(t)
	// Bit 0 of the range holds the most significant contents bit.
	s := intSlice(e, 0, 32, 0x11223344)

	tests := []struct {
		name  string
		first int
		last  int
		want  uint64
	}{
		{name: "whole", first: 0, last: 32, want: 0x11223344},
		{name: "first byte in memory", first: 0, last: 8, want: 0x11},
		{name: "last byte in memory", first: 24, last: 32, want: 0x44},
		{name: "middle half", first: 8, last: 24, want: 0x2233},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantInt(t, s.GetBits(interval.Make(tt.first, tt.last)), tt.want)
		})
	}
}

func TestSlice_ExtendReduceRoundTrip(t *testing.T) {
	for _, tt := range []struct {
		name string
		eng  *Engine
	}{
		{name: "le", eng: leEngine(t)},
		{name: "be", eng: beEngine(t)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := intSlice(tt.eng, 8, 16, 0xab)
			wide := s.ExtendRange(interval.Make(0, 32))
			back := wide.ReduceRange(interval.Make(8, 16))
			wantInt(t, back.contents, 0xab)
		})
	}
}

func TestSlice_Displace(t *testing.T) {
	e := leEngine(t)
	s := intSlice(e, 0, 8, 0x5a).Displace(16)
	if !s.Range().Equal(interval.Make(16, 24)) {
		t.Fatalf("range after displace = %s", s.Range())
	}
	wantInt(t, s.GetBits(interval.Make(16, 24)), 0x5a)
}

func TestSlice_MergeLittleEndian(t *testing.T) {
	e := leEngine(t)
	lo := intSlice(e, 0, 8, 0xcd)
	hi := intSlice(e, 8, 16, 0xab)

	m := lo.Merge(hi)
	wantInt(t, m.GetBits(interval.Make(0, 16)), 0xabcd)

	// Merge is symmetric over disjoint ranges.
	m = hi.Merge(lo)
	wantInt(t, m.GetBits(interval.Make(0, 16)), 0xabcd)
}

func TestSlice_MergeBigEndian(t *testing.T) {
	e := beEngine(t)
	first := intSlice(e, 0, 8, 0xab)
	second := intSlice(e, 8, 16, 0xcd)
	m := first.Merge(second)
	wantInt(t, m.GetBits(interval.Make(0, 16)), 0xabcd)
}

func TestSlice_MergeWithGap(t *testing.T) {
	e := leEngine(t)
	lo := intSlice(e, 0, 8, 0xff)
	hi := intSlice(e, 16, 24, 0x11)
	m := lo.Merge(hi)
	if !m.Range().Equal(interval.Make(0, 24)) {
		t.Fatalf("hull = %s", m.Range())
	}
	// Bits owned by either operand are exact; the gap is unspecified.
	wantInt(t, m.GetBits(interval.Make(0, 8)), 0xff)
	wantInt(t, m.GetBits(interval.Make(16, 24)), 0x11)
}

func TestSlice_MergeOverlapPanics(t *testing.T) {
	e := leEngine(t)
	defer func() {
		if recover() == nil {
			t.Fatal("merge of overlapping slices should panic")
		}
	}()
	intSlice(e, 0, 8, 1).Merge(intSlice(e, 4, 12, 1))
}

func TestSlice_EmptyMerge(t *testing.T) {
	e := leEngine(t)
	s := intSlice(e, 0, 8, 0x42)
	if got := e.EmptySlice().Merge(s); !got.Range().Equal(s.Range()) {
		t.Fatal("empty merged with s should be s")
	}
	if got := s.Merge(e.EmptySlice()); !got.Range().Equal(s.Range()) {
		t.Fatal("s merged with empty should be s")
	}
}

func TestSlice_UndefContents(t *testing.T) {
	e := leEngine(t)
	r := interval.Make(0, 16)
	s := e.MakeSlice(r, &cval.Undef{Ty: e.Fold.IntTy(16)})
	if _, ok := s.GetBits(r).(*cval.Undef); !ok {
		t.Fatal("undef slice should read back as undef")
	}
}

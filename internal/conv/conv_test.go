package conv

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/expr"
	"bitsmith/internal/layout"
	"bitsmith/internal/symtab"
	"bitsmith/internal/types"
)

func newConverter(t *testing.T, target layout.Target) *Converter {
	t.Helper()
	in := types.NewInterner()
	return New(in, layout.New(target, in), symtab.NewTable())
}

func leConv(t *testing.T) *Converter { return newConverter(t, layout.X86_64Linux()) }
func beConv(t *testing.T) *Converter { return newConverter(t, layout.PPC64Linux()) }

func mustConvert(t *testing.T, c *Converter, e expr.Expr) cval.Value {
	t.Helper()
	v, err := c.ConvertInitializer(e)
	if err != nil {
		t.Fatalf("ConvertInitializer: %v", err)
	}
	return v
}

func wantFailure(t *testing.T, err error, code diag.Code) {
	t.Helper()
	var fail *diag.Failure
	if !errors.As(err, &fail) {
		t.Fatalf("error = %v, want a conversion failure", err)
	}
	if fail.Code != code {
		t.Fatalf("failure code = %v, want %v", fail.Code, code)
	}
}

func wantIntValue(t *testing.T, v cval.Value, want uint64) {
	t.Helper()
	iv, ok := v.(*cval.Int)
	if !ok {
		t.Fatalf("value = %#v, want integer", v)
	}
	if iv.V.Uint64() != want {
		t.Fatalf("value = %#x, want %#x", iv.V.Uint64(), want)
	}
}

// asByte reads the first byte of the converted value's image, for checks
// that care about memory layout rather than structure.
func asByte(t *testing.T, c *Converter, v cval.Value) uint64 {
	t.Helper()
	b, ok := c.View.InterpretAsType(v, c.Types.Builtins().Byte, 0).(*cval.Int)
	if !ok {
		t.Fatalf("byte image of %#v is not an integer", v)
	}
	return b.V.Uint64()
}

func TestConverter_ScalarLiterals(t *testing.T) {
	c := leConv(t)
	bt := c.Types.Builtins()

	wantIntValue(t, mustConvert(t, c, &expr.IntLit{Ty: bt.I32, V: big.NewInt(0x11223344)}), 0x11223344)

	s16 := c.Types.Intern(types.MakeInt(16, true))
	wantIntValue(t, mustConvert(t, c, &expr.IntLit{Ty: s16, V: big.NewInt(-2)}), 0xfffe)

	f := mustConvert(t, c, &expr.FloatLit{
		Ty:   bt.F32,
		Bits: new(big.Int).SetUint64(uint64(math.Float32bits(1.5))),
	}).(*cval.Float)
	if f.Bits.Uint64() != uint64(math.Float32bits(1.5)) {
		t.Fatalf("float bits = %#x", f.Bits.Uint64())
	}

	// A pointer-typed integer literal is an absolute pointer.
	ptrTy := c.Types.Intern(types.MakePointer(bt.Byte))
	p := mustConvert(t, c, &expr.IntLit{Ty: ptrTy, V: big.NewInt(0)}).(*cval.Ptr)
	if p.Sym != 0 || p.Off != 0 {
		t.Fatalf("null pointer = %#v", p)
	}
}

func TestConverter_BinOp(t *testing.T) {
	c := leConv(t)
	bt := c.Types.Builtins()
	s8 := c.Types.Intern(types.MakeInt(8, true))

	sum := mustConvert(t, c, &expr.BinOp{
		Ty: bt.I32, Op: expr.OpAdd,
		L: &expr.IntLit{Ty: bt.I32, V: big.NewInt(5)},
		R: &expr.IntLit{Ty: bt.I32, V: big.NewInt(7)},
	})
	wantIntValue(t, sum, 12)

	// A signed narrow operand widens with its sign before the arithmetic.
	diff := mustConvert(t, c, &expr.BinOp{
		Ty: bt.I32, Op: expr.OpSub,
		L: &expr.IntLit{Ty: bt.I32, V: big.NewInt(10)},
		R: &expr.IntLit{Ty: s8, V: big.NewInt(-1)},
	})
	wantIntValue(t, diff, 11)
}

func TestConverter_BinOpWithAddress(t *testing.T) {
	c := leConv(t)
	bt := c.Types.Builtins()
	sym := c.Syms.Declare("base", bt.I32, 32)

	v := mustConvert(t, c, &expr.BinOp{
		Ty: bt.I64, Op: expr.OpAdd,
		L: &expr.AddrOf{Ty: bt.I64, Obj: &expr.SymObject{Sym: sym}},
		R: &expr.IntLit{Ty: bt.I64, V: big.NewInt(16)},
	})
	r, ok := v.(*cval.Reloc)
	if !ok || r.Sym != sym || r.Off != 16 {
		t.Fatalf("address arithmetic = %#v", v)
	}
}

func TestConverter_PtrPlus(t *testing.T) {
	c := leConv(t)
	bt := c.Types.Builtins()
	ptrTy := c.Types.Intern(types.MakePointer(bt.Byte))
	sym := c.Syms.Declare("buf", c.Types.UnitArray(16), 8)

	v := mustConvert(t, c, &expr.PtrPlus{
		Ty:  ptrTy,
		Ptr: &expr.AddrOf{Ty: ptrTy, Obj: &expr.SymObject{Sym: sym}},
		Off: &expr.IntLit{Ty: bt.I64, V: big.NewInt(8)},
	})
	p, ok := v.(*cval.Ptr)
	if !ok || p.Sym != sym || p.Off != 8 {
		t.Fatalf("ptr plus = %#v", v)
	}
}

func TestConverter_Cast(t *testing.T) {
	c := leConv(t)
	bt := c.Types.Builtins()

	v := mustConvert(t, c, &expr.Cast{
		Ty: bt.F64,
		X:  &expr.IntLit{Ty: bt.I32, V: big.NewInt(2)},
	}).(*cval.Float)
	if v.Bits.Uint64() != math.Float64bits(2) {
		t.Fatalf("cast bits = %#x", v.Bits.Uint64())
	}
}

func TestConverter_CastOfAddressToNarrowInt(t *testing.T) {
	c := leConv(t)
	bt := c.Types.Builtins()
	ptrTy := c.Types.Intern(types.MakePointer(bt.Byte))
	sym := c.Syms.Declare("g", bt.Byte, 8)

	_, err := c.ConvertInitializer(&expr.Cast{
		Ty: bt.I32,
		X:  &expr.AddrOf{Ty: ptrTy, Obj: &expr.SymObject{Sym: sym}},
	})
	wantFailure(t, err, diag.ConvRelocatable)
}

func TestConverter_StorageContract(t *testing.T) {
	c := leConv(t)
	bt := c.Types.Builtins()

	tests := []struct {
		name string
		e    expr.Expr
		code diag.Code
	}{
		{
			name: "too big",
			e:    &expr.ViewConvert{Ty: bt.Byte, X: &expr.IntLit{Ty: bt.I32, V: big.NewInt(1)}},
			code: diag.ConvTooBig,
		},
		{
			name: "too small",
			e:    &expr.ViewConvert{Ty: bt.I32, X: &expr.IntLit{Ty: bt.Byte, V: big.NewInt(1)}},
			code: diag.ConvTooSmall,
		},
		{
			name: "over aligned",
			e:    &expr.ViewConvert{Ty: c.Types.UnitArray(4), X: &expr.IntLit{Ty: bt.I32, V: big.NewInt(1)}},
			code: diag.ConvOverAligned,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ConvertInitializer(tt.e)
			wantFailure(t, err, tt.code)
		})
	}
}

func TestConverter_ScalarMatchesAggregateExtraction(t *testing.T) {
	// A scalar converted on its own must produce the same bits as the
	// same scalar read back out of an aggregate image.
	for _, tc := range []struct {
		name string
		mk   func(t *testing.T) *Converter
	}{
		{name: "le", mk: leConv},
		{name: "be", mk: beConv},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.mk(t)
			bt := c.Types.Builtins()
			v := mustConvert(t, c, &expr.IntLit{Ty: bt.I32, V: big.NewInt(0x0a0b0c0d)})
			arr := c.View.InterpretAsType(v, c.Types.UnitArray(4), 0)
			back := c.View.InterpretAsType(arr, bt.I32, 0)
			if !cval.Equal(v, back) {
				t.Fatalf("scalar %#v does not round trip through bytes (%#v)", v, back)
			}
		})
	}
}

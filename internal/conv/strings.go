package conv

import (
	"math/big"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/expr"
	"bitsmith/internal/types"
)

// convertString lowers a string literal into an array of its code units.
// The element width of the declared array decides the encoding: bytes stay
// bytes, 16 bit elements take UTF-16 code units, 32 bit elements take code
// points.  Wide strings are NFC-normalized first so the same source text
// always produces the same image.
func (c *Converter) convertString(e *expr.StringLit) cval.Value {
	tt := c.Types.MustLookup(e.Ty)
	if tt.Kind != types.KindArray {
		diag.Failf(diag.ConvBadString, "string literal of type %s", c.Types.String(e.Ty))
	}
	elemTy := tt.Elem
	et := c.Types.MustLookup(elemTy)
	if et.Kind != types.KindInt {
		diag.Failf(diag.ConvBadString, "string literal with %s elements", c.Types.String(elemTy))
	}

	var units []uint64
	switch et.Width {
	case 8:
		for i := 0; i < len(e.S); i++ {
			units = append(units, uint64(e.S[i]))
		}
	case 16:
		s := norm.NFC.String(e.S)
		if !utf8.ValidString(s) {
			diag.Failf(diag.ConvBadString, "invalid UTF-8 in wide string literal")
		}
		for _, u := range utf16.Encode([]rune(s)) {
			units = append(units, uint64(u))
		}
	case 32:
		s := norm.NFC.String(e.S)
		if !utf8.ValidString(s) {
			diag.Failf(diag.ConvBadString, "invalid UTF-8 in wide string literal")
		}
		for _, r := range s {
			units = append(units, uint64(r))
		}
	default:
		diag.Failf(diag.ConvBadString, "string literal with %d bit elements", et.Width)
	}

	// A declared length truncates or zero-fills; a dynamic length takes
	// the literal as-is, including no implicit terminator.
	count := len(units)
	resTy := e.Ty
	if tt.Count == types.ArrayDynamicLength {
		resTy = c.Types.Intern(types.MakeArray(elemTy, uint32(count)))
	} else {
		count = int(tt.Count)
	}

	elems := make([]cval.Value, count)
	for i := range elems {
		var u uint64
		if i < len(units) {
			u = units[i]
		}
		elems[i] = cval.NewInt(c.Types, elemTy, new(big.Int).SetUint64(u))
	}
	return &cval.Array{Ty: resTy, Elems: elems}
}

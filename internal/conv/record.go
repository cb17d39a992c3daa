package conv

import (
	"fortio.org/safecast"

	"bitsmith/internal/cval"
	"bitsmith/internal/diag"
	"bitsmith/internal/expr"
	"bitsmith/internal/interval"
	"bitsmith/internal/types"
)

// recordShape resolves the source layout of a record constructor.  Front
// ends that pack bitfields supply one explicitly; otherwise the layout
// oracle's view of the declared struct type is authoritative.
func (c *Converter) recordShape(e *expr.Ctor) *expr.RecordShape {
	if e.Record != nil {
		return e.Record
	}
	info, ok := c.Types.StructInfo(e.Ty)
	if !ok {
		diag.Failf(diag.ConvUnsupportedKind, "record constructor for %s", c.Types.String(e.Ty))
	}
	shape := &expr.RecordShape{
		SizeBits:  c.Layout.AllocSizeBits(e.Ty),
		AlignBits: c.Layout.ABIAlignmentBits(e.Ty),
	}
	for i := range info.Fields {
		shape.Fields = append(shape.Fields, expr.RecordField{
			Ty:         info.Fields[i].Type,
			OffsetBits: c.Layout.FieldOffsetBits(e.Ty, i),
		})
	}
	return shape
}

// convertRecordCtor builds a record value by laying every initialized field
// into an interval list, aligning the runs to byte boundaries, then emitting
// a struct whose members land at exactly the right offsets.
func (c *Converter) convertRecordCtor(e *expr.Ctor) cval.Value {
	shape := c.recordShape(e)
	typeSize := shape.SizeBits

	var runs interval.List[fieldContents]
	add := func(fld expr.RecordField, val cval.Value) {
		first := fld.OffsetBits
		if first > typeSize {
			diag.Failf(diag.ConvFieldBeyondEnd,
				"field at bit %d lies beyond the %d bit record", first, typeSize)
		}
		width := fld.SizeBits
		if width == 0 {
			width = c.Layout.AllocSizeBits(val.Type())
			if first+width > typeSize {
				// Flexible trailing member: clip to the record.
				width = typeSize - first
			}
		}
		if width == 0 {
			return
		}
		runs.Insert(makeFieldContents(c.View, interval.Make(first, first+width), val))
	}

	if c.DefaultInitialize {
		for _, fld := range shape.Fields {
			add(fld, cval.DefaultValue(c.Types, fld.Ty))
		}
	}

	next := 0
	for _, ent := range e.Entries {
		idx := ent.Field
		if idx < 0 {
			idx = next
		}
		if idx >= len(shape.Fields) {
			diag.Failf(diag.ConvBadIndex,
				"record entry names field %d of %d", idx, len(shape.Fields))
		}
		next = idx + 1
		fld := shape.Fields[idx]
		add(fld, c.convertWithCast(ent.Value, fld.Ty))
	}

	runs.AlignBoundaries(8)

	// Extract each run once; the packing decision and the assembly below
	// must see the same parts.
	type part struct {
		first int
		val   cval.Value
	}
	parts := make([]part, 0, runs.Len())
	for i := 0; i < runs.Len(); i++ {
		f := runs.At(i)
		parts = append(parts, part{first: f.Range().First(), val: f.extractContents()})
	}

	// Natural struct layout works only if every part sits on its own
	// alignment and none demands more than the record allows.
	pack := false
	for _, p := range parts {
		al := c.Layout.ABIAlignmentBits(p.val.Type())
		if al > shape.AlignBits || p.first%al != 0 {
			pack = true
			break
		}
	}

	var elems []cval.Value
	end := 0
	for _, p := range parts {
		if p.first < end {
			diag.Failf(diag.ConvOverlap, "record contents overlap at bit %d", p.first)
		}
		if p.first > end {
			pad := true
			if !pack {
				al := c.Layout.ABIAlignmentBits(p.val.Type())
				if p.first == roundUpBits(end, al) {
					// Natural alignment produces this gap by itself.
					pad = false
				}
			}
			if pad {
				elems = append(elems, c.undefUnits((p.first-end)/8))
			}
		}
		elems = append(elems, p.val)
		end = p.first + c.Layout.AllocSizeBits(p.val.Type())
	}
	if end < typeSize {
		elems = append(elems, c.undefUnits((typeSize-end)/8))
	}

	return c.structValue(elems, pack)
}

// structValue wraps values into a struct constant with a matching interned
// shape.
func (c *Converter) structValue(elems []cval.Value, pack bool) *cval.Struct {
	fields := make([]types.StructField, len(elems))
	for i, v := range elems {
		fields[i] = types.StructField{Type: v.Type()}
	}
	ty := c.Types.InternStruct(types.StructInfo{Fields: fields, Packed: pack})
	return &cval.Struct{Ty: ty, Fields: elems}
}

// undefUnits is n bytes of undefined filler.
func (c *Converter) undefUnits(n int) cval.Value {
	u, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(err)
	}
	return &cval.Undef{Ty: c.Types.UnitArray(u)}
}

func roundUpBits(x, align int) int {
	return (x + align - 1) / align * align
}

package layout

import (
	"fmt"

	"fortio.org/safecast"

	"bitsmith/internal/types"
)

func (e *Engine) computeLayout(id types.TypeID) TypeLayout {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		panic(fmt.Sprintf("layout: invalid type #%d", id))
	}

	switch tt.Kind {
	case types.KindInt, types.KindFloat:
		return e.scalarLayout(int(tt.Width))

	case types.KindPointer:
		return e.scalarLayout(e.Target.PtrBits)

	case types.KindArray:
		count := 0
		if tt.Count != types.ArrayDynamicLength {
			n, err := safecast.Conv[int](tt.Count)
			if err != nil {
				panic(fmt.Errorf("array length overflow: %w", err))
			}
			count = n
		}
		elem := e.LayoutOf(tt.Elem)
		size := elem.AllocBits * count
		return TypeLayout{
			StoreBits: size,
			AllocBits: size,
			AlignBits: elem.AlignBits,
		}

	case types.KindVector:
		elem := e.Types.MustLookup(tt.Elem)
		n, err := safecast.Conv[int](tt.Count)
		if err != nil {
			panic(fmt.Errorf("vector length overflow: %w", err))
		}
		bits := int(elem.Width) * n
		if elem.Kind == types.KindPointer {
			bits = e.Target.PtrBits * n
		}
		store := roundUp(bits, 8)
		align := minInt(pow2Ceil(store), e.Target.MaxVectorAlignBits)
		return TypeLayout{
			StoreBits: store,
			AllocBits: roundUp(store, align),
			AlignBits: align,
		}

	case types.KindStruct:
		return e.structLayout(id)

	default:
		panic(fmt.Sprintf("layout: unsupported kind %v", tt.Kind))
	}
}

// scalarLayout sizes an integer or float of the given bit width.  Store size
// rounds up to whole bytes; alignment is the smallest power of two covering
// the store size, capped by the target.
func (e *Engine) scalarLayout(widthBits int) TypeLayout {
	if widthBits <= 0 {
		return TypeLayout{StoreBits: 0, AllocBits: 0, AlignBits: 8}
	}
	store := roundUp(widthBits, 8)
	align := minInt(pow2Ceil(store), e.Target.MaxScalarAlignBits)
	return TypeLayout{
		StoreBits: store,
		AllocBits: roundUp(store, align),
		AlignBits: align,
	}
}

func (e *Engine) structLayout(id types.TypeID) TypeLayout {
	info, ok := e.Types.StructInfo(id)
	if !ok {
		panic(fmt.Sprintf("layout: no struct info for type #%d", id))
	}
	offsets := make([]int, len(info.Fields))

	if info.Packed {
		size := 0
		for i := range info.Fields {
			fl := e.LayoutOf(info.Fields[i].Type)
			offsets[i] = size
			size += fl.AllocBits
		}
		return TypeLayout{
			StoreBits:    size,
			AllocBits:    size,
			AlignBits:    8,
			FieldOffsets: offsets,
		}
	}

	size := 0
	align := 8
	for i := range info.Fields {
		fl := e.LayoutOf(info.Fields[i].Type)
		size = roundUp(size, fl.AlignBits)
		offsets[i] = size
		size += fl.AllocBits
		align = maxInt(align, fl.AlignBits)
	}
	size = roundUp(size, align)
	return TypeLayout{
		StoreBits:    size,
		AllocBits:    size,
		AlignBits:    align,
		FieldOffsets: offsets,
	}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func pow2Ceil(n int) int {
	p := 8
	for p < n {
		p <<= 1
	}
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

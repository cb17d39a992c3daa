package cval

// Equal reports deep structural equality of two values, types included.
// The content-addressed constant cache relies on this as its final arbiter
// after fingerprints collide.
func Equal(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch a := a.(type) {
	case *Int:
		b, ok := b.(*Int)
		return ok && a.V.Cmp(b.V) == 0
	case *Float:
		b, ok := b.(*Float)
		return ok && a.Bits.Cmp(b.Bits) == 0
	case *Undef:
		_, ok := b.(*Undef)
		return ok
	case *Ptr:
		b, ok := b.(*Ptr)
		return ok && a.Sym == b.Sym && a.Off == b.Off
	case *Reloc:
		b, ok := b.(*Reloc)
		return ok && a.Sym == b.Sym && a.Off == b.Off
	case *Array:
		b, ok := b.(*Array)
		if !ok || len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	case *Struct:
		b, ok := b.(*Struct)
		if !ok || len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if !Equal(a.Fields[i], b.Fields[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Package layout is the ABI layout oracle: it answers store size, alloc
// size, alignment and struct field placement questions for a target, all in
// bits.  Conversions never mutate types, so results are cached per TypeID.
package layout

import (
	"sync"

	"bitsmith/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	StoreBits int // minimum bits occupied when stored
	AllocBits int // bits including trailing alignment padding
	AlignBits int // required ABI alignment

	// Struct-only:
	FieldOffsets []int // bit offset of each field
}

// Engine computes memory layout for types.  Safe for concurrent use.
type Engine struct {
	Target Target
	Types  *types.Interner

	mu    sync.RWMutex
	cache map[types.TypeID]TypeLayout
}

// New creates a new layout Engine for the specified target.
func New(target Target, typesIn *types.Interner) *Engine {
	return &Engine{
		Target: target,
		Types:  typesIn,
		cache:  make(map[types.TypeID]TypeLayout, 256),
	}
}

// BigEndian reports whether the target stores the most significant byte first.
func (e *Engine) BigEndian() bool {
	return e.Target.BigEndian
}

// LayoutOf computes and caches the layout of a type.  Layouts are pure
// functions of the type and target, so concurrent misses may compute the
// same layout twice; both writes store the same result.
func (e *Engine) LayoutOf(t types.TypeID) TypeLayout {
	e.mu.RLock()
	cached, ok := e.cache[t]
	e.mu.RUnlock()
	if ok {
		return cached
	}
	l := e.computeLayout(t)
	e.mu.Lock()
	e.cache[t] = l
	e.mu.Unlock()
	return l
}

// StoreSizeBits returns the minimum number of bits the type occupies in
// memory.
func (e *Engine) StoreSizeBits(t types.TypeID) int {
	return e.LayoutOf(t).StoreBits
}

// AllocSizeBits returns the number of bits the type occupies including
// trailing alignment padding.
func (e *Engine) AllocSizeBits(t types.TypeID) int {
	return e.LayoutOf(t).AllocBits
}

// ABIAlignmentBits returns the required alignment of the type in bits.
func (e *Engine) ABIAlignmentBits(t types.TypeID) int {
	return e.LayoutOf(t).AlignBits
}

// FieldOffsetBits returns the bit offset of a struct field.
func (e *Engine) FieldOffsetBits(structT types.TypeID, fieldIdx int) int {
	l := e.LayoutOf(structT)
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		panic("layout: field index out of range")
	}
	return l.FieldOffsets[fieldIdx]
}

// FieldIndexContainingByteOffset returns the index of the field whose
// storage contains the given byte offset.  Offsets at or past the end of the
// struct resolve to the last field.
func (e *Engine) FieldIndexContainingByteOffset(structT types.TypeID, byteOff int) int {
	l := e.LayoutOf(structT)
	if len(l.FieldOffsets) == 0 {
		panic("layout: field query on empty struct")
	}
	idx := 0
	for i, off := range l.FieldOffsets {
		if off/8 > byteOff {
			break
		}
		idx = i
	}
	return idx
}

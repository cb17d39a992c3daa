// Package symtab owns addressable storage for materialized constants.  A
// content-addressed cache guarantees at most one storage location per
// distinct constant value, with atomic check-or-insert so independent
// constants may be materialized concurrently.
package symtab

import (
	"fmt"
	"sync"

	"bitsmith/internal/cval"
	"bitsmith/internal/types"
)

// Symbol is one addressable storage location.
type Symbol struct {
	Name      string
	Type      types.TypeID
	AlignBits int
	Init      cval.Value // nil for declarations without an initializer
	Constant  bool
}

// Table stores symbols and deduplicates interned constants.
type Table struct {
	mu      sync.Mutex
	syms    []Symbol
	byPrint map[[32]byte][]cval.SymID
	byName  map[string]cval.SymID
	nextCst int
}

// NewTable creates an empty symbol table.
func NewTable() *Table {
	return &Table{
		syms:    make([]Symbol, 1), // reserve 0 as "no symbol"
		byPrint: make(map[[32]byte][]cval.SymID, 64),
		byName:  make(map[string]cval.SymID, 64),
	}
}

// Declare adds a named symbol without an initializer and returns its id.
// Declaring the same name twice returns the original id.
func (t *Table) Declare(name string, ty types.TypeID, alignBits int) cval.SymID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.byName[name]; ok {
		return id
	}
	id := cval.SymID(len(t.syms))
	t.syms = append(t.syms, Symbol{Name: name, Type: ty, AlignBits: alignBits})
	t.byName[name] = id
	return id
}

// Define attaches an initializer to a declared symbol.
func (t *Table) Define(id cval.SymID, init cval.Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.syms[id].Init = init
}

// InternConstant returns the storage location holding the given constant,
// creating one if no equal constant has been interned yet.
func (t *Table) InternConstant(init cval.Value, alignBits int) cval.SymID {
	print := Fingerprint(init)

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.byPrint[print] {
		if cval.Equal(t.syms[id].Init, init) {
			return id
		}
	}
	t.nextCst++
	id := cval.SymID(len(t.syms))
	t.syms = append(t.syms, Symbol{
		Name:      fmt.Sprintf(".cst.%d", t.nextCst),
		Type:      init.Type(),
		AlignBits: alignBits,
		Init:      init,
		Constant:  true,
	})
	t.byPrint[print] = append(t.byPrint[print], id)
	return id
}

// LookupName returns the id of a declared symbol by name.
func (t *Table) LookupName(name string) (cval.SymID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byName[name]
	return id, ok
}

// Lookup returns the symbol for an id.
func (t *Table) Lookup(id cval.SymID) (Symbol, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id == 0 || int(id) >= len(t.syms) {
		return Symbol{}, false
	}
	return t.syms[id], true
}

// Len returns the number of symbols, the reserved null entry excluded.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.syms) - 1
}

package symtab

import (
	"crypto/sha256"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"bitsmith/internal/cval"
)

// fpNode is the canonical wire form of one value node, stable across runs
// of one session (TypeIDs are interner-relative).
type fpNode struct {
	Kind uint8    `msgpack:"k"`
	Ty   uint32   `msgpack:"t"`
	Bits []byte   `msgpack:"b,omitempty"`
	Sym  uint32   `msgpack:"s,omitempty"`
	Off  int64    `msgpack:"o,omitempty"`
	Kids []fpNode `msgpack:"c,omitempty"`
}

const (
	fpInt uint8 = iota + 1
	fpFloat
	fpUndef
	fpPtr
	fpReloc
	fpArray
	fpStruct
)

// Fingerprint hashes a value tree.  Equal values always agree; collisions
// are resolved by cval.Equal at the caller.
func Fingerprint(v cval.Value) [32]byte {
	data, err := msgpack.Marshal(encode(v))
	if err != nil {
		panic(fmt.Errorf("symtab: fingerprint encode: %w", err))
	}
	return sha256.Sum256(data)
}

func encode(v cval.Value) fpNode {
	switch v := v.(type) {
	case *cval.Int:
		return fpNode{Kind: fpInt, Ty: uint32(v.Ty), Bits: v.V.Bytes()}
	case *cval.Float:
		return fpNode{Kind: fpFloat, Ty: uint32(v.Ty), Bits: v.Bits.Bytes()}
	case *cval.Undef:
		return fpNode{Kind: fpUndef, Ty: uint32(v.Ty)}
	case *cval.Ptr:
		return fpNode{Kind: fpPtr, Ty: uint32(v.Ty), Sym: uint32(v.Sym), Off: v.Off}
	case *cval.Reloc:
		return fpNode{Kind: fpReloc, Ty: uint32(v.Ty), Sym: uint32(v.Sym), Off: v.Off}
	case *cval.Array:
		kids := make([]fpNode, len(v.Elems))
		for i, e := range v.Elems {
			kids[i] = encode(e)
		}
		return fpNode{Kind: fpArray, Ty: uint32(v.Ty), Kids: kids}
	case *cval.Struct:
		kids := make([]fpNode, len(v.Fields))
		for i, f := range v.Fields {
			kids[i] = encode(f)
		}
		return fpNode{Kind: fpStruct, Ty: uint32(v.Ty), Kids: kids}
	default:
		panic(fmt.Sprintf("symtab: fingerprint of unknown value %T", v))
	}
}

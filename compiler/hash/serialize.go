package hash

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Deterministic serialization of the frozen hashing AST.
//
// Encoding:
//   - First byte: HashVersion
//   - Rest: the HNode tree in canonical CBOR (sorted integer keys, shortest
//     length encodings), so equal trees always produce equal bytes.
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("hash: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Serialize produces the version-prefixed canonical encoding of node.
func Serialize(node HNode) ([]byte, error) {
	data, err := cborEncMode.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("hash: encode: %w", err)
	}
	return append([]byte{HashVersion}, data...), nil
}

// Deserialize decodes bytes produced by Serialize.
func Deserialize(data []byte) (HNode, error) {
	var node HNode
	if len(data) == 0 {
		return node, fmt.Errorf("hash: empty input")
	}
	if data[0] != HashVersion {
		return node, fmt.Errorf("hash: unsupported version %d", data[0])
	}
	if err := cbor.Unmarshal(data[1:], &node); err != nil {
		return node, fmt.Errorf("hash: decode: %w", err)
	}
	return node, nil
}

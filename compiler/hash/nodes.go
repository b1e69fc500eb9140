package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST.
//
// HNode is a position-free parallel of compiler/ast.go. Every node is the
// same record shape so the canonical CBOR encoding is stable across node
// kinds. Resolved annotations are folded in as text: two analyses that
// resolve the same program the same way produce identical trees.
// ---------------------------------------------------------------------------

// HNode is one node of the hashing AST.
type HNode struct {
	Tag      byte    `cbor:"1,keyasint"`
	Text     string  `cbor:"2,keyasint,omitempty"` // name, operator or literal text
	Type     string  `cbor:"3,keyasint,omitempty"` // resolved type name
	Binding  string  `cbor:"4,keyasint,omitempty"` // resolved variable or function
	Flags    uint8   `cbor:"5,keyasint,omitempty"`
	Children []HNode `cbor:"6,keyasint,omitempty"`
}

// Flag bits.
const (
	FlagMutable uint8 = 1 << iota
	FlagList
	FlagIndexed
	FlagDefault
	FlagAnnotated
)

func leaf(tag byte, text string) HNode {
	return HNode{Tag: tag, Text: text}
}

// block wraps a statement list so that empty and absent lists stay distinct
// from their neighbours.
func block(children []HNode) HNode {
	return HNode{Tag: TagBlock, Children: children}
}

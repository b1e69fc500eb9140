package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node tags.
const (
	TagReservedZero byte = 0x00

	// Top level
	TagSource   byte = 0x01
	TagGlobal   byte = 0x02
	TagFunction byte = 0x03
	TagParam    byte = 0x04

	// Statements
	TagExprStmt    byte = 0x10
	TagDeclaration byte = 0x11
	TagAssignment  byte = 0x12
	TagIf          byte = 0x13
	TagSwitch      byte = 0x14
	TagCase        byte = 0x15
	TagWhile       byte = 0x16
	TagReturn      byte = 0x17
	TagBlock       byte = 0x18

	// Expressions
	TagNilLiteral     byte = 0x20
	TagBoolLiteral    byte = 0x21
	TagCharLiteral    byte = 0x22
	TagStringLiteral  byte = 0x23
	TagIntLiteral     byte = 0x24
	TagDecimalLiteral byte = 0x25
	TagGroup          byte = 0x26
	TagBinary         byte = 0x27
	TagAccess         byte = 0x28
	TagIndexedAccess  byte = 0x29
	TagCall           byte = 0x2A
	TagList           byte = 0x2B

	// Reserved 0xFE-0xFF
)

// allTags lists every assigned tag, for uniqueness checks.
var allTags = []byte{
	TagReservedZero,
	TagSource, TagGlobal, TagFunction, TagParam,
	TagExprStmt, TagDeclaration, TagAssignment, TagIf, TagSwitch,
	TagCase, TagWhile, TagReturn, TagBlock,
	TagNilLiteral, TagBoolLiteral, TagCharLiteral, TagStringLiteral,
	TagIntLiteral, TagDecimalLiteral, TagGroup, TagBinary, TagAccess,
	TagIndexedAccess, TagCall, TagList,
}

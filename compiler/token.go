package compiler

import (
	"fmt"
	"sort"
)

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	TokenIdentifier TokenType = iota // foo, @bar, LET
	TokenInteger                     // 42, -7, 0
	TokenDecimal                     // 3.14, -0.5
	TokenCharacter                   // 'c', '\n'
	TokenString                      // "hello"
	TokenOperator                    // ( ) ; == && ...
)

var tokenNames = map[TokenType]string{
	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenDecimal:    "DECIMAL",
	TokenCharacter:  "CHARACTER",
	TokenString:     "STRING",
	TokenOperator:   "OPERATOR",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if r := []rune(t.Literal); len(r) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, string(r[:20]))
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// End returns the position just past the token.
func (t Token) End() Position {
	p := t.Pos
	for _, r := range t.Literal {
		p.Offset++
		if r == '\n' {
			p.Line++
			p.Column = 1
		} else {
			p.Column++
		}
	}
	return p
}

// Keywords are ordinary identifiers that the parser matches by text.
var keywords = map[string]bool{
	"LIST": true, "VAR": true, "VAL": true, "FUN": true, "DO": true,
	"END": true, "LET": true, "IF": true, "ELSE": true, "SWITCH": true,
	"CASE": true, "DEFAULT": true, "WHILE": true, "RETURN": true,
	"NIL": true, "TRUE": true, "FALSE": true,
}

// IsKeyword reports whether an identifier is reserved.
func IsKeyword(name string) bool {
	return keywords[name]
}

// Keywords lists the reserved words in alphabetical order.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for k := range keywords {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

package compiler

import "fmt"

// LexError reports the first character that cannot continue a token.
// Pos.Offset is the rune index of that character.
type LexError struct {
	Pos     Position
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %s (index %d): %s", e.Pos, e.Pos.Offset, e.Message)
}

// ParseError reports a structural mismatch. Pos is the offending token's
// start, or the end of the last token when the input ran out.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s (index %d): %s", e.Pos, e.Pos.Offset, e.Message)
}

// AnalysisError reports the first static error. Err holds the scope or type
// failure behind it, when there is one.
type AnalysisError struct {
	Pos    Position
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis error at %s: %s: %v", e.Pos, e.Reason, e.Err)
	}
	return fmt.Sprintf("analysis error at %s: %s", e.Pos, e.Reason)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

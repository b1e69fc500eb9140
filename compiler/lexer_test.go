package compiler

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

type tokenWant struct {
	typ TokenType
	lit string
}

func checkTokens(t *testing.T, input string, want []tokenWant) {
	t.Helper()
	tokens, err := Lex(input)
	if err != nil {
		t.Fatalf("Lex(%q): %v", input, err)
	}
	if len(tokens) != len(want) {
		t.Fatalf("Lex(%q) = %v, want %d tokens", input, tokens, len(want))
	}
	for i, exp := range want {
		if tokens[i].Type != exp.typ {
			t.Errorf("Lex(%q) token[%d] type = %v, want %v", input, i, tokens[i].Type, exp.typ)
		}
		if tokens[i].Literal != exp.lit {
			t.Errorf("Lex(%q) token[%d] literal = %q, want %q", input, i, tokens[i].Literal, exp.lit)
		}
	}
}

func TestLexerIdentifiers(t *testing.T) {
	tests := []string{"getName", "@x", "abc-123", "a_b", "LET", "x1"}
	for _, input := range tests {
		checkTokens(t, input, []tokenWant{{TokenIdentifier, input}})
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"1", TokenInteger},
		{"123", TokenInteger},
		{"-7", TokenInteger},
		{"0", TokenInteger},
		{"1.5", TokenDecimal},
		{"-1.25", TokenDecimal},
		{"0.5", TokenDecimal},
		{"-0.5", TokenDecimal},
	}
	for _, tc := range tests {
		checkTokens(t, tc.input, []tokenWant{{tc.typ, tc.input}})
	}
}

func TestLexerNumberEdgeCases(t *testing.T) {
	// Leading zeros never join a number.
	checkTokens(t, "007", []tokenWant{
		{TokenInteger, "0"}, {TokenInteger, "0"}, {TokenInteger, "7"},
	})
	// A trailing dot is an operator.
	checkTokens(t, "1.", []tokenWant{{TokenInteger, "1"}, {TokenOperator, "."}})
	// A minus without a digit is an operator.
	checkTokens(t, "- 1", []tokenWant{{TokenOperator, "-"}, {TokenInteger, "1"}})

	_, err := Lex("-0")
	var lexErr *LexError
	if !errors.As(err, &lexErr) || lexErr.Pos.Offset != 0 {
		t.Errorf("Lex(-0) error = %v, want LexError at 0", err)
	}
}

func TestLexerCharacters(t *testing.T) {
	for _, input := range []string{`'c'`, `'\n'`, `'\''`, `'"'`, `' '`} {
		checkTokens(t, input, []tokenWant{{TokenCharacter, input}})
	}
}

func TestLexerStrings(t *testing.T) {
	for _, input := range []string{`""`, `"abc"`, `"Hello,\nWorld!"`, `"say \"hi\""`, `"a\\b"`} {
		checkTokens(t, input, []tokenWant{{TokenString, input}})
	}
}

func TestLexerOperators(t *testing.T) {
	checkTokens(t, "== != && || = < > ( ) ; , [ ] : + - * / ^", []tokenWant{
		{TokenOperator, "=="}, {TokenOperator, "!="}, {TokenOperator, "&&"},
		{TokenOperator, "||"}, {TokenOperator, "="}, {TokenOperator, "<"},
		{TokenOperator, ">"}, {TokenOperator, "("}, {TokenOperator, ")"},
		{TokenOperator, ";"}, {TokenOperator, ","}, {TokenOperator, "["},
		{TokenOperator, "]"}, {TokenOperator, ":"}, {TokenOperator, "+"},
		{TokenOperator, "-"}, {TokenOperator, "*"}, {TokenOperator, "/"},
		{TokenOperator, "^"},
	})
	// A single & or | is still an operator.
	checkTokens(t, "&|", []tokenWant{{TokenOperator, "&"}, {TokenOperator, "|"}})
}

func TestLexerWhitespace(t *testing.T) {
	checkTokens(t, "LET\tx\r\n=\b1;", []tokenWant{
		{TokenIdentifier, "LET"}, {TokenIdentifier, "x"},
		{TokenOperator, "="}, {TokenInteger, "1"}, {TokenOperator, ";"},
	})
}

func TestLexerPositions(t *testing.T) {
	tokens, err := Lex("VAL x = 5;\nFUN")
	if err != nil {
		t.Fatal(err)
	}
	want := []Position{
		{Offset: 0, Line: 1, Column: 1},
		{Offset: 4, Line: 1, Column: 5},
		{Offset: 6, Line: 1, Column: 7},
		{Offset: 8, Line: 1, Column: 9},
		{Offset: 9, Line: 1, Column: 10},
		{Offset: 11, Line: 2, Column: 1},
	}
	for i, pos := range want {
		if tokens[i].Pos != pos {
			t.Errorf("token[%d] %v at %+v, want %+v", i, tokens[i], tokens[i].Pos, pos)
		}
	}
	if end := tokens[5].End(); end.Offset != 14 || end.Column != 4 {
		t.Errorf("End() = %+v", end)
	}
}

func TestLexerEndToEndSample(t *testing.T) {
	tokens, err := Lex("VAL x = 5; FUN main() DO RETURN x; END")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 14 {
		t.Errorf("got %d tokens, want 14: %v", len(tokens), tokens)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		index int
	}{
		{`'ab'`, 2},
		{`''`, 1},
		{`'a`, 2},
		{`'\q'`, 2},
		{"'\n'", 1},
		{`"unterminated`, 13},
		{`"bad \q escape"`, 6},
		{`x = "a\"`, 8},
		{`1 -0`, 2},
	}

	for _, tc := range tests {
		_, err := Lex(tc.input)
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Errorf("Lex(%q) error = %v, want *LexError", tc.input, err)
			continue
		}
		if lexErr.Pos.Offset != tc.index {
			t.Errorf("Lex(%q) failed at %d, want %d", tc.input, lexErr.Pos.Offset, tc.index)
		}
	}
}

func TestKeywords(t *testing.T) {
	words := Keywords()
	if len(words) != 17 {
		t.Fatalf("got %d keywords", len(words))
	}
	for i, w := range words {
		if !IsKeyword(w) {
			t.Errorf("%s is listed but not reserved", w)
		}
		if i > 0 && words[i-1] >= w {
			t.Errorf("keywords not sorted at %s", w)
		}
	}
	if IsKeyword("main") || IsKeyword("Integer") {
		t.Error("non-keywords reported as reserved")
	}
}

func TestTokenStringTruncatesByRune(t *testing.T) {
	long := Token{Type: TokenString, Literal: `"` + strings.Repeat("é", 30) + `"`}
	got := long.String()
	if !utf8.ValidString(got) {
		t.Fatalf("String() split a rune: %q", got)
	}
	if want := `STRING("\"` + strings.Repeat("é", 19) + `"...)`; got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}

	short := Token{Type: TokenString, Literal: `"héllo"`}
	if got, want := short.String(), `STRING("\"héllo\"")`; got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
}

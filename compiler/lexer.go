package compiler

// ---------------------------------------------------------------------------
// charStream: cursor over the raw input
// ---------------------------------------------------------------------------

// charStream walks the input one rune at a time. length counts the runes
// consumed since the last emit or skip; those runes form the next token.
type charStream struct {
	input  []rune
	index  int
	length int

	line, col int      // position of index
	start     Position // position of the pending token
}

func newCharStream(input string) *charStream {
	cs := &charStream{input: []rune(input), line: 1, col: 1}
	cs.start = cs.position()
	return cs
}

// has reports whether a rune exists offset runes past the cursor.
func (cs *charStream) has(offset int) bool {
	return cs.index+offset < len(cs.input)
}

func (cs *charStream) get(offset int) rune {
	return cs.input[cs.index+offset]
}

func (cs *charStream) advance() {
	if cs.input[cs.index] == '\n' {
		cs.line++
		cs.col = 1
	} else {
		cs.col++
	}
	cs.index++
	cs.length++
}

// skip discards the pending runes.
func (cs *charStream) skip() {
	cs.length = 0
	cs.start = cs.position()
}

// emit turns the pending runes into a token.
func (cs *charStream) emit(typ TokenType) Token {
	tok := Token{
		Type:    typ,
		Literal: string(cs.input[cs.index-cs.length : cs.index]),
		Pos:     cs.start,
	}
	cs.skip()
	return tok
}

func (cs *charStream) position() Position {
	return Position{Offset: cs.index, Line: cs.line, Column: cs.col}
}

// ---------------------------------------------------------------------------
// Character classes
// ---------------------------------------------------------------------------

type charClass func(rune) bool

func is(want rune) charClass {
	return func(r rune) bool { return r == want }
}

func oneOf(set string) charClass {
	return func(r rune) bool {
		for _, c := range set {
			if c == r {
				return true
			}
		}
		return false
	}
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentChar(r rune) bool {
	return isLetter(r) || isDigit(r) || r == '_' || r == '-'
}

var (
	isWhitespace = oneOf(" \b\t\n\r")
	isEscape     = oneOf(`bnrt'"\`)
)

func isCharBody(r rune) bool {
	return r != '\'' && r != '\n' && r != '\r' && r != '\\'
}

func isStringBody(r rune) bool {
	return r != '"' && r != '\\'
}

// ---------------------------------------------------------------------------
// Lexer
// ---------------------------------------------------------------------------

// Lexer tokenizes PLC source code.
type Lexer struct {
	chars *charStream
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{chars: newCharStream(input)}
}

// Lex tokenizes text in one call.
func Lex(text string) ([]Token, error) {
	return NewLexer(text).Lex()
}

// Lex consumes the whole input. It fails with a *LexError at the first
// character that cannot continue a token.
func (l *Lexer) Lex() ([]Token, error) {
	var tokens []Token
	for l.chars.has(0) {
		if l.match(isWhitespace) {
			l.chars.skip()
			continue
		}
		tok, err := l.lexToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func (l *Lexer) lexToken() (Token, error) {
	switch {
	case l.peek(isLetter) || l.peek(is('@'), isLetter):
		return l.lexIdentifier(), nil
	case l.peek(isDigit) || l.peek(is('-'), isDigit):
		return l.lexNumber()
	case l.peek(is('\'')):
		return l.lexCharacter()
	case l.peek(is('"')):
		return l.lexString()
	default:
		return l.lexOperator(), nil
	}
}

func (l *Lexer) lexIdentifier() Token {
	l.match(is('@'))
	l.match(isLetter)
	for l.match(isIdentChar) {
	}
	return l.chars.emit(TokenIdentifier)
}

func (l *Lexer) lexNumber() (Token, error) {
	start := l.chars.position()
	negative := l.match(is('-'))

	// A lone zero is its own token; leading zeros never join a number.
	if l.peek(is('0')) && !l.peek(is('0'), is('.'), isDigit) {
		if negative {
			return Token{}, &LexError{Pos: start, Message: "negative zero"}
		}
		l.match(is('0'))
		return l.chars.emit(TokenInteger), nil
	}

	for l.match(isDigit) {
	}
	if l.match(is('.'), isDigit) {
		for l.match(isDigit) {
		}
		return l.chars.emit(TokenDecimal), nil
	}
	return l.chars.emit(TokenInteger), nil
}

func (l *Lexer) lexCharacter() (Token, error) {
	l.match(is('\''))
	if l.match(is('\\')) {
		if !l.match(isEscape) {
			return Token{}, l.errorHere("invalid escape sequence")
		}
	} else if !l.match(isCharBody) {
		return Token{}, l.errorHere("invalid character literal")
	}
	if !l.match(is('\'')) {
		return Token{}, l.errorHere("character literal must contain exactly one character")
	}
	return l.chars.emit(TokenCharacter), nil
}

func (l *Lexer) lexString() (Token, error) {
	l.match(is('"'))
	for {
		if l.match(is('\\')) {
			if !l.match(isEscape) {
				return Token{}, l.errorHere("invalid escape sequence")
			}
			continue
		}
		if !l.match(isStringBody) {
			break
		}
	}
	if !l.match(is('"')) {
		return Token{}, l.errorHere("unterminated string")
	}
	return l.chars.emit(TokenString), nil
}

func (l *Lexer) lexOperator() Token {
	if l.match(is('='), is('=')) || l.match(is('!'), is('=')) ||
		l.match(is('&'), is('&')) || l.match(is('|'), is('|')) {
		return l.chars.emit(TokenOperator)
	}
	l.chars.advance()
	return l.chars.emit(TokenOperator)
}

// peek reports whether the next runes match the classes, one per rune.
func (l *Lexer) peek(classes ...charClass) bool {
	for i, class := range classes {
		if !l.chars.has(i) || !class(l.chars.get(i)) {
			return false
		}
	}
	return true
}

// match is peek followed by consuming the matched runes.
func (l *Lexer) match(classes ...charClass) bool {
	if !l.peek(classes...) {
		return false
	}
	for range classes {
		l.chars.advance()
	}
	return true
}

func (l *Lexer) errorHere(msg string) *LexError {
	return &LexError{Pos: l.chars.position(), Message: msg}
}

package compiler

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for PLC
// ---------------------------------------------------------------------------

// Parser builds an AST from a token sequence. It looks ahead only through
// peek and consumes only through match; the first mismatch ends the parse.
type Parser struct {
	tokens []Token
	index  int
}

// NewParser creates a parser over tokens.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a whole program in one call.
func Parse(tokens []Token) (*Source, error) {
	return NewParser(tokens).ParseSource()
}

// peek reports whether the upcoming tokens match the patterns, one pattern
// per token. A pattern is a TokenType or the literal text of a token.
func (p *Parser) peek(patterns ...interface{}) bool {
	for i, pattern := range patterns {
		if p.index+i >= len(p.tokens) {
			return false
		}
		tok := p.tokens[p.index+i]
		switch pat := pattern.(type) {
		case TokenType:
			if tok.Type != pat {
				return false
			}
		case string:
			if tok.Literal != pat || tok.Type == TokenString || tok.Type == TokenCharacter {
				return false
			}
		default:
			panic(fmt.Sprintf("parser: invalid pattern %T", pattern))
		}
	}
	return true
}

// match is peek followed by consuming the matched tokens.
func (p *Parser) match(patterns ...interface{}) bool {
	if !p.peek(patterns...) {
		return false
	}
	p.index += len(patterns)
	return true
}

// expect matches a literal or fails describing what was wanted.
func (p *Parser) expect(literal string) error {
	if p.match(literal) {
		return nil
	}
	return p.errorf("expected %q, found %s", literal, p.describeCurrent())
}

// expectName consumes a non-keyword identifier.
func (p *Parser) expectName(what string) (string, error) {
	if p.peek(TokenIdentifier) && !IsKeyword(p.current().Literal) {
		name := p.current().Literal
		p.index++
		return name, nil
	}
	return "", p.errorf("expected %s, found %s", what, p.describeCurrent())
}

// current returns the next unconsumed token. Callers check peek first.
func (p *Parser) current() Token {
	return p.tokens[p.index]
}

// previous returns the last consumed token.
func (p *Parser) previous() Token {
	return p.tokens[p.index-1]
}

// position is where the next token starts, or where the input ended.
func (p *Parser) position() Position {
	if p.index < len(p.tokens) {
		return p.tokens[p.index].Pos
	}
	if len(p.tokens) == 0 {
		return Position{Line: 1, Column: 1}
	}
	return p.tokens[len(p.tokens)-1].End()
}

func (p *Parser) describeCurrent() string {
	if p.index >= len(p.tokens) {
		return "end of input"
	}
	return fmt.Sprintf("%q", p.current().Literal)
}

func (p *Parser) errorf(format string, args ...interface{}) *ParseError {
	return &ParseError{Pos: p.position(), Message: fmt.Sprintf(format, args...)}
}

// spanFrom closes a span that began at start with the last consumed token.
func (p *Parser) spanFrom(start Position) Span {
	return Span{Start: start, End: p.previous().End()}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseSource parses global* function* and requires all input be consumed.
func (p *Parser) ParseSource() (*Source, error) {
	src := &Source{}
	start := p.position()

	for p.peek("LIST") || p.peek("VAR") || p.peek("VAL") {
		g, err := p.parseGlobal()
		if err != nil {
			return nil, err
		}
		src.Globals = append(src.Globals, g)
	}
	for p.peek("FUN") {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		src.Functions = append(src.Functions, fn)
	}
	if p.index < len(p.tokens) {
		return nil, p.errorf("expected a global or FUN, found %s", p.describeCurrent())
	}

	src.SpanVal = Span{Start: start, End: p.position()}
	return src, nil
}

func (p *Parser) parseGlobal() (*Global, error) {
	start := p.position()
	var g *Global
	var err error
	switch {
	case p.match("LIST"):
		g, err = p.parseListGlobal()
	case p.match("VAR"):
		g, err = p.parseMutableGlobal()
	default:
		p.match("VAL")
		g, err = p.parseImmutableGlobal()
	}
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	g.SpanVal = p.spanFrom(start)
	return g, nil
}

func (p *Parser) parseListGlobal() (*Global, error) {
	name, typeName, err := p.parseBinding("list name")
	if err != nil {
		return nil, err
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}

	start := p.position()
	if err := p.expect("["); err != nil {
		return nil, err
	}
	list := &ListLiteral{}
	for {
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		list.Elements = append(list.Elements, elem)
		if !p.match(",") {
			break
		}
	}
	if err := p.expect("]"); err != nil {
		return nil, err
	}
	list.SpanVal = p.spanFrom(start)

	return &Global{Name: name, TypeName: typeName, Value: list}, nil
}

func (p *Parser) parseMutableGlobal() (*Global, error) {
	name, typeName, err := p.parseBinding("variable name")
	if err != nil {
		return nil, err
	}
	g := &Global{Name: name, Mutable: true, TypeName: typeName}
	if p.match("=") {
		if g.Value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (p *Parser) parseImmutableGlobal() (*Global, error) {
	name, typeName, err := p.parseBinding("value name")
	if err != nil {
		return nil, err
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Global{Name: name, TypeName: typeName, Value: value}, nil
}

// parseBinding parses name (":" Type)?.
func (p *Parser) parseBinding(what string) (name, typeName string, err error) {
	if name, err = p.expectName(what); err != nil {
		return "", "", err
	}
	typeName, err = p.parseAnnotation()
	return name, typeName, err
}

func (p *Parser) parseAnnotation() (string, error) {
	if !p.match(":") {
		return "", nil
	}
	return p.expectName("type name")
}

func (p *Parser) parseFunction() (*Function, error) {
	start := p.position()
	p.match("FUN")

	name, err := p.expectName("function name")
	if err != nil {
		return nil, err
	}
	fn := &Function{Name: name}

	if err := p.expect("("); err != nil {
		return nil, err
	}
	if !p.peek(")") {
		for {
			param, typeName, err := p.parseBinding("parameter name")
			if err != nil {
				return nil, err
			}
			fn.Parameters = append(fn.Parameters, param)
			fn.ParameterTypeNames = append(fn.ParameterTypeNames, typeName)
			if !p.match(",") {
				break
			}
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if fn.ReturnTypeName, err = p.parseAnnotation(); err != nil {
		return nil, err
	}
	if err := p.expect("DO"); err != nil {
		return nil, err
	}
	if fn.Statements, err = p.parseBlock(); err != nil {
		return nil, err
	}
	if err := p.expect("END"); err != nil {
		return nil, err
	}

	fn.SpanVal = p.spanFrom(start)
	return fn, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBlock parses statements up to a block terminator or the end of input.
// The caller consumes the terminator.
func (p *Parser) parseBlock() ([]Stmt, error) {
	var stmts []Stmt
	for p.index < len(p.tokens) &&
		!p.peek("END") && !p.peek("ELSE") && !p.peek("CASE") && !p.peek("DEFAULT") {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	switch {
	case p.peek("LET"):
		return p.parseDeclaration()
	case p.peek("IF"):
		return p.parseIf()
	case p.peek("SWITCH"):
		return p.parseSwitch()
	case p.peek("WHILE"):
		return p.parseWhile()
	case p.peek("RETURN"):
		return p.parseReturn()
	default:
		return p.parseExpressionOrAssignment()
	}
}

func (p *Parser) parseDeclaration() (*Declaration, error) {
	start := p.position()
	p.match("LET")

	name, typeName, err := p.parseBinding("variable name")
	if err != nil {
		return nil, err
	}
	decl := &Declaration{Name: name, TypeName: typeName}
	if p.match("=") {
		if decl.Value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	decl.SpanVal = p.spanFrom(start)
	return decl, nil
}

func (p *Parser) parseIf() (*If, error) {
	start := p.position()
	p.match("IF")

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect("DO"); err != nil {
		return nil, err
	}
	stmt := &If{Condition: cond}
	if stmt.Then, err = p.parseBlock(); err != nil {
		return nil, err
	}
	if p.match("ELSE") {
		if stmt.Else, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	if err := p.expect("END"); err != nil {
		return nil, err
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt, nil
}

func (p *Parser) parseSwitch() (*Switch, error) {
	start := p.position()
	p.match("SWITCH")

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt := &Switch{Condition: cond}

	for p.peek("CASE") {
		caseStart := p.position()
		p.match("CASE")
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Cases = append(stmt.Cases, &Case{SpanVal: p.spanFrom(caseStart), Value: value, Statements: body})
	}

	if p.peek("DEFAULT") {
		caseStart := p.position()
		p.match("DEFAULT")
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Cases = append(stmt.Cases, &Case{SpanVal: p.spanFrom(caseStart), Statements: body})
		if !p.peek("END") {
			return nil, p.errorf("DEFAULT must be the last case, found %s", p.describeCurrent())
		}
	}

	if err := p.expect("END"); err != nil {
		return nil, err
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt, nil
}

func (p *Parser) parseWhile() (*While, error) {
	start := p.position()
	p.match("WHILE")

	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect("DO"); err != nil {
		return nil, err
	}
	stmt := &While{Condition: cond}
	if stmt.Statements, err = p.parseBlock(); err != nil {
		return nil, err
	}
	if err := p.expect("END"); err != nil {
		return nil, err
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt, nil
}

func (p *Parser) parseReturn() (*Return, error) {
	start := p.position()
	p.match("RETURN")

	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return &Return{SpanVal: p.spanFrom(start), Value: value}, nil
}

// parseExpressionOrAssignment parses expr ("=" expr)? ";". Whether the
// receiver of an assignment is assignable is left to the analyzer.
func (p *Parser) parseExpressionOrAssignment() (Stmt, error) {
	start := p.position()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if p.match("=") {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(";"); err != nil {
			return nil, err
		}
		return &Assignment{SpanVal: p.spanFrom(start), Receiver: expr, Value: value}, nil
	}

	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return &ExprStmt{SpanVal: p.spanFrom(start), Expr: expr}, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Binary precedence levels, lowest first. Every level is left-associative.
var precedence = [][]string{
	{"&&", "||"},
	{"<", ">", "==", "!="},
	{"+", "-"},
	{"*", "/", "^"},
}

func (p *Parser) parseExpression() (Expr, error) {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(level int) (Expr, error) {
	if level == len(precedence) {
		return p.parsePrimary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := p.matchOperator(precedence[level])
		if !ok {
			return left, nil
		}
		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{
			SpanVal:  Span{Start: left.Span().Start, End: right.Span().End},
			Operator: op,
			Left:     left,
			Right:    right,
		}
	}
}

func (p *Parser) matchOperator(ops []string) (string, bool) {
	for _, op := range ops {
		if p.peek(TokenOperator) && p.match(op) {
			return op, true
		}
	}
	return "", false
}

func (p *Parser) parsePrimary() (Expr, error) {
	start := p.position()
	switch {
	case p.match("NIL"):
		return &Literal{SpanVal: p.spanFrom(start), Value: nil}, nil
	case p.match("TRUE"):
		return &Literal{SpanVal: p.spanFrom(start), Value: true}, nil
	case p.match("FALSE"):
		return &Literal{SpanVal: p.spanFrom(start), Value: false}, nil
	case p.match(TokenInteger):
		return p.parseInteger()
	case p.match(TokenDecimal):
		return p.parseDecimal()
	case p.match(TokenCharacter):
		return p.parseCharacter()
	case p.match(TokenString):
		return p.parseString()
	case p.peek("("):
		return p.parseParenExpr()
	case p.peek(TokenIdentifier) && !IsKeyword(p.current().Literal):
		return p.parseIdentifier()
	}
	return nil, p.errorf("expected an expression, found %s", p.describeCurrent())
}

func (p *Parser) parseInteger() (*Literal, error) {
	tok := p.previous()
	value, ok := new(big.Int).SetString(tok.Literal, 10)
	if !ok {
		return nil, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("invalid integer %q", tok.Literal)}
	}
	return &Literal{SpanVal: Span{Start: tok.Pos, End: tok.End()}, Value: value}, nil
}

func (p *Parser) parseDecimal() (*Literal, error) {
	tok := p.previous()
	value, _, err := apd.NewFromString(tok.Literal)
	if err != nil {
		return nil, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("invalid decimal %q", tok.Literal)}
	}
	return &Literal{SpanVal: Span{Start: tok.Pos, End: tok.End()}, Value: value}, nil
}

func (p *Parser) parseCharacter() (*Literal, error) {
	tok := p.previous()
	text := unescape(tok.Literal[1 : len(tok.Literal)-1])
	runes := []rune(text)
	if len(runes) != 1 {
		return nil, &ParseError{Pos: tok.Pos, Message: fmt.Sprintf("invalid character %s", tok.Literal)}
	}
	return &Literal{SpanVal: Span{Start: tok.Pos, End: tok.End()}, Value: runes[0]}, nil
}

func (p *Parser) parseString() (*Literal, error) {
	tok := p.previous()
	text := unescape(tok.Literal[1 : len(tok.Literal)-1])
	return &Literal{SpanVal: Span{Start: tok.Pos, End: tok.End()}, Value: text}, nil
}

func (p *Parser) parseParenExpr() (*Group, error) {
	start := p.position()
	p.match("(")
	inner, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return &Group{SpanVal: p.spanFrom(start), Expr: inner}, nil
}

// parseIdentifier parses a call, an indexed access or a plain access,
// depending on the token after the name.
func (p *Parser) parseIdentifier() (Expr, error) {
	start := p.position()
	name := p.current().Literal
	p.index++

	switch {
	case p.match("("):
		call := &Call{Name: name}
		if !p.peek(")") {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				call.Arguments = append(call.Arguments, arg)
				if !p.match(",") {
					break
				}
			}
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		call.SpanVal = p.spanFrom(start)
		return call, nil

	case p.match("["):
		offset, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect("]"); err != nil {
			return nil, err
		}
		return &Access{SpanVal: p.spanFrom(start), Name: name, Offset: offset}, nil
	}

	return &Access{SpanVal: p.spanFrom(start), Name: name}, nil
}

var escapes = strings.NewReplacer(
	`\b`, "\b",
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\'`, "'",
	`\"`, `"`,
	`\\`, `\`,
)

// unescape resolves the escape sequences the lexer admits.
func unescape(text string) string {
	return escapes.Replace(text)
}

package compiler

import (
	"fmt"

	"github.com/chazu/plc/vm"
)

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for PLC
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // rune offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether offset falls inside the span.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start.Offset && offset < s.End.Offset
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Top level
// ---------------------------------------------------------------------------

// Source is a whole program: globals first, then functions.
type Source struct {
	SpanVal   Span
	Globals   []*Global
	Functions []*Function
}

func (n *Source) Span() Span { return n.SpanVal }
func (n *Source) node()      {}

// Global is a LIST, VAR or VAL declaration at module level. A LIST global
// always has a *ListLiteral value.
type Global struct {
	SpanVal  Span
	Name     string
	Mutable  bool
	TypeName string // "" when not annotated
	Value    Expr   // nil when absent

	Variable *vm.Variable // set by the analyzer
}

func (n *Global) Span() Span { return n.SpanVal }
func (n *Global) node()      {}

// IsList reports whether this is a LIST declaration.
func (n *Global) IsList() bool {
	_, ok := n.Value.(*ListLiteral)
	return ok
}

// Function is a FUN declaration.
type Function struct {
	SpanVal            Span
	Name               string
	Parameters         []string
	ParameterTypeNames []string // "" entries when not annotated
	ReturnTypeName     string
	Statements         []Stmt

	Function *vm.Function // set by the analyzer
}

func (n *Function) Span() Span { return n.SpanVal }
func (n *Function) node()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	SpanVal Span
	Expr    Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// Declaration is a LET statement.
type Declaration struct {
	SpanVal  Span
	Name     string
	TypeName string
	Value    Expr

	Variable *vm.Variable // set by the analyzer
}

func (n *Declaration) Span() Span { return n.SpanVal }
func (n *Declaration) node()      {}
func (n *Declaration) stmt()      {}

// Assignment stores Value through Receiver, which must be an *Access.
type Assignment struct {
	SpanVal  Span
	Receiver Expr
	Value    Expr
}

func (n *Assignment) Span() Span { return n.SpanVal }
func (n *Assignment) node()      {}
func (n *Assignment) stmt()      {}

// If is IF cond DO ... [ELSE ...] END.
type If struct {
	SpanVal   Span
	Condition Expr
	Then      []Stmt
	Else      []Stmt
}

func (n *If) Span() Span { return n.SpanVal }
func (n *If) node()      {}
func (n *If) stmt()      {}

// Switch is SWITCH cond CASE ...: ... DEFAULT: ... END.
type Switch struct {
	SpanVal   Span
	Condition Expr
	Cases     []*Case
}

func (n *Switch) Span() Span { return n.SpanVal }
func (n *Switch) node()      {}
func (n *Switch) stmt()      {}

// Case is one arm of a Switch. A nil Value marks the default arm.
type Case struct {
	SpanVal    Span
	Value      Expr
	Statements []Stmt
}

func (n *Case) Span() Span { return n.SpanVal }
func (n *Case) node()      {}

// While is WHILE cond DO ... END.
type While struct {
	SpanVal    Span
	Condition  Expr
	Statements []Stmt
}

func (n *While) Span() Span { return n.SpanVal }
func (n *While) node()      {}
func (n *While) stmt()      {}

// Return is RETURN value;.
type Return struct {
	SpanVal Span
	Value   Expr
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) stmt()      {}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes. Type returns nil until the
// analyzer has resolved the expression.
type Expr interface {
	Node
	Type() *vm.Type
	SetType(*vm.Type)
	expr() // marker method
}

// typed holds the resolved type of an expression.
type typed struct {
	resolved *vm.Type
}

func (t *typed) Type() *vm.Type       { return t.resolved }
func (t *typed) SetType(typ *vm.Type) { t.resolved = typ }

// Literal holds one of nil, bool, rune, string, *big.Int or *apd.Decimal.
type Literal struct {
	typed
	SpanVal Span
	Value   any
}

func (n *Literal) Span() Span { return n.SpanVal }
func (n *Literal) node()      {}
func (n *Literal) expr()      {}

// Group is a parenthesized expression. The analyzer only accepts a Binary
// inside it.
type Group struct {
	typed
	SpanVal Span
	Expr    Expr
}

func (n *Group) Span() Span { return n.SpanVal }
func (n *Group) node()      {}
func (n *Group) expr()      {}

// Binary is left Operator right.
type Binary struct {
	typed
	SpanVal  Span
	Operator string
	Left     Expr
	Right    Expr
}

func (n *Binary) Span() Span { return n.SpanVal }
func (n *Binary) node()      {}
func (n *Binary) expr()      {}

// Access reads a variable, or one slot of a list when Offset is set.
type Access struct {
	typed
	SpanVal Span
	Name    string
	Offset  Expr

	Variable *vm.Variable // set by the analyzer
}

func (n *Access) Span() Span { return n.SpanVal }
func (n *Access) node()      {}
func (n *Access) expr()      {}

// Call invokes a function by name and argument count.
type Call struct {
	typed
	SpanVal   Span
	Name      string
	Arguments []Expr

	Function *vm.Function // set by the analyzer
}

func (n *Call) Span() Span { return n.SpanVal }
func (n *Call) node()      {}
func (n *Call) expr()      {}

// ListLiteral is the bracketed initializer of a LIST global. Its type is
// the element type.
type ListLiteral struct {
	typed
	SpanVal  Span
	Elements []Expr
}

func (n *ListLiteral) Span() Span { return n.SpanVal }
func (n *ListLiteral) node()      {}
func (n *ListLiteral) expr()      {}

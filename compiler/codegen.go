package compiler

import (
	"bytes"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/chazu/plc/vm"
)

// ---------------------------------------------------------------------------
// Codegen: Emit Java source from an analyzed AST
// ---------------------------------------------------------------------------

// GeneratorOptions control the shape of the emitted class.
type GeneratorOptions struct {
	ClassName string // defaults to Main
	Indent    int    // spaces per nesting level, defaults to 4
}

// DefaultGeneratorOptions returns the options used by Generate.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{ClassName: "Main", Indent: 4}
}

// Generator writes Java for an analyzed Source. The tree must carry the
// analyzer's annotations; a missing one fails with an Unanalyzed
// *vm.RuntimeError rather than producing partial output.
type Generator struct {
	w      io.Writer
	opts   GeneratorOptions
	buf    bytes.Buffer
	indent int
	temps  int
}

// NewGenerator creates a generator writing to w. Zero option fields take
// their defaults.
func NewGenerator(w io.Writer, opts GeneratorOptions) *Generator {
	def := DefaultGeneratorOptions()
	if opts.ClassName == "" {
		opts.ClassName = def.ClassName
	}
	if opts.Indent <= 0 {
		opts.Indent = def.Indent
	}
	return &Generator{w: w, opts: opts}
}

// Generate renders src with default options.
func Generate(src *Source) (string, error) {
	var out strings.Builder
	if err := NewGenerator(&out, DefaultGeneratorOptions()).Generate(src); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Generate emits the whole class. Nothing is written to the underlying
// writer unless generation succeeds.
func (g *Generator) Generate(src *Source) error {
	g.buf.Reset()
	g.indent, g.temps = 0, 0
	if err := g.genSource(src); err != nil {
		return err
	}
	_, err := g.w.Write(g.buf.Bytes())
	return err
}

func (g *Generator) print(parts ...string) {
	for _, p := range parts {
		g.buf.WriteString(p)
	}
}

func (g *Generator) newline(indent int) {
	g.buf.WriteByte('\n')
	g.buf.WriteString(strings.Repeat(" ", indent*g.opts.Indent))
}

func unanalyzed(n Node) error {
	return &vm.RuntimeError{
		Kind:   vm.Unanalyzed,
		Detail: fmt.Sprintf("%T at %s has no analysis annotations", n, n.Span().Start),
	}
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (g *Generator) genSource(src *Source) error {
	g.print("public class ", g.opts.ClassName, " {")
	g.newline(0)

	if len(src.Globals) > 0 {
		for _, global := range src.Globals {
			g.newline(1)
			if err := g.genGlobal(global); err != nil {
				return err
			}
		}
		g.newline(0)
	}

	g.newline(1)
	g.print("public static void main(String[] args) {")
	g.newline(2)
	g.print("System.exit(new ", g.opts.ClassName, "().main());")
	g.newline(1)
	g.print("}")
	g.newline(0)

	for _, fn := range src.Functions {
		g.newline(1)
		g.indent = 1
		if err := g.genFunction(fn); err != nil {
			return err
		}
		g.newline(0)
	}

	g.newline(0)
	g.print("}")
	g.newline(0)
	return nil
}

func (g *Generator) genGlobal(global *Global) error {
	v := global.Variable
	if v == nil {
		return unanalyzed(global)
	}

	if list, ok := global.Value.(*ListLiteral); ok {
		g.print(v.Type.JvmName, "[] ", v.JvmName, " = ")
		if err := g.genExpr(list); err != nil {
			return err
		}
		g.print(";")
		return nil
	}

	if !v.Mutable {
		g.print("final ")
	}
	g.print(v.Type.JvmName, " ", v.JvmName)
	if global.Value != nil {
		g.print(" = ")
		if err := g.genExpr(global.Value); err != nil {
			return err
		}
	}
	g.print(";")
	return nil
}

func (g *Generator) genFunction(fn *Function) error {
	binding := fn.Function
	if binding == nil {
		return unanalyzed(fn)
	}

	g.print(binding.ReturnType.JvmName, " ", binding.JvmName, "(")
	for i, param := range fn.Parameters {
		if i > 0 {
			g.print(", ")
		}
		g.print(binding.ParameterTypes[i].JvmName, " ", JvmName(param))
	}
	g.print(") ")

	// Only Nil and Any functions may fall off their end; Java needs the
	// implicit NIL spelled out.
	tail := ""
	if !alwaysReturns(fn.Statements) {
		tail = "return null;"
	}
	return g.genBody(fn.Statements, tail)
}

// genBlock prints { stmts } at the current indent, or {} when empty.
func (g *Generator) genBlock(stmts []Stmt) error {
	return g.genBody(stmts, "")
}

// genBody is genBlock with an optional final line. Statements after one
// that always returns are dead and Java rejects them, so they are dropped.
func (g *Generator) genBody(stmts []Stmt, tail string) error {
	g.print("{")
	if len(stmts) == 0 && tail == "" {
		g.print("}")
		return nil
	}
	g.indent++
	for _, s := range stmts {
		g.newline(g.indent)
		if err := g.genStmt(s); err != nil {
			return err
		}
		if returns(s) {
			break
		}
	}
	if tail != "" {
		g.newline(g.indent)
		g.print(tail)
	}
	g.indent--
	g.newline(g.indent)
	g.print("}")
	return nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) genStmt(s Stmt) error {
	switch s := s.(type) {
	case *ExprStmt:
		if err := g.genExpr(s.Expr); err != nil {
			return err
		}
		g.print(";")

	case *Declaration:
		v := s.Variable
		if v == nil {
			return unanalyzed(s)
		}
		g.print(v.Type.JvmName, " ", v.JvmName)
		switch {
		case s.Value != nil:
			g.print(" = ")
			if err := g.genExpr(s.Value); err != nil {
				return err
			}
		case !javaPrimitive(v.Type):
			// Java locals have no default value.
			g.print(" = null")
		}
		g.print(";")

	case *Assignment:
		if err := g.genExpr(s.Receiver); err != nil {
			return err
		}
		g.print(" = ")
		if err := g.genExpr(s.Value); err != nil {
			return err
		}
		g.print(";")

	case *If:
		g.print("if (")
		if err := g.genExpr(s.Condition); err != nil {
			return err
		}
		g.print(") ")
		if err := g.genBlock(s.Then); err != nil {
			return err
		}
		if len(s.Else) > 0 {
			g.print(" else ")
			if err := g.genBlock(s.Else); err != nil {
				return err
			}
		}

	case *Switch:
		return g.genSwitch(s)

	case *While:
		// javac treats a loop on a constant condition as never ending (or
		// never entered), which would make the code around it unreachable.
		constant := maybeConstant(s.Condition)
		g.print("while (")
		if constant {
			g.print("Boolean.valueOf(")
		}
		if err := g.genExpr(s.Condition); err != nil {
			return err
		}
		if constant {
			g.print(")")
		}
		g.print(") ")
		return g.genBlock(s.Statements)

	case *Return:
		g.print("return ")
		if err := g.genExpr(s.Value); err != nil {
			return err
		}
		g.print(";")

	default:
		return fmt.Errorf("codegen: unhandled statement %T", s)
	}
	return nil
}

func (g *Generator) genSwitch(s *Switch) error {
	if !javaSwitchable(s) {
		return g.genSwitchChain(s)
	}

	g.print("switch (")
	if err := g.genExpr(s.Condition); err != nil {
		return err
	}
	g.print(") {")

	g.indent++
	for _, c := range s.Cases {
		g.newline(g.indent)
		if c.Value == nil {
			g.print("default: ")
		} else {
			g.print("case ")
			if err := g.genExpr(c.Value); err != nil {
				return err
			}
			g.print(": ")
		}
		// Each case gets its own block so cases may declare the same local.
		tail := ""
		if c.Value != nil && !alwaysReturns(c.Statements) {
			tail = "break;"
		}
		if err := g.genBody(c.Statements, tail); err != nil {
			return err
		}
	}
	g.indent--

	g.newline(g.indent)
	g.print("}")
	return nil
}

// javaSwitchable reports whether s maps onto a Java switch: the condition
// is int, char or String and the cases are distinct literals.
func javaSwitchable(s *Switch) bool {
	switch s.Condition.Type() {
	case vm.IntegerType, vm.CharacterType, vm.StringType:
	default:
		return false
	}
	seen := make(map[string]bool, len(s.Cases))
	for _, c := range s.Cases {
		if c.Value == nil {
			continue
		}
		lit, ok := c.Value.(*Literal)
		if !ok || lit.Value == nil {
			return false
		}
		label := javaLiteral(lit.Value)
		if seen[label] {
			return false
		}
		seen[label] = true
	}
	return true
}

// genSwitchChain lowers s to an if/else chain over a temporary holding the
// condition, evaluated once. The DEFAULT case is always last.
func (g *Generator) genSwitchChain(s *Switch) error {
	g.temps++
	temp := fmt.Sprintf("$$switch%d", g.temps)
	typ := s.Condition.Type()

	g.print(typ.JvmName, " ", temp, " = ")
	if err := g.genExpr(s.Condition); err != nil {
		return err
	}
	g.print(";")
	g.newline(g.indent)

	for i, c := range s.Cases {
		if i > 0 {
			g.print(" else ")
		}
		if c.Value != nil {
			g.print("if (")
			if javaPrimitive(typ) {
				g.print(temp, " == ")
				if err := g.genOperand(c.Value, precEquality+1); err != nil {
					return err
				}
			} else {
				g.print("java.util.Objects.equals(", temp, ", ")
				if err := g.genExpr(c.Value); err != nil {
					return err
				}
				g.print(")")
			}
			g.print(") ")
		}
		if err := g.genBlock(c.Statements); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (g *Generator) genExpr(e Expr) error {
	if e.Type() == nil {
		return unanalyzed(e)
	}

	switch e := e.(type) {
	case *Literal:
		g.print(javaLiteral(e.Value))

	case *Group:
		g.print("(")
		if err := g.genExpr(e.Expr); err != nil {
			return err
		}
		g.print(")")

	case *Binary:
		return g.genBinary(e)

	case *Access:
		if e.Variable == nil {
			return unanalyzed(e)
		}
		g.print(e.Variable.JvmName)
		if e.Offset != nil {
			g.print("[")
			if err := g.genExpr(e.Offset); err != nil {
				return err
			}
			g.print("]")
		}

	case *Call:
		if e.Function == nil {
			return unanalyzed(e)
		}
		g.print(e.Function.JvmName, "(")
		if err := g.genList(e.Arguments); err != nil {
			return err
		}
		g.print(")")

	case *ListLiteral:
		g.print("{")
		if err := g.genList(e.Elements); err != nil {
			return err
		}
		g.print("}")

	default:
		return fmt.Errorf("codegen: unhandled expression %T", e)
	}
	return nil
}

// Java precedence levels of the emitted operators. Operators PLC groups
// on one level (&& with ||, == with <) sit on different Java levels, so an
// operand that binds looser than its parent is parenthesized.
const (
	precOr = iota + 1
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precPrimary
)

// javaPrecedence returns how tightly the Java emitted for e binds.
func javaPrecedence(e Expr) int {
	b, ok := e.(*Binary)
	if !ok {
		return precPrimary
	}
	switch b.Operator {
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "==", "!=":
		if objectOperands(b) {
			return precPrimary
		}
		return precEquality
	case "<", ">":
		return precRelational
	case "+", "-":
		return precAdditive
	case "*", "/":
		return precMultiplicative
	}
	return precPrimary
}

// javaPrimitive reports whether t is emitted as a Java primitive type.
func javaPrimitive(t *vm.Type) bool {
	switch t {
	case vm.BooleanType, vm.IntegerType, vm.DecimalType, vm.CharacterType:
		return true
	}
	return false
}

// objectOperands reports whether either operand of e is a Java reference,
// for which == and < mean something else or do not compile.
func objectOperands(e *Binary) bool {
	return !javaPrimitive(e.Left.Type()) || !javaPrimitive(e.Right.Type())
}

// genOperand emits e, parenthesized when it binds looser than least.
func (g *Generator) genOperand(e Expr, least int) error {
	if javaPrecedence(e) >= least {
		return g.genExpr(e)
	}
	g.print("(")
	if err := g.genExpr(e); err != nil {
		return err
	}
	g.print(")")
	return nil
}

func (g *Generator) genBinary(e *Binary) error {
	switch {
	case e.Operator == "^":
		if e.Type() == vm.IntegerType {
			g.print("(int) ")
		}
		g.print("Math.pow(")
		if err := g.genExpr(e.Left); err != nil {
			return err
		}
		g.print(", ")
		if err := g.genExpr(e.Right); err != nil {
			return err
		}
		g.print(")")
		return nil

	case (e.Operator == "==" || e.Operator == "!=") && objectOperands(e):
		if e.Operator == "!=" {
			g.print("!")
		}
		g.print("java.util.Objects.equals(")
		if err := g.genExpr(e.Left); err != nil {
			return err
		}
		g.print(", ")
		if err := g.genExpr(e.Right); err != nil {
			return err
		}
		g.print(")")
		return nil

	case (e.Operator == "<" || e.Operator == ">") && objectOperands(e):
		return g.genCompareTo(e)
	}

	// PLC operators are left associative, so the right operand needs
	// parentheses at equal precedence too.
	prec := javaPrecedence(e)
	if err := g.genOperand(e.Left, prec); err != nil {
		return err
	}
	g.print(" ", e.Operator, " ")
	return g.genOperand(e.Right, prec+1)
}

// genCompareTo emits l.compareTo(r) < 0 (or > 0) for ordering on Strings
// and boxed values.
func (g *Generator) genCompareTo(e *Binary) error {
	if e.Left.Type() == vm.StringType {
		if err := g.genOperand(e.Left, precPrimary); err != nil {
			return err
		}
	} else {
		g.print("((Comparable) ")
		if err := g.genOperand(e.Left, precPrimary); err != nil {
			return err
		}
		g.print(")")
	}
	g.print(".compareTo(")
	if err := g.genExpr(e.Right); err != nil {
		return err
	}
	g.print(") ", e.Operator, " 0")
	return nil
}

// maybeConstant reports whether javac might fold cond to a constant:
// it is built from literals and final fields only.
func maybeConstant(cond Expr) bool {
	switch e := cond.(type) {
	case *Literal:
		return true
	case *Group:
		return maybeConstant(e.Expr)
	case *Binary:
		return maybeConstant(e.Left) && maybeConstant(e.Right)
	case *Access:
		return e.Offset == nil && e.Variable != nil && !e.Variable.Mutable
	}
	return false
}

func (g *Generator) genList(exprs []Expr) error {
	for i, e := range exprs {
		if i > 0 {
			g.print(", ")
		}
		if err := g.genExpr(e); err != nil {
			return err
		}
	}
	return nil
}

var javaEscapes = strings.NewReplacer(
	`\`, `\\`,
	"\b", `\b`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	`"`, `\"`,
)

func javaLiteral(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case rune:
		if v == '\'' {
			return `'\''`
		}
		return "'" + javaEscapes.Replace(string(v)) + "'"
	case string:
		return `"` + javaEscapes.Replace(v) + `"`
	case *big.Int:
		return v.String()
	case *apd.Decimal:
		return v.Text('f')
	}
	return fmt.Sprint(value)
}

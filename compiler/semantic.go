package compiler

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/chazu/plc/vm"
)

// ---------------------------------------------------------------------------
// Analyzer: name resolution and type checking
// ---------------------------------------------------------------------------

// Analyzer resolves names and types over a Source and annotates the tree in
// place. It stops at the first static error.
//
// Each Analyze call starts from a fresh module scope under the builtins, so
// analyzing an already annotated tree again yields the same annotations.
type Analyzer struct {
	builtins *vm.Scope
	scope    *vm.Scope

	// Enclosing function state. inferring is set while the return type is
	// collected from RETURN statements instead of checked against a
	// declared type.
	returnType  *vm.Type
	inferring   bool
	returnTypes []*vm.Type

	// frame is the enclosing function's scope; depth counts scopes below
	// the module scope.
	frame *vm.Scope
	depth int
}

// NewAnalyzer creates an analyzer whose module scope nests in builtins.
func NewAnalyzer(builtins *vm.Scope) *Analyzer {
	return &Analyzer{builtins: builtins}
}

// Analyze annotates src against builtins.
func Analyze(src *Source, builtins *vm.Scope) error {
	return NewAnalyzer(builtins).Analyze(src)
}

// Scope returns the module scope of the last Analyze call.
func (a *Analyzer) Scope() *vm.Scope {
	return a.scope
}

// Analyze checks globals in order, then functions in order, then requires
// main/0 returning Integer.
func (a *Analyzer) Analyze(src *Source) error {
	a.scope = vm.NewScope(a.builtins)

	for _, g := range src.Globals {
		if err := a.analyzeGlobal(g); err != nil {
			return err
		}
	}
	for _, fn := range src.Functions {
		if err := a.analyzeFunction(fn); err != nil {
			return err
		}
	}

	main, err := a.scope.LookupFunction("main", 0)
	if err != nil {
		return &AnalysisError{Pos: src.Span().End, Reason: "program has no main function", Err: err}
	}
	if main.ReturnType != vm.IntegerType {
		return &AnalysisError{
			Pos:    src.Span().End,
			Reason: fmt.Sprintf("main must return Integer, not %s", main.ReturnType),
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

func (a *Analyzer) analyzeGlobal(g *Global) error {
	if list, ok := g.Value.(*ListLiteral); ok {
		return a.analyzeListGlobal(g, list)
	}

	typ, err := a.declaredType(g, g.TypeName, g.Value)
	if err != nil {
		return err
	}
	v, err := a.scope.DefineVariable(g.Name, JvmName(g.Name), typ, g.Mutable, vm.Nil)
	if err != nil {
		return a.errorf(g, err, "cannot declare %s", g.Name)
	}
	g.Variable = v
	return nil
}

func (a *Analyzer) analyzeListGlobal(g *Global, list *ListLiteral) error {
	var elemType *vm.Type
	if g.TypeName != "" {
		t, err := vm.GetType(g.TypeName)
		if err != nil {
			return a.errorf(g, err, "unknown element type")
		}
		elemType = t
	}

	for i, elem := range list.Elements {
		if err := a.analyzeExpr(elem); err != nil {
			return err
		}
		if elemType == nil && i == 0 {
			elemType = elem.Type()
		}
		if err := vm.RequireAssignable(elemType, elem.Type()); err != nil {
			return a.errorf(elem, err, "list element %d of %s", i, g.Name)
		}
	}
	list.SetType(elemType)

	v, err := a.scope.DefineVariable(g.Name, JvmName(g.Name), elemType, false, vm.Nil)
	if err != nil {
		return a.errorf(g, err, "cannot declare %s", g.Name)
	}
	v.IsList = true
	g.Variable = v
	return nil
}

// declaredType analyzes an optional initializer and resolves the type of the
// binding it initializes: the annotation when present, else the
// initializer's type, else Any.
func (a *Analyzer) declaredType(n Node, typeName string, value Expr) (*vm.Type, error) {
	if value != nil {
		if err := a.analyzeExpr(value); err != nil {
			return nil, err
		}
	}
	if typeName == "" {
		if value != nil {
			return value.Type(), nil
		}
		return vm.AnyType, nil
	}

	typ, err := vm.GetType(typeName)
	if err != nil {
		return nil, a.errorf(n, err, "unknown type")
	}
	if value != nil {
		if err := vm.RequireAssignable(typ, value.Type()); err != nil {
			return nil, a.errorf(value, err, "initializer does not match declared type")
		}
	}
	return typ, nil
}

func (a *Analyzer) analyzeFunction(fn *Function) error {
	paramTypes := make([]*vm.Type, len(fn.Parameters))
	for i, name := range fn.ParameterTypeNames {
		if name == "" {
			paramTypes[i] = vm.AnyType
			continue
		}
		t, err := vm.GetType(name)
		if err != nil {
			return a.errorf(fn, err, "parameter %s of %s", fn.Parameters[i], fn.Name)
		}
		paramTypes[i] = t
	}

	binding := &vm.Function{
		Name:           fn.Name,
		JvmName:        JvmName(fn.Name),
		Arity:          len(fn.Parameters),
		ParameterTypes: paramTypes,
		ReturnType:     vm.AnyType,
	}
	a.returnType, a.inferring, a.returnTypes = nil, fn.ReturnTypeName == "", nil
	if !a.inferring {
		t, err := vm.GetType(fn.ReturnTypeName)
		if err != nil {
			return a.errorf(fn, err, "return type of %s", fn.Name)
		}
		binding.ReturnType = t
		a.returnType = t
	}
	if _, err := a.scope.DefineFunction(binding); err != nil {
		return a.errorf(fn, err, "cannot declare %s", fn.Name)
	}

	err := a.withScope(func() error {
		a.frame = a.scope
		defer func() { a.frame = nil }()
		for i, name := range fn.Parameters {
			if _, err := a.scope.DefineVariable(name, JvmName(name), paramTypes[i], true, vm.Nil); err != nil {
				return a.errorf(fn, err, "parameter %s of %s", name, fn.Name)
			}
		}
		return a.analyzeBlock(fn.Statements)
	})
	if err != nil {
		return err
	}

	if a.inferring {
		binding.ReturnType = inferReturnType(a.returnTypes)
	}
	// Falling off the end yields NIL, which only Nil and Any can hold.
	if !vm.IsAssignable(binding.ReturnType, vm.NilType) && !alwaysReturns(fn.Statements) {
		return a.errorf(fn, &vm.TypeError{Target: binding.ReturnType, Source: vm.NilType},
			"%s does not return a value on every path", binding.Signature())
	}
	fn.Function = binding
	log.Debugf("analyzed %s", binding.Signature())
	return nil
}

// inferReturnType folds the types of a function's RETURN values: none is
// Nil, all equal is that type, anything else is Any.
func inferReturnType(types []*vm.Type) *vm.Type {
	if len(types) == 0 {
		return vm.NilType
	}
	for _, t := range types[1:] {
		if t != types[0] {
			return vm.AnyType
		}
	}
	return types[0]
}

// withScope runs fn in a child scope and always restores the current one.
func (a *Analyzer) withScope(fn func() error) error {
	saved := a.scope
	a.scope = vm.NewScope(saved)
	a.depth++
	defer func() {
		a.scope = saved
		a.depth--
	}()
	return fn()
}

// alwaysReturns reports whether every path through stmts ends in a RETURN.
// A WHILE never counts, whatever its condition.
func alwaysReturns(stmts []Stmt) bool {
	for _, s := range stmts {
		if returns(s) {
			return true
		}
	}
	return false
}

func returns(s Stmt) bool {
	switch s := s.(type) {
	case *Return:
		return true
	case *If:
		return alwaysReturns(s.Then) && alwaysReturns(s.Else)
	case *Switch:
		if len(s.Cases) == 0 || s.Cases[len(s.Cases)-1].Value != nil {
			return false
		}
		for _, c := range s.Cases {
			if !alwaysReturns(c.Statements) {
				return false
			}
		}
		return true
	}
	return false
}

// localJvmName names a local for Java, which rejects a local that shadows
// another local or parameter of the same method. Globals are fields and
// may be shadowed freely.
func (a *Analyzer) localJvmName(name string) string {
	jvm := JvmName(name)
	if a.frame == nil || a.scope == a.frame {
		return jvm
	}
	outer, err := a.scope.Parent().LookupVariable(name)
	if err != nil {
		return jvm
	}
	if global, err := a.frame.Parent().LookupVariable(name); err == nil && global == outer {
		return jvm
	}
	return fmt.Sprintf("_%d_%s", a.depth, jvm)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (a *Analyzer) analyzeBlock(stmts []Stmt) error {
	for _, s := range stmts {
		if err := a.analyzeStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeStmt(s Stmt) error {
	switch s := s.(type) {
	case *ExprStmt:
		if _, ok := s.Expr.(*Call); !ok {
			return a.errorf(s, nil, "expression statement must be a function call")
		}
		return a.analyzeExpr(s.Expr)

	case *Declaration:
		typ, err := a.declaredType(s, s.TypeName, s.Value)
		if err != nil {
			return err
		}
		v, err := a.scope.DefineVariable(s.Name, a.localJvmName(s.Name), typ, true, vm.Nil)
		if err != nil {
			return a.errorf(s, err, "cannot declare %s", s.Name)
		}
		s.Variable = v
		return nil

	case *Assignment:
		return a.analyzeAssignment(s)

	case *If:
		if err := a.analyzeCondition(s.Condition); err != nil {
			return err
		}
		if err := a.withScope(func() error { return a.analyzeBlock(s.Then) }); err != nil {
			return err
		}
		return a.withScope(func() error { return a.analyzeBlock(s.Else) })

	case *Switch:
		return a.analyzeSwitch(s)

	case *While:
		if err := a.analyzeCondition(s.Condition); err != nil {
			return err
		}
		return a.withScope(func() error { return a.analyzeBlock(s.Statements) })

	case *Return:
		if err := a.analyzeExpr(s.Value); err != nil {
			return err
		}
		if a.inferring {
			a.returnTypes = append(a.returnTypes, s.Value.Type())
			return nil
		}
		if err := vm.RequireAssignable(a.returnType, s.Value.Type()); err != nil {
			return a.errorf(s, err, "return value does not match the function's return type")
		}
		return nil

	default:
		return a.errorf(s, nil, "unhandled statement %T", s)
	}
}

func (a *Analyzer) analyzeAssignment(s *Assignment) error {
	receiver, ok := s.Receiver.(*Access)
	if !ok {
		return a.errorf(s.Receiver, nil, "cannot assign to this expression")
	}
	if err := a.analyzeExpr(receiver); err != nil {
		return err
	}
	if err := a.analyzeExpr(s.Value); err != nil {
		return err
	}

	// Indexed assignment replaces a slot, so only plain assignment needs a
	// mutable binding.
	if receiver.Offset == nil && !receiver.Variable.Mutable {
		return a.errorf(s, &vm.RuntimeError{Kind: vm.ImmutableAssignment, Detail: receiver.Name},
			"cannot assign to immutable %s", receiver.Name)
	}
	if err := vm.RequireAssignable(receiver.Type(), s.Value.Type()); err != nil {
		return a.errorf(s.Value, err, "cannot assign to %s", receiver.Name)
	}
	return nil
}

func (a *Analyzer) analyzeSwitch(s *Switch) error {
	if err := a.analyzeExpr(s.Condition); err != nil {
		return err
	}
	if len(s.Cases) == 0 || s.Cases[len(s.Cases)-1].Value != nil {
		return a.errorf(s, nil, "SWITCH must end with a DEFAULT case")
	}

	for i, c := range s.Cases {
		if c.Value == nil && i != len(s.Cases)-1 {
			return a.errorf(c, nil, "only the last case may be DEFAULT")
		}
		if c.Value != nil {
			if err := a.analyzeExpr(c.Value); err != nil {
				return err
			}
			if c.Value.Type() != s.Condition.Type() {
				return a.errorf(c.Value, &vm.TypeError{Target: s.Condition.Type(), Source: c.Value.Type()},
					"case value must have the switch condition's type")
			}
		}
		if err := a.withScope(func() error { return a.analyzeBlock(c.Statements) }); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeCondition(cond Expr) error {
	if err := a.analyzeExpr(cond); err != nil {
		return err
	}
	if err := vm.RequireAssignable(vm.BooleanType, cond.Type()); err != nil {
		return a.errorf(cond, err, "condition must be Boolean")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (a *Analyzer) analyzeExpr(e Expr) error {
	switch e := e.(type) {
	case *Literal:
		return a.analyzeLiteral(e)

	case *Group:
		inner, ok := e.Expr.(*Binary)
		if !ok {
			return a.errorf(e, nil, "parentheses may only group a binary expression")
		}
		if err := a.analyzeExpr(inner); err != nil {
			return err
		}
		e.SetType(inner.Type())
		return nil

	case *Binary:
		return a.analyzeBinary(e)

	case *Access:
		return a.analyzeAccess(e)

	case *Call:
		return a.analyzeCall(e)

	case *ListLiteral:
		return a.errorf(e, nil, "list literals may only initialize a LIST")

	default:
		return a.errorf(e, nil, "unhandled expression %T", e)
	}
}

var (
	minInteger = big.NewInt(math.MinInt32)
	maxInteger = big.NewInt(math.MaxInt32)
)

func (a *Analyzer) analyzeLiteral(e *Literal) error {
	switch v := e.Value.(type) {
	case nil:
		e.SetType(vm.NilType)
	case bool:
		e.SetType(vm.BooleanType)
	case rune:
		e.SetType(vm.CharacterType)
	case string:
		e.SetType(vm.StringType)
	case *big.Int:
		if v.Cmp(minInteger) < 0 || v.Cmp(maxInteger) > 0 {
			return a.errorf(e, nil, "integer literal %s is out of range", v)
		}
		e.SetType(vm.IntegerType)
	case *apd.Decimal:
		if f, err := v.Float64(); err != nil || math.IsInf(f, 0) {
			return a.errorf(e, err, "decimal literal %s is out of range", v.Text('f'))
		}
		e.SetType(vm.DecimalType)
	default:
		return a.errorf(e, nil, "unsupported literal %T", v)
	}
	return nil
}

func (a *Analyzer) analyzeBinary(e *Binary) error {
	if err := a.analyzeExpr(e.Left); err != nil {
		return err
	}
	if err := a.analyzeExpr(e.Right); err != nil {
		return err
	}
	left, right := e.Left.Type(), e.Right.Type()

	switch e.Operator {
	case "&&", "||":
		for _, operand := range []Expr{e.Left, e.Right} {
			if err := vm.RequireAssignable(vm.BooleanType, operand.Type()); err != nil {
				return a.errorf(operand, err, "operand of %s must be Boolean", e.Operator)
			}
		}
		e.SetType(vm.BooleanType)

	case "<", ">", "==", "!=":
		for _, operand := range []Expr{e.Left, e.Right} {
			if err := vm.RequireAssignable(vm.ComparableType, operand.Type()); err != nil {
				return a.errorf(operand, err, "operand of %s must be Comparable", e.Operator)
			}
		}
		if !vm.IsAssignable(left, right) && !vm.IsAssignable(right, left) {
			return a.errorf(e, &vm.TypeError{Target: left, Source: right}, "cannot compare %s with %s", left, right)
		}
		e.SetType(vm.BooleanType)

	case "+":
		if left == vm.StringType || right == vm.StringType {
			e.SetType(vm.StringType)
			return nil
		}
		return a.numeric(e, left, right)

	case "-", "*", "/":
		return a.numeric(e, left, right)

	case "^":
		if right != vm.IntegerType {
			return a.errorf(e.Right, &vm.TypeError{Target: vm.IntegerType, Source: right}, "exponent must be Integer")
		}
		if left != vm.IntegerType && left != vm.DecimalType {
			return a.errorf(e.Left, nil, "cannot raise %s to a power", left)
		}
		e.SetType(left)

	default:
		return a.errorf(e, nil, "unknown operator %q", e.Operator)
	}
	return nil
}

// numeric requires both operands to be Integer or both Decimal.
func (a *Analyzer) numeric(e *Binary, left, right *vm.Type) error {
	if (left == vm.IntegerType || left == vm.DecimalType) && left == right {
		e.SetType(left)
		return nil
	}
	return a.errorf(e, nil, "operator %s needs two Integers or two Decimals, got %s and %s", e.Operator, left, right)
}

func (a *Analyzer) analyzeAccess(e *Access) error {
	v, err := a.scope.LookupVariable(e.Name)
	if err != nil {
		return a.errorf(e, err, "cannot resolve %s", e.Name)
	}
	e.Variable = v

	if e.Offset == nil {
		if v.IsList {
			e.SetType(vm.AnyType)
		} else {
			e.SetType(v.Type)
		}
		return nil
	}

	if !v.IsList {
		return a.errorf(e, nil, "%s is not a list", e.Name)
	}
	if err := a.analyzeExpr(e.Offset); err != nil {
		return err
	}
	if e.Offset.Type() != vm.IntegerType {
		return a.errorf(e.Offset, &vm.TypeError{Target: vm.IntegerType, Source: e.Offset.Type()}, "list index must be Integer")
	}
	e.SetType(v.Type)
	return nil
}

func (a *Analyzer) analyzeCall(e *Call) error {
	for _, arg := range e.Arguments {
		if err := a.analyzeExpr(arg); err != nil {
			return err
		}
	}

	fn, err := a.scope.LookupFunction(e.Name, len(e.Arguments))
	if err != nil {
		return a.errorf(e, err, "cannot resolve %s with %d arguments", e.Name, len(e.Arguments))
	}
	for i, arg := range e.Arguments {
		if err := vm.RequireAssignable(fn.ParameterTypes[i], arg.Type()); err != nil {
			return a.errorf(arg, err, "argument %d of %s", i+1, e.Name)
		}
	}

	e.Function = fn
	e.SetType(fn.ReturnType)
	return nil
}

func (a *Analyzer) errorf(n Node, err error, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Pos: n.Span().Start, Reason: fmt.Sprintf(format, args...), Err: err}
}

// ---------------------------------------------------------------------------
// Runtime aliases
// ---------------------------------------------------------------------------

// '@' only ever starts a name and '-' never does, so both can map to '$'.
var jvmMangler = strings.NewReplacer("@", "$", "-", "$")

var javaReserved = map[string]bool{
	"abstract": true, "boolean": true, "break": true, "byte": true, "case": true,
	"catch": true, "char": true, "class": true, "const": true, "continue": true,
	"default": true, "do": true, "double": true, "else": true, "enum": true,
	"extends": true, "final": true, "finally": true, "float": true, "for": true,
	"goto": true, "if": true, "implements": true, "import": true, "instanceof": true,
	"int": true, "interface": true, "long": true, "native": true, "new": true,
	"package": true, "private": true, "protected": true, "public": true, "return": true,
	"short": true, "static": true, "super": true, "switch": true, "synchronized": true,
	"this": true, "throw": true, "throws": true, "transient": true, "try": true,
	"void": true, "volatile": true, "while": true, "null": true, "true": true, "false": true,

	// Names the generated code refers to in expression position, where a
	// variable of the same name would obscure them.
	"Boolean": true, "Math": true, "System": true, "java": true,
}

// JvmName maps a source identifier to a valid Java identifier. Distinct
// names stay distinct. A leading '_' marks a renamed reserved word, since
// no source identifier starts with one.
func JvmName(name string) string {
	if javaReserved[name] {
		return "_" + name
	}
	return jvmMangler.Replace(name)
}

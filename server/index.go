package server

import (
	"io"
	"sort"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"
)

// ---------------------------------------------------------------------------
// Analysis snapshots
// ---------------------------------------------------------------------------

// analysis is the result of running the pipeline over one document version.
// A failed analysis keeps whatever the earlier stages produced, so editor
// features degrade instead of disappearing.
type analysis struct {
	src   *compiler.Source // nil when lexing or parsing failed
	scope *vm.Scope        // module scope; nil when analysis never started
	index *index
	err   error
}

// analyze runs lex → parse → analyze with a private builtins scope. It must
// only be called on the worker goroutine.
func analyze(text string) *analysis {
	a := &analysis{index: &index{declarations: make(map[any]compiler.Span)}}

	tokens, err := compiler.Lex(text)
	if err != nil {
		a.err = err
		return a
	}
	src, err := compiler.Parse(tokens)
	if err != nil {
		a.err = err
		return a
	}
	a.src = src

	analyzer := compiler.NewAnalyzer(vm.NewBuiltins(io.Discard))
	a.err = analyzer.Analyze(src)
	a.scope = analyzer.Scope()
	a.index = buildIndex(src)
	return a
}

// ---------------------------------------------------------------------------
// Symbol index
// ---------------------------------------------------------------------------

// occurrence is one resolved name in the tree: a declaration or a use.
// Exactly one of variable and function is set.
type occurrence struct {
	span     compiler.Span
	name     string
	variable *vm.Variable
	function *vm.Function
}

func (o occurrence) binding() any {
	if o.variable != nil {
		return o.variable
	}
	return o.function
}

// scopeRange is the extent of one function, with the locals it declares.
type scopeRange struct {
	span   compiler.Span
	fn     *compiler.Function
	locals []*compiler.Declaration
}

type index struct {
	occurrences  []occurrence
	declarations map[any]compiler.Span // *vm.Variable or *vm.Function → declaring node
	functions    []scopeRange
}

// buildIndex walks an analyzed (or partially analyzed) tree. Nodes the
// analyzer never reached are skipped.
func buildIndex(src *compiler.Source) *index {
	ix := &index{declarations: make(map[any]compiler.Span)}
	for _, g := range src.Globals {
		if g.Variable != nil {
			ix.declare(g.Span(), g.Name, g.Variable, nil)
		}
		if g.Value != nil {
			ix.expr(g.Value, nil)
		}
	}
	for _, fn := range src.Functions {
		if fn.Function != nil {
			ix.declare(fn.Span(), fn.Name, nil, fn.Function)
		}
		r := &scopeRange{span: fn.Span(), fn: fn}
		ix.block(fn.Statements, r)
		ix.functions = append(ix.functions, *r)
	}
	return ix
}

func (ix *index) declare(span compiler.Span, name string, v *vm.Variable, fn *vm.Function) {
	o := occurrence{span: span, name: name, variable: v, function: fn}
	ix.occurrences = append(ix.occurrences, o)
	ix.declarations[o.binding()] = span
}

func (ix *index) block(stmts []compiler.Stmt, r *scopeRange) {
	for _, s := range stmts {
		ix.stmt(s, r)
	}
}

func (ix *index) stmt(stmt compiler.Stmt, r *scopeRange) {
	switch s := stmt.(type) {
	case *compiler.ExprStmt:
		ix.expr(s.Expr, r)
	case *compiler.Declaration:
		if s.Value != nil {
			ix.expr(s.Value, r)
		}
		if s.Variable != nil {
			ix.declare(s.Span(), s.Name, s.Variable, nil)
		}
		r.locals = append(r.locals, s)
	case *compiler.Assignment:
		ix.expr(s.Receiver, r)
		ix.expr(s.Value, r)
	case *compiler.If:
		ix.expr(s.Condition, r)
		ix.block(s.Then, r)
		ix.block(s.Else, r)
	case *compiler.Switch:
		ix.expr(s.Condition, r)
		for _, c := range s.Cases {
			if c.Value != nil {
				ix.expr(c.Value, r)
			}
			ix.block(c.Statements, r)
		}
	case *compiler.While:
		ix.expr(s.Condition, r)
		ix.block(s.Statements, r)
	case *compiler.Return:
		ix.expr(s.Value, r)
	}
}

func (ix *index) expr(expr compiler.Expr, r *scopeRange) {
	switch e := expr.(type) {
	case *compiler.Group:
		ix.expr(e.Expr, r)
	case *compiler.Binary:
		ix.expr(e.Left, r)
		ix.expr(e.Right, r)
	case *compiler.ListLiteral:
		for _, el := range e.Elements {
			ix.expr(el, r)
		}
	case *compiler.Access:
		if e.Offset != nil {
			ix.expr(e.Offset, r)
		}
		if e.Variable == nil {
			return
		}
		// Parameters have no node of their own; they resolve to the
		// function that declares them.
		if _, known := ix.declarations[e.Variable]; !known && r != nil && isParameter(r.fn, e.Name) {
			ix.declarations[e.Variable] = r.fn.Span()
		}
		ix.occurrences = append(ix.occurrences, occurrence{span: e.Span(), name: e.Name, variable: e.Variable})
	case *compiler.Call:
		for _, arg := range e.Arguments {
			ix.expr(arg, r)
		}
		if e.Function != nil {
			ix.occurrences = append(ix.occurrences, occurrence{span: e.Span(), name: e.Name, function: e.Function})
		}
	}
}

func isParameter(fn *compiler.Function, name string) bool {
	for _, p := range fn.Parameters {
		if p == name {
			return true
		}
	}
	return false
}

// at returns the innermost occurrence whose span contains offset.
func (ix *index) at(offset int) (occurrence, bool) {
	var best occurrence
	found := false
	for _, o := range ix.occurrences {
		if !o.span.Contains(offset) {
			continue
		}
		if !found || width(o.span) < width(best.span) {
			best, found = o, true
		}
	}
	return best, found
}

// uses returns every occurrence of binding, declaration included, in
// source order.
func (ix *index) uses(binding any) []occurrence {
	var out []occurrence
	for _, o := range ix.occurrences {
		if o.binding() == binding {
			out = append(out, o)
		}
	}
	sortOccurrences(out)
	return out
}

// enclosing returns the function whose span contains offset.
func (ix *index) enclosing(offset int) *scopeRange {
	for i := range ix.functions {
		if ix.functions[i].span.Contains(offset) {
			return &ix.functions[i]
		}
	}
	return nil
}

func width(s compiler.Span) int {
	return s.End.Offset - s.Start.Offset
}

func sortOccurrences(occs []occurrence) {
	sort.SliceStable(occs, func(i, j int) bool {
		return occs[i].span.Start.Offset < occs[j].span.Start.Offset
	})
}

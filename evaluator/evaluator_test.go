package evaluator

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"
)

// run compiles and interprets text, returning main's value and everything
// printed.
func run(t *testing.T, text string) (vm.Value, string, error) {
	t.Helper()
	var out bytes.Buffer
	builtins := vm.NewBuiltins(&out)
	src, err := compiler.Compile(text, builtins)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	v, err := Interpret(src, builtins)
	return v, out.String(), err
}

func mustRun(t *testing.T, text string) (vm.Value, string) {
	t.Helper()
	v, out, err := run(t, text)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	return v, out
}

// output runs statements inside main and returns what they printed.
func output(t *testing.T, decls, body string) string {
	t.Helper()
	_, out := mustRun(t, decls+" FUN main(): Integer DO "+body+" RETURN 0; END")
	return out
}

func wantInt(t *testing.T, v vm.Value, want int64) {
	t.Helper()
	i, ok := v.Int()
	if !ok || !i.IsInt64() || i.Int64() != want {
		t.Errorf("result = %v (%s), want %d", v, v.Kind(), want)
	}
}

// ---------------------------------------------------------------------------
// Whole programs
// ---------------------------------------------------------------------------

func TestEndToEndSample(t *testing.T) {
	v, _ := mustRun(t, "VAL x = 5; FUN main() DO RETURN x; END")
	wantInt(t, v, 5)
}

func TestListSlotAssignment(t *testing.T) {
	v, _ := mustRun(t, "LIST nums = [1,2,3]; FUN main() DO nums[1] = 9; RETURN nums[1]; END")
	wantInt(t, v, 9)
}

func TestMutableGlobal(t *testing.T) {
	v, _ := mustRun(t, "VAR x = 1; FUN main() DO x = 2; RETURN x; END")
	wantInt(t, v, 2)
}

func TestRecursion(t *testing.T) {
	v, _ := mustRun(t, `
FUN fact(n: Integer): Integer DO
  IF n < 2 DO RETURN 1; END
  RETURN n * fact(n - 1);
END
FUN main(): Integer DO RETURN fact(10); END`)
	wantInt(t, v, 3628800)
}

func TestGlobalsInitializeInOrder(t *testing.T) {
	v, _ := mustRun(t, "VAL a = 2; VAL b = a * 3; FUN main() DO RETURN b; END")
	wantInt(t, v, 6)
}

func TestFunctionsShareModuleScope(t *testing.T) {
	v, out := mustRun(t, `
VAR count = 0;
FUN bump() DO count = count + 1; END
FUN main(): Integer DO
  bump(); bump(); bump();
  print(count);
  RETURN count;
END`)
	wantInt(t, v, 3)
	if out != "3\n" {
		t.Errorf("output = %q", out)
	}
}

func TestReturnUnwindsLoops(t *testing.T) {
	v, out := mustRun(t, `
FUN find(target: Integer): Integer DO
  LET i = 0;
  WHILE TRUE DO
    IF i == target DO RETURN i * 10; END
    i = i + 1;
  END
  RETURN -1;
END
FUN main(): Integer DO
  print(find(4));
  RETURN find(2);
END`)
	wantInt(t, v, 20)
	if out != "40\n" {
		t.Errorf("output = %q", out)
	}
}

func TestFunctionWithoutReturnYieldsNil(t *testing.T) {
	out := output(t, "FUN noop() DO END", "print(noop());")
	if out != "null\n" {
		t.Errorf("output = %q", out)
	}
}

func TestAnyFunctionFallingOffYieldsNil(t *testing.T) {
	out := output(t, "FUN pick(b: Boolean): Any DO IF b DO RETURN 1; END END", "print(pick(TRUE)); print(pick(FALSE));")
	if out != "1\nnull\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTypedFunctionMustReturn(t *testing.T) {
	for _, text := range []string{
		"FUN main(): Integer DO END",
		"FUN main() DO IF FALSE DO RETURN 1; END END",
	} {
		_, err := compiler.Compile(text, vm.NewBuiltins(&bytes.Buffer{}))
		var ae *compiler.AnalysisError
		if !errors.As(err, &ae) {
			t.Errorf("%s: error = %v, want *AnalysisError", text, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func TestPrintFormats(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"NIL", "null"},
		{"TRUE", "true"},
		{"'c'", "c"},
		{`"text"`, "text"},
		{"1.50", "1.50"},
		{"-42", "-42"},
		{"nums", "[1, 2, 3]"},
	}
	for _, tc := range tests {
		if got := output(t, "LIST nums = [1, 2, 3];", "print("+tc.expr+");"); got != tc.want+"\n" {
			t.Errorf("print(%s) = %q, want %q", tc.expr, got, tc.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2 * 3", "7"},
		{"(1 + 2) * 3", "9"},
		{"7 / 2", "3"},
		{"-7 / 2", "-3"},
		{"2 ^ 10", "1024"},
		{"2 ^ 100", "1267650600228229401496703205376"},
		{"1.0 / 3.0", "0.3"},
		{"2.5 / 2.0", "1.2"},
		{"3.5 / 2.0", "1.8"},
		{"1.5 * 1.5", "2.25"},
		{"0.1 + 0.2", "0.3"},
		{"1.5 ^ 2", "2.25"},
		{`"n=" + 3`, "n=3"},
		{`1.5 + "x"`, "1.5x"},
		{`'a' + "b"`, "ab"},
		{`"v: " + NIL`, "v: null"},
	}
	for _, tc := range tests {
		if got := output(t, "", "print("+tc.expr+");"); got != tc.want+"\n" {
			t.Errorf("%s = %q, want %q", tc.expr, got, tc.want)
		}
	}
}

func TestComparisons(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 < 2", "true"},
		{"2 > 3", "false"},
		{"'a' < 'b'", "true"},
		{`"abc" > "abd"`, "false"},
		{"1.10 == 1.1", "true"},
		{"1 != 1", "false"},
		{`"s" == "s"`, "true"},
		{"TRUE && FALSE", "false"},
		{"FALSE || TRUE", "true"},
	}
	for _, tc := range tests {
		if got := output(t, "", "print("+tc.expr+");"); got != tc.want+"\n" {
			t.Errorf("%s = %q, want %q", tc.expr, got, tc.want)
		}
	}
}

func TestShortCircuit(t *testing.T) {
	decls := `FUN loud(): Boolean DO print("evaluated"); RETURN TRUE; END`
	if out := output(t, decls, "IF FALSE && loud() DO END IF TRUE || loud() DO END"); out != "" {
		t.Errorf("right operand evaluated: %q", out)
	}
	if out := output(t, decls, "IF TRUE && loud() DO END IF FALSE || loud() DO END"); out != "evaluated\nevaluated\n" {
		t.Errorf("right operand skipped: %q", out)
	}
}

// ---------------------------------------------------------------------------
// Statements and scoping
// ---------------------------------------------------------------------------

func TestWhileBodyScope(t *testing.T) {
	out := output(t, "", "LET i = 0; WHILE i < 3 DO LET sq = i * i; print(sq); i = i + 1; END")
	if out != "0\n1\n4\n" {
		t.Errorf("output = %q", out)
	}
}

func TestShadowingLeavesOuterBinding(t *testing.T) {
	out := output(t, "VAR x = 1;", `IF TRUE DO LET x = "inner"; print(x); END print(x);`)
	if out != "inner\n1\n" {
		t.Errorf("output = %q", out)
	}
}

func TestIfElse(t *testing.T) {
	out := output(t, "", `IF 1 > 2 DO print("then"); ELSE print("else"); END`)
	if out != "else\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSwitch(t *testing.T) {
	tests := []struct {
		cond string
		want string
	}{
		{"'y'", "yes\n"},
		{"'n'", "no\n"},
		{"'?'", "other\n"},
	}
	for _, tc := range tests {
		out := output(t, "", "SWITCH "+tc.cond+` CASE 'y': print("yes"); CASE 'n': print("no"); DEFAULT: print("other"); END`)
		if out != tc.want {
			t.Errorf("SWITCH %s printed %q, want %q", tc.cond, out, tc.want)
		}
	}

	if out := output(t, "", `SWITCH 2.0 CASE 2.00: print("equal"); DEFAULT: print("default"); END`); out != "equal\n" {
		t.Errorf("decimal case printed %q", out)
	}
}

func TestSwitchConditionEvaluatedOnce(t *testing.T) {
	decls := `VAR calls = 0; FUN tick(): Integer DO calls = calls + 1; RETURN calls; END`
	out := output(t, decls, `SWITCH tick() CASE 5: print("five"); CASE 6: print("six"); DEFAULT: print(calls); END`)
	if out != "1\n" {
		t.Errorf("output = %q", out)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind vm.ErrorKind
	}{
		{"integer division by zero", "FUN main(): Integer DO RETURN 5 / 0; END", vm.DivisionByZero},
		{"decimal division by zero", "FUN main(): Integer DO print(1.0 / 0.0); RETURN 0; END", vm.DivisionByZero},
		{"negative integer exponent", "FUN main(): Integer DO RETURN 2 ^ -1; END", vm.NegativeExponent},
		{"index past end", "LIST nums = [1]; FUN main(): Integer DO RETURN nums[1]; END", vm.IndexOutOfRange},
		{"negative index", "LIST nums = [1]; FUN main(): Integer DO nums[-1] = 2; RETURN 0; END", vm.IndexOutOfRange},
		{"compare mixed kinds", "FUN f(a: Comparable, b: Comparable): Boolean DO RETURN a < b; END FUN main(): Integer DO print(f(1, \"s\")); RETURN 0; END", vm.TypeMismatch},
	}
	for _, tc := range tests {
		_, _, err := run(t, tc.text)
		if !errors.Is(err, &vm.RuntimeError{Kind: tc.kind}) {
			t.Errorf("%s: error = %v, want %s", tc.name, err, tc.kind)
		}
	}
}

func TestOutputBeforeFailureIsKept(t *testing.T) {
	_, out, err := run(t, `FUN main(): Integer DO print("before"); RETURN 1 / 0; END`)
	if err == nil || out != "before\n" {
		t.Errorf("output = %q, err = %v", out, err)
	}
}

func TestImmutableAssignmentAtRuntime(t *testing.T) {
	builtins := vm.NewBuiltins(&bytes.Buffer{})
	src, err := compiler.Compile("VAR x = 1; FUN main() DO x = 2; RETURN x; END", builtins)
	if err != nil {
		t.Fatal(err)
	}
	// Demote the binding after analysis; the interpreter still refuses.
	src.Globals[0].Variable.Mutable = false

	_, err = Interpret(src, builtins)
	if !errors.Is(err, &vm.RuntimeError{Kind: vm.ImmutableAssignment}) {
		t.Errorf("error = %v, want immutable assignment", err)
	}
}

func TestStackOverflow(t *testing.T) {
	builtins := vm.NewBuiltins(&bytes.Buffer{})
	src, err := compiler.Compile(`
FUN spin(n: Integer): Integer DO RETURN spin(n + 1); END
FUN main(): Integer DO RETURN spin(0); END`, builtins)
	if err != nil {
		t.Fatal(err)
	}
	in := New(builtins)
	in.MaxDepth = 50
	_, err = in.Run(src)
	if !errors.Is(err, &vm.RuntimeError{Kind: vm.StackOverflow}) {
		t.Errorf("error = %v, want stack overflow", err)
	}
}

func TestUnanalyzedTree(t *testing.T) {
	tokens, err := compiler.Lex("VAL x = 5; FUN main() DO RETURN x; END")
	if err != nil {
		t.Fatal(err)
	}
	src, err := compiler.Parse(tokens)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Interpret(src, vm.NewBuiltins(&bytes.Buffer{}))
	if !errors.Is(err, &vm.RuntimeError{Kind: vm.Unanalyzed}) {
		t.Errorf("error = %v, want Unanalyzed", err)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	var out bytes.Buffer
	builtins := vm.NewBuiltins(&out)
	src, err := compiler.Compile(`VAR n = 0; FUN main(): Integer DO n = n + 1; print(n); RETURN n; END`, builtins)
	if err != nil {
		t.Fatal(err)
	}
	in := New(builtins)
	for i := 0; i < 2; i++ {
		v, err := in.Run(src)
		if err != nil {
			t.Fatal(err)
		}
		wantInt(t, v, 1)
	}
	if out.String() != "1\n1\n" {
		t.Errorf("output = %q, globals leaked between runs", out.String())
	}
}

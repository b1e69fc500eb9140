package hash

import (
	"errors"
	"io"
	"testing"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"
)

const program = `
LIST primes: Integer = [2, 3, 5];
VAR total = 0;
VAL label = "sum";

FUN fib(n: Integer): Integer DO
  IF n < 2 DO RETURN n; END
  RETURN fib(n - 1) + fib(n - 2);
END

FUN main(): Integer DO
  LET i = 0;
  WHILE i < 3 DO
    total = total + primes[i];
    i = i + 1;
  END
  SWITCH total CASE 10: print(label); DEFAULT: print(1.50); END
  RETURN total;
END`

func mustCompile(t *testing.T, text string) *compiler.Source {
	t.Helper()
	src, err := compiler.Compile(text, vm.NewBuiltins(io.Discard))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return src
}

func mustHash(t *testing.T, src *compiler.Source) [32]byte {
	t.Helper()
	sum, err := HashSource(src)
	if err != nil {
		t.Fatalf("HashSource: %v", err)
	}
	return sum
}

func TestHashDeterministic(t *testing.T) {
	a := mustHash(t, mustCompile(t, program))
	b := mustHash(t, mustCompile(t, program))
	if a != b {
		t.Errorf("hashes differ: %s vs %s", Hex(a), Hex(b))
	}
}

func TestHashReanalysisIsIdempotent(t *testing.T) {
	src := mustCompile(t, program)
	before := mustHash(t, src)

	if err := compiler.Analyze(src, vm.NewBuiltins(io.Discard)); err != nil {
		t.Fatalf("re-analysis: %v", err)
	}
	if after := mustHash(t, src); after != before {
		t.Errorf("re-analysis changed the hash: %s -> %s", Hex(before), Hex(after))
	}
}

func TestHashIgnoresLayout(t *testing.T) {
	a := mustHash(t, mustCompile(t, "VAL x = 5; FUN main() DO RETURN x; END"))
	b := mustHash(t, mustCompile(t, "VAL x = 5;\n\nFUN main()\nDO\n    RETURN x;\nEND\n"))
	if a != b {
		t.Error("whitespace changed the hash")
	}
}

func TestHashDistinguishesPrograms(t *testing.T) {
	base := mustHash(t, mustCompile(t, "VAL x = 5; FUN main() DO RETURN x; END"))
	for _, other := range []string{
		"VAL x = 6; FUN main() DO RETURN x; END",
		"VAR x = 5; FUN main() DO RETURN x; END",
		"VAL y = 5; FUN main() DO RETURN y; END",
		"VAL x: Integer = 5; FUN main() DO RETURN x; END",
		"VAL x = 5; FUN main(): Integer DO RETURN x; END",
		"VAL x = 5; FUN main() DO RETURN (x + 0); END",
	} {
		if mustHash(t, mustCompile(t, other)) == base {
			t.Errorf("%q hashes like the base program", other)
		}
	}
}

func TestHashDecimalScale(t *testing.T) {
	a := mustHash(t, mustCompile(t, "VAL d = 1.5; FUN main(): Integer DO RETURN 0; END"))
	b := mustHash(t, mustCompile(t, "VAL d = 1.50; FUN main(): Integer DO RETURN 0; END"))
	if a == b {
		t.Error("1.5 and 1.50 should hash differently")
	}
}

func TestHashUnanalyzed(t *testing.T) {
	tokens, err := compiler.Lex("VAL x = 5; FUN main() DO RETURN x; END")
	if err != nil {
		t.Fatal(err)
	}
	src, err := compiler.Parse(tokens)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := HashSource(src); !errors.Is(err, &vm.RuntimeError{Kind: vm.Unanalyzed}) {
		t.Errorf("error = %v, want Unanalyzed", err)
	}
}

func TestHex(t *testing.T) {
	var sum [32]byte
	sum[0], sum[31] = 0xAB, 0x01
	got := Hex(sum)
	if len(got) != 64 || got[:2] != "ab" || got[62:] != "01" {
		t.Errorf("Hex = %s", got)
	}
}

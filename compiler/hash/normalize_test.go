package hash

import "testing"

func TestNormalizeShape(t *testing.T) {
	root, err := NormalizeSource(mustCompile(t, program))
	if err != nil {
		t.Fatal(err)
	}
	if root.Tag != TagSource || len(root.Children) != 5 {
		t.Fatalf("root = tag 0x%02X with %d children", root.Tag, len(root.Children))
	}

	primes := root.Children[0]
	if primes.Tag != TagGlobal || primes.Flags&FlagList == 0 || primes.Flags&FlagMutable != 0 {
		t.Errorf("primes = %+v", primes)
	}
	if primes.Binding != "primes: Integer" || primes.Children[0].Tag != TagList {
		t.Errorf("primes binding = %q", primes.Binding)
	}
	if total := root.Children[1]; total.Flags&FlagMutable == 0 || total.Flags&FlagAnnotated != 0 {
		t.Errorf("total = %+v", total)
	}

	fib := root.Children[3]
	if fib.Tag != TagFunction || fib.Binding != "fib(Integer) -> Integer" {
		t.Errorf("fib = %+v", fib)
	}
	if p := fib.Children[0]; p.Tag != TagParam || p.Text != "n" || p.Type != "Integer" {
		t.Errorf("fib parameter = %+v", p)
	}
	if body := fib.Children[1]; body.Tag != TagBlock || len(body.Children) != 2 {
		t.Errorf("fib body = %+v", body)
	}
}

func TestNormalizeLiterals(t *testing.T) {
	root, err := NormalizeSource(mustCompile(t, `
VAL a = NIL; VAL b = TRUE; VAL c = 'c'; VAL d = "d"; VAL e = -7; VAL f = 2.50;
FUN main(): Integer DO RETURN 0; END`))
	if err != nil {
		t.Fatal(err)
	}
	want := []struct {
		tag  byte
		text string
		typ  string
	}{
		{TagNilLiteral, "", "Nil"},
		{TagBoolLiteral, "true", "Boolean"},
		{TagCharLiteral, "c", "Character"},
		{TagStringLiteral, "d", "String"},
		{TagIntLiteral, "-7", "Integer"},
		{TagDecimalLiteral, "2.50", "Decimal"},
	}
	for i, w := range want {
		lit := root.Children[i].Children[0]
		if lit.Tag != w.tag || lit.Text != w.text || lit.Type != w.typ {
			t.Errorf("literal %d = %+v, want %+v", i, lit, w)
		}
	}
}

func TestNormalizeSwitchDefault(t *testing.T) {
	root, err := NormalizeSource(mustCompile(t, program))
	if err != nil {
		t.Fatal(err)
	}
	mainBody := root.Children[4].Children[0]
	sw := mainBody.Children[2]
	if sw.Tag != TagSwitch || len(sw.Children) != 3 {
		t.Fatalf("switch = %+v", sw)
	}
	if sw.Children[1].Flags&FlagDefault != 0 {
		t.Error("CASE arm flagged as default")
	}
	if sw.Children[2].Flags&FlagDefault == 0 {
		t.Error("DEFAULT arm not flagged")
	}
}

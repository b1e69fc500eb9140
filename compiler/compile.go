// Package compiler turns PLC source text into an analyzed tree and renders
// that tree as Java.
package compiler

import (
	"github.com/tliron/commonlog"

	"github.com/chazu/plc/vm"
)

var log = commonlog.GetLogger("plc.compiler")

// Compile runs lex, parse and analyze over text. The returned tree is fully
// annotated and ready for the evaluator or the generator.
func Compile(text string, builtins *vm.Scope) (*Source, error) {
	tokens, err := Lex(text)
	if err != nil {
		return nil, err
	}
	log.Debugf("lexed %d tokens", len(tokens))

	src, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	log.Debugf("parsed %d globals, %d functions", len(src.Globals), len(src.Functions))

	if err := Analyze(src, builtins); err != nil {
		return nil, err
	}
	log.Debugf("analysis complete")
	return src, nil
}

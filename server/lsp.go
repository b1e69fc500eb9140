// Package server implements the PLC language server.
package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/plc/compiler"
	"github.com/chazu/plc/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "plc-lsp"

var log = commonlog.GetLogger("plc.server")

// document is one open editor buffer and its latest analysis.
type document struct {
	text     string
	analysis *analysis
}

// LspServer bridges LSP editor features to the PLC pipeline via Worker.
type LspServer struct {
	worker *Worker

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP(version string) *LspServer {
	s := &LspServer{
		worker:  NewWorker(),
		docs:    make(map[string]*document),
		version: version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("%s %s initializing", lspName, s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.worker.Stop()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.update(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.update(ctx, params.TextDocument.URI, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// update re-analyzes a document on the worker and publishes diagnostics.
func (s *LspServer) update(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	result, err := s.worker.Do(func() any { return analyze(text) })
	if err != nil {
		log.Errorf("analysis of %s failed: %v", uri, err)
		return
	}
	a := result.(*analysis)

	s.mu.Lock()
	s.docs[string(uri)] = &document{text: text, analysis: a}
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics(a.err),
	})
}

func (s *LspServer) document(uri protocol.DocumentUri) (*document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[string(uri)]
	return doc, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(doc.text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	offset := offsetAt(doc.text, params.Position)

	result, err := s.worker.Do(func() any {
		return doc.analysis.complete(prefix, offset)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	doc, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(doc.text, params.Position)
	offset := offsetAt(doc.text, params.Position)

	result, err := s.worker.Do(func() any {
		return doc.analysis.hover(word, offset)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.(*protocol.Hover), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	doc, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	offset := offsetAt(doc.text, params.Position)
	result, err := s.worker.Do(func() any {
		return doc.analysis.definition(uri, offset)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	uri := params.TextDocument.URI
	doc, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	offset := offsetAt(doc.text, params.Position)
	result, err := s.worker.Do(func() any {
		return doc.analysis.references(uri, offset, params.Context.IncludeDeclaration)
	})
	if err != nil || result == nil {
		return nil, nil
	}
	return result.([]protocol.Location), nil
}

// --- Analysis-backed logic (called on worker goroutine) ---

func (a *analysis) complete(prefix string, offset int) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	seen := make(map[string]bool)
	add := func(label, detail string, kind protocol.CompletionItemKind) {
		if seen[label] || !strings.HasPrefix(strings.ToLower(label), strings.ToLower(prefix)) {
			return
		}
		seen[label] = true
		labelCopy, detailCopy := label, detail
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	// Locals of the function under the cursor, innermost first
	if r := a.index.enclosing(offset); r != nil {
		for i := len(r.locals) - 1; i >= 0; i-- {
			d := r.locals[i]
			if d.Span().Start.Offset < offset && d.Variable != nil {
				add(d.Name, describeVariable(d.Variable), protocol.CompletionItemKindVariable)
			}
		}
		if r.fn.Function != nil {
			for i, p := range r.fn.Parameters {
				add(p, p+": "+r.fn.Function.ParameterTypes[i].String(), protocol.CompletionItemKindVariable)
			}
		}
	}

	// Module scope, then builtins
	for sc := a.scope; sc != nil; sc = sc.Parent() {
		for _, v := range sc.Variables() {
			add(v.Name, describeVariable(v), protocol.CompletionItemKindVariable)
		}
		for _, fn := range sc.Functions() {
			add(fn.Name, fn.Signature(), protocol.CompletionItemKindFunction)
		}
	}

	for _, t := range vm.Types() {
		add(t.Name, "type", protocol.CompletionItemKindClass)
	}
	for _, k := range compiler.Keywords() {
		add(k, "keyword", protocol.CompletionItemKindKeyword)
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (a *analysis) hover(word string, offset int) *protocol.Hover {
	var b strings.Builder

	switch {
	case compiler.IsKeyword(word):
		fmt.Fprintf(&b, "**%s** (keyword)", word)
	case isTypeName(word):
		t, _ := vm.GetType(word)
		fmt.Fprintf(&b, "**%s** (type)\n\nJava: `%s`", t.Name, t.JvmName)
	default:
		o, ok := a.index.at(offset)
		if !ok {
			return nil
		}
		if o.variable != nil {
			fmt.Fprintf(&b, "```plc\n%s\n```", describeVariable(o.variable))
			if o.variable.JvmName != o.variable.Name {
				fmt.Fprintf(&b, "\n\nJava: `%s`", o.variable.JvmName)
			}
		} else {
			fmt.Fprintf(&b, "```plc\n%s\n```", o.function.Signature())
			fmt.Fprintf(&b, "\n\nJava: `%s`", o.function.JvmName)
		}
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func (a *analysis) definition(uri protocol.DocumentUri, offset int) []protocol.Location {
	o, ok := a.index.at(offset)
	if !ok {
		return nil
	}
	span, ok := a.index.declarations[o.binding()]
	if !ok {
		// Builtins have no source.
		return nil
	}
	return []protocol.Location{{URI: uri, Range: spanRange(span)}}
}

func (a *analysis) references(uri protocol.DocumentUri, offset int, includeDeclaration bool) []protocol.Location {
	o, ok := a.index.at(offset)
	if !ok {
		return nil
	}
	decl, hasDecl := a.index.declarations[o.binding()]

	var locations []protocol.Location
	for _, use := range a.index.uses(o.binding()) {
		if !includeDeclaration && hasDecl && use.span == decl {
			continue
		}
		locations = append(locations, protocol.Location{URI: uri, Range: spanRange(use.span)})
	}
	return locations
}

func describeVariable(v *vm.Variable) string {
	switch {
	case v.IsList:
		return fmt.Sprintf("LIST %s: %s", v.Name, v.Type)
	case v.Mutable:
		return fmt.Sprintf("VAR %s: %s", v.Name, v.Type)
	default:
		return fmt.Sprintf("VAL %s: %s", v.Name, v.Type)
	}
}

func isTypeName(word string) bool {
	_, err := vm.GetType(word)
	return err == nil
}

// --- Diagnostics ---

// diagnostics converts a pipeline error into at most one diagnostic.
func diagnostics(err error) []protocol.Diagnostic {
	if err == nil {
		return []protocol.Diagnostic{}
	}

	var (
		pos     compiler.Position
		message = err.Error()
		lexErr  *compiler.LexError
		parErr  *compiler.ParseError
		anaErr  *compiler.AnalysisError
	)
	switch {
	case errors.As(err, &lexErr):
		pos, message = lexErr.Pos, lexErr.Message
	case errors.As(err, &parErr):
		pos, message = parErr.Pos, parErr.Message
	case errors.As(err, &anaErr):
		pos = anaErr.Pos
		message = anaErr.Reason
		if anaErr.Err != nil {
			message += ": " + anaErr.Err.Error()
		}
	}

	start := toPosition(pos)
	end := start
	end.Character++
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}}
}

// --- Position helpers ---

// toPosition converts a 1-based compiler position to a 0-based LSP one.
func toPosition(p compiler.Position) protocol.Position {
	var pos protocol.Position
	if p.Line > 0 {
		pos.Line = protocol.UInteger(p.Line - 1)
	}
	if p.Column > 0 {
		pos.Character = protocol.UInteger(p.Column - 1)
	}
	return pos
}

func spanRange(s compiler.Span) protocol.Range {
	return protocol.Range{Start: toPosition(s.Start), End: toPosition(s.End)}
}

// offsetAt converts an LSP position to a rune offset into text. Positions
// past the end of a line clamp to the line's end.
func offsetAt(text string, pos protocol.Position) int {
	line, col, offset := 0, 0, 0
	for _, r := range text {
		if line == int(pos.Line) && (col == int(pos.Character) || r == '\n') {
			return offset
		}
		if r == '\n' {
			line++
			col = 0
		} else {
			col++
		}
		offset++
	}
	return offset
}

// --- Text extraction helpers ---

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '@'
}

// lineRunes returns the runes of line pos.Line and the cursor column clamped
// to it.
func lineRunes(text string, pos protocol.Position) ([]rune, int, bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return nil, 0, false
	}
	line := []rune(lines[pos.Line])
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	return line, col, true
}

// extractPrefix returns the name fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}

	// Walk backwards from cursor to find the start of the name
	start := col
	for start > 0 && isNameRune(line[start-1]) {
		start--
	}
	return string(line[start:col])
}

// extractWord returns the full name under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, col, ok := lineRunes(text, pos)
	if !ok {
		return ""
	}

	start := col
	for start > 0 && isNameRune(line[start-1]) {
		start--
	}
	end := col
	for end < len(line) && isNameRune(line[end]) {
		end++
	}
	return string(line[start:end])
}

func boolPtr(b bool) *bool {
	return &b
}


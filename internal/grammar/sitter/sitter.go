// Package sitter is a grammar backend that delegates parsing to a
// prebuilt tree-sitter language.
package sitter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	forest "github.com/alexaandru/go-sitter-forest"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/hoshi/internal/grammar"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/safeconv"
)

// BackendName is the document backend value handled here.
const BackendName = "sitter"

const (
	errorNodeType    = "ERROR"
	ctxCheckInterval = 1024
	maxEchoedText    = 32
)

var (
	errPoolType   = errors.New("sitter: pool returned unexpected type")
	errNoRootNode = errors.New("sitter: no root node")
)

// Backend compiles sitter documents.
type Backend struct{}

// New creates the backend.
func New() *Backend {
	return &Backend{}
}

// Name implements grammar.Backend.
func (*Backend) Name() string {
	return BackendName
}

// Compile implements grammar.Backend. The named language must be one the
// tree-sitter forest ships.
func (*Backend) Compile(_ context.Context, doc *grammar.Document, sink *diag.Handler) (grammar.Language, error) {
	lang := lookupLanguage(doc.Language)
	if lang == nil {
		sink.Add(diag.CategoryUnknownMacro, doc.LanguageOffset,
			"Unknown tree-sitter language",
			fmt.Sprintf("Unknown tree-sitter language %q", doc.Language))

		return nil, nil //nolint:nilnil // rejection is reported through sink.
	}

	compiled := &Language{
		name:      doc.Language,
		namedOnly: doc.NamedOnly,
	}
	compiled.parsers = sync.Pool{
		New: func() any {
			tsParser := sitter.NewParser()
			tsParser.SetLanguage(lang)

			return tsParser
		},
	}

	return compiled, nil
}

// lookupLanguage resolves a forest language, treating a panic inside the
// forest as an unknown language.
func lookupLanguage(name string) *sitter.Language {
	var lang *sitter.Language

	func() {
		defer func() {
			_ = recover() //nolint:errcheck // recover() returns any, not error
		}()

		lang = forest.GetLanguage(name)
	}()

	return lang
}

// Language is a compiled sitter grammar.
type Language struct {
	name      string
	namedOnly bool
	parsers   sync.Pool
}

// Backend implements grammar.Language.
func (*Language) Backend() string {
	return BackendName
}

// Kinds implements grammar.Language. Node kinds are discovered while
// parsing.
func (*Language) Kinds() []string {
	return nil
}

// Name returns the tree-sitter language name.
func (lang *Language) Name() string {
	return lang.name
}

// Parse implements grammar.Language. ERROR nodes are kept in the tree and
// reported as syntax errors; nodes the parser had to invent become absent
// children.
func (lang *Language) Parse(
	ctx context.Context, src *diag.Source, sink *diag.Handler, opts grammar.ParseOptions,
) (*ast.Node, error) {
	tsParser, ok := lang.parsers.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer lang.parsers.Put(tsParser)

	content := []byte(src.Text())

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("sitter parse %s: %w", lang.name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	conv := converter{
		content:   content,
		namedOnly: lang.namedOnly,
		sink:      sink,
		opts:      opts,
	}

	return conv.convert(ctx, root)
}

type converter struct {
	content   []byte
	namedOnly bool
	sink      *diag.Handler
	opts      grammar.ParseOptions
}

type frame struct {
	ts     sitter.Node
	parent *ast.Node
}

// convert copies the tree-sitter tree depth first without recursion.
func (conv *converter) convert(ctx context.Context, root sitter.Node) (*ast.Node, error) {
	out := conv.node(ctx, root)
	stack := []frame{{ts: root, parent: out}}

	for visited := 1; len(stack) > 0; visited++ {
		if visited%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("sitter convert: %w", err)
			}
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := conv.children(top.ts)
		if len(children) == 0 {
			continue
		}

		top.parent.Children = make([]*ast.Node, len(children))

		for idx := len(children) - 1; idx >= 0; idx-- {
			child := children[idx]

			if child.IsMissing() {
				conv.sink.Add(diag.CategorySyntax, safeconv.MustUintToInt64(child.StartByte()),
					"Missing token",
					fmt.Sprintf("Missing %s", child.Type()))

				continue
			}

			node := conv.node(ctx, child)
			top.parent.Children[idx] = node
			stack = append(stack, frame{ts: child, parent: node})
		}
	}

	return out, nil
}

func (conv *converter) children(ts sitter.Node) []sitter.Node {
	var out []sitter.Node

	if conv.namedOnly {
		for idx := range ts.NamedChildCount() {
			out = append(out, ts.NamedChild(idx))
		}

		return out
	}

	for idx := range ts.ChildCount() {
		out = append(out, ts.Child(idx))
	}

	return out
}

func (conv *converter) node(ctx context.Context, ts sitter.Node) *ast.Node {
	location := safeconv.MustUintToInt64(ts.StartByte())
	kindName := ts.Type()

	if kindName == errorNodeType {
		conv.sink.Add(diag.CategorySyntax, location, "Syntax error",
			fmt.Sprintf("Unexpected %q", clip(conv.text(ts))))
	}

	lexeme := ""
	if ts.ChildCount() == 0 {
		lexeme = conv.text(ts)
	}

	if conv.opts.Logger != nil && conv.opts.Debug.Has(boundary.DebugParseAction) {
		conv.opts.Logger.DebugContext(ctx, "parse node",
			"kind", kindName, "location", location)
	}

	return ast.New(kindName, lexeme, location)
}

func (conv *converter) text(ts sitter.Node) string {
	start := safeconv.MustUintToInt(ts.StartByte())
	end := safeconv.MustUintToInt(ts.EndByte())

	if end > len(conv.content) || start > end {
		return ""
	}

	return string(conv.content[start:end])
}

func clip(text string) string {
	if len(text) <= maxEchoedText {
		return text
	}

	return text[:maxEchoedText] + "..."
}

// Package hoshi is the host side of the boundary. A Parser owns one engine
// handle, unwraps every result into a Go error and decodes trees, kind
// tables and diagnostics into ordinary values.
package hoshi

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
)

// Failure classes, matched with errors.Is against errors returned by Parser.
var (
	ErrGrammar      = relay.ErrGrammar
	ErrSource       = relay.ErrSource
	ErrUnknown      = relay.ErrUnknown
	ErrUseAfterFree = relay.ErrUseAfterFree
)

// Option configures a Parser.
type Option func(*Parser)

// WithLayout sets the tree layout the engine encodes with.
func WithLayout(layout ast.Layout) Option {
	return func(p *Parser) {
		p.layout = layout
	}
}

// WithTreeLimits bounds decoded trees.
func WithTreeLimits(maxDepth, maxNodes int) Option {
	return func(p *Parser) {
		p.maxDepth = maxDepth
		p.maxNodes = maxNodes
	}
}

// Parser drives one engine handle. It is not safe for concurrent use; clone
// it to work from several goroutines.
type Parser struct {
	b        boundary.Boundary
	h        handle.Handle
	layout   ast.Layout
	maxDepth int
	maxNodes int
	codec    *ast.Codec
	kinds    *kind.Cache
}

// New allocates a fresh handle on b.
func New(ctx context.Context, b boundary.Boundary, opts ...Option) (*Parser, error) {
	h, err := b.NewHandle(ctx).Unwrap()
	if err != nil {
		return nil, err //nolint:wrapcheck // relay errors carry op and handle.
	}

	return newParser(b, h, opts...), nil
}

func newParser(b boundary.Boundary, h handle.Handle, opts ...Option) *Parser {
	p := &Parser{
		b:        b,
		h:        h,
		layout:   ast.LayoutEmbedded,
		maxDepth: ast.DefaultMaxDepth,
		maxNodes: ast.DefaultMaxNodes,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.codec = ast.NewCodec(p.layout, ast.WithMaxDepth(p.maxDepth), ast.WithMaxNodes(p.maxNodes))
	p.kinds = kind.NewCache(cacheSource{p: p})

	return p
}

// Run creates a Parser, passes it to fn and closes it on every exit path.
func Run(ctx context.Context, b boundary.Boundary, fn func(*Parser) error, opts ...Option) (err error) {
	p, err := New(ctx, b, opts...)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, p.Close(ctx))
	}()

	return fn(p)
}

// Handle returns the engine handle.
func (p *Parser) Handle() handle.Handle {
	return p.h
}

// Clone allocates a handle holding a copy of the compiled grammar and
// kind table. Parse results and diagnostics are not copied.
func (p *Parser) Clone(ctx context.Context) (*Parser, error) {
	h, err := p.b.CloneHandle(ctx, p.h).Unwrap()
	if err != nil {
		return nil, err //nolint:wrapcheck // relay errors carry op and handle.
	}

	dup := newParser(p.b, h, WithLayout(p.layout), WithTreeLimits(p.maxDepth, p.maxNodes))
	dup.kinds.Replace(p.kinds.Snapshot())

	return dup, nil
}

// Close destroys the handle. Closing twice fails with ErrUseAfterFree.
func (p *Parser) Close(ctx context.Context) error {
	return p.b.DestroyHandle(ctx, p.h).Err()
}

// Generate compiles grammar text, seeding the kind table from kinds when
// it is not nil. A rejected grammar returns an error matching ErrGrammar;
// its diagnostics stay available.
func (p *Parser) Generate(ctx context.Context, grammar string, kinds map[string]int, debug boundary.DebugFlags) error {
	err := p.b.Generate(ctx, p.h, grammar, kinds, debug).Err()
	if err != nil {
		p.kinds.Replace(kind.NewTable())

		return err
	}

	return p.RefreshKinds(ctx)
}

// Parse runs the compiled grammar over source. Rejected input returns an
// error matching ErrSource; its diagnostics stay available.
func (p *Parser) Parse(ctx context.Context, source string, debug boundary.DebugFlags) error {
	return p.b.Parse(ctx, p.h, source, debug).Err()
}

// AST fetches and decodes the last successful parse tree.
func (p *Parser) AST(ctx context.Context) (*ast.Node, error) {
	buf, err := p.b.EncodedTree(ctx, p.h).Unwrap()
	if err != nil {
		return nil, err //nolint:wrapcheck // relay errors carry op and handle.
	}

	var table *kind.Table

	if p.layout == ast.LayoutIncremental {
		// The parse may have interned kinds the cache has not seen.
		err = p.RefreshKinds(ctx)
		if err != nil {
			return nil, err
		}

		table = p.kinds.Snapshot()
	}

	root, embedded, err := p.codec.Decode(buf, table)
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}

	if p.layout == ast.LayoutEmbedded {
		p.kinds.Replace(embedded)
	}

	return root, nil
}

// Diagnostics fetches the diagnostic list in source-scan order.
func (p *Parser) Diagnostics(ctx context.Context) ([]diag.Record, error) {
	buf, err := p.b.EncodedDiagnostics(ctx, p.h).Unwrap()
	if err != nil {
		return nil, err //nolint:wrapcheck // relay errors carry op and handle.
	}

	records, err := diag.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}

	return records, nil
}

// ErrorCount returns the number of error diagnostics.
func (p *Parser) ErrorCount(ctx context.Context) (int, error) {
	return p.b.ErrorCount(ctx, p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// WarningCount returns the number of warning diagnostics.
func (p *Parser) WarningCount(ctx context.Context) (int, error) {
	return p.b.WarningCount(ctx, p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// AddError appends a diagnostic. An empty long message copies short.
func (p *Parser) AddError(ctx context.Context, category diag.Category, location int64, short, long string) error {
	return p.b.AddError(ctx, p.h, category, location, short, long).Err()
}

// AnnotatedSource renders source with the handle's diagnostics.
func (p *Parser) AnnotatedSource(ctx context.Context, source string, indent int) (string, error) {
	return p.b.AnnotatedSource(ctx, p.h, source, indent).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// ExportState serializes the compiled grammar and kind table.
func (p *Parser) ExportState(ctx context.Context) ([]byte, error) {
	return p.b.ExportState(ctx, p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// ImportState restores state produced by ExportState, then merges kinds.
func (p *Parser) ImportState(ctx context.Context, state []byte, kinds map[string]int) error {
	err := p.b.ImportState(ctx, p.h, state, kinds).Err()
	if err != nil {
		return err
	}

	return p.RefreshKinds(ctx)
}

// GrammarLoaded reports whether a compiled grammar is available.
func (p *Parser) GrammarLoaded(ctx context.Context) (bool, error) {
	return p.b.IsGrammarLoaded(ctx, p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// GrammarFailed reports whether the last generate was rejected.
func (p *Parser) GrammarFailed(ctx context.Context) (bool, error) {
	return p.b.IsGrammarFailed(ctx, p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// SourceLoaded reports whether a parse tree is available.
func (p *Parser) SourceLoaded(ctx context.Context) (bool, error) {
	return p.b.IsSourceLoaded(ctx, p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// SourceFailed reports whether the last parse was rejected.
func (p *Parser) SourceFailed(ctx context.Context) (bool, error) {
	return p.b.IsSourceFailed(ctx, p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

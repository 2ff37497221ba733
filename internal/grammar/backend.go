package grammar

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
)

// ParseOptions carries per-call settings into a backend.
type ParseOptions struct {
	Debug  boundary.DebugFlags
	Logger *slog.Logger
}

// Language is a compiled grammar. It is immutable and may be shared by
// any number of handles and goroutines.
type Language interface {
	// Backend names the backend that compiled the grammar.
	Backend() string
	// Kinds lists the node kinds the grammar declares, in declaration
	// order. Backends that discover kinds while parsing return nil.
	Kinds() []string
	// Parse builds a tree for src. Rejections are reported to sink;
	// the returned error is reserved for failures of the backend itself.
	Parse(ctx context.Context, src *diag.Source, sink *diag.Handler, opts ParseOptions) (*ast.Node, error)
}

// Backend compiles grammar documents of one kind.
type Backend interface {
	Name() string
	// Compile reports grammar problems to sink and returns nil when any
	// of them were errors.
	Compile(ctx context.Context, doc *Document, sink *diag.Handler) (Language, error)
}

// Registry dispatches documents to backends by name.
type Registry struct {
	backends map[string]Backend
}

// NewRegistry creates a registry over backends.
func NewRegistry(backends ...Backend) *Registry {
	reg := &Registry{backends: make(map[string]Backend, len(backends))}

	for _, backend := range backends {
		reg.backends[backend.Name()] = backend
	}

	return reg
}

// Names lists the registered backends.
func (reg *Registry) Names() []string {
	return slices.Sorted(maps.Keys(reg.backends))
}

// Compile parses, validates and compiles grammar text. Diagnostics about
// the text go to sink, whose source must be the grammar text. A nil
// Language with a nil error means the grammar was rejected.
func (reg *Registry) Compile(ctx context.Context, sink *diag.Handler) (Language, error) {
	doc := ParseDocument(sink.Source(), sink)
	if doc == nil {
		return nil, nil //nolint:nilnil // rejection is reported through sink.
	}

	backend, ok := reg.backends[doc.Backend]
	if !ok {
		sink.Add(diag.CategoryUnknownMacro, doc.BackendOffset,
			"Unknown grammar backend",
			fmt.Sprintf("Unknown grammar backend %q, expected one of: %s",
				doc.Backend, strings.Join(reg.Names(), ", ")))

		return nil, nil //nolint:nilnil // rejection is reported through sink.
	}

	lang, err := backend.Compile(ctx, doc, sink)
	if err != nil {
		return nil, fmt.Errorf("compile %s grammar: %w", doc.Backend, err)
	}

	if sink.ErrorCount() > 0 {
		return nil, nil //nolint:nilnil // rejection is reported through sink.
	}

	return lang, nil
}

// Package engine is the reference grammar engine behind the boundary. It
// keeps one resource per handle, compiles grammar documents through the
// registered backends and hands every result back through the relay.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/Sumatoshi-tech/hoshi/internal/grammar"
	"github.com/Sumatoshi-tech/hoshi/internal/grammar/lexicon"
	"github.com/Sumatoshi-tech/hoshi/internal/grammar/sitter"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
)

// stateVersion tags export_state buffers.
const stateVersion = 1

// Config holds parameters for creating an Engine.
type Config struct {
	// Layout is the tree layout used by EncodedTree.
	Layout       ast.Layout
	MaxTreeDepth int
	MaxTreeNodes int
	// MaxHandles bounds the number of live handles.
	MaxHandles int
	// Backends compile grammar documents. Empty means lexicon and sitter.
	Backends []grammar.Backend
	// Relay wraps every call. Nil means a relay that only logs to
	// slog.Default.
	Relay *relay.Relay
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Layout:       ast.LayoutEmbedded,
		MaxTreeDepth: ast.DefaultMaxDepth,
		MaxTreeNodes: ast.DefaultMaxNodes,
		MaxHandles:   handle.DefaultMaxSlots,
	}
}

// Engine implements boundary.Boundary. Distinct handles may be driven from
// different goroutines; calls on one handle must be serialized.
type Engine struct {
	handles  *handle.Registry[*resource]
	relay    *relay.Relay
	backends *grammar.Registry
	codec    *ast.Codec
	closed   atomic.Bool
}

var _ boundary.Boundary = (*Engine)(nil)

// ErrClosed is returned by Ready after Close.
var ErrClosed = errors.New("engine closed")

// New creates an engine. Close releases every handle it still holds.
func New(cfg Config) *Engine {
	defaults := DefaultConfig()

	if cfg.MaxTreeDepth <= 0 {
		cfg.MaxTreeDepth = defaults.MaxTreeDepth
	}

	if cfg.MaxTreeNodes <= 0 {
		cfg.MaxTreeNodes = defaults.MaxTreeNodes
	}

	if cfg.MaxHandles <= 0 {
		cfg.MaxHandles = defaults.MaxHandles
	}

	if len(cfg.Backends) == 0 {
		cfg.Backends = []grammar.Backend{lexicon.New(), sitter.New()}
	}

	if cfg.Relay == nil {
		cfg.Relay = relay.New()
	}

	return &Engine{
		handles:  handle.New[*resource](handle.WithMaxSlots(cfg.MaxHandles)),
		relay:    cfg.Relay,
		backends: grammar.NewRegistry(cfg.Backends...),
		codec: ast.NewCodec(cfg.Layout,
			ast.WithMaxDepth(cfg.MaxTreeDepth),
			ast.WithMaxNodes(cfg.MaxTreeNodes)),
	}
}

// Layout returns the tree layout of EncodedTree buffers.
func (eng *Engine) Layout() ast.Layout {
	return eng.codec.Layout()
}

// Backends lists the grammar backends the engine accepts.
func (eng *Engine) Backends() []string {
	return eng.backends.Names()
}

// Live returns the number of live handles.
func (eng *Engine) Live() int {
	return eng.handles.Live()
}

// Ready fails once the engine is closed. It serves as a readiness check.
func (eng *Engine) Ready(context.Context) error {
	if eng.closed.Load() {
		return ErrClosed
	}

	return nil
}

// Close destroys every live handle. Later calls fail with an
// unknown-error envelope.
func (eng *Engine) Close() error {
	if eng.closed.Swap(true) {
		return nil
	}

	ctx := context.Background()

	var errs []error

	for _, h := range eng.handles.Handles() {
		_, err := eng.handles.Destroy(h)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		eng.relay.Metrics().HandleDestroyed(ctx)
	}

	return errors.Join(errs...)
}

func (eng *Engine) logger() *slog.Logger {
	return eng.relay.Logger()
}

// resource resolves h for op and checks that its state is one of set.
func (eng *Engine) resource(op string, h handle.Handle, set stateSet) (*resource, error) {
	if eng.closed.Load() {
		return nil, relay.Unknownf("engine closed")
	}

	res, err := eng.handles.Get(h)
	if err != nil {
		return nil, err //nolint:wrapcheck // classified by the relay.
	}

	err = res.require(op, set)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (eng *Engine) progress(ctx context.Context, debug boundary.DebugFlags, msg string, args ...any) {
	if debug.Has(boundary.DebugProgress) {
		eng.logger().InfoContext(ctx, msg, args...)
	}
}

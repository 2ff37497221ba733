package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/hoshi/internal/grammar"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
	"github.com/Sumatoshi-tech/hoshi/pkg/wire"
)

// exportSizeHint is the initial export_state buffer capacity.
const exportSizeHint = 1024

// Generate implements boundary.Boundary. Whatever the handle held before is
// dropped. Grammar problems are recorded as diagnostics and reported as a
// grammar-error.
func (eng *Engine) Generate(
	ctx context.Context, h handle.Handle, text string, kinds map[string]int, debug boundary.DebugFlags,
) relay.Result[struct{}] {
	return relay.Invoke(ctx, eng.relay, boundary.OpGenerate, h, func(ctx context.Context) (struct{}, error) {
		res, err := eng.resource(boundary.OpGenerate, h, anyState)
		if err != nil {
			return struct{}{}, err
		}

		table, err := seedKinds(kinds)
		if err != nil {
			return struct{}{}, err
		}

		res.reset()

		return struct{}{}, eng.compile(ctx, res, text, table, debug)
	})
}

// compile loads grammar text into a reset resource.
func (eng *Engine) compile(
	ctx context.Context, res *resource, text string, table *kind.Table, debug boundary.DebugFlags,
) error {
	start := time.Now()
	sink := diag.NewHandler(diag.NewSource(text))

	res.grammarText = text
	res.diags = sink
	res.kinds = table

	lang, err := eng.backends.Compile(ctx, sink)
	if err != nil {
		res.state = StateGrammarBad

		return fmt.Errorf("generate: %w", err)
	}

	if lang == nil {
		res.state = StateGrammarBad

		return relay.Grammarf("grammar rejected: %s", errorSummary(sink))
	}

	err = internDeclared(table, lang)
	if err != nil {
		res.state = StateGrammarBad

		return err
	}

	res.lang = lang
	res.state = StateGrammarGood

	eng.progress(ctx, debug, "grammar compiled",
		"backend", lang.Backend(), "kinds", table.Len(),
		"warnings", sink.WarningCount(), "elapsed", time.Since(start))

	return nil
}

// Parse implements boundary.Boundary. The previous tree and diagnostics are
// dropped. Input the grammar rejects is reported as a source-error with
// the diagnostics left queryable.
func (eng *Engine) Parse(ctx context.Context, h handle.Handle, source string, debug boundary.DebugFlags) relay.Result[struct{}] {
	return relay.Invoke(ctx, eng.relay, boundary.OpParse, h, func(ctx context.Context) (struct{}, error) {
		res, err := eng.resource(boundary.OpParse, h, grammarStates)
		if err != nil {
			return struct{}{}, err
		}

		start := time.Now()
		sink := diag.NewHandler(diag.NewSource(source))

		res.tree = nil
		res.diags = sink

		root, err := res.lang.Parse(ctx, sink.Source(), sink, grammar.ParseOptions{
			Debug:  debug,
			Logger: eng.logger(),
		})
		if err != nil {
			res.state = StateSourceBad

			return struct{}{}, fmt.Errorf("parse: %w", err)
		}

		if sink.ErrorCount() > 0 {
			res.state = StateSourceBad

			return struct{}{}, relay.Sourcef("source rejected: %s", errorSummary(sink))
		}

		err = ast.Intern(root, res.kinds)
		if err != nil {
			res.state = StateSourceBad

			return struct{}{}, relay.Unknownf("parse: %v", err)
		}

		res.tree = root
		res.state = StateSourceGood

		eng.progress(ctx, debug, "source parsed",
			"nodes", root.Count(), "bytes", len(source), "elapsed", time.Since(start))

		return struct{}{}, nil
	})
}

// ExportState implements boundary.Boundary: the state version, the grammar
// text and the kind table.
func (eng *Engine) ExportState(ctx context.Context, h handle.Handle) relay.Result[[]byte] {
	return relay.Invoke(ctx, eng.relay, boundary.OpExportState, h, func(context.Context) ([]byte, error) {
		res, err := eng.resource(boundary.OpExportState, h, grammarStates)
		if err != nil {
			return nil, err
		}

		enc := wire.NewEncoder(exportSizeHint + len(res.grammarText))
		enc.Int(stateVersion).String(res.grammarText)
		res.kinds.AppendTo(enc)

		return enc.Bytes(), nil
	})
}

// ImportState implements boundary.Boundary. The grammar is recompiled, the
// exported kind table restored and kinds merged on top. A kind map that
// conflicts with the exported table fails before anything changes.
func (eng *Engine) ImportState(
	ctx context.Context, h handle.Handle, state []byte, kinds map[string]int,
) relay.Result[struct{}] {
	return relay.Invoke(ctx, eng.relay, boundary.OpImportState, h, func(ctx context.Context) (struct{}, error) {
		res, err := eng.resource(boundary.OpImportState, h, anyState)
		if err != nil {
			return struct{}{}, err
		}

		text, table, err := decodeState(state)
		if err != nil {
			return struct{}{}, err
		}

		err = table.Merge(kinds)
		if err != nil {
			return struct{}{}, relay.Unknownf("import kinds: %v", err)
		}

		res.reset()

		return struct{}{}, eng.compile(ctx, res, text, table, 0)
	})
}

func decodeState(state []byte) (string, *kind.Table, error) {
	dec := wire.NewDecoder(state)

	version, err := dec.Int()
	if err != nil {
		return "", nil, fmt.Errorf("import state: %w", err)
	}

	if version != stateVersion {
		return "", nil, relay.Unknownf("import state: unsupported version %d", version)
	}

	text, err := dec.String()
	if err != nil {
		return "", nil, fmt.Errorf("import state: %w", err)
	}

	table, err := kind.ReadFrom(dec)
	if err != nil {
		return "", nil, fmt.Errorf("import state: %w", err)
	}

	err = dec.Finish()
	if err != nil {
		return "", nil, fmt.Errorf("import state: %w", err)
	}

	return text, table, nil
}

package engine_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/hoshi/internal/engine"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
	"github.com/Sumatoshi-tech/hoshi/pkg/observability"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
)

const arithGrammar = `backend: lexicon
name: arith
root: Expr
tokens:
  - kind: Number
    pattern: '[0-9]+'
  - kind: Plus
    pattern: '\+'
    lexeme: false
  - kind: Paren
    pattern: '\('
    open: true
    lexeme: false
  - pattern: '\)'
    close: true
  - pattern: '\s+'
    skip: true
`

const wordGrammar = `backend: lexicon
root: Text
tokens:
  - kind: Word
    pattern: '[a-z]+'
  - pattern: ' +'
    skip: true
`

const badGrammar = "backend: lexicon\nroot: R\ntokens:\n  - kind: A\n    pattern: '[a-'\n"

func newEngine(t *testing.T, cfg engine.Config) *engine.Engine {
	t.Helper()

	eng := engine.New(cfg)
	t.Cleanup(func() { _ = eng.Close() })

	return eng
}

func mustHandle(t *testing.T, eng *engine.Engine) handle.Handle {
	t.Helper()

	h, err := eng.NewHandle(context.Background()).Unwrap()
	require.NoError(t, err)

	return h
}

func compiled(t *testing.T, eng *engine.Engine, text string) handle.Handle {
	t.Helper()

	h := mustHandle(t, eng)
	require.NoError(t, eng.Generate(context.Background(), h, text, nil, 0).Err())

	return h
}

func unwrap[T any](t *testing.T, res relay.Result[T]) T {
	t.Helper()

	value, err := res.Unwrap()
	require.NoError(t, err)

	return value
}

func TestEngine_GenerateAndParse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := compiled(t, eng, arithGrammar)

	assert.True(t, unwrap(t, eng.IsGrammarLoaded(ctx, h)))
	assert.False(t, unwrap(t, eng.IsSourceLoaded(ctx, h)))

	require.NoError(t, eng.Parse(ctx, h, "1 + (2)", 0).Err())
	assert.True(t, unwrap(t, eng.IsSourceLoaded(ctx, h)))
	assert.True(t, unwrap(t, eng.IsGrammarLoaded(ctx, h)))

	buf := unwrap(t, eng.EncodedTree(ctx, h))

	root, table, err := ast.NewCodec(ast.LayoutEmbedded).Decode(buf, nil)
	require.NoError(t, err)

	want := ast.New("Expr", "", 0,
		ast.New("Number", "1", 0),
		ast.New("Plus", "", 2),
		ast.New("Paren", "", 4,
			ast.New("Number", "2", 5),
		),
	)
	assert.True(t, ast.Equal(want, root), "got:\n%s", root)
	assert.Equal(t, map[string]int{"Expr": 0, "Number": 1, "Plus": 2, "Paren": 3}, table.Map())
}

func TestEngine_IncrementalLayout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := engine.DefaultConfig()
	cfg.Layout = ast.LayoutIncremental

	eng := newEngine(t, cfg)
	h := compiled(t, eng, arithGrammar)
	require.NoError(t, eng.Parse(ctx, h, "7", 0).Err())

	table, err := kind.Import(unwrap(t, eng.EncodedKindTable(ctx, h)))
	require.NoError(t, err)

	root, _, err := ast.NewCodec(ast.LayoutIncremental).Decode(unwrap(t, eng.EncodedTree(ctx, h)), table)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Number", root.Children[0].Kind)
	assert.Equal(t, "7", root.Children[0].Lexeme)
	assert.Equal(t, ast.LayoutIncremental, eng.Layout())
}

func TestEngine_SeededKinds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := mustHandle(t, eng)

	require.NoError(t, eng.Generate(ctx, h, arithGrammar, map[string]int{"Expr": 10}, 0).Err())

	assert.Equal(t, 10, unwrap(t, eng.Kind(ctx, h, "Expr")))
	assert.Equal(t, 11, unwrap(t, eng.Kind(ctx, h, "Number")))
	assert.Equal(t, kind.Absent, unwrap(t, eng.Kind(ctx, h, "Missing")))
}

func TestEngine_SeededKindsMustBeBijective(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := mustHandle(t, eng)

	err := eng.Generate(ctx, h, arithGrammar, map[string]int{"A": 1, "B": 1}, 0).Err()
	require.ErrorIs(t, err, relay.ErrUnknown)

	state, err := eng.HandleState(h)
	require.NoError(t, err)
	assert.Equal(t, engine.StateInvalid, state)
}

func TestEngine_SeededKindsStayInRange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := mustHandle(t, eng)

	err := eng.Generate(ctx, h, arithGrammar, map[string]int{"Big": math.MaxInt64}, 0).Err()
	require.ErrorIs(t, err, relay.ErrUnknown)

	state, err := eng.HandleState(h)
	require.NoError(t, err)
	assert.Equal(t, engine.StateInvalid, state)

	err = eng.Generate(ctx, h, arithGrammar, map[string]int{"Top": kind.MaxCode}, 0).Err()
	require.ErrorIs(t, err, relay.ErrUnknown)

	state, err = eng.HandleState(h)
	require.NoError(t, err)
	assert.Equal(t, engine.StateGrammarBad, state)

	require.NoError(t, eng.Generate(ctx, h, arithGrammar, map[string]int{"Big": kind.MaxCode - 10}, 0).Err())

	table, err := kind.Import(unwrap(t, eng.EncodedKindTable(ctx, h)))
	require.NoError(t, err)

	for _, name := range table.Names() {
		code, ok := table.Lookup(name)
		require.True(t, ok)
		assert.GreaterOrEqual(t, code, 0, name)
		assert.LessOrEqual(t, code, kind.MaxCode, name)
	}
}

func TestEngine_GrammarError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := mustHandle(t, eng)

	err := eng.Generate(ctx, h, badGrammar, nil, 0).Err()
	require.ErrorIs(t, err, relay.ErrGrammar)

	assert.True(t, unwrap(t, eng.IsGrammarFailed(ctx, h)))
	assert.False(t, unwrap(t, eng.IsGrammarLoaded(ctx, h)))
	assert.Equal(t, 1, unwrap(t, eng.ErrorCount(ctx, h)))

	records, err := diag.Decode(unwrap(t, eng.EncodedDiagnostics(ctx, h)))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "RegexConflict", records[0].Tag)
	assert.Equal(t, 4, records[0].Line)

	err = eng.Parse(ctx, h, "a", 0).Err()
	require.ErrorIs(t, err, relay.ErrUnknown)
	assert.Contains(t, err.Error(), "state error")

	err = eng.Kind(ctx, h, "A").Err()
	require.ErrorIs(t, err, relay.ErrUnknown)
}

func TestEngine_SourceErrorKeepsDiagnostics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := compiled(t, eng, arithGrammar)

	err := eng.Parse(ctx, h, "1 $", 0).Err()
	require.ErrorIs(t, err, relay.ErrSource)

	var relayErr *relay.Error
	require.ErrorAs(t, err, &relayErr)
	assert.Equal(t, relay.KindSource, relayErr.Kind)
	assert.Equal(t, h, relayErr.Handle)

	assert.True(t, unwrap(t, eng.IsSourceFailed(ctx, h)))
	assert.True(t, unwrap(t, eng.IsGrammarLoaded(ctx, h)))

	records, err := diag.Decode(unwrap(t, eng.EncodedDiagnostics(ctx, h)))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Lexical", records[0].Tag)
	assert.Equal(t, int64(2), records[0].Location)
	assert.Equal(t, 3, records[0].Column)

	err = eng.EncodedTree(ctx, h).Err()
	require.ErrorIs(t, err, relay.ErrUnknown)

	listing := unwrap(t, eng.AnnotatedSource(ctx, h, "1 $", 2))
	assert.Contains(t, listing, "      1  1 $")
	assert.Contains(t, listing, "Unexpected character")

	// A later good parse recovers the handle.
	require.NoError(t, eng.Parse(ctx, h, "1", 0).Err())
	assert.Equal(t, 0, unwrap(t, eng.ErrorCount(ctx, h)))
}

func TestEngine_CancelledParse(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, engine.DefaultConfig())
	h := compiled(t, eng, arithGrammar)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := eng.Parse(ctx, h, "1+2", 0).Err()
	require.ErrorIs(t, err, relay.ErrUnknown)

	state, err := eng.HandleState(h)
	require.NoError(t, err)
	assert.Equal(t, engine.StateSourceBad, state)

	require.NoError(t, eng.Parse(context.Background(), h, "1+2", 0).Err())
}

func TestEngine_CounterConsistency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := compiled(t, eng, arithGrammar)
	require.NoError(t, eng.Parse(ctx, h, "1 + 2\n3", 0).Err())

	adds := []struct {
		category diag.Category
		location int64
	}{
		{diag.CategorySyntax, 4},
		{diag.CategoryUnusedTerm, 0},
		{diag.CategoryWarning, diag.NoLocation},
		{diag.Category(99), 6},
		{diag.CategoryLexical, 1000},
	}

	for _, add := range adds {
		require.NoError(t, eng.AddError(ctx, h, add.category, add.location, "short", "").Err())
	}

	errs := unwrap(t, eng.ErrorCount(ctx, h))
	warns := unwrap(t, eng.WarningCount(ctx, h))

	records, err := diag.Decode(unwrap(t, eng.EncodedDiagnostics(ctx, h)))
	require.NoError(t, err)

	assert.Equal(t, 3, errs)
	assert.Equal(t, 2, warns)
	assert.Len(t, records, errs+warns)

	gotErrs, gotWarns := diag.Counts(records)
	assert.Equal(t, errs, gotErrs)
	assert.Equal(t, warns, gotWarns)

	for _, rec := range records {
		assert.Equal(t, "short", rec.Long)
	}

	assert.Equal(t, diag.NoLocation, records[0].Location)
	assert.Equal(t, "Unknown", records[3].Tag)
}

func TestEngine_CloneIndependence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := compiled(t, eng, arithGrammar)
	require.Error(t, eng.Parse(ctx, h, "$", 0).Err())

	dup := unwrap(t, eng.CloneHandle(ctx, h))
	require.NotEqual(t, h, dup)

	assert.True(t, unwrap(t, eng.IsGrammarLoaded(ctx, dup)))
	assert.False(t, unwrap(t, eng.IsSourceFailed(ctx, dup)))
	assert.Equal(t, 0, unwrap(t, eng.ErrorCount(ctx, dup)), "diagnostics are not cloned")

	code := unwrap(t, eng.KindForce(ctx, dup, "NewKind"))
	assert.Equal(t, 4, code)
	assert.Equal(t, kind.Absent, unwrap(t, eng.Kind(ctx, h, "NewKind")))

	unwrap(t, eng.KindForce(ctx, h, "OtherKind"))
	assert.Equal(t, kind.Absent, unwrap(t, eng.Kind(ctx, dup, "OtherKind")))

	require.NoError(t, eng.Parse(ctx, dup, "(1)", 0).Err())
	assert.True(t, unwrap(t, eng.IsSourceFailed(ctx, h)))
}

func TestEngine_CloneOfUncompiledHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := mustHandle(t, eng)
	unwrap(t, eng.KindForce(ctx, h, "Seed"))

	dup := unwrap(t, eng.CloneHandle(ctx, h))

	state, err := eng.HandleState(dup)
	require.NoError(t, err)
	assert.Equal(t, engine.StateInvalid, state)
	assert.Equal(t, 0, unwrap(t, eng.Kind(ctx, dup, "Seed")))
}

func TestEngine_UseAfterFree(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := compiled(t, eng, arithGrammar)

	require.NoError(t, eng.DestroyHandle(ctx, h).Err())

	calls := map[string]error{
		"destroy":     eng.DestroyHandle(ctx, h).Err(),
		"clone":       eng.CloneHandle(ctx, h).Err(),
		"loaded":      eng.IsGrammarLoaded(ctx, h).Err(),
		"generate":    eng.Generate(ctx, h, arithGrammar, nil, 0).Err(),
		"parse":       eng.Parse(ctx, h, "1", 0).Err(),
		"tree":        eng.EncodedTree(ctx, h).Err(),
		"kinds":       eng.EncodedKindTable(ctx, h).Err(),
		"kind":        eng.Kind(ctx, h, "Expr").Err(),
		"force":       eng.KindForce(ctx, h, "Expr").Err(),
		"add_error":   eng.AddError(ctx, h, diag.CategoryError, 0, "x", "").Err(),
		"errors":      eng.ErrorCount(ctx, h).Err(),
		"warnings":    eng.WarningCount(ctx, h).Err(),
		"diagnostics": eng.EncodedDiagnostics(ctx, h).Err(),
		"annotated":   eng.AnnotatedSource(ctx, h, "", 0).Err(),
		"export":      eng.ExportState(ctx, h).Err(),
		"import":      eng.ImportState(ctx, h, nil, nil).Err(),
	}

	for name, err := range calls {
		require.ErrorIs(t, err, relay.ErrUseAfterFree, name)
	}

	// The slot is reused under a new generation; the stale handle stays dead.
	fresh := mustHandle(t, eng)
	assert.Equal(t, h.Slot(), fresh.Slot())
	require.ErrorIs(t, eng.IsGrammarLoaded(ctx, h).Err(), relay.ErrUseAfterFree)
	assert.False(t, unwrap(t, eng.IsGrammarLoaded(ctx, fresh)))
}

func TestEngine_InvalidHandle(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, engine.DefaultConfig())

	err := eng.IsGrammarLoaded(context.Background(), handle.Invalid).Err()
	require.ErrorIs(t, err, relay.ErrUnknown)
}

func TestEngine_StateErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := mustHandle(t, eng)

	for name, err := range map[string]error{
		"parse":     eng.Parse(ctx, h, "1", 0).Err(),
		"tree":      eng.EncodedTree(ctx, h).Err(),
		"export":    eng.ExportState(ctx, h).Err(),
		"add_error": eng.AddError(ctx, h, diag.CategoryError, 0, "x", "").Err(),
		"errors":    eng.ErrorCount(ctx, h).Err(),
	} {
		require.ErrorIs(t, err, relay.ErrUnknown, name)
		assert.Contains(t, err.Error(), "state error", name)
	}

	assert.Equal(t, 0, unwrap(t, eng.KindForce(ctx, h, "Early")))
}

func TestEngine_ExportImport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	src := compiled(t, eng, arithGrammar)
	assert.Equal(t, 4, unwrap(t, eng.KindForce(ctx, src, "Extra")))

	state := unwrap(t, eng.ExportState(ctx, src))

	dst := mustHandle(t, eng)
	require.NoError(t, eng.ImportState(ctx, dst, state, map[string]int{"Late": 20}).Err())

	assert.True(t, unwrap(t, eng.IsGrammarLoaded(ctx, dst)))
	assert.Equal(t, 4, unwrap(t, eng.Kind(ctx, dst, "Extra")))
	assert.Equal(t, 20, unwrap(t, eng.Kind(ctx, dst, "Late")))
	assert.Equal(t, kind.Absent, unwrap(t, eng.Kind(ctx, src, "Late")))

	require.NoError(t, eng.Parse(ctx, dst, "1+2", 0).Err())

	again := unwrap(t, eng.ExportState(ctx, src))
	assert.Equal(t, state, again)
}

func TestEngine_ImportConflictChangesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	state := unwrap(t, eng.ExportState(ctx, compiled(t, eng, arithGrammar)))

	dst := compiled(t, eng, wordGrammar)

	err := eng.ImportState(ctx, dst, state, map[string]int{"Number": 0})
	require.ErrorIs(t, err.Err(), relay.ErrUnknown)

	assert.Equal(t, 1, unwrap(t, eng.Kind(ctx, dst, "Word")))
	require.NoError(t, eng.Parse(ctx, dst, "hello world", 0).Err())
}

func TestEngine_ImportCorrupt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := newEngine(t, engine.DefaultConfig())
	h := mustHandle(t, eng)

	for _, state := range [][]byte{nil, []byte("x"), []byte("2|g|0|"), []byte("1|g|0|junk")} {
		require.ErrorIs(t, eng.ImportState(ctx, h, state, nil).Err(), relay.ErrUnknown, "%q", state)
	}
}

func TestEngine_Exhaustion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := engine.DefaultConfig()
	cfg.MaxHandles = 2

	eng := newEngine(t, cfg)
	first := compiled(t, eng, arithGrammar)
	mustHandle(t, eng)

	require.ErrorIs(t, eng.NewHandle(ctx).Err(), relay.ErrUnknown)
	require.ErrorIs(t, eng.CloneHandle(ctx, first).Err(), relay.ErrUnknown)

	require.NoError(t, eng.DestroyHandle(ctx, first).Err())
	mustHandle(t, eng)
}

func TestEngine_Close(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	eng := engine.New(engine.DefaultConfig())
	h := compiled(t, eng, arithGrammar)
	mustHandle(t, eng)

	require.Equal(t, 2, eng.Live())
	require.NoError(t, eng.Close())
	assert.Equal(t, 0, eng.Live())
	require.NoError(t, eng.Close())

	require.ErrorIs(t, eng.NewHandle(ctx).Err(), relay.ErrUnknown)
	require.ErrorIs(t, eng.IsGrammarLoaded(ctx, h).Err(), relay.ErrUnknown)
}

func TestEngine_Backends(t *testing.T) {
	t.Parallel()

	eng := newEngine(t, engine.DefaultConfig())

	assert.Equal(t, []string{"lexicon", "sitter"}, eng.Backends())
}

func TestEngine_HandleMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	metrics, err := observability.NewBoundaryMetrics(meter)
	require.NoError(t, err)

	cfg := engine.DefaultConfig()
	cfg.Relay = relay.New(relay.WithMetrics(metrics))

	eng := newEngine(t, cfg)
	h := mustHandle(t, eng)
	unwrap(t, eng.CloneHandle(ctx, h))
	require.NoError(t, eng.DestroyHandle(ctx, h).Err())
	require.Error(t, eng.DestroyHandle(ctx, h).Err())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	assert.Equal(t, int64(1), sumOf(rm, observability.MetricHandlesLive))
	assert.Equal(t, int64(4), sumOf(rm, observability.MetricCallsTotal))
	assert.Equal(t, int64(1), sumOf(rm, observability.MetricFailuresTotal))
}

func sumOf(rm metricdata.ResourceMetrics, name string) int64 {
	var total int64

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}

			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}

	return total
}

func TestEngine_Ready(t *testing.T) {
	t.Parallel()

	eng := engine.New(engine.DefaultConfig())
	require.NoError(t, eng.Ready(context.Background()))

	require.NoError(t, eng.Close())
	require.ErrorIs(t, eng.Ready(context.Background()), engine.ErrClosed)
}

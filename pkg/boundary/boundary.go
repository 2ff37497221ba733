// Package boundary declares the operations a host can invoke on a grammar
// engine. Every operation returns a relay.Result: a value or exactly one
// exception envelope.
package boundary

import (
	"context"

	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
)

// Operation names, used for spans, metrics and error messages.
const (
	OpNewHandle          = "new_handle"
	OpCloneHandle        = "clone_handle"
	OpDestroyHandle      = "destroy_handle"
	OpIsGrammarLoaded    = "is_grammar_loaded"
	OpIsGrammarFailed    = "is_grammar_failed"
	OpIsSourceLoaded     = "is_source_loaded"
	OpIsSourceFailed     = "is_source_failed"
	OpGenerate           = "generate"
	OpParse              = "parse"
	OpEncodedTree        = "get_encoded_tree"
	OpEncodedKindTable   = "get_encoded_kind_table"
	OpKind               = "get_kind"
	OpKindForce          = "get_kind_force"
	OpAddError           = "add_error"
	OpErrorCount         = "get_error_count"
	OpWarningCount       = "get_warning_count"
	OpEncodedDiagnostics = "get_encoded_diagnostics"
	OpAnnotatedSource    = "get_annotated_source"
	OpExportState        = "export_state"
	OpImportState        = "import_state"
)

// Boundary is the engine side of the protocol. Calls on one handle must be
// serialized by the caller; distinct handles may be used concurrently.
// Structured payloads are returned as wire-encoded buffers.
//
// Calls are synchronous. The context carries the call span; an engine may
// also stop a long parse when it is cancelled, and the call then fails with
// an unknown-error and leaves the handle in the source-failed state.
type Boundary interface {
	// NewHandle allocates an empty resource.
	NewHandle(ctx context.Context) relay.Result[handle.Handle]
	// CloneHandle allocates a resource holding an independent copy of the
	// compiled grammar and kind table of h.
	CloneHandle(ctx context.Context, h handle.Handle) relay.Result[handle.Handle]
	// DestroyHandle releases h.
	DestroyHandle(ctx context.Context, h handle.Handle) relay.Result[struct{}]

	IsGrammarLoaded(ctx context.Context, h handle.Handle) relay.Result[bool]
	IsGrammarFailed(ctx context.Context, h handle.Handle) relay.Result[bool]
	IsSourceLoaded(ctx context.Context, h handle.Handle) relay.Result[bool]
	IsSourceFailed(ctx context.Context, h handle.Handle) relay.Result[bool]

	// Generate compiles grammar text, optionally seeding the kind table.
	Generate(ctx context.Context, h handle.Handle, grammar string, kinds map[string]int, debug DebugFlags) relay.Result[struct{}]
	// Parse runs the compiled grammar over source text.
	Parse(ctx context.Context, h handle.Handle, source string, debug DebugFlags) relay.Result[struct{}]

	// EncodedTree returns the last successful parse tree.
	EncodedTree(ctx context.Context, h handle.Handle) relay.Result[[]byte]
	// EncodedKindTable returns the exported kind table.
	EncodedKindTable(ctx context.Context, h handle.Handle) relay.Result[[]byte]
	// Kind returns the code of name, or kind.Absent.
	Kind(ctx context.Context, h handle.Handle, name string) relay.Result[int]
	// KindForce returns the code of name, allocating one if needed.
	KindForce(ctx context.Context, h handle.Handle, name string) relay.Result[int]

	// AddError appends a diagnostic. An empty long message copies short.
	AddError(ctx context.Context, h handle.Handle, category diag.Category, location int64, short, long string) relay.Result[struct{}]
	ErrorCount(ctx context.Context, h handle.Handle) relay.Result[int]
	WarningCount(ctx context.Context, h handle.Handle) relay.Result[int]
	// EncodedDiagnostics returns the diagnostic list in source-scan order.
	EncodedDiagnostics(ctx context.Context, h handle.Handle) relay.Result[[]byte]
	// AnnotatedSource renders source with the current diagnostics.
	AnnotatedSource(ctx context.Context, h handle.Handle, source string, indent int) relay.Result[string]

	// ExportState serializes the compiled grammar and kind table.
	ExportState(ctx context.Context, h handle.Handle) relay.Result[[]byte]
	// ImportState restores exported state, then merges kinds.
	ImportState(ctx context.Context, h handle.Handle, state []byte, kinds map[string]int) relay.Result[struct{}]
}

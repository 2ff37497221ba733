package engine

import (
	"fmt"

	"github.com/Sumatoshi-tech/hoshi/internal/grammar"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
)

// resource is the engine-side state behind one handle. Callers serialize
// access per handle, so it carries no lock of its own.
type resource struct {
	state       State
	grammarText string
	lang        grammar.Language
	kinds       *kind.Table
	tree        *ast.Node
	diags       *diag.Handler
}

func newResource() *resource {
	return &resource{
		state: StateInvalid,
		kinds: kind.NewTable(),
		diags: diag.NewHandler(nil),
	}
}

// require fails with a state error unless the resource is in one of set.
func (res *resource) require(op string, set stateSet) error {
	if set.has(res.state) {
		return nil
	}

	return relay.Unknownf("state error in %s: handle is %s", op, res.state)
}

// reset drops everything loaded so far.
func (res *resource) reset() {
	*res = *newResource()
}

// clone copies the compiled grammar and a deep copy of the kind table.
// The compiled language is immutable and shared. Parse results and
// diagnostics stay behind.
func (res *resource) clone() *resource {
	dup := newResource()

	if res.state.GrammarLoaded() {
		dup.state = StateGrammarGood
		dup.grammarText = res.grammarText
		dup.lang = res.lang
	}

	dup.kinds = res.kinds.Clone()

	return dup
}

// seedKinds builds the starting kind table from a caller map.
func seedKinds(kinds map[string]int) (*kind.Table, error) {
	table, err := kind.FromMap(kinds)
	if err != nil {
		return nil, relay.Unknownf("kind map: %v", err)
	}

	return table, nil
}

func internDeclared(table *kind.Table, lang grammar.Language) error {
	for _, name := range lang.Kinds() {
		_, err := table.Intern(name)
		if err != nil {
			return relay.Unknownf("kind map: %v", err)
		}
	}

	return nil
}

func errorSummary(sink *diag.Handler) string {
	return fmt.Sprintf("%d errors, %d warnings", sink.ErrorCount(), sink.WarningCount())
}

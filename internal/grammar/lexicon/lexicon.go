// Package lexicon is a grammar backend built from ordered regular
// expression token rules. Tokens become children of the node of the
// innermost open group, so bracket-like tokens produce nested trees.
package lexicon

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/Sumatoshi-tech/hoshi/internal/grammar"
	"github.com/Sumatoshi-tech/hoshi/pkg/ast"
	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
)

// BackendName is the document backend value handled here.
const BackendName = "lexicon"

// ctxCheckInterval is the number of scanned tokens between context checks.
const ctxCheckInterval = 1024

type rule struct {
	kind   string
	re     *regexp.Regexp
	lexeme bool
	skip   bool
	open   bool
	close  bool
}

// Language is a compiled lexicon grammar.
type Language struct {
	root  string
	rules []rule
	kinds []string
}

// Backend compiles lexicon documents.
type Backend struct{}

// New creates the backend.
func New() *Backend {
	return &Backend{}
}

// Name implements grammar.Backend.
func (*Backend) Name() string {
	return BackendName
}

// Compile implements grammar.Backend.
func (*Backend) Compile(_ context.Context, doc *grammar.Document, sink *diag.Handler) (grammar.Language, error) {
	lang := &Language{root: doc.Root, kinds: []string{doc.Root}}
	owner := map[string]int{doc.Root: -1}
	patterns := make(map[string]int, len(doc.Tokens))
	opens, closes := 0, 0

	for idx := range doc.Tokens {
		spec := &doc.Tokens[idx]

		compiled, ok := compileRule(spec, sink)
		if !ok {
			continue
		}

		if first, dup := patterns[spec.Pattern]; dup {
			sink.Add(diag.CategoryUnusedTerm, spec.Offset,
				"Unreachable token",
				fmt.Sprintf("Token %d can never match: pattern %q is already used by token %d",
					idx+1, spec.Pattern, first+1))
		} else {
			patterns[spec.Pattern] = idx
		}

		if compiled.kind != "" {
			if prev, dup := owner[compiled.kind]; dup {
				reportDuplicateKind(sink, spec, prev)

				continue
			}

			owner[compiled.kind] = idx
			lang.kinds = append(lang.kinds, compiled.kind)
		}

		if compiled.open {
			opens++
		}

		if compiled.close {
			closes++
		}

		lang.rules = append(lang.rules, compiled)
	}

	switch {
	case opens > 0 && closes == 0:
		sink.Addf(diag.CategoryUndefinedNonterm, diag.NoLocation, "Grammar opens groups but has no close token")
	case closes > 0 && opens == 0:
		sink.Addf(diag.CategoryUselessRule, diag.NoLocation, "Close token without any open token")
	}

	return lang, nil
}

func compileRule(spec *grammar.TokenRule, sink *diag.Handler) (rule, bool) {
	if spec.Skip && (spec.Open || spec.Close) || spec.Open && spec.Close {
		sink.Addf(diag.CategoryDupTokenOption, spec.Offset, "Conflicting token options: skip, open and close are exclusive")

		return rule{}, false
	}

	if spec.Kind == "" && !spec.Skip && !spec.Close {
		sink.Addf(diag.CategoryError, spec.Offset, "Token needs a kind unless it is skipped or closes a group")

		return rule{}, false
	}

	re, err := regexp.Compile(`\A(?:` + spec.Pattern + `)`)
	if err != nil {
		sink.Add(diag.CategoryRegexConflict, spec.Offset, "Invalid token pattern", err.Error())

		return rule{}, false
	}

	if re.MatchString("") {
		sink.Add(diag.CategoryCharacterRange, spec.Offset,
			"Token pattern matches empty text",
			fmt.Sprintf("Token pattern %q matches empty text", spec.Pattern))

		return rule{}, false
	}

	kindName := spec.Kind
	if spec.Skip || spec.Close {
		kindName = ""
	}

	return rule{
		kind:   kindName,
		re:     re,
		lexeme: spec.KeepLexeme(),
		skip:   spec.Skip,
		open:   spec.Open,
		close:  spec.Close,
	}, true
}

func reportDuplicateKind(sink *diag.Handler, spec *grammar.TokenRule, prev int) {
	if prev < 0 {
		sink.Add(diag.CategoryDupAstItem, spec.Offset,
			"Token kind equals root kind",
			fmt.Sprintf("Token kind %q is already the root kind", spec.Kind))

		return
	}

	sink.Add(diag.CategoryDupToken, spec.Offset,
		"Duplicate token kind",
		fmt.Sprintf("Token kind %q is already declared by token %d", spec.Kind, prev+1))
}

// Backend implements grammar.Language.
func (*Language) Backend() string {
	return BackendName
}

// Kinds implements grammar.Language: the root kind, then token kinds in
// declaration order.
func (lang *Language) Kinds() []string {
	return lang.kinds
}

// Parse implements grammar.Language. Matching is longest-match with ties
// going to the earlier rule. Unmatched input is reported and skipped one
// rune at a time.
func (lang *Language) Parse(
	ctx context.Context, src *diag.Source, sink *diag.Handler, opts grammar.ParseOptions,
) (*ast.Node, error) {
	text := src.Text()
	root := ast.New(lang.root, "", 0)
	stack := []*ast.Node{root}
	traceTokens := opts.Logger != nil && opts.Debug.Has(boundary.DebugScanToken)

	for pos, scanned := 0, 0; pos < len(text); scanned++ {
		if scanned%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("lexicon parse: %w", err)
			}
		}

		best, width := lang.match(text[pos:])
		if best == nil {
			bad, size := utf8.DecodeRuneInString(text[pos:])
			sink.Add(diag.CategoryLexical, int64(pos), "Unexpected character",
				fmt.Sprintf("Unexpected character %q", bad))

			pos += size

			continue
		}

		lexeme := text[pos : pos+width]

		if traceTokens {
			opts.Logger.DebugContext(ctx, "scan token",
				"kind", best.kind, "lexeme", lexeme, "location", pos)
		}

		stack = lang.apply(best, lexeme, int64(pos), stack, sink)
		pos += width
	}

	for len(stack) > 1 {
		open := stack[len(stack)-1]
		sink.Add(diag.CategorySyntax, open.Location, "Unclosed group",
			fmt.Sprintf("Unclosed %s opened here", open.Kind))

		stack = stack[:len(stack)-1]
	}

	return root, nil
}

// match returns the longest matching rule at the start of rest.
func (lang *Language) match(rest string) (*rule, int) {
	var best *rule

	width := 0

	for idx := range lang.rules {
		loc := lang.rules[idx].re.FindStringIndex(rest)
		if loc != nil && loc[1] > width {
			best = &lang.rules[idx]
			width = loc[1]
		}
	}

	return best, width
}

func (lang *Language) apply(tok *rule, lexeme string, location int64, stack []*ast.Node, sink *diag.Handler) []*ast.Node {
	switch {
	case tok.skip:
		return stack
	case tok.close:
		if len(stack) == 1 {
			sink.Add(diag.CategorySyntax, location, "Unbalanced close",
				fmt.Sprintf("%q closes a group that was never opened", lexeme))

			return stack
		}

		return stack[:len(stack)-1]
	}

	if !tok.lexeme {
		lexeme = ""
	}

	node := ast.New(tok.kind, lexeme, location)
	parent := stack[len(stack)-1]
	parent.Children = append(parent.Children, node)

	if tok.open {
		stack = append(stack, node)
	}

	return stack
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/hoshi/pkg/hoshi"
	"github.com/Sumatoshi-tech/hoshi/pkg/snapshot"
)

var (
	// ErrGrammarSource indicates that not exactly one grammar source was given.
	ErrGrammarSource = errors.New("exactly one of --grammar, --snapshot or --language is required")
	// ErrUndetectedLanguage indicates enry could not classify a file.
	ErrUndetectedLanguage = errors.New("cannot detect language")
)

// enryToForest maps enry language names whose tree-sitter grammar is
// published under a different name. Other names are lowercased.
var enryToForest = map[string]string{ //nolint:gochecknoglobals // read-only lookup table.
	"C++":             "cpp",
	"C#":              "c_sharp",
	"Shell":           "bash",
	"Objective-C":     "objc",
	"Emacs Lisp":      "elisp",
	"Common Lisp":     "commonlisp",
	"Protocol Buffer": "proto",
	"Vim script":      "vim",
	"TSX":             "tsx",
	"Jsonnet":         "jsonnet",
}

// grammarSource selects where a parser's compiled grammar comes from.
type grammarSource struct {
	grammarPath  string
	snapshotPath string
	language     string
}

func (src *grammarSource) register(flags *pflag.FlagSet) {
	flags.StringVarP(&src.grammarPath, "grammar", "g", "", "grammar document (YAML)")
	flags.StringVarP(&src.snapshotPath, "snapshot", "s", "", "state snapshot written by 'hoshi generate -o'")
	flags.StringVarP(&src.language, "language", "l", "", "tree-sitter language name, e.g. go or python")
}

func (src *grammarSource) count() int {
	total := 0

	for _, value := range []string{src.grammarPath, src.snapshotPath, src.language} {
		if value != "" {
			total++
		}
	}

	return total
}

func (src *grammarSource) validate() error {
	if src.count() != 1 {
		return ErrGrammarSource
	}

	return nil
}

// label names the source in messages.
func (src *grammarSource) label() string {
	switch {
	case src.grammarPath != "":
		return src.grammarPath
	case src.snapshotPath != "":
		return src.snapshotPath
	default:
		return "language " + src.language
	}
}

// load compiles or restores the grammar on parser. Grammar diagnostics,
// including warnings of an accepted grammar, are written to errOut.
func (src *grammarSource) load(ctx context.Context, sess *session, parser *hoshi.Parser, errOut io.Writer) error {
	if src.snapshotPath != "" {
		state, err := snapshot.Load(src.snapshotPath)
		if err != nil {
			return err //nolint:wrapcheck // snapshot errors name the path.
		}

		err = parser.ImportState(ctx, state, nil)
		if err != nil {
			return fmt.Errorf("import %s: %w", src.snapshotPath, err)
		}

		return nil
	}

	text := sitterGrammar(src.language)

	if src.grammarPath != "" {
		var err error

		text, err = safeReadFile(src.grammarPath)
		if err != nil {
			return err
		}
	}

	genErr := parser.Generate(ctx, text, nil, sess.debug)
	if genErr != nil && !errors.Is(genErr, hoshi.ErrGrammar) {
		return fmt.Errorf("generate %s: %w", src.label(), genErr)
	}

	records, err := parser.Diagnostics(ctx)
	if err != nil {
		return fmt.Errorf("diagnostics: %w", err)
	}

	if len(records) > 0 {
		renderDiagnostics(errOut, src.label(), records)
	}

	if genErr != nil {
		return fmt.Errorf("%s: %w", src.label(), genErr)
	}

	return nil
}

// sitterGrammar is the grammar document selecting a tree-sitter language.
func sitterGrammar(language string) string {
	return "backend: sitter\n" +
		"name: " + strconv.Quote(language) + "\n" +
		"language: " + strconv.Quote(language) + "\n" +
		"named_only: true\n"
}

// detectLanguage picks a tree-sitter language for a file from its name,
// then from its content.
func detectLanguage(path, content string) (string, error) {
	name := enry.GetLanguage(filepath.Base(path), nil)
	if name == "" {
		name = enry.GetLanguage(filepath.Base(path), []byte(content))
	}

	if name == "" {
		return "", fmt.Errorf("%w: %s", ErrUndetectedLanguage, path)
	}

	if forest, ok := enryToForest[name]; ok {
		return forest, nil
	}

	return strings.ReplaceAll(strings.ToLower(name), " ", "_"), nil
}

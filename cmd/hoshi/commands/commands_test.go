package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hoshi/pkg/hoshi"
	"github.com/Sumatoshi-tech/hoshi/pkg/snapshot"
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

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// testGlobals points the commands at an empty config file, so the
// developer's own .hoshi.yaml never leaks into a test.
func testGlobals(t *testing.T) (*globalOptions, string) {
	t.Helper()

	dir := t.TempDir()

	return &globalOptions{configPath: writeFile(t, dir, ".hoshi.yaml", "")}, dir
}

func TestGenerate_SnapshotFeedsKindsAndParse(t *testing.T) {
	t.Parallel()

	global, dir := testGlobals(t)
	grammarPath := writeFile(t, dir, "arith.yaml", arithGrammar)
	snapPath := filepath.Join(dir, "arith"+snapshot.Extension)

	var out, errOut bytes.Buffer

	require.NoError(t, runGenerate(context.Background(), global, grammarPath, snapPath, &out, &errOut))
	assert.Contains(t, out.String(), "grammar compiled, 4 kinds")
	assert.Contains(t, out.String(), "snapshot "+snapPath)
	assert.Empty(t, errOut.String())

	out.Reset()

	require.NoError(t, runKinds(context.Background(), global, &grammarSource{snapshotPath: snapPath}, &out, &errOut))
	assert.Contains(t, out.String(), "Number")
	assert.Contains(t, out.String(), "Paren")
	assert.Contains(t, out.String(), "Total: 4 kinds")

	out.Reset()

	inputPath := writeFile(t, dir, "sum.txt", "3 + (4)")
	opts := &parseOptions{src: grammarSource{snapshotPath: snapPath}, format: formatTree, workers: 2}

	require.NoError(t, runParse(context.Background(), global, opts, []string{inputPath}, nil, &out, &errOut))
	assert.Contains(t, out.String(), "== "+inputPath+" (5 nodes")
	assert.Contains(t, out.String(), `Number "3" @0`)
	assert.Contains(t, out.String(), `Number "4" @5`)
}

func TestGenerate_RejectedGrammar(t *testing.T) {
	t.Parallel()

	global, dir := testGlobals(t)
	grammarPath := writeFile(t, dir, "bad.yaml", `backend: lexicon
root: Expr
tokens:
  - kind: Number
    pattern: '[0-9'
`)

	var out, errOut bytes.Buffer

	err := runGenerate(context.Background(), global, grammarPath, "", &out, &errOut)
	require.ErrorIs(t, err, hoshi.ErrGrammar)
	assert.Contains(t, errOut.String(), "RegexConflict")
	assert.Contains(t, errOut.String(), "1 errors")
	assert.Empty(t, out.String())
}

func TestParse_JSONFormat(t *testing.T) {
	t.Parallel()

	global, dir := testGlobals(t)
	grammarPath := writeFile(t, dir, "arith.yaml", arithGrammar)

	var files []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		files = append(files, writeFile(t, dir, name, "1 + 2"))
	}

	var out, errOut bytes.Buffer

	opts := &parseOptions{src: grammarSource{grammarPath: grammarPath}, format: formatJSON, workers: 3}
	require.NoError(t, runParse(context.Background(), global, opts, files, nil, &out, &errOut))

	var reports []fileReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &reports))
	require.Len(t, reports, len(files))

	for idx, rep := range reports {
		assert.Equal(t, files[idx], rep.File)
		assert.False(t, rep.Rejected)
		assert.Equal(t, 4, rep.Nodes)
		require.NotNil(t, rep.Tree)
		assert.Equal(t, "Expr", rep.Tree.Kind)
	}
}

func TestParse_RejectedInputIsReported(t *testing.T) {
	t.Parallel()

	global, dir := testGlobals(t)
	grammarPath := writeFile(t, dir, "arith.yaml", arithGrammar)
	good := writeFile(t, dir, "good.txt", "1 + 2")
	bad := writeFile(t, dir, "bad.txt", "3 + x")

	var out, errOut bytes.Buffer

	opts := &parseOptions{src: grammarSource{grammarPath: grammarPath}, format: formatNone, workers: 2}
	err := runParse(context.Background(), global, opts, []string{good, bad}, nil, &out, &errOut)

	require.ErrorIs(t, err, ErrInputsRejected)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, out.String(), good+": ok (4 nodes)")
	assert.Contains(t, out.String(), bad+": rejected (1 errors, 0 warnings)")
	assert.Contains(t, errOut.String(), "Unexpected character 'x'")
}

func TestParse_Stdin(t *testing.T) {
	t.Parallel()

	global, dir := testGlobals(t)
	grammarPath := writeFile(t, dir, "arith.yaml", arithGrammar)

	var out, errOut bytes.Buffer

	opts := &parseOptions{src: grammarSource{grammarPath: grammarPath}, format: formatNone}
	require.NoError(t, runParse(context.Background(), global, opts, nil, strings.NewReader("7 + 8"), &out, &errOut))
	assert.Contains(t, out.String(), "<stdin>: ok (4 nodes)")
}

func TestParse_TreeSitterLanguage(t *testing.T) {
	t.Parallel()

	global, dir := testGlobals(t)
	source := writeFile(t, dir, "main.go", "package main\n\nvar answer = 42\n")

	var out, errOut bytes.Buffer

	opts := &parseOptions{detect: true, format: formatTree, workers: 1}
	require.NoError(t, runParse(context.Background(), global, opts, []string{source}, nil, &out, &errOut))
	assert.Contains(t, out.String(), "source_file")
	assert.Contains(t, out.String(), `int_literal "42"`)
}

func TestParseOptions_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opts  parseOptions
		files []string
		want  error
	}{
		{"no source", parseOptions{format: formatTree}, nil, ErrGrammarSource},
		{"two sources", parseOptions{format: formatTree, src: grammarSource{grammarPath: "g", language: "go"}}, nil, ErrGrammarSource},
		{"bad format", parseOptions{format: "xml", src: grammarSource{grammarPath: "g"}}, nil, ErrUnsupportedFormat},
		{"detect with source", parseOptions{format: formatTree, detect: true, src: grammarSource{language: "go"}}, []string{"a.go"}, ErrDetectConflict},
		{"detect on stdin", parseOptions{format: formatTree, detect: true}, nil, ErrDetectStdin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.ErrorIs(t, tt.opts.validate(tt.files), tt.want)
		})
	}

	valid := parseOptions{format: formatJSON, src: grammarSource{snapshotPath: "s"}}
	require.NoError(t, valid.validate(nil))
}

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, resolveWorkers(3, 5))
	assert.Equal(t, 5, resolveWorkers(0, 5))
	assert.Positive(t, resolveWorkers(0, 0))
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"lib.py", "python"},
		{"engine.cpp", "cpp"},
		{"install.sh", "bash"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			got, err := detectLanguage(tt.path, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSitterGrammar(t *testing.T) {
	t.Parallel()

	text := sitterGrammar("go")

	assert.Contains(t, text, "backend: sitter\n")
	assert.Contains(t, text, `language: "go"`)
	assert.Contains(t, text, "named_only: true")
}

func TestReadInputs_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := readInputs([]string{dir}, nil)
	require.ErrorIs(t, err, ErrDirectoryPath)

	_, err = readInputs([]string{" "}, nil)
	require.ErrorIs(t, err, ErrEmptyPath)

	_, err = readInputs([]string{"a\x00b"}, nil)
	require.ErrorIs(t, err, ErrPathContainsNUL)
}

func TestSanitizeForTerminal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b", sanitizeForTerminal("a\nb\x1b"))
}

func TestRootCommand_Version(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "hoshi "))
	assert.Contains(t, out.String(), "commit:")
}

func TestRootCommand_KindsNeedsSource(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"kinds"})

	require.ErrorIs(t, root.Execute(), ErrGrammarSource)
}

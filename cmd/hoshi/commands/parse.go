package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/hoshi/pkg/hoshi"
)

// annotateIndent is the listing indent for rejected inputs.
const annotateIndent = 2

var (
	// ErrUnsupportedFormat indicates an unknown --format value.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrDetectConflict indicates --detect was combined with a grammar source.
	ErrDetectConflict = errors.New("--detect cannot be combined with --grammar, --snapshot or --language")
	// ErrDetectStdin indicates --detect was used without file arguments.
	ErrDetectStdin = errors.New("--detect needs file arguments")
	// ErrInputsRejected indicates at least one input failed to parse.
	ErrInputsRejected = errors.New("inputs rejected")
)

type parseOptions struct {
	src     grammarSource
	detect  bool
	workers int
	format  string
}

func newParseCommand(global *globalOptions) *cobra.Command {
	opts := &parseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [files...]",
		Short: "Parse source files",
		Long: `Parse source files with one compiled grammar. Each worker parses on
its own clone of the compiled handle.

Examples:
  hoshi parse -g arith.yaml input.txt           # Parse with a grammar document
  hoshi parse -s arith.hsnp *.txt -w 8          # Parse with a saved snapshot
  echo '1 + 2' | hoshi parse -g arith.yaml      # Parse from stdin
  hoshi parse -l go -f json main.go             # Use a tree-sitter language
  hoshi parse --detect -f none src/*.go lib/*.py`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.Context(), global, opts, args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	opts.src.register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.detect, "detect", false, "choose the tree-sitter language of each file with enry")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "number of parallel workers (default: parse.workers, then number of CPUs)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatTree, "output format (tree, json, none)")

	return cmd
}

func (opts *parseOptions) validate(files []string) error {
	switch opts.format {
	case formatTree, formatJSON, formatNone:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, opts.format)
	}

	if !opts.detect {
		return opts.src.validate()
	}

	if opts.src.count() > 0 {
		return ErrDetectConflict
	}

	if len(files) == 0 {
		return ErrDetectStdin
	}

	return nil
}

// parseGroup is a set of inputs sharing one grammar source.
type parseGroup struct {
	src     grammarSource
	indexes []int
}

func runParse(
	ctx context.Context, global *globalOptions, opts *parseOptions, files []string,
	stdin io.Reader, out, errOut io.Writer,
) (err error) {
	err = opts.validate(files)
	if err != nil {
		return err
	}

	inputs, err := readInputs(files, stdin)
	if err != nil {
		return err
	}

	reports := make([]fileReport, len(inputs))
	for idx, in := range inputs {
		reports[idx] = fileReport{File: in.name, Size: len(in.content)}
	}

	groups, err := groupInputs(opts, inputs, reports)
	if err != nil {
		return err
	}

	sess, err := openSession(global)
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, sess.Close(context.WithoutCancel(ctx))) }()

	workers := resolveWorkers(opts.workers, sess.cfg.Parse.Workers)

	for _, group := range groups {
		err = hoshi.Run(ctx, sess.engine, func(base *hoshi.Parser) error {
			loadErr := group.src.load(ctx, sess, base, errOut)
			if loadErr != nil {
				return loadErr
			}

			return parseAll(ctx, sess, base, inputs, group.indexes, workers, reports)
		}, sess.parserOpts...)
		if err != nil {
			return err
		}
	}

	err = renderReports(out, errOut, opts.format, reports)
	if err != nil {
		return err
	}

	rejected := 0

	for idx := range reports {
		if reports[idx].Rejected {
			rejected++
		}
	}

	if rejected > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInputsRejected, rejected, len(reports))
	}

	return nil
}

func resolveWorkers(flag, configured int) int {
	switch {
	case flag > 0:
		return flag
	case configured > 0:
		return configured
	default:
		return runtime.NumCPU()
	}
}

// groupInputs splits inputs by grammar source. Without --detect every
// input shares the flag source.
func groupInputs(opts *parseOptions, inputs []input, reports []fileReport) ([]parseGroup, error) {
	if !opts.detect {
		indexes := make([]int, len(inputs))
		for idx := range inputs {
			indexes[idx] = idx
		}

		return []parseGroup{{src: opts.src, indexes: indexes}}, nil
	}

	var groups []parseGroup

	byLanguage := make(map[string]int)

	for idx, in := range inputs {
		language, err := detectLanguage(in.name, in.content)
		if err != nil {
			return nil, err
		}

		reports[idx].Language = language

		pos, ok := byLanguage[language]
		if !ok {
			pos = len(groups)
			byLanguage[language] = pos
			groups = append(groups, parseGroup{src: grammarSource{language: language}})
		}

		groups[pos].indexes = append(groups[pos].indexes, idx)
	}

	return groups, nil
}

// parseAll parses the selected inputs on clones of base, one clone per worker.
func parseAll(
	ctx context.Context, sess *session, base *hoshi.Parser, inputs []input, indexes []int, workers int, reports []fileReport,
) (err error) {
	workers = max(1, min(workers, len(indexes)))

	clones := make([]*hoshi.Parser, 0, workers)

	defer func() {
		for _, clone := range clones {
			err = errors.Join(err, clone.Close(ctx))
		}
	}()

	// Clones are taken up front: calls on one handle must not overlap.
	for range workers {
		clone, cloneErr := base.Clone(ctx)
		if cloneErr != nil {
			return fmt.Errorf("clone handle: %w", cloneErr)
		}

		clones = append(clones, clone)
	}

	jobs := make(chan int)
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(jobs)

		for _, idx := range indexes {
			select {
			case jobs <- idx:
			case <-groupCtx.Done():
				return groupCtx.Err()
			}
		}

		return nil
	})

	for _, worker := range clones {
		group.Go(func() error {
			for idx := range jobs {
				parseErr := parseInput(groupCtx, sess, worker, inputs[idx], &reports[idx])
				if parseErr != nil {
					return parseErr
				}
			}

			return nil
		})
	}

	return group.Wait() //nolint:wrapcheck // worker errors are already wrapped.
}

// parseInput fills rep. A rejected input is recorded, not returned.
func parseInput(ctx context.Context, sess *session, parser *hoshi.Parser, in input, rep *fileReport) error {
	parseErr := parser.Parse(ctx, in.content, sess.debug)
	if parseErr != nil && !errors.Is(parseErr, hoshi.ErrSource) {
		return fmt.Errorf("parse %s: %w", in.name, parseErr)
	}

	rep.Rejected = parseErr != nil

	var err error

	rep.Errors, err = parser.ErrorCount(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", in.name, err)
	}

	rep.Warnings, err = parser.WarningCount(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", in.name, err)
	}

	if rep.Rejected || rep.Warnings > 0 {
		rep.Annotated, err = parser.AnnotatedSource(ctx, in.content, annotateIndent)
		if err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
	}

	if rep.Rejected {
		return nil
	}

	rep.Tree, err = parser.AST(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", in.name, err)
	}

	rep.Nodes = rep.Tree.Count()

	return nil
}

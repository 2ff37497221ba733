package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hoshi/pkg/hoshi"
	"github.com/Sumatoshi-tech/hoshi/pkg/snapshot"
)

func newGenerateCommand(global *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "generate GRAMMAR",
		Short: "Compile a grammar document",
		Long: `Compile a grammar document and report its diagnostics.

Examples:
  hoshi generate arith.yaml                 # Check a grammar
  hoshi generate arith.yaml -o arith.hsnp   # Save the compiled state`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), global, args[0], output, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write a state snapshot to this file")

	return cmd
}

func runGenerate(ctx context.Context, global *globalOptions, grammarPath, output string, out, errOut io.Writer) (err error) {
	sess, err := openSession(global)
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, sess.Close(context.WithoutCancel(ctx))) }()

	src := grammarSource{grammarPath: grammarPath}

	return hoshi.Run(ctx, sess.engine, func(parser *hoshi.Parser) error {
		loadErr := src.load(ctx, sess, parser, errOut)
		if loadErr != nil {
			return loadErr
		}

		fmt.Fprintf(out, "%s: grammar compiled, %d kinds\n", sanitizeForTerminal(grammarPath), parser.Kinds().Len())

		if output == "" {
			return nil
		}

		state, exportErr := parser.ExportState(ctx)
		if exportErr != nil {
			return fmt.Errorf("export state: %w", exportErr)
		}

		info, saveErr := snapshot.Save(output, state)
		if saveErr != nil {
			return saveErr //nolint:wrapcheck // snapshot errors carry context.
		}

		fmt.Fprintf(out, "snapshot %s: %s\n", sanitizeForTerminal(output), info)

		return nil
	}, sess.parserOpts...)
}

package commands

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/hoshi/pkg/hoshi"
)

func newKindsCommand(global *globalOptions) *cobra.Command {
	var src grammarSource

	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the kind table of a compiled grammar",
		Long: `List the kind codes assigned by a compiled grammar.

Examples:
  hoshi kinds -g arith.yaml
  hoshi kinds -s arith.hsnp
  hoshi kinds -l go`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKinds(cmd.Context(), global, &src, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	src.register(cmd.Flags())

	return cmd
}

func runKinds(ctx context.Context, global *globalOptions, src *grammarSource, out, errOut io.Writer) (err error) {
	err = src.validate()
	if err != nil {
		return err
	}

	sess, err := openSession(global)
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, sess.Close(context.WithoutCancel(ctx))) }()

	return hoshi.Run(ctx, sess.engine, func(parser *hoshi.Parser) error {
		loadErr := src.load(ctx, sess, parser, errOut)
		if loadErr != nil {
			return loadErr
		}

		renderKinds(out, parser.Kinds())

		return nil
	}, sess.parserOpts...)
}

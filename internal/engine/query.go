package engine

import (
	"context"

	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/diag"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
)

// EncodedTree implements boundary.Boundary.
func (eng *Engine) EncodedTree(ctx context.Context, h handle.Handle) relay.Result[[]byte] {
	return relay.Invoke(ctx, eng.relay, boundary.OpEncodedTree, h, func(context.Context) ([]byte, error) {
		res, err := eng.resource(boundary.OpEncodedTree, h, treeStates)
		if err != nil {
			return nil, err
		}

		return eng.codec.Encode(res.tree, res.kinds) //nolint:wrapcheck // classified by the relay.
	})
}

// EncodedKindTable implements boundary.Boundary.
func (eng *Engine) EncodedKindTable(ctx context.Context, h handle.Handle) relay.Result[[]byte] {
	return relay.Invoke(ctx, eng.relay, boundary.OpEncodedKindTable, h, func(context.Context) ([]byte, error) {
		res, err := eng.resource(boundary.OpEncodedKindTable, h, kindStates)
		if err != nil {
			return nil, err
		}

		return res.kinds.Export(), nil
	})
}

// Kind implements boundary.Boundary. Unknown names give kind.Absent.
func (eng *Engine) Kind(ctx context.Context, h handle.Handle, name string) relay.Result[int] {
	return relay.Invoke(ctx, eng.relay, boundary.OpKind, h, func(context.Context) (int, error) {
		res, err := eng.resource(boundary.OpKind, h, kindStates)
		if err != nil {
			return kind.Absent, err
		}

		return res.kinds.Code(name), nil
	})
}

// KindForce implements boundary.Boundary.
func (eng *Engine) KindForce(ctx context.Context, h handle.Handle, name string) relay.Result[int] {
	return relay.Invoke(ctx, eng.relay, boundary.OpKindForce, h, func(context.Context) (int, error) {
		res, err := eng.resource(boundary.OpKindForce, h, kindStates)
		if err != nil {
			return kind.Absent, err
		}

		code, internErr := res.kinds.Intern(name)
		if internErr != nil {
			return kind.Absent, relay.Unknownf("kind force: %v", internErr)
		}

		return code, nil
	})
}

// AddError implements boundary.Boundary. The location is resolved against
// the text the handle loaded last.
func (eng *Engine) AddError(
	ctx context.Context, h handle.Handle, category diag.Category, location int64, short, long string,
) relay.Result[struct{}] {
	return relay.Invoke(ctx, eng.relay, boundary.OpAddError, h, func(context.Context) (struct{}, error) {
		res, err := eng.resource(boundary.OpAddError, h, diagStates)
		if err != nil {
			return struct{}{}, err
		}

		res.diags.Add(category, location, short, long)

		return struct{}{}, nil
	})
}

// ErrorCount implements boundary.Boundary.
func (eng *Engine) ErrorCount(ctx context.Context, h handle.Handle) relay.Result[int] {
	return relay.Invoke(ctx, eng.relay, boundary.OpErrorCount, h, func(context.Context) (int, error) {
		res, err := eng.resource(boundary.OpErrorCount, h, diagStates)
		if err != nil {
			return 0, err
		}

		return res.diags.ErrorCount(), nil
	})
}

// WarningCount implements boundary.Boundary.
func (eng *Engine) WarningCount(ctx context.Context, h handle.Handle) relay.Result[int] {
	return relay.Invoke(ctx, eng.relay, boundary.OpWarningCount, h, func(context.Context) (int, error) {
		res, err := eng.resource(boundary.OpWarningCount, h, diagStates)
		if err != nil {
			return 0, err
		}

		return res.diags.WarningCount(), nil
	})
}

// EncodedDiagnostics implements boundary.Boundary.
func (eng *Engine) EncodedDiagnostics(ctx context.Context, h handle.Handle) relay.Result[[]byte] {
	return relay.Invoke(ctx, eng.relay, boundary.OpEncodedDiagnostics, h, func(context.Context) ([]byte, error) {
		res, err := eng.resource(boundary.OpEncodedDiagnostics, h, diagStates)
		if err != nil {
			return nil, err
		}

		return diag.Encode(res.diags.Records()), nil
	})
}

// AnnotatedSource implements boundary.Boundary.
func (eng *Engine) AnnotatedSource(ctx context.Context, h handle.Handle, source string, indent int) relay.Result[string] {
	return relay.Invoke(ctx, eng.relay, boundary.OpAnnotatedSource, h, func(context.Context) (string, error) {
		res, err := eng.resource(boundary.OpAnnotatedSource, h, diagStates)
		if err != nil {
			return "", err
		}

		return diag.AnnotatedString(diag.NewSource(source), res.diags.Records(), indent), nil
	})
}

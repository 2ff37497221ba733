package engine

import (
	"context"

	"github.com/Sumatoshi-tech/hoshi/pkg/boundary"
	"github.com/Sumatoshi-tech/hoshi/pkg/handle"
	"github.com/Sumatoshi-tech/hoshi/pkg/relay"
)

// NewHandle implements boundary.Boundary.
func (eng *Engine) NewHandle(ctx context.Context) relay.Result[handle.Handle] {
	return relay.Invoke(ctx, eng.relay, boundary.OpNewHandle, handle.Invalid,
		func(ctx context.Context) (handle.Handle, error) {
			if eng.closed.Load() {
				return handle.Invalid, relay.Unknownf("engine closed")
			}

			h, err := eng.handles.Create(newResource())
			if err != nil {
				return handle.Invalid, err //nolint:wrapcheck // classified by the relay.
			}

			eng.relay.Metrics().HandleCreated(ctx)

			return h, nil
		})
}

// CloneHandle implements boundary.Boundary. The clone gets the compiled
// grammar and its own copy of the kind table; parse results and
// diagnostics are not copied.
func (eng *Engine) CloneHandle(ctx context.Context, h handle.Handle) relay.Result[handle.Handle] {
	return relay.Invoke(ctx, eng.relay, boundary.OpCloneHandle, h,
		func(ctx context.Context) (handle.Handle, error) {
			if eng.closed.Load() {
				return handle.Invalid, relay.Unknownf("engine closed")
			}

			dup, err := eng.handles.Clone(h, func(res *resource) (*resource, error) {
				return res.clone(), nil
			})
			if err != nil {
				return handle.Invalid, err //nolint:wrapcheck // classified by the relay.
			}

			eng.relay.Metrics().HandleCreated(ctx)

			return dup, nil
		})
}

// DestroyHandle implements boundary.Boundary. A second destroy of the same
// handle fails with use-after-free.
func (eng *Engine) DestroyHandle(ctx context.Context, h handle.Handle) relay.Result[struct{}] {
	return relay.Invoke(ctx, eng.relay, boundary.OpDestroyHandle, h,
		func(ctx context.Context) (struct{}, error) {
			if eng.closed.Load() {
				return struct{}{}, relay.Unknownf("engine closed")
			}

			_, err := eng.handles.Destroy(h)
			if err != nil {
				return struct{}{}, err //nolint:wrapcheck // classified by the relay.
			}

			eng.relay.Metrics().HandleDestroyed(ctx)

			return struct{}{}, nil
		})
}

// IsGrammarLoaded implements boundary.Boundary.
func (eng *Engine) IsGrammarLoaded(ctx context.Context, h handle.Handle) relay.Result[bool] {
	return eng.predicate(ctx, boundary.OpIsGrammarLoaded, h, State.GrammarLoaded)
}

// IsGrammarFailed implements boundary.Boundary.
func (eng *Engine) IsGrammarFailed(ctx context.Context, h handle.Handle) relay.Result[bool] {
	return eng.predicate(ctx, boundary.OpIsGrammarFailed, h, func(st State) bool {
		return st == StateGrammarBad
	})
}

// IsSourceLoaded implements boundary.Boundary.
func (eng *Engine) IsSourceLoaded(ctx context.Context, h handle.Handle) relay.Result[bool] {
	return eng.predicate(ctx, boundary.OpIsSourceLoaded, h, func(st State) bool {
		return st == StateSourceGood
	})
}

// IsSourceFailed implements boundary.Boundary.
func (eng *Engine) IsSourceFailed(ctx context.Context, h handle.Handle) relay.Result[bool] {
	return eng.predicate(ctx, boundary.OpIsSourceFailed, h, func(st State) bool {
		return st == StateSourceBad
	})
}

// HandleState returns the lifecycle state behind h.
func (eng *Engine) HandleState(h handle.Handle) (State, error) {
	res, err := eng.handles.Get(h)
	if err != nil {
		return StateInvalid, err //nolint:wrapcheck // registry errors are already descriptive.
	}

	return res.state, nil
}

func (eng *Engine) predicate(ctx context.Context, op string, h handle.Handle, test func(State) bool) relay.Result[bool] {
	return relay.Invoke(ctx, eng.relay, op, h, func(context.Context) (bool, error) {
		res, err := eng.resource(op, h, anyState)
		if err != nil {
			return false, err
		}

		return test(res.state), nil
	})
}

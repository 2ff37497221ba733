package hoshi

import (
	"context"

	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
)

// cacheSource feeds the host kind cache from the handle.
type cacheSource struct {
	p *Parser
}

func (src cacheSource) KindForce(ctx context.Context, name string) (int, error) {
	return src.p.b.KindForce(ctx, src.p.h, name).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

func (src cacheSource) EncodedKindTable(ctx context.Context) ([]byte, error) {
	return src.p.b.EncodedKindTable(ctx, src.p.h).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// Kind returns the cached code for name without crossing the boundary.
func (p *Parser) Kind(name string) (int, bool) {
	return p.kinds.Lookup(name)
}

// LookupKind asks the engine for the code of name, returning kind.Absent
// when the engine does not know it. Nothing is allocated and the cache is
// left as is.
func (p *Parser) LookupKind(ctx context.Context, name string) (int, error) {
	return p.b.Kind(ctx, p.h, name).Unwrap() //nolint:wrapcheck // relay errors carry op and handle.
}

// KindName returns the cached name for code, or kind.Unknown.
func (p *Parser) KindName(code int) string {
	return p.kinds.Resolve(code)
}

// KindForce returns the code for name, asking the engine to allocate one
// and refreshing the cache when the name is new.
func (p *Parser) KindForce(ctx context.Context, name string) (int, error) {
	return p.kinds.Force(ctx, name) //nolint:wrapcheck // kind cache errors are already wrapped.
}

// RefreshKinds re-imports the engine's kind table into the cache.
func (p *Parser) RefreshKinds(ctx context.Context) error {
	return p.kinds.Refresh(ctx) //nolint:wrapcheck // kind cache errors are already wrapped.
}

// Kinds returns a copy of the cached kind table.
func (p *Parser) Kinds() *kind.Table {
	return p.kinds.Snapshot()
}

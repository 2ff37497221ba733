package kind

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrStaleRefresh is returned when a refreshed table does not contain the
// code the engine just allocated.
var ErrStaleRefresh = errors.New("kind: refreshed table does not contain forced kind")

// Source is the engine side of a dynamic kind table.
type Source interface {
	// KindForce returns the code for name, allocating one if needed.
	KindForce(ctx context.Context, name string) (int, error)
	// EncodedKindTable returns the exported form of the whole table.
	EncodedKindTable(ctx context.Context) ([]byte, error)
}

// Cache mirrors an engine-owned table on the host side. The local table is
// replaced wholesale on refresh, so readers never see a half-updated pair
// of maps.
type Cache struct {
	src   Source
	mu    sync.RWMutex
	table *Table
}

// NewCache creates an empty cache over src. Call Refresh to populate it.
func NewCache(src Source) *Cache {
	return &Cache{src: src, table: NewTable()}
}

// Refresh re-imports the full table from the engine.
func (cache *Cache) Refresh(ctx context.Context) error {
	buf, err := cache.src.EncodedKindTable(ctx)
	if err != nil {
		return fmt.Errorf("fetch kind table: %w", err)
	}

	table, err := Import(buf)
	if err != nil {
		return fmt.Errorf("import kind table: %w", err)
	}

	cache.Replace(table)

	return nil
}

// Replace installs table as the current mirror.
func (cache *Cache) Replace(table *Table) {
	cache.mu.Lock()
	cache.table = table
	cache.mu.Unlock()
}

// Lookup returns the cached code for name.
func (cache *Cache) Lookup(name string) (int, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	return cache.table.Lookup(name)
}

// Resolve returns the cached name for code, or Unknown.
func (cache *Cache) Resolve(code int) string {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	return cache.table.Resolve(code)
}

// Force returns the code for name. A name missing from the cache is
// allocated by the engine and the cache is refreshed before returning.
func (cache *Cache) Force(ctx context.Context, name string) (int, error) {
	if code, ok := cache.Lookup(name); ok {
		return code, nil
	}

	code, err := cache.src.KindForce(ctx, name)
	if err != nil {
		return Absent, fmt.Errorf("force kind %q: %w", name, err)
	}

	err = cache.Refresh(ctx)
	if err != nil {
		return Absent, err
	}

	if got, ok := cache.Lookup(name); !ok || got != code {
		return Absent, fmt.Errorf("%w: %q", ErrStaleRefresh, name)
	}

	return code, nil
}

// Snapshot returns a copy of the cached table.
func (cache *Cache) Snapshot() *Table {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	return cache.table.Clone()
}

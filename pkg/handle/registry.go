// Package handle provides a generation-tagged arena that hands out opaque
// integer handles for engine-side resources. A destroyed slot bumps its
// generation, so a stale handle is reported as use-after-free instead of
// silently aliasing whatever reuses the slot.
package handle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Sumatoshi-tech/hoshi/pkg/safeconv"
)

// Handle is an opaque resource reference: the slot generation in the high
// 32 bits and the slot index in the low 32 bits. The zero Handle is never
// issued.
type Handle uint64

// Invalid is the zero handle.
const Invalid Handle = 0

const (
	generationShift = 32
	slotMask        = 1<<generationShift - 1
	firstGeneration = 1
)

// DefaultMaxSlots caps the number of simultaneously live handles.
const DefaultMaxSlots = 1 << 16

// Sentinel errors reported by the registry.
var (
	ErrUseAfterFree  = errors.New("handle: use after free")
	ErrInvalidHandle = errors.New("handle: invalid handle")
	ErrExhausted     = errors.New("handle: registry exhausted")
)

func makeHandle(generation, slot uint32) Handle {
	return Handle(uint64(generation)<<generationShift | uint64(slot))
}

// Slot returns the slot index.
func (h Handle) Slot() uint32 {
	return uint32(h & slotMask)
}

// Generation returns the slot generation the handle was issued for.
func (h Handle) Generation() uint32 {
	return uint32(h >> generationShift)
}

// String implements fmt.Stringer.
func (h Handle) String() string {
	return fmt.Sprintf("%d:%d", h.Slot(), h.Generation())
}

type entry[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Registry owns resources addressed by handles. It is safe for concurrent
// use; the resources themselves are not protected by it.
type Registry[T any] struct {
	mu       sync.Mutex
	entries  []entry[T]
	free     []uint32
	live     int
	maxSlots int
}

// Option configures a Registry.
type Option func(*config)

type config struct {
	maxSlots int
}

// WithMaxSlots caps the number of live handles. Non-positive values keep
// the default.
func WithMaxSlots(limit int) Option {
	return func(cfg *config) {
		if limit > 0 {
			cfg.maxSlots = limit
		}
	}
}

// New creates an empty registry.
func New[T any](opts ...Option) *Registry[T] {
	cfg := config{maxSlots: DefaultMaxSlots}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Registry[T]{maxSlots: cfg.maxSlots}
}

// Create stores value in a free slot and returns its handle.
func (reg *Registry[T]) Create(value T) (Handle, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.live >= reg.maxSlots {
		return Invalid, fmt.Errorf("%w: %d live handles", ErrExhausted, reg.live)
	}

	var slot uint32

	if n := len(reg.free); n > 0 {
		slot = reg.free[n-1]
		reg.free = reg.free[:n-1]
	} else {
		slot = safeconv.MustIntToUint32(len(reg.entries))
		reg.entries = append(reg.entries, entry[T]{generation: firstGeneration})
	}

	ent := &reg.entries[slot]
	ent.value = value
	ent.live = true
	reg.live++

	return makeHandle(ent.generation, slot), nil
}

// lookup returns the live entry for h. The caller holds mu.
func (reg *Registry[T]) lookup(h Handle) (*entry[T], error) {
	if h == Invalid || int(h.Slot()) >= len(reg.entries) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}

	ent := &reg.entries[h.Slot()]
	if !ent.live || ent.generation != h.Generation() {
		return nil, fmt.Errorf("%w: %s", ErrUseAfterFree, h)
	}

	return ent, nil
}

// Get returns the resource behind h.
func (reg *Registry[T]) Get(h Handle) (T, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	ent, err := reg.lookup(h)
	if err != nil {
		var zero T

		return zero, err
	}

	return ent.value, nil
}

// Clone stores a copy of the resource behind h, produced by copyFn, under
// a new handle. copyFn runs without the registry lock held.
func (reg *Registry[T]) Clone(h Handle, copyFn func(T) (T, error)) (Handle, error) {
	value, err := reg.Get(h)
	if err != nil {
		return Invalid, err
	}

	dup, err := copyFn(value)
	if err != nil {
		return Invalid, fmt.Errorf("clone %s: %w", h, err)
	}

	return reg.Create(dup)
}

// Destroy releases the slot behind h and returns the resource it held.
// Destroying an already destroyed handle fails with ErrUseAfterFree.
func (reg *Registry[T]) Destroy(h Handle) (T, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var zero T

	ent, err := reg.lookup(h)
	if err != nil {
		return zero, err
	}

	value := ent.value
	ent.value = zero
	ent.live = false

	ent.generation++
	if ent.generation == 0 {
		ent.generation = firstGeneration
	}

	reg.free = append(reg.free, h.Slot())
	reg.live--

	return value, nil
}

// Live returns the number of live handles.
func (reg *Registry[T]) Live() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.live
}

// Handles returns every live handle in slot order.
func (reg *Registry[T]) Handles() []Handle {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	out := make([]Handle, 0, reg.live)

	for slot := range reg.entries {
		ent := &reg.entries[slot]
		if ent.live {
			out = append(out, makeHandle(ent.generation, safeconv.MustIntToUint32(slot)))
		}
	}

	return out
}

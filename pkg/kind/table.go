// Package kind provides the bidirectional interning table that maps node
// kind names to dense integer codes, and the host-side cache that mirrors an
// engine table across the boundary.
package kind

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
)

// Unknown is the display name for a code that is not in the table.
const Unknown = "Unknown"

// Absent is the code reported for a name that is not in the table.
const Absent = -1

// MaxCode is the largest code a table accepts or allocates. It fits an
// int on every platform.
const MaxCode = math.MaxInt32

// Sentinel errors for table construction and import.
var (
	ErrNotBijective  = errors.New("kind: table is not a bijection")
	ErrNegativeCode  = errors.New("kind: negative code")
	ErrDuplicateName = errors.New("kind: duplicate name")
	ErrCodeRange     = errors.New("kind: code out of range")
	ErrExhausted     = errors.New("kind: code space exhausted")
)

// Table is a bijection between kind names and non-negative codes.
// Both directions are replaced together on every mutation.
// A Table is not safe for concurrent mutation.
type Table struct {
	byName map[string]int
	byCode map[int]string
	next   int64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		byName: make(map[string]int),
		byCode: make(map[int]string),
	}
}

// FromMap builds a table from a name to code mapping, rejecting negative
// codes and codes shared by two names.
func FromMap(src map[string]int) (*Table, error) {
	table := NewTable()

	for _, name := range slices.Sorted(maps.Keys(src)) {
		err := table.Set(name, src[name])
		if err != nil {
			return nil, err
		}
	}

	return table, nil
}

// Set binds name to code. Rebinding a name to the code it already has is a
// no-op; any other collision breaks the bijection and is rejected.
func (tbl *Table) Set(name string, code int) error {
	if code < 0 {
		return fmt.Errorf("%w: %q=%d", ErrNegativeCode, name, code)
	}

	if code > MaxCode {
		return fmt.Errorf("%w: %q=%d exceeds %d", ErrCodeRange, name, code, MaxCode)
	}

	if have, ok := tbl.byName[name]; ok {
		if have == code {
			return nil
		}

		return fmt.Errorf("%w: %q bound to %d and %d", ErrNotBijective, name, have, code)
	}

	if owner, ok := tbl.byCode[code]; ok {
		return fmt.Errorf("%w: code %d bound to %q and %q", ErrNotBijective, code, owner, name)
	}

	tbl.byName[name] = code
	tbl.byCode[code] = name

	if int64(code) >= tbl.next {
		tbl.next = int64(code) + 1
	}

	return nil
}

// Lookup returns the code for name.
func (tbl *Table) Lookup(name string) (int, bool) {
	code, ok := tbl.byName[name]

	return code, ok
}

// Code returns the code for name, or Absent.
func (tbl *Table) Code(name string) int {
	code, ok := tbl.byName[name]
	if !ok {
		return Absent
	}

	return code
}

// Name returns the name bound to code.
func (tbl *Table) Name(code int) (string, bool) {
	name, ok := tbl.byCode[code]

	return name, ok
}

// Resolve returns the name bound to code, or Unknown.
func (tbl *Table) Resolve(code int) string {
	if name, ok := tbl.byCode[code]; ok {
		return name
	}

	return Unknown
}

// Intern returns the code for name, allocating the next free code when
// the name is new. Allocation fails once a code above MaxCode would be needed.
func (tbl *Table) Intern(name string) (int, error) {
	if code, ok := tbl.byName[name]; ok {
		return code, nil
	}

	if tbl.next > MaxCode {
		return Absent, fmt.Errorf("%w: cannot intern %q", ErrExhausted, name)
	}

	code := int(tbl.next) //nolint:gosec // bounded by MaxCode above.
	tbl.byName[name] = code
	tbl.byCode[code] = name
	tbl.next++

	return code, nil
}

// Len returns the number of entries.
func (tbl *Table) Len() int {
	return len(tbl.byName)
}

// Names returns every interned name in code order.
func (tbl *Table) Names() []string {
	codes := slices.Sorted(maps.Keys(tbl.byCode))
	names := make([]string, 0, len(codes))

	for _, code := range codes {
		names = append(names, tbl.byCode[code])
	}

	return names
}

// Map returns a copy of the name to code direction.
func (tbl *Table) Map() map[string]int {
	return maps.Clone(tbl.byName)
}

// Clone returns an independent deep copy.
func (tbl *Table) Clone() *Table {
	return &Table{
		byName: maps.Clone(tbl.byName),
		byCode: maps.Clone(tbl.byCode),
		next:   tbl.next,
	}
}

// Merge adds every entry of other, failing on the first conflicting binding.
// The table is left unchanged on failure.
func (tbl *Table) Merge(other map[string]int) error {
	staged := tbl.Clone()

	for _, name := range slices.Sorted(maps.Keys(other)) {
		err := staged.Set(name, other[name])
		if err != nil {
			return err
		}
	}

	*tbl = *staged

	return nil
}

// Equal reports whether both tables hold the same bindings.
func (tbl *Table) Equal(other *Table) bool {
	return maps.Equal(tbl.byName, other.byName)
}

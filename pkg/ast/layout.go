package ast

import (
	"errors"
	"fmt"
)

// Layout selects the field order and kind table placement of an encoded tree.
type Layout int

const (
	// LayoutEmbedded writes the kind table once at the head of the buffer,
	// then per node: code, lexeme, location, child count.
	LayoutEmbedded Layout = iota

	// LayoutIncremental writes only the tree, per node: child count, code,
	// location, lexeme. The kind table is exported separately.
	LayoutIncremental
)

const (
	layoutEmbeddedName    = "embedded"
	layoutIncrementalName = "incremental"
)

// ErrUnknownLayout is returned for an unrecognized layout name.
var ErrUnknownLayout = errors.New("ast: unknown tree layout")

// String returns the configuration name of the layout.
func (layout Layout) String() string {
	switch layout {
	case LayoutEmbedded:
		return layoutEmbeddedName
	case LayoutIncremental:
		return layoutIncrementalName
	default:
		return fmt.Sprintf("Layout(%d)", int(layout))
	}
}

// ParseLayout converts a configuration name to a Layout.
func ParseLayout(name string) (Layout, error) {
	switch name {
	case layoutEmbeddedName:
		return LayoutEmbedded, nil
	case layoutIncrementalName:
		return LayoutIncremental, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
}

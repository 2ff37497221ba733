package ast

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
	"github.com/Sumatoshi-tech/hoshi/pkg/wire"
)

const (
	// DefaultMaxDepth bounds the nesting accepted by Decode.
	DefaultMaxDepth = 10_000

	// DefaultMaxNodes bounds the number of nodes accepted by Encode and Decode.
	DefaultMaxNodes = 1 << 24

	// absentCount is the child count written for an absent subtree.
	absentCount = -1

	// bytesPerNodeHint sizes the encode buffer.
	bytesPerNodeHint = 16
)

// Sentinel errors reported by the tree codec.
var (
	ErrSentinelMismatch = errors.New("ast: absent-subtree sentinel mismatch")
	ErrTooDeep          = errors.New("ast: tree exceeds depth limit")
	ErrTooManyNodes     = errors.New("ast: tree exceeds node limit")
	ErrUnknownKind      = errors.New("ast: kind not in table")
	ErrNoTable          = errors.New("ast: incremental layout needs a kind table")
)

// Codec encodes and decodes trees in one layout.
type Codec struct {
	layout   Layout
	maxDepth int
	maxNodes int
}

// Option configures a Codec.
type Option func(*Codec)

// WithMaxDepth sets the deepest nesting Decode accepts.
func WithMaxDepth(depth int) Option {
	return func(codec *Codec) {
		if depth > 0 {
			codec.maxDepth = depth
		}
	}
}

// WithMaxNodes sets the largest tree Encode and Decode accept.
func WithMaxNodes(nodes int) Option {
	return func(codec *Codec) {
		if nodes > 0 {
			codec.maxNodes = nodes
		}
	}
}

// NewCodec creates a codec for layout.
func NewCodec(layout Layout, opts ...Option) *Codec {
	codec := &Codec{
		layout:   layout,
		maxDepth: DefaultMaxDepth,
		maxNodes: DefaultMaxNodes,
	}

	for _, opt := range opts {
		opt(codec)
	}

	return codec
}

// Layout returns the layout the codec reads and writes.
func (codec *Codec) Layout() Layout {
	return codec.layout
}

// Encode serializes root. Kind names are resolved to codes through table;
// with LayoutEmbedded the table itself is written first. A nil root encodes
// an absent tree.
func (codec *Codec) Encode(root *Node, table *kind.Table) ([]byte, error) {
	if table == nil {
		return nil, ErrNoTable
	}

	enc := wire.NewEncoder(bytesPerNodeHint)

	if codec.layout == LayoutEmbedded {
		table.AppendTo(enc)

		if root == nil {
			return enc.Bytes(), nil
		}
	}

	stack := make([]*Node, 0, defaultStackCap)
	stack = append(stack, root)
	written := 0

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if current == nil {
			codec.writeAbsent(enc)

			continue
		}

		written++
		if written > codec.maxNodes {
			return nil, fmt.Errorf("%w: %d", ErrTooManyNodes, codec.maxNodes)
		}

		code, ok := table.Lookup(current.Kind)
		if !ok {
			if current.Kind != kind.Unknown || current.Code < 0 {
				return nil, fmt.Errorf("%w: %q", ErrUnknownKind, current.Kind)
			}

			// Decoded from a code the table did not know; write it back as is.
			code = current.Code
		}

		codec.writeNode(enc, current, code)

		for idx := len(current.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, current.Children[idx])
		}
	}

	return enc.Bytes(), nil
}

func (codec *Codec) writeAbsent(enc *wire.Encoder) {
	if codec.layout == LayoutIncremental {
		enc.Int(absentCount)

		return
	}

	enc.Int(int64(kind.Absent)).String("").Int(NoLocation).Int(absentCount)
}

func (codec *Codec) writeNode(enc *wire.Encoder, current *Node, code int) {
	count := int64(len(current.Children))

	if codec.layout == LayoutIncremental {
		enc.Int(count).Int(int64(code)).Int(current.Location).String(current.Lexeme)

		return
	}

	enc.Int(int64(code)).String(current.Lexeme).Int(current.Location).Int(count)
}

// Decode reconstructs a tree. With LayoutEmbedded the kind table is read
// from the head of buf and returned; with LayoutIncremental table must be
// supplied and is returned unchanged. A code the table does not hold decodes
// to a node of kind kind.Unknown that keeps the code. On any failure no tree
// is returned.
func (codec *Codec) Decode(buf []byte, table *kind.Table) (*Node, *kind.Table, error) {
	dec := wire.NewDecoder(buf)

	if codec.layout == LayoutEmbedded {
		embedded, err := kind.ReadFrom(dec)
		if err != nil {
			return nil, nil, fmt.Errorf("decode tree kinds: %w", err)
		}

		table = embedded

		if dec.Done() {
			return nil, table, nil
		}
	}

	if table == nil {
		return nil, nil, ErrNoTable
	}

	root, err := codec.decodeNodes(dec, table)
	if err != nil {
		return nil, nil, err
	}

	err = dec.Finish()
	if err != nil {
		return nil, nil, fmt.Errorf("decode tree: %w", err)
	}

	return root, table, nil
}

type decodeFrame struct {
	node      *Node
	remaining int
}

func (codec *Codec) decodeNodes(dec *wire.Decoder, table *kind.Table) (*Node, error) {
	root, count, err := codec.readNode(dec, table)
	if err != nil {
		return nil, err
	}

	if root == nil {
		return nil, nil
	}

	decoded := 1
	stack := make([]decodeFrame, 0, defaultStackCap)
	stack = append(stack, decodeFrame{node: root, remaining: count})

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.remaining == 0 {
			stack = stack[:len(stack)-1]

			continue
		}

		top.remaining--

		child, childCount, readErr := codec.readNode(dec, table)
		if readErr != nil {
			return nil, readErr
		}

		top.node.Children = append(top.node.Children, child)

		if child == nil {
			continue
		}

		decoded++
		if decoded > codec.maxNodes {
			return nil, fmt.Errorf("%w: %d", ErrTooManyNodes, codec.maxNodes)
		}

		// The child sits one level below the frame on top of the stack.
		if len(stack)+1 > codec.maxDepth {
			return nil, fmt.Errorf("%w: %d", ErrTooDeep, codec.maxDepth)
		}

		if childCount == 0 {
			continue
		}

		stack = append(stack, decodeFrame{node: child, remaining: childCount})
	}

	return root, nil
}

// readNode reads one node header. A nil node with a zero count is an
// absent subtree.
func (codec *Codec) readNode(dec *wire.Decoder, table *kind.Table) (*Node, int, error) {
	if codec.layout == LayoutIncremental {
		return readIncremental(dec, table)
	}

	return readEmbedded(dec, table)
}

func readEmbedded(dec *wire.Decoder, table *kind.Table) (*Node, int, error) {
	start := dec.Pos()

	code, err := dec.Int()
	if err != nil {
		return nil, 0, fmt.Errorf("node code: %w", err)
	}

	lexeme, err := dec.String()
	if err != nil {
		return nil, 0, fmt.Errorf("node lexeme: %w", err)
	}

	location, err := dec.Int()
	if err != nil {
		return nil, 0, fmt.Errorf("node location: %w", err)
	}

	count, err := dec.Int()
	if err != nil {
		return nil, 0, fmt.Errorf("node child count: %w", err)
	}

	if count == absentCount {
		if code != int64(kind.Absent) {
			return nil, 0, fmt.Errorf("%w at offset %d", ErrSentinelMismatch, start)
		}

		return nil, 0, nil
	}

	return buildNode(dec, table, start, code, count, lexeme, location)
}

func readIncremental(dec *wire.Decoder, table *kind.Table) (*Node, int, error) {
	start := dec.Pos()

	count, err := dec.Int()
	if err != nil {
		return nil, 0, fmt.Errorf("node child count: %w", err)
	}

	if count == absentCount {
		return nil, 0, nil
	}

	if count < absentCount {
		return nil, 0, fmt.Errorf("%w at offset %d", ErrSentinelMismatch, start)
	}

	code, err := dec.Int()
	if err != nil {
		return nil, 0, fmt.Errorf("node code: %w", err)
	}

	location, err := dec.Int()
	if err != nil {
		return nil, 0, fmt.Errorf("node location: %w", err)
	}

	lexeme, err := dec.String()
	if err != nil {
		return nil, 0, fmt.Errorf("node lexeme: %w", err)
	}

	return buildNode(dec, table, start, code, count, lexeme, location)
}

func buildNode(
	dec *wire.Decoder, table *kind.Table, start int, code, count int64, lexeme string, location int64,
) (*Node, int, error) {
	if count < 0 || code < 0 {
		return nil, 0, fmt.Errorf("%w at offset %d", ErrSentinelMismatch, start)
	}

	// Every child needs at least two bytes, so a larger count cannot be honest.
	if count > int64(dec.Remaining()) {
		return nil, 0, fmt.Errorf("%w at offset %d: child count %d exceeds buffer",
			wire.ErrCorruptStream, start, count)
	}

	if code > kind.MaxCode {
		return nil, 0, fmt.Errorf("%w at offset %d: kind code %d out of range",
			wire.ErrCorruptStream, start, code)
	}

	return &Node{
		Kind:     table.Resolve(int(code)),
		Code:     int(code),
		Lexeme:   lexeme,
		Location: location,
		Children: make([]*Node, 0, count),
	}, int(count), nil
}

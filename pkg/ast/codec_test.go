package ast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
	"github.com/Sumatoshi-tech/hoshi/pkg/wire"
)

var layouts = []Layout{LayoutEmbedded, LayoutIncremental}

// mixedTree has depth 4 and mixes leaves, multi-child nodes, absent
// subtrees and an empty-children interior node.
func mixedTree() *Node {
	return New("Program", "", 0,
		New("Assign", "", 0,
			New("Ident", "x", 0),
			New("Sum", "", 4,
				New("Number", "3", 4),
				nil,
				New("Paren", "", 8,
					New("Number", "4", 9),
				),
			),
		),
		nil,
		New("Block", "", 12),
		New("Text", "a|b`c", NoLocation),
	)
}

func internedTable(t *testing.T, root *Node) *kind.Table {
	t.Helper()

	table := kind.NewTable()
	require.NoError(t, Intern(root, table))

	return table
}

func TestCodec_RoundTripMixedTree(t *testing.T) {
	t.Parallel()

	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			t.Parallel()

			tree := mixedTree()
			table := internedTable(t, tree)
			codec := NewCodec(layout)

			buf, err := codec.Encode(tree, table)
			require.NoError(t, err)

			got, gotTable, err := codec.Decode(buf, table.Clone())
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.True(t, Equal(tree, got), "decoded:\n%s", got)
			assert.True(t, table.Equal(gotTable))
			assert.GreaterOrEqual(t, got.Depth(), 3)
			assert.Nil(t, got.Children[1])
			assert.Empty(t, got.Children[2].Children)
			assert.Nil(t, got.Children[0].Children[1].Children[1])
		})
	}
}

func TestCodec_SumScenario(t *testing.T) {
	t.Parallel()

	for _, layout := range layouts {
		t.Run(layout.String(), func(t *testing.T) {
			t.Parallel()

			tree := New("Sum", "", 0, New("Number", "3", 0), New("Number", "4", 2))
			table := internedTable(t, tree)
			codec := NewCodec(layout)

			buf, err := codec.Encode(tree, table)
			require.NoError(t, err)

			got, _, err := codec.Decode(buf, table)
			require.NoError(t, err)

			assert.Equal(t, "Sum", got.Kind)
			assert.Empty(t, got.Lexeme)
			require.Len(t, got.Children, 2)
			assert.Equal(t, "Number", got.Children[0].Kind)
			assert.Equal(t, "3", got.Children[0].Lexeme)
			assert.Equal(t, "Number", got.Children[1].Kind)
			assert.Equal(t, "4", got.Children[1].Lexeme)
			assert.Equal(t, 3, got.Count())
		})
	}
}

func TestCodec_WireForm(t *testing.T) {
	t.Parallel()

	tree := New("Sum", "", 0, New("Number", "3", 0), nil)
	table, err := kind.FromMap(map[string]int{"Number": 1, "Sum": 0})
	require.NoError(t, err)

	embedded, err := NewCodec(LayoutEmbedded).Encode(tree, table)
	require.NoError(t, err)
	assert.Equal(t, "2|Number|1|Sum|0|"+"0||0|2|"+"1|3|0|0|"+"-1||-1|-1|", string(embedded))

	incremental, err := NewCodec(LayoutIncremental).Encode(tree, table)
	require.NoError(t, err)
	assert.Equal(t, "2|0|0||"+"0|1|0|3|"+"-1|", string(incremental))
}

func TestCodec_AbsentRoot(t *testing.T) {
	t.Parallel()

	table := kind.NewTable()
	_, err := table.Intern("Root")
	require.NoError(t, err)

	for _, layout := range layouts {
		codec := NewCodec(layout)

		buf, err := codec.Encode(nil, table)
		require.NoError(t, err)

		got, gotTable, err := codec.Decode(buf, table)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, 1, gotTable.Len())
	}
}

func TestCodec_EncodeUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(LayoutIncremental).Encode(New("Ghost", "", 0), kind.NewTable())
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestCodec_DecodeFailures(t *testing.T) {
	t.Parallel()

	table, err := kind.FromMap(map[string]int{"Sum": 0, "Number": 1})
	require.NoError(t, err)

	tests := []struct {
		name   string
		layout Layout
		input  string
		want   error
	}{
		{"embedded sentinel mismatch", LayoutEmbedded, "0|0||0|-1|", ErrSentinelMismatch},
		{"embedded negative count", LayoutEmbedded, "1|Sum|0|0||0|-4|", ErrSentinelMismatch},
		{"embedded truncated child", LayoutEmbedded, "1|Sum|0|0||0|2|0||0|0|", wire.ErrCorruptStream},
		{"incremental truncated", LayoutIncremental, "2|0|0||0|1|0|3|", wire.ErrCorruptStream},
		{"incremental count below sentinel", LayoutIncremental, "-2|", ErrSentinelMismatch},
		{"incremental huge count", LayoutIncremental, "99999|0|0||", wire.ErrCorruptStream},
		{"incremental code out of range", LayoutIncremental, "0|4294967296|0||", wire.ErrCorruptStream},
		{"incremental trailing", LayoutIncremental, "0|0|0||0|", wire.ErrCorruptStream},
		{"incremental empty", LayoutIncremental, "", wire.ErrCorruptStream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, _, decErr := NewCodec(tt.layout).Decode([]byte(tt.input), table)
			require.ErrorIs(t, decErr, tt.want)
			assert.Nil(t, got)
		})
	}
}

func TestCodec_DecodeNeedsTable(t *testing.T) {
	t.Parallel()

	_, _, err := NewCodec(LayoutIncremental).Decode([]byte("0|0|0||"), nil)
	require.ErrorIs(t, err, ErrNoTable)
}

func chain(depth int) *Node {
	root := New("Level", "", 0)
	current := root

	for range depth - 1 {
		child := New("Level", "", 0)
		current.Children = []*Node{child}
		current = child
	}

	return root
}

func TestCodec_DepthLimit(t *testing.T) {
	t.Parallel()

	tree := chain(50)
	table := internedTable(t, tree)

	for _, layout := range layouts {
		buf, err := NewCodec(layout).Encode(tree, table)
		require.NoError(t, err)

		_, _, err = NewCodec(layout, WithMaxDepth(49)).Decode(buf, table)
		require.ErrorIs(t, err, ErrTooDeep)

		got, _, err := NewCodec(layout, WithMaxDepth(50)).Decode(buf, table)
		require.NoError(t, err)
		assert.Equal(t, 50, got.Depth())
	}
}

func TestCodec_NodeLimit(t *testing.T) {
	t.Parallel()

	children := make([]*Node, 10)
	for idx := range children {
		children[idx] = New("Leaf", fmt.Sprint(idx), int64(idx))
	}

	tree := New("Root", "", 0, children...)
	table := internedTable(t, tree)

	_, err := NewCodec(LayoutIncremental, WithMaxNodes(5)).Encode(tree, table)
	require.ErrorIs(t, err, ErrTooManyNodes)

	buf, err := NewCodec(LayoutIncremental).Encode(tree, table)
	require.NoError(t, err)

	_, _, err = NewCodec(LayoutIncremental, WithMaxNodes(5)).Decode(buf, table)
	require.ErrorIs(t, err, ErrTooManyNodes)
}

func TestCodec_DeepTreeNoRecursion(t *testing.T) {
	t.Parallel()

	tree := chain(DefaultMaxDepth)
	table := internedTable(t, tree)
	codec := NewCodec(LayoutIncremental)

	buf, err := codec.Encode(tree, table)
	require.NoError(t, err)

	got, _, err := codec.Decode(buf, table)
	require.NoError(t, err)
	assert.True(t, Equal(tree, got))
}

func TestParseLayout(t *testing.T) {
	t.Parallel()

	layout, err := ParseLayout("incremental")
	require.NoError(t, err)
	assert.Equal(t, LayoutIncremental, layout)

	_, err = ParseLayout("sideways")
	require.ErrorIs(t, err, ErrUnknownLayout)
}

func TestCodec_DecodeUnknownCode(t *testing.T) {
	t.Parallel()

	table, err := kind.FromMap(map[string]int{"A": 0})
	require.NoError(t, err)

	tests := []struct {
		name   string
		layout Layout
		input  string
	}{
		{"embedded", LayoutEmbedded, "1|A|0|" + "0||0|1|" + "7|x|3|0|"},
		{"incremental", LayoutIncremental, "1|0|0||" + "0|7|3|x|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			codec := NewCodec(tt.layout)

			got, gotTable, decErr := codec.Decode([]byte(tt.input), table)
			require.NoError(t, decErr)
			require.NotNil(t, got)
			require.Len(t, got.Children, 1)

			assert.Equal(t, "A", got.Kind)
			assert.Equal(t, kind.Unknown, got.Children[0].Kind)
			assert.Equal(t, 7, got.Children[0].Code)
			assert.Equal(t, "x", got.Children[0].Lexeme)

			again, encErr := codec.Encode(got, gotTable)
			require.NoError(t, encErr)
			assert.Equal(t, tt.input, string(again))
		})
	}
}

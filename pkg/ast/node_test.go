package ast

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hoshi/pkg/kind"
)

func TestNode_VisitPreOrderSkipsAbsent(t *testing.T) {
	t.Parallel()

	tree := New("A", "", 0, New("B", "", 1, New("C", "", 2)), nil, New("D", "", 3))

	var kinds []string

	tree.VisitPreOrder(func(current *Node) { kinds = append(kinds, current.Kind) })

	assert.Equal(t, []string{"A", "B", "C", "D"}, kinds)
	assert.Equal(t, 4, tree.Count())
	assert.Equal(t, 3, tree.Depth())
}

func TestNode_CloneIsDeep(t *testing.T) {
	t.Parallel()

	tree := mixedTree()
	clone := tree.Clone()

	require.True(t, Equal(tree, clone))

	clone.Children[0].Children[0].Lexeme = "y"
	assert.Equal(t, "x", tree.Children[0].Children[0].Lexeme)
	assert.False(t, Equal(tree, clone))
}

func TestEqual_AbsentVersusEmpty(t *testing.T) {
	t.Parallel()

	withAbsent := New("A", "", 0, nil)
	withEmpty := New("A", "", 0, New("B", "", 0))

	assert.False(t, Equal(withAbsent, withEmpty))
	assert.False(t, Equal(New("A", "", 0), withAbsent))
	assert.True(t, Equal(nil, nil))
}

func TestIntern_AssignsCodes(t *testing.T) {
	t.Parallel()

	table := kind.NewTable()
	_, err := table.Intern("Existing")
	require.NoError(t, err)

	tree := New("Root", "", 0, New("Existing", "", 0))
	require.NoError(t, Intern(tree, table))

	assert.Equal(t, 1, tree.Code)
	assert.Equal(t, 0, tree.Children[0].Code)
}

func TestDump(t *testing.T) {
	t.Parallel()

	tree := New("Sum", "", 0, New("Number", "3", 0), nil)

	var buf bytes.Buffer

	require.NoError(t, Dump(&buf, tree))
	assert.Equal(t, "Sum @0\n  Number \"3\" @0\n  <absent>\n", buf.String())
	assert.Equal(t, "<absent>", (*Node)(nil).String())
}

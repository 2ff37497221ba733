package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

const dumpIndent = "  "

// Dump writes an indented outline of the tree, one node per line.
// Absent subtrees are written as "<absent>".
func Dump(w io.Writer, root *Node) error {
	type frame struct {
		node  *Node
		depth int
	}

	stack := []frame{{node: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		_, err := io.WriteString(w, strings.Repeat(dumpIndent, top.depth)+describe(top.node)+"\n")
		if err != nil {
			return fmt.Errorf("dump tree: %w", err)
		}

		if top.node == nil {
			continue
		}

		for idx := len(top.node.Children) - 1; idx >= 0; idx-- {
			stack = append(stack, frame{node: top.node.Children[idx], depth: top.depth + 1})
		}
	}

	return nil
}

// String returns the Dump outline of the tree.
func (targetNode *Node) String() string {
	var sb strings.Builder

	_ = Dump(&sb, targetNode)

	return strings.TrimSuffix(sb.String(), "\n")
}

func describe(current *Node) string {
	if current == nil {
		return "<absent>"
	}

	var sb strings.Builder

	sb.WriteString(current.Kind)

	if current.Lexeme != "" {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Quote(current.Lexeme))
	}

	if current.Location != NoLocation {
		sb.WriteString(" @")
		sb.WriteString(strconv.FormatInt(current.Location, 10))
	}

	return sb.String()
}

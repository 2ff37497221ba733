// Package ast provides the host-visible syntax tree and the codec that moves
// trees across the engine boundary in either of the two supported layouts.
package ast

import "github.com/Sumatoshi-tech/hoshi/pkg/kind"

// NoLocation marks a node without a source offset.
const NoLocation int64 = -1

// defaultStackCap is the initial capacity of traversal stacks.
const defaultStackCap = 64

// Node is one syntax tree node. A nil entry in Children is an absent
// subtree, which is distinct from a node with zero children.
type Node struct {
	Kind     string  `json:"kind"`
	Code     int     `json:"code"`
	Lexeme   string  `json:"lexeme,omitempty"`
	Location int64   `json:"location"`
	Children []*Node `json:"children,omitempty"`
}

// New creates a node with the given kind, lexeme and location.
func New(kindName, lexeme string, location int64, children ...*Node) *Node {
	return &Node{
		Kind:     kindName,
		Lexeme:   lexeme,
		Location: location,
		Children: children,
	}
}

// VisitPreOrder calls fn for every present node, parent before children,
// children left to right. Absent subtrees are skipped.
func (targetNode *Node) VisitPreOrder(fn func(*Node)) {
	if targetNode == nil {
		return
	}

	stack := make([]*Node, 0, defaultStackCap)
	stack = append(stack, targetNode)

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		fn(current)

		for idx := len(current.Children) - 1; idx >= 0; idx-- {
			if child := current.Children[idx]; child != nil {
				stack = append(stack, child)
			}
		}
	}
}

// Count returns the number of present nodes in the tree.
func (targetNode *Node) Count() int {
	total := 0

	targetNode.VisitPreOrder(func(*Node) { total++ })

	return total
}

// Depth returns the number of nodes on the longest root to leaf path.
func (targetNode *Node) Depth() int {
	if targetNode == nil {
		return 0
	}

	type frame struct {
		node  *Node
		depth int
	}

	deepest := 0
	stack := []frame{{node: targetNode, depth: 1}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		deepest = max(deepest, top.depth)

		for _, child := range top.node.Children {
			if child != nil {
				stack = append(stack, frame{node: child, depth: top.depth + 1})
			}
		}
	}

	return deepest
}

// Clone returns a deep copy of the tree.
func (targetNode *Node) Clone() *Node {
	if targetNode == nil {
		return nil
	}

	type pair struct{ src, dst *Node }

	root := &Node{}
	stack := []pair{{src: targetNode, dst: root}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		*top.dst = Node{
			Kind:     top.src.Kind,
			Code:     top.src.Code,
			Lexeme:   top.src.Lexeme,
			Location: top.src.Location,
		}

		if top.src.Children == nil {
			continue
		}

		top.dst.Children = make([]*Node, len(top.src.Children))

		for idx, child := range top.src.Children {
			if child == nil {
				continue
			}

			top.dst.Children[idx] = &Node{}
			stack = append(stack, pair{src: child, dst: top.dst.Children[idx]})
		}
	}

	return root
}

// Equal reports whether two trees have the same shape and the same kind,
// lexeme and location on every node. Codes are not compared.
func Equal(left, right *Node) bool {
	type pair struct{ left, right *Node }

	stack := []pair{{left: left, right: right}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.left == nil || top.right == nil {
			if top.left != top.right {
				return false
			}

			continue
		}

		if top.left.Kind != top.right.Kind ||
			top.left.Lexeme != top.right.Lexeme ||
			top.left.Location != top.right.Location ||
			len(top.left.Children) != len(top.right.Children) {
			return false
		}

		for idx := range top.left.Children {
			stack = append(stack, pair{left: top.left.Children[idx], right: top.right.Children[idx]})
		}
	}

	return true
}

// Intern assigns every node its code from table, allocating codes for
// kinds the table has not seen. It stops at the first allocation failure.
func Intern(root *Node, table *kind.Table) error {
	var err error

	root.VisitPreOrder(func(current *Node) {
		if err != nil {
			return
		}

		current.Code, err = table.Intern(current.Kind)
	})

	return err
}

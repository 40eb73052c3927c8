// Package compdata pkg/compdata/tree.go
package compdata

import (
	"github.com/mfreeman451/compdata/pkg/cache"
)

// Node is one level of a nested index tree. Interior nodes key their
// children by index-variable value; leaves may carry a sample. A node
// with neither children nor sample is a blank leaf.
type Node struct {
	Children map[string]*Node
	Sample   *cache.Sample
}

// Tree pairs a root node with its legend: the ordered variable names
// that characterise the tree's depth.
type Tree struct {
	Legend []string
	Root   *Node
}

func newNode() *Node {
	return &Node{}
}

// child returns the named child, creating it on first use.
func (n *Node) child(key string) *Node {
	if n.Children == nil {
		n.Children = make(map[string]*Node)
	}

	c, ok := n.Children[key]
	if !ok {
		c = newNode()
		n.Children[key] = c
	}

	return c
}

// isLeaf reports whether the node has no children.
func (n *Node) isLeaf() bool {
	return len(n.Children) == 0
}

// deepCopy clones the subtree. Samples are copied by value so that
// later stages can mutate the clone freely.
func (n *Node) deepCopy() *Node {
	out := newNode()

	if n.Sample != nil {
		s := *n.Sample
		out.Sample = &s
	}

	if n.Children != nil {
		out.Children = make(map[string]*Node, len(n.Children))
		for key, child := range n.Children {
			out.Children[key] = child.deepCopy()
		}
	}

	return out
}

// deepCopy clones the tree including its legend.
func (t *Tree) deepCopy() *Tree {
	return &Tree{
		Legend: append([]string(nil), t.Legend...),
		Root:   t.Root.deepCopy(),
	}
}

// mergeKeys folds other's keys into n as a recursive union. Keys
// missing from n are copied over whole; keys present on both sides
// recurse, and merges that meet an existing leaf leave it untouched.
// Nothing is ever removed.
func (n *Node) mergeKeys(other *Node) {
	for key, oc := range other.Children {
		existing, ok := n.Children[key]
		if !ok {
			if n.Children == nil {
				n.Children = make(map[string]*Node)
			}

			n.Children[key] = oc.deepCopy()

			continue
		}

		existing.mergeKeys(oc)
	}
}

// trim deletes every key of n that is not present in scan at the same
// position. Recursion follows the keys both sides share; leaf samples
// are never touched.
func (n *Node) trim(scan *Node) {
	for key, child := range n.Children {
		sc, ok := scan.Children[key]
		if !ok {
			delete(n.Children, key)
			continue
		}

		child.trim(sc)
	}
}

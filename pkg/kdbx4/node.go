// Copyright (c) 2025 Jeremy Hahn
//
// SPDX-License-Identifier: Apache-2.0

package kdbx4

import "github.com/google/uuid"

// Node is the common interface implemented by *Group and *Entry, the
// idiomatic Go substitute for the closed two-variant sum type the
// original Rust implementation uses for a group's children. A Group's
// Children field holds a []Node, and a type switch on the concrete type
// recovers whichever of the two it actually is.
type Node interface {
	// NodeUUID returns the node's unique identifier.
	NodeUUID() uuid.UUID

	// Parent returns the Group this node is attached to, or nil for a
	// Database's Root group or a node detached with RemoveChild.
	Parent() *Group

	setParent(g *Group)
}

// walk calls visit for n and, if n is a *Group, for every descendant,
// depth first, children in slice order. visit returning false stops the
// walk immediately and walk returns false.
func walk(n Node, visit func(Node) bool) bool {
	if !visit(n) {
		return false
	}
	if g, ok := n.(*Group); ok {
		for _, child := range g.Children {
			if !walk(child, visit) {
				return false
			}
		}
	}
	return true
}

// Walk traverses the tree rooted at n depth first, including n itself,
// calling visit for each Node until visit returns false or the tree is
// exhausted.
func Walk(n Node, visit func(Node) bool) {
	walk(n, visit)
}

// FindByUUID returns the first Node under root (root included) whose
// NodeUUID equals id, or nil if none matches.
func FindByUUID(root Node, id uuid.UUID) Node {
	var found Node
	Walk(root, func(n Node) bool {
		if n.NodeUUID() == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// AddChild appends child to parent.Children, setting child's parent
// back-reference. It returns ErrCycle if child is already attached to a
// different group; detach it first with RemoveChild.
func AddChild(parent *Group, child Node) error {
	if child.Parent() != nil && child.Parent() != parent {
		return ErrCycle
	}
	parent.Children = append(parent.Children, child)
	child.setParent(parent)
	return nil
}

// RemoveChild detaches child from parent, clearing its parent
// back-reference. It is a no-op if child is not in parent.Children.
func RemoveChild(parent *Group, child Node) {
	for i, c := range parent.Children {
		if c.NodeUUID() == child.NodeUUID() {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			child.setParent(nil)
			return
		}
	}
}

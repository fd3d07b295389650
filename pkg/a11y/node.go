// Package a11y searches and acts on a borrowed accessibility tree.
//
// Nodes are handles into a tree owned by the platform. Every handle obtained
// from a Window or a Node must be released exactly once. Search functions
// release everything they traverse except the handles they return; release
// of those moves to the caller.
package a11y

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoRoot is returned by a Window when no active window is available.
var ErrNoRoot = errors.New("no active window root")

// Action is a platform action that can be requested on a node.
type Action int

const (
	ActionClick Action = iota + 1
	ActionScrollForward
)

func (a Action) String() string {
	switch a {
	case ActionClick:
		return "click"
	case ActionScrollForward:
		return "scroll_forward"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Node is a borrowed reference to one element of the accessibility tree.
type Node interface {
	ChildCount() int
	// Child acquires the i-th child, or nil if it is gone.
	Child(i int) Node
	// Parent acquires the parent, or nil at the root.
	Parent() Node

	ClassName() string
	Text() string
	ContentDescription() string
	ViewID() string
	BoundsInScreen() Rect
	Clickable() bool

	// FindByViewID acquires every node in this subtree whose full view id
	// ("pkg:id/name") equals id, in pre-order.
	FindByViewID(id string) []Node
	// FindByText acquires every node in this subtree whose text or content
	// description contains text, ignoring case.
	FindByText(text string) []Node

	PerformAction(ctx context.Context, action Action) bool

	// Release returns the handle to its pool.
	Release()
}

// Window yields the root of the active window.
type Window interface {
	RootInActiveWindow(ctx context.Context) (Node, error)
}

// ReleaseAll releases every node in nodes. Nil entries are skipped.
func ReleaseAll(nodes []Node) {
	for _, n := range nodes {
		if n != nil {
			n.Release()
		}
	}
}

// FullViewID joins a package name and a short id into "pkg:id/name".
func FullViewID(pkg, id string) string {
	return pkg + ":id/" + id
}

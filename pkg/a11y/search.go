package a11y

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// ========================================
// Subtree walks
// ========================================

// FindFirst returns the first descendant of parent, in pre-order, that
// matches. parent itself is not a candidate. Every other child handle
// acquired on the way is released.
func FindFirst(parent Node, match func(Node) bool) Node {
	if parent == nil {
		return nil
	}
	for i := 0; i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child == nil {
			continue
		}
		if match(child) {
			return child
		}
		found := FindFirst(child, match)
		child.Release()
		if found != nil {
			return found
		}
	}
	return nil
}

// CollectAll appends to list every descendant of parent that matches, in
// pre-order. A matched node's children are not visited.
func CollectAll(list []Node, parent Node, match func(Node) bool) []Node {
	if parent == nil {
		return list
	}
	for i := 0; i < parent.ChildCount(); i++ {
		child := parent.Child(i)
		if child == nil {
			continue
		}
		if match(child) {
			list = append(list, child)
			continue
		}
		list = CollectAll(list, child, match)
		child.Release()
	}
	return list
}

func classNameIs(className string) func(Node) bool {
	return func(n Node) bool { return n.ClassName() == className }
}

func descEquals(desc string) func(Node) bool {
	return func(n Node) bool {
		cd := n.ContentDescription()
		return cd != "" && cd == desc
	}
}

func descContains(desc string) func(Node) bool {
	return func(n Node) bool {
		cd := n.ContentDescription()
		return cd != "" && strings.Contains(cd, desc)
	}
}

func boundsContain(rect Rect) func(Node) bool {
	return func(n Node) bool { return n.BoundsInScreen().Contains(rect) }
}

// FindFirstByClassName is FindFirst on an exact class name.
func FindFirstByClassName(parent Node, className string) Node {
	return FindFirst(parent, classNameIs(className))
}

// CollectByClassName is CollectAll on an exact class name.
func CollectByClassName(list []Node, parent Node, className string) []Node {
	return CollectAll(list, parent, classNameIs(className))
}

// FindFirstByEqualsContentDescription is FindFirst on an exact content description.
func FindFirstByEqualsContentDescription(parent Node, desc string) Node {
	return FindFirst(parent, descEquals(desc))
}

// FindFirstByContainsContentDescription is FindFirst on a content description substring.
func FindFirstByContainsContentDescription(parent Node, desc string) Node {
	return FindFirst(parent, descContains(desc))
}

// CollectByContentDescription is CollectAll on an exact content description.
func CollectByContentDescription(list []Node, parent Node, desc string) []Node {
	return CollectAll(list, parent, descEquals(desc))
}

// CollectByRect is CollectAll on nodes whose bounds contain rect.
func CollectByRect(list []Node, parent Node, rect Rect) []Node {
	return CollectAll(list, parent, boundsContain(rect))
}

// ClickView clicks node if it is clickable, otherwise the nearest clickable
// ancestor. Parents acquired here are released here; node stays with the
// caller. Returns true if a click was performed.
func ClickView(ctx context.Context, node Node) bool {
	if node == nil {
		return false
	}
	if node.Clickable() {
		node.PerformAction(ctx, ActionClick)
		return true
	}
	parent := node.Parent()
	if parent == nil {
		return false
	}
	clicked := ClickView(ctx, parent)
	parent.Release()
	return clicked
}

// ========================================
// Finder: searches against a fresh root
// ========================================

// Finder runs searches against the current root of a Window. Each call
// fetches a new root and releases it before returning.
type Finder struct {
	window Window
	log    zerolog.Logger
}

// NewFinder creates a Finder over window.
func NewFinder(window Window, log zerolog.Logger) *Finder {
	return &Finder{window: window, log: log.With().Str("module", "a11y").Logger()}
}

// root fetches the active root. Failures are logged and reported as nil.
func (f *Finder) root(ctx context.Context) Node {
	root, err := f.window.RootInActiveWindow(ctx)
	if err != nil {
		f.log.Debug().Err(err).Msg("root unavailable")
		return nil
	}
	return root
}

// withRoot runs fn on a fresh root and releases the root afterwards.
func withRoot[T any](f *Finder, ctx context.Context, fn func(Node) T) T {
	var zero T
	root := f.root(ctx)
	if root == nil {
		return zero
	}
	defer root.Release()
	return fn(root)
}

// FindViewByID finds the first node with id pkg:id/id.
func (f *Finder) FindViewByID(ctx context.Context, pkg, id string) Node {
	return f.FindViewByFullID(ctx, FullViewID(pkg, id))
}

// FindViewByFullID finds the first node with the full view id.
func (f *Finder) FindViewByFullID(ctx context.Context, fullID string) Node {
	list := f.FindViewByIDList(ctx, fullID)
	if len(list) == 0 {
		return nil
	}
	ReleaseAll(list[1:])
	return list[0]
}

// FindViewByIDList finds every node with the full view id, for screens where
// one id repeats (list items).
func (f *Finder) FindViewByIDList(ctx context.Context, fullID string) []Node {
	return withRoot(f, ctx, func(root Node) []Node {
		return root.FindByViewID(fullID)
	})
}

// FindViewByContainsText finds nodes whose text or content description
// contains text, ignoring case.
func (f *Finder) FindViewByContainsText(ctx context.Context, text string) []Node {
	return withRoot(f, ctx, func(root Node) []Node {
		return root.FindByText(text)
	})
}

// FindViewByEqualsText finds nodes whose text equals text exactly. Returns
// nil when nothing contains text.
func (f *Finder) FindViewByEqualsText(ctx context.Context, text string) []Node {
	candidates := f.FindViewByContainsText(ctx, text)
	if len(candidates) == 0 {
		return nil
	}
	matched := make([]Node, 0, len(candidates))
	for _, n := range candidates {
		if n.Text() == text {
			matched = append(matched, n)
		} else {
			n.Release()
		}
	}
	return matched
}

// FindViewByFirstClassName finds the first node of the class. It walks the
// whole tree, so prefer an id lookup where one exists.
func (f *Finder) FindViewByFirstClassName(ctx context.Context, className string) Node {
	return withRoot(f, ctx, func(root Node) Node {
		return FindFirstByClassName(root, className)
	})
}

// FindViewByClassName finds every node of the class.
func (f *Finder) FindViewByClassName(ctx context.Context, className string) []Node {
	return withRoot(f, ctx, func(root Node) []Node {
		return CollectByClassName(nil, root, className)
	})
}

func (f *Finder) FindViewByFirstEqualsContentDescription(ctx context.Context, desc string) Node {
	return withRoot(f, ctx, func(root Node) Node {
		return FindFirstByEqualsContentDescription(root, desc)
	})
}

func (f *Finder) FindViewByFirstContainsContentDescription(ctx context.Context, desc string) Node {
	return withRoot(f, ctx, func(root Node) Node {
		return FindFirstByContainsContentDescription(root, desc)
	})
}

func (f *Finder) FindViewByContentDescription(ctx context.Context, desc string) []Node {
	return withRoot(f, ctx, func(root Node) []Node {
		return CollectByContentDescription(nil, root, desc)
	})
}

// FindViewByRect finds nodes whose screen bounds contain rect.
func (f *Finder) FindViewByRect(ctx context.Context, rect Rect) []Node {
	return withRoot(f, ctx, func(root Node) []Node {
		return CollectByRect(nil, root, rect)
	})
}

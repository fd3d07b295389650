package a11y

import (
	"context"
	"strings"
	"testing"
)

// fixture describes one node of a mock tree.
type fixture struct {
	id        string
	class     string
	text      string
	desc      string
	bounds    Rect
	clickable bool
	children  []*fixture
	parent    *fixture
}

func el(class string, opts ...func(*fixture)) *fixture {
	s := &fixture{class: class}
	for _, o := range opts {
		o(s)
	}
	for _, c := range s.children {
		c.parent = s
	}
	return s
}

func withID(id string) func(*fixture)    { return func(s *fixture) { s.id = id } }
func withText(t string) func(*fixture)   { return func(s *fixture) { s.text = t } }
func withDesc(d string) func(*fixture)   { return func(s *fixture) { s.desc = d } }
func withBounds(r Rect) func(*fixture)   { return func(s *fixture) { s.bounds = r } }
func clickable() func(*fixture)          { return func(s *fixture) { s.clickable = true } }
func kids(cs ...*fixture) func(*fixture) { return func(s *fixture) { s.children = cs } }

// mockTree hands out reference-counted handles onto a fixture tree.
type mockTree struct {
	t       *testing.T
	root    *fixture
	live    int
	clicked []*fixture
	noRoot  bool
}

func newMockTree(t *testing.T, root *fixture) *mockTree {
	return &mockTree{t: t, root: root}
}

func (m *mockTree) acquire(s *fixture) Node {
	m.live++
	return &mockNode{tree: m, fx: s}
}

func (m *mockTree) RootInActiveWindow(ctx context.Context) (Node, error) {
	if m.noRoot {
		return nil, ErrNoRoot
	}
	return m.acquire(m.root), nil
}

// assertBalanced fails the test if any handle is still live.
func (m *mockTree) assertBalanced() {
	m.t.Helper()
	if m.live != 0 {
		m.t.Errorf("live handles = %d, want 0", m.live)
	}
}

type mockNode struct {
	tree     *mockTree
	fx       *fixture
	released bool
}

func (n *mockNode) check() {
	if n.released {
		n.tree.t.Errorf("use of released node %q", n.fx.class)
	}
}

func (n *mockNode) ChildCount() int { n.check(); return len(n.fx.children) }

func (n *mockNode) Child(i int) Node {
	n.check()
	if i < 0 || i >= len(n.fx.children) {
		return nil
	}
	return n.tree.acquire(n.fx.children[i])
}

func (n *mockNode) Parent() Node {
	n.check()
	if n.fx.parent == nil {
		return nil
	}
	return n.tree.acquire(n.fx.parent)
}

func (n *mockNode) ClassName() string          { return n.fx.class }
func (n *mockNode) Text() string               { return n.fx.text }
func (n *mockNode) ContentDescription() string { return n.fx.desc }
func (n *mockNode) ViewID() string             { return n.fx.id }
func (n *mockNode) BoundsInScreen() Rect       { return n.fx.bounds }
func (n *mockNode) Clickable() bool            { return n.fx.clickable }

func (n *mockNode) walk(fn func(*fixture)) {
	var visit func(*fixture)
	visit = func(s *fixture) {
		fn(s)
		for _, c := range s.children {
			visit(c)
		}
	}
	visit(n.fx)
}

func (n *mockNode) FindByViewID(id string) []Node {
	n.check()
	var out []Node
	n.walk(func(s *fixture) {
		if s.id == id {
			out = append(out, n.tree.acquire(s))
		}
	})
	return out
}

func containsFold(s, needle string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), needle)
}

func (n *mockNode) FindByText(text string) []Node {
	n.check()
	var out []Node
	needle := strings.ToLower(text)
	n.walk(func(s *fixture) {
		if containsFold(s.text, needle) || containsFold(s.desc, needle) {
			out = append(out, n.tree.acquire(s))
		}
	})
	return out
}

func (n *mockNode) PerformAction(ctx context.Context, action Action) bool {
	n.check()
	if action == ActionClick {
		n.tree.clicked = append(n.tree.clicked, n.fx)
	}
	return true
}

func (n *mockNode) Release() {
	if n.released {
		n.tree.t.Errorf("double release of %q", n.fx.class)
		return
	}
	n.released = true
	n.tree.live--
}

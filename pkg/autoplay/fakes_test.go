package autoplay

import (
	"context"
	"sync"
	"time"

	"AutoPlay/pkg/a11y"
)

// scheduled is one SendDelayed call.
type scheduled struct {
	action Action
	delay  time.Duration
}

// recordingScheduler keeps the pending set the way a looper would, without
// any timers.
type recordingScheduler struct {
	pending []scheduled
	sent    []scheduled
	removes int
}

func (s *recordingScheduler) SendDelayed(action Action, delay time.Duration) {
	s.pending = append(s.pending, scheduled{action, delay})
	s.sent = append(s.sent, scheduled{action, delay})
}

func (s *recordingScheduler) RemoveAll() {
	s.pending = nil
	s.removes++
}

// flatWindow is a window whose root has one level of children, each
// addressed by view id. It counts live handles and performed actions.
type flatWindow struct {
	mu       sync.Mutex
	ids      []string
	live     int
	actions  []string
	noRoot   bool
	rootHits int
}

func (w *flatWindow) RootInActiveWindow(ctx context.Context) (a11y.Node, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rootHits++
	if w.noRoot {
		return nil, a11y.ErrNoRoot
	}
	w.live++
	return &flatNode{w: w, idx: -1}, nil
}

func (w *flatWindow) Live() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.live
}

func (w *flatWindow) Actions() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.actions...)
}

type flatNode struct {
	w   *flatWindow
	idx int
}

func (n *flatNode) ChildCount() int {
	if n.idx >= 0 {
		return 0
	}
	return len(n.w.ids)
}

func (n *flatNode) Child(i int) a11y.Node {
	if n.idx >= 0 || i < 0 || i >= len(n.w.ids) {
		return nil
	}
	n.w.mu.Lock()
	n.w.live++
	n.w.mu.Unlock()
	return &flatNode{w: n.w, idx: i}
}

func (n *flatNode) Parent() a11y.Node { return nil }

func (n *flatNode) ClassName() string          { return "android.view.View" }
func (n *flatNode) Text() string               { return "" }
func (n *flatNode) ContentDescription() string { return "" }
func (n *flatNode) BoundsInScreen() a11y.Rect  { return a11y.Rect{Right: 100, Bottom: 100} }
func (n *flatNode) Clickable() bool            { return true }

func (n *flatNode) ViewID() string {
	if n.idx < 0 {
		return ""
	}
	return n.w.ids[n.idx]
}

func (n *flatNode) FindByViewID(id string) []a11y.Node {
	var out []a11y.Node
	for i, v := range n.w.ids {
		if v == id {
			out = append(out, n.Child(i))
		}
	}
	return out
}

func (n *flatNode) FindByText(text string) []a11y.Node { return nil }

func (n *flatNode) PerformAction(ctx context.Context, action a11y.Action) bool {
	n.w.mu.Lock()
	defer n.w.mu.Unlock()
	n.w.actions = append(n.w.actions, action.String()+":"+n.ViewID())
	return true
}

func (n *flatNode) Release() {
	n.w.mu.Lock()
	defer n.w.mu.Unlock()
	n.w.live--
}

// feedWindow has the three elements the default profile acts on.
func feedWindow() *flatWindow {
	p := DefaultProfile()
	return &flatWindow{ids: []string{
		a11y.FullViewID(p.Package, p.BackButtonID),
		a11y.FullViewID(p.Package, p.RecyclerID),
		a11y.FullViewID(p.Package, p.ContainerID),
	}}
}

// chanSource delivers events from a channel until it is closed or ctx ends.
type chanSource struct {
	events chan Event
	err    error
}

func (s *chanSource) Run(ctx context.Context, sink EventSink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.events:
			if !ok {
				return s.err
			}
			sink.OnEvent(ev)
		}
	}
}

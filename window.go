package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"AutoPlay/pkg/a11y"
	"AutoPlay/pkg/autoplay"

	"golang.org/x/time/rate"
)

// ========================================
// SnapshotWindow - uiautomator 快照实现的 a11y.Window
// ========================================

// WindowConfig 快照窗口配置
type WindowConfig struct {
	DeviceID     string
	DumpInterval time.Duration // 两次 dump 的最小间隔
	DumpTimeout  time.Duration
	HandlePool   int // 同时存活的节点句柄上限
}

// SnapshotWindow 每次 RootInActiveWindow 都重新 dump 一份 UI 树，
// 节点句柄指向该快照，动作通过 adb input 执行
type SnapshotWindow struct {
	runner      AdbRunner
	deviceID    string
	limiter     *rate.Limiter
	dumpTimeout time.Duration
	poolLimit   int64
	live        atomic.Int64

	mu       sync.Mutex
	observer autoplay.EventSink
}

// NewSnapshotWindow 创建快照窗口
func NewSnapshotWindow(runner AdbRunner, config WindowConfig) *SnapshotWindow {
	interval := config.DumpInterval
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if config.DumpTimeout <= 0 {
		config.DumpTimeout = 10 * time.Second
	}
	if config.HandlePool <= 0 {
		config.HandlePool = 2048
	}
	return &SnapshotWindow{
		runner:      runner,
		deviceID:    config.DeviceID,
		limiter:     rate.NewLimiter(limit, 1),
		dumpTimeout: config.DumpTimeout,
		poolLimit:   int64(config.HandlePool),
	}
}

// SetScrollObserver 注册滚动回调
// 设备上的 TYPE_VIEW_SCROLLED 事件不会回到主机，由本地滚动动作代为上报
func (w *SnapshotWindow) SetScrollObserver(sink autoplay.EventSink) {
	w.mu.Lock()
	w.observer = sink
	w.mu.Unlock()
	WindowLog().Str("deviceId", w.deviceID).Bool("enabled", sink != nil).Msg("Scroll loopback configured")
}

// LiveHandles 当前未释放的句柄数
func (w *SnapshotWindow) LiveHandles() int64 {
	return w.live.Load()
}

// RootInActiveWindow implements a11y.Window.
func (w *SnapshotWindow) RootInActiveWindow(ctx context.Context) (a11y.Node, error) {
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("dump throttle: %w", err)
	}

	dumpCtx, cancel := context.WithTimeout(ctx, w.dumpTimeout)
	defer cancel()

	timer := StartOperation("window", "dump").AddDetail("deviceId", w.deviceID)
	root, err := DumpUIHierarchy(dumpCtx, w.runner, w.deviceID)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	snap := newSnapshot(root)
	timer.AddDetail("nodes", len(snap.nodes)).End()
	if len(snap.nodes) == 0 {
		return nil, a11y.ErrNoRoot
	}

	node := w.acquire(snap, 0)
	if node == nil {
		return nil, fmt.Errorf("node handle pool exhausted (%d live)", w.live.Load())
	}
	return node, nil
}

// acquire 从池中取一个句柄，超过上限返回 nil
func (w *SnapshotWindow) acquire(snap *snapshot, idx int) a11y.Node {
	if w.live.Add(1) > w.poolLimit {
		w.live.Add(-1)
		LogWarn("window").Int64("limit", w.poolLimit).Msg("Node handle pool exhausted")
		return nil
	}
	return &windowNode{window: w, snap: snap, idx: idx}
}

func (w *SnapshotWindow) notifyScrolled(n *snapNode) {
	w.mu.Lock()
	observer := w.observer
	w.mu.Unlock()
	if observer == nil {
		return
	}
	ev := autoplay.Event{
		Type:        autoplay.ViewScrolled,
		ClassName:   n.ui.Class,
		PackageName: n.ui.Package,
		Time:        time.Now(),
	}
	// 动作在 looper 协程上执行，回调不能阻塞它
	go observer.OnEvent(ev)
}

// ========================================
// snapshot - 扁平化的 UI 树
// ========================================

type snapNode struct {
	ui       *UINode
	parent   int
	children []int
	end      int // 子树先序区间 [idx, end)
	bounds   a11y.Rect
}

type snapshot struct {
	nodes []snapNode
}

func newSnapshot(root *UINode) *snapshot {
	s := &snapshot{}
	if root != nil {
		s.add(root, -1)
	}
	return s
}

// add 先序遍历，下标即先序序号
func (s *snapshot) add(ui *UINode, parent int) int {
	idx := len(s.nodes)
	bounds, _ := a11y.ParseBounds(ui.Bounds)
	s.nodes = append(s.nodes, snapNode{ui: ui, parent: parent, bounds: bounds})
	for i := range ui.Nodes {
		child := s.add(&ui.Nodes[i], idx)
		s.nodes[idx].children = append(s.nodes[idx].children, child)
	}
	s.nodes[idx].end = len(s.nodes)
	return idx
}

// ========================================
// windowNode - a11y.Node 句柄
// ========================================

type windowNode struct {
	window   *SnapshotWindow
	snap     *snapshot
	idx      int
	released atomic.Bool
}

func (n *windowNode) node() *snapNode {
	return &n.snap.nodes[n.idx]
}

func (n *windowNode) ChildCount() int {
	return len(n.node().children)
}

func (n *windowNode) Child(i int) a11y.Node {
	children := n.node().children
	if i < 0 || i >= len(children) {
		return nil
	}
	return n.window.acquire(n.snap, children[i])
}

func (n *windowNode) Parent() a11y.Node {
	parent := n.node().parent
	if parent < 0 {
		return nil
	}
	return n.window.acquire(n.snap, parent)
}

func (n *windowNode) ClassName() string          { return n.node().ui.Class }
func (n *windowNode) Text() string               { return n.node().ui.Text }
func (n *windowNode) ContentDescription() string { return n.node().ui.ContentDesc }
func (n *windowNode) ViewID() string             { return n.node().ui.ResourceID }
func (n *windowNode) BoundsInScreen() a11y.Rect  { return n.node().bounds }
func (n *windowNode) Clickable() bool            { return n.node().ui.Clickable }

func (n *windowNode) FindByViewID(id string) []a11y.Node {
	return n.collect(func(ui *UINode) bool { return ui.ResourceID == id })
}

func (n *windowNode) FindByText(text string) []a11y.Node {
	needle := strings.ToLower(text)
	return n.collect(func(ui *UINode) bool {
		return containsFold(ui.Text, needle) || containsFold(ui.ContentDesc, needle)
	})
}

// containsFold 忽略大小写的包含判断，needle 已转小写
func containsFold(s, needle string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), needle)
}

// collect 在子树 (含自身) 中按先序取出匹配节点
func (n *windowNode) collect(match func(*UINode) bool) []a11y.Node {
	var out []a11y.Node
	for i := n.idx; i < n.node().end; i++ {
		if !match(n.snap.nodes[i].ui) {
			continue
		}
		h := n.window.acquire(n.snap, i)
		if h == nil {
			break
		}
		out = append(out, h)
	}
	return out
}

func (n *windowNode) PerformAction(ctx context.Context, action a11y.Action) bool {
	sn := n.node()
	b := sn.bounds
	if b.Empty() {
		LogDebug("window").Str("bounds", sn.ui.Bounds).Stringer("action", action).Msg("Skip action on empty bounds")
		return false
	}

	var cmd string
	switch action {
	case a11y.ActionClick:
		x, y := b.Center()
		cmd = fmt.Sprintf("shell input tap %d %d", x, y)
	case a11y.ActionScrollForward:
		if !sn.ui.Scrollable {
			return false
		}
		// 在节点内从下往上滑，内容向前滚动
		x, _ := b.Center()
		margin := b.Height() / 5
		cmd = fmt.Sprintf("shell input swipe %d %d %d %d 300", x, b.Bottom-margin, x, b.Top+margin)
	default:
		return false
	}

	if _, err := n.window.runner.RunAdbCommandWithContext(ctx, n.window.deviceID, cmd); err != nil {
		LogWarn("window").Err(err).Stringer("action", action).Str("viewId", sn.ui.ResourceID).Msg("Action failed")
		return false
	}
	LogDebug("window").Stringer("action", action).Str("viewId", sn.ui.ResourceID).Str("bounds", b.String()).Msg("Action performed")

	if action == a11y.ActionScrollForward {
		n.window.notifyScrolled(sn)
	}
	return true
}

func (n *windowNode) Release() {
	if n.released.Swap(true) {
		LogWarn("window").Int("index", n.idx).Msg("Node released twice")
		return
	}
	n.window.live.Add(-1)
}

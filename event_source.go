package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"AutoPlay/pkg/autoplay"
)

// ========================================
// Event Sources - 窗口状态 / 滚动事件来源
// ========================================

// PackageFilter 只放行目标包的事件，空包名表示全部放行
// 配置热更新时替换包名
type PackageFilter struct {
	pkg atomic.Pointer[string]
}

// NewPackageFilter 创建过滤器
func NewPackageFilter(pkg string) *PackageFilter {
	f := &PackageFilter{}
	f.Set(pkg)
	return f
}

// Set 替换目标包名
func (f *PackageFilter) Set(pkg string) {
	f.pkg.Store(&pkg)
}

// Package 当前目标包名
func (f *PackageFilter) Package() string {
	if f == nil {
		return ""
	}
	if want := f.pkg.Load(); want != nil {
		return *want
	}
	return ""
}

// Allow 判断事件是否属于目标包
func (f *PackageFilter) Allow(ev autoplay.Event) bool {
	if f == nil {
		return true
	}
	want := f.pkg.Load()
	return want == nil || *want == "" || ev.PackageName == "" || ev.PackageName == *want
}

// ========================================
// ActivityPoller - 轮询前台 Activity
// ========================================

// resumedActivityPattern mResumedActivity: ActivityRecord{xxx u0 com.example/.MainActivity t123}
var resumedActivityPattern = regexp.MustCompile(`u0 ([^/\s]+)/([^\s}]+)`)

const activityPollCmd = "shell dumpsys activity activities | grep -E 'mResumedActivity|topResumedActivity' || true"

// ActivityPoller 定时读取前台 Activity，变化时上报 WindowStateChanged
type ActivityPoller struct {
	Runner      AdbRunner
	DeviceID    string
	Interval    time.Duration
	MaxFailures int // 连续失败次数上限，超过后返回错误
	Filter      *PackageFilter
}

// Run implements autoplay.EventSource.
func (p *ActivityPoller) Run(ctx context.Context, sink autoplay.EventSink) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	maxFailures := p.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 5
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	EventLog().Str("deviceId", p.DeviceID).Dur("interval", interval).Msg("Activity poller started")

	var last string
	failures := 0
	for {
		ev, err := p.poll(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			LogWarn("event").Err(err).Int("failures", failures).Msg("Activity poll failed")
			if failures >= maxFailures {
				return fmt.Errorf("activity poll failed %d times: %w", failures, err)
			}
		case ev.ClassName != "" && ev.ClassName != last:
			failures = 0
			last = ev.ClassName
			if p.Filter.Allow(ev) {
				LogDebug("event").Str("activity", ev.ClassName).Str("package", ev.PackageName).Msg("Foreground activity changed")
				sink.OnEvent(ev)
			}
		default:
			failures = 0
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *ActivityPoller) poll(ctx context.Context) (autoplay.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := p.Runner.RunAdbCommandWithContext(ctx, p.DeviceID, activityPollCmd)
	if err != nil {
		return autoplay.Event{}, err
	}
	activity, pkg := parseCurrentActivity(output)
	if activity == "" {
		return autoplay.Event{}, nil
	}
	return autoplay.Event{
		Type:        autoplay.WindowStateChanged,
		ClassName:   activity,
		PackageName: pkg,
		Time:        time.Now(),
	}, nil
}

// parseCurrentActivity 返回完整类名和包名，".Foo" 会展开为 "pkg.Foo"
func parseCurrentActivity(output string) (activity, pkg string) {
	match := resumedActivityPattern.FindStringSubmatch(output)
	if len(match) < 3 {
		return "", ""
	}
	pkg, activity = match[1], match[2]
	switch {
	case strings.HasPrefix(activity, "."):
		activity = pkg + activity
	case !strings.Contains(activity, "."):
		activity = pkg + "." + activity
	}
	return activity, pkg
}

// ========================================
// EventMonitor - uiautomator events 流
// ========================================

var (
	eventTypePattern    = regexp.MustCompile(`EventType: (\w+)`)
	eventPackagePattern = regexp.MustCompile(`PackageName: ([^;\s]+)`)
	eventClassPattern   = regexp.MustCompile(`ClassName: ([^;\s]+)`)
)

// EventMonitor 读取 adb shell uiautomator events 的输出
type EventMonitor struct {
	Streamer AdbStreamer
	DeviceID string
	Filter   *PackageFilter
}

// Run implements autoplay.EventSource.
func (m *EventMonitor) Run(ctx context.Context, sink autoplay.EventSink) error {
	stream, err := m.Streamer.StreamAdbCommand(ctx, m.DeviceID, "shell", "uiautomator", "events")
	if err != nil {
		return err
	}
	closeStream := sync.OnceValue(stream.Close)
	defer closeStream()

	// ctx 取消时关闭流，解除 Scan 阻塞
	stop := context.AfterFunc(ctx, func() { _ = closeStream() })
	defer stop()

	EventLog().Str("deviceId", m.DeviceID).Msg("uiautomator event monitor started")

	scanner := bufio.NewScanner(stream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ev, ok := parseAccessibilityEvent(scanner.Text())
		if !ok || !m.Filter.Allow(ev) {
			continue
		}
		LogDebug("event").Stringer("type", ev.Type).Str("class", ev.ClassName).Str("package", ev.PackageName).Msg("Accessibility event")
		sink.OnEvent(ev)
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read uiautomator events: %w", err)
	}
	return errors.New("uiautomator events stream closed")
}

// parseAccessibilityEvent 解析一行 uiautomator events 输出
// EventType: TYPE_WINDOW_STATE_CHANGED; EventTime: 1; PackageName: com.app; ... [ ClassName: com.app.MainActivity; ...
func parseAccessibilityEvent(line string) (autoplay.Event, bool) {
	m := eventTypePattern.FindStringSubmatch(line)
	if len(m) < 2 {
		return autoplay.Event{}, false
	}

	var ev autoplay.Event
	switch m[1] {
	case "TYPE_WINDOW_STATE_CHANGED":
		ev.Type = autoplay.WindowStateChanged
	case "TYPE_VIEW_SCROLLED":
		ev.Type = autoplay.ViewScrolled
	default:
		return autoplay.Event{}, false
	}

	if pm := eventPackagePattern.FindStringSubmatch(line); len(pm) >= 2 && pm[1] != "null" {
		ev.PackageName = pm[1]
	}
	if cm := eventClassPattern.FindStringSubmatch(line); len(cm) >= 2 && cm[1] != "null" {
		ev.ClassName = cm[1]
	}
	ev.Time = time.Now()
	return ev, true
}

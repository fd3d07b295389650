// Package autoplay maps UI state notifications to delayed clicks and scrolls
// that keep a short-video feed playing.
package autoplay

import (
	"fmt"
	"time"
)

// EventType is the kind of UI notification.
type EventType int

const (
	WindowStateChanged EventType = iota + 1
	ViewScrolled
)

func (t EventType) String() string {
	switch t {
	case WindowStateChanged:
		return "TYPE_WINDOW_STATE_CHANGED"
	case ViewScrolled:
		return "TYPE_VIEW_SCROLLED"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is one UI notification. ClassName is the screen class for
// WindowStateChanged and may be empty otherwise.
type Event struct {
	Type        EventType
	ClassName   string
	PackageName string
	Time        time.Time
}

// EventSink receives events from a source. Implementations must be safe to
// call from any goroutine.
type EventSink interface {
	OnEvent(Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event)

func (f EventSinkFunc) OnEvent(ev Event) { f(ev) }

// Action is a scheduled unit of work.
type Action int

const (
	ClickVideo Action = iota + 30
	ScrollForward
	CloseVideo
)

func (a Action) String() string {
	switch a {
	case ClickVideo:
		return "click_video"
	case ScrollForward:
		return "scroll_forward"
	case CloseVideo:
		return "close_video"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

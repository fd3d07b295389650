package autoplay

import (
	"sync/atomic"
	"time"
)

// State is the automation lifecycle state.
type State int32

const (
	StateStopped State = iota
	StateStarted
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateInterrupted:
		return "interrupted"
	default:
		return "stopped"
	}
}

// Lifecycle records whether the automation is active. It is shared by
// reference between the service that drives it and the components that
// read it, such as the settings launcher.
type Lifecycle struct {
	state   atomic.Int32
	changed atomic.Int64
}

// NewLifecycle returns a stopped lifecycle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

func (l *Lifecycle) set(s State) {
	l.state.Store(int32(s))
	l.changed.Store(time.Now().UnixMilli())
}

func (l *Lifecycle) MarkStarted()     { l.set(StateStarted) }
func (l *Lifecycle) MarkStopped()     { l.set(StateStopped) }
func (l *Lifecycle) MarkInterrupted() { l.set(StateInterrupted) }

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// IsStarted reports whether the automation is active.
func (l *Lifecycle) IsStarted() bool {
	return l.State() == StateStarted
}

// ChangedAt returns when the state last changed, or the zero time.
func (l *Lifecycle) ChangedAt() time.Time {
	ms := l.changed.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

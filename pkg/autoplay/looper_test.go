package autoplay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// startLooper runs l with a handler that records dispatched actions.
func startLooper(t *testing.T, l *Looper) (got func() []Action, stop func()) {
	t.Helper()
	var mu sync.Mutex
	var dispatched []Action
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = l.Run(ctx, func(ctx context.Context, a Action) {
			mu.Lock()
			dispatched = append(dispatched, a)
			mu.Unlock()
		})
	}()
	got = func() []Action {
		mu.Lock()
		defer mu.Unlock()
		return append([]Action(nil), dispatched...)
	}
	stop = func() {
		cancel()
		<-l.Done()
	}
	return got, stop
}

// onLoop runs fn on the looper goroutine and waits for it.
func onLoop(t *testing.T, l *Looper, fn func()) {
	t.Helper()
	done := make(chan struct{})
	if !l.Post(func() { fn(); close(done) }) {
		t.Fatal("looper not running")
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted work did not run")
	}
}

func TestLooperDispatchesInDeadlineOrder(t *testing.T) {
	l := NewLooper(zerolog.Nop())
	got, stop := startLooper(t, l)
	defer stop()

	onLoop(t, l, func() {
		l.SendDelayed(CloseVideo, 60*time.Millisecond)
		l.SendDelayed(ScrollForward, 10*time.Millisecond)
		l.SendDelayed(ClickVideo, 30*time.Millisecond)
	})

	time.Sleep(150 * time.Millisecond)
	want := []Action{ScrollForward, ClickVideo, CloseVideo}
	actions := got()
	if len(actions) != len(want) {
		t.Fatalf("dispatched %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("dispatch %d = %v, want %v", i, actions[i], want[i])
		}
	}
}

func TestLooperRemoveAllCancelsPending(t *testing.T) {
	l := NewLooper(zerolog.Nop())
	got, stop := startLooper(t, l)
	defer stop()

	onLoop(t, l, func() {
		l.SendDelayed(CloseVideo, 30*time.Millisecond)
		l.SendDelayed(ClickVideo, 40*time.Millisecond)
		l.RemoveAll()
		l.SendDelayed(ScrollForward, 20*time.Millisecond)
	})

	time.Sleep(120 * time.Millisecond)
	actions := got()
	if len(actions) != 1 || actions[0] != ScrollForward {
		t.Errorf("dispatched %v, want only scroll", actions)
	}
}

func TestLooperPendingOrder(t *testing.T) {
	l := NewLooper(zerolog.Nop())
	_, stop := startLooper(t, l)
	defer stop()

	var pending []Action
	onLoop(t, l, func() {
		l.SendDelayed(CloseVideo, time.Hour)
		l.SendDelayed(ScrollForward, time.Minute)
		l.SendDelayed(ClickVideo, time.Minute)
		pending = l.Pending()
	})

	want := []Action{ScrollForward, ClickVideo, CloseVideo}
	if len(pending) != len(want) {
		t.Fatalf("pending %v, want %v", pending, want)
	}
	for i := range want {
		if pending[i] != want[i] {
			t.Errorf("pending %d = %v, want %v", i, pending[i], want[i])
		}
	}
}

func TestLooperPostAfterStop(t *testing.T) {
	l := NewLooper(zerolog.Nop())
	_, stop := startLooper(t, l)
	stop()

	if l.Post(func() {}) {
		t.Error("post after stop should fail")
	}
}

func TestLooperRunsOnce(t *testing.T) {
	l := NewLooper(zerolog.Nop())
	_, stop := startLooper(t, l)
	stop()

	err := l.Run(context.Background(), func(context.Context, Action) {})
	if !errors.Is(err, ErrLooperUsed) {
		t.Errorf("second Run = %v, want ErrLooperUsed", err)
	}
}

package autoplay

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrLooperUsed is returned by Run when the looper has already run.
var ErrLooperUsed = errors.New("looper already ran")

// Handler executes a due action on the looper goroutine.
type Handler func(ctx context.Context, action Action)

// Scheduler queues delayed actions. Implementations are only called from
// the goroutine that owns them.
type Scheduler interface {
	SendDelayed(action Action, delay time.Duration)
	RemoveAll()
}

type message struct {
	id     string
	action Action
	when   time.Time
	seq    uint64
	index  int
}

// messageQueue is a min-heap on (when, seq).
type messageQueue []*message

func (q messageQueue) Len() int { return len(q) }

func (q messageQueue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}

func (q messageQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *messageQueue) Push(x any) {
	m := x.(*message)
	m.index = len(*q)
	*q = append(*q, m)
}

func (q *messageQueue) Pop() any {
	old := *q
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	m.index = -1
	*q = old[:n-1]
	return m
}

// Looper serialises posted work and delayed actions onto one goroutine.
// The queue is owned by that goroutine; other goroutines hand work over
// with Post.
type Looper struct {
	queue messageQueue
	seq   uint64
	posts chan func()
	done  chan struct{}
	ran   atomic.Bool
	now   func() time.Time
	log   zerolog.Logger
}

// NewLooper creates a looper. Call Run to start it.
func NewLooper(log zerolog.Logger) *Looper {
	return &Looper{
		posts: make(chan func(), 64),
		done:  make(chan struct{}),
		now:   time.Now,
		log:   log.With().Str("module", "looper").Logger(),
	}
}

// Post runs fn on the looper goroutine. It returns false if the looper has
// stopped.
func (l *Looper) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.posts <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed when Run returns.
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// SendDelayed queues action to run after delay. Loop goroutine only.
func (l *Looper) SendDelayed(action Action, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	l.seq++
	m := &message{
		id:     uuid.New().String(),
		action: action,
		when:   l.now().Add(delay),
		seq:    l.seq,
	}
	heap.Push(&l.queue, m)
	l.log.Debug().Str("id", m.id).Stringer("action", action).Dur("delay", delay).Msg("Message queued")
}

// RemoveAll drops every queued message. Loop goroutine only.
func (l *Looper) RemoveAll() {
	if len(l.queue) > 0 {
		l.log.Debug().Int("count", len(l.queue)).Msg("Messages removed")
	}
	for i := range l.queue {
		l.queue[i] = nil
	}
	l.queue = l.queue[:0]
}

// Pending lists queued actions in dispatch order. Loop goroutine only.
func (l *Looper) Pending() []Action {
	sorted := make(messageQueue, len(l.queue))
	copy(sorted, l.queue)
	sort.Slice(sorted, sorted.Less)
	out := make([]Action, len(sorted))
	for i, m := range sorted {
		out[i] = m.action
	}
	return out
}

// Run processes posted work and due messages until ctx is done. A looper
// runs once; later calls return ErrLooperUsed.
func (l *Looper) Run(ctx context.Context, handle Handler) error {
	if !l.ran.CompareAndSwap(false, true) {
		return ErrLooperUsed
	}
	defer close(l.done)
	for {
		var timer *time.Timer
		var due <-chan time.Time
		if len(l.queue) > 0 {
			timer = time.NewTimer(l.queue[0].when.Sub(l.now()))
			due = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			l.RemoveAll()
			return ctx.Err()
		case fn := <-l.posts:
			fn()
		case <-due:
			l.dispatchDue(ctx, handle)
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// dispatchDue runs every message whose deadline has passed. Handlers may
// queue or remove messages while this runs.
func (l *Looper) dispatchDue(ctx context.Context, handle Handler) {
	for len(l.queue) > 0 && !l.queue[0].when.After(l.now()) {
		m := heap.Pop(&l.queue).(*message)
		l.log.Debug().Str("id", m.id).Stringer("action", m.action).Msg("Message dispatched")
		handle(ctx, m.action)
		if ctx.Err() != nil {
			return
		}
	}
}

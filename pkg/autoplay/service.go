package autoplay

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"AutoPlay/pkg/a11y"

	"github.com/rs/zerolog"
)

// EventSource delivers notifications to sink until ctx is done or the
// source fails.
type EventSource interface {
	Run(ctx context.Context, sink EventSink) error
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Profile   Profile
	Window    a11y.Window
	Source    EventSource
	Lifecycle *Lifecycle
	Logger    zerolog.Logger
}

// Status is a snapshot of the running service.
type Status struct {
	State         State     `json:"state"`
	Started       bool      `json:"started"`
	ChangedAt     time.Time `json:"changedAt"`
	CurrentScreen string    `json:"currentScreen"`
	Pending       []string  `json:"pending"`
	Package       string    `json:"package"`
}

// Service runs the automation: events from the source are handed to the
// looper, where the dispatcher maps them to delayed actions.
type Service struct {
	lifecycle  *Lifecycle
	looper     *Looper
	dispatcher *Dispatcher
	finder     *a11y.Finder
	source     EventSource
	ran        atomic.Bool
	log        zerolog.Logger
}

// ErrServiceUsed is returned by Run on a service that already ran. Build a
// new Service to run again.
var ErrServiceUsed = errors.New("service already ran")

// NewService builds a service from cfg. A nil Lifecycle gets a fresh one.
func NewService(cfg ServiceConfig) *Service {
	lc := cfg.Lifecycle
	if lc == nil {
		lc = NewLifecycle()
	}
	looper := NewLooper(cfg.Logger)
	finder := a11y.NewFinder(cfg.Window, cfg.Logger)
	return &Service{
		lifecycle:  lc,
		looper:     looper,
		dispatcher: NewDispatcher(cfg.Profile, finder, looper, cfg.Logger),
		finder:     finder,
		source:     cfg.Source,
		log:        cfg.Logger.With().Str("module", "service").Logger(),
	}
}

// Lifecycle returns the lifecycle this service drives.
func (s *Service) Lifecycle() *Lifecycle {
	return s.lifecycle
}

// Finder returns the tree finder the service acts through.
func (s *Service) Finder() *a11y.Finder {
	return s.finder
}

// OnEvent hands ev to the looper.
func (s *Service) OnEvent(ev Event) {
	if !s.looper.Post(func() { s.dispatcher.OnEvent(ev) }) {
		s.log.Debug().Stringer("type", ev.Type).Msg("Event dropped, service stopped")
	}
}

// SetProfile installs p on the looper goroutine.
func (s *Service) SetProfile(p Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	if !s.looper.Post(func() { s.dispatcher.SetProfile(p) }) {
		return errors.New("service is not running")
	}
	return nil
}

// Status reads the service state on the looper goroutine.
func (s *Service) Status(ctx context.Context) (Status, error) {
	st := Status{
		State:     s.lifecycle.State(),
		Started:   s.lifecycle.IsStarted(),
		ChangedAt: s.lifecycle.ChangedAt(),
	}
	result := make(chan Status, 1)
	posted := s.looper.Post(func() {
		out := st
		out.CurrentScreen = s.dispatcher.CurrentScreen()
		out.Package = s.dispatcher.Profile().Package
		for _, a := range s.looper.Pending() {
			out.Pending = append(out.Pending, a.String())
		}
		result <- out
	})
	if !posted {
		return st, nil
	}
	select {
	case out := <-result:
		return out, nil
	case <-s.looper.Done():
		return st, nil
	case <-ctx.Done():
		return st, ctx.Err()
	}
}

// Run starts the service and blocks until ctx is done or the event source
// fails. The lifecycle is started on entry, and stopped on return, or
// interrupted when the source failed.
func (s *Service) Run(ctx context.Context) error {
	if !s.ran.CompareAndSwap(false, true) {
		return ErrServiceUsed
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.lifecycle.MarkStarted()
	s.log.Info().Msg("Service started")

	looperDone := make(chan struct{})
	go func() {
		defer close(looperDone)
		_ = s.looper.Run(ctx, s.dispatcher.Perform)
	}()

	err := s.source.Run(ctx, s)
	stopped := ctx.Err() != nil
	cancel()
	<-looperDone

	if !stopped {
		if err == nil {
			err = errors.New("event source ended")
		}
		s.lifecycle.MarkInterrupted()
		s.log.Error().Err(err).Msg("Service interrupted")
		return fmt.Errorf("event source: %w", err)
	}
	s.lifecycle.MarkStopped()
	s.log.Info().Msg("Service stopped")
	return nil
}

package autoplay

import (
	"context"

	"AutoPlay/pkg/a11y"

	"github.com/rs/zerolog"
)

// Dispatcher turns UI notifications into at most one pending state action
// and performs those actions when they come due. All methods run on the
// looper goroutine.
type Dispatcher struct {
	profile       Profile
	finder        *a11y.Finder
	scheduler     Scheduler
	currentScreen string
	log           zerolog.Logger
}

// NewDispatcher creates a dispatcher that queues onto scheduler and acts
// through finder.
func NewDispatcher(profile Profile, finder *a11y.Finder, scheduler Scheduler, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		profile:   profile,
		finder:    finder,
		scheduler: scheduler,
		log:       log.With().Str("module", "dispatcher").Logger(),
	}
}

// Profile returns the active profile.
func (d *Dispatcher) Profile() Profile {
	return d.profile
}

// SetProfile replaces the profile. It applies from the next event; already
// queued actions keep their delays.
func (d *Dispatcher) SetProfile(p Profile) {
	d.profile = p
	d.log.Info().Str("package", p.Package).Msg("Profile updated")
}

// CurrentScreen returns the last screen reported by a state change.
func (d *Dispatcher) CurrentScreen() string {
	return d.currentScreen
}

// OnEvent handles one notification.
func (d *Dispatcher) OnEvent(ev Event) {
	d.log.Debug().Stringer("type", ev.Type).Str("class", ev.ClassName).Str("package", ev.PackageName).Msg("Event received")

	switch ev.Type {
	case WindowStateChanged:
		d.currentScreen = ev.ClassName
		d.scheduler.RemoveAll()
		switch d.currentScreen {
		case d.profile.HomeScreen:
			d.scheduler.SendDelayed(ScrollForward, d.profile.ScrollDelay)
		case d.profile.VideoScreen:
			d.scheduler.SendDelayed(CloseVideo, d.profile.WatchDuration)
		}
	case ViewScrolled:
		d.scheduler.SendDelayed(ClickVideo, d.profile.ClickDelay)
	}
}

// Perform runs a due action.
func (d *Dispatcher) Perform(ctx context.Context, action Action) {
	switch action {
	case ScrollForward:
		d.scrollRecyclerView(ctx)
	case ClickVideo:
		d.clickVideo(ctx)
	case CloseVideo:
		d.closeVideo(ctx)
	default:
		d.log.Warn().Stringer("action", action).Msg("Unknown action")
	}
}

func (d *Dispatcher) clickVideo(ctx context.Context) {
	d.log.Debug().Msg("clickVideo")
	if d.currentScreen != d.profile.HomeScreen {
		d.log.Debug().Str("screen", d.currentScreen).Msg("Not on home screen")
	}
	d.actOn(ctx, d.profile.ContainerID, a11y.ActionClick)
}

func (d *Dispatcher) scrollRecyclerView(ctx context.Context) {
	d.log.Debug().Msg("scroll...")
	d.actOn(ctx, d.profile.RecyclerID, a11y.ActionScrollForward)
}

func (d *Dispatcher) closeVideo(ctx context.Context) {
	d.log.Debug().Msg("back...")
	d.actOn(ctx, d.profile.BackButtonID, a11y.ActionClick)
}

// actOn performs action on the first node with the given id. A missing node
// is skipped.
func (d *Dispatcher) actOn(ctx context.Context, id string, action a11y.Action) bool {
	node := d.finder.FindViewByID(ctx, d.profile.Package, id)
	if node == nil {
		d.log.Debug().Str("id", id).Msg("Element not found, action skipped")
		return false
	}
	defer node.Release()

	ok := node.PerformAction(ctx, action)
	if !ok {
		d.log.Debug().Str("id", id).Stringer("action", action).Msg("Action not performed")
	}
	return ok
}

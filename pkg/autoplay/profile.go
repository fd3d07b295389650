package autoplay

import (
	"errors"
	"fmt"
	"time"
)

// Defaults for the short-video app this automation was written for.
const (
	DefaultPackage       = "com.smile.gifmaker"
	DefaultHomeScreen    = "com.yxcorp.gifshow.HomeActivity"
	DefaultVideoScreen   = "com.yxcorp.gifshow.detail.PhotoDetailActivity"
	DefaultContainerID   = "container"
	DefaultRecyclerID    = "recycler_view"
	DefaultBackButtonID  = "back_btn"
	DefaultScrollDelay   = 100 * time.Millisecond
	DefaultClickDelay    = 100 * time.Millisecond
	DefaultWatchDuration = 10 * time.Second
)

// Profile names the screens and elements of the automated app, and the
// timings between actions.
type Profile struct {
	Package       string        `json:"package" mapstructure:"package"`
	HomeScreen    string        `json:"homeScreen" mapstructure:"home_screen"`
	VideoScreen   string        `json:"videoScreen" mapstructure:"video_screen"`
	ContainerID   string        `json:"containerId" mapstructure:"container_id"`
	RecyclerID    string        `json:"recyclerId" mapstructure:"recycler_id"`
	BackButtonID  string        `json:"backButtonId" mapstructure:"back_button_id"`
	ScrollDelay   time.Duration `json:"scrollDelay" mapstructure:"scroll_delay"`
	ClickDelay    time.Duration `json:"clickDelay" mapstructure:"click_delay"`
	WatchDuration time.Duration `json:"watchDuration" mapstructure:"watch_duration"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() Profile {
	return Profile{
		Package:       DefaultPackage,
		HomeScreen:    DefaultHomeScreen,
		VideoScreen:   DefaultVideoScreen,
		ContainerID:   DefaultContainerID,
		RecyclerID:    DefaultRecyclerID,
		BackButtonID:  DefaultBackButtonID,
		ScrollDelay:   DefaultScrollDelay,
		ClickDelay:    DefaultClickDelay,
		WatchDuration: DefaultWatchDuration,
	}
}

// Validate checks that every field is usable.
func (p Profile) Validate() error {
	var errs []error
	required := map[string]string{
		"package":        p.Package,
		"home_screen":    p.HomeScreen,
		"video_screen":   p.VideoScreen,
		"container_id":   p.ContainerID,
		"recycler_id":    p.RecyclerID,
		"back_button_id": p.BackButtonID,
	}
	for _, key := range []string{"package", "home_screen", "video_screen", "container_id", "recycler_id", "back_button_id"} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is empty", key))
		}
	}
	if p.ScrollDelay < 0 || p.ClickDelay < 0 || p.WatchDuration < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	return errors.Join(errs...)
}

// Package config loads AutoPlay settings from defaults, an optional config
// file and AUTOPLAY_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"AutoPlay/pkg/autoplay"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUTOPLAY_ADB_DEVICE.
const EnvPrefix = "AUTOPLAY"

// Event source modes.
const (
	SourcePoll        = "poll"
	SourceUIAutomator = "uiautomator"
)

// Config holds application configuration.
type Config struct {
	ADB    ADBConfig        `mapstructure:"adb"`
	Target autoplay.Profile `mapstructure:"target"`
	Events EventsConfig     `mapstructure:"events"`
	Tree   TreeConfig       `mapstructure:"tree"`
	Log    LogConfig        `mapstructure:"log"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// ADBConfig locates adb and the device.
type ADBConfig struct {
	Path    string        `mapstructure:"path"`
	Device  string        `mapstructure:"device"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EventsConfig selects where UI notifications come from.
type EventsConfig struct {
	Source       string        `mapstructure:"source"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// TreeConfig controls uiautomator snapshots.
type TreeConfig struct {
	DumpInterval time.Duration `mapstructure:"dump_interval"`
	DumpTimeout  time.Duration `mapstructure:"dump_timeout"`
	HandlePool   int           `mapstructure:"handle_pool"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

func setDefaults(v *viper.Viper) {
	p := autoplay.DefaultProfile()

	v.SetDefault("adb.path", "adb")
	v.SetDefault("adb.device", "")
	v.SetDefault("adb.timeout", 30*time.Second)

	v.SetDefault("target.package", p.Package)
	v.SetDefault("target.home_screen", p.HomeScreen)
	v.SetDefault("target.video_screen", p.VideoScreen)
	v.SetDefault("target.container_id", p.ContainerID)
	v.SetDefault("target.recycler_id", p.RecyclerID)
	v.SetDefault("target.back_button_id", p.BackButtonID)
	v.SetDefault("target.scroll_delay", p.ScrollDelay)
	v.SetDefault("target.click_delay", p.ClickDelay)
	v.SetDefault("target.watch_duration", p.WatchDuration)

	v.SetDefault("events.source", SourcePoll)
	v.SetDefault("events.poll_interval", time.Second)

	v.SetDefault("tree.dump_interval", 500*time.Millisecond)
	v.SetDefault("tree.dump_timeout", 10*time.Second)
	v.SetDefault("tree.handle_pool", 2048)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", true)
}

// DefaultDir returns the directory searched for config.yaml.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "autoplay")
}

// Load reads configuration. path may be empty, in which case
// $AUTOPLAY_CONFIG and then DefaultDir()/config.yaml are tried. A missing
// default file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	explicit := path != ""
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(DefaultDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.File = v.ConfigFileUsed()

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	var errs []error
	if err := c.Target.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("target: %w", err))
	}
	switch c.Events.Source {
	case SourcePoll, SourceUIAutomator:
	default:
		errs = append(errs, fmt.Errorf("events.source: unknown source %q", c.Events.Source))
	}
	if c.Events.PollInterval <= 0 {
		errs = append(errs, errors.New("events.poll_interval must be positive"))
	}
	if c.Tree.HandlePool <= 0 {
		errs = append(errs, errors.New("tree.handle_pool must be positive"))
	}
	if c.ADB.Path == "" {
		errs = append(errs, errors.New("adb.path is empty"))
	}
	return errors.Join(errs...)
}

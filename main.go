package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"AutoPlay/mcp"
	"AutoPlay/pkg/autoplay"
	"AutoPlay/pkg/config"

	"github.com/joho/godotenv"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

// cliOptions 命令行参数，非空时覆盖配置文件
type cliOptions struct {
	Device   string
	Config   string
	ADB      string
	MCP      bool
	LogLevel string
	LogFile  string
	Source   string
}

func parseFlags(args []string, output io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("autoplay", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&opts.Device, "device", "", "adb serial of the target device (default: the only connected device)")
	fs.StringVar(&opts.Config, "config", "", "config file (default: $AUTOPLAY_CONFIG or "+config.DefaultDir()+"/config.yaml)")
	fs.StringVar(&opts.ADB, "adb", "", "path to the adb binary")
	fs.BoolVar(&opts.MCP, "mcp", false, "also serve MCP over stdin/stdout")
	fs.StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&opts.LogFile, "log-file", "", "also write logs to this file (rotated)")
	fs.StringVar(&opts.Source, "source", "", "event source: poll or uiautomator")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

// applyFlags 用命令行参数覆盖配置
func applyFlags(cfg *config.Config, opts cliOptions) error {
	if opts.Device != "" {
		cfg.ADB.Device = opts.Device
	}
	if opts.ADB != "" {
		cfg.ADB.Path = opts.ADB
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
	if opts.Source != "" {
		cfg.Events.Source = opts.Source
	}
	return cfg.Validate()
}

// loggerConfig 把配置中的日志部分转成 InitLogger 的参数
func loggerConfig(c config.LogConfig) (LogConfig, error) {
	level, err := ParseLogLevel(c.Level)
	if err != nil {
		return LogConfig{}, err
	}
	lc := DefaultLogConfig()
	if c.File != "" {
		lc = PersistentLogConfig(c.File)
	}
	lc.Level = level
	lc.Console = c.Console
	return lc, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		LogError("main").Err(err).Msg("AutoPlay exited with error")
		CloseLogger()
		os.Exit(1)
	}
}

func run(opts cliOptions) error {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		LogWarn("main").Err(err).Msg("Failed to load .env")
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, opts); err != nil {
		return err
	}

	logCfg, err := loggerConfig(cfg.Log)
	if err != nil {
		return err
	}
	if err := InitLogger(logCfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer CloseLogger()

	LogAppState(StateStarting, map[string]interface{}{
		"version": version,
		"config":  cfg.File,
		"source":  cfg.Events.Source,
		"mcp":     opts.MCP,
		"logFile": GetLogFilePath(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp(cfg.ADB.Path, "", version, cfg.ADB.Timeout)
	devices, err := app.ListDevices(ctx)
	if err != nil {
		return err
	}
	deviceID, err := SelectDevice(devices, cfg.ADB.Device)
	if err != nil {
		return err
	}
	if err := app.SetDeviceID(deviceID); err != nil {
		return err
	}
	DeviceLog().Str("deviceId", deviceID).Str("adb", app.String()).Msg("Device selected")

	rt := NewRuntime(app, cfg)

	if cfg.File != "" {
		watcher := NewConfigWatcher(cfg.File, rt.ApplyConfig)
		if err := watcher.Start(); err != nil {
			LogWarn("main").Err(err).Msg("Config hot reload disabled")
		} else {
			defer watcher.Stop()
		}
	}

	LogAppState(StateReady, map[string]interface{}{"deviceId": deviceID})
	defer LogAppState(StateShuttingDown, nil)

	if !opts.MCP {
		return rt.Service.Run(ctx)
	}
	return rt.RunWithMCP(ctx)
}

// ========================================
// Runtime - 组装服务各部件
// ========================================

// Runtime 持有一次运行所需的全部部件
type Runtime struct {
	App      *App
	Window   *SnapshotWindow
	Filter   *PackageFilter
	Source   autoplay.EventSource
	Service  *autoplay.Service
	Launcher *SettingsLauncher
}

// NewRuntime 根据配置组装窗口、事件源和服务
func NewRuntime(app *App, cfg config.Config) *Runtime {
	deviceID := app.DeviceID()

	window := NewSnapshotWindow(app, WindowConfig{
		DeviceID:     deviceID,
		DumpInterval: cfg.Tree.DumpInterval,
		DumpTimeout:  cfg.Tree.DumpTimeout,
		HandlePool:   cfg.Tree.HandlePool,
	})
	filter := NewPackageFilter(cfg.Target.Package)

	var source autoplay.EventSource
	switch cfg.Events.Source {
	case config.SourceUIAutomator:
		source = &EventMonitor{Streamer: app, DeviceID: deviceID, Filter: filter}
	default:
		source = &ActivityPoller{Runner: app, DeviceID: deviceID, Interval: cfg.Events.PollInterval, Filter: filter}
	}

	lifecycle := autoplay.NewLifecycle()
	service := autoplay.NewService(autoplay.ServiceConfig{
		Profile:   cfg.Target,
		Window:    window,
		Source:    source,
		Lifecycle: lifecycle,
		Logger:    ModuleLogger("autoplay"),
	})

	// 轮询模式收不到设备的滚动事件，由本地滚动动作回送；
	// uiautomator 模式设备自己会上报，再回送会重复点击
	if cfg.Events.Source == config.SourcePoll {
		window.SetScrollObserver(service)
	}

	return &Runtime{
		App:      app,
		Window:   window,
		Filter:   filter,
		Source:   source,
		Service:  service,
		Launcher: &SettingsLauncher{Runner: app, DeviceID: deviceID, Lifecycle: lifecycle},
	}
}

// ApplyConfig 热更新目标配置
func (r *Runtime) ApplyConfig(cfg config.Config) {
	if err := r.Service.SetProfile(cfg.Target); err != nil {
		LogWarn("main").Err(err).Msg("Profile not applied")
		return
	}
	r.Filter.Set(cfg.Target.Package)
	LogAppState(StateReloaded, map[string]interface{}{
		"package":    cfg.Target.Package,
		"homeScreen": cfg.Target.HomeScreen,
	})
}

// RunWithMCP 同时运行服务和 MCP server
// 服务中断后 MCP 继续工作，可查询状态或重新打开设置页；stdin 关闭后退出
func (r *Runtime) RunWithMCP(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serviceDone := make(chan error, 1)
	go func() {
		serviceDone <- r.Service.Run(ctx)
	}()

	bridge := NewMCPBridge(r.App, r.Service, r.Window, r.Launcher, r.Filter)
	err := mcp.NewMCPServer(bridge).Start(ctx)

	cancel()
	if serviceErr := <-serviceDone; serviceErr != nil {
		LogWarn("main").Err(serviceErr).Msg("Service ended with error")
	}
	return err
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// App 持有 adb 路径和目标设备，负责所有对设备的命令调用
type App struct {
	adbPath    string
	deviceID   string
	version    string
	cmdTimeout time.Duration

	mu sync.Mutex
}

// NewApp creates a new App instance
func NewApp(adbPath, deviceID, version string, cmdTimeout time.Duration) *App {
	if cmdTimeout <= 0 {
		cmdTimeout = 30 * time.Second
	}
	return &App{
		adbPath:    resolveAdbPath(adbPath),
		deviceID:   deviceID,
		version:    version,
		cmdTimeout: cmdTimeout,
	}
}

// resolveAdbPath 优先使用 PATH 中的 adb，其次 ANDROID_HOME/platform-tools
func resolveAdbPath(configured string) string {
	if configured == "" {
		configured = "adb"
	}
	if strings.ContainsRune(configured, filepath.Separator) {
		return configured
	}
	if path, err := exec.LookPath(configured); err == nil {
		return path
	}

	name := "adb"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := os.Getenv(env); root != "" {
			candidate := filepath.Join(root, "platform-tools", name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return configured
}

// DeviceID returns the serial every command targets.
func (a *App) DeviceID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deviceID
}

// SetDeviceID switches the target device.
func (a *App) SetDeviceID(id string) error {
	if err := ValidateDeviceID(id); err != nil {
		return err
	}
	a.mu.Lock()
	a.deviceID = id
	a.mu.Unlock()
	return nil
}

// GetAppVersion returns the build version.
func (a *App) GetAppVersion() string {
	return a.version
}

// Command helper functions

// newAdbCommand 创建 adb 命令，并去掉代理环境变量 (adb server 走本地回环)
func (a *App) newAdbCommand(ctx context.Context, args ...string) *exec.Cmd {
	var cmd *exec.Cmd
	if ctx != nil {
		cmd = exec.CommandContext(ctx, a.adbPath, args...)
	} else {
		cmd = exec.Command(a.adbPath, args...)
	}

	env := os.Environ()
	newEnv := make([]string, 0, len(env))
	proxyVars := []string{"HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY", "NO_PROXY", "http_proxy", "https_proxy", "all_proxy", "no_proxy"}

	for _, e := range env {
		isProxy := false
		for _, v := range proxyVars {
			if strings.HasPrefix(e, v+"=") {
				isProxy = true
				break
			}
		}
		if !isProxy {
			newEnv = append(newEnv, e)
		}
	}
	cmd.Env = newEnv
	return cmd
}

// withTimeout 给没有 deadline 的 ctx 加上默认命令超时
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cmdTimeout)
}

// String 便于日志输出
func (a *App) String() string {
	return fmt.Sprintf("adb=%s device=%s", a.adbPath, a.DeviceID())
}

package main

import (
	"context"
	"fmt"
	"strings"

	"AutoPlay/pkg/autoplay"
)

const (
	accessibilitySettingsAction = "android.settings.ACCESSIBILITY_SETTINGS"
	generalSettingsAction       = "android.settings.SETTINGS"

	// NoticeAlreadyRunning 服务已运行时的提示
	NoticeAlreadyRunning = "service already running"
)

// SettingsLauncher 打开设备上的辅助功能设置页
type SettingsLauncher struct {
	Runner    AdbRunner
	DeviceID  string
	Lifecycle *autoplay.Lifecycle
}

// OpenSettings 服务已启动时只返回提示，否则打开辅助功能设置，失败时退回到系统设置
func (l *SettingsLauncher) OpenSettings(ctx context.Context) (string, error) {
	if l.Lifecycle != nil && l.Lifecycle.IsStarted() {
		LogInfo("launcher").Msg("Service already running, settings not opened")
		return NoticeAlreadyRunning, nil
	}

	err := l.startAction(ctx, accessibilitySettingsAction)
	if err == nil {
		return "opened accessibility settings", nil
	}
	LogWarn("launcher").Err(err).Msg("Accessibility settings unavailable, falling back")

	if fallbackErr := l.startAction(ctx, generalSettingsAction); fallbackErr != nil {
		return "", fmt.Errorf("open settings: %w", fallbackErr)
	}
	return "opened settings", nil
}

func (l *SettingsLauncher) startAction(ctx context.Context, action string) error {
	output, err := l.Runner.RunAdbCommandWithContext(ctx, l.DeviceID, "shell am start -a "+action)
	if err != nil {
		return err
	}
	// am start 找不到 Activity 时仍返回 0，只在输出里报错
	if strings.Contains(output, "Error:") || strings.Contains(output, "Exception") {
		return fmt.Errorf("am start %s: %s", action, output)
	}
	return nil
}

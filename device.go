package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	"AutoPlay/pkg/types"
)

// deviceIDPattern 用于验证 deviceId 格式
// 支持以下格式:
// - USB 序列号: 字母数字下划线，如 "1234567890ABCDEF", "emulator-5554"
// - 无线设备: IP:端口，如 "192.168.1.100:5555"
// - mDNS 设备: 如 "adb-xxxxx._adb-tls-connect._tcp."
var deviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:\-]+$`)

// ValidateDeviceID 验证 deviceId 格式是否安全
func ValidateDeviceID(deviceId string) error {
	if deviceId == "" {
		return fmt.Errorf("device ID cannot be empty")
	}
	if len(deviceId) > 256 {
		return fmt.Errorf("device ID too long (max 256 characters)")
	}
	if !deviceIDPattern.MatchString(deviceId) {
		return fmt.Errorf("invalid device ID format: contains illegal characters")
	}
	return nil
}

// AdbRunner 执行一条 adb 命令并返回输出
type AdbRunner interface {
	RunAdbCommandWithContext(ctx context.Context, deviceId string, fullCmd string) (string, error)
}

// AdbStreamer 启动长时间运行的 adb 命令并返回其 stdout
// Close 结束命令并等待退出
type AdbStreamer interface {
	StreamAdbCommand(ctx context.Context, deviceId string, args ...string) (io.ReadCloser, error)
}

// RunAdbCommandWithContext executes an arbitrary ADB command with context for timeout control
func (a *App) RunAdbCommandWithContext(ctx context.Context, deviceId string, fullCmd string) (string, error) {
	// 验证 deviceId 格式防止注入
	if err := ValidateDeviceID(deviceId); err != nil {
		return "", fmt.Errorf("invalid device ID: %w", err)
	}

	fullCmd = strings.TrimSpace(fullCmd)
	if fullCmd == "" {
		return "", nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	args := []string{"-s", deviceId}
	if strings.HasPrefix(fullCmd, "shell ") {
		args = append(args, "shell", strings.TrimPrefix(fullCmd, "shell "))
	} else {
		args = append(args, strings.Fields(fullCmd)...)
	}

	cmd := a.newAdbCommand(ctx, args...)
	output, err := cmd.CombinedOutput()
	res := string(output)
	if err != nil {
		if ctx.Err() != nil {
			return res, fmt.Errorf("command %q: %w", fullCmd, ctx.Err())
		}
		return res, fmt.Errorf("command failed: %w, output: %s", err, res)
	}
	return strings.TrimSpace(res), nil
}

// adbStream stdout 管道 + 进程
type adbStream struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (s *adbStream) Close() error {
	_ = s.ReadCloser.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// 被 Kill 或 ctx 取消，不算错误
		return nil
	}
	return err
}

// StreamAdbCommand 启动 adb 命令并返回 stdout 流 (用于 uiautomator events 等)
func (a *App) StreamAdbCommand(ctx context.Context, deviceId string, args ...string) (io.ReadCloser, error) {
	if err := ValidateDeviceID(deviceId); err != nil {
		return nil, fmt.Errorf("invalid device ID: %w", err)
	}

	cmd := a.newAdbCommand(ctx, append([]string{"-s", deviceId}, args...)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start adb %s: %w", strings.Join(args, " "), err)
	}

	DeviceLog().Str("deviceId", deviceId).Strs("args", args).Msg("Started adb stream")
	return &adbStream{ReadCloser: stdout, cmd: cmd}, nil
}

// ListDevices 解析 adb devices -l
func (a *App) ListDevices(ctx context.Context) ([]types.Device, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	output, err := a.newAdbCommand(ctx, "devices", "-l").CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to run adb devices (path: %s): %w, output: %s", a.adbPath, err, string(output))
	}
	return parseDevices(string(output)), nil
}

func parseDevices(output string) []types.Device {
	var devices []types.Device
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of devices attached") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		d := types.Device{ID: parts[0], State: parts[1]}
		for _, p := range parts[2:] {
			if kv := strings.SplitN(p, ":", 2); len(kv) == 2 && kv[0] == "model" {
				d.Model = kv[1]
			}
		}
		devices = append(devices, d)
	}
	return devices
}

// SelectDevice 未指定设备时，在唯一在线设备上运行
func SelectDevice(devices []types.Device, want string) (string, error) {
	var online []string
	for _, d := range devices {
		if d.State != "device" {
			continue
		}
		if want != "" && d.ID == want {
			return d.ID, nil
		}
		online = append(online, d.ID)
	}
	if want != "" {
		return "", fmt.Errorf("device %s is not connected", want)
	}
	switch len(online) {
	case 0:
		return "", fmt.Errorf("no online device found")
	case 1:
		return online[0], nil
	default:
		return "", fmt.Errorf("multiple devices connected (%s), pass -device", strings.Join(online, ", "))
	}
}

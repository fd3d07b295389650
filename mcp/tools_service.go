package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerServiceTools registers service and device tools
func (s *MCPServer) registerServiceTools() {
	// service_status - Automation service state
	s.server.AddTool(
		mcp.NewTool("service_status",
			mcp.WithDescription("Get the auto-play service state, current screen and pending delayed actions"),
		),
		s.handleServiceStatus,
	)

	// open_settings - Open accessibility settings on the device
	s.server.AddTool(
		mcp.NewTool("open_settings",
			mcp.WithDescription("Open the accessibility settings page on the device. Does nothing when the service is already running."),
		),
		s.handleOpenSettings,
	)

	// device_list - List connected devices
	s.server.AddTool(
		mcp.NewTool("device_list",
			mcp.WithDescription("List all Android devices visible to adb"),
		),
		s.handleDeviceList,
	)
}

// Tool handlers

func (s *MCPServer) handleServiceStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.GetServiceStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get service status: %w", err)
	}

	pending := "none"
	if len(status.Pending) > 0 {
		pending = strings.Join(status.Pending, ", ")
	}
	screen := status.CurrentScreen
	if screen == "" {
		screen = "unknown"
	}

	since := "never"
	if !status.ChangedAt.IsZero() {
		since = status.ChangedAt.Format(time.RFC3339)
	}

	result := fmt.Sprintf("Service: %s (started: %v)\n", status.State, status.Started)
	result += fmt.Sprintf("State since: %s\n", since)
	result += fmt.Sprintf("Device: %s\n", status.DeviceID)
	result += fmt.Sprintf("Target package: %s\n", status.Package)
	result += fmt.Sprintf("Current screen: %s\n", screen)
	result += fmt.Sprintf("Pending actions: %s\n", pending)
	result += fmt.Sprintf("Live node handles: %d\n", status.LiveHandles)

	jsonData, _ := json.MarshalIndent(status, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(result),
			mcp.NewTextContent(string(jsonData)),
		},
	}, nil
}

func (s *MCPServer) handleOpenSettings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message, err := s.app.OpenSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
	}, nil
}

func (s *MCPServer) handleDeviceList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	devices, err := s.app.GetDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	if len(devices) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent("No devices connected"),
			},
		}, nil
	}

	result := fmt.Sprintf("Found %d device(s):\n\n", len(devices))
	for i, d := range devices {
		model := d.Model
		if model == "" {
			model = "unknown"
		}
		result += fmt.Sprintf("%d. %s\n   Model: %s, State: %s\n", i+1, d.ID, model, d.State)
	}

	jsonData, _ := json.MarshalIndent(devices, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(result),
			mcp.NewTextContent(string(jsonData)),
		},
	}, nil
}

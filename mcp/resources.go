package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerResources registers all MCP resources
func (s *MCPServer) registerResources() {
	// Service status resource
	s.server.AddResource(
		mcp.NewResource(
			"autoplay://status",
			"Auto-play service status",
			mcp.WithMIMEType("application/json"),
		),
		s.handleStatusResource,
	)

	// Device list resource
	s.server.AddResource(
		mcp.NewResource(
			"autoplay://devices",
			"Android devices visible to adb",
			mcp.WithMIMEType("application/json"),
		),
		s.handleDevicesResource,
	)
}

// handleStatusResource handles the autoplay://status resource
func (s *MCPServer) handleStatusResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status, err := s.app.GetServiceStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get service status: %w", err)
	}
	return jsonResource(request.Params.URI, status)
}

// handleDevicesResource handles the autoplay://devices resource
func (s *MCPServer) handleDevicesResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	devices, err := s.app.GetDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}
	return jsonResource(request.Params.URI, devices)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s: %w", uri, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

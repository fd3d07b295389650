// Package mcp provides the MCP (Model Context Protocol) server for AutoPlay.
// It lets external AI clients inspect the automation service and query the
// accessibility tree of the connected device.
package mcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"AutoPlay/pkg/types"

	"github.com/mark3labs/mcp-go/server"
)

// Type aliases from shared types package
type (
	Device        = types.Device
	NodeInfo      = types.NodeInfo
	NodeQuery     = types.NodeQuery
	ServiceStatus = types.ServiceStatus
)

// Search kinds accepted by ui_find
const (
	ByID           = "id"
	ByIDList       = "id_list"
	ByText         = "text"
	ByTextEquals   = "text_equals"
	ByClass        = "class"
	ByClassAll     = "class_all"
	ByDesc         = "desc"
	ByDescContains = "desc_contains"
	ByDescAll      = "desc_all"
	ByRect         = "rect"
)

// SearchKinds lists every ui_find search kind in display order
var SearchKinds = []string{
	ByID, ByIDList, ByText, ByTextEquals, ByClass, ByClassAll,
	ByDesc, ByDescContains, ByDescAll, ByRect,
}

// AutoPlayApp interface defines the methods that MCP server needs from the main App
// This allows loose coupling between MCP and the main application
type AutoPlayApp interface {
	// Service
	GetServiceStatus(ctx context.Context) (ServiceStatus, error)
	OpenSettings(ctx context.Context) (string, error)

	// Device
	GetDevices(ctx context.Context) ([]Device, error)

	// Accessibility tree
	FindNodes(ctx context.Context, query NodeQuery) ([]NodeInfo, error)
	ClickByID(ctx context.Context, pkg, id string) (bool, error)

	// Utility
	GetAppVersion() string
}

// MCPServer wraps the MCP server and provides AutoPlay-specific functionality
type MCPServer struct {
	app       AutoPlayApp
	server    *server.MCPServer
	mu        sync.Mutex
	isRunning bool
}

// NewMCPServer creates a new MCP server for AutoPlay
func NewMCPServer(app AutoPlayApp) *MCPServer {
	mcpServer := server.NewMCPServer(
		"autoplay",
		app.GetAppVersion(),
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)

	s := &MCPServer{
		app:    app,
		server: mcpServer,
	}

	s.registerTools()
	s.registerResources()

	return s
}

// registerTools registers all MCP tools
func (s *MCPServer) registerTools() {
	// Service Tools
	s.registerServiceTools()

	// Accessibility Tree Tools
	s.registerUITools()
}

// Start serves MCP over stdin/stdout until ctx is cancelled or stdin closes
func (s *MCPServer) Start(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams (blocking)
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("MCP server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	// stdout 是协议通道，提示只能写 stderr
	fmt.Fprintln(os.Stderr, "[MCP] AutoPlay MCP Server started")
	stdio := server.NewStdioServer(s.server)
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "[MCP] Server error: %v\n", err)
		return err
	}
	return nil
}

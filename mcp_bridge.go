package main

import (
	"context"
	"fmt"
	"strings"

	"AutoPlay/mcp"
	"AutoPlay/pkg/a11y"
	"AutoPlay/pkg/autoplay"
)

// MCPBridge bridges the running service to the MCP server
type MCPBridge struct {
	app      *App
	service  *autoplay.Service
	window   *SnapshotWindow
	launcher *SettingsLauncher
	filter   *PackageFilter
}

// NewMCPBridge creates a new MCP bridge
func NewMCPBridge(app *App, service *autoplay.Service, window *SnapshotWindow, launcher *SettingsLauncher, filter *PackageFilter) *MCPBridge {
	return &MCPBridge{
		app:      app,
		service:  service,
		window:   window,
		launcher: launcher,
		filter:   filter,
	}
}

// Implement mcp.AutoPlayApp interface

func (b *MCPBridge) GetServiceStatus(ctx context.Context) (mcp.ServiceStatus, error) {
	st, err := b.service.Status(ctx)
	if err != nil {
		return mcp.ServiceStatus{}, err
	}
	pkg := st.Package
	if pkg == "" {
		pkg = b.filter.Package()
	}
	return mcp.ServiceStatus{
		State:         st.State.String(),
		Started:       st.Started,
		ChangedAt:     st.ChangedAt,
		CurrentScreen: st.CurrentScreen,
		Pending:       st.Pending,
		Package:       pkg,
		DeviceID:      b.app.DeviceID(),
		LiveHandles:   b.window.LiveHandles(),
	}, nil
}

func (b *MCPBridge) OpenSettings(ctx context.Context) (string, error) {
	return b.launcher.OpenSettings(ctx)
}

func (b *MCPBridge) GetDevices(ctx context.Context) ([]mcp.Device, error) {
	return b.app.ListDevices(ctx)
}

func (b *MCPBridge) FindNodes(ctx context.Context, query mcp.NodeQuery) ([]mcp.NodeInfo, error) {
	finder := b.service.Finder()
	pkg := b.packageFor(query.Package)

	timer := StartOperation("mcp", "ui_find").AddDetail("by", query.By).AddDetail("value", query.Value)

	var nodes []a11y.Node
	switch query.By {
	case mcp.ByID:
		nodes = single(finder.FindViewByFullID(ctx, viewID(pkg, query.Value)))
	case mcp.ByIDList:
		nodes = finder.FindViewByIDList(ctx, viewID(pkg, query.Value))
	case mcp.ByText:
		nodes = finder.FindViewByContainsText(ctx, query.Value)
	case mcp.ByTextEquals:
		nodes = finder.FindViewByEqualsText(ctx, query.Value)
	case mcp.ByClass:
		nodes = single(finder.FindViewByFirstClassName(ctx, query.Value))
	case mcp.ByClassAll:
		nodes = finder.FindViewByClassName(ctx, query.Value)
	case mcp.ByDesc:
		nodes = single(finder.FindViewByFirstEqualsContentDescription(ctx, query.Value))
	case mcp.ByDescContains:
		nodes = single(finder.FindViewByFirstContainsContentDescription(ctx, query.Value))
	case mcp.ByDescAll:
		nodes = finder.FindViewByContentDescription(ctx, query.Value)
	case mcp.ByRect:
		rect, err := a11y.ParseBounds(query.Value)
		if err != nil {
			timer.EndWithError(err)
			return nil, err
		}
		nodes = finder.FindViewByRect(ctx, rect)
	default:
		err := fmt.Errorf("unknown search kind: %s", query.By)
		timer.EndWithError(err)
		return nil, err
	}
	defer a11y.ReleaseAll(nodes)

	result := make([]mcp.NodeInfo, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, nodeInfo(n))
	}
	timer.AddDetail("found", len(result)).End()
	return result, nil
}

func (b *MCPBridge) ClickByID(ctx context.Context, pkg, id string) (bool, error) {
	node := b.service.Finder().FindViewByFullID(ctx, viewID(b.packageFor(pkg), id))
	if node == nil {
		return false, nil
	}
	defer node.Release()
	return a11y.ClickView(ctx, node), nil
}

func (b *MCPBridge) GetAppVersion() string {
	return b.app.GetAppVersion()
}

func (b *MCPBridge) packageFor(pkg string) string {
	if pkg != "" {
		return pkg
	}
	return b.filter.Package()
}

// viewID 已带 ":id/" 的视为完整 id
func viewID(pkg, id string) string {
	if strings.Contains(id, ":id/") {
		return id
	}
	return a11y.FullViewID(pkg, id)
}

func single(n a11y.Node) []a11y.Node {
	if n == nil {
		return nil
	}
	return []a11y.Node{n}
}

func nodeInfo(n a11y.Node) mcp.NodeInfo {
	return mcp.NodeInfo{
		ViewID:      n.ViewID(),
		Class:       n.ClassName(),
		Text:        n.Text(),
		ContentDesc: n.ContentDescription(),
		Bounds:      n.BoundsInScreen().String(),
		Clickable:   n.Clickable(),
		ChildCount:  n.ChildCount(),
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerUITools registers accessibility tree tools
func (s *MCPServer) registerUITools() {
	// ui_find - Search the active window
	s.server.AddTool(
		mcp.NewTool("ui_find",
			mcp.WithDescription(`Search the accessibility tree of the active window.

Search kinds:
- id: first node with view id (package + ":id/" + value)
- id_list: every node with view id (list items sharing one id)
- text / text_equals: nodes whose text or content description contains value (any case) / whose text equals value
- class / class_all: first / every node with class name
- desc / desc_contains / desc_all: content description equals / contains / every exact match
- rect: nodes whose bounds contain "[l,t][r,b]"`),
			mcp.WithString("by",
				mcp.Required(),
				mcp.Enum(SearchKinds...),
				mcp.Description("Search kind"),
			),
			mcp.WithString("value",
				mcp.Required(),
				mcp.Description("Search term, bounds \"[l,t][r,b]\" for rect"),
			),
			mcp.WithString("package",
				mcp.Description("Package for id lookups (default: target package)"),
			),
		),
		s.handleUIFind,
	)

	// ui_click - Find by id and click
	s.server.AddTool(
		mcp.NewTool("ui_click",
			mcp.WithDescription("Find a node by view id and click it. When the node is not clickable the click goes to its nearest clickable ancestor."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("View id without package prefix (e.g. back_btn)"),
			),
			mcp.WithString("package",
				mcp.Description("Package for the id (default: target package)"),
			),
		),
		s.handleUIClick,
	)
}

// Tool handlers

func (s *MCPServer) handleUIFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	by, _ := args["by"].(string)
	value, _ := args["value"].(string)
	pkg, _ := args["package"].(string)

	if !slices.Contains(SearchKinds, by) {
		return nil, fmt.Errorf("by must be one of: %s", strings.Join(SearchKinds, ", "))
	}
	if strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("value is required")
	}

	query := NodeQuery{By: by, Package: pkg, Value: strings.TrimSpace(value)}

	nodes, err := s.app.FindNodes(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ui_find failed: %w", err)
	}
	if nodes == nil {
		nodes = []NodeInfo{}
	}

	result := fmt.Sprintf("Found %d node(s) by %s %q\n", len(nodes), by, value)
	for i, n := range nodes {
		result += fmt.Sprintf("%d. %s %s", i+1, n.Class, n.Bounds)
		if n.ViewID != "" {
			result += " id=" + n.ViewID
		}
		if n.Text != "" {
			result += fmt.Sprintf(" text=%q", n.Text)
		}
		if n.ContentDesc != "" {
			result += fmt.Sprintf(" desc=%q", n.ContentDesc)
		}
		result += "\n"
	}

	jsonData, _ := json.MarshalIndent(nodes, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(result),
			mcp.NewTextContent(string(jsonData)),
		},
	}, nil
}

func (s *MCPServer) handleUIClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["id"].(string)
	if !ok || id == "" {
		return nil, fmt.Errorf("id is required")
	}
	pkg, _ := args["package"].(string)

	clicked, err := s.app.ClickByID(ctx, pkg, id)
	if err != nil {
		return nil, fmt.Errorf("ui_click failed: %w", err)
	}
	if !clicked {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(fmt.Sprintf("No clickable node found for id %s", id)),
			},
			IsError: true,
		}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf("Clicked %s", id)),
		},
	}, nil
}

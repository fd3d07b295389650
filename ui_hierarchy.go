package main

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

// UI Hierarchy structures for parsing uiautomator dump
type UINode struct {
	XMLName     xml.Name `xml:"node" json:"-"`
	Text        string   `xml:"text,attr" json:"text"`
	ResourceID  string   `xml:"resource-id,attr" json:"resourceId"`
	Class       string   `xml:"class,attr" json:"class"`
	Package     string   `xml:"package,attr" json:"package"`
	ContentDesc string   `xml:"content-desc,attr" json:"contentDesc"`
	Clickable   bool     `xml:"clickable,attr" json:"clickable"`
	Enabled     bool     `xml:"enabled,attr" json:"enabled"`
	Scrollable  bool     `xml:"scrollable,attr" json:"scrollable"`
	Bounds      string   `xml:"bounds,attr" json:"bounds"`
	Nodes       []UINode `xml:"node" json:"nodes"`
}

type UIHierarchy struct {
	XMLName xml.Name `xml:"hierarchy"`
	Nodes   []UINode `xml:"node"`
}

const (
	uiDumpFile       = "/data/local/tmp/autoplay_view.xml"
	uiDumpMaxRetries = 3
)

// DumpUIHierarchy 在设备上执行 uiautomator dump 并解析
// uiautomator 偶尔卡住，失败时 pkill 后重试
func DumpUIHierarchy(ctx context.Context, runner AdbRunner, deviceId string) (*UINode, error) {
	var xmlContent string
	var err error

	for i := 0; i < uiDumpMaxRetries; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if i > 0 {
			_, _ = runner.RunAdbCommandWithContext(ctx, deviceId, "shell pkill uiautomator")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(500 * time.Millisecond):
			}
		}

		// && 保证 dump 成功才 cat
		combinedCmd := fmt.Sprintf("shell uiautomator dump %s && cat %s", uiDumpFile, uiDumpFile)
		xmlContent, err = runner.RunAdbCommandWithContext(ctx, deviceId, combinedCmd)
		if err == nil && strings.Contains(xmlContent, "<?xml") {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = fmt.Errorf("no XML in dump output")
		}
		LogDebug("window").Int("retry", i+1).Int("maxRetries", uiDumpMaxRetries).Err(err).Msg("UI dump retry")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to dump UI after %d attempts: %w", uiDumpMaxRetries, err)
	}
	return ParseUIHierarchy(xmlContent)
}

// ParseUIHierarchy 清理 dump 输出并解析为单一根节点
func ParseUIHierarchy(xmlContent string) (*UINode, error) {
	// adb 有时在前后追加额外输出
	if startIdx := strings.Index(xmlContent, "<?xml"); startIdx != -1 {
		xmlContent = xmlContent[startIdx:]
	}
	if endIdx := strings.LastIndex(xmlContent, ">"); endIdx != -1 && endIdx < len(xmlContent)-1 {
		xmlContent = xmlContent[:endIdx+1]
	}

	// 修复未转义的 &，Go 的 regexp 不支持 lookahead，用替换链
	xmlContent = strings.ReplaceAll(xmlContent, "&", "&amp;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;amp;", "&amp;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;lt;", "&lt;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;gt;", "&gt;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;quot;", "&quot;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;apos;", "&apos;")
	xmlContent = strings.ReplaceAll(xmlContent, "&amp;#", "&#")

	var root UIHierarchy
	if err := xml.Unmarshal([]byte(xmlContent), &root); err != nil {
		return nil, fmt.Errorf("failed to parse UI XML (length: %d): %w", len(xmlContent), err)
	}

	switch len(root.Nodes) {
	case 0:
		return nil, fmt.Errorf("UI hierarchy is empty")
	case 1:
		return &root.Nodes[0], nil
	default:
		// 多窗口时包一层虚拟根
		return &UINode{
			Class:   "android.view.View",
			Package: root.Nodes[0].Package,
			Bounds:  "[0,0][0,0]",
			Nodes:   root.Nodes,
		}, nil
	}
}

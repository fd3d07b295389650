package main

import (
	"context"
	"testing"
	"time"

	"AutoPlay/mcp"
	"AutoPlay/pkg/autoplay"

	"github.com/rs/zerolog"
)

// Integration tests for MCP Bridge
// These run the real service, window and finder against a fake adb runner

func setupTestBridge(t *testing.T) (*MCPBridge, *fakeRunner) {
	t.Helper()
	runner := dumpRunner()
	app := NewApp("adb", "emulator-5554", "1.2.3", 0)
	window := newTestWindow(runner, 0)
	filter := NewPackageFilter(testPkg)
	service := autoplay.NewService(autoplay.ServiceConfig{
		Profile: autoplay.DefaultProfile(),
		Window:  window,
		Source:  blockingSource{},
		Logger:  zerolog.Nop(),
	})
	launcher := &SettingsLauncher{Runner: runner, DeviceID: app.DeviceID(), Lifecycle: service.Lifecycle()}
	return NewMCPBridge(app, service, window, launcher, filter), runner
}

func TestMCPBridge_Interface(t *testing.T) {
	var _ mcp.AutoPlayApp = (*MCPBridge)(nil)
}

func TestMCPBridge_FindNodes(t *testing.T) {
	bridge, _ := setupTestBridge(t)
	ctx := context.Background()

	tests := []struct {
		by        string
		value     string
		wantCount int
		wantID    string
	}{
		{mcp.ByID, "recycler_view", 1, testPkg + ":id/recycler_view"},
		{mcp.ByID, testPkg + ":id/back_btn", 1, testPkg + ":id/back_btn"},
		{mcp.ByID, "missing", 0, ""},
		{mcp.ByIDList, "container", 2, testPkg + ":id/container"},
		{mcp.ByText, "hot", 1, testPkg + ":id/title"},
		{mcp.ByTextEquals, "Featured & Hot", 1, testPkg + ":id/title"},
		{mcp.ByTextEquals, "Featured", 0, ""},
		{mcp.ByClass, "android.widget.FrameLayout", 1, testPkg + ":id/container"},
		{mcp.ByClassAll, "android.widget.FrameLayout", 2, testPkg + ":id/container"},
		{mcp.ByDesc, "Back", 1, testPkg + ":id/back_btn"},
		{mcp.ByDescContains, "Video", 1, testPkg + ":id/container"},
		{mcp.ByDescAll, "Video two", 1, testPkg + ":id/container"},
		{mcp.ByRect, "[600,300][700,400]", 1, testPkg + ":id/recycler_view"},
	}

	for _, tt := range tests {
		t.Run(tt.by+"/"+tt.value, func(t *testing.T) {
			nodes, err := bridge.FindNodes(ctx, mcp.NodeQuery{By: tt.by, Value: tt.value})
			if err != nil {
				t.Fatalf("FindNodes failed: %v", err)
			}
			if len(nodes) != tt.wantCount {
				t.Fatalf("Expected %d nodes, got %d: %+v", tt.wantCount, len(nodes), nodes)
			}
			if tt.wantCount > 0 && nodes[0].ViewID != tt.wantID {
				t.Errorf("First node id = %q, want %q", nodes[0].ViewID, tt.wantID)
			}
			if live := bridge.window.LiveHandles(); live != 0 {
				t.Errorf("LiveHandles = %d after FindNodes, want 0", live)
			}
		})
	}
}

func TestMCPBridge_FindNodesSummary(t *testing.T) {
	bridge, _ := setupTestBridge(t)

	nodes, err := bridge.FindNodes(context.Background(), mcp.NodeQuery{By: mcp.ByID, Value: "recycler_view"})
	if err != nil || len(nodes) != 1 {
		t.Fatalf("FindNodes = (%v, %v)", nodes, err)
	}
	want := mcp.NodeInfo{
		ViewID:     testPkg + ":id/recycler_view",
		Class:      "androidx.recyclerview.widget.RecyclerView",
		Bounds:     "[0,200][1080,2200]",
		ChildCount: 2,
	}
	if nodes[0] != want {
		t.Errorf("NodeInfo = %+v, want %+v", nodes[0], want)
	}
}

func TestMCPBridge_FindNodesErrors(t *testing.T) {
	bridge, _ := setupTestBridge(t)
	ctx := context.Background()

	if _, err := bridge.FindNodes(ctx, mcp.NodeQuery{By: mcp.ByRect, Value: "0,0,10,10"}); err == nil {
		t.Error("Expected error for malformed bounds")
	}
	if _, err := bridge.FindNodes(ctx, mcp.NodeQuery{By: mcp.ByRect, Value: "[0,0][99999999999999999999,10]"}); err == nil {
		t.Error("Expected error for out-of-range bounds")
	}
	if _, err := bridge.FindNodes(ctx, mcp.NodeQuery{By: "xpath", Value: "//node"}); err == nil {
		t.Error("Expected error for unknown search kind")
	}
}

func TestMCPBridge_ClickByID(t *testing.T) {
	bridge, runner := setupTestBridge(t)
	ctx := context.Background()

	clicked, err := bridge.ClickByID(ctx, "", "back_btn")
	if err != nil || !clicked {
		t.Fatalf("ClickByID = (%v, %v)", clicked, err)
	}
	taps := runner.CommandsWithPrefix("shell input tap")
	if len(taps) != 1 || taps[0] != "shell input tap 540 100" {
		t.Errorf("Tap commands = %q", taps)
	}

	clicked, err = bridge.ClickByID(ctx, "com.other.app", "back_btn")
	if err != nil || clicked {
		t.Errorf("ClickByID in other package = (%v, %v), want no click", clicked, err)
	}
	if live := bridge.window.LiveHandles(); live != 0 {
		t.Errorf("LiveHandles = %d, want 0", live)
	}
}

func TestMCPBridge_ServiceStatus(t *testing.T) {
	bridge, _ := setupTestBridge(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.service.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !bridge.service.Lifecycle().IsStarted() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	st, err := bridge.GetServiceStatus(ctx)
	if err != nil {
		t.Fatalf("GetServiceStatus failed: %v", err)
	}
	if st.State != "started" || !st.Started {
		t.Errorf("State = %q started=%v", st.State, st.Started)
	}
	if st.DeviceID != "emulator-5554" || st.Package != testPkg {
		t.Errorf("Status = %+v", st)
	}
	startedAt := st.ChangedAt
	if startedAt.IsZero() {
		t.Error("ChangedAt should be set once the service started")
	}

	msg, err := bridge.OpenSettings(ctx)
	if err != nil || msg != NoticeAlreadyRunning {
		t.Errorf("OpenSettings while running = (%q, %v)", msg, err)
	}

	cancel()
	<-done

	st, err = bridge.GetServiceStatus(context.Background())
	if err != nil {
		t.Fatalf("GetServiceStatus after stop failed: %v", err)
	}
	if st.State != "stopped" || st.Package != testPkg {
		t.Errorf("Status after stop = %+v", st)
	}
	if st.ChangedAt.Before(startedAt) {
		t.Errorf("ChangedAt went backwards: %v before %v", st.ChangedAt, startedAt)
	}
}

func TestMCPBridge_Version(t *testing.T) {
	bridge, _ := setupTestBridge(t)
	if v := bridge.GetAppVersion(); v != "1.2.3" {
		t.Errorf("GetAppVersion = %q", v)
	}
}

package mcp

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockCall records a method call for verification
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAutoPlayApp is a mock implementation of AutoPlayApp for testing
type MockAutoPlayApp struct {
	mu    sync.Mutex
	Calls []MockCall

	// Service
	GetServiceStatusResult ServiceStatus
	GetServiceStatusError  error
	OpenSettingsResult     string
	OpenSettingsError      error

	// Device
	GetDevicesResult []Device
	GetDevicesError  error

	// Accessibility tree
	FindNodesResult []NodeInfo
	FindNodesError  error
	ClickByIDResult bool
	ClickByIDError  error

	// Utility
	AppVersion string
}

// NewMockAutoPlayApp creates a new MockAutoPlayApp with sensible defaults
func NewMockAutoPlayApp() *MockAutoPlayApp {
	return &MockAutoPlayApp{
		Calls:              make([]MockCall, 0),
		AppVersion:         "1.0.0-test",
		OpenSettingsResult: "opened accessibility settings",
		GetDevicesResult:   []Device{},
		FindNodesResult:    []NodeInfo{},
	}
}

// recordCall records a method call
func (m *MockAutoPlayApp) recordCall(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// GetCalls returns all recorded calls
func (m *MockAutoPlayApp) GetCalls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.Calls...)
}

// WasMethodCalled checks if a method was called
func (m *MockAutoPlayApp) WasMethodCalled(method string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.Calls {
		if call.Method == method {
			return true
		}
	}
	return false
}

// GetLastCallByMethod returns the last call to a specific method
func (m *MockAutoPlayApp) GetLastCallByMethod(method string) *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == method {
			call := m.Calls[i]
			return &call
		}
	}
	return nil
}

// === AutoPlayApp implementation ===

func (m *MockAutoPlayApp) GetServiceStatus(ctx context.Context) (ServiceStatus, error) {
	m.recordCall("GetServiceStatus")
	return m.GetServiceStatusResult, m.GetServiceStatusError
}

func (m *MockAutoPlayApp) OpenSettings(ctx context.Context) (string, error) {
	m.recordCall("OpenSettings")
	return m.OpenSettingsResult, m.OpenSettingsError
}

func (m *MockAutoPlayApp) GetDevices(ctx context.Context) ([]Device, error) {
	m.recordCall("GetDevices")
	return m.GetDevicesResult, m.GetDevicesError
}

func (m *MockAutoPlayApp) FindNodes(ctx context.Context, query NodeQuery) ([]NodeInfo, error) {
	m.recordCall("FindNodes", query)
	return m.FindNodesResult, m.FindNodesError
}

func (m *MockAutoPlayApp) ClickByID(ctx context.Context, pkg, id string) (bool, error) {
	m.recordCall("ClickByID", pkg, id)
	return m.ClickByIDResult, m.ClickByIDError
}

func (m *MockAutoPlayApp) GetAppVersion() string {
	m.recordCall("GetAppVersion")
	return m.AppVersion
}

// === Test Helper Functions ===

// SetupWithDevices configures mock with sample devices
func (m *MockAutoPlayApp) SetupWithDevices(devices ...Device) *MockAutoPlayApp {
	m.GetDevicesResult = devices
	return m
}

// SetupWithNodes configures mock with search results
func (m *MockAutoPlayApp) SetupWithNodes(nodes ...NodeInfo) *MockAutoPlayApp {
	m.FindNodesResult = nodes
	return m
}

// SetupWithError configures a specific method to return an error
func (m *MockAutoPlayApp) SetupWithError(method string, err error) *MockAutoPlayApp {
	switch method {
	case "GetServiceStatus":
		m.GetServiceStatusError = err
	case "OpenSettings":
		m.OpenSettingsError = err
	case "GetDevices":
		m.GetDevicesError = err
	case "FindNodes":
		m.FindNodesError = err
	case "ClickByID":
		m.ClickByIDError = err
	}
	return m
}

// Common test errors
var (
	ErrDeviceOffline = errors.New("device offline")
	ErrNoWindow      = errors.New("no active window")
)

// Sample test data factories

// SampleDevice returns a sample device for testing
func SampleDevice(id string) Device {
	return Device{
		ID:    id,
		State: "device",
		Model: "Pixel_6",
	}
}

// SampleNode returns a sample node summary for testing
func SampleNode(viewID, class string) NodeInfo {
	return NodeInfo{
		ViewID:     viewID,
		Class:      class,
		Bounds:     "[0,200][1080,1800]",
		Clickable:  true,
		ChildCount: 2,
	}
}

// SampleStatus returns a running service status for testing
func SampleStatus() ServiceStatus {
	return ServiceStatus{
		State:         "started",
		Started:       true,
		ChangedAt:     time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
		CurrentScreen: "com.yxcorp.gifshow.HomeActivity",
		Pending:       []string{"scroll_forward"},
		Package:       "com.smile.gifmaker",
		DeviceID:      "emulator-5554",
	}
}

package types

import "time"

// Device represents an Android device as listed by adb
type Device struct {
	ID    string `json:"id"`
	State string `json:"state"` // "device", "offline", "unauthorized"
	Model string `json:"model,omitempty"`
}

// NodeInfo is a detached summary of one accessibility node, safe to keep
// after the node handle has been released
type NodeInfo struct {
	ViewID      string `json:"viewId,omitempty"`
	Class       string `json:"class"`
	Text        string `json:"text,omitempty"`
	ContentDesc string `json:"contentDesc,omitempty"`
	Bounds      string `json:"bounds"`
	Clickable   bool   `json:"clickable"`
	ChildCount  int    `json:"childCount"`
}

// ServiceStatus reports the automation service state
type ServiceStatus struct {
	State         string    `json:"state"`
	Started       bool      `json:"started"`
	ChangedAt     time.Time `json:"changedAt"` // last state change, zero if never
	CurrentScreen string    `json:"currentScreen"`
	Pending       []string  `json:"pending"`
	Package       string    `json:"package"`
	DeviceID      string    `json:"deviceId"`
	LiveHandles   int64     `json:"liveHandles"`
}

// NodeQuery selects accessibility nodes for a tree search.
// Value is a bounds string "[l,t][r,b]" when By is "rect".
type NodeQuery struct {
	By      string `json:"by"`
	Package string `json:"package,omitempty"`
	Value   string `json:"value"`
}

package dto

import "sitesafety/internal/model"

// Message types sent to viewers over the display WebSocket.
const (
	TypeFrame  = "frame"
	TypeStatus = "status"
)

// Status message levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// FrameMessage replaces the frame shown for a streaming mode.
type FrameMessage struct {
	Type   string     `json:"type"`
	Mode   model.Mode `json:"mode"`
	RunID  string     `json:"run_id"`
	Count  int        `json:"count"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
	// Image is a base64 encoded JPEG.
	Image string `json:"image"`
}

// StatusMessage reports a state transition or a per-frame error.
type StatusMessage struct {
	Type    string            `json:"type"`
	Mode    model.Mode        `json:"mode"`
	RunID   string            `json:"run_id,omitempty"`
	State   model.StreamState `json:"state,omitempty"`
	Level   string            `json:"level"`
	Message string            `json:"message"`
}

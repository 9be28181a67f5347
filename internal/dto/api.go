package dto

import (
	"encoding/json"
	"time"

	"sitesafety/internal/model"
)

// AuditResponse is returned by the Image Audit endpoint. Images are base64 JPEGs.
type AuditResponse struct {
	Outcome    model.Outcome     `json:"outcome"`
	Message    string            `json:"message"`
	Count      int               `json:"count"`
	Detections []DetectionResult `json:"detections"`
	Original   string            `json:"original"`
	Annotated  string            `json:"annotated"`
}

// Status describes the dashboard state.
type Status struct {
	ModelLoaded bool              `json:"model_loaded"`
	ModelPath   string            `json:"model_path"`
	ModelError  string            `json:"model_error,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	Mode        model.Mode        `json:"mode"`
	Modes       []string          `json:"modes"`
	Confidence  float64           `json:"confidence"`
	LiveActive  bool              `json:"live_active"`
	// State is the active run's stream state, idle without one.
	State       model.StreamState `json:"state"`
	ActiveRun   *RunInfo          `json:"active_run,omitempty"`
	ImageTypes  []string          `json:"image_types"`
	VideoTypes  []string          `json:"video_types"`
	Viewers     int               `json:"viewers"`
}

// SettingsRequest changes the mode, the threshold or both. Absent fields are kept.
type SettingsRequest struct {
	Mode       *string  `json:"mode"`
	Confidence *float64 `json:"confidence"`
}

// RunResponse is returned when a streaming run starts.
type RunResponse struct {
	RunID string     `json:"run_id"`
	Mode  model.Mode `json:"mode"`
}

// ErrorResponse carries an error and, for a missing model, how to fix it.
type ErrorResponse struct {
	Error       string `json:"error"`
	Remediation string `json:"remediation,omitempty"`
}

// RunInfo is a journal entry as shown on the dashboard.
type RunInfo struct {
	model.Run
	Duration time.Duration `json:"-"`
}

// NewRunInfo wraps a run, measuring open runs up to now.
func NewRunInfo(run model.Run, now time.Time) RunInfo {
	end := run.EndedAt
	if end.IsZero() {
		end = now
	}
	return RunInfo{Run: run, Duration: end.Sub(run.StartedAt)}
}

// MarshalJSON customizes JSON output for RunInfo to format times and duration.
func (r RunInfo) MarshalJSON() ([]byte, error) {
	type Alias model.Run
	ended := ""
	if r.Finished() {
		ended = r.EndedAt.Format("15:04:05")
	}
	return json.Marshal(&struct {
		Alias
		StartedAt string  `json:"started_at"`
		EndedAt   string  `json:"ended_at"`
		Seconds   float64 `json:"seconds"`
	}{
		Alias:     Alias(r.Run),
		StartedAt: r.StartedAt.Format("02-01-2006 15:04:05"),
		EndedAt:   ended,
		Seconds:   r.Duration.Round(time.Millisecond).Seconds(),
	})
}

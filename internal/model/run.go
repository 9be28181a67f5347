package model

import "time"

// StreamState is a step of the streaming mode state machine:
// Idle -> Opening -> Streaming -> {Exhausted | Stopped | Errored} -> Released.
type StreamState string

const (
	StateIdle      StreamState = "idle"
	StateOpening   StreamState = "opening"
	StateStreaming StreamState = "streaming"
	StateExhausted StreamState = "exhausted"
	StateStopped   StreamState = "stopped"
	StateErrored   StreamState = "errored"
	StateReleased  StreamState = "released"
	StateOffline   StreamState = "offline"
)

// Terminal reports whether the state ends the frame loop.
func (s StreamState) Terminal() bool {
	return s == StateExhausted || s == StateStopped || s == StateErrored
}

// Outcome classifies a finished Image Audit.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
)

// Run is a session journal entry for one mode execution.
type Run struct {
	ID           string      `json:"id"`
	Mode         Mode        `json:"mode"`
	Source       string      `json:"source"`
	StartedAt    time.Time   `json:"started_at"`
	EndedAt      time.Time   `json:"ended_at"`
	Frames       int         `json:"frames"`
	FailedFrames int         `json:"failed_frames"`
	LastCount    int         `json:"last_count"`
	State        StreamState `json:"state"`
	Error        string      `json:"error,omitempty"`
}

// Finished reports whether the run has reached a terminal state.
func (r *Run) Finished() bool {
	return !r.EndedAt.IsZero()
}

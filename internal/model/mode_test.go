package model

import "testing"

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(string(m))
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %q, %v", m, got, err)
		}
	}
	if _, err := ParseMode("Thermal"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestModeStreaming(t *testing.T) {
	tests := []struct {
		mode     Mode
		expected bool
	}{
		{ModeImageAudit, false},
		{ModeVideo, true},
		{ModeLive, true},
	}
	for _, tt := range tests {
		if got := tt.mode.Streaming(); got != tt.expected {
			t.Errorf("%s.Streaming() = %v, expected %v", tt.mode, got, tt.expected)
		}
	}
}

func TestStreamStateTerminal(t *testing.T) {
	terminal := map[StreamState]bool{
		StateIdle:      false,
		StateOpening:   false,
		StateStreaming: false,
		StateExhausted: true,
		StateStopped:   true,
		StateErrored:   true,
		StateReleased:  false,
		StateOffline:   false,
	}
	for state, expected := range terminal {
		if got := state.Terminal(); got != expected {
			t.Errorf("%s.Terminal() = %v, expected %v", state, got, expected)
		}
	}
}

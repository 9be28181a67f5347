package dto

import (
	"encoding/json"
	"image"
	"strings"
	"testing"
	"time"

	"sitesafety/internal/model"
)

func TestRunInfo_MarshalJSON(t *testing.T) {
	started := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	run := model.Run{
		ID:        "run-1",
		Mode:      model.ModeVideo,
		StartedAt: started,
		EndedAt:   started.Add(90 * time.Second),
		Frames:    42,
		State:     model.StateExhausted,
	}

	data, err := json.Marshal(NewRunInfo(run, time.Now()))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got["started_at"] != "01-03-2026 08:30:00" {
		t.Errorf("Unexpected started_at %v", got["started_at"])
	}
	if got["ended_at"] != "08:31:30" {
		t.Errorf("Unexpected ended_at %v", got["ended_at"])
	}
	if got["seconds"] != 90.0 {
		t.Errorf("Expected 90 seconds, got %v", got["seconds"])
	}
	if got["frames"] != 42.0 || got["mode"] != string(model.ModeVideo) {
		t.Errorf("Run fields missing: %s", data)
	}
}

func TestRunInfo_OpenRun(t *testing.T) {
	started := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	info := NewRunInfo(model.Run{ID: "live", StartedAt: started}, started.Add(5*time.Second))

	if info.Duration != 5*time.Second {
		t.Errorf("Expected 5s for an open run, got %v", info.Duration)
	}
	data, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"ended_at":""`) {
		t.Errorf("Expected empty ended_at, got %s", data)
	}
}

func TestFromDetections(t *testing.T) {
	got := FromDetections([]model.Detection{
		{Label: "helmet", Confidence: 0.9, Box: image.Rect(10, 20, 40, 60)},
	})
	if len(got) != 1 {
		t.Fatalf("Expected 1 detection, got %d", len(got))
	}
	want := DetectionResult{Label: "helmet", Confidence: 0.9, X: 10, Y: 20, Width: 30, Height: 40}
	if got[0] != want {
		t.Errorf("Expected %+v, got %+v", want, got[0])
	}
	if FromDetections(nil) == nil {
		t.Error("Expected an empty slice, not nil")
	}
}

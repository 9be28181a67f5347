package pipeline_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"sitesafety/internal/model"
	"sitesafety/internal/pipeline"
	"sitesafety/internal/pipeline/pipelinetest"
)

func scriptedModel() *pipelinetest.Model {
	return &pipelinetest.Model{
		Detections: []model.Detection{
			{ClassID: 0, Label: "helmet", Confidence: 0.95, Box: image.Rect(4, 4, 20, 20)},
			{ClassID: 1, Label: "head", Confidence: 0.80, Box: image.Rect(24, 4, 40, 20)},
			{ClassID: 2, Label: "person", Confidence: 0.55, Box: image.Rect(2, 22, 30, 46)},
			{ClassID: 0, Label: "helmet", Confidence: 0.41, Box: image.Rect(40, 10, 60, 30)},
			{ClassID: 1, Label: "head", Confidence: 0.20, Box: image.Rect(44, 30, 60, 46)},
			{ClassID: 2, Label: "person", Confidence: 0.05, Box: image.Rect(10, 10, 12, 12)},
		},
	}
}

func TestProcess_CountsDetections(t *testing.T) {
	p := pipeline.NewFrameProcessor(scriptedModel())
	frame := pipelinetest.Frame(64, 48, color.White)

	res, err := p.Process(frame, 0.40)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Count != 4 {
		t.Errorf("Expected 4 detections at 0.40, got %d", res.Count)
	}
	if res.Count != len(res.Detections) {
		t.Errorf("Count %d does not match %d detections", res.Count, len(res.Detections))
	}
}

func TestProcess_HigherThresholdNeverIncreasesCount(t *testing.T) {
	p := pipeline.NewFrameProcessor(scriptedModel())
	frame := pipelinetest.Frame(64, 48, color.White)

	prev := -1
	for step := 0; step <= 100; step++ {
		threshold := float64(step) / 100
		res, err := p.Process(frame, threshold)
		if err != nil {
			t.Fatalf("Process(%.2f) failed: %v", threshold, err)
		}
		if prev >= 0 && res.Count > prev {
			t.Fatalf("Count rose from %d to %d at threshold %.2f", prev, res.Count, threshold)
		}
		prev = res.Count
	}
	if prev != 0 {
		t.Errorf("Expected no detections at threshold 1.0, got %d", prev)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	p := pipeline.NewFrameProcessor(scriptedModel())
	frame := pipelinetest.Frame(64, 48, color.White)

	first, err := p.Process(frame, 0.30)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		res, err := p.Process(frame, 0.30)
		if err != nil {
			t.Fatalf("Process failed: %v", err)
		}
		if res.Count != first.Count {
			t.Errorf("Run %d: count %d, first run %d", i, res.Count, first.Count)
		}
	}
}

func TestProcess_AnnotatedKeepsDimensionsAndInput(t *testing.T) {
	p := pipeline.NewFrameProcessor(scriptedModel())
	frame := pipelinetest.Frame(64, 48, color.White)
	before := append([]byte(nil), frame.Pix...)

	res, err := p.Process(frame, 0.0)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if got := res.Annotated.Bounds().Size(); got != frame.Bounds().Size() {
		t.Errorf("Annotated size %v, frame size %v", got, frame.Bounds().Size())
	}
	if !bytes.Equal(before, frame.Pix) {
		t.Error("Input frame was modified")
	}
	if res.Annotated == image.Image(frame) {
		t.Error("Annotated image must be a copy of the frame")
	}
}

func TestProcess_ZeroDetectionsIsNotError(t *testing.T) {
	m := &pipelinetest.Model{}
	p := pipeline.NewFrameProcessor(m)

	res, err := p.Process(pipelinetest.Frame(8, 8, color.Black), 0.40)
	if err != nil {
		t.Fatalf("Expected no error for an empty scene, got %v", err)
	}
	if res.Count != 0 {
		t.Errorf("Expected count 0, got %d", res.Count)
	}
	if res.Annotated == nil {
		t.Error("Expected an annotated image even without detections")
	}
}

func TestProcess_Errors(t *testing.T) {
	modelErr := errors.New("forward pass failed")

	tests := []struct {
		name  string
		model pipeline.Model
		frame image.Image
		cause error
	}{
		{
			name:  "detect failure",
			model: &pipelinetest.Model{DetectErr: modelErr},
			frame: pipelinetest.Frame(8, 8, color.White),
			cause: modelErr,
		},
		{
			name:  "render failure",
			model: &pipelinetest.Model{RenderErr: modelErr},
			frame: pipelinetest.Frame(8, 8, color.White),
			cause: modelErr,
		},
		{
			name:  "annotated size mismatch",
			model: &pipelinetest.Model{Resize: true},
			frame: pipelinetest.Frame(8, 8, color.White),
		},
		{
			name:  "nil frame",
			model: &pipelinetest.Model{},
			frame: nil,
		},
		{
			name:  "empty frame",
			model: &pipelinetest.Model{},
			frame: image.NewNRGBA(image.Rect(0, 0, 0, 0)),
		},
		{
			name:  "no model",
			model: nil,
			frame: pipelinetest.Frame(8, 8, color.White),
			cause: pipeline.ErrNoModel,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := pipeline.NewFrameProcessor(tc.model)
			_, err := p.Process(tc.frame, 0.40)

			var inf *pipeline.InferenceError
			if !errors.As(err, &inf) {
				t.Fatalf("Expected InferenceError, got %v", err)
			}
			if tc.cause != nil && !errors.Is(err, tc.cause) {
				t.Errorf("Expected cause %v, got %v", tc.cause, err)
			}
		})
	}
}

// Package pipeline holds the frame-processing core: FrameProcessor runs the model on
// one frame, ModeController drives it over the three input modes.
package pipeline

import (
	"errors"
	"image"

	"sitesafety/internal/model"
)

// Model is the detection capability. Implementations must not modify the frame they
// are given; Render returns a new image with the frame's dimensions.
type Model interface {
	Detect(frame image.Image, confidence float64) ([]model.Detection, error)
	Render(frame image.Image, detections []model.Detection) (image.Image, error)
}

// FrameProcessor turns one frame and a confidence threshold into a DetectionResult.
type FrameProcessor struct {
	model Model
}

// NewFrameProcessor returns a processor bound to an already loaded model.
func NewFrameProcessor(m Model) *FrameProcessor {
	return &FrameProcessor{model: m}
}

// Process detects objects on frame at the given threshold and returns the annotated
// copy and the count. A frame with no detections is not an error.
func (p *FrameProcessor) Process(frame image.Image, confidence float64) (*model.DetectionResult, error) {
	if p == nil || p.model == nil {
		return nil, &InferenceError{Err: ErrNoModel}
	}
	if frame == nil {
		return nil, inferenceError("nil frame")
	}
	bounds := frame.Bounds()
	if bounds.Empty() {
		return nil, inferenceError("empty frame %v", bounds)
	}

	detections, err := p.model.Detect(frame, confidence)
	if err != nil {
		return nil, asInference(err)
	}

	annotated, err := p.model.Render(frame, detections)
	if err != nil {
		return nil, asInference(err)
	}
	if annotated == nil || annotated.Bounds().Size() != bounds.Size() {
		return nil, inferenceError("annotated image does not match frame size %v", bounds.Size())
	}

	return &model.DetectionResult{
		Detections: detections,
		Annotated:  annotated,
		Count:      len(detections),
	}, nil
}

func asInference(err error) error {
	var inf *InferenceError
	if errors.As(err, &inf) {
		return err
	}
	return &InferenceError{Err: err}
}

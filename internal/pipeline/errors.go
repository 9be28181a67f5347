package pipeline

import (
	"errors"
	"fmt"
)

// ErrNoModel is returned by every processing operation while no model is loaded.
var ErrNoModel = errors.New("pipeline: detection model not loaded")

// ModelLoadError is returned when the model file is missing or cannot be loaded.
// It disables all processing modes for the session.
type ModelLoadError struct {
	// Path is the location the model was expected at.
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model load %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// Remediation tells the operator how to fix the missing model.
func (e *ModelLoadError) Remediation() string {
	return fmt.Sprintf("Place the trained weights exported to ONNX at %s (or set MODEL_PATH) and restart the dashboard.", e.Path)
}

// InferenceError is returned when a single frame or image fails to process.
type InferenceError struct {
	Err error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *InferenceError) Unwrap() error {
	return e.Err
}

// SourceOpenError is returned when a video file or camera cannot be opened.
type SourceOpenError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *SourceOpenError) Error() string {
	return fmt.Sprintf("open source %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceOpenError) Unwrap() error {
	return e.Err
}

// SourceReadError is returned by a live source whose frame read failed mid-stream.
type SourceReadError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *SourceReadError) Error() string {
	return fmt.Sprintf("read source %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceReadError) Unwrap() error {
	return e.Err
}

func inferenceError(format string, args ...any) error {
	return &InferenceError{Err: fmt.Errorf(format, args...)}
}

package pipeline

import (
	"errors"
	"fmt"
	"image"
	"io"

	"go.uber.org/multierr"

	"sitesafety/internal/model"
)

// Messages shown to the operator.
const (
	MsgAuditSuccess  = "Detection Completed."
	MsgAuditWarning  = "No helmets/people detected."
	MsgProcessing    = "Processing..."
	MsgVideoFinished = "Analysis Finished."
	MsgVideoStopped  = "Analysis stopped."
	MsgVideoAborted  = "Analysis aborted."
	MsgCameraError   = "Camera error."
	MsgFeedOffline   = "Feed is offline."
)

// Settings supplies the confidence threshold. It is read once per processing step so
// changes made between steps apply to the next frame.
type Settings interface {
	Confidence() float64
}

// Display receives everything the modes want shown. Every Frame call replaces the
// previously shown frame; nothing is buffered.
type Display interface {
	Frame(mode model.Mode, result *model.DetectionResult)
	State(mode model.Mode, state model.StreamState, message string)
	Error(mode model.Mode, err error)
}

// AuditReport is the outcome of a single Image Audit.
type AuditReport struct {
	Original image.Image
	Result   *model.DetectionResult
	Outcome  model.Outcome
	Message  string
}

// RunSummary describes how a streaming loop ended.
type RunSummary struct {
	Mode      model.Mode
	State     model.StreamState
	Frames    int
	Failed    int
	LastCount int
	Released  bool
	Err       error
}

// ModeController runs FrameProcessor under the policy of each mode.
type ModeController struct {
	processor *FrameProcessor
	settings  Settings
	display   Display
}

// NewModeController wires a controller. display may be nil for headless use.
func NewModeController(processor *FrameProcessor, settings Settings, display Display) *ModeController {
	if display == nil {
		display = discard{}
	}
	return &ModeController{
		processor: processor,
		settings:  settings,
		display:   display,
	}
}

// AuditImage decodes an uploaded image and processes it exactly once.
func (c *ModeController) AuditImage(r io.Reader) (*AuditReport, error) {
	frame, err := DecodeFrame(r)
	if err != nil {
		return nil, err
	}

	result, err := c.processor.Process(frame, c.settings.Confidence())
	if err != nil {
		return nil, err
	}

	report := &AuditReport{
		Original: frame,
		Result:   result,
		Outcome:  model.OutcomeSuccess,
		Message:  MsgAuditSuccess,
	}
	if result.Count == 0 {
		report.Outcome = model.OutcomeWarning
		report.Message = MsgAuditWarning
	}
	return report, nil
}

// RunVideo processes every frame of a finite source until it is exhausted or stop is
// raised. stop is sampled once per iteration, before the next read.
func (c *ModeController) RunVideo(open Opener, stop Signal) (*RunSummary, error) {
	return c.stream(model.ModeVideo, open, func() bool { return !stop.IsSet() })
}

// RunLive processes camera frames while active stays set. An inactive flag shows the
// offline state without touching the camera. Each call acquires a fresh source.
func (c *ModeController) RunLive(open Opener, active Signal) (*RunSummary, error) {
	if !active.IsSet() {
		c.display.State(model.ModeLive, model.StateOffline, MsgFeedOffline)
		return &RunSummary{Mode: model.ModeLive, State: model.StateOffline}, nil
	}
	return c.stream(model.ModeLive, open, active.IsSet)
}

func (c *ModeController) stream(mode model.Mode, open Opener, proceed func() bool) (summary *RunSummary, err error) {
	summary = &RunSummary{Mode: mode, State: model.StateOpening}
	c.display.State(mode, model.StateOpening, "")

	src, err := open()
	if err != nil {
		var openErr *SourceOpenError
		if !errors.As(err, &openErr) {
			err = &SourceOpenError{Source: sourceName(mode), Err: err}
		}
		summary.State = model.StateErrored
		summary.Err = err
		c.display.State(mode, model.StateErrored, err.Error())
		return summary, err
	}

	defer func() {
		if cerr := src.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("release %s: %w", sourceName(mode), cerr))
		}
		summary.Released = true
		summary.Err = err
		c.display.State(mode, model.StateReleased, releasedMessage(mode, summary.State))
	}()

	summary.State = model.StateStreaming
	c.display.State(mode, model.StateStreaming, MsgProcessing)

	for {
		if !proceed() {
			summary.State = model.StateStopped
			c.display.State(mode, model.StateStopped, "")
			return summary, nil
		}

		frame, rerr := src.Next()
		if rerr != nil {
			state, message, ferr := readFailure(mode, rerr)
			summary.State = state
			c.display.State(mode, state, message)
			return summary, ferr
		}

		result, perr := c.processor.Process(frame, c.settings.Confidence())
		if perr != nil {
			summary.Failed++
			c.display.Error(mode, perr)
			continue
		}

		summary.Frames++
		summary.LastCount = result.Count
		c.display.Frame(mode, &model.DetectionResult{
			Detections: result.Detections,
			Annotated:  ToDisplay(result.Annotated),
			Count:      result.Count,
		})
	}
}

// readFailure maps a failed read to the terminal state of the mode.
func readFailure(mode model.Mode, err error) (model.StreamState, string, error) {
	if mode == model.ModeVideo {
		if errors.Is(err, io.EOF) {
			return model.StateExhausted, "", nil
		}
		return model.StateErrored, err.Error(), wrapRead(mode, err)
	}
	return model.StateErrored, MsgCameraError, wrapRead(mode, err)
}

func wrapRead(mode model.Mode, err error) error {
	var readErr *SourceReadError
	if errors.As(err, &readErr) {
		return err
	}
	return &SourceReadError{Source: sourceName(mode), Err: err}
}

func releasedMessage(mode model.Mode, last model.StreamState) string {
	if mode == model.ModeLive {
		return MsgFeedOffline
	}
	switch last {
	case model.StateExhausted:
		return MsgVideoFinished
	case model.StateStopped:
		return MsgVideoStopped
	default:
		return MsgVideoAborted
	}
}

func sourceName(mode model.Mode) string {
	if mode == model.ModeLive {
		return "camera"
	}
	return "video"
}

type discard struct{}

func (discard) Frame(model.Mode, *model.DetectionResult) {}
func (discard) State(model.Mode, model.StreamState, string) {}
func (discard) Error(model.Mode, error) {}

package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"sitesafety/internal/dto"
	"sitesafety/internal/logger"
	"sitesafety/internal/model"
)

// Broadcaster delivers display messages to viewers.
type Broadcaster interface {
	// Broadcast may drop the message when viewers are behind.
	Broadcast(message []byte) bool
	// Send delivers the message, waiting if needed.
	Send(message []byte)
	GetClientCount() int
}

// EncodeImage scales img down to at most maxWidth pixels wide (0 keeps the size) and
// returns it as a base64 JPEG with its final dimensions.
func EncodeImage(img image.Image, maxWidth int) (string, int, int, error) {
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Linear)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", 0, 0, fmt.Errorf("encode frame: %w", err)
	}
	b := img.Bounds()
	return base64.StdEncoding.EncodeToString(buf.Bytes()), b.Dx(), b.Dy(), nil
}

// hubDisplay is the pipeline.Display of the dashboard: frames and status changes go
// to every viewer as JSON. It also keeps the progress of the current run.
type hubDisplay struct {
	hub    Broadcaster
	width  int
	logger *logger.Logger

	mu      sync.RWMutex
	runID   string
	current model.StreamState

	frames    atomic.Int64
	failed    atomic.Int64
	lastCount atomic.Int64
}

func newHubDisplay(hub Broadcaster, width int, logger *logger.Logger) *hubDisplay {
	return &hubDisplay{hub: hub, width: width, logger: logger}
}

// begin attributes following messages to runID and resets the progress counters.
func (d *hubDisplay) begin(runID string) {
	d.mu.Lock()
	d.runID = runID
	d.current = model.StateOpening
	d.mu.Unlock()
	d.frames.Store(0)
	d.failed.Store(0)
	d.lastCount.Store(0)
}

func (d *hubDisplay) currentRun() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.runID
}

// state is the last state shown for the current run.
func (d *hubDisplay) state() model.StreamState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

func (d *hubDisplay) progress() (frames, failed, lastCount int) {
	return int(d.frames.Load()), int(d.failed.Load()), int(d.lastCount.Load())
}

// Frame implements pipeline.Display.
func (d *hubDisplay) Frame(mode model.Mode, result *model.DetectionResult) {
	d.frames.Add(1)
	d.lastCount.Store(int64(result.Count))

	encoded, w, h, err := EncodeImage(result.Annotated, d.width)
	if err != nil {
		d.logger.Error("Failed to encode %s frame: %v", mode, err)
		return
	}

	d.broadcast(dto.FrameMessage{
		Type:   dto.TypeFrame,
		Mode:   mode,
		RunID:  d.currentRun(),
		Count:  result.Count,
		Width:  w,
		Height: h,
		Image:  encoded,
	}, false)
}

// State implements pipeline.Display.
func (d *hubDisplay) State(mode model.Mode, state model.StreamState, message string) {
	d.mu.Lock()
	d.current = state
	d.mu.Unlock()

	d.broadcast(dto.StatusMessage{
		Type:    dto.TypeStatus,
		Mode:    mode,
		RunID:   d.currentRun(),
		State:   state,
		Level:   levelOf(state),
		Message: message,
	}, true)
}

// Error implements pipeline.Display.
func (d *hubDisplay) Error(mode model.Mode, err error) {
	d.failed.Add(1)
	d.logger.Warning("%s frame skipped: %v", mode, err)

	d.broadcast(dto.StatusMessage{
		Type:    dto.TypeStatus,
		Mode:    mode,
		RunID:   d.currentRun(),
		Level:   dto.LevelError,
		Message: err.Error(),
	}, true)
}

func (d *hubDisplay) broadcast(v any, reliable bool) {
	data, err := json.Marshal(v)
	if err != nil {
		d.logger.Error("Failed to marshal display message: %v", err)
		return
	}
	if reliable {
		d.hub.Send(data)
		return
	}
	d.hub.Broadcast(data)
}

func levelOf(state model.StreamState) string {
	switch state {
	case model.StateErrored:
		return dto.LevelError
	case model.StateExhausted:
		return dto.LevelSuccess
	case model.StateStopped, model.StateOffline:
		return dto.LevelWarning
	default:
		return dto.LevelInfo
	}
}

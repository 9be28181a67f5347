// Package pipelinetest provides scripted models, sources and displays for testing
// code built on the pipeline package.
package pipelinetest

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"sync"

	"sitesafety/internal/model"
	"sitesafety/internal/pipeline"
)

// BoxColor is the colour Model.Render outlines detections with.
var BoxColor = color.NRGBA{R: 255, G: 0, B: 0, A: 255}

// Frame returns a w x h frame filled with c.
func Frame(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

// Model is a scripted pipeline.Model. Detect returns the scripted detections whose
// confidence reaches the threshold, in descending confidence order.
type Model struct {
	Detections []model.Detection
	DetectErr  error
	RenderErr  error

	// Resize makes Render return an image of the wrong size.
	Resize bool

	mu      sync.Mutex
	detects int
}

// Detect implements pipeline.Model.
func (m *Model) Detect(frame image.Image, confidence float64) ([]model.Detection, error) {
	m.mu.Lock()
	m.detects++
	m.mu.Unlock()

	if m.DetectErr != nil {
		return nil, m.DetectErr
	}

	out := make([]model.Detection, 0, len(m.Detections))
	for _, d := range m.Detections {
		if d.Confidence >= confidence {
			out = append(out, d)
		}
	}
	return out, nil
}

// Render implements pipeline.Model by outlining each box on a copy of frame.
func (m *Model) Render(frame image.Image, detections []model.Detection) (image.Image, error) {
	if m.RenderErr != nil {
		return nil, m.RenderErr
	}

	b := frame.Bounds()
	if m.Resize {
		b.Max.X++
	}
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), frame, frame.Bounds().Min, draw.Src)

	for _, d := range detections {
		r := d.Box.Intersect(out.Bounds())
		for x := r.Min.X; x < r.Max.X; x++ {
			out.Set(x, r.Min.Y, BoxColor)
			out.Set(x, r.Max.Y-1, BoxColor)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			out.Set(r.Min.X, y, BoxColor)
			out.Set(r.Max.X-1, y, BoxColor)
		}
	}
	return out, nil
}

// DetectCalls returns how many times Detect ran.
func (m *Model) DetectCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detects
}

// ErrRead is what an Endless source returns once FailAfter frames were read.
var ErrRead = errors.New("pipelinetest: read failed")

// Source is a scripted pipeline.Source.
type Source struct {
	// ID tells acquisitions apart.
	ID int
	// Frames are returned in order, then io.EOF (or ReadErr when set).
	Frames []image.Image
	// Endless repeats the first frame until FailAfter reads (0 means never fail).
	Endless   bool
	FailAfter int
	ReadErr   error
	CloseErr  error

	mu     sync.Mutex
	reads  int
	closes int
}

// NewSource returns a source of n solid frames of size w x h.
func NewSource(n, w, h int) *Source {
	s := &Source{}
	for i := 0; i < n; i++ {
		s.Frames = append(s.Frames, Frame(w, h, color.NRGBA{R: uint8(i), G: 128, B: 64, A: 255}))
	}
	return s
}

// Next implements pipeline.Source.
func (s *Source) Next() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closes > 0 {
		return nil, errors.New("pipelinetest: read after close")
	}

	if s.Endless {
		if s.FailAfter > 0 && s.reads >= s.FailAfter {
			return nil, ErrRead
		}
		s.reads++
		return s.Frames[0], nil
	}

	if s.reads >= len(s.Frames) {
		if s.ReadErr != nil {
			return nil, s.ReadErr
		}
		return nil, io.EOF
	}
	f := s.Frames[s.reads]
	s.reads++
	return f, nil
}

// Close implements pipeline.Source.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return s.CloseErr
}

// Reads returns how many frames were handed out.
func (s *Source) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Closes returns how many times Close ran.
func (s *Source) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Opener hands out a new Source from New on every acquisition.
type Opener struct {
	New func(id int) *Source
	Err error

	mu     sync.Mutex
	opened []*Source
}

// Open is a pipeline.Opener.
func (o *Opener) Open() (pipeline.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.Err != nil {
		return nil, o.Err
	}
	src := o.New(len(o.opened) + 1)
	src.ID = len(o.opened) + 1
	o.opened = append(o.opened, src)
	return src, nil
}

// Opened returns every source acquired so far.
func (o *Opener) Opened() []*Source {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Source(nil), o.opened...)
}

// StateEvent is one State call seen by a Recorder.
type StateEvent struct {
	Mode    model.Mode
	State   model.StreamState
	Message string
}

// Recorder is a pipeline.Display that keeps every call.
type Recorder struct {
	// OnFrame runs after the n-th frame (1-based) is recorded.
	OnFrame func(n int)

	mu     sync.Mutex
	frames []*model.DetectionResult
	states []StateEvent
	errs   []error
}

// Frame implements pipeline.Display.
func (r *Recorder) Frame(_ model.Mode, result *model.DetectionResult) {
	r.mu.Lock()
	r.frames = append(r.frames, result)
	n := len(r.frames)
	r.mu.Unlock()

	if r.OnFrame != nil {
		r.OnFrame(n)
	}
}

// State implements pipeline.Display.
func (r *Recorder) State(mode model.Mode, state model.StreamState, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, StateEvent{Mode: mode, State: state, Message: message})
}

// Error implements pipeline.Display.
func (r *Recorder) Error(_ model.Mode, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Frames returns the recorded results.
func (r *Recorder) Frames() []*model.DetectionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.DetectionResult(nil), r.frames...)
}

// States returns the recorded state transitions.
func (r *Recorder) States() []model.StreamState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.StreamState, 0, len(r.states))
	for _, e := range r.states {
		out = append(out, e.State)
	}
	return out
}

// Events returns the recorded state calls with their messages.
func (r *Recorder) Events() []StateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StateEvent(nil), r.states...)
}

// Errors returns the recorded per-frame errors.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// Threshold is a fixed pipeline.Settings.
type Threshold float64

// Confidence implements pipeline.Settings.
func (t Threshold) Confidence() float64 { return float64(t) }

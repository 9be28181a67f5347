package service

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"sitesafety/internal/config"
	"sitesafety/internal/dto"
	"sitesafety/internal/logger"
	"sitesafety/internal/model"
	"sitesafety/internal/pipeline"
	"sitesafety/internal/repository"
	"sitesafety/internal/service/storage"
)

// Deps are the collaborators of a Manager. Model is nil when loading it failed, in
// which case ModelErr says why.
type Deps struct {
	Model    pipeline.Model
	ModelErr error
	Hub      Broadcaster
	Uploads  *storage.UploadStore
	// Runs may be nil; the journal is then limited to the active run.
	Runs repository.RunRepository
	// OpenVideo returns an opener for an uploaded video file.
	OpenVideo func(path string) pipeline.Opener
	// OpenCamera acquires the live camera afresh on every call.
	OpenCamera pipeline.Opener
}

// Manager turns dashboard actions into mode runs. At most one streaming run owns a
// source at any time; it runs on its own goroutine so stop and deactivate requests
// can be served while it loops.
type Manager struct {
	session    *SessionConfig
	controller *pipeline.ModeController
	display    *hubDisplay
	hub        Broadcaster
	uploads    *storage.UploadStore
	runs       repository.RunRepository
	openVideo  func(path string) pipeline.Opener
	openCamera pipeline.Opener
	modelErr   error
	modelPath  string
	logger     *logger.Logger

	stop pipeline.Flag
	live pipeline.Flag

	mu     sync.Mutex
	active *model.Run
	wg     sync.WaitGroup
}

func NewManager(cfg *config.Config, logger *logger.Logger, deps Deps) *Manager {
	m := &Manager{
		session:    NewSessionConfig(cfg.Confidence),
		display:    newHubDisplay(deps.Hub, cfg.DisplayWidth, logger),
		hub:        deps.Hub,
		uploads:    deps.Uploads,
		runs:       deps.Runs,
		openVideo:  deps.OpenVideo,
		openCamera: deps.OpenCamera,
		modelErr:   deps.ModelErr,
		modelPath:  cfg.ModelPath,
		logger:     logger,
	}

	if deps.Model == nil && m.modelErr == nil {
		m.modelErr = &pipeline.ModelLoadError{Path: cfg.ModelPath, Err: pipeline.ErrNoModel}
	}
	if m.modelErr != nil {
		m.logger.Error("Processing disabled for this session: %v", m.modelErr)
	} else {
		m.controller = pipeline.NewModeController(pipeline.NewFrameProcessor(deps.Model), m.session, m.display)
	}
	return m
}

// Session returns the session settings.
func (m *Manager) Session() *SessionConfig {
	return m.session
}

// ModelErr returns why processing is disabled, or nil.
func (m *Manager) ModelErr() error {
	return m.modelErr
}

// SetMode selects a mode. Leaving a streaming mode stops its run at the next
// iteration.
func (m *Manager) SetMode(mode model.Mode) {
	prev := m.session.setMode(mode)
	if prev == mode {
		return
	}
	m.logger.Info("Mode changed: %s -> %s", prev, mode)
	if !prev.Streaming() {
		return
	}

	switch prev {
	case model.ModeVideo:
		m.StopVideo()
	case model.ModeLive:
		m.DeactivateLive()
	}
}

// SetConfidence changes the threshold and returns the stored value.
func (m *Manager) SetConfidence(v float64) (float64, error) {
	stored, err := m.session.SetConfidence(v)
	if err != nil {
		return 0, err
	}
	m.logger.Info("Confidence threshold set to %.2f", stored)
	return stored, nil
}

// AuditImage runs the Image Audit on an uploaded image.
func (m *Manager) AuditImage(r io.Reader) (*pipeline.AuditReport, error) {
	if err := m.ready(model.ModeImageAudit); err != nil {
		return nil, err
	}

	report, err := m.controller.AuditImage(r)
	if err != nil {
		m.logger.Warning("Image audit failed: %v", err)
		return nil, err
	}
	m.logger.Info("Image audit: %d detection(s) at %.2f", report.Result.Count, m.session.Confidence())
	return report, nil
}

// StartVideo stores the uploaded video and starts analysing it in the background.
// The transient file is removed when the run ends.
func (m *Manager) StartVideo(r io.Reader, filename string) (*model.Run, error) {
	if err := m.ready(model.ModeVideo); err != nil {
		return nil, err
	}
	if _, err := storage.CheckExtension(filename, storage.KindVideo); err != nil {
		return nil, err
	}

	run, err := m.reserve(model.ModeVideo, filename)
	if err != nil {
		return nil, err
	}

	path, err := m.uploads.Save(r, filename, storage.KindVideo)
	if err != nil {
		m.release(run)
		return nil, err
	}

	started := *run
	m.launch(run, func() (*pipeline.RunSummary, error) {
		defer func() {
			if err := m.uploads.Remove(path); err != nil {
				m.logger.Error("Failed to remove upload %s: %v", path, err)
			}
		}()
		return m.controller.RunVideo(m.openVideo(path), &m.stop)
	})
	return &started, nil
}

// StopVideo asks the running video analysis to stop before its next frame. A stop
// raised while the upload is still being written ends the run before its first
// frame. It reports whether a video run was active.
func (m *Manager) StopVideo() bool {
	m.stop.Set()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil && m.active.Mode == model.ModeVideo
}

// ActivateLive starts the live feed with a freshly acquired camera. Activating an
// already running feed returns its run.
func (m *Manager) ActivateLive() (*model.Run, error) {
	if err := m.ready(model.ModeLive); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.active != nil && m.active.Mode == model.ModeLive && m.live.IsSet() {
		run := *m.active
		m.mu.Unlock()
		return &run, nil
	}
	m.mu.Unlock()

	run, err := m.reserve(model.ModeLive, "camera")
	if err != nil {
		return nil, err
	}

	started := *run
	m.launch(run, func() (*pipeline.RunSummary, error) {
		defer m.live.Clear()
		return m.controller.RunLive(m.openCamera, &m.live)
	})
	return &started, nil
}

// DeactivateLive stops the live feed at its next iteration. With no feed running it
// shows the offline state.
func (m *Manager) DeactivateLive() {
	m.live.Clear()

	m.mu.Lock()
	running := m.active != nil && m.active.Mode == model.ModeLive
	m.mu.Unlock()

	if !running && m.controller != nil {
		// A flag nobody raises: only the offline state is shown.
		if _, err := m.controller.RunLive(m.openCamera, &pipeline.Flag{}); err != nil {
			m.logger.Error("Failed to show offline feed: %v", err)
		}
	}
}

// Status describes the session for the dashboard.
func (m *Manager) Status() dto.Status {
	s := dto.Status{
		ModelLoaded: m.modelErr == nil,
		ModelPath:   m.modelPath,
		Mode:        m.session.Mode(),
		Confidence:  m.session.Confidence(),
		LiveActive:  m.live.IsSet(),
		State:       model.StateIdle,
		ImageTypes:  storage.KindImage.Extensions(),
		VideoTypes:  storage.KindVideo.Extensions(),
		Viewers:     m.hub.GetClientCount(),
	}
	for _, mode := range model.Modes {
		s.Modes = append(s.Modes, string(mode))
	}

	var loadErr *pipeline.ModelLoadError
	if errors.As(m.modelErr, &loadErr) {
		s.ModelError = loadErr.Error()
		s.Remediation = loadErr.Remediation()
	} else if m.modelErr != nil {
		s.ModelError = m.modelErr.Error()
	}

	if run := m.Active(); run != nil {
		info := dto.NewRunInfo(*run, time.Now().UTC())
		s.ActiveRun = &info
		s.State = run.State
	}
	return s
}

// Active returns a snapshot of the running stream, or nil.
func (m *Manager) Active() *model.Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	run := *m.active
	run.Frames, run.FailedFrames, run.LastCount = m.display.progress()
	run.State = m.display.state()
	return &run
}

// Runs returns up to limit journal entries, newest first.
func (m *Manager) Runs(limit int) ([]model.Run, error) {
	if m.runs == nil {
		if run := m.Active(); run != nil {
			return []model.Run{*run}, nil
		}
		return []model.Run{}, nil
	}

	runs, err := m.runs.GetRecent(limit)
	if err != nil {
		return nil, err
	}
	if active := m.Active(); active != nil {
		for i := range runs {
			if runs[i].ID == active.ID {
				runs[i] = *active
			}
		}
	}
	return runs, nil
}

// Run returns one journal entry. The active run reflects its live progress.
func (m *Manager) Run(id string) (*model.Run, error) {
	if active := m.Active(); active != nil && active.ID == id {
		return active, nil
	}
	if m.runs == nil {
		return nil, repository.ErrNotFound
	}
	return m.runs.GetByID(id)
}

// ClearRuns empties the journal. It refuses while a stream is running so the
// active run keeps its entry.
func (m *Manager) ClearRuns() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return fmt.Errorf("%w (%s run %s)", ErrBusy, m.active.Mode, m.active.ID)
	}
	if m.runs == nil {
		return nil
	}
	if err := m.runs.DeleteAll(); err != nil {
		return err
	}
	m.logger.Info("Run journal cleared")
	return nil
}

// Wait blocks until the current streaming run has ended.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops any streaming run, waits for its source to be released and removes
// leftover uploads.
func (m *Manager) Close() error {
	m.stop.Set()
	m.live.Clear()
	m.wg.Wait()

	if m.uploads == nil {
		return nil
	}
	return m.uploads.Cleanup()
}

// ready checks that processing is available and mode is selected.
func (m *Manager) ready(mode model.Mode) error {
	if m.modelErr != nil {
		return m.modelErr
	}
	if current := m.session.Mode(); current != mode {
		return fmt.Errorf("%w: %q selected, %q required", ErrWrongMode, current, mode)
	}
	return nil
}

// reserve claims the streaming slot for a new run and records it in the journal.
// The returned run is owned by the Manager and only changed under m.mu.
func (m *Manager) reserve(mode model.Mode, source string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, fmt.Errorf("%w (%s since %s)", ErrBusy, m.active.Mode, m.active.StartedAt.Format(time.TimeOnly))
	}

	// Reset the run's signal before the slot is visible, so a stop or deactivation
	// that arrives from now on is kept.
	switch mode {
	case model.ModeVideo:
		m.stop.Clear()
	case model.ModeLive:
		m.live.Set()
	}

	run := &model.Run{
		ID:        uuid.NewString(),
		Mode:      mode,
		Source:    source,
		StartedAt: time.Now().UTC(),
		State:     model.StateOpening,
	}
	if m.runs != nil {
		if err := m.runs.Insert(run); err != nil {
			m.logger.Error("Failed to journal run %s: %v", run.ID, err)
		}
	}

	m.active = run
	m.display.begin(run.ID)
	return run, nil
}

// release frees the streaming slot held by run without running it.
func (m *Manager) release(run *model.Run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && m.active.ID == run.ID {
		m.active = nil
	}
	if m.runs != nil {
		run.State = model.StateErrored
		run.EndedAt = time.Now().UTC()
		run.Error = "upload failed"
		m.runs.Update(run)
	}
}

// launch runs fn on its own goroutine and journals the outcome.
func (m *Manager) launch(run *model.Run, fn func() (*pipeline.RunSummary, error)) {
	m.wg.Add(1)
	m.logger.Info("%s run %s started (%s)", run.Mode, run.ID, run.Source)

	go func() {
		defer m.wg.Done()
		summary, err := fn()
		m.finish(run, summary, err)
	}()
}

func (m *Manager) finish(run *model.Run, summary *pipeline.RunSummary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run.EndedAt = time.Now().UTC()
	if summary != nil {
		run.Frames = summary.Frames
		run.FailedFrames = summary.Failed
		run.LastCount = summary.LastCount
		run.State = summary.State
	}
	switch {
	case err != nil:
		run.Error = err.Error()
		m.logger.Error("%s run %s ended %s: %v", run.Mode, run.ID, run.State, err)
	case run.State.Terminal():
		m.logger.Info("%s run %s ended %s after %d frame(s)", run.Mode, run.ID, run.State, run.Frames)
	default:
		m.logger.Info("%s run %s ended before streaming (%s)", run.Mode, run.ID, run.State)
	}

	if m.runs != nil {
		if uerr := m.runs.Update(run); uerr != nil {
			m.logger.Error("Failed to journal run %s: %v", run.ID, uerr)
		}
	}
	m.active = nil
}

package service

import (
	"fmt"
	"math"
	"sync"

	"sitesafety/internal/model"
)

// SessionConfig holds the operator's choices for the session. It implements
// pipeline.Settings; a threshold change applies from the next processed frame.
type SessionConfig struct {
	mu         sync.RWMutex
	mode       model.Mode
	confidence float64
}

// NewSessionConfig starts a session in Image Audit mode.
func NewSessionConfig(confidence float64) *SessionConfig {
	s := &SessionConfig{mode: model.ModeImageAudit}
	if _, err := s.SetConfidence(confidence); err != nil {
		s.confidence = 0.40
	}
	return s
}

// Confidence returns the current threshold.
func (s *SessionConfig) Confidence() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confidence
}

// SetConfidence clamps v to [0, 1], rounds it to the 0.01 step and stores it.
func (s *SessionConfig) SetConfidence(v float64) (float64, error) {
	if math.IsNaN(v) {
		return 0, fmt.Errorf("confidence is not a number")
	}
	v = math.Round(math.Max(0, math.Min(1, v))*100) / 100

	s.mu.Lock()
	s.confidence = v
	s.mu.Unlock()
	return v, nil
}

// Mode returns the selected mode.
func (s *SessionConfig) Mode() model.Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// setMode stores m and returns the previous mode.
func (s *SessionConfig) setMode(m model.Mode) model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.mode
	s.mode = m
	return prev
}

package service

import "errors"

var (
	// ErrBusy is returned when a streaming run is already in progress.
	ErrBusy = errors.New("a stream is already running")
	// ErrWrongMode is returned when an action does not belong to the selected mode.
	ErrWrongMode = errors.New("action not available in the selected mode")
)

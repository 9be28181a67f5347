package pipeline

import (
	"image"
	"sync/atomic"
)

// Source is a lazy sequence of frames: finite for a video file, unbounded for a camera.
// Next returns io.EOF once a finite source is exhausted. A source cannot be rewound;
// a new sequence needs a fresh acquisition through an Opener.
type Source interface {
	Next() (image.Image, error)
	Close() error
}

// Opener acquires a new Source.
type Opener func() (Source, error)

// Signal is polled by the mode loops once per iteration.
type Signal interface {
	IsSet() bool
}

// Flag is a Signal the shell can flip between iterations.
type Flag struct {
	v atomic.Bool
}

// Set raises the flag.
func (f *Flag) Set() { f.v.Store(true) }

// Clear lowers the flag.
func (f *Flag) Clear() { f.v.Store(false) }

// IsSet reports whether the flag is raised.
func (f *Flag) IsSet() bool { return f.v.Load() }

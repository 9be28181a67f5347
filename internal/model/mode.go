package model

import "fmt"

// Mode selects the input source and processing policy.
type Mode string

const (
	ModeImageAudit Mode = "Image Audit"
	ModeVideo      Mode = "Video Footage Analysis"
	ModeLive       Mode = "Live Site Feed"
)

// Modes lists the selectable modes in the order the dashboard shows them.
var Modes = [...]Mode{
	ModeImageAudit,
	ModeVideo,
	ModeLive,
}

// ParseMode returns the Mode named by s.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode: %q", s)
}

// Streaming reports whether the mode runs a frame loop over an open source.
func (m Mode) Streaming() bool {
	return m == ModeVideo || m == ModeLive
}

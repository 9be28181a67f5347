// Package capture opens video files and cameras as pipeline sources.
package capture

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"sitesafety/internal/pipeline"
)

// capture is a pipeline.Source over an OpenCV VideoCapture.
type capture struct {
	name   string
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	live   bool
	mu     sync.Mutex
	closed bool
}

// OpenVideoFile opens a video file for decoding. Next returns io.EOF after the last
// frame.
func OpenVideoFile(path string) (pipeline.Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &pipeline.SourceOpenError{Source: path, Err: err}
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, &pipeline.SourceOpenError{Source: path, Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &pipeline.SourceOpenError{Source: path, Err: errors.New("decoder could not open file")}
	}

	return newCapture(path, vc, false), nil
}

func newCapture(name string, vc *gocv.VideoCapture, live bool) *capture {
	return &capture{
		name: name,
		vc:   vc,
		mat:  gocv.NewMat(),
		live: live,
	}
}

// Next decodes the next frame into a Go image.
func (c *capture) Next() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("%s: read after release", c.name)
	}

	if ok := c.vc.Read(&c.mat); !ok || c.mat.Empty() {
		if c.live {
			return nil, &pipeline.SourceReadError{Source: c.name, Err: errors.New("no frame from device")}
		}
		return nil, io.EOF
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, &pipeline.SourceReadError{Source: c.name, Err: err}
	}
	return img, nil
}

// Close releases the capture. Calling it again is a no-op.
func (c *capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	matErr := c.mat.Close()
	if err := c.vc.Close(); err != nil {
		return fmt.Errorf("release %s: %w", c.name, err)
	}
	return matErr
}

package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"sitesafety/internal/pipeline"
)

// OpenCamera opens a local camera device. A failed read is a
// *pipeline.SourceReadError; cameras never report io.EOF.
func OpenCamera(device int) (pipeline.Source, error) {
	name := fmt.Sprintf("camera %d", device)

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, &pipeline.SourceOpenError{Source: name, Err: err}
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, &pipeline.SourceOpenError{Source: name, Err: errors.New("device not available")}
	}

	return newCapture(name, vc, true), nil
}

// CameraOpener returns an opener that acquires device afresh on every call.
func CameraOpener(device int) pipeline.Opener {
	return func() (pipeline.Source, error) {
		return OpenCamera(device)
	}
}

// VideoOpener returns an opener for the video file at path.
func VideoOpener(path string) pipeline.Opener {
	return func() (pipeline.Source, error) {
		return OpenVideoFile(path)
	}
}

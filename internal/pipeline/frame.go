package pipeline

import (
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// DecodeFrame decodes an uploaded still (jpg/png/jpeg) into a frame, applying the
// EXIF orientation phone cameras write. Undecodable input is an InferenceError.
func DecodeFrame(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &InferenceError{Err: fmt.Errorf("decode image: %w", err)}
	}
	if img.Bounds().Empty() {
		return nil, inferenceError("decoded image is empty")
	}
	return img, nil
}

// ToDisplay converts a frame to the ordering the display surfaces expect:
// zero-origin, 8 bits per channel, R-G-B-A.
func ToDisplay(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

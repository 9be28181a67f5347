package model

import "image"

// Detection is one object reported by the detection model.
type Detection struct {
	ClassID    int             `json:"class_id"`
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"-"`
}

// BoundingBox is the JSON form of a detection box in frame pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Bounds returns the detection box as x/y/width/height.
func (d Detection) Bounds() BoundingBox {
	return BoundingBox{
		X:      d.Box.Min.X,
		Y:      d.Box.Min.Y,
		Width:  d.Box.Dx(),
		Height: d.Box.Dy(),
	}
}

// DetectionResult is produced for every processed frame and discarded after display.
type DetectionResult struct {
	Detections []Detection
	Annotated  image.Image
	Count      int
}

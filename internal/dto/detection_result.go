package dto

import "sitesafety/internal/model"

type DetectionResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// FromDetections converts model detections to their JSON form.
func FromDetections(detections []model.Detection) []DetectionResult {
	out := make([]DetectionResult, 0, len(detections))
	for _, d := range detections {
		b := d.Bounds()
		out = append(out, DetectionResult{
			Label:      d.Label,
			Confidence: d.Confidence,
			X:          b.X,
			Y:          b.Y,
			Width:      b.Width,
			Height:     b.Height,
		})
	}
	return out
}

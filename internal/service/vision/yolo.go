package vision

import (
	"fmt"
	"image"
	"sort"

	"sitesafety/internal/model"
)

// Candidate is one box proposed by the network before non-maximum suppression.
type Candidate struct {
	Box     image.Rectangle
	Score   float32
	ClassID int
}

// DecodeYOLOv8 reads a YOLOv8 output tensor of shape [1, 4+C, N] laid out row-major:
// channel c of anchor i is data[c*anchors+i]. The first four channels are the box
// centre and size in network input pixels; the rest are class scores. Boxes are
// scaled by (scaleX, scaleY) into frame pixels and clipped to bounds. Anchors whose
// best score is below threshold are dropped.
func DecodeYOLOv8(data []float32, channels, anchors int, scaleX, scaleY, threshold float32, bounds image.Rectangle) ([]Candidate, error) {
	if channels <= 4 || anchors <= 0 {
		return nil, fmt.Errorf("unexpected output shape [1 %d %d]", channels, anchors)
	}
	if len(data) < channels*anchors {
		return nil, fmt.Errorf("output holds %d values, shape needs %d", len(data), channels*anchors)
	}

	var out []Candidate
	for i := 0; i < anchors; i++ {
		best := float32(-1)
		classID := 0
		for c := 4; c < channels; c++ {
			if s := data[c*anchors+i]; s > best {
				best = s
				classID = c - 4
			}
		}
		if best < threshold {
			continue
		}

		cx := data[i]
		cy := data[anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		box := image.Rect(
			int((cx-w/2)*scaleX),
			int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX),
			int((cy+h/2)*scaleY),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		out = append(out, Candidate{Box: box, Score: best, ClassID: classID})
	}
	return out, nil
}

// Boxes splits candidates into the parallel slices NMS implementations take.
func Boxes(candidates []Candidate) ([]image.Rectangle, []float32) {
	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box
		scores[i] = c.Score
	}
	return boxes, scores
}

// Detections turns the candidates at the kept indices into detections, highest
// confidence first.
func Detections(candidates []Candidate, keep []int, labels Labels) []model.Detection {
	out := make([]model.Detection, 0, len(keep))
	for _, idx := range keep {
		if idx < 0 || idx >= len(candidates) {
			continue
		}
		c := candidates[idx]
		out = append(out, model.Detection{
			ClassID:    c.ClassID,
			Label:      labels.Name(c.ClassID),
			Confidence: float64(c.Score),
			Box:        c.Box,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"testing"

	"sitesafety/internal/model"
)

// ========================================
// Labels
// ========================================

func TestReadLabels(t *testing.T) {
	labels, err := ReadLabels(strings.NewReader("helmet\n\n# comment\nhead\n  person  \n"))
	if err != nil {
		t.Fatalf("ReadLabels failed: %v", err)
	}

	tests := []struct {
		id       int
		expected string
	}{
		{0, "helmet"},
		{1, "head"},
		{2, "person"},
		{3, "class_3"},
		{-1, "class_-1"},
	}
	for _, tt := range tests {
		if got := labels.Name(tt.id); got != tt.expected {
			t.Errorf("Name(%d) = %q, expected %q", tt.id, got, tt.expected)
		}
	}
}

func TestLoadLabels_Missing(t *testing.T) {
	if _, err := LoadLabels(t.TempDir() + "/labels.txt"); err == nil {
		t.Error("Expected error for missing labels file")
	}
}

// ========================================
// YOLOv8 output decoding
// ========================================

// tensor builds a [1, 4+classes, anchors] output from per-anchor rows.
func tensor(classes int, rows [][]float32) []float32 {
	channels := 4 + classes
	anchors := len(rows)
	data := make([]float32, channels*anchors)
	for i, row := range rows {
		for c, v := range row {
			data[c*anchors+i] = v
		}
	}
	return data
}

func TestDecodeYOLOv8(t *testing.T) {
	data := tensor(2, [][]float32{
		{100, 100, 40, 40, 0.9, 0.1},  // helmet, kept
		{300, 300, 20, 20, 0.1, 0.35}, // below threshold
		{500, 200, 60, 80, 0.2, 0.7},  // head, kept
	})

	got, err := DecodeYOLOv8(data, 6, 3, 0.5, 0.5, 0.40, image.Rect(0, 0, 320, 320))
	if err != nil {
		t.Fatalf("DecodeYOLOv8 failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(got))
	}
	if got[0].ClassID != 0 || got[0].Box != image.Rect(40, 40, 60, 60) {
		t.Errorf("Unexpected first candidate %+v", got[0])
	}
	if got[1].ClassID != 1 || got[1].Box != image.Rect(235, 80, 265, 120) {
		t.Errorf("Unexpected second candidate %+v", got[1])
	}
}

func TestDecodeYOLOv8_ClipsToFrame(t *testing.T) {
	data := tensor(1, [][]float32{{10, 10, 40, 40, 0.8}})

	got, err := DecodeYOLOv8(data, 5, 1, 1, 1, 0.5, image.Rect(0, 0, 100, 100))
	if err != nil {
		t.Fatalf("DecodeYOLOv8 failed: %v", err)
	}
	if len(got) != 1 || got[0].Box != image.Rect(0, 0, 30, 30) {
		t.Errorf("Expected clipped box, got %+v", got)
	}
}

func TestDecodeYOLOv8_BadShape(t *testing.T) {
	tests := []struct {
		name     string
		data     []float32
		channels int
		anchors  int
	}{
		{"no class channels", make([]float32, 8), 4, 2},
		{"no anchors", nil, 6, 0},
		{"short buffer", make([]float32, 5), 6, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeYOLOv8(tc.data, tc.channels, tc.anchors, 1, 1, 0.4, image.Rect(0, 0, 10, 10)); err == nil {
				t.Error("Expected shape error")
			}
		})
	}
}

func TestDetections_SortedByConfidence(t *testing.T) {
	candidates := []Candidate{
		{Box: image.Rect(0, 0, 5, 5), Score: 0.5, ClassID: 0},
		{Box: image.Rect(5, 5, 9, 9), Score: 0.9, ClassID: 1},
		{Box: image.Rect(1, 1, 3, 3), Score: 0.7, ClassID: 4},
	}

	got := Detections(candidates, []int{0, 1, 2, 7}, Labels{"helmet", "head"})
	if len(got) != 3 {
		t.Fatalf("Expected 3 detections, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Errorf("Detections not sorted: %v then %v", got[i-1].Confidence, got[i].Confidence)
		}
	}
	if got[0].Label != "head" || got[2].Label != "helmet" || got[1].Label != "class_4" {
		t.Errorf("Unexpected labels %q %q %q", got[0].Label, got[1].Label, got[2].Label)
	}
}

// ========================================
// Overlay
// ========================================

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestOverlay_RenderKeepsSizeAndInput(t *testing.T) {
	frame := solid(120, 80, color.Black)
	before := append([]byte(nil), frame.Pix...)
	o := NewOverlay(3)

	out, err := o.Render(frame, []model.Detection{
		{ClassID: 0, Label: "helmet", Confidence: 0.91, Box: image.Rect(20, 30, 60, 70)},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out.Bounds().Size() != frame.Bounds().Size() {
		t.Errorf("Size changed from %v to %v", frame.Bounds().Size(), out.Bounds().Size())
	}
	if !bytes.Equal(before, frame.Pix) {
		t.Error("Render modified the input frame")
	}

	r, g, b, _ := out.At(40, 30).RGBA()
	if r == 0 && g == 0 && b == 0 {
		t.Error("Expected the box edge to be drawn")
	}
	r, g, b, _ = out.At(40, 50).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Error("Box interior must stay untouched")
	}
}

func TestOverlay_RenderWithoutDetectionsCopies(t *testing.T) {
	frame := solid(10, 10, color.White)
	out, err := NewOverlay(1).Render(frame, nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out == image.Image(frame) {
		t.Error("Expected a copy of the frame")
	}
	if rgba, ok := out.(*image.RGBA); !ok || !bytes.Equal(rgba.Pix, frame.Pix) {
		t.Error("Expected an identical copy")
	}
}

func TestOverlay_OffsetFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(50, 50, 90, 80))
	out, err := NewOverlay(1).Render(frame, []model.Detection{
		{Label: "person", Confidence: 0.5, Box: image.Rect(55, 55, 70, 70)},
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if out.Bounds().Min != (image.Point{}) {
		t.Errorf("Expected zero origin, got %v", out.Bounds().Min)
	}
}

func TestPalette_DistinctColours(t *testing.T) {
	p := Palette(4)
	if len(p) != 4 {
		t.Fatalf("Expected 4 colours, got %d", len(p))
	}
	seen := map[string]bool{}
	for _, c := range p {
		seen[c.Hex()] = true
	}
	if len(seen) != 4 {
		t.Errorf("Expected 4 distinct colours, got %d", len(seen))
	}
	if len(Palette(0)) != 1 {
		t.Error("Expected a one-colour palette for zero classes")
	}
	o := NewOverlay(3)
	if o.Color(4) != o.Color(1) || o.Color(-1) != o.Color(1) {
		t.Error("Expected class colours to wrap around the palette")
	}
}

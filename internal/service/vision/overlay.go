package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"sitesafety/internal/model"
)

// Palette returns n colours evenly spread around the hue circle.
func Palette(n int) []colorful.Color {
	if n < 1 {
		n = 1
	}
	out := make([]colorful.Color, n)
	for i := range out {
		out[i] = colorful.Hsv(float64(i)*360/float64(n), 0.85, 0.95)
	}
	return out
}

// Overlay draws detection boxes and "label score" captions on a copy of a frame.
type Overlay struct {
	LineWidth float64
	palette   []colorful.Color
}

// NewOverlay returns an overlay with one colour per class.
func NewOverlay(classes int) *Overlay {
	return &Overlay{
		LineWidth: 2,
		palette:   Palette(classes),
	}
}

// Color returns the box colour for a class.
func (o *Overlay) Color(classID int) colorful.Color {
	return o.palette[abs(classID)%len(o.palette)]
}

// Render returns a zero-origin RGBA copy of frame with the detections drawn on it.
// The frame itself is left untouched.
func (o *Overlay) Render(frame image.Image, detections []model.Detection) (image.Image, error) {
	if frame == nil {
		return nil, fmt.Errorf("render: nil frame")
	}
	b := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)

	dc := gg.NewContextForRGBA(dst)
	dc.SetLineWidth(o.LineWidth)

	for _, d := range detections {
		r := d.Box.Sub(b.Min).Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		c := o.Color(d.ClassID)

		x, y := float64(r.Min.X), float64(r.Min.Y)
		dc.SetColor(c)
		dc.DrawRectangle(x, y, float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		caption := fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
		tw, th := dc.MeasureString(caption)
		ty := y - th - 4
		if ty < 0 {
			ty = y
		}
		dc.DrawRectangle(x, ty, tw+6, th+4)
		dc.Fill()

		dc.SetColor(textColor(c))
		dc.DrawString(caption, x+3, ty+th)
	}

	return dst, nil
}

// textColor picks black or white, whichever reads better on bg.
func textColor(bg colorful.Color) color.Color {
	l, _, _ := bg.Lab()
	if l > 0.6 {
		return color.Black
	}
	return color.White
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

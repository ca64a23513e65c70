package geom

import "math"

// fitMargin leaves a 10% border around the fitted drawing.
const fitMargin = 0.9

// ViewTransform maps world units (Y up) onto a display surface (Y down).
type ViewTransform struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Padding float64 `json:"padding"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
}

// NewViewTransform returns an unfitted 1:1 transform for a surface.
func NewViewTransform(width, height, padding float64) ViewTransform {
	return ViewTransform{
		Scale:   1,
		Padding: padding,
		Width:   width,
		Height:  height,
	}
}

// Fit recomputes scale and offsets so env is centered on a width x height
// surface. It returns false and leaves v untouched when env has a zero
// dimension, the surface size is not finite, or the padded surface has no
// room.
func (v *ViewTransform) Fit(env Envelope, width, height float64) bool {
	bw, bh := env.Width(), env.Height()
	if bw == 0 || bh == 0 {
		return false
	}
	if math.IsNaN(width) || math.IsNaN(height) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return false
	}

	innerW := width - 2*v.Padding
	innerH := height - 2*v.Padding
	s := min(innerW/bw, innerH/bh) * fitMargin
	if s <= 0 {
		return false
	}

	v.Scale = s
	v.Width = width
	v.Height = height
	v.OffsetX = v.Padding + (innerW-bw*s)/2 - env.MinX*s
	v.OffsetY = v.Padding + (innerH-bh*s)/2 - env.MinY*s
	return true
}

// Matrix returns the world-to-display matrix: scale, flip Y, then shift so
// dy = Height - (y*Scale + OffsetY).
func (v ViewTransform) Matrix() Matrix2D {
	return Translate(v.OffsetX, v.Height-v.OffsetY).Multiply(Scale(v.Scale, -v.Scale))
}

// WorldToDisplay maps a world point to display coordinates.
func (v ViewTransform) WorldToDisplay(x, y float64) (float64, float64) {
	return v.Matrix().TransformPoint(x, y)
}

// DisplayToWorld is the inverse of WorldToDisplay.
func (v ViewTransform) DisplayToWorld(dx, dy float64) (float64, float64) {
	return v.Matrix().Invert().TransformPoint(dx, dy)
}

package geom

import "math"

// Envelope is the axis-aligned bounding box of a set of world points.
type Envelope struct {
	MinX float64 `json:"minX"`
	MaxX float64 `json:"maxX"`
	MinY float64 `json:"minY"`
	MaxY float64 `json:"maxY"`
}

// DefaultEnvelope is reported when there is nothing to bound.
func DefaultEnvelope() Envelope {
	return Envelope{MinX: 0, MaxX: 100, MinY: 0, MaxY: 100}
}

// EmptyEnvelope returns the identity element for Include: any point included
// into it becomes the whole envelope. It must not escape to consumers; use
// Finish to collapse it into DefaultEnvelope.
func EmptyEnvelope() Envelope {
	return Envelope{
		MinX: math.Inf(1),
		MaxX: math.Inf(-1),
		MinY: math.Inf(1),
		MaxY: math.Inf(-1),
	}
}

// Include returns the smallest envelope containing e and (x, y).
func (e Envelope) Include(x, y float64) Envelope {
	return Envelope{
		MinX: min(e.MinX, x),
		MaxX: max(e.MaxX, x),
		MinY: min(e.MinY, y),
		MaxY: max(e.MaxY, y),
	}
}

// IsEmpty reports whether no point has been included yet.
func (e Envelope) IsEmpty() bool {
	return e.MinX > e.MaxX || e.MinY > e.MaxY
}

// Finish replaces an empty envelope with DefaultEnvelope.
func (e Envelope) Finish() Envelope {
	if e.IsEmpty() {
		return DefaultEnvelope()
	}
	return e
}

// Width returns the horizontal extent.
func (e Envelope) Width() float64 {
	return e.MaxX - e.MinX
}

// Height returns the vertical extent.
func (e Envelope) Height() float64 {
	return e.MaxY - e.MinY
}

// Contains checks if a point is inside the envelope (edges included).
func (e Envelope) Contains(x, y float64) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

package dxf

// Point is a 2D vertex in drawing units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entity is one of Line, Polyline, Circle or Arc.
type Entity interface {
	Kind() string
	LayerName() string
}

// Line is a straight segment from (X1,Y1) to (X2,Y2).
type Line struct {
	Layer          string
	X1, Y1, X2, Y2 float64
}

// Polyline is an ordered vertex list; Closed joins the last vertex back to
// the first.
type Polyline struct {
	Layer  string
	Points []Point
	Closed bool
}

// Circle is centered at (CX,CY) with radius R.
type Circle struct {
	Layer  string
	CX, CY float64
	R      float64
}

// Arc runs counter-clockwise from StartDeg to EndDeg.
type Arc struct {
	Layer    string
	CX, CY   float64
	R        float64
	StartDeg float64
	EndDeg   float64
}

func (Line) Kind() string     { return "LINE" }
func (Polyline) Kind() string { return "POLYLINE" }
func (Circle) Kind() string   { return "CIRCLE" }
func (Arc) Kind() string      { return "ARC" }

func (e Line) LayerName() string     { return e.Layer }
func (e Polyline) LayerName() string { return e.Layer }
func (e Circle) LayerName() string   { return e.Layer }
func (e Arc) LayerName() string      { return e.Layer }

package dxf

// builder accumulates the attributes of the entity being read.
type builder struct {
	kind    string
	ignored bool

	layer          string
	x1, y1, x2, y2 float64
	radius         float64
	start, end     float64
	flags          int

	// polyline vertex accumulation
	points     []Point
	pending    Point
	hasPending bool
	inVertex   bool
}

func (b *builder) apply(p pair) {
	if b.ignored {
		return
	}

	if b.kind == "LWPOLYLINE" || b.kind == "POLYLINE" {
		b.applyPolyline(p)
		return
	}

	switch p.code {
	case codeLayer:
		b.layer = p.value
	case codeX:
		b.x1 = number(p.value)
	case codeY:
		b.y1 = number(p.value)
	case codeX2:
		b.x2 = number(p.value)
	case codeY2:
		b.y2 = number(p.value)
	case codeRadius:
		b.radius = number(p.value)
	case codeStart:
		b.start = number(p.value)
	case codeEnd:
		b.end = number(p.value)
	}
}

func (b *builder) applyPolyline(p pair) {
	switch p.code {
	case codeLayer:
		if !b.inVertex {
			b.layer = p.value
		}
	case codeFlags:
		if !b.inVertex {
			b.flags = int(number(p.value))
		}
	case codeX:
		// the POLYLINE header carries a dummy 10/20 before its VERTEX records
		if b.kind == "POLYLINE" && !b.inVertex {
			return
		}
		b.flushVertex()
		b.pending = Point{X: number(p.value)}
		b.hasPending = true
	case codeY:
		if b.kind == "POLYLINE" && !b.inVertex {
			return
		}
		if b.hasPending {
			b.pending.Y = number(p.value)
		}
	}
}

func (b *builder) flushVertex() {
	if b.hasPending {
		b.points = append(b.points, b.pending)
		b.pending = Point{}
		b.hasPending = false
	}
}

// build returns the finished entity, or nil for ignored markers.
func (b *builder) build() Entity {
	switch b.kind {
	case "LINE":
		return Line{Layer: b.layer, X1: b.x1, Y1: b.y1, X2: b.x2, Y2: b.y2}
	case "LWPOLYLINE", "POLYLINE":
		b.flushVertex()
		return Polyline{Layer: b.layer, Points: b.points, Closed: b.flags&flagClosed != 0}
	case "CIRCLE":
		return Circle{Layer: b.layer, CX: b.x1, CY: b.y1, R: b.radius}
	case "ARC":
		return Arc{Layer: b.layer, CX: b.x1, CY: b.y1, R: b.radius, StartDeg: b.start, EndDeg: b.end}
	}
	return nil
}

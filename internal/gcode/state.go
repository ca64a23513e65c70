package gcode

// State is the modal position carried from line to line. It is a value:
// Apply returns a new State and never mutates the receiver.
type State struct {
	X        float64
	Y        float64
	FeedRate float64
}

// Apply folds one block into the running state. Words present on the block
// overwrite the carried values; absent words inherit them. ok is false when
// the block has no G0/G1, in which case the state is returned unchanged.
func (s State) Apply(b Block, line int) (next State, cmd Command, ok bool) {
	kind, ok := b.Motion()
	if !ok {
		return s, Command{}, false
	}

	next = s
	if v, has := b.Value('X'); has {
		next.X = v
	}
	if v, has := b.Value('Y'); has {
		next.Y = v
	}
	if v, has := b.Value('F'); has {
		next.FeedRate = v
	}

	return next, Command{
		Kind:     kind,
		X:        next.X,
		Y:        next.Y,
		FeedRate: next.FeedRate,
		Line:     line,
	}, true
}

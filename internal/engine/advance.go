package engine

import (
	"math"

	"github.com/plotsim/plotsim/internal/gcode"
)

// rapidFactor is how much faster rapids travel than linear moves at the
// same speed setting.
const rapidFactor = 3

// Pose is the tool position and the index of the command it is heading to.
type Pose struct {
	Index    int
	X, Y     float64
	FeedRate float64
}

// StepSize returns the distance covered per tick toward a command of kind
// k at the given speed percentage.
func StepSize(k gcode.Kind, speed float64) float64 {
	step := speed / 25
	if k == gcode.Rapid {
		step *= rapidFactor
	}
	return step
}

// Advance moves pose one tick toward cmds[pose.Index]. When the target is
// within reach it snaps onto it, takes its feed rate, moves on to the next
// index and reports snapped. Past the end of cmds it returns pose unchanged.
func Advance(pose Pose, cmds []gcode.Command, speed float64) (next Pose, snapped bool) {
	if pose.Index < 0 || pose.Index >= len(cmds) {
		return pose, false
	}
	target := cmds[pose.Index]

	dx := target.X - pose.X
	dy := target.Y - pose.Y
	dist := math.Hypot(dx, dy)
	step := StepSize(target.Kind, speed)

	if dist == 0 || dist < step {
		return Pose{
			Index:    pose.Index + 1,
			X:        target.X,
			Y:        target.Y,
			FeedRate: target.FeedRate,
		}, true
	}

	f := step / dist
	pose.X += dx * f
	pose.Y += dy * f
	return pose, false
}

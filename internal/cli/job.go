package cli

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plotsim/plotsim/internal/compiler"
	"github.com/plotsim/plotsim/internal/engine"
	"github.com/plotsim/plotsim/internal/export"
)

// Job is the YAML job file read with --config. Omitted fields keep their
// defaults.
type Job struct {
	Compiler compiler.Options `yaml:"compiler"`

	Playback struct {
		Speed    float64 `yaml:"speed"`
		MaxSteps int     `yaml:"maxSteps"`
	} `yaml:"playback"`

	Surface struct {
		Width   float64 `yaml:"width"`
		Height  float64 `yaml:"height"`
		Padding float64 `yaml:"padding"`
	} `yaml:"surface"`
}

func DefaultJob() Job {
	var j Job
	j.Compiler = compiler.DefaultOptions()
	j.Playback.Speed = engine.DefaultSpeed
	style := export.DefaultStyle()
	j.Surface.Width = style.Width
	j.Surface.Height = style.Height
	j.Surface.Padding = style.Padding
	return j
}

// LoadJob reads a job file over the defaults. An empty path returns the
// defaults.
func LoadJob(path string) (Job, error) {
	job := DefaultJob()
	if path == "" {
		return job, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read job file: %w", err)
	}
	if err := yaml.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("parse job YAML: %w", err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, fmt.Errorf("job %s: %w", path, err)
	}
	return job, nil
}

func (j Job) Validate() error {
	if !positive(j.Compiler.FeedRate) {
		return errors.New("compiler.feedRate must be positive")
	}
	if !finite(j.Compiler.SafeZ) || !finite(j.Compiler.DrawZ) {
		return errors.New("compiler.safeZ and compiler.drawZ must be finite")
	}
	if !positive(j.Playback.Speed) {
		return errors.New("playback.speed must be positive")
	}
	if j.Playback.MaxSteps < 0 {
		return errors.New("playback.maxSteps must not be negative")
	}
	if !positive(j.Surface.Width) || !positive(j.Surface.Height) {
		return errors.New("surface width and height must be positive")
	}
	if !finite(j.Surface.Padding) || j.Surface.Padding < 0 {
		return errors.New("surface.padding must not be negative")
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func positive(v float64) bool { return finite(v) && v > 0 }

// Style returns the SVG style for the job's surface.
func (j Job) Style() export.Style {
	style := export.DefaultStyle()
	style.Width = j.Surface.Width
	style.Height = j.Surface.Height
	style.Padding = j.Surface.Padding
	return style
}

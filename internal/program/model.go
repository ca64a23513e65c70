package program

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/plotsim/plotsim/internal/compiler"
	"github.com/plotsim/plotsim/internal/db"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/geom"
)

// Source formats a program can be created from.
const (
	FormatGCode = "gcode"
	FormatDXF   = "dxf"
)

const timeLayout = "2006-01-02T15:04:05Z"

type Program struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	Format    string `json:"format"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Revision struct {
	ID           string `json:"id"`
	Version      int    `json:"version"`
	CommandCount int    `json:"commandCount"`
	CreatedAt    string `json:"createdAt"`
}

// ParseResult is the outcome of parsing motion text.
type ParseResult struct {
	Commands []gcode.Command `json:"commands"`
	Envelope geom.Envelope   `json:"envelope"`
	Counts   gcode.Counts    `json:"counts"`
}

// CompileResult is the outcome of compiling DXF text. The motion text is
// parsed back so callers see what the engine will run.
type CompileResult struct {
	GCode    string           `json:"gcode"`
	Summary  compiler.Summary `json:"summary"`
	Envelope geom.Envelope    `json:"envelope"`
	Counts   gcode.Counts     `json:"counts"`
}

// Analysis describes a stored program's latest revision.
type Analysis struct {
	ProgramID string `json:"programId"`
	Version   int    `json:"version"`
	ParseResult
}

// NormalizeFormat validates a format name, accepting common aliases.
func NormalizeFormat(f string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "", "gcode", "g-code", "nc", "ngc":
		return FormatGCode, nil
	case "dxf":
		return FormatDXF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

// FormatFromFilename guesses the format from a file extension.
func FormatFromFilename(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".dxf":
		return FormatDXF, nil
	case ".gcode", ".nc", ".ngc", ".tap", ".gc", ".txt":
		return FormatGCode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

func toProgram(p db.Program) *Program {
	return &Program{
		ID:        p.ID,
		Name:      p.Name,
		OwnerID:   p.OwnerID,
		Format:    p.Format,
		CreatedAt: p.CreatedAt.Format(timeLayout),
		UpdatedAt: p.UpdatedAt.Format(timeLayout),
	}
}

func toRevision(r db.Revision) Revision {
	return Revision{
		ID:           r.ID,
		Version:      r.Version,
		CommandCount: r.CommandCount,
		CreatedAt:    r.CreatedAt.Format(timeLayout),
	}
}

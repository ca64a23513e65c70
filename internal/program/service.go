package program

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plotsim/plotsim/internal/compiler"
	"github.com/plotsim/plotsim/internal/db"
	"github.com/plotsim/plotsim/internal/dxf"
	"github.com/plotsim/plotsim/internal/gcode"
	"github.com/plotsim/plotsim/internal/metrics"
	"github.com/plotsim/plotsim/internal/typeid"
)

var (
	ErrNotFound          = errors.New("program not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

type Service struct {
	store   db.Store
	opts    compiler.Options
	metrics *metrics.Collector
}

// NewService creates a program service. m may be nil.
func NewService(store db.Store, opts compiler.Options, m *metrics.Collector) *Service {
	return &Service{store: store, opts: opts, metrics: m}
}

// Parse parses motion text and records parse metrics.
func (s *Service) Parse(text string) ParseResult {
	start := time.Now()
	prog := gcode.Parse(text)
	counts := prog.Counts()
	s.metrics.RecordParse(counts.Rapid, counts.Linear, time.Since(start))

	cmds := prog.Commands
	if cmds == nil {
		cmds = []gcode.Command{}
	}
	return ParseResult{Commands: cmds, Envelope: prog.Envelope, Counts: counts}
}

// Compile compiles DXF text with the service's options and parses the
// result back.
func (s *Service) Compile(dxfText string) CompileResult {
	text, sum := compiler.CompileWithSummary(dxf.Parse(dxfText), s.opts)
	s.metrics.RecordCompile(sum.ByKind)

	parsed := s.Parse(text)
	return CompileResult{
		GCode:    text,
		Summary:  sum,
		Envelope: parsed.Envelope,
		Counts:   parsed.Counts,
	}
}

// Options returns the compiler framing used for DXF sources.
func (s *Service) Options() compiler.Options {
	return s.opts
}

// motionText turns an uploaded source into the motion text that is stored,
// along with its command count. The text is parsed exactly once.
func (s *Service) motionText(format, source string) (string, int, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return "", 0, err
	}
	if format == FormatDXF {
		res := s.Compile(source)
		return res.GCode, res.Counts.Total, nil
	}
	return source, s.Parse(source).Counts.Total, nil
}

func (s *Service) Create(ctx context.Context, ownerID, name, format, source string) (*Program, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}
	text, count, err := s.motionText(format, source)
	if err != nil {
		return nil, err
	}

	p, err := s.store.CreateProgram(ctx, db.Program{
		ID:      typeid.NewProgramID(),
		Name:    name,
		OwnerID: ownerID,
		Format:  format,
	})
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	if _, err := s.appendRevision(ctx, p.ID, text, count); err != nil {
		// a program without revisions cannot be loaded
		if derr := s.store.DeleteProgram(ctx, p.ID); derr != nil {
			slog.Error("remove program after failed revision", "id", p.ID, "error", derr)
		}
		return nil, err
	}

	slog.Info("program created", "id", p.ID, "format", format, "owner", ownerID)
	return toProgram(p), nil
}

// AddRevision stores a new source for an existing program.
func (s *Service) AddRevision(ctx context.Context, programID, userID, format, source string) (*Revision, error) {
	if _, err := s.owned(ctx, programID, userID); err != nil {
		return nil, err
	}
	text, count, err := s.motionText(format, source)
	if err != nil {
		return nil, err
	}
	rev, err := s.appendRevision(ctx, programID, text, count)
	if err != nil {
		return nil, err
	}
	out := toRevision(rev)
	return &out, nil
}

func (s *Service) appendRevision(ctx context.Context, programID, text string, count int) (db.Revision, error) {
	rev, err := s.store.AppendRevision(ctx, db.Revision{
		ID:           typeid.NewRevisionID(),
		ProgramID:    programID,
		Source:       text,
		CommandCount: count,
	})
	if err != nil {
		return db.Revision{}, storeError("append revision", err)
	}
	return rev, nil
}

func (s *Service) Get(ctx context.Context, programID, userID string) (*Program, error) {
	p, err := s.owned(ctx, programID, userID)
	if err != nil {
		return nil, err
	}
	return toProgram(p), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Program, error) {
	stored, err := s.store.ListProgramsForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}

	programs := make([]Program, len(stored))
	for i, p := range stored {
		programs[i] = *toProgram(p)
	}
	return programs, nil
}

func (s *Service) Delete(ctx context.Context, programID, userID string) error {
	if _, err := s.owned(ctx, programID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteProgram(ctx, programID); err != nil {
		return storeError("delete program", err)
	}
	slog.Info("program deleted", "id", programID)
	return nil
}

func (s *Service) ListRevisions(ctx context.Context, programID, userID string) ([]Revision, error) {
	if _, err := s.owned(ctx, programID, userID); err != nil {
		return nil, err
	}
	stored, err := s.store.ListRevisions(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	revs := make([]Revision, len(stored))
	for i, r := range stored {
		revs[i] = toRevision(r)
	}
	return revs, nil
}

// LatestSource returns the motion text of the newest revision.
func (s *Service) LatestSource(ctx context.Context, programID, userID string) (string, error) {
	if _, err := s.owned(ctx, programID, userID); err != nil {
		return "", err
	}
	rev, err := s.latest(ctx, programID)
	if err != nil {
		return "", err
	}
	return rev.Source, nil
}

func (s *Service) Analyze(ctx context.Context, programID, userID string) (*Analysis, error) {
	if _, err := s.owned(ctx, programID, userID); err != nil {
		return nil, err
	}
	rev, err := s.latest(ctx, programID)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		ProgramID:   programID,
		Version:     rev.Version,
		ParseResult: s.Parse(rev.Source),
	}, nil
}

// CanView reports whether userID may open the program. The sample
// program is open to everyone.
func (s *Service) CanView(ctx context.Context, programID, userID string) error {
	if programID == SampleID {
		return nil
	}
	_, err := s.owned(ctx, programID, userID)
	return err
}

// Load returns the parsed latest revision without an access check. It
// backs live sessions, which check access when the socket is opened.
func (s *Service) Load(ctx context.Context, programID string) (gcode.Program, error) {
	if programID == SampleID {
		return gcode.Parse(compiler.SampleSource(s.opts)), nil
	}
	rev, err := s.latest(ctx, programID)
	if err != nil {
		return gcode.Program{}, err
	}
	return gcode.Parse(rev.Source), nil
}

func (s *Service) latest(ctx context.Context, programID string) (db.Revision, error) {
	rev, err := s.store.GetLatestRevision(ctx, programID)
	if err != nil {
		return db.Revision{}, storeError("get latest revision", err)
	}
	return rev, nil
}

func (s *Service) owned(ctx context.Context, programID, userID string) (db.Program, error) {
	p, err := s.store.GetProgram(ctx, programID)
	if err != nil {
		return db.Program{}, storeError("get program", err)
	}
	if p.OwnerID != userID {
		return db.Program{}, ErrForbidden
	}
	return p, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

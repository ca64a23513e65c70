// Package db persists users, programs and program revisions. Two backends
// implement Store: PostgreSQL through a pgx pool for the server and an
// embedded SQLite file for single-node and CLI use.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

// Program is a stored motion program. Format records what the source was
// uploaded as ("gcode" or "dxf"); revisions always hold motion text.
type Program struct {
	ID        string
	Name      string
	OwnerID   string
	Format    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Revision struct {
	ID           string
	ProgramID    string
	Version      int
	Source       string
	CommandCount int
	CreatedAt    time.Time
}

// Store is the persistence boundary used by the services.
type Store interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)

	CreateProgram(ctx context.Context, p Program) (Program, error)
	GetProgram(ctx context.Context, id string) (Program, error)
	ListProgramsForOwner(ctx context.Context, ownerID string) ([]Program, error)
	DeleteProgram(ctx context.Context, id string) error

	// AppendRevision stores rev as the program's next version. Version and
	// CreatedAt are assigned by the store.
	AppendRevision(ctx context.Context, rev Revision) (Revision, error)
	GetLatestRevision(ctx context.Context, programID string) (Revision, error)
	ListRevisions(ctx context.Context, programID string) ([]Revision, error)

	Close() error
}

// Open picks a backend from the URL scheme: postgres:// or postgresql://
// for PostgreSQL, sqlite: for a SQLite file path.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		pool, err := NewPool(ctx, url)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(pool)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	case strings.HasPrefix(url, "sqlite:"):
		s, err := OpenSQLite(strings.TrimPrefix(url, "sqlite:"))
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database url scheme in %q", url)
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

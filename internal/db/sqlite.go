package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Timestamps are stored as unix milliseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id           TEXT PRIMARY KEY,
    email        TEXT NOT NULL UNIQUE,
    password     TEXT NOT NULL,
    display_name TEXT NOT NULL,
    created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS programs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    format     TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS revisions (
    id            TEXT PRIMARY KEY,
    program_id    TEXT NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
    version       INTEGER NOT NULL,
    source        TEXT NOT NULL,
    command_count INTEGER NOT NULL,
    created_at    INTEGER NOT NULL,
    UNIQUE (program_id, version)
);

CREATE INDEX IF NOT EXISTS programs_owner_idx ON programs (owner_id);
`

type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.CreatedAt = now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, display_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Password, u.DisplayName, u.CreatedAt.UnixMilli())
	if err != nil {
		return User{}, sqliteError("create user", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg string) (User, error) {
	var (
		u       User
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, display_name, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &created)
	if err != nil {
		return User{}, sqliteError("get user", err)
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (s *SQLiteStore) CreateProgram(ctx context.Context, p Program) (Program, error) {
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO programs (id, name, owner_id, format, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.OwnerID, p.Format, p.CreatedAt.UnixMilli(), p.UpdatedAt.UnixMilli())
	if err != nil {
		return Program{}, sqliteError("create program", err)
	}
	return p, nil
}

func (s *SQLiteStore) GetProgram(ctx context.Context, id string) (Program, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, format, created_at, updated_at FROM programs WHERE id = ?`, id)
	p, err := scanProgram(row)
	if err != nil {
		return Program{}, sqliteError("get program", err)
	}
	return p, nil
}

func (s *SQLiteStore) ListProgramsForOwner(ctx context.Context, ownerID string) ([]Program, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, format, created_at, updated_at FROM programs
         WHERE owner_id = ? ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	programs := []Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (s *SQLiteStore) DeleteProgram(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM programs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AppendRevision(ctx context.Context, rev Revision) (Revision, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var exists string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM programs WHERE id = ?`, rev.ProgramID).Scan(&exists); err != nil {
		return Revision{}, sqliteError("get program", err)
	}

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM revisions WHERE program_id = ?`, rev.ProgramID,
	).Scan(&rev.Version); err != nil {
		return Revision{}, fmt.Errorf("next version: %w", err)
	}

	rev.CreatedAt = now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO revisions (id, program_id, version, source, command_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.ProgramID, rev.Version, rev.Source, rev.CommandCount, rev.CreatedAt.UnixMilli()); err != nil {
		return Revision{}, sqliteError("create revision", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE programs SET updated_at = ? WHERE id = ?`, rev.CreatedAt.UnixMilli(), rev.ProgramID); err != nil {
		return Revision{}, fmt.Errorf("touch program: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Revision{}, fmt.Errorf("commit: %w", err)
	}
	return rev, nil
}

func (s *SQLiteStore) GetLatestRevision(ctx context.Context, programID string) (Revision, error) {
	var (
		r       Revision
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, program_id, version, source, command_count, created_at FROM revisions
         WHERE program_id = ? ORDER BY version DESC LIMIT 1`, programID,
	).Scan(&r.ID, &r.ProgramID, &r.Version, &r.Source, &r.CommandCount, &created)
	if err != nil {
		return Revision{}, sqliteError("get latest revision", err)
	}
	r.CreatedAt = fromMillis(created)
	return r, nil
}

func (s *SQLiteStore) ListRevisions(ctx context.Context, programID string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, program_id, version, command_count, created_at FROM revisions
         WHERE program_id = ? ORDER BY version`, programID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		var (
			r       Revision
			created int64
		)
		if err := rows.Scan(&r.ID, &r.ProgramID, &r.Version, &r.CommandCount, &created); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.CreatedAt = fromMillis(created)
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProgram(row scanner) (Program, error) {
	var (
		p                Program
		created, updated int64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &p.Format, &created, &updated); err != nil {
		return Program{}, err
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return p, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// sqliteError maps no-rows and constraint violations onto the package
// sentinels.
func sqliteError(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, sqlite3.CONSTRAINT_UNIQUE) || errors.Is(err, sqlite3.CONSTRAINT_PRIMARYKEY) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	if errors.Is(err, sqlite3.CONSTRAINT_FOREIGNKEY) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

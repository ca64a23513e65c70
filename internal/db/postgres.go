package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id           TEXT PRIMARY KEY,
    email        TEXT NOT NULL UNIQUE,
    password     TEXT NOT NULL,
    display_name TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS programs (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    format     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS revisions (
    id            TEXT PRIMARY KEY,
    program_id    TEXT NOT NULL REFERENCES programs(id) ON DELETE CASCADE,
    version       INTEGER NOT NULL,
    source        TEXT NOT NULL,
    command_count INTEGER NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL,
    UNIQUE (program_id, version)
);

CREATE INDEX IF NOT EXISTS programs_owner_idx ON programs (owner_id);
`

// NewPool connects a pgx pool and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) (User, error) {
	u.CreatedAt = now()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password, display_name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.Password, u.DisplayName, u.CreatedAt)
	if err != nil {
		return User{}, pgError("create user", err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	if err != nil {
		return User{}, pgError("get user", err)
	}
	return u, nil
}

func (s *PostgresStore) CreateProgram(ctx context.Context, p Program) (Program, error) {
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	_, err := s.pool.Exec(ctx,
		`INSERT INTO programs (id, name, owner_id, format, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.OwnerID, p.Format, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Program{}, pgError("create program", err)
	}
	return p, nil
}

func (s *PostgresStore) GetProgram(ctx context.Context, id string) (Program, error) {
	var p Program
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, format, created_at, updated_at FROM programs WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.OwnerID, &p.Format, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Program{}, pgError("get program", err)
	}
	return p, nil
}

func (s *PostgresStore) ListProgramsForOwner(ctx context.Context, ownerID string) ([]Program, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, owner_id, format, created_at, updated_at FROM programs
         WHERE owner_id = $1 ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	programs := []Program{}
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.Format, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

func (s *PostgresStore) DeleteProgram(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM programs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendRevision(ctx context.Context, rev Revision) (Revision, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Revision{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// lock the program row so concurrent appends serialize on version
	var updated string
	err = tx.QueryRow(ctx, `SELECT id FROM programs WHERE id = $1 FOR UPDATE`, rev.ProgramID).Scan(&updated)
	if err != nil {
		return Revision{}, pgError("lock program", err)
	}

	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM revisions WHERE program_id = $1`, rev.ProgramID,
	).Scan(&rev.Version); err != nil {
		return Revision{}, fmt.Errorf("next version: %w", err)
	}

	rev.CreatedAt = now()
	if _, err := tx.Exec(ctx,
		`INSERT INTO revisions (id, program_id, version, source, command_count, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rev.ID, rev.ProgramID, rev.Version, rev.Source, rev.CommandCount, rev.CreatedAt); err != nil {
		return Revision{}, pgError("create revision", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE programs SET updated_at = $2 WHERE id = $1`, rev.ProgramID, rev.CreatedAt); err != nil {
		return Revision{}, fmt.Errorf("touch program: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Revision{}, fmt.Errorf("commit: %w", err)
	}
	return rev, nil
}

func (s *PostgresStore) GetLatestRevision(ctx context.Context, programID string) (Revision, error) {
	var r Revision
	err := s.pool.QueryRow(ctx,
		`SELECT id, program_id, version, source, command_count, created_at FROM revisions
         WHERE program_id = $1 ORDER BY version DESC LIMIT 1`, programID,
	).Scan(&r.ID, &r.ProgramID, &r.Version, &r.Source, &r.CommandCount, &r.CreatedAt)
	if err != nil {
		return Revision{}, pgError("get latest revision", err)
	}
	return r, nil
}

func (s *PostgresStore) ListRevisions(ctx context.Context, programID string) ([]Revision, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, program_id, version, command_count, created_at FROM revisions
         WHERE program_id = $1 ORDER BY version`, programID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	revs := []Revision{}
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.ProgramID, &r.Version, &r.CommandCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// pgError maps no-rows and unique violations onto the package sentinels.
func pgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Package history keeps a sqlite log of renders served over HTTP.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Render statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("render not found")

// Render is one row of the history.
type Render struct {
	ID         string    `json:"id"`
	MemeID     string    `json:"meme_id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Output     string    `json:"output,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store is the sqlite-backed history.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens or creates the database at path and applies pending
// migrations. Renders left running by a previous process are marked failed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s := &Store{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := s.markInterrupted(); err != nil && logger != nil {
		logger.Warn("failed to mark interrupted renders", "error", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range entries {
		if m.IsDir() {
			continue
		}
		name := m.Name()
		if s.applied(name) {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec(string(content)); err != nil {
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := s.conn.Exec("INSERT INTO _migrations (name) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if s.logger != nil {
			s.logger.Info("applied migration", "name", name)
		}
	}
	return nil
}

func (s *Store) applied(name string) bool {
	var ok int
	if err := s.conn.QueryRow("SELECT 1 FROM sqlite_master WHERE type='table' AND name='_migrations'").Scan(&ok); err != nil {
		return false
	}
	err := s.conn.QueryRow("SELECT 1 FROM _migrations WHERE name = ?", name).Scan(&ok)
	return err == nil && ok == 1
}

func (s *Store) markInterrupted() error {
	_, err := s.conn.Exec(
		`UPDATE renders SET status = ?, error = 'interrupted by restart', updated_at = ? WHERE status = ?`,
		StatusFailed, formatTime(time.Now()), StatusRunning)
	return err
}

// Begin records a running render.
func (s *Store) Begin(ctx context.Context, id, memeID, mode string) error {
	now := formatTime(time.Now())
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO renders (id, meme_id, mode, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, memeID, mode, StatusRunning, now, now)
	if err != nil {
		return fmt.Errorf("insert render %s: %w", id, err)
	}
	return nil
}

// Finish records the outcome of a render started with Begin.
func (s *Store) Finish(ctx context.Context, id, status, errorKind, errMsg, output string, elapsed time.Duration) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE renders SET status = ?, error_kind = ?, error = ?, output = ?, duration_ms = ?, updated_at = ? WHERE id = ?`,
		status, errorKind, errMsg, output, elapsed.Milliseconds(), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update render %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update render %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns the render with id.
func (s *Store) Get(ctx context.Context, id string) (Render, error) {
	row := s.conn.QueryRowContext(ctx, selectRenders+` WHERE id = ?`, id)
	r, err := scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Render{}, ErrNotFound
	}
	return r, err
}

// List returns up to limit renders, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Render, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx, selectRenders+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list renders: %w", err)
	}
	defer rows.Close()

	var out []Render
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const selectRenders = `SELECT id, meme_id, mode, status, error_kind, error, output, duration_ms, created_at, updated_at FROM renders`

type scanner interface {
	Scan(dest ...any) error
}

func scanRender(sc scanner) (Render, error) {
	var r Render
	var created, updated string
	if err := sc.Scan(&r.ID, &r.MemeID, &r.Mode, &r.Status, &r.ErrorKind, &r.Error, &r.Output, &r.DurationMS, &created, &updated); err != nil {
		return Render{}, err
	}
	r.CreatedAt = parseTime(created)
	r.UpdatedAt = parseTime(updated)
	return r, nil
}

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

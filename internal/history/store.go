package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ripline/internal/services"
)

// Job statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	defaultListLimit        = 50
)

// Record is one job row.
type Record struct {
	ID           string    `json:"id"`
	Device       string    `json:"device"`
	MediaKind    string    `json:"media_kind"`
	Title        string    `json:"title"`
	Titles       []int     `json:"titles"`
	Profile      string    `json:"profile"`
	Status       string    `json:"status"`
	Stage        string    `json:"stage,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store manages the job table.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the database at path and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "database path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	store := &Store{db: db, path: path, now: time.Now}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Start inserts a running job row.
func (s *Store) Start(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return services.Wrap(services.ErrValidation, "history", "start", "job id required", nil)
	}
	titles, err := json.Marshal(rec.Titles)
	if err != nil {
		return fmt.Errorf("encode titles: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	return s.exec(ctx, `INSERT INTO jobs (id, device, media_kind, title, titles, profile, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Device, rec.MediaKind, rec.Title, string(titles), rec.Profile, StatusRunning, now, now)
}

// Finish records the job outcome. stage and cause are only stored for
// failed jobs.
func (s *Store) Finish(ctx context.Context, id, status, stage string, cause error) error {
	var kind, message string
	if cause != nil {
		kind = services.Kind(cause)
		message = cause.Error()
	} else {
		stage = ""
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	return s.exec(ctx, `UPDATE jobs SET status = ?, stage = ?, error_kind = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, stage, kind, message, now, id)
}

// List returns the most recent jobs first. limit <= 0 uses a default of 50.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, device, media_kind, title, titles, profile, status, stage,
		error_kind, error_message, created_at, updated_at FROM jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec              Record
			titles           string
			created, updated string
		)
		if err := rows.Scan(&rec.ID, &rec.Device, &rec.MediaKind, &rec.Title, &titles, &rec.Profile, &rec.Status,
			&rec.Stage, &rec.ErrorKind, &rec.ErrorMessage, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if err := json.Unmarshal([]byte(titles), &rec.Titles); err != nil {
			return nil, fmt.Errorf("decode titles for job %s: %w", rec.ID, err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

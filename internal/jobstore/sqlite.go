// Package jobstore persists job records on disk. The table is the local,
// best-effort view of submitted jobs; losing it only loses tracking, never
// the remote job itself.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"reelgen/internal/domain"
)

// Store is a SQLite-backed record of submitted jobs.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the job database at path.
func Open(path string) (*Store, error) {
	// Busy timeout to avoid SQLITE_BUSY in concurrent access.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("jobstore: open db: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		remote_id TEXT NOT NULL,
		images_json TEXT NOT NULL,
		style TEXT NOT NULL,
		status TEXT NOT NULL,
		result_ref TEXT NOT NULL DEFAULT '',
		failure_reason TEXT NOT NULL DEFAULT '',
		abandoned INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		last_checked_at TEXT,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("jobstore: migrate schema: %w", err)
	}
	return nil
}

// Create inserts a new job record.
func (s *Store) Create(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return errors.New("jobstore: job is nil")
	}
	if job.ID == "" {
		return errors.New("jobstore: job id is required")
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.UpdatedAt.IsZero() {
		job.UpdatedAt = now
	}
	images, err := json.Marshal(job.Images)
	if err != nil {
		return fmt.Errorf("jobstore: marshal images: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, remote_id, images_json, style, status, result_ref, failure_reason, abandoned, created_at, last_checked_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.RemoteID, string(images), job.Style, string(job.Status),
		job.ResultRef, job.FailureReason, boolToInt(job.Abandoned),
		formatTime(job.CreatedAt), nullableTime(job.LastCheckedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("jobstore: insert job: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns of an existing job record.
func (s *Store) Update(ctx context.Context, job *domain.Job) error {
	if job == nil {
		return errors.New("jobstore: job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs
		 SET status = ?, result_ref = ?, failure_reason = ?, abandoned = ?, last_checked_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(job.Status), job.ResultRef, job.FailureReason, boolToInt(job.Abandoned),
		nullableTime(job.LastCheckedAt), formatTime(job.UpdatedAt), job.ID,
	)
	if err != nil {
		return fmt.Errorf("jobstore: update job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobstore: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Get returns a single job record by local id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get job: %w", err)
	}
	return job, nil
}

// List returns every tracked job, newest first.
func (s *Store) List(ctx context.Context) ([]*domain.Job, error) {
	return s.query(ctx, selectColumns+` ORDER BY created_at DESC`)
}

// Active returns jobs that still need polling: neither terminal nor abandoned.
func (s *Store) Active(ctx context.Context) ([]*domain.Job, error) {
	return s.query(ctx,
		selectColumns+` WHERE abandoned = 0 AND status NOT IN (?, ?) ORDER BY created_at`,
		string(domain.JobStatusSucceeded), string(domain.JobStatusFailed),
	)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `SELECT id, remote_id, images_json, style, status, result_ref, failure_reason, abandoned, created_at, last_checked_at, updated_at FROM jobs`

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("jobstore: query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("jobstore: scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("jobstore: iterate jobs: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		imagesJSON  string
		status      string
		abandoned   int
		createdAt   string
		lastChecked sql.NullString
		updatedAt   string
	)
	err := row.Scan(&job.ID, &job.RemoteID, &imagesJSON, &job.Style, &status,
		&job.ResultRef, &job.FailureReason, &abandoned, &createdAt, &lastChecked, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(imagesJSON), &job.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	job.Status = domain.JobStatus(status)
	job.Abandoned = abandoned != 0
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if lastChecked.Valid && lastChecked.String != "" {
		if job.LastCheckedAt, err = parseTime(lastChecked.String); err != nil {
			return nil, err
		}
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", raw, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

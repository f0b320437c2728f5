package queue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Queue is a durable store of work that failed or was rejected, retried
// on a schedule with bounded attempts and a time-to-live. Jobs are owned
// exclusively by the queue: callers enqueue and observe, the background
// processor is the only mutator.
type Queue struct {
	db     *sql.DB
	config Config
	logger *slog.Logger

	handlersMu sync.RWMutex
	handlers   map[string]Handler

	// Processor lifecycle.
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a queue backed by SQLite at the configured path.
func New(config Config) (*Queue, error) {
	if config.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	config.applyDefaults()

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d",
		config.DBPath, int(config.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// Single writer keeps the claim update free of SQLITE_BUSY races.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	q := &Queue{
		db:       db,
		config:   config,
		logger:   slog.Default().With("component", "guard.queue"),
		handlers: make(map[string]Handler),
		now:      time.Now,
	}

	if err := q.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize queue schema: %w", err)
	}

	return q, nil
}

// initSchema creates the job queue schema if it doesn't exist.
func (q *Queue) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS job_queue (
		id TEXT PRIMARY KEY,
		job_type TEXT NOT NULL,
		payload BLOB,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_job_queue_status ON job_queue(status);
	CREATE INDEX IF NOT EXISTS idx_job_queue_expires_at ON job_queue(expires_at);
	`

	_, err := q.db.Exec(schema)
	return err
}

// RegisterHandler installs the handler invoked for jobs of the given
// type. Jobs with no registered handler fail their attempts.
func (q *Queue) RegisterHandler(jobType string, handler Handler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue creates a queued job. maxAttempts and ttl fall back to the
// configured defaults when zero or negative. It returns the job ID.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload []byte, maxAttempts int, ttl time.Duration) (string, error) {
	if jobType == "" {
		return "", fmt.Errorf("job type cannot be empty")
	}
	if maxAttempts <= 0 {
		maxAttempts = q.config.DefaultMaxAttempts
	}
	if ttl <= 0 {
		ttl = q.config.DefaultTTL
	}

	id := uuid.New().String()
	now := q.now()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO job_queue (id, job_type, payload, status, attempts, max_attempts, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?)
	`, id, jobType, payload, StatusQueued, maxAttempts, now.UnixNano(), now.UnixNano(), now.Add(ttl).UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	q.logger.Debug("job enqueued", "job_id", id, "job_type", jobType, "max_attempts", maxAttempts)
	return id, nil
}

// Job returns the job with the given ID.
func (q *Queue) Job(ctx context.Context, id string) (*Job, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, job_type, payload, status, attempts, max_attempts, last_error, created_at, updated_at, expires_at
		FROM job_queue WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}

// PendingJobs returns up to limit queued jobs, oldest first.
func (q *Queue) PendingJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = q.config.BatchSize
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, job_type, payload, status, attempts, max_attempts, last_error, created_at, updated_at, expires_at
		FROM job_queue WHERE status = ? ORDER BY created_at ASC LIMIT ?
	`, StatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	return jobs, nil
}

// Stats returns per-status job counts.
func (q *Queue) Stats(ctx context.Context) (*Stats, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM job_queue GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{}
	for rows.Next() {
		var status Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats.Total += count
		switch status {
		case StatusQueued:
			stats.Queued = count
		case StatusInProgress:
			stats.InProgress = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		case StatusExpired:
			stats.Expired = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return stats, nil
}

// Close releases the queue's resources. The processor must be stopped
// first.
func (q *Queue) Close() error {
	return q.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for scanJob.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(s scanner) (*Job, error) {
	var (
		job       Job
		createdAt int64
		updatedAt int64
		expiresAt int64
	)
	if err := s.Scan(&job.ID, &job.JobType, &job.Payload, &job.Status, &job.Attempts,
		&job.MaxAttempts, &job.LastError, &createdAt, &updatedAt, &expiresAt); err != nil {
		return nil, err
	}
	job.CreatedAt = time.Unix(0, createdAt)
	job.UpdatedAt = time.Unix(0, updatedAt)
	job.ExpiresAt = time.Unix(0, expiresAt)
	return &job, nil
}

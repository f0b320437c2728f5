package queue

import (
	"context"
	"time"
)

// Status represents a job's lifecycle state.
type Status string

const (
	// StatusQueued marks a job waiting for a processing cycle.
	StatusQueued Status = "queued"

	// StatusInProgress marks a job claimed by the processor.
	StatusInProgress Status = "in_progress"

	// StatusCompleted marks a successfully processed job. Terminal.
	StatusCompleted Status = "completed"

	// StatusFailed marks a job that exhausted its attempts. Terminal.
	StatusFailed Status = "failed"

	// StatusExpired marks a job whose TTL passed before it completed.
	// Terminal.
	StatusExpired Status = "expired"
)

// Terminal reports whether a status is final; terminal jobs are never
// re-queued.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// Job is a durable unit of deferred work. Jobs are created by Enqueue
// and mutated only by the background processor.
type Job struct {
	// ID uniquely identifies the job.
	ID string

	// JobType selects the handler that re-invokes the work.
	JobType string

	// Payload is the opaque call description.
	Payload []byte

	// Status is the current lifecycle state.
	Status Status

	// Attempts is the number of processing attempts made so far.
	Attempts int

	// MaxAttempts bounds retries; reaching it fails the job terminally.
	MaxAttempts int

	// LastError records the most recent attempt's failure, if any.
	LastError string

	// CreatedAt is when the job was enqueued.
	CreatedAt time.Time

	// UpdatedAt is when the job last changed state.
	UpdatedAt time.Time

	// ExpiresAt is when the job's TTL runs out.
	ExpiresAt time.Time
}

// Handler re-invokes the deferred work described by a job's payload.
type Handler func(ctx context.Context, job *Job) error

// Stats summarizes the queue's contents per status.
type Stats struct {
	Total      int64
	Queued     int64
	InProgress int64
	Completed  int64
	Failed     int64
	Expired    int64
}

// Config contains fallback queue settings.
type Config struct {
	// DBPath is the SQLite database file for the job queue.
	DBPath string

	// RetryInterval is how often the background processor runs a cycle.
	// Default: 30s
	RetryInterval time.Duration

	// DefaultMaxAttempts applies to jobs enqueued without an explicit
	// attempt budget.
	// Default: 3
	DefaultMaxAttempts int

	// DefaultTTL applies to jobs enqueued without an explicit TTL.
	// Default: 24h
	DefaultTTL time.Duration

	// BatchSize is the maximum number of jobs processed per cycle.
	// Default: 10
	BatchSize int

	// BusyTimeout is how long to wait for SQLite locks before failing.
	// Default: 5s
	BusyTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.RetryInterval == 0 {
		c.RetryInterval = 30 * time.Second
	}
	if c.DefaultMaxAttempts == 0 {
		c.DefaultMaxAttempts = 3
	}
	if c.DefaultTTL == 0 {
		c.DefaultTTL = 24 * time.Hour
	}
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = 5 * time.Second
	}
}

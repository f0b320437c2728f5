package queue

import (
	"context"
	"fmt"
	"time"
)

// Start launches the background processor, which runs one processing
// cycle every RetryInterval until Stop is called or the context is
// cancelled.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return fmt.Errorf("processor already running")
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})

	go q.processLoop(ctx, q.stopCh, q.doneCh)

	q.logger.Info("queue processor started", "retry_interval", q.config.RetryInterval)
	return nil
}

// Stop halts the background processor and blocks until the loop has
// exited, guaranteeing no goroutine outlives the queue.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	doneCh := q.doneCh
	q.mu.Unlock()

	<-doneCh
	q.logger.Info("queue processor stopped")
}

func (q *Queue) processLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(q.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			if err := q.ProcessOnce(ctx); err != nil {
				q.logger.Error("processing cycle failed", "error", err)
			}
		}
	}
}

// ProcessOnce runs a single processing cycle: expire overdue jobs, then
// claim and attempt up to BatchSize retriable jobs. It is called by the
// background loop and directly by tests and the CLI.
func (q *Queue) ProcessOnce(ctx context.Context) error {
	if err := q.sweepExpired(ctx); err != nil {
		return err
	}

	jobs, err := q.claimableJobs(ctx)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		q.processJob(ctx, job)
	}

	return nil
}

// sweepExpired marks overdue non-terminal jobs expired, regardless of
// attempts remaining.
func (q *Queue) sweepExpired(ctx context.Context) error {
	now := q.now()
	res, err := q.db.ExecContext(ctx, `
		UPDATE job_queue SET status = ?, updated_at = ?
		WHERE expires_at <= ? AND status IN (?, ?)
	`, StatusExpired, now.UnixNano(), now.UnixNano(), StatusQueued, StatusInProgress)
	if err != nil {
		return fmt.Errorf("failed to sweep expired jobs: %w", err)
	}

	if expired, err := res.RowsAffected(); err == nil && expired > 0 {
		q.logger.Info("expired jobs swept", "count", expired)
	}
	return nil
}

// claimableJobs returns queued jobs with attempts and TTL remaining.
func (q *Queue) claimableJobs(ctx context.Context) ([]*Job, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, job_type, payload, status, attempts, max_attempts, last_error, created_at, updated_at, expires_at
		FROM job_queue
		WHERE status = ? AND attempts < max_attempts AND expires_at > ?
		ORDER BY created_at ASC LIMIT ?
	`, StatusQueued, q.now().UnixNano(), q.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to query claimable jobs: %w", err)
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
		return nil, fmt.Errorf("failed to query claimable jobs: %w", err)
	}
	return jobs, nil
}

// processJob claims a single job, runs its handler, and records the
// outcome. Claim failures are silent: another worker won the job.
func (q *Queue) processJob(ctx context.Context, job *Job) {
	claimed, err := q.claim(ctx, job.ID)
	if err != nil {
		q.logger.Error("claim failed", "job_id", job.ID, "error", err)
		return
	}
	if !claimed {
		return
	}

	handler := q.handlerFor(job.JobType)
	if handler == nil {
		q.recordAttempt(ctx, job, fmt.Errorf("no handler registered for job type %q", job.JobType))
		return
	}

	if err := handler(ctx, job); err != nil {
		q.recordAttempt(ctx, job, err)
		return
	}

	q.markComplete(ctx, job)
}

func (q *Queue) handlerFor(jobType string) Handler {
	q.handlersMu.RLock()
	defer q.handlersMu.RUnlock()
	return q.handlers[jobType]
}

// claim atomically transitions a job from queued to in_progress. Only
// one worker can win this transition for a given job.
func (q *Queue) claim(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE job_queue SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, StatusInProgress, q.now().UnixNano(), id, StatusQueued)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// markComplete transitions a claimed job to its terminal completed state.
func (q *Queue) markComplete(ctx context.Context, job *Job) {
	_, err := q.db.ExecContext(ctx, `
		UPDATE job_queue SET status = ?, attempts = attempts + 1, last_error = '', updated_at = ?
		WHERE id = ?
	`, StatusCompleted, q.now().UnixNano(), job.ID)
	if err != nil {
		q.logger.Error("failed to mark job complete", "job_id", job.ID, "error", err)
		return
	}
	q.logger.Info("job completed", "job_id", job.ID, "job_type", job.JobType)
}

// recordAttempt counts a failed attempt, failing the job terminally once
// its attempt budget is exhausted and re-queueing it otherwise.
func (q *Queue) recordAttempt(ctx context.Context, job *Job, attemptErr error) {
	attempts := job.Attempts + 1
	status := StatusQueued
	if attempts >= job.MaxAttempts {
		status = StatusFailed
	}

	_, err := q.db.ExecContext(ctx, `
		UPDATE job_queue SET status = ?, attempts = ?, last_error = ?, updated_at = ?
		WHERE id = ?
	`, status, attempts, attemptErr.Error(), q.now().UnixNano(), job.ID)
	if err != nil {
		q.logger.Error("failed to record attempt", "job_id", job.ID, "error", err)
		return
	}

	if status == StatusFailed {
		q.logger.Warn("job failed after exhausting attempts",
			"job_id", job.ID,
			"job_type", job.JobType,
			"attempts", attempts,
			"error", attemptErr,
		)
	} else {
		q.logger.Debug("job attempt failed, re-queued",
			"job_id", job.ID,
			"attempts", attempts,
			"error", attemptErr,
		)
	}
}

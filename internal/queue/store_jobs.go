package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateJob inserts a pending job for a video at position within its run.
func (s *Store) CreateJob(ctx context.Context, id, runID string, position int, videoPath, stem string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        id,
		RunID:     runID,
		Position:  position,
		VideoPath: videoPath,
		Stem:      stem,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO jobs (
            id, run_id, position, video_path, stem, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.RunID,
		job.Position,
		job.VideoPath,
		job.Stem,
		job.Status,
		formatTime(now),
		formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// UpdateJob persists the mutable fields of a job.
func (s *Store) UpdateJob(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is required")
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET
            status = ?, stage = ?, progress_percent = ?, progress_message = ?,
            output_path = ?, error_message = ?, updated_at = ?, finished_at = ?
        WHERE id = ?`,
		job.Status,
		nullableString(job.Stage),
		job.ProgressPercent,
		nullableString(job.ProgressMessage),
		nullableString(job.OutputPath),
		nullableString(job.ErrorMessage),
		formatTime(job.UpdatedAt),
		nullableTime(job.FinishedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", job.ID, ErrNotFound)
	}
	return nil
}

// GetJob fetches a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// JobsForRun lists a run's jobs in batch order.
func (s *Store) JobsForRun(ctx context.Context, runID string) ([]*Job, error) {
	return s.queryJobs(ctx, "SELECT "+jobColumns+" FROM jobs WHERE run_id = ? ORDER BY position", runID)
}

// RecentJobs lists the most recently updated jobs first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryJobs(ctx, "SELECT "+jobColumns+" FROM jobs ORDER BY updated_at DESC LIMIT ?", limit)
}

// JobsByStatus lists jobs whose status matches any of the given statuses.
func (s *Store) JobsByStatus(ctx context.Context, statuses ...Status) ([]*Job, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	query := "SELECT " + jobColumns + " FROM jobs WHERE status IN (?" + repeatPlaceholders(len(statuses)-1) + ") ORDER BY created_at"
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	return s.queryJobs(ctx, query, args...)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func repeatPlaceholders(n int) string {
	out := ""
	for range n {
		out += ", ?"
	}
	return out
}

package queue

import (
	"database/sql"
	"strings"
	"time"
)

const runColumns = "id, status, total, processed, failed, cancelled, message, started_at, finished_at"

const jobColumns = "id, run_id, position, video_path, stem, status, stage, progress_percent, progress_message, output_path, error_message, created_at, updated_at, finished_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(scanner rowScanner) (*Run, error) {
	var (
		run         Run
		status      string
		message     sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&status,
		&run.Total,
		&run.Processed,
		&run.Failed,
		&run.Cancelled,
		&message,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Message = message.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseNullableTime(finishedRaw)
	return &run, nil
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job         Job
		status      string
		stage       sql.NullString
		message     sql.NullString
		output      sql.NullString
		errMessage  sql.NullString
		createdRaw  string
		updatedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.RunID,
		&job.Position,
		&job.VideoPath,
		&job.Stem,
		&status,
		&stage,
		&job.ProgressPercent,
		&message,
		&output,
		&errMessage,
		&createdRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.Stage = stage.String
	job.ProgressMessage = message.String
	job.OutputPath = output.String
	job.ErrorMessage = errMessage.String
	job.CreatedAt = parseTime(createdRaw)
	job.UpdatedAt = parseTime(updatedRaw)
	job.FinishedAt = parseNullableTime(finishedRaw)
	return &job, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t := parseTime(raw.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

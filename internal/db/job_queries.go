package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrJobNotFound = errors.New("translation job not found")

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 500
)

// InsertJobItemParams is the stored outcome for one row of a job.
type InsertJobItemParams struct {
	RowIndex       int
	Kind           string
	TranslatedText string
	BackendName    string
	Cached         bool
	Reason         string
	LastError      string
	Attempts       int
}

// InsertJobParams controls translation job inserts.
type InsertJobParams struct {
	JobUUID    string
	SourceLang string
	TargetLang string
	Total      int
	Translated int
	Cached     int
	Skipped    int
	Failed     int
	Cancelled  int
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []InsertJobItemParams
}

// JobSummary is one row of the job history listing.
type JobSummary struct {
	JobUUID    string    `json:"job_uuid"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Total      int       `json:"total"`
	Translated int       `json:"translated"`
	Cached     int       `json:"cached"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	Cancelled  int       `json:"cancelled"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// JobItemRow is the stored outcome for one row.
type JobItemRow struct {
	RowIndex       int    `json:"row"`
	Kind           string `json:"kind"`
	TranslatedText string `json:"text,omitempty"`
	BackendName    string `json:"backend,omitempty"`
	Cached         bool   `json:"cached,omitempty"`
	Reason         string `json:"reason,omitempty"`
	LastError      string `json:"last_error,omitempty"`
	Attempts       int    `json:"attempts"`
}

// JobDetail is a job with its per-row outcomes.
type JobDetail struct {
	JobSummary
	Items []JobItemRow `json:"items"`
}

func (p *Pool) InsertJob(ctx context.Context, job InsertJobParams) error {
	if p == nil || p.gdb == nil {
		return ErrNotConfigured
	}

	return p.WithTx(ctx, func(tx *Tx) error {
		return insertJobTx(ctx, tx, job)
	})
}

func insertJobTx(ctx context.Context, tx *Tx, job InsertJobParams) error {
	const insertJob = `
INSERT INTO celltrans.translation_jobs (
	job_uuid,
	source_lang,
	target_lang,
	total,
	translated,
	cached,
	skipped,
	failed,
	cancelled,
	started_at,
	finished_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING job_id
`

	var jobID int64
	if err := tx.QueryRow(
		ctx,
		insertJob,
		strings.TrimSpace(job.JobUUID),
		job.SourceLang,
		job.TargetLang,
		job.Total,
		job.Translated,
		job.Cached,
		job.Skipped,
		job.Failed,
		job.Cancelled,
		job.StartedAt,
		job.FinishedAt,
	).Scan(&jobID); err != nil {
		return fmt.Errorf("insert translation job: %w", err)
	}

	const insertItem = `
INSERT INTO celltrans.translation_job_items (
	job_id,
	row_index,
	kind,
	translated_text,
	backend_name,
	cached,
	reason,
	last_error,
	attempts
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

	for _, item := range job.Items {
		if _, err := tx.Exec(
			ctx,
			insertItem,
			jobID,
			item.RowIndex,
			item.Kind,
			item.TranslatedText,
			item.BackendName,
			item.Cached,
			item.Reason,
			item.LastError,
			item.Attempts,
		); err != nil {
			return fmt.Errorf("insert translation job item row=%d: %w", item.RowIndex, err)
		}
	}

	return nil
}

// ListJobs returns the most recent jobs first.
func (p *Pool) ListJobs(ctx context.Context, limit int) ([]JobSummary, error) {
	if p == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	limit = min(limit, maxJobListLimit)

	const q = `
SELECT
	job_uuid::text,
	source_lang,
	target_lang,
	total,
	translated,
	cached,
	skipped,
	failed,
	cancelled,
	started_at,
	finished_at
FROM celltrans.translation_jobs
ORDER BY created_at DESC, job_id DESC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query translation jobs: %w", err)
	}
	defer rows.Close()

	items := make([]JobSummary, 0, limit)
	for rows.Next() {
		var row JobSummary
		if err := scanJobSummary(rows, &row); err != nil {
			return nil, fmt.Errorf("scan translation job row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translation job rows: %w", err)
	}

	return items, nil
}

func (p *Pool) GetJobByUUID(ctx context.Context, jobUUID string) (JobDetail, error) {
	if p == nil {
		return JobDetail{}, ErrNotConfigured
	}

	const jobQuery = `
SELECT
	job_id,
	job_uuid::text,
	source_lang,
	target_lang,
	total,
	translated,
	cached,
	skipped,
	failed,
	cancelled,
	started_at,
	finished_at
FROM celltrans.translation_jobs
WHERE job_uuid = $1::uuid
LIMIT 1
`

	var (
		jobID  int64
		detail JobDetail
	)
	err := p.QueryRow(ctx, jobQuery, strings.TrimSpace(jobUUID)).Scan(
		&jobID,
		&detail.JobUUID,
		&detail.SourceLang,
		&detail.TargetLang,
		&detail.Total,
		&detail.Translated,
		&detail.Cached,
		&detail.Skipped,
		&detail.Failed,
		&detail.Cancelled,
		&detail.StartedAt,
		&detail.FinishedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return JobDetail{}, ErrJobNotFound
		}
		return JobDetail{}, fmt.Errorf("query translation job: %w", err)
	}

	const itemsQuery = `
SELECT
	row_index,
	kind,
	translated_text,
	backend_name,
	cached,
	reason,
	last_error,
	attempts
FROM celltrans.translation_job_items
WHERE job_id = $1
ORDER BY row_index
`

	rows, err := p.Query(ctx, itemsQuery, jobID)
	if err != nil {
		return JobDetail{}, fmt.Errorf("query translation job items: %w", err)
	}
	defer rows.Close()

	detail.Items = make([]JobItemRow, 0, detail.Total)
	for rows.Next() {
		var item JobItemRow
		if err := rows.Scan(
			&item.RowIndex,
			&item.Kind,
			&item.TranslatedText,
			&item.BackendName,
			&item.Cached,
			&item.Reason,
			&item.LastError,
			&item.Attempts,
		); err != nil {
			return JobDetail{}, fmt.Errorf("scan translation job item: %w", err)
		}
		detail.Items = append(detail.Items, item)
	}
	if err := rows.Err(); err != nil {
		return JobDetail{}, fmt.Errorf("iterate translation job items: %w", err)
	}

	return detail, nil
}

func scanJobSummary(rows *Rows, row *JobSummary) error {
	return rows.Scan(
		&row.JobUUID,
		&row.SourceLang,
		&row.TargetLang,
		&row.Total,
		&row.Translated,
		&row.Cached,
		&row.Skipped,
		&row.Failed,
		&row.Cancelled,
		&row.StartedAt,
		&row.FinishedAt,
	)
}

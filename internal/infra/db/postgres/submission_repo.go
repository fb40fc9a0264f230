package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/polycode-insight/internal/domain/analysis"
)

type SubmissionRepository struct{ db *sql.DB }

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, tenant_id, submitted_at, source_language, target_languages, source_code,
       status, outcome, summary, error_kind, error_message, attempts, raw_url, model, duration_ms`

// Save insert/update Submission record
func (r *SubmissionRepository) Save(ctx context.Context, s *domain.Submission) error {
	const q = `
INSERT INTO analysis_submissions
(id, tenant_id, submitted_at, source_language, target_languages, source_code,
 status, outcome, summary, error_kind, error_message, attempts, raw_url, model, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,
        $7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 outcome = EXCLUDED.outcome,
 summary = EXCLUDED.summary,
 error_kind = EXCLUDED.error_kind,
 error_message = EXCLUDED.error_message,
 attempts = EXCLUDED.attempts,
 raw_url = EXCLUDED.raw_url,
 model = EXCLUDED.model,
 duration_ms = EXCLUDED.duration_ms;`

	targets, outcome, err := encodeSubmission(s)
	if err != nil {
		return err
	}
	submitted := s.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}

	_, err = r.db.ExecContext(ctx, q,
		s.ID, stringOrDash(s.TenantID), submitted.UTC(), stringOrDash(string(s.SourceLanguage)), targets, s.SourceCode,
		stringOrDash(string(s.Status)), outcome, s.Summary, string(s.ErrorKind), s.ErrorMessage,
		s.Attempts, s.RawURL, s.Model, s.DurationMS,
	)
	return err
}

// Get by ID + Tenant
func (r *SubmissionRepository) Get(ctx context.Context, tenant string, id domain.SubmissionID) (*domain.Submission, error) {
	q := `SELECT ` + submissionColumns + `
FROM analysis_submissions
WHERE tenant_id=$1 AND id=$2
LIMIT 1;`
	s, err := scanSubmission(r.db.QueryRowContext(ctx, q, tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

// Paginate with offset + limit, newest first
func (r *SubmissionRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `SELECT ` + submissionColumns + `
FROM analysis_submissions
WHERE tenant_id=$1
ORDER BY submitted_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	data := []*domain.Submission{}
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		data = append(data, s)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_submissions WHERE tenant_id = $1`, tenant).Scan(&total); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Summary counts submissions per terminal status since the cut-off
func (r *SubmissionRepository) Summary(ctx context.Context, tenant string, since time.Time) (domain.StatusCounts, error) {
	const q = `
SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE status = 'succeeded')           AS succeeded,
       COUNT(*) FILTER (WHERE status = 'partially_succeeded') AS partial,
       COUNT(*) FILTER (WHERE status = 'failed')              AS failed
FROM analysis_submissions
WHERE tenant_id=$1 AND submitted_at >= $2;`
	var c domain.StatusCounts
	if err := r.db.QueryRowContext(ctx, q, tenant, since.UTC()).Scan(&c.Total, &c.Succeeded, &c.Partial, &c.Failed); err != nil {
		return domain.StatusCounts{}, err
	}
	return c, nil
}

// Durations returns duration_ms of every submission since the cut-off
func (r *SubmissionRepository) Durations(ctx context.Context, tenant string, since time.Time) ([]int64, error) {
	const q = `SELECT duration_ms FROM analysis_submissions WHERE tenant_id=$1 AND submitted_at >= $2;`
	rows, err := r.db.QueryContext(ctx, q, tenant, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var d int64
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

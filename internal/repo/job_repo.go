package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Riskwatch/internal/domain"
)

// JobRepo — репозиторий для работы со scoring jobs.
type JobRepo struct {
	pool *pgxpool.Pool
}

// NewJobRepo создаёт новый JobRepo.
func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `
	id, status, source, schedule_id, records, student_ids, model_version,
	total, scored, risk_counts, started_at, finished_at, error,
	idempotency_key, created_at
`

// Create создаёт новый job. Повторный ключ идемпотентности — ErrAlreadyExists.
func (r *JobRepo) Create(ctx context.Context, job *domain.ScoringJob) error {
	var recordsJSON []byte
	if len(job.Records) > 0 {
		var err error
		recordsJSON, err = json.Marshal(job.Records)
		if err != nil {
			return fmt.Errorf("marshal records: %w", err)
		}
	}

	query := `
		INSERT INTO scoring_jobs (id, status, source, schedule_id, records, student_ids,
		                          total, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.Source,
		nullUUID(job.ScheduleID),
		recordsJSON,
		nullInt64s(job.StudentIDs),
		job.Total,
		nullable(job.IdempotencyKey),
		job.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID возвращает job по ID.
func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScoringJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scoring_jobs WHERE id = $1`
	return scanJob(r.pool.QueryRow(ctx, query, id))
}

// GetByIdempotencyKey возвращает job по ключу идемпотентности.
func (r *JobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.ScoringJob, error) {
	query := `SELECT ` + jobColumns + ` FROM scoring_jobs WHERE idempotency_key = $1`
	return scanJob(r.pool.QueryRow(ctx, query, key))
}

// List возвращает список jobs с фильтрацией. Records не загружаются.
func (r *JobRepo) List(ctx context.Context, filter JobFilter) ([]domain.ScoringJob, error) {
	query := `
		SELECT id, status, source, schedule_id, NULL::jsonb, student_ids, model_version,
		       total, scored, risk_counts, started_at, finished_at, error,
		       idempotency_key, created_at
		FROM scoring_jobs
		WHERE ($1::text IS NULL OR status = $1::job_status)
		  AND ($2::uuid IS NULL OR schedule_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	return r.query(ctx, query,
		nullable(string(filter.Status)),
		nullUUID(filter.ScheduleID),
		filter.Limit,
		filter.Offset,
	)
}

// Update обновляет статус и итоги job.
func (r *JobRepo) Update(ctx context.Context, job *domain.ScoringJob) error {
	var countsJSON []byte
	if job.RiskCounts != nil {
		var err error
		countsJSON, err = json.Marshal(job.RiskCounts)
		if err != nil {
			return fmt.Errorf("marshal risk counts: %w", err)
		}
	}

	query := `
		UPDATE scoring_jobs
		SET status = $2, model_version = $3, total = $4, scored = $5, risk_counts = $6,
		    started_at = $7, finished_at = $8, error = $9
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		nullable(job.ModelVersion),
		job.Total,
		job.Scored,
		countsJSON,
		job.StartedAt,
		job.FinishedAt,
		nullable(job.Error),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim атомарно переводит job из PENDING в RUNNING.
// Если job уже взят другим воркером — ErrInvalidState.
func (r *JobRepo) Claim(ctx context.Context, job *domain.ScoringJob) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE scoring_jobs
		SET status = 'RUNNING', started_at = $2, error = NULL
		WHERE id = $1 AND status = 'PENDING'
	`, job.ID, job.StartedAt)
	if err != nil {
		return fmt.Errorf("claim job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

// ListPending возвращает jobs в статусе PENDING, старые первыми.
func (r *JobRepo) ListPending(ctx context.Context, limit int) ([]domain.ScoringJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scoring_jobs
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
	`
	return r.query(ctx, query, limit)
}

// JobFilter — параметры фильтрации jobs.
type JobFilter struct {
	Status     domain.JobStatus
	ScheduleID *uuid.UUID
	Limit      int
	Offset     int
}

func (r *JobRepo) query(ctx context.Context, query string, args ...any) ([]domain.ScoringJob, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.ScoringJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.ScoringJob, error) {
	var job domain.ScoringJob
	var recordsJSON, countsJSON []byte
	var modelVersion, jobError, idempotencyKey *string

	err := row.Scan(
		&job.ID,
		&job.Status,
		&job.Source,
		&job.ScheduleID,
		&recordsJSON,
		&job.StudentIDs,
		&modelVersion,
		&job.Total,
		&job.Scored,
		&countsJSON,
		&job.StartedAt,
		&job.FinishedAt,
		&jobError,
		&idempotencyKey,
		&job.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if recordsJSON != nil {
		if err := json.Unmarshal(recordsJSON, &job.Records); err != nil {
			return nil, fmt.Errorf("unmarshal records: %w", err)
		}
	}
	if countsJSON != nil {
		if err := json.Unmarshal(countsJSON, &job.RiskCounts); err != nil {
			return nil, fmt.Errorf("unmarshal risk counts: %w", err)
		}
	}
	if modelVersion != nil {
		job.ModelVersion = *modelVersion
	}
	if jobError != nil {
		job.Error = *jobError
	}
	if idempotencyKey != nil {
		job.IdempotencyKey = *idempotencyKey
	}
	return &job, nil
}

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

// PredictionRepo — репозиторий прогнозов.
//
// Прогноз целиком хранится в details (jsonb); student_id, job_id,
// dropout_risk и risk_confidence вынесены в колонки для фильтрации.
type PredictionRepo struct {
	pool *pgxpool.Pool
}

// NewPredictionRepo создаёт новый PredictionRepo.
func NewPredictionRepo(pool *pgxpool.Pool) *PredictionRepo {
	return &PredictionRepo{pool: pool}
}

// SaveBatch сохраняет пакет прогнозов в одной транзакции.
func (r *PredictionRepo) SaveBatch(ctx context.Context, preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for i := range preds {
		p := &preds[i]
		details, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal prediction of student %d: %w", p.StudentID, err)
		}
		batch.Queue(`
			INSERT INTO predictions (student_id, job_id, model_version, dropout_risk,
			                         risk_confidence, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			p.StudentID,
			nullUUID(p.JobID),
			p.ModelVersion,
			string(p.DropoutRisk),
			p.RiskConfidence,
			details,
			p.CreatedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range preds {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert prediction of student %d: %w", preds[i].StudentID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetLatest возвращает последний прогноз студента.
func (r *PredictionRepo) GetLatest(ctx context.Context, studentID int64) (*domain.Prediction, error) {
	query := `
		SELECT details, job_id, created_at
		FROM predictions
		WHERE student_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return scanPrediction(r.pool.QueryRow(ctx, query, studentID))
}

// ListByJob возвращает прогнозы job в порядке сохранения.
func (r *PredictionRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Prediction, error) {
	query := `
		SELECT details, job_id, created_at
		FROM predictions
		WHERE job_id = $1
		ORDER BY id
	`
	return r.query(ctx, query, jobID)
}

// List возвращает последние прогнозы студентов (по одному на студента),
// самые уверенные первыми.
func (r *PredictionRepo) List(ctx context.Context, filter PredictionFilter) ([]domain.Prediction, error) {
	query := `
		SELECT details, job_id, created_at
		FROM (
			SELECT DISTINCT ON (student_id) details, job_id, created_at,
			       student_id, dropout_risk, risk_confidence
			FROM predictions
			ORDER BY student_id, created_at DESC, id DESC
		) latest
		WHERE ($1::text IS NULL OR dropout_risk = $1)
		ORDER BY risk_confidence DESC, student_id
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, query,
		nullable(string(filter.Risk)),
		filter.Limit,
		filter.Offset,
	)
}

// RiskDistribution считает распределение рисков по последним прогнозам студентов.
func (r *PredictionRepo) RiskDistribution(ctx context.Context) (domain.RiskSummary, error) {
	query := `
		SELECT dropout_risk, COUNT(*)
		FROM (
			SELECT DISTINCT ON (student_id) dropout_risk
			FROM predictions
			ORDER BY student_id, created_at DESC, id DESC
		) latest
		GROUP BY dropout_risk
	`
	summary := domain.RiskSummary{Counts: make(map[domain.RiskLevel]int)}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return summary, fmt.Errorf("risk distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var risk string
		var count int
		if err := rows.Scan(&risk, &count); err != nil {
			return summary, fmt.Errorf("scan risk count: %w", err)
		}
		summary.Counts[domain.RiskLevel(risk)] = count
		summary.Total += count
	}
	return summary, rows.Err()
}

// PredictionFilter — параметры фильтрации прогнозов.
type PredictionFilter struct {
	Risk   domain.RiskLevel
	Limit  int
	Offset int
}

func (r *PredictionRepo) query(ctx context.Context, query string, args ...any) ([]domain.Prediction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, err
		}
		preds = append(preds, *p)
	}
	return preds, rows.Err()
}

func scanPrediction(row pgx.Row) (*domain.Prediction, error) {
	var p domain.Prediction
	var details []byte
	var jobID *uuid.UUID

	err := row.Scan(&details, &jobID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan prediction: %w", err)
	}

	createdAt := p.CreatedAt
	if err := json.Unmarshal(details, &p); err != nil {
		return nil, fmt.Errorf("unmarshal prediction: %w", err)
	}
	p.JobID = jobID
	p.CreatedAt = createdAt
	return &p, nil
}

package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Riskwatch/internal/domain"
)

// RecordRepo — репозиторий сохранённых записей студентов.
type RecordRepo struct {
	pool *pgxpool.Pool
}

// NewRecordRepo создаёт новый RecordRepo.
func NewRecordRepo(pool *pgxpool.Pool) *RecordRepo {
	return &RecordRepo{pool: pool}
}

// Upsert сохраняет запись, заменяя поля существующей.
func (r *RecordRepo) Upsert(ctx context.Context, rec *domain.StudentRecord) error {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		INSERT INTO student_records (student_id, fields, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (student_id) DO UPDATE
		SET fields = EXCLUDED.fields, updated_at = NOW()
		RETURNING updated_at
	`
	if err := r.pool.QueryRow(ctx, query, rec.StudentID, fieldsJSON).Scan(&rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// UpsertBatch сохраняет пакет записей одним round-trip.
func (r *RecordRepo) UpsertBatch(ctx context.Context, recs []domain.StudentRecord) error {
	if len(recs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range recs {
		fieldsJSON, err := json.Marshal(recs[i].Fields)
		if err != nil {
			return fmt.Errorf("marshal fields of student %d: %w", recs[i].StudentID, err)
		}
		batch.Queue(`
			INSERT INTO student_records (student_id, fields, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (student_id) DO UPDATE
			SET fields = EXCLUDED.fields, updated_at = NOW()
		`, recs[i].StudentID, fieldsJSON)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for i := range recs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert record %d: %w", recs[i].StudentID, err)
		}
	}
	return nil
}

// Get возвращает запись по student_id.
func (r *RecordRepo) Get(ctx context.Context, studentID int64) (*domain.StudentRecord, error) {
	query := `
		SELECT student_id, fields, updated_at
		FROM student_records
		WHERE student_id = $1
	`
	return scanRecord(r.pool.QueryRow(ctx, query, studentID))
}

// List возвращает записи по списку student_id. Отсутствующие id пропускаются.
func (r *RecordRepo) List(ctx context.Context, studentIDs []int64) ([]domain.StudentRecord, error) {
	query := `
		SELECT student_id, fields, updated_at
		FROM student_records
		WHERE student_id = ANY($1)
		ORDER BY student_id
	`
	return r.query(ctx, query, studentIDs)
}

// ListAll возвращает все сохранённые записи.
func (r *RecordRepo) ListAll(ctx context.Context) ([]domain.StudentRecord, error) {
	query := `
		SELECT student_id, fields, updated_at
		FROM student_records
		ORDER BY student_id
	`
	return r.query(ctx, query)
}

// Delete удаляет запись.
func (r *RecordRepo) Delete(ctx context.Context, studentID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM student_records WHERE student_id = $1`, studentID)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RecordRepo) query(ctx context.Context, query string, args ...any) ([]domain.StudentRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var recs []domain.StudentRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// scanRecord сканирует строку в StudentRecord (pgx.Rows тоже реализует pgx.Row).
func scanRecord(row pgx.Row) (*domain.StudentRecord, error) {
	var rec domain.StudentRecord
	var fieldsJSON []byte

	err := row.Scan(&rec.StudentID, &fieldsJSON, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan record: %w", err)
	}

	rec.Fields, err = decodeFields(fieldsJSON)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// decodeFields разбирает jsonb с числами как json.Number,
// чтобы большие целые не теряли точность.
func decodeFields(data []byte) (map[string]any, error) {
	fields := make(map[string]any)
	if len(data) == 0 {
		return fields, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}

package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Riskwatch/internal/domain"
)

// ScheduleRepo хранит расписания пересчёта (таблица rescore_schedules).
type ScheduleRepo struct {
	pool *pgxpool.Pool
}

func NewScheduleRepo(pool *pgxpool.Pool) *ScheduleRepo {
	return &ScheduleRepo{pool: pool}
}

// ScheduleFilter — фильтр List. Enabled == nil — все расписания.
type ScheduleFilter struct {
	Enabled *bool
	Limit   int
	Offset  int
}

const selectSchedules = `
	SELECT id, name, cron_expr, interval_sec, timezone, enabled,
	       next_due_at, last_run_at, last_job_id, student_ids, created_at, updated_at
	FROM rescore_schedules`

// scheduleArgs — именованные параметры для INSERT и UPDATE.
// Пустые name, cron_expr, interval_sec и student_ids пишутся как NULL.
func scheduleArgs(s *domain.RescoreSchedule) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":          s.ID,
		"name":        nullable(s.Name),
		"cron_expr":   nullable(s.CronExpr),
		"interval":    nullable(s.IntervalSec),
		"timezone":    s.Timezone,
		"enabled":     s.Enabled,
		"next_due_at": s.NextDueAt,
		"last_run_at": s.LastRunAt,
		"last_job_id": s.LastJobID,
		"student_ids": nullInt64s(s.StudentIDs),
		"created_at":  s.CreatedAt,
		"updated_at":  s.UpdatedAt,
	}
}

func (r *ScheduleRepo) Create(ctx context.Context, s *domain.RescoreSchedule) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rescore_schedules (id, name, cron_expr, interval_sec, timezone, enabled,
			next_due_at, student_ids, created_at, updated_at)
		VALUES (@id, @name, @cron_expr, @interval, @timezone, @enabled,
			@next_due_at, @student_ids, @created_at, @updated_at)`,
		scheduleArgs(s))
	switch {
	case isUniqueViolation(err):
		return ErrAlreadyExists
	case err != nil:
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// Update перезаписывает все изменяемые поля расписания.
func (r *ScheduleRepo) Update(ctx context.Context, s *domain.RescoreSchedule) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE rescore_schedules SET
			name = @name, cron_expr = @cron_expr, interval_sec = @interval,
			timezone = @timezone, enabled = @enabled,
			next_due_at = @next_due_at, last_run_at = @last_run_at, last_job_id = @last_job_id,
			student_ids = @student_ids, updated_at = @updated_at
		WHERE id = @id`,
		scheduleArgs(s))
	switch {
	case err != nil:
		return fmt.Errorf("update schedule: %w", err)
	case tag.RowsAffected() == 0:
		return ErrNotFound
	}
	return nil
}

func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rescore_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RescoreSchedule, error) {
	rows, err := r.pool.Query(ctx, selectSchedules+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	s, err := pgx.CollectExactlyOneRow(rows, scanSchedule)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return &s, nil
}

// List — расписания, новые первыми.
func (r *ScheduleRepo) List(ctx context.Context, filter ScheduleFilter) ([]domain.RescoreSchedule, error) {
	return r.collect(ctx, selectSchedules+`
		WHERE ($1::boolean IS NULL OR enabled = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		filter.Enabled, filter.Limit, filter.Offset)
}

// ListDue — включённые расписания с next_due_at <= now, самые просроченные первыми.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.RescoreSchedule, error) {
	return r.collect(ctx, selectSchedules+`
		WHERE enabled AND next_due_at <= $1
		ORDER BY next_due_at
		LIMIT $2`,
		now, limit)
}

func (r *ScheduleRepo) collect(ctx context.Context, sql string, args ...any) ([]domain.RescoreSchedule, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	schedules, err := pgx.CollectRows(rows, scanSchedule)
	if err != nil {
		return nil, fmt.Errorf("scan schedules: %w", err)
	}
	return schedules, nil
}

func scanSchedule(row pgx.CollectableRow) (domain.RescoreSchedule, error) {
	var (
		s        domain.RescoreSchedule
		name     *string
		cronExpr *string
		interval *int
	)
	err := row.Scan(
		&s.ID, &name, &cronExpr, &interval, &s.Timezone, &s.Enabled,
		&s.NextDueAt, &s.LastRunAt, &s.LastJobID, &s.StudentIDs, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return s, err
	}
	if name != nil {
		s.Name = *name
	}
	if cronExpr != nil {
		s.CronExpr = *cronExpr
	}
	if interval != nil {
		s.IntervalSec = *interval
	}
	return s, nil
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/repo"
	"github.com/shaiso/Riskwatch/internal/telemetry"
)

// ScheduleStore — хранилище расписаний.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.RescoreSchedule, error)
	Update(ctx context.Context, schedule *domain.RescoreSchedule) error
}

// JobStore — создание scoring jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.ScoringJob) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.ScoringJob, error)
}

// PendingPublisher уведомляет воркеров о новом job.
type PendingPublisher interface {
	PublishJobPending(ctx context.Context, jobID uuid.UUID) error
}

// Scheduler — планировщик, превращающий due расписания в scoring jobs.
type Scheduler struct {
	schedules ScheduleStore
	jobs      JobStore
	publisher PendingPublisher
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules ScheduleStore
	Jobs      JobStore
	Publisher PendingPublisher // опционально
	Logger    *slog.Logger
	BatchSize int // количество расписаний за один тик (default: 100)
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		jobs:      cfg.Jobs,
		publisher: cfg.Publisher,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// IdempotencyKey — ключ job для запуска расписания в момент dueAt.
// Для одного расписания и одного времени создаётся только один job.
func IdempotencyKey(scheduleID uuid.UUID, dueAt time.Time) string {
	return fmt.Sprintf("%s_%d", scheduleID, dueAt.Unix())
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due расписания (enabled=true, next_due_at <= now)
// 2. Для каждого создаёт scoring job
// 3. Обновляет next_due_at
// 4. Публикует job.pending в RabbitMQ
//
// Ошибки одного расписания не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, created int
	for i := range schedules {
		sched := &schedules[i]

		jobCreated, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if jobCreated {
			created++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"jobs_created", created,
	)
	return nil
}

// processSchedule обрабатывает одно расписание.
// Возвращает true, если job был создан (не был дубликатом).
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.RescoreSchedule, now time.Time) (bool, error) {
	logger := telemetry.WithScheduleID(s.logger, sched.ID.String())
	idempKey := IdempotencyKey(sched.ID, *sched.NextDueAt)

	jobID, jobCreated, err := s.ensureJob(ctx, sched, idempKey, now)
	if err != nil {
		return false, err
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		// Некорректное расписание выключаем, чтобы не создавать job каждый тик
		logger.Error("failed to calculate next due, disabling schedule", "error", err)
		sched.Enabled = false
		sched.UpdatedAt = now
		if err := s.schedules.Update(ctx, sched); err != nil {
			return jobCreated, fmt.Errorf("disable schedule: %w", err)
		}
		return jobCreated, nil
	}

	sched.RecordRun(jobID, nextDue, now)
	if err := s.schedules.Update(ctx, sched); err != nil {
		return jobCreated, fmt.Errorf("update schedule: %w", err)
	}

	if s.publisher != nil && jobCreated {
		if err := s.publisher.PublishJobPending(ctx, jobID); err != nil {
			// Не фатально: job уже в БД, воркер заберёт его через polling
			logger.Warn("failed to publish job.pending", "job_id", jobID, "error", err)
		}
	}
	return jobCreated, nil
}

// ensureJob возвращает job для ключа, создавая его при необходимости.
func (s *Scheduler) ensureJob(ctx context.Context, sched *domain.RescoreSchedule, key string, now time.Time) (uuid.UUID, bool, error) {
	existing, err := s.jobs.GetByIdempotencyKey(ctx, key)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return uuid.Nil, false, fmt.Errorf("check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Debug("job already exists (idempotency)",
			"schedule_id", sched.ID,
			"job_id", existing.ID,
			"idempotency_key", key,
		)
		return existing.ID, false, nil
	}

	scheduleID := sched.ID
	job := &domain.ScoringJob{
		ID:             uuid.New(),
		Status:         domain.JobStatusPending,
		Source:         domain.JobSourceSchedule,
		ScheduleID:     &scheduleID,
		StudentIDs:     sched.StudentIDs,
		IdempotencyKey: key,
		CreatedAt:      now,
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			// Параллельный планировщик успел раньше
			existing, getErr := s.jobs.GetByIdempotencyKey(ctx, key)
			if getErr != nil {
				return uuid.Nil, false, fmt.Errorf("get existing job: %w", getErr)
			}
			return existing.ID, false, nil
		}
		return uuid.Nil, false, fmt.Errorf("create job: %w", err)
	}

	telemetry.SchedulerJobsCreated.Inc()
	s.logger.Info("created job from schedule",
		"job_id", job.ID,
		"schedule_id", sched.ID,
		"schedule_name", sched.Name,
		"students", len(sched.StudentIDs),
	)
	return job.ID, true, nil
}

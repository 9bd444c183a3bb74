package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/mq"
	"github.com/shaiso/Riskwatch/internal/predict"
	"github.com/shaiso/Riskwatch/internal/repo"
	"github.com/shaiso/Riskwatch/internal/telemetry"
)

// finalizeTimeout — сколько ждём записи итога job после остановки воркера.
const finalizeTimeout = 5 * time.Second

// RetryPolicy — повторы для операций с хранилищем.
type RetryPolicy struct {
	MaxAttempts  int
	Backoff      string // "exponential" или "fixed"
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy — 3 попытки с экспоненциальной задержкой от 1s до 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		Backoff:      "exponential",
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// handleJobPending обрабатывает событие из очереди jobs.pending.
func (w *Worker) handleJobPending(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JobPendingPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse job.pending payload", "error", err)
		return err
	}

	w.logger.Debug("received job.pending event", "job_id", payload.JobID)

	if err := w.processJob(ctx, payload.JobID); err != nil {
		// Ожидаемые ситуации — ack
		if errors.Is(err, ErrJobNotFound) || errors.Is(err, ErrJobNotPending) {
			w.logger.Debug("job not processed", "job_id", payload.JobID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process job", "job_id", payload.JobID, "error", err)
		return err
	}
	return nil
}

// processJob загружает job, считает прогнозы и сохраняет результат.
//
// Ошибка возвращается, только если итог job не удалось записать:
// ошибки расчёта фиксируются в самом job (FAILED).
func (w *Worker) processJob(ctx context.Context, jobID uuid.UUID) error {
	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return fmt.Errorf("get job: %w", err)
	}

	if job.Status != domain.JobStatusPending {
		return ErrJobNotPending
	}

	job.MarkRunning()
	if err := w.jobs.Claim(ctx, job); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrJobNotPending
		}
		return fmt.Errorf("claim job: %w", err)
	}

	logger := telemetry.WithJobID(w.logger, job.ID.String())
	logger.Info("job started", "source", job.Source, "inline", job.HasInlineRecords())

	preds, runErr := w.score(ctx, job)

	// Итог пишем даже если воркер останавливается
	finCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		finCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
		defer cancel()
		if runErr == nil {
			runErr = ErrWorkerStopped
		}
	}

	if runErr != nil {
		job.MarkFailed(runErr.Error())
		if err := w.jobs.Update(finCtx, job); err != nil {
			return fmt.Errorf("update job to failed: %w", err)
		}
		telemetry.JobsTotal.WithLabelValues(string(job.Status)).Inc()
		logger.Warn("job failed", "error", runErr, "duration", job.Duration())
		w.publishCompletion(finCtx, job)
		return nil
	}

	job.MarkSucceeded(w.predictor.ModelVersion(), preds)
	if err := w.jobs.Update(finCtx, job); err != nil {
		return fmt.Errorf("update job to succeeded: %w", err)
	}
	telemetry.JobsTotal.WithLabelValues(string(job.Status)).Inc()

	logger.Info("job succeeded",
		"scored", job.Scored,
		"risk_counts", job.RiskCounts,
		"duration", job.Duration(),
	)
	w.publishCompletion(finCtx, job)
	return nil
}

// score загружает записи job, считает и сохраняет прогнозы.
func (w *Worker) score(ctx context.Context, job *domain.ScoringJob) ([]domain.Prediction, error) {
	records, err := w.loadRecords(ctx, job)
	if err != nil {
		return nil, err
	}
	job.Total = len(records)
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	preds, err := w.predictor.BatchPredict(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	jobID := job.ID
	for i := range preds {
		preds[i].JobID = &jobID
	}

	err = w.withRetry(ctx, "save predictions", func() error {
		return w.predictions.SaveBatch(ctx, preds)
	})
	if err != nil {
		return nil, err
	}
	return preds, nil
}

// loadRecords возвращает записи job: inline, по списку id или все сохранённые.
func (w *Worker) loadRecords(ctx context.Context, job *domain.ScoringJob) ([]domain.StudentRecord, error) {
	if job.HasInlineRecords() {
		return job.Records, nil
	}

	var records []domain.StudentRecord
	err := w.withRetry(ctx, "load records", func() error {
		var err error
		if len(job.StudentIDs) > 0 {
			records, err = w.records.List(ctx, job.StudentIDs)
		} else {
			records, err = w.records.ListAll(ctx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	if n := len(job.StudentIDs); n > 0 && len(records) < n {
		w.logger.Warn("some students have no stored record",
			"job_id", job.ID,
			"requested", n,
			"found", len(records),
		)
	}
	return records, nil
}

// withRetry повторяет fn согласно RetryPolicy.
func (w *Worker) withRetry(ctx context.Context, op string, fn func() error) error {
	maxAttempts := w.retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !isRetriable(lastErr) {
			return fmt.Errorf("%s: %w", op, lastErr)
		}
		if attempt >= maxAttempts {
			break
		}

		delay := calculateBackoff(attempt, &w.retry)
		w.logger.Debug("retrying", "op", op, "attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s: %w after %d attempts: %w", op, ErrRetryExhausted, maxAttempts, lastErr)
}

// isRetriable — ошибки данных и отмена не лечатся повтором.
func isRetriable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case errors.Is(err, predict.ErrFeatureMismatch), errors.Is(err, predict.ErrNonNumericFeature):
		return false
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, repo.ErrInvalidState):
		return false
	default:
		return true
	}
}

// calculateBackoff вычисляет задержку перед retry.
func calculateBackoff(attempt int, policy *RetryPolicy) time.Duration {
	if policy == nil {
		return time.Second
	}

	initialDelay := policy.InitialDelay
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var delay time.Duration
	switch policy.Backoff {
	case "exponential":
		// delay = initialDelay * 2^(attempt-1)
		delay = initialDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
				break
			}
		}
	default:
		delay = initialDelay
	}

	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// publishCompletion публикует событие job.completed. Ошибка публикации не фатальна:
// итог уже в БД.
func (w *Worker) publishCompletion(ctx context.Context, job *domain.ScoringJob) {
	if w.publisher == nil {
		w.logger.Debug("publisher not available, skipping job.completed publish", "job_id", job.ID)
		return
	}

	payload := mq.JobCompletedPayload{
		JobID:        job.ID,
		Status:       string(job.Status),
		ModelVersion: job.ModelVersion,
		Scored:       job.Scored,
		Error:        job.Error,
	}
	if len(job.RiskCounts) > 0 {
		payload.RiskCounts = make(map[string]int, len(job.RiskCounts))
		for risk, n := range job.RiskCounts {
			payload.RiskCounts[string(risk)] = n
		}
	}

	if err := w.publisher.PublishJobCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish job.completed", "job_id", job.ID, "error", err)
	}
}

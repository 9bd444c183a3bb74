package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoringJob — асинхронный пакетный прогноз.
//
// Job создаётся когда:
// - Клиент отправляет пакет через API/CLI
// - Scheduler запускает плановый пересчёт
//
// Записи берутся либо из Records (inline), либо из сохранённых
// student_records: StudentIDs или все, если список пуст.
type ScoringJob struct {
	ID     uuid.UUID `json:"id"`
	Status JobStatus `json:"status"`
	Source JobSource `json:"source"`

	// ScheduleID — расписание, создавшее job (nil для ручных).
	ScheduleID *uuid.UUID `json:"schedule_id,omitempty"`

	Records    []StudentRecord `json:"records,omitempty"`
	StudentIDs []int64         `json:"student_ids,omitempty"`

	// ModelVersion — версия модели, которой job посчитан.
	ModelVersion string `json:"model_version,omitempty"`

	Total      int               `json:"total"`
	Scored     int               `json:"scored"`
	RiskCounts map[RiskLevel]int `json:"risk_counts,omitempty"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`

	// IdempotencyKey — для плановых job: "{schedule_id}_{next_due_unix}".
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasInlineRecords возвращает true, если записи переданы в самом job.
func (j *ScoringJob) HasInlineRecords() bool {
	return len(j.Records) > 0
}

// Duration возвращает продолжительность выполнения.
func (j *ScoringJob) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// MarkRunning переводит job в статус RUNNING.
func (j *ScoringJob) MarkRunning() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// MarkSucceeded фиксирует итог: версию модели и распределение рисков.
func (j *ScoringJob) MarkSucceeded(modelVersion string, preds []Prediction) {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.FinishedAt = &now
	j.ModelVersion = modelVersion
	j.Scored = len(preds)
	j.RiskCounts = make(map[RiskLevel]int)
	for i := range preds {
		j.RiskCounts[preds[i].DropoutRisk]++
	}
}

// MarkFailed переводит job в статус FAILED с ошибкой.
func (j *ScoringJob) MarkFailed(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.FinishedAt = &now
	j.Error = err
}

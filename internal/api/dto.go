package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Riskwatch/internal/domain"
)

// Predict DTOs

// PredictRequest — запрос на синхронный прогноз.
//
// Записи — плоские объекты со student_id среди колонок.
// Тело может быть и просто массивом записей.
type PredictRequest struct {
	Records []map[string]any `json:"records"`
	Persist bool             `json:"persist,omitempty"`
}

// PredictResponse — ответ с прогнозами.
type PredictResponse struct {
	ModelVersion string              `json:"model_version"`
	Count        int                 `json:"count"`
	Predictions  []domain.Prediction `json:"predictions"`
}

// Job DTOs

// CreateJobRequest — запрос на асинхронный пересчёт.
//
// Records — inline записи. Если их нет, берутся сохранённые записи
// StudentIDs или все сохранённые записи, когда список пуст.
type CreateJobRequest struct {
	Records    []map[string]any `json:"records,omitempty"`
	StudentIDs []int64          `json:"student_ids,omitempty"`
	Source     string           `json:"source,omitempty"`
}

// JobResponse — ответ с job.
type JobResponse struct {
	ID             uuid.UUID      `json:"id"`
	Status         string         `json:"status"`
	Source         string         `json:"source"`
	ScheduleID     *uuid.UUID     `json:"schedule_id,omitempty"`
	StudentIDs     []int64        `json:"student_ids,omitempty"`
	InlineRecords  int            `json:"inline_records,omitempty"`
	ModelVersion   string         `json:"model_version,omitempty"`
	Total          int            `json:"total"`
	Scored         int            `json:"scored"`
	RiskCounts     map[string]int `json:"risk_counts,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// JobFromDomain конвертирует domain.ScoringJob в JobResponse.
// Inline записи не возвращаются, только их количество.
func JobFromDomain(j *domain.ScoringJob) JobResponse {
	resp := JobResponse{
		ID:             j.ID,
		Status:         string(j.Status),
		Source:         string(j.Source),
		ScheduleID:     j.ScheduleID,
		StudentIDs:     j.StudentIDs,
		InlineRecords:  len(j.Records),
		ModelVersion:   j.ModelVersion,
		Total:          j.Total,
		Scored:         j.Scored,
		StartedAt:      j.StartedAt,
		FinishedAt:     j.FinishedAt,
		Error:          j.Error,
		IdempotencyKey: j.IdempotencyKey,
		CreatedAt:      j.CreatedAt,
	}
	if len(j.RiskCounts) > 0 {
		resp.RiskCounts = make(map[string]int, len(j.RiskCounts))
		for risk, n := range j.RiskCounts {
			resp.RiskCounts[string(risk)] = n
		}
	}
	return resp
}

// Student DTOs

// RecordResponse — ответ с записью студента.
type RecordResponse struct {
	StudentID int64          `json:"student_id"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RecordFromDomain конвертирует domain.StudentRecord в RecordResponse.
func RecordFromDomain(r *domain.StudentRecord) RecordResponse {
	return RecordResponse{
		StudentID: r.StudentID,
		Fields:    r.Fields,
		UpdatedAt: r.UpdatedAt,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string  `json:"name"`
	CronExpr    string  `json:"cron_expr,omitempty"`
	IntervalSec int     `json:"interval_sec,omitempty"`
	Timezone    string  `json:"timezone,omitempty"`
	Enabled     bool    `json:"enabled"`
	StudentIDs  []int64 `json:"student_ids,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string  `json:"name,omitempty"`
	CronExpr    *string  `json:"cron_expr,omitempty"`
	IntervalSec *int     `json:"interval_sec,omitempty"`
	Timezone    *string  `json:"timezone,omitempty"`
	StudentIDs  *[]int64 `json:"student_ids,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	CronExpr    string     `json:"cron_expr,omitempty"`
	IntervalSec int        `json:"interval_sec,omitempty"`
	Timezone    string     `json:"timezone"`
	Enabled     bool       `json:"enabled"`
	StudentIDs  []int64    `json:"student_ids,omitempty"`
	NextDueAt   *time.Time `json:"next_due_at,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastJobID   *uuid.UUID `json:"last_job_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.RescoreSchedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.RescoreSchedule) ScheduleResponse {
	return ScheduleResponse{
		ID:          s.ID,
		Name:        s.Name,
		CronExpr:    s.CronExpr,
		IntervalSec: s.IntervalSec,
		Timezone:    s.Timezone,
		Enabled:     s.Enabled,
		StudentIDs:  s.StudentIDs,
		NextDueAt:   s.NextDueAt,
		LastRunAt:   s.LastRunAt,
		LastJobID:   s.LastJobID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// decodeJSON декодирует тело, сохраняя числа как json.Number.
func decodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}

// decodePredictRequest принимает как объект PredictRequest, так и массив записей.
func decodePredictRequest(r io.Reader) (PredictRequest, error) {
	var req PredictRequest
	body, err := io.ReadAll(r)
	if err != nil {
		return req, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = decodeJSON(bytes.NewReader(trimmed), &req.Records)
		return req, err
	}
	err = decodeJSON(bytes.NewReader(trimmed), &req)
	return req, err
}

// toRecords строит записи из плоских объектов.
func toRecords(rows []map[string]any) ([]domain.StudentRecord, error) {
	records := make([]domain.StudentRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := domain.NewStudentRecord(row)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

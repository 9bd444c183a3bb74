package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/repo"
)

// CreateJob создаёт scoring job и уведомляет воркеров.
// POST /api/v1/jobs
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		Unavailable(w, "job storage is not configured")
		return
	}

	var req CreateJobRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		invalidBody(w, err)
		return
	}

	records, err := toRecords(req.Records)
	if HandlePredictError(w, h.log(r), err) {
		return
	}

	source := domain.JobSourceAPI
	switch domain.JobSource(req.Source) {
	case "", domain.JobSourceAPI:
	case domain.JobSourceCLI:
		source = domain.JobSourceCLI
	default:
		BadRequest(w, "source must be api or cli")
		return
	}

	job := &domain.ScoringJob{
		ID:         uuid.New(),
		Status:     domain.JobStatusPending,
		Source:     source,
		Records:    records,
		StudentIDs: req.StudentIDs,
		Total:      len(records),
		CreatedAt:  time.Now().UTC(),
	}

	if err := h.jobs.Create(r.Context(), job); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishJobPending(r.Context(), job.ID); err != nil {
			// Не фатально: воркер найдёт job через polling
			h.log(r).Warn("failed to publish job.pending", "job_id", job.ID, "error", err)
		}
	}

	Created(w, JobFromDomain(job))
}

// ListJobs возвращает список jobs с фильтрацией.
// GET /api/v1/jobs?status=...&schedule_id=...&limit=...&offset=...
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		Unavailable(w, "job storage is not configured")
		return
	}

	filter := repo.JobFilter{}
	filter.Limit, filter.Offset = pagination(r)

	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status, ok := domain.ParseJobStatus(statusStr)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = status
	}

	if scheduleIDStr := r.URL.Query().Get("schedule_id"); scheduleIDStr != "" {
		scheduleID, err := uuid.Parse(scheduleIDStr)
		if err != nil {
			BadRequest(w, "invalid schedule_id")
			return
		}
		filter.ScheduleID = &scheduleID
	}

	jobs, err := h.jobs.List(r.Context(), filter)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	result := make([]JobResponse, len(jobs))
	for i := range jobs {
		result[i] = JobFromDomain(&jobs[i])
	}

	List(w, result, len(result))
}

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		Unavailable(w, "job storage is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "job not found") {
		return
	}

	Success(w, JobFromDomain(job))
}

// ListJobPredictions возвращает прогнозы, посчитанные job.
// GET /api/v1/jobs/{id}/predictions
func (h *Handler) ListJobPredictions(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil || h.predictions == nil {
		Unavailable(w, "job storage is not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	// Проверяем, что job существует
	_, err = h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "job not found") {
		return
	}

	preds, err := h.predictions.ListByJob(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}
	if preds == nil {
		preds = []domain.Prediction{}
	}

	List(w, preds, len(preds))
}

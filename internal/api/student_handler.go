package api

import (
	"net/http"

	"github.com/shaiso/Riskwatch/internal/domain"
)

// PutRecord создаёт или заменяет запись студента.
// PUT /api/v1/students/{id}/record
//
// Тело — плоский объект колонок. student_id в теле, если есть,
// должен совпадать с путём.
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		Unavailable(w, "record storage is not configured")
		return
	}

	id, ok := studentIDParam(r)
	if !ok {
		BadRequest(w, "invalid student id")
		return
	}

	var fields map[string]any
	if err := decodeJSON(r.Body, &fields); err != nil || fields == nil {
		invalidBody(w, err)
		return
	}

	if _, has := fields[domain.StudentIDField]; has {
		rec, err := domain.NewStudentRecord(fields)
		if err != nil {
			BadRequest(w, err.Error())
			return
		}
		if rec.StudentID != id {
			BadRequest(w, "student_id in body does not match path")
			return
		}
		fields = rec.Fields
	}

	rec := &domain.StudentRecord{StudentID: id, Fields: fields}
	if err := h.records.Upsert(r.Context(), rec); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	Success(w, RecordFromDomain(rec))
}

// GetRecord возвращает запись студента.
// GET /api/v1/students/{id}/record
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		Unavailable(w, "record storage is not configured")
		return
	}

	id, ok := studentIDParam(r)
	if !ok {
		BadRequest(w, "invalid student id")
		return
	}

	rec, err := h.records.Get(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "record not found") {
		return
	}

	Success(w, RecordFromDomain(rec))
}

// DeleteRecord удаляет запись студента.
// DELETE /api/v1/students/{id}/record
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		Unavailable(w, "record storage is not configured")
		return
	}

	id, ok := studentIDParam(r)
	if !ok {
		BadRequest(w, "invalid student id")
		return
	}

	if HandleRepoError(w, h.log(r), h.records.Delete(r.Context(), id), "record not found") {
		return
	}

	NoContent(w)
}

// GetStudentPrediction возвращает последний прогноз студента.
// GET /api/v1/students/{id}/prediction
func (h *Handler) GetStudentPrediction(w http.ResponseWriter, r *http.Request) {
	if h.predictions == nil {
		Unavailable(w, "prediction storage is not configured")
		return
	}

	id, ok := studentIDParam(r)
	if !ok {
		BadRequest(w, "invalid student id")
		return
	}

	pred, err := h.predictions.GetLatest(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "prediction not found") {
		return
	}

	Success(w, pred)
}

package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Observe(),
		Recovery(),
		LimitBody(h.maxBody),
	)

	// Model
	mux.Handle("GET /api/v1/model", chain(http.HandlerFunc(h.GetModel)))
	mux.Handle("POST /api/v1/predict", chain(http.HandlerFunc(h.Predict)))

	// Jobs
	mux.Handle("GET /api/v1/jobs", chain(http.HandlerFunc(h.ListJobs)))
	mux.Handle("POST /api/v1/jobs", chain(http.HandlerFunc(h.CreateJob)))
	mux.Handle("GET /api/v1/jobs/{id}", chain(http.HandlerFunc(h.GetJob)))
	mux.Handle("GET /api/v1/jobs/{id}/predictions", chain(http.HandlerFunc(h.ListJobPredictions)))

	// Students
	mux.Handle("PUT /api/v1/students/{id}/record", chain(http.HandlerFunc(h.PutRecord)))
	mux.Handle("GET /api/v1/students/{id}/record", chain(http.HandlerFunc(h.GetRecord)))
	mux.Handle("DELETE /api/v1/students/{id}/record", chain(http.HandlerFunc(h.DeleteRecord)))
	mux.Handle("GET /api/v1/students/{id}/prediction", chain(http.HandlerFunc(h.GetStudentPrediction)))

	// Predictions
	mux.Handle("GET /api/v1/predictions", chain(http.HandlerFunc(h.ListPredictions)))
	mux.Handle("GET /api/v1/predictions/summary", chain(http.HandlerFunc(h.PredictionSummary)))

	// Schedules
	mux.Handle("GET /api/v1/schedules", chain(http.HandlerFunc(h.ListSchedules)))
	mux.Handle("POST /api/v1/schedules", chain(http.HandlerFunc(h.CreateSchedule)))
	mux.Handle("GET /api/v1/schedules/{id}", chain(http.HandlerFunc(h.GetSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}", chain(http.HandlerFunc(h.UpdateSchedule)))
	mux.Handle("DELETE /api/v1/schedules/{id}", chain(http.HandlerFunc(h.DeleteSchedule)))
	mux.Handle("PUT /api/v1/schedules/{id}/enabled", chain(http.HandlerFunc(h.SetScheduleEnabled)))
}

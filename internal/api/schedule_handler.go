package api

import (
	"cmp"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/repo"
	"github.com/shaiso/Riskwatch/internal/scheduler"
)

// schedulesReady отвечает 503, если хранилище расписаний не подключено.
func (h *Handler) schedulesReady(w http.ResponseWriter) bool {
	if h.schedules == nil {
		Unavailable(w, "schedule storage is not configured")
		return false
	}
	return true
}

// loadSchedule читает расписание по {id} из пути. При ошибке ответ уже отправлен.
func (h *Handler) loadSchedule(w http.ResponseWriter, r *http.Request) (*domain.RescoreSchedule, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return nil, false
	}
	schedule, err := h.schedules.GetByID(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "schedule not found") {
		return nil, false
	}
	return schedule, true
}

// refreshNextDue проверяет расписание и ставит next_due_at от текущего момента.
func refreshNextDue(w http.ResponseWriter, s *domain.RescoreSchedule) bool {
	if err := scheduler.Validate(s); err != nil {
		BadRequest(w, err.Error())
		return false
	}
	next, err := scheduler.CalculateInitialNextDue(s)
	if err != nil {
		BadRequest(w, err.Error())
		return false
	}
	s.NextDueAt = &next
	return true
}

// GET /api/v1/schedules?enabled=true|false&limit=&offset=
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	if !h.schedulesReady(w) {
		return
	}

	var filter repo.ScheduleFilter
	filter.Limit, filter.Offset = pagination(r)
	switch r.URL.Query().Get("enabled") {
	case "":
	case "true":
		filter.Enabled = new(bool)
		*filter.Enabled = true
	case "false":
		filter.Enabled = new(bool)
	default:
		BadRequest(w, "enabled must be true or false")
		return
	}

	schedules, err := h.schedules.List(r.Context(), filter)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	result := make([]ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		result = append(result, ScheduleFromDomain(&schedules[i]))
	}
	List(w, result, len(result))
}

// POST /api/v1/schedules
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.schedulesReady(w) {
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		invalidBody(w, err)
		return
	}
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now().UTC()
	schedule := &domain.RescoreSchedule{
		ID:          uuid.New(),
		Name:        req.Name,
		CronExpr:    req.CronExpr,
		IntervalSec: req.IntervalSec,
		Timezone:    cmp.Or(req.Timezone, domain.DefaultTimezone),
		Enabled:     req.Enabled,
		StudentIDs:  req.StudentIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !refreshNextDue(w, schedule) {
		return
	}

	if HandleRepoError(w, h.log(r), h.schedules.Create(r.Context(), schedule), "") {
		return
	}
	h.log(r).Info("schedule created", "schedule_id", schedule.ID, "name", schedule.Name)

	Created(w, ScheduleFromDomain(schedule))
}

// GET /api/v1/schedules/{id}
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.schedulesReady(w) {
		return
	}
	if schedule, ok := h.loadSchedule(w, r); ok {
		Success(w, ScheduleFromDomain(schedule))
	}
}

// UpdateSchedule — PUT /api/v1/schedules/{id}.
// Меняются только переданные поля. Новое cron_expr сбрасывает interval_sec
// и наоборот. Смена времени запуска пересчитывает next_due_at.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.schedulesReady(w) {
		return
	}

	var req UpdateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		invalidBody(w, err)
		return
	}

	schedule, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.StudentIDs != nil {
		schedule.StudentIDs = *req.StudentIDs
	}

	retimed := req.CronExpr != nil || req.IntervalSec != nil || req.Timezone != nil
	if req.CronExpr != nil {
		schedule.SetCron(*req.CronExpr)
	}
	if req.IntervalSec != nil {
		schedule.SetInterval(*req.IntervalSec)
	}
	if req.Timezone != nil {
		schedule.Timezone = cmp.Or(*req.Timezone, domain.DefaultTimezone)
	}

	if retimed {
		if !refreshNextDue(w, schedule) {
			return
		}
	} else if err := scheduler.Validate(schedule); err != nil {
		BadRequest(w, err.Error())
		return
	}
	schedule.UpdatedAt = time.Now().UTC()

	if HandleRepoError(w, h.log(r), h.schedules.Update(r.Context(), schedule), "schedule not found") {
		return
	}
	Success(w, ScheduleFromDomain(schedule))
}

// DELETE /api/v1/schedules/{id}
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.schedulesReady(w) {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid schedule id")
		return
	}
	if HandleRepoError(w, h.log(r), h.schedules.Delete(r.Context(), id), "schedule not found") {
		return
	}
	NoContent(w)
}

// SetScheduleEnabled — PUT /api/v1/schedules/{id}/enabled.
// При включении просроченный next_due_at переносится вперёд от текущего
// момента, чтобы расписание не сработало сразу за всё время простоя.
func (h *Handler) SetScheduleEnabled(w http.ResponseWriter, r *http.Request) {
	if !h.schedulesReady(w) {
		return
	}

	var req SetEnabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		invalidBody(w, err)
		return
	}

	schedule, ok := h.loadSchedule(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	if req.Enabled && !schedule.Enabled && (schedule.NextDueAt == nil || schedule.NextDueAt.Before(now)) {
		if !refreshNextDue(w, schedule) {
			return
		}
	}
	schedule.Enabled = req.Enabled
	schedule.UpdatedAt = now

	if HandleRepoError(w, h.log(r), h.schedules.Update(r.Context(), schedule), "schedule not found") {
		return
	}
	Success(w, ScheduleFromDomain(schedule))
}

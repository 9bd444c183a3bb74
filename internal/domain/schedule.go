package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTimezone — часовой пояс расписания, если не указан.
const DefaultTimezone = "UTC"

// RescoreSchedule периодически пересчитывает риски по сохранённым записям.
// Срабатывает по cron-выражению ("0 6 * * 1") или каждые IntervalSec секунд;
// одновременно задано только одно из двух.
type RescoreSchedule struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name,omitempty"`

	CronExpr    string `json:"cron_expr,omitempty"` // 5 полей, в Timezone
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone"`

	Enabled bool `json:"enabled"`

	NextDueAt *time.Time `json:"next_due_at,omitempty"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastJobID *uuid.UUID `json:"last_job_id,omitempty"`

	// StudentIDs — кого пересчитывать; пусто — всех.
	StudentIDs []int64 `json:"student_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *RescoreSchedule) IsCron() bool { return s.CronExpr != "" }

func (s *RescoreSchedule) IsInterval() bool { return s.CronExpr == "" && s.IntervalSec > 0 }

// SetCron переключает расписание на cron. Интервал сбрасывается.
func (s *RescoreSchedule) SetCron(expr string) {
	s.CronExpr = expr
	if expr != "" {
		s.IntervalSec = 0
	}
}

// SetInterval переключает расписание на интервал. Cron сбрасывается.
func (s *RescoreSchedule) SetInterval(sec int) {
	s.IntervalSec = sec
	if sec > 0 {
		s.CronExpr = ""
	}
}

// IsDue: включено и next_due_at <= now.
func (s *RescoreSchedule) IsDue(now time.Time) bool {
	return s.Enabled && s.NextDueAt != nil && !now.Before(*s.NextDueAt)
}

// RecordRun фиксирует созданный job и следующий срок.
func (s *RescoreSchedule) RecordRun(jobID uuid.UUID, nextDue, now time.Time) {
	s.LastRunAt = &now
	s.LastJobID = &jobID
	s.NextDueAt = &nextDue
	s.UpdatedAt = now
}

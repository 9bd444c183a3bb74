package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Riskwatch/internal/domain"
)

// ErrInvalidSchedule — расписание нельзя использовать.
var ErrInvalidSchedule = errors.New("invalid schedule")

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// CalculateNextDue вычисляет следующее время выполнения для расписания.
// Для интервалов добавляет IntervalSec к from.
//
// Учитывает timezone расписания.
func CalculateNextDue(sched *domain.RescoreSchedule, from time.Time) (time.Time, error) {
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}

	fromInTz := from.In(loc)

	if sched.IsCron() {
		return calculateNextCron(sched.CronExpr, fromInTz)
	}
	if sched.IsInterval() {
		return calculateNextInterval(sched.IntervalSec, fromInTz), nil
	}
	return time.Time{}, fmt.Errorf("%w: neither cron_expr nor interval_sec", ErrInvalidSchedule)
}

func calculateNextCron(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from).UTC(), nil // в UTC для хранения в БД
}

func calculateNextInterval(intervalSec int, from time.Time) time.Time {
	return from.Add(time.Duration(intervalSec) * time.Second).UTC()
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	if _, err := cronParser.Parse(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}

// Validate проверяет расписание перед сохранением: ровно один из
// cron_expr / interval_sec, корректный timezone.
func Validate(sched *domain.RescoreSchedule) error {
	if sched.CronExpr == "" && sched.IntervalSec <= 0 {
		return fmt.Errorf("%w: cron_expr or interval_sec is required", ErrInvalidSchedule)
	}
	if sched.CronExpr != "" && sched.IntervalSec > 0 {
		return fmt.Errorf("%w: cron_expr and interval_sec are mutually exclusive", ErrInvalidSchedule)
	}
	if sched.IntervalSec < 0 {
		return fmt.Errorf("%w: interval_sec must be positive", ErrInvalidSchedule)
	}
	if sched.CronExpr != "" {
		if err := ValidateCronExpr(sched.CronExpr); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
		}
	}
	if sched.Timezone != "" {
		if _, err := time.LoadLocation(sched.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, sched.Timezone)
		}
	}
	return nil
}

// CalculateInitialNextDue вычисляет первое время выполнения для нового расписания.
// Используется при создании расписания через API.
func CalculateInitialNextDue(sched *domain.RescoreSchedule) (time.Time, error) {
	return CalculateNextDue(sched, time.Now())
}

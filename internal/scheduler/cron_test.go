package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Riskwatch/internal/domain"
)

func TestCalculateNextDue_Cron(t *testing.T) {
	from := time.Date(2025, 3, 10, 5, 30, 0, 0, time.UTC) // понедельник

	sched := &domain.RescoreSchedule{CronExpr: "0 6 * * 1", Timezone: "UTC"}
	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}
	if want := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCalculateNextDue_CronTimezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skip("tzdata not available")
	}
	from := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) // 03:00 MSK

	sched := &domain.RescoreSchedule{CronExpr: "0 6 * * *", Timezone: "Europe/Moscow"}
	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}
	want := time.Date(2025, 3, 10, 6, 0, 0, 0, loc).UTC()
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("got %v, want %v in UTC", got, want)
	}
}

func TestCalculateNextDue_Interval(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	sched := &domain.RescoreSchedule{IntervalSec: 90, Timezone: "Invalid/Zone"}

	got, err := CalculateNextDue(sched, from)
	if err != nil {
		t.Fatalf("CalculateNextDue() error = %v", err)
	}
	if want := from.Add(90 * time.Second); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCalculateNextDue_Invalid(t *testing.T) {
	_, err := CalculateNextDue(&domain.RescoreSchedule{}, time.Now())
	if !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("error = %v, want ErrInvalidSchedule", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sched   domain.RescoreSchedule
		wantErr bool
	}{
		{"cron", domain.RescoreSchedule{CronExpr: "*/15 * * * *", Timezone: "UTC"}, false},
		{"interval", domain.RescoreSchedule{IntervalSec: 3600}, false},
		{"neither", domain.RescoreSchedule{}, true},
		{"both", domain.RescoreSchedule{CronExpr: "* * * * *", IntervalSec: 60}, true},
		{"bad cron", domain.RescoreSchedule{CronExpr: "61 * * * *"}, true},
		{"seconds field", domain.RescoreSchedule{CronExpr: "0 0 6 * * 1"}, true},
		{"bad timezone", domain.RescoreSchedule{IntervalSec: 60, Timezone: "Mars/Olympus"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.sched)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("error %v does not wrap ErrInvalidSchedule", err)
			}
		})
	}
}

func TestIdempotencyKey(t *testing.T) {
	sched := &domain.RescoreSchedule{}
	at := time.Unix(1700000000, 0)
	if got := IdempotencyKey(sched.ID, at); got != "00000000-0000-0000-0000-000000000000_1700000000" {
		t.Errorf("IdempotencyKey() = %q", got)
	}
}

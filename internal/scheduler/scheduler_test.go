package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/repo"
)

type fakeSchedules struct {
	due     []domain.RescoreSchedule
	updated []domain.RescoreSchedule
}

func (f *fakeSchedules) ListDue(_ context.Context, now time.Time, limit int) ([]domain.RescoreSchedule, error) {
	var out []domain.RescoreSchedule
	for _, s := range f.due {
		if s.IsDue(now) && len(out) < limit {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSchedules) Update(_ context.Context, s *domain.RescoreSchedule) error {
	f.updated = append(f.updated, *s)
	return nil
}

type fakeJobs struct {
	byKey     map[string]*domain.ScoringJob
	createErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{byKey: make(map[string]*domain.ScoringJob)}
}

func (f *fakeJobs) Create(_ context.Context, job *domain.ScoringJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byKey[job.IdempotencyKey]; ok {
		return repo.ErrAlreadyExists
	}
	cp := *job
	f.byKey[job.IdempotencyKey] = &cp
	return nil
}

func (f *fakeJobs) GetByIdempotencyKey(_ context.Context, key string) (*domain.ScoringJob, error) {
	j, ok := f.byKey[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return j, nil
}

type fakePublisher struct {
	ids []uuid.UUID
}

func (f *fakePublisher) PublishJobPending(_ context.Context, id uuid.UUID) error {
	f.ids = append(f.ids, id)
	return nil
}

func newTestScheduler(now time.Time, schedules *fakeSchedules, jobs *fakeJobs, pub *fakePublisher) *Scheduler {
	cfg := Config{Schedules: schedules, Jobs: jobs}
	if pub != nil {
		cfg.Publisher = pub
	}
	s := New(cfg)
	s.now = func() time.Time { return now }
	return s
}

func TestTick_CreatesJob(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 30, 0, time.UTC)
	due := now.Add(-30 * time.Second)
	sched := domain.RescoreSchedule{
		ID:          uuid.New(),
		Name:        "hourly",
		IntervalSec: 3600,
		Timezone:    "UTC",
		Enabled:     true,
		NextDueAt:   &due,
		StudentIDs:  []int64{1, 2},
	}

	schedules := &fakeSchedules{due: []domain.RescoreSchedule{sched}}
	jobs := newFakeJobs()
	pub := &fakePublisher{}
	s := newTestScheduler(now, schedules, jobs, pub)

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	key := IdempotencyKey(sched.ID, due)
	job, ok := jobs.byKey[key]
	if !ok {
		t.Fatalf("job with key %s not created", key)
	}
	if job.Source != domain.JobSourceSchedule || job.Status != domain.JobStatusPending {
		t.Errorf("job = %+v", job)
	}
	if job.ScheduleID == nil || *job.ScheduleID != sched.ID || len(job.StudentIDs) != 2 {
		t.Errorf("job scope = %v %v", job.ScheduleID, job.StudentIDs)
	}

	if len(schedules.updated) != 1 {
		t.Fatalf("updated %d schedules, want 1", len(schedules.updated))
	}
	upd := schedules.updated[0]
	if want := now.Add(time.Hour); !upd.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v, want %v", upd.NextDueAt, want)
	}
	if upd.LastJobID == nil || *upd.LastJobID != job.ID {
		t.Errorf("LastJobID = %v, want %s", upd.LastJobID, job.ID)
	}

	if len(pub.ids) != 1 || pub.ids[0] != job.ID {
		t.Errorf("published = %v", pub.ids)
	}
}

func TestTick_Idempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	due := now.Add(-time.Minute)
	sched := domain.RescoreSchedule{
		ID: uuid.New(), CronExpr: "0 * * * *", Timezone: "UTC", Enabled: true, NextDueAt: &due,
	}

	jobs := newFakeJobs()
	existing := &domain.ScoringJob{ID: uuid.New(), IdempotencyKey: IdempotencyKey(sched.ID, due)}
	jobs.byKey[existing.IdempotencyKey] = existing

	schedules := &fakeSchedules{due: []domain.RescoreSchedule{sched}}
	pub := &fakePublisher{}
	s := newTestScheduler(now, schedules, jobs, pub)

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(jobs.byKey) != 1 {
		t.Errorf("jobs = %d, want 1 (no duplicate)", len(jobs.byKey))
	}
	if len(pub.ids) != 0 {
		t.Errorf("published %v for duplicate", pub.ids)
	}
	upd := schedules.updated[0]
	if *upd.LastJobID != existing.ID {
		t.Errorf("LastJobID = %s, want existing %s", upd.LastJobID, existing.ID)
	}
	if want := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC); !upd.NextDueAt.Equal(want) {
		t.Errorf("NextDueAt = %v, want %v", upd.NextDueAt, want)
	}
}

func TestTick_InvalidScheduleDisabled(t *testing.T) {
	now := time.Now()
	due := now.Add(-time.Second)
	sched := domain.RescoreSchedule{
		ID: uuid.New(), CronExpr: "not a cron", Enabled: true, NextDueAt: &due,
	}
	schedules := &fakeSchedules{due: []domain.RescoreSchedule{sched}}
	s := newTestScheduler(now, schedules, newFakeJobs(), nil)

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(schedules.updated) != 1 || schedules.updated[0].Enabled {
		t.Errorf("schedule must be disabled, updates = %+v", schedules.updated)
	}
}

func TestTick_CreateErrorContinues(t *testing.T) {
	now := time.Now()
	due := now.Add(-time.Second)
	schedules := &fakeSchedules{due: []domain.RescoreSchedule{
		{ID: uuid.New(), IntervalSec: 60, Enabled: true, NextDueAt: &due},
		{ID: uuid.New(), IntervalSec: 60, Enabled: true, NextDueAt: &due},
	}}
	jobs := newFakeJobs()
	jobs.createErr = errors.New("db down")
	s := newTestScheduler(now, schedules, jobs, nil)

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(schedules.updated) != 0 {
		t.Errorf("schedules updated despite failed job creation: %d", len(schedules.updated))
	}
}

func TestTick_NothingDue(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	schedules := &fakeSchedules{due: []domain.RescoreSchedule{
		{ID: uuid.New(), IntervalSec: 60, Enabled: true, NextDueAt: &future},
	}}
	jobs := newFakeJobs()
	s := newTestScheduler(now, schedules, jobs, nil)

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}
	if len(jobs.byKey) != 0 {
		t.Errorf("jobs created for future schedule")
	}
}

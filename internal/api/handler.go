package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/predict"
	"github.com/shaiso/Riskwatch/internal/repo"
	"github.com/shaiso/Riskwatch/internal/telemetry"
)

// Predictor — пайплайн инференса.
type Predictor interface {
	BatchPredict(ctx context.Context, records []domain.StudentRecord) ([]domain.Prediction, error)
	Info() predict.ModelInfo
}

// RecordStore — сохранённые записи студентов.
type RecordStore interface {
	Upsert(ctx context.Context, rec *domain.StudentRecord) error
	Get(ctx context.Context, studentID int64) (*domain.StudentRecord, error)
	Delete(ctx context.Context, studentID int64) error
}

// PredictionStore — история прогнозов.
type PredictionStore interface {
	SaveBatch(ctx context.Context, preds []domain.Prediction) error
	GetLatest(ctx context.Context, studentID int64) (*domain.Prediction, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]domain.Prediction, error)
	List(ctx context.Context, filter repo.PredictionFilter) ([]domain.Prediction, error)
	RiskDistribution(ctx context.Context) (domain.RiskSummary, error)
}

// JobStore — scoring jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.ScoringJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScoringJob, error)
	List(ctx context.Context, filter repo.JobFilter) ([]domain.ScoringJob, error)
}

// ScheduleStore — расписания пересчёта.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *domain.RescoreSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RescoreSchedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.RescoreSchedule, error)
	Update(ctx context.Context, schedule *domain.RescoreSchedule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// JobPublisher уведомляет воркеров о новом job.
type JobPublisher interface {
	PublishJobPending(ctx context.Context, jobID uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	predictor   Predictor
	records     RecordStore
	predictions PredictionStore
	jobs        JobStore
	schedules   ScheduleStore
	publisher   JobPublisher
	logger      *slog.Logger
	maxBody     int64
}

// Config — конфигурация для создания Handler.
//
// Predictor обязателен. Без хранилищ соответствующие маршруты
// отвечают 503: сервис может работать как чистый инференс.
type Config struct {
	Predictor   Predictor
	Records     RecordStore
	Predictions PredictionStore
	Jobs        JobStore
	Schedules   ScheduleStore
	Publisher   JobPublisher // опционально
	Logger      *slog.Logger

	// MaxBodyBytes ограничивает тело запроса (default: 32 MiB).
	MaxBodyBytes int64
}

// DefaultMaxBodyBytes — предел тела запроса по умолчанию.
const DefaultMaxBodyBytes = 32 << 20

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Handler{
		maxBody:     maxBody,
		predictor:   cfg.Predictor,
		records:     cfg.Records,
		predictions: cfg.Predictions,
		jobs:        cfg.Jobs,
		schedules:   cfg.Schedules,
		publisher:   cfg.Publisher,
		logger:      logger,
	}
}

// log возвращает логгер запроса (с request_id), если его положил RequestID.
func (h *Handler) log(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(telemetry.CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return h.logger
}

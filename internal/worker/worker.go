package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/mq"
)

const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 20
)

// JobStore — хранилище scoring jobs.
type JobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScoringJob, error)
	Claim(ctx context.Context, job *domain.ScoringJob) error
	Update(ctx context.Context, job *domain.ScoringJob) error
	ListPending(ctx context.Context, limit int) ([]domain.ScoringJob, error)
}

// RecordStore — сохранённые записи студентов.
type RecordStore interface {
	List(ctx context.Context, studentIDs []int64) ([]domain.StudentRecord, error)
	ListAll(ctx context.Context) ([]domain.StudentRecord, error)
}

// PredictionStore — хранилище прогнозов.
type PredictionStore interface {
	SaveBatch(ctx context.Context, preds []domain.Prediction) error
}

// Predictor считает прогнозы (predict.Pipeline).
type Predictor interface {
	BatchPredict(ctx context.Context, records []domain.StudentRecord) ([]domain.Prediction, error)
	ModelVersion() string
}

// CompletionPublisher публикует итоги jobs.
type CompletionPublisher interface {
	PublishJobCompleted(ctx context.Context, payload mq.JobCompletedPayload) error
}

// Worker считает scoring jobs. Job приходит из jobs.pending или находится
// опросом БД; в обоих случаях он сначала забирается через Claim, поэтому
// несколько воркеров (и consumer с poll внутри одного) не считают его дважды.
type Worker struct {
	jobs        JobStore
	records     RecordStore
	predictions PredictionStore
	predictor   Predictor

	publisher CompletionPublisher
	conn      *mq.Connection
	consumer  *mq.Consumer

	retry RetryPolicy

	pollInterval time.Duration
	batchSize    int
	concurrency  int

	logger *slog.Logger
	wg     sync.WaitGroup

	// mu защищает cancelFunc и consumer между Start и Stop.
	mu         sync.Mutex
	cancelFunc context.CancelFunc
	stopped    atomic.Bool
}

// Config — конфигурация Worker.
type Config struct {
	Jobs        JobStore
	Records     RecordStore
	Predictions PredictionStore
	Predictor   Predictor

	// Без Conn воркер только опрашивает БД.
	Publisher CompletionPublisher
	Conn      *mq.Connection

	Retry *RetryPolicy // nil — DefaultRetryPolicy()

	PollInterval time.Duration // 10s
	BatchSize    int           // jobs за один опрос, 20

	// Concurrency — сколько jobs считается одновременно, и из очереди,
	// и при опросе (default: 1).
	Concurrency int

	Logger *slog.Logger
}

func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	return &Worker{
		jobs:         cfg.Jobs,
		records:      cfg.Records,
		predictions:  cfg.Predictions,
		predictor:    cfg.Predictor,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		retry:        retry,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		concurrency:  max(cfg.Concurrency, 1),
		logger:       logger,
	}
}

// Start запускает consumer jobs.pending (если есть RabbitMQ) и цикл опроса.
// Не блокирует.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped.Load() {
		return errors.New("worker stopped")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"concurrency", w.concurrency,
		"model_version", w.predictor.ModelVersion(),
	)

	if w.conn == nil {
		w.logger.Warn("no RabbitMQ connection, running in polling-only mode")
	} else {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:       string(mq.QueueJobsPending),
			Tag:         "riskwatch-worker",
			Handler:     w.handleJobPending,
			Concurrency: w.concurrency,
			Prefetch:    w.concurrency + 1,
		})
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("job consumer stopped", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()
	return nil
}

// Stop отменяет приём новых jobs и ждёт текущие.
func (w *Worker) Stop() {
	if w.stopped.Swap(true) {
		return
	}
	w.logger.Info("stopping worker")

	w.mu.Lock()
	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *Worker) IsStopped() bool {
	return w.stopped.Load()
}

// pollLoop опрашивает БД сразу при старте (jobs, созданные пока воркер
// лежал) и затем каждые pollInterval.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// poll считает найденные PENDING jobs, не больше concurrency одновременно.
// Job, перехваченный другим воркером, пропускается молча.
func (w *Worker) poll(ctx context.Context) {
	jobs, err := w.jobs.ListPending(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list pending jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	w.logger.Debug("poll found pending jobs", "count", len(jobs))

	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			err := w.processJob(ctx, job.ID)
			if err != nil && !errors.Is(err, ErrJobNotPending) {
				w.logger.Error("failed to process polled job", "job_id", job.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

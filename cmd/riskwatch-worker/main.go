// Riskwatch Worker — выполняет асинхронные scoring jobs.
//
// Worker:
//   - Получает job.pending из RabbitMQ, при недоступности брокера опрашивает БД
//   - Загружает записи студентов и считает прогнозы пайплайном
//   - Сохраняет прогнозы с retry и публикует job.completed
//
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Riskwatch/internal/mq"
	"github.com/shaiso/Riskwatch/internal/predict"
	"github.com/shaiso/Riskwatch/internal/repo"
	"github.com/shaiso/Riskwatch/internal/telemetry"
	"github.com/shaiso/Riskwatch/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("riskwatch-worker")
	logger.Info("starting riskwatch-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := predict.OptionsFromEnv()
	opts.Logger = logger
	pipeline, err := predict.Open(opts)
	if err != nil {
		logger.Error("failed to load model", "path", opts.ModelPath, "error", err)
		os.Exit(1)
	}
	logger.Info("model loaded", "model_version", pipeline.ModelVersion())

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	cfg := worker.Config{
		Jobs:        repo.NewJobRepo(pool),
		Records:     repo.NewRecordRepo(pool),
		Predictions: repo.NewPredictionRepo(pool),
		Predictor:   pipeline,
		Logger:      logger,
	}
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Error("invalid WORKER_CONCURRENCY", "value", v)
			os.Exit(1)
		}
		cfg.Concurrency = n
	}

	// RabbitMQ
	mqConn, err := mq.Dial(mq.Config{URL: mq.URLFromEnv(), Name: "riskwatch-worker", Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		} else {
			logger.Debug("topology declared", "topology", mq.Describe())
		}

		cfg.Conn = mqConn
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	w := worker.New(cfg)
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		if w.IsStopped() {
			rw.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("riskwatch-worker stopped")
}

// Riskwatch API — синхронный прогноз и управление scoring jobs.
//
// Без PostgreSQL сервис работает как чистый инференс: маршруты
// хранилища отвечают 503. Без RabbitMQ jobs подхватываются polling воркеров.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Riskwatch/internal/api"
	"github.com/shaiso/Riskwatch/internal/mq"
	"github.com/shaiso/Riskwatch/internal/predict"
	"github.com/shaiso/Riskwatch/internal/repo"
	"github.com/shaiso/Riskwatch/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("riskwatch-api")
	logger.Info("starting riskwatch-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Модель и каталог признаков
	opts := predict.OptionsFromEnv()
	opts.Logger = logger
	pipeline, err := predict.Open(opts)
	if err != nil {
		logger.Error("failed to load model", "path", opts.ModelPath, "error", err)
		os.Exit(1)
	}
	logger.Info("model loaded", "model_version", pipeline.ModelVersion())

	cfg := api.Config{
		Predictor: pipeline,
		Logger:    logger,
	}

	// База данных (опционально)
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Warn("database not available, storage routes disabled", "error", err)
	} else {
		defer pool.Close()
		if err := repo.Migrate(ctx, pool); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")

		cfg.Records = repo.NewRecordRepo(pool)
		cfg.Predictions = repo.NewPredictionRepo(pool)
		cfg.Jobs = repo.NewJobRepo(pool)
		cfg.Schedules = repo.NewScheduleRepo(pool)
	}

	// RabbitMQ (опционально)
	mqConn, err := mq.Dial(mq.Config{URL: mq.URLFromEnv(), Name: "riskwatch-api", Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, jobs left to worker polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	handler := api.NewHandler(cfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime).Round(time.Second))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	// CORS оборачивает весь mux: preflight OPTIONS не доходит до маршрутов
	server := &http.Server{
		Addr:              addr,
		Handler:           api.CORS(os.Getenv("CORS_ORIGIN"))(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

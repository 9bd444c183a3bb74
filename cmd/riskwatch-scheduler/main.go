// Riskwatch Scheduler — превращает due расписания в scoring jobs.
//
// Одновременно тикает только лидер: лидерство удерживается через
// pg_try_advisory_lock на выделенном соединении пула.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Riskwatch/internal/mq"
	"github.com/shaiso/Riskwatch/internal/repo"
	"github.com/shaiso/Riskwatch/internal/scheduler"
	"github.com/shaiso/Riskwatch/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger("riskwatch-scheduler")
	logger.Info("starting riskwatch-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	cfg := scheduler.Config{
		Schedules: repo.NewScheduleRepo(pool),
		Jobs:      repo.NewJobRepo(pool),
		Logger:    logger,
	}

	mqConn, err := mq.Dial(mq.Config{URL: mq.URLFromEnv(), Name: "riskwatch-scheduler", Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, jobs left to worker polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	sched := scheduler.New(cfg)

	var leader atomic.Bool

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if leader.Load() {
			w.Write([]byte("ok leader"))
			return
		}
		w.Write([]byte("ok standby"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		runLoop(telemetry.WithLogger(ctx, logger), pool, sched, &leader)
	}()

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	// ждём снятия advisory lock до закрытия пула
	<-loopDone
	logger.Info("riskwatch-scheduler stopped")
}

// runLoop раз в секунду пытается стать лидером и, если удалось, выполняет тик.
func runLoop(ctx context.Context, pool *pgxpool.Pool, sched *scheduler.Scheduler, leader *atomic.Bool) {
	logger := telemetry.FromContext(ctx)

	tk := time.NewTicker(1 * time.Second)
	defer tk.Stop()

	// advisory lock сессионный: держим его на одном соединении
	var lockConn *pgxpool.Conn
	release := func() {
		if lockConn == nil {
			return
		}
		_, _ = lockConn.Exec(context.Background(), "select pg_advisory_unlock($1)", schedLockKey)
		lockConn.Release()
		lockConn = nil
		leader.Store(false)
	}
	defer release()

	for {
		select {
		case <-tk.C:
			if lockConn == nil {
				conn, err := pool.Acquire(ctx)
				if err != nil {
					logger.Warn("acquire lock connection", "error", err)
					continue
				}
				var ok bool
				if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
					logger.Warn("advisory lock", "error", err)
					conn.Release()
					continue
				}
				if !ok {
					// не лидер — пропускаем тик
					conn.Release()
					continue
				}
				lockConn = conn
				leader.Store(true)
				logger.Info("acquired scheduler leadership")
			}

			// соединение с блокировкой потеряно — лидерство тоже
			if err := lockConn.Ping(ctx); err != nil {
				logger.Warn("lost lock connection", "error", err)
				lockConn.Release()
				lockConn = nil
				leader.Store(false)
				continue
			}

			if err := sched.Tick(ctx); err != nil {
				logger.Error("scheduler tick failed", "error", err)
			}

		case <-ctx.Done():
			return
		}
	}
}

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options — параметры логгера сервиса.
type Options struct {
	// Service добавляется атрибутом service в каждую запись,
	// чтобы различать api, worker и scheduler в общем потоке логов.
	Service string

	Level  slog.Level
	Format string // "json" (по умолчанию) или "text"
	Output io.Writer
}

// OptionsFromEnv читает LOG_LEVEL и LOG_FORMAT. Вывод — stdout.
func OptionsFromEnv(service string) Options {
	return Options{
		Service: service,
		Level:   LogLevel(),
		Format:  strings.ToLower(os.Getenv("LOG_FORMAT")),
		Output:  os.Stdout,
	}
}

// LogLevel определяет уровень из LOG_LEVEL: DEBUG, INFO, WARN (WARNING), ERROR
// без учёта регистра. Неизвестное значение — INFO.
func LogLevel() slog.Level {
	level, ok := ParseLevel(os.Getenv("LOG_LEVEL"))
	if !ok {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel разбирает имя уровня. Поддерживает смещения slog ("DEBUG+2").
func ParseLevel(s string) (slog.Level, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		s = "WARN"
	}
	var level slog.Level
	if s == "" || level.UnmarshalText([]byte(s)) != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// NewLogger создаёт логгер по опциям.
// На уровне DEBUG в записи добавляется source.
func NewLogger(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     opts.Level,
		AddSource: opts.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if opts.Format == "text" {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	return logger
}

// SetupLogger создаёт логгер сервиса из окружения и делает его глобальным.
func SetupLogger(service string) *slog.Logger {
	logger := NewLogger(OptionsFromEnv(service))
	slog.SetDefault(logger)
	return logger
}

type ctxKey string

// CtxLogger — ключ для логгера в контексте.
const CtxLogger ctxKey = "logger"

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext извлекает логгер из контекста, иначе глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithJobID добавляет job_id.
func WithJobID(logger *slog.Logger, jobID string) *slog.Logger {
	return logger.With("job_id", jobID)
}

// WithStudentID добавляет student_id.
func WithStudentID(logger *slog.Logger, studentID int64) *slog.Logger {
	return logger.With("student_id", studentID)
}

// WithScheduleID добавляет schedule_id.
func WithScheduleID(logger *slog.Logger, scheduleID string) *slog.Logger {
	return logger.With("schedule_id", scheduleID)
}

// WithModelVersion добавляет версию модели.
func WithModelVersion(logger *slog.Logger, version string) *slog.Logger {
	return logger.With("model_version", version)
}

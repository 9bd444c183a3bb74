// Package telemetry — логирование и метрики сервисов Riskwatch.
//
// Логи: slog, JSON или text (LOG_FORMAT), уровень из LOG_LEVEL.
// Каждая запись сервиса несёт атрибут service; хелперы With* добавляют
// job_id, student_id, schedule_id и model_version.
//
// Метрики: Prometheus (promauto), пространство имён riskwatch.
// Прогнозы по уровню риска, длительность и размер пакетов пайплайна,
// сбои атрибуции, новые категории, вызовы генератора рекомендаций,
// scoring jobs, HTTP и RabbitMQ. Сервисы отдают их на /metrics.
package telemetry

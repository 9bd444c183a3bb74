// Package scheduler создаёт scoring jobs по расписаниям пересчёта.
//
// Расписание задаётся cron-выражением (5 полей, часовой пояс IANA) или
// интервалом в секундах. Каждый Tick выбирает включённые расписания с
// next_due_at <= now, создаёт по job с ключом идемпотентности
// <schedule_id>_<due unix> и сдвигает next_due_at. Пропущенные за время
// простоя запуски не догоняются: следующий срок считается от now.
//
// Tick должен вызывать один процесс. Выбор лидера (pg_try_advisory_lock)
// делает cmd/riskwatch-scheduler.
package scheduler

package domain

// JobStatus — статус scoring job.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type JobStatus string

const (
	// JobStatusPending — job создан, ждёт воркера.
	JobStatusPending JobStatus = "PENDING"

	// JobStatusRunning — воркер считает прогнозы.
	JobStatusRunning JobStatus = "RUNNING"

	// JobStatusSucceeded — прогнозы посчитаны и сохранены.
	JobStatusSucceeded JobStatus = "SUCCEEDED"

	// JobStatusFailed — job завершился с ошибкой.
	JobStatusFailed JobStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed:
		return true
	default:
		return false
	}
}

// ParseJobStatus парсит строку в JobStatus.
// Второе значение false, если строка не является известным статусом.
func ParseJobStatus(s string) (JobStatus, bool) {
	switch JobStatus(s) {
	case JobStatusPending, JobStatusRunning, JobStatusSucceeded, JobStatusFailed:
		return JobStatus(s), true
	default:
		return "", false
	}
}

// JobSource — откуда пришёл job.
type JobSource string

const (
	JobSourceAPI      JobSource = "api"
	JobSourceSchedule JobSource = "schedule"
	JobSourceCLI      JobSource = "cli"
)

package worker

import "errors"

var (
	ErrJobNotFound   = errors.New("job not found")
	ErrJobNotPending = errors.New("job is not pending")

	// ErrNoRecords — ни inline записей, ни сохранённых по student_ids.
	ErrNoRecords = errors.New("no student records to score")

	// ErrWorkerStopped записывается в job, прерванный остановкой воркера.
	ErrWorkerStopped = errors.New("worker stopped")

	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

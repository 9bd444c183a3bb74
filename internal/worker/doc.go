// Package worker выполняет scoring jobs.
//
// # Обзор
//
// Worker — stateless компонент системы Riskwatch, который считает
// пакетные прогнозы риска отчисления, созданные через API, CLI или
// планировщиком. Worker отвечает за:
//
//   - Получение jobs из очереди RabbitMQ jobs.pending (event-driven)
//   - Периодическую проверку PENDING jobs в БД (polling fallback)
//   - Загрузку записей: inline из job, по списку student_id или все сохранённые
//   - Расчёт прогнозов через predict.Pipeline
//   - Сохранение прогнозов с retry и backoff
//   - Публикацию итога в jobs.completed
//
// Несколько воркеров безопасно работают параллельно: job переводится
// в RUNNING атомарно (JobStore.Claim), проигравший получает ErrJobNotPending.
//
// # Использование
//
//	w := worker.New(worker.Config{
//	    Jobs:        jobRepo,
//	    Records:     recordRepo,
//	    Predictions: predictionRepo,
//	    Predictor:   pipeline,
//	    Publisher:   publisher,
//	    Conn:        mqConn,
//	    Logger:      logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Обработка job
//
//  1. Получение job (из очереди или polling)
//  2. Проверка статуса PENDING, Claim → RUNNING
//  3. Загрузка записей (с retry)
//  4. BatchPredict
//  5. SaveBatch (с retry)
//  6. Успех → SUCCEEDED с распределением рисков, иначе FAILED с ошибкой
//  7. Публикация job.completed
//
// # Retry
//
// Retry выполняется в процессе и касается только хранилища. Ошибки данных
// (нет признаков, нечисловое значение) повтором не лечатся и сразу
// переводят job в FAILED.
//
// Стратегии backoff:
//   - "exponential": delay = initialDelay * 2^(attempt-1), capped at maxDelay
//   - "fixed": delay = initialDelay
package worker

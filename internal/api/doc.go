// Package api содержит HTTP API сервиса прогнозов.
//
// Структура:
//   - handler.go            — Handler с DI (пайплайн, хранилища, publisher, logger)
//   - routes.go             — регистрация маршрутов
//   - middleware.go         — middleware (recovery, metrics, logging, CORS)
//   - response.go           — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                — Data Transfer Objects (request/response)
//   - model_handler.go      — /model и синхронный /predict
//   - job_handler.go        — асинхронные scoring jobs
//   - student_handler.go    — записи и последние прогнозы студентов
//   - prediction_handler.go — история прогнозов и сводка рисков
//   - schedule_handler.go   — расписания пересчёта
package api

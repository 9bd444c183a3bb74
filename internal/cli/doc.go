// Package cli реализует инструмент командной строки Riskwatch.
//
// # Обзор
//
// CLI — клиентская утилита для Riskwatch API. Большинство команд работает
// через HTTP и не импортирует internal/api. Обучение модели и прогноз с
// флагом --offline выполняются локально через internal/predict.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Riskwatch API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	info, err := client.ModelInfo()
//
// ## CSV
//
// ReadCSV читает таблицу студентов: пустые ячейки — nil, числа — float64,
// остальное — строки категорий.
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: riskwatch job list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - model: train, info
//   - predict FILE.csv, summary
//   - job: submit, list, show, predictions
//   - record: import, show
//   - schedule: list, create, show, update, delete, enable, disable, jobs
//
// Каждая группа создаётся через фабричную функцию (NewJobCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli

// Package advice генерирует рекомендации для студентов группы риска.
//
// Advisor получает частично заполненный прогноз (риск, уверенность,
// сильные и слабые стороны, интересы, главные факторы) и возвращает
// список коротких рекомендаций.
//
// Реализации:
//   - OllamaAdvisor — LLM через HTTP API Ollama (/api/generate)
//   - RuleAdvisor   — детерминированные правила по факторам и уровню риска
//
// Статические списки на случай недоступности генератора тоже здесь.
package advice

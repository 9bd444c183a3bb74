package advice

import (
	"context"
	"regexp"
	"strings"

	"github.com/shaiso/Riskwatch/internal/domain"
)

// Advisor возвращает рекомендации для прогноза.
type Advisor interface {
	Recommend(ctx context.Context, p *domain.Prediction) ([]string, error)
}

// MaxRecommendations — сколько строк рекомендаций оставляем.
const MaxRecommendations = 6

// LowRiskRecommendations — для студентов с низким риском генератор не вызывается.
func LowRiskRecommendations() []string {
	return []string{
		"Maintain current performance and continue academic engagement.",
		"Participate in clubs or leadership opportunities.",
		"Help peers and build confidence through collaboration.",
	}
}

// EmptyAdviceRecommendations — генератор ответил, но без рекомендаций.
func EmptyAdviceRecommendations() []string {
	return []string{
		"Stay engaged and ask for help when needed.",
		"Create a study plan with a mentor to stay on track.",
	}
}

// FallbackRecommendations — генератор недоступен или вернул ошибку.
func FallbackRecommendations() []string {
	return []string{
		"Stay consistent academically.",
		"Improve attendance and seek help early.",
		"Engage in campus activities for motivation.",
	}
}

var emojiRe = regexp.MustCompile(`[\x{1F600}-\x{1F64F}` +
	`\x{1F300}-\x{1F5FF}` +
	`\x{1F680}-\x{1F6FF}` +
	`\x{1F1E0}-\x{1F1FF}` +
	`\x{2700}-\x{27BF}` +
	`\x{1F900}-\x{1F9FF}` +
	`\x{1FA70}-\x{1FAFF}]+`)

// RemoveEmojis удаляет эмодзи из строки.
func RemoveEmojis(s string) string {
	return emojiRe.ReplaceAllString(s, "")
}

// ParseLines разбирает ответ генератора: по строке на рекомендацию,
// без эмодзи и маркеров списка, без пустых строк, не больше MaxRecommendations.
func ParseLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.Trim(RemoveEmojis(line), "•- ")
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == MaxRecommendations {
			break
		}
	}
	return lines
}

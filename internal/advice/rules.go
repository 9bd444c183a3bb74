package advice

import (
	"context"
	"strings"

	"github.com/shaiso/Riskwatch/internal/domain"
)

// RuleAdvisor строит рекомендации без LLM: по главным факторам,
// уровню риска и сильным сторонам студента.
type RuleAdvisor struct{}

// Recommend никогда не возвращает ошибку.
func (RuleAdvisor) Recommend(_ context.Context, p *domain.Prediction) ([]string, error) {
	var recs []string

	causes := p.RootCauses
	if len(causes) > 3 {
		causes = causes[:3]
	}
	for _, c := range causes {
		feat := strings.ToLower(c.Feature)
		if strings.Contains(feat, "attendance") {
			recs = append(recs, "Maintain consistent attendance and classroom engagement.")
		}
		if strings.Contains(feat, "gpa") {
			recs = append(recs, "Set academic improvement goals with mentor support.")
		}
		if strings.Contains(feat, "fee") {
			recs = append(recs, "Meet counselor to review fee assistance or scholarships.")
		}
		if strings.Contains(feat, "engagement") {
			recs = append(recs, "Participate more in campus clubs and events.")
		}
	}

	switch p.DropoutRisk {
	case domain.RiskHigh:
		recs = append(recs,
			"Schedule weekly mentor-counselor meetings.",
			"Parent/guardian involvement is required.",
		)
	case domain.RiskMedium:
		recs = append(recs,
			"Join subject-support or peer tutoring groups.",
			"Weekly progress review check-ins.",
		)
	default:
		recs = append(recs,
			"Keep consistent performance!",
			"Try leadership roles or competitions.",
			"Consider helping peers academically.",
		)
	}

	strengths := realStrengths(p.Strengths)
	if len(strengths) > 2 {
		strengths = strengths[:2]
	}
	if len(strengths) > 0 {
		recs = append(recs, "Utilize strengths: "+strings.Join(strengths, ", ")+".")
	}

	return dedupe(recs, MaxRecommendations), nil
}

func realStrengths(items []string) []string {
	var out []string
	for _, s := range items {
		if s != "None identified" {
			out = append(out, s)
		}
	}
	return out
}

// dedupe сохраняет порядок первого вхождения и обрезает до limit.
func dedupe(items []string, limit int) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}

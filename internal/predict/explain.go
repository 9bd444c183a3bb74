package predict

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shaiso/Riskwatch/internal/advice"
	"github.com/shaiso/Riskwatch/internal/domain"
)

const (
	maxExplanations  = 6
	maxRootCauses    = 3
	maxInterventions = 5
	importanceEps    = 1e-12
)

// NoExplanation — текст объяснения, когда факторов нет.
const NoExplanation = "No clear explanation found."

// topContributions отбирает до 6 признаков с наибольшим |вкладом|.
//
// contributions и values выровнены по features. Вклад округляется до
// 6 знаков, доля важности считается от суммы |вкладов| отобранных признаков.
func topContributions(featureNames []string, values, contributions []float64) []domain.FeatureContribution {
	order := make([]int, len(featureNames))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(contributions[order[a]]) > math.Abs(contributions[order[b]])
	})
	if len(order) > maxExplanations {
		order = order[:maxExplanations]
	}

	var total float64
	for _, j := range order {
		total += math.Abs(contributions[j])
	}

	out := make([]domain.FeatureContribution, 0, len(order))
	for _, j := range order {
		c := round(contributions[j], 6)
		impact := domain.ImpactDecreases
		if c > 0 {
			impact = domain.ImpactIncreases
		}
		out = append(out, domain.FeatureContribution{
			Feature:       featureNames[j],
			Value:         values[j],
			Impact:        impact,
			Contribution:  c,
			ImportancePct: round(math.Abs(c)/(total+importanceEps)*100, 4),
		})
	}
	return out
}

// mapRootCauses берёт top-k объяснений по доле важности и обогащает их
// каталогом. Интервенции собираются без повторов в порядке факторов.
func mapRootCauses(expl []domain.FeatureContribution, catalog *Catalog, topK int) ([]domain.RootCause, []string) {
	sorted := append([]domain.FeatureContribution(nil), expl...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].ImportancePct > sorted[b].ImportancePct
	})
	if len(sorted) > topK {
		sorted = sorted[:topK]
	}

	causes := make([]domain.RootCause, 0, len(sorted))
	var interventions []string
	seen := make(map[string]struct{})

	for _, item := range sorted {
		cause := domain.RootCause{
			Feature:       item.Feature,
			Label:         item.Feature,
			Category:      "Unknown",
			Contribution:  item.Contribution,
			ImportancePct: item.ImportancePct,
		}
		if info, ok := catalog.Lookup(item.Feature); ok {
			cause.Label = info.Label
			cause.Category = info.Category
			for _, action := range info.Interventions {
				if _, dup := seen[action]; dup {
					continue
				}
				seen[action] = struct{}{}
				interventions = append(interventions, action)
			}
		}
		causes = append(causes, cause)
	}
	return causes, interventions
}

// narrative строит текстовое объяснение прогноза и список интервенций (до 5).
func narrative(p *domain.Prediction, catalog *Catalog) (string, []domain.RootCause, []string) {
	causes, actions := mapRootCauses(p.ShapExplanations, catalog, maxRootCauses)
	if len(causes) == 0 {
		return NoExplanation, nil, nil
	}

	parts := make([]string, len(causes))
	for i, c := range causes {
		parts[i] = fmt.Sprintf("%s (%.1f%%)", c.Label, c.ImportancePct)
	}
	statement := fmt.Sprintf("Student is predicted as %s (confidence %s%%). Key influencing factors include: %s.",
		p.DropoutRisk, formatPercent(p.RiskConfidence), strings.Join(parts, ", "))

	if len(actions) > maxInterventions {
		actions = actions[:maxInterventions]
	}
	return advice.RemoveEmojis(statement), causes, actions
}

// formatPercent печатает число кратчайшим образом, всегда с дробной частью: 87.5, 100.0.
func formatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// round округляет до places знаков после запятой (корректно для двоичного значения).
func round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

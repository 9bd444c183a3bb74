package advice

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/shaiso/Riskwatch/internal/domain"
)

const promptText = `You are an educational counselor AI. Provide a short 2-sentence encouragement message and
then 5 personalized and actionable recommendations for this student.

Details:
- Risk Level: {{ .DropoutRisk }}
- Risk Confidence: {{ percent .RiskConfidence }}%
- Strengths: {{ list .Strengths }}
- Weaknesses: {{ list .Weaknesses }}
- Interests: {{ list .Interests }}
- Top Risk Factors: {{ factors .RootCauses }}

Ensure recommendations are tailored and non-generic.
Return output as bullet list only.`

var promptFuncs = template.FuncMap{
	"list": func(items []string) string {
		if len(items) == 0 {
			return "none"
		}
		return strings.Join(items, ", ")
	},
	"percent": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	},
	"factors": func(items []domain.FeatureContribution) string {
		if len(items) == 0 {
			return "none"
		}
		parts := make([]string, len(items))
		for i, c := range items {
			parts[i] = fmt.Sprintf("%s (%s, %.1f%%)", c.Feature, c.Impact, c.ImportancePct)
		}
		return strings.Join(parts, "; ")
	},
}

var promptTmpl = template.Must(template.New("prompt").Funcs(promptFuncs).Parse(promptText))

// RenderPrompt строит запрос к LLM по прогнозу.
func RenderPrompt(p *domain.Prediction) (string, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

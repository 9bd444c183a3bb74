package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shaiso/Riskwatch/internal/domain"
)

// Output управляет форматированием вывода CLI.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        os.Stdout,
		errW:     os.Stderr,
	}
}

// Print выводит данные: таблицу или JSON в зависимости от режима.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
// Пустая таблица печатается как "No results".
func (o *Output) Table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(o.w, "No results")
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		o.Error("encode json: " + err.Error())
	}
}

// Prediction выводит полный отчёт по одному студенту:
// вероятности, главные факторы, объяснение и рекомендации.
func (o *Output) Prediction(p *domain.Prediction) {
	if o.jsonMode {
		o.JSON(p)
		return
	}

	fmt.Fprintf(o.w, "Student %d: %s (confidence %s%%)\n",
		p.StudentID, p.DropoutRisk, strconv.FormatFloat(p.RiskConfidence, 'f', 2, 64))
	if p.ModelVersion != "" {
		fmt.Fprintf(o.w, "Model: %s\n", p.ModelVersion)
	}

	fmt.Fprintln(o.w)
	probs := make([][]string, 0, len(p.RiskProbabilities))
	for _, level := range domain.RiskLevels {
		if v, ok := p.RiskProbabilities[level]; ok {
			probs = append(probs, []string{string(level), strconv.FormatFloat(v, 'f', 2, 64) + "%"})
		}
	}
	o.Table([]string{"RISK", "PROBABILITY"}, probs)

	fmt.Fprintln(o.w)
	if p.ExplanationError != "" {
		fmt.Fprintf(o.w, "Explanation unavailable: %s\n", p.ExplanationError)
	} else {
		factors := make([][]string, len(p.ShapExplanations))
		for i, e := range p.ShapExplanations {
			factors[i] = []string{
				e.Feature,
				e.Impact,
				strconv.FormatFloat(e.Contribution, 'f', 4, 64),
				strconv.FormatFloat(e.ImportancePct, 'f', 1, 64) + "%",
			}
		}
		o.Table([]string{"FEATURE", "IMPACT", "CONTRIBUTION", "IMPORTANCE"}, factors)
	}

	if p.ExplanationSummary != "" {
		fmt.Fprintf(o.w, "\n%s\n", p.ExplanationSummary)
	}
	o.list("Interventions", p.Interventions)
	o.list("Recommendations", p.Recommendations)

	fmt.Fprintf(o.w, "\nLearning style: %s\n", p.LearningStyle)
	fmt.Fprintf(o.w, "Strengths: %s\n", strings.Join(p.Strengths, ", "))
	fmt.Fprintf(o.w, "Weaknesses: %s\n", strings.Join(p.Weaknesses, ", "))
	fmt.Fprintf(o.w, "Interests: %s\n", strings.Join(p.Interests, ", "))
}

func (o *Output) list(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(o.w, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(o.w, "  - %s\n", item)
	}
}

// ExplanationWarnings сообщает в stderr, сколько прогнозов осталось без объяснения.
func (o *Output) ExplanationWarnings(preds []domain.Prediction) {
	failed := 0
	reason := ""
	for _, p := range preds {
		if p.ExplanationError != "" {
			failed++
			reason = p.ExplanationError
		}
	}
	if failed > 0 {
		o.Warn(fmt.Sprintf("%d of %d predictions have no explanation: %s", failed, len(preds), reason))
	}
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Warn выводит предупреждение в stderr.
func (o *Output) Warn(msg string) {
	fmt.Fprintln(o.errW, "Warning: "+msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Prediction — результат скоринга одного студента.
//
// Формат полей совпадает с тем, что отдают дашборды:
// вероятности и уверенность в процентах, округлённые до 6 знаков.
type Prediction struct {
	StudentID    int64  `json:"student_id"`
	ModelVersion string `json:"model_version"`

	DropoutRisk       RiskLevel             `json:"dropout_risk"`
	RiskConfidence    float64               `json:"risk_confidence"`
	RiskProbabilities map[RiskLevel]float64 `json:"risk_probabilities"`

	LearningStyle string   `json:"learning_style"`
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Interests     []string `json:"interests"`

	// ShapExplanations — до 6 признаков с наибольшим |вкладом| для
	// предсказанного класса. Пусто, если атрибуция недоступна.
	ShapExplanations []FeatureContribution `json:"shap_explanations"`

	// ExplanationError — почему объяснение не построено (пусто, если построено).
	ExplanationError string `json:"explanation_error,omitempty"`

	ExplanationSummary string                `json:"explanation_summary"`
	RootCauses         []FeatureContribution `json:"root_causes"`
	KeyFactors         []RootCause           `json:"key_factors,omitempty"`
	Interventions      []string              `json:"interventions,omitempty"`
	Recommendations    []string              `json:"recommendations"`

	JobID     *uuid.UUID `json:"job_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// FeatureContribution — вклад одного признака в предсказание.
type FeatureContribution struct {
	Feature string `json:"feature"`

	// Value — значение признака после масштабирования.
	Value float64 `json:"value"`

	// Impact — "increases likelihood" или "decreases likelihood".
	Impact string `json:"impact"`

	Contribution  float64 `json:"contribution"`
	ImportancePct float64 `json:"importance_pct"`
}

// Значения FeatureContribution.Impact.
const (
	ImpactIncreases = "increases likelihood"
	ImpactDecreases = "decreases likelihood"
)

// RootCause — признак из объяснения, обогащённый каталогом признаков.
type RootCause struct {
	Feature       string  `json:"feature"`
	Label         string  `json:"label"`
	Category      string  `json:"category"`
	Contribution  float64 `json:"contribution"`
	ImportancePct float64 `json:"importance_pct"`
}

// RiskSummary — распределение последних прогнозов по уровням риска.
type RiskSummary struct {
	Total  int               `json:"total"`
	Counts map[RiskLevel]int `json:"counts"`
}

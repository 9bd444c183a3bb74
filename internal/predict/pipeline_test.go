package predict

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/model"
)

// testBundle: attendance_percentage центрируется на 50 с шагом 10,
// Low растёт с посещаемостью, High падает, dept не влияет.
func testBundle() *model.Bundle {
	return &model.Bundle{
		Version:      "test-v1",
		FeatureNames: []string{"attendance_percentage", "dept"},
		Encoders: map[string]*model.LabelEncoder{
			"dept": model.NewLabelEncoder([]string{"cs", "math"}),
		},
		Scaler: &model.StandardScaler{Mean: []float64{50, 0}, Scale: []float64{10, 1}},
		Classifier: &model.SoftmaxRegression{
			Weights:    [][]float64{{1, 0}, {0, 0}, {-1, 0}},
			Intercepts: []float64{0, 0, 0},
		},
		Background: []float64{0, 0},
	}
}

func record(id int64, fields map[string]any) domain.StudentRecord {
	fields[domain.StudentIDField] = id
	return domain.StudentRecord{StudentID: id, Fields: fields}
}

type fakeAdvisor struct {
	lines []string
	err   error
	calls int
}

func (f *fakeAdvisor) Recommend(_ context.Context, _ *domain.Prediction) ([]string, error) {
	f.calls++
	return f.lines, f.err
}

type fakeExplainer struct {
	attr model.Attribution
	err  error
}

func (f fakeExplainer) Explain(mat.Matrix) (model.Attribution, error) {
	return f.attr, f.err
}

func newPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	if cfg.Bundle == nil {
		cfg.Bundle = testBundle()
	}
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func TestNew_NoModel(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNoModel) {
		t.Errorf("New() error = %v, want ErrNoModel", err)
	}
}

func TestBatchPredict_Empty(t *testing.T) {
	p := newPipeline(t, Config{})

	preds, err := p.BatchPredict(context.Background(), nil)
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}
	if preds == nil || len(preds) != 0 {
		t.Errorf("BatchPredict() = %v, want empty slice", preds)
	}
}

func TestBatchPredict_RiskAndExplanation(t *testing.T) {
	advisor := &fakeAdvisor{lines: []string{"Meet your mentor 🙂", "Attend classes"}}
	p := newPipeline(t, Config{Advisor: advisor})

	preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 90.0, "dept": "cs"}),
		record(2, map[string]any{"attendance_percentage": 10.0, "dept": "math"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("len(preds) = %d, want 2", len(preds))
	}

	low, high := preds[0], preds[1]
	if low.DropoutRisk != domain.RiskLow {
		t.Errorf("preds[0].DropoutRisk = %q, want %q", low.DropoutRisk, domain.RiskLow)
	}
	if high.DropoutRisk != domain.RiskHigh {
		t.Errorf("preds[1].DropoutRisk = %q, want %q", high.DropoutRisk, domain.RiskHigh)
	}
	if high.StudentID != 2 || high.ModelVersion != "test-v1" {
		t.Errorf("preds[1] id/version = %d/%q", high.StudentID, high.ModelVersion)
	}

	var sum float64
	for _, v := range high.RiskProbabilities {
		sum += v
	}
	if math.Abs(sum-100) > 1e-3 {
		t.Errorf("probabilities sum = %v, want 100", sum)
	}
	if high.RiskConfidence != high.RiskProbabilities[domain.RiskHigh] {
		t.Errorf("RiskConfidence = %v, want %v", high.RiskConfidence, high.RiskProbabilities[domain.RiskHigh])
	}

	if high.ExplanationError != "" {
		t.Fatalf("ExplanationError = %q", high.ExplanationError)
	}
	if len(high.ShapExplanations) != 2 {
		t.Fatalf("len(ShapExplanations) = %d, want 2", len(high.ShapExplanations))
	}
	top := high.ShapExplanations[0]
	// scaled x = (10-50)/10 = -4, W[High] = -1 → вклад +4
	if top.Feature != "attendance_percentage" || top.Contribution != 4 || top.Impact != domain.ImpactIncreases {
		t.Errorf("top explanation = %+v", top)
	}
	if top.ImportancePct != 100 {
		t.Errorf("top.ImportancePct = %v, want 100", top.ImportancePct)
	}
	if top.Value != -4 {
		t.Errorf("top.Value = %v, want scaled -4", top.Value)
	}

	if len(high.RootCauses) != 2 {
		t.Errorf("len(RootCauses) = %d, want 2", len(high.RootCauses))
	}
	if !strings.HasPrefix(high.ExplanationSummary, "Student is predicted as High Risk") ||
		!strings.Contains(high.ExplanationSummary, "Attendance Percentage (100.0%)") {
		t.Errorf("ExplanationSummary = %q", high.ExplanationSummary)
	}
	if len(high.KeyFactors) != 2 || high.KeyFactors[1].Category != "Unknown" || high.KeyFactors[1].Label != "dept" {
		t.Errorf("KeyFactors = %+v", high.KeyFactors)
	}
	if len(high.Interventions) == 0 {
		t.Error("Interventions are empty")
	}

	if advisor.calls != 1 {
		t.Errorf("advisor calls = %d, want 1 (low risk skips advisor)", advisor.calls)
	}
	if high.Recommendations[0] != "Meet your mentor " {
		t.Errorf("Recommendations[0] = %q, want emoji stripped", high.Recommendations[0])
	}
	if len(low.Recommendations) != 3 || low.Recommendations[0] != "Maintain current performance and continue academic engagement." {
		t.Errorf("low risk recommendations = %v", low.Recommendations)
	}
}

func TestBatchPredict_UnseenCategory(t *testing.T) {
	bundle := testBundle()
	p := newPipeline(t, Config{Bundle: bundle})

	_, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 80.0, "dept": "bio"}),
		record(2, map[string]any{"attendance_percentage": 80.0}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}

	info := p.Info()
	want := []string{"cs", "math", "bio", "nan"}
	got := info.Categorical["dept"]
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("dept classes = %v, want %v", got, want)
	}
	if len(info.Extended["dept"]) != 2 {
		t.Errorf("Extended = %v", info.Extended)
	}
	if len(bundle.Encoders["dept"].Classes) != 2 {
		t.Errorf("source bundle encoder modified: %v", bundle.Encoders["dept"].Classes)
	}
}

func TestBatchPredict_FeatureMismatch(t *testing.T) {
	p := newPipeline(t, Config{})

	_, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 80.0}),
	})
	var mismatch *FeatureMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want FeatureMismatchError", err)
	}
	if len(mismatch.Missing) != 1 || mismatch.Missing[0] != "dept" {
		t.Errorf("Missing = %v, want [dept]", mismatch.Missing)
	}
	if !errors.Is(err, ErrFeatureMismatch) {
		t.Error("error does not wrap ErrFeatureMismatch")
	}
}

func TestBatchPredict_NonNumeric(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "word", value: "high"},
		{name: "inf string", value: "inf"},
		{name: "negative infinity string", value: "-Infinity"},
		{name: "inf float", value: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, Config{})

			_, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
				record(7, map[string]any{"attendance_percentage": tt.value, "dept": "cs"}),
			})
			var nn *NonNumericError
			if !errors.As(err, &nn) {
				t.Fatalf("error = %v, want NonNumericError", err)
			}
			if nn.StudentID != 7 || nn.Feature != "attendance_percentage" {
				t.Errorf("NonNumericError = %+v", nn)
			}
		})
	}
}

func TestBatchPredict_LabelLimit(t *testing.T) {
	bundle := testBundle()
	p := newPipeline(t, Config{Bundle: bundle, MaxNewLabels: 2})

	_, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 80.0, "dept": "bio"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}

	_, err = p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(2, map[string]any{"attendance_percentage": 80.0, "dept": "chem"}),
		record(3, map[string]any{"attendance_percentage": 80.0, "dept": "art"}),
	})
	var limit *LabelLimitError
	if !errors.As(err, &limit) {
		t.Fatalf("error = %v, want LabelLimitError", err)
	}
	if limit.Feature != "dept" || limit.Limit != 2 {
		t.Errorf("LabelLimitError = %+v", limit)
	}
	if !errors.Is(err, ErrLabelLimit) {
		t.Error("error does not wrap ErrLabelLimit")
	}

	want := []string{"cs", "math", "bio"}
	if got := p.Info().Categorical["dept"]; strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("dept classes = %v, want %v", got, want)
	}

	// уже известные метки не расходуют лимит
	_, err = p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(4, map[string]any{"attendance_percentage": 80.0, "dept": "bio"}),
		record(5, map[string]any{"attendance_percentage": 80.0, "dept": "chem"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() within limit error = %v", err)
	}
}

func TestBatchPredict_NumericCategory(t *testing.T) {
	bundle := testBundle()
	bundle.Encoders["dept"] = model.NewLabelEncoder([]string{"1", "2"})
	p := newPipeline(t, Config{Bundle: bundle})

	_, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 80.0, "dept": json.Number("1.0")}),
		record(2, map[string]any{"attendance_percentage": 80.0, "dept": 2}),
		record(3, map[string]any{"attendance_percentage": 80.0, "dept": 1.0}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}
	if ext := p.Info().Extended; len(ext["dept"]) != 0 {
		t.Errorf("Extended = %v, want no new labels", ext)
	}
}

func TestCategoryValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "cs", want: "cs"},
		{name: "empty string", in: "", want: "nan"},
		{name: "nil", in: nil, want: "nan"},
		{name: "nan float", in: math.NaN(), want: "nan"},
		{name: "int", in: 1, want: "1"},
		{name: "whole float", in: 1.0, want: "1"},
		{name: "json number", in: json.Number("1.0"), want: "1"},
		{name: "fraction", in: json.Number("2.5"), want: "2.5"},
		{name: "bool", in: true, want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := categoryValue(tt.in); got != tt.want {
				t.Errorf("categoryValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBatchPredict_MissingValueIsZero(t *testing.T) {
	p := newPipeline(t, Config{})

	preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 90.0, "dept": "cs"}),
		record(2, map[string]any{"dept": "cs"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}
	// 0 → scaled -5 → High
	if preds[1].DropoutRisk != domain.RiskHigh {
		t.Errorf("preds[1].DropoutRisk = %q, want High Risk", preds[1].DropoutRisk)
	}
}

func TestBatchPredict_ExplainerUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "disabled",
			cfg:     Config{DisableExplainer: true},
			wantErr: "attribution unavailable",
		},
		{
			name:    "explain fails",
			cfg:     Config{Explainer: fakeExplainer{err: errors.New("boom")}},
			wantErr: "attribution failed: boom",
		},
		{
			name:    "unsupported shape",
			cfg:     Config{Explainer: fakeExplainer{attr: model.Attribution{Shape: []int{1}, Values: []float64{1}}}},
			wantErr: "attribution unusable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, tt.cfg)

			preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
				record(1, map[string]any{"attendance_percentage": 20.0, "dept": "cs"}),
			})
			if err != nil {
				t.Fatalf("BatchPredict() error = %v", err)
			}
			pr := preds[0]
			if !strings.Contains(pr.ExplanationError, tt.wantErr) {
				t.Errorf("ExplanationError = %q, want %q", pr.ExplanationError, tt.wantErr)
			}
			if len(pr.ShapExplanations) != 0 || len(pr.RootCauses) != 0 {
				t.Errorf("explanations = %v, root causes = %v", pr.ShapExplanations, pr.RootCauses)
			}
			if pr.ExplanationSummary != NoExplanation {
				t.Errorf("ExplanationSummary = %q", pr.ExplanationSummary)
			}
			if pr.DropoutRisk != domain.RiskHigh {
				t.Errorf("DropoutRisk = %q", pr.DropoutRisk)
			}
		})
	}
}

func TestBatchPredict_SingleOutputAttribution(t *testing.T) {
	// (n, f): одна матрица, доступна только для класса 0
	explainer := fakeExplainer{attr: model.Attribution{
		Shape:  []int{2, 2},
		Values: []float64{0.5, -0.25, 0.1, 0.2},
	}}
	p := newPipeline(t, Config{Explainer: explainer})

	preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 90.0, "dept": "cs"}),
		record(2, map[string]any{"attendance_percentage": 10.0, "dept": "cs"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}

	if preds[0].ExplanationError != "" {
		t.Errorf("preds[0].ExplanationError = %q", preds[0].ExplanationError)
	}
	if got := preds[0].ShapExplanations[0]; got.Feature != "attendance_percentage" || got.Contribution != 0.5 {
		t.Errorf("preds[0] top = %+v", got)
	}
	if !strings.Contains(preds[1].ExplanationError, "predicted class 2 has no attribution") {
		t.Errorf("preds[1].ExplanationError = %q", preds[1].ExplanationError)
	}
}

func TestBatchPredict_AttributionLengthMismatch(t *testing.T) {
	// три признака в атрибуции против двух в модели
	explainer := fakeExplainer{attr: model.Attribution{
		Shape:  []int{1, 3, 3},
		Values: make([]float64, 9),
	}}
	p := newPipeline(t, Config{Explainer: explainer})

	preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 90.0, "dept": "cs"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}
	if !strings.Contains(preds[0].ExplanationError, "length mismatch") {
		t.Errorf("ExplanationError = %q", preds[0].ExplanationError)
	}
	if len(preds[0].ShapExplanations) != 0 {
		t.Errorf("ShapExplanations = %v", preds[0].ShapExplanations)
	}
}

func TestBatchPredict_AttributionTooFewRows(t *testing.T) {
	// одна строка атрибуции на пакет из двух записей
	explainer := fakeExplainer{attr: model.Attribution{
		Shape:  []int{1, 2, 3},
		Values: []float64{0.5, 0, 0, -0.25, 0, 0},
	}}
	p := newPipeline(t, Config{Explainer: explainer})

	preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 90.0, "dept": "cs"}),
		record(2, map[string]any{"attendance_percentage": 10.0, "dept": "cs"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}
	if preds[0].ExplanationError != "" {
		t.Errorf("preds[0].ExplanationError = %q", preds[0].ExplanationError)
	}
	if !strings.Contains(preds[1].ExplanationError, "attribution has 1 rows") {
		t.Errorf("preds[1].ExplanationError = %q", preds[1].ExplanationError)
	}
}

func TestBatchPredict_Recommendations(t *testing.T) {
	tests := []struct {
		name    string
		advisor *fakeAdvisor
		want    string
	}{
		{"no advisor", nil, "Stay consistent academically."},
		{"error", &fakeAdvisor{err: errors.New("down")}, "Stay consistent academically."},
		{"empty", &fakeAdvisor{}, "Stay engaged and ask for help when needed."},
		{"ok", &fakeAdvisor{lines: []string{"Talk to advisor"}}, "Talk to advisor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{}
			if tt.advisor != nil {
				cfg.Advisor = tt.advisor
			}
			p := newPipeline(t, cfg)

			preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
				record(1, map[string]any{"attendance_percentage": 10.0, "dept": "cs"}),
			})
			if err != nil {
				t.Fatalf("BatchPredict() error = %v", err)
			}
			if got := preds[0].Recommendations[0]; got != tt.want {
				t.Errorf("Recommendations[0] = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBatchPredict_Canceled(t *testing.T) {
	p := newPipeline(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.BatchPredict(ctx, []domain.StudentRecord{
		record(1, map[string]any{"attendance_percentage": 10.0, "dept": "cs"}),
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestTrain(t *testing.T) {
	var rows []map[string]any
	for i := 0; i < 30; i++ {
		var att float64
		var label string
		switch i % 3 {
		case 0:
			att, label = 95-float64(i%5), "Low Risk"
		case 1:
			att, label = 60-float64(i%5), "Medium"
		default:
			att, label = 15+float64(i%5), "2"
		}
		dept := "cs"
		if i%2 == 0 {
			dept = "math"
		}
		rows = append(rows, map[string]any{
			"student_id":            int64(i + 1),
			"attendance_percentage": att,
			"dept":                  dept,
			"dropout_risk":          label,
		})
	}

	b, err := Train(rows, TrainOptions{Version: "trained"})
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if b.Version != "trained" {
		t.Errorf("Version = %q", b.Version)
	}
	for _, name := range b.FeatureNames {
		if name == "student_id" || name == "dropout_risk" {
			t.Errorf("feature %q must not be trained on", name)
		}
	}
	if !b.IsCategorical("dept") || b.IsCategorical("attendance_percentage") {
		t.Errorf("categorical = %v", b.CategoricalFeatures())
	}
	if b.Background == nil {
		t.Error("Background is nil")
	}
	if _, ok := b.Metrics["train_accuracy"]; !ok {
		t.Errorf("Metrics = %v", b.Metrics)
	}

	p := newPipeline(t, Config{Bundle: b})
	preds, err := p.BatchPredict(context.Background(), []domain.StudentRecord{
		record(100, map[string]any{"attendance_percentage": 98.0, "dept": "cs"}),
		record(101, map[string]any{"attendance_percentage": 5.0, "dept": "math"}),
	})
	if err != nil {
		t.Fatalf("BatchPredict() error = %v", err)
	}
	if preds[0].DropoutRisk != domain.RiskLow || preds[1].DropoutRisk != domain.RiskHigh {
		t.Errorf("risks = %q, %q", preds[0].DropoutRisk, preds[1].DropoutRisk)
	}
}

func TestTrain_Errors(t *testing.T) {
	if _, err := Train(nil, TrainOptions{}); !errors.Is(err, ErrNoTrainingData) {
		t.Errorf("empty: error = %v", err)
	}
	if _, err := Train([]map[string]any{{"a": 1.0}}, TrainOptions{}); err == nil {
		t.Error("missing label: expected error")
	}
	if _, err := Train([]map[string]any{{"a": 1.0, "dropout_risk": "Severe"}}, TrainOptions{}); err == nil {
		t.Error("unknown label: expected error")
	}
}

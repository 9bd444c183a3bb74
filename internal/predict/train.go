package predict

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/features"
	"github.com/shaiso/Riskwatch/internal/model"
)

// DefaultLabelField — колонка с меткой риска в обучающей выборке.
const DefaultLabelField = "dropout_risk"

// ErrNoTrainingData возвращается для пустой выборки.
var ErrNoTrainingData = errors.New("no training data")

// TrainOptions — параметры обучения.
type TrainOptions struct {
	// Version — версия модели (default: время обучения).
	Version string

	// Features — порядок признаков. Пусто — все колонки кроме метки и
	// идентификатора, по алфавиту.
	Features []string

	// LabelField — колонка с меткой (default: dropout_risk).
	LabelField string

	Fit model.FitOptions

	Engineer *features.Engineer
}

// Train обучает Bundle на записях с известной меткой риска.
//
// Записи проходят тот же feature engineering, что и при прогнозе.
// Колонка считается категориальной, если хотя бы одно её значение —
// нечисловая строка.
func Train(rows []map[string]any, opts TrainOptions) (*model.Bundle, error) {
	if len(rows) == 0 {
		return nil, ErrNoTrainingData
	}
	labelField := opts.LabelField
	if labelField == "" {
		labelField = DefaultLabelField
	}
	engineer := opts.Engineer
	if engineer == nil {
		engineer = features.New()
	}
	fit := opts.Fit
	if fit == (model.FitOptions{}) {
		fit = model.DefaultFitOptions()
	}

	engineered := make([]map[string]any, len(rows))
	y := make([]int, len(rows))
	for i, r := range rows {
		raw, ok := r[labelField]
		if !ok {
			return nil, fmt.Errorf("row %d: missing label %q", i, labelField)
		}
		level, ok := domain.ParseRiskLevel(categoryValue(raw))
		if !ok {
			return nil, fmt.Errorf("row %d: unknown risk label %v", i, raw)
		}
		y[i] = domain.ClassFromRisk(level)

		e := engineer.Engineer(r)
		delete(e, labelField)
		engineered[i] = e
	}

	names := opts.Features
	if len(names) == 0 {
		names = inferFeatures(engineered)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no feature columns", ErrNoTrainingData)
	}
	if err := checkFeatures(engineered, names); err != nil {
		return nil, err
	}

	encoders := make(map[string]*model.LabelEncoder)
	for _, name := range names {
		categorical := false
		for _, r := range engineered {
			if features.IsCategorical(r[name]) {
				categorical = true
				break
			}
		}
		if !categorical {
			continue
		}
		values := make([]string, len(engineered))
		for i, r := range engineered {
			values[i] = categoryValue(r[name])
		}
		encoders[name] = model.NewLabelEncoder(values)
	}

	X, err := buildMatrix(engineered, nil, names, encoders)
	if err != nil {
		return nil, err
	}

	scaler := model.FitScaler(X)
	Xs, err := scaler.Transform(X)
	if err != nil {
		return nil, err
	}

	clf, err := model.FitSoftmax(Xs, y, len(domain.RiskLevels), fit)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	version := opts.Version
	if version == "" {
		version = now.Format("20060102T150405Z")
	}

	b := &model.Bundle{
		Version:      version,
		CreatedAt:    now,
		FeatureNames: append([]string(nil), names...),
		Encoders:     encoders,
		Scaler:       scaler,
		Classifier:   clf,
		Background:   columnMeans(Xs),
		Metrics: map[string]float64{
			"train_samples":  float64(len(rows)),
			"train_features": float64(len(names)),
		},
	}

	pred, err := clf.Predict(Xs)
	if err != nil {
		return nil, err
	}
	var correct int
	for i := range pred {
		if pred[i] == y[i] {
			correct++
		}
	}
	b.Metrics["train_accuracy"] = round(float64(correct)/float64(len(y)), 6)

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// inferFeatures собирает имена колонок всех записей, кроме идентификатора.
func inferFeatures(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			if k == domain.StudentIDField {
				continue
			}
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func columnMeans(X mat.Matrix) []float64 {
	r, c := X.Dims()
	means := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		means[j] = stat.Mean(col, nil)
	}
	return means
}

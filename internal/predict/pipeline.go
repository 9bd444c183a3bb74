package predict

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/shaiso/Riskwatch/internal/advice"
	"github.com/shaiso/Riskwatch/internal/domain"
	"github.com/shaiso/Riskwatch/internal/features"
	"github.com/shaiso/Riskwatch/internal/model"
	"github.com/shaiso/Riskwatch/internal/telemetry"
)

const defaultMaxNewLabels = 1000

// Config — конфигурация Pipeline.
type Config struct {
	// Bundle — обученная модель (обязательно). Pipeline работает с копией
	// энкодеров, исходный Bundle не изменяется.
	Bundle *model.Bundle

	// Explainer — опционально; если nil, берётся Bundle.Explainer().
	Explainer model.Explainer

	// DisableExplainer — не считать атрибуцию вовсе.
	DisableExplainer bool

	// Catalog — каталог признаков (default: встроенный).
	Catalog *Catalog

	// Advisor — генератор рекомендаций; nil — статические списки.
	Advisor advice.Advisor

	// Engineer — feature engineering (default: features.New()).
	Engineer *features.Engineer

	// MaxNewLabels — сколько новых меток может получить один категориальный
	// признак за жизнь процесса (default: 1000).
	MaxNewLabels int

	Logger *slog.Logger
}

// Pipeline — прогноз и объяснение риска для пакета записей.
type Pipeline struct {
	bundle    *model.Bundle
	explainer model.Explainer
	catalog   *Catalog
	advisor   advice.Advisor
	engineer  *features.Engineer
	logger    *slog.Logger

	// mu защищает энкодеры bundle и added.
	mu           sync.Mutex
	added        map[string][]string
	maxNewLabels int

	now func() time.Time
}

// New создаёт Pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Bundle == nil {
		return nil, ErrNoModel
	}
	if err := cfg.Bundle.Validate(); err != nil {
		return nil, err
	}
	bundle := cfg.Bundle.Clone()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithModelVersion(logger, bundle.Version)

	var explainer model.Explainer
	if !cfg.DisableExplainer {
		explainer = cfg.Explainer
		if explainer == nil {
			e, err := bundle.Explainer()
			if err != nil {
				logger.Warn("explainer unavailable", "error", err)
			} else {
				explainer = e
			}
		}
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	engineer := cfg.Engineer
	if engineer == nil {
		engineer = features.New()
	}

	return &Pipeline{
		bundle:    bundle,
		explainer: explainer,
		catalog:   catalog,
		advisor:   cfg.Advisor,
		engineer:  engineer,
		logger:    logger,
		added:     make(map[string][]string),
		now:       time.Now,

		maxNewLabels: cmp.Or(max(cfg.MaxNewLabels, 0), defaultMaxNewLabels),
	}, nil
}

// ModelVersion возвращает версию модели.
func (p *Pipeline) ModelVersion() string {
	return p.bundle.Version
}

// ModelInfo — описание модели за границей сервиса.
type ModelInfo struct {
	Version      string              `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	FeatureNames []string            `json:"feature_names"`
	Categorical  map[string][]string `json:"categorical"`
	Extended     map[string][]string `json:"extended_labels,omitempty"`
	Classes      []domain.RiskLevel  `json:"classes"`
	Explainer    bool                `json:"explainer"`
	Advisor      bool                `json:"advisor"`
	Metrics      map[string]float64  `json:"metrics,omitempty"`
}

// Info возвращает снимок описания модели, включая метки,
// добавленные в энкодеры после загрузки.
func (p *Pipeline) Info() ModelInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	info := ModelInfo{
		Version:      p.bundle.Version,
		CreatedAt:    p.bundle.CreatedAt,
		FeatureNames: append([]string(nil), p.bundle.FeatureNames...),
		Categorical:  make(map[string][]string, len(p.bundle.Encoders)),
		Explainer:    p.explainer != nil,
		Advisor:      p.advisor != nil,
		Metrics:      p.bundle.Metrics,
	}
	for name, enc := range p.bundle.Encoders {
		info.Categorical[name] = append([]string(nil), enc.Classes...)
	}
	if len(p.added) > 0 {
		info.Extended = make(map[string][]string, len(p.added))
		for name, labels := range p.added {
			info.Extended[name] = append([]string(nil), labels...)
		}
	}
	for c := 0; c < p.bundle.NumClasses(); c++ {
		info.Classes = append(info.Classes, domain.RiskFromClass(c))
	}
	return info
}

// BatchPredict считает прогнозы для пакета записей.
//
// Ошибка возвращается только для пакета целиком: отсутствующие признаки,
// нечисловые значения, отмена контекста. Проблемы атрибуции отдельных
// строк попадают в Prediction.ExplanationError.
func (p *Pipeline) BatchPredict(ctx context.Context, records []domain.StudentRecord) ([]domain.Prediction, error) {
	start := time.Now()
	defer func() {
		telemetry.PipelineDuration.Observe(time.Since(start).Seconds())
	}()
	telemetry.BatchSize.Observe(float64(len(records)))

	if len(records) == 0 {
		return []domain.Prediction{}, nil
	}

	rows := make([]map[string]any, len(records))
	ids := make([]int64, len(records))
	for i := range records {
		rows[i] = p.engineer.Engineer(records[i].Fields)
		ids[i] = records[i].StudentID
	}

	if err := checkFeatures(rows, p.bundle.FeatureNames); err != nil {
		return nil, err
	}

	X, err := p.encode(rows, ids)
	if err != nil {
		return nil, err
	}

	Xs, err := p.bundle.Scaler.Transform(X)
	if err != nil {
		return nil, fmt.Errorf("scale features: %w", err)
	}

	perClass, explErr := p.attribute(Xs)

	probs, err := p.bundle.Classifier.PredictProba(Xs)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	preds := model.Argmax(probs)

	createdAt := p.now()
	out := make([]domain.Prediction, 0, len(records))
	for i := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pr := domain.Prediction{
			StudentID:         ids[i],
			ModelVersion:      p.bundle.Version,
			RiskProbabilities: make(map[domain.RiskLevel]float64),
			CreatedAt:         createdAt,
		}

		cls := preds[i]
		prob := probs.RawRowView(i)
		pr.DropoutRisk = domain.RiskFromClass(cls)
		pr.RiskConfidence = round(prob[cls]*100, 6)
		for c := range prob {
			pr.RiskProbabilities[domain.RiskFromClass(c)] = round(prob[c]*100, 6)
		}

		a := BuildAnalytics(rows[i])
		pr.LearningStyle = a.LearningStyle
		pr.Strengths = a.Strengths
		pr.Weaknesses = a.Weaknesses
		pr.Interests = a.Interests

		pr.ShapExplanations, pr.ExplanationError = p.explainRow(perClass, explErr, cls, i, Xs.RawRowView(i))
		if pr.ShapExplanations == nil {
			pr.ShapExplanations = []domain.FeatureContribution{}
		}
		if pr.ExplanationError != "" && explErr == "" {
			p.logger.Warn("explanation skipped", "student_id", ids[i], "reason", pr.ExplanationError)
		}

		pr.ExplanationSummary, pr.KeyFactors, pr.Interventions = narrative(&pr, p.catalog)

		pr.RootCauses = pr.ShapExplanations
		if len(pr.RootCauses) > maxRootCauses {
			pr.RootCauses = pr.RootCauses[:maxRootCauses]
		}

		pr.Recommendations = p.recommend(ctx, &pr)

		telemetry.PredictionsTotal.WithLabelValues(string(pr.DropoutRisk)).Inc()
		out = append(out, pr)
	}

	p.logger.Debug("batch predicted", "count", len(out), "duration", time.Since(start))
	return out, nil
}

// checkFeatures проверяет, что каждый признак модели есть хотя бы в одной записи.
// Отдельные пропуски в строках допустимы и заполняются нулём.
func checkFeatures(rows []map[string]any, names []string) error {
	var missing []string
	for _, name := range names {
		found := false
		for _, r := range rows {
			if _, ok := r[name]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &FeatureMismatchError{Missing: missing}
	}
	return nil
}

// encode расширяет энкодеры новыми метками и строит матрицу признаков.
// Если хоть один признак превысил бы maxNewLabels, энкодеры не меняются.
func (p *Pipeline) encode(rows []map[string]any, ids []int64) (*mat.Dense, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	unseen := make(map[string][]string)
	for _, name := range p.bundle.CategoricalFeatures() {
		values := make([]string, len(rows))
		for i, r := range rows {
			values[i] = categoryValue(r[name])
		}
		labels := p.bundle.Encoders[name].Unseen(values)
		if len(labels) == 0 {
			continue
		}
		if len(p.added[name])+len(labels) > p.maxNewLabels {
			return nil, &LabelLimitError{Feature: name, Limit: p.maxNewLabels}
		}
		unseen[name] = labels
	}

	for name, labels := range unseen {
		added := p.bundle.Encoders[name].Extend(labels)
		p.added[name] = append(p.added[name], added...)
		telemetry.UnseenLabels.WithLabelValues(name).Add(float64(len(added)))
		p.logger.Warn("unseen labels added to encoder", "feature", name, "labels", firstN(added, 10))
	}

	return buildMatrix(rows, ids, p.bundle.FeatureNames, p.bundle.Encoders)
}

// buildMatrix собирает матрицу n×f в порядке featureNames.
// Категории кодируются энкодером, числовые пропуски становятся нулём.
func buildMatrix(rows []map[string]any, ids []int64, featureNames []string, encoders map[string]*model.LabelEncoder) (*mat.Dense, error) {
	X := mat.NewDense(len(rows), len(featureNames), nil)
	for i, r := range rows {
		for j, name := range featureNames {
			v := r[name]
			if enc, ok := encoders[name]; ok {
				code, known := enc.Code(categoryValue(v))
				if !known {
					return nil, fmt.Errorf("encode %q: %w: %q", name, model.ErrUnknownLabel, categoryValue(v))
				}
				X.Set(i, j, float64(code))
				continue
			}
			f, isNum, missing := features.ToFloat(v)
			switch {
			case isNum:
				X.Set(i, j, f)
			case missing:
				X.Set(i, j, 0)
			default:
				var id int64
				if i < len(ids) {
					id = ids[i]
				}
				return nil, &NonNumericError{StudentID: id, Feature: name, Value: v}
			}
		}
	}
	return X, nil
}

// attribute считает атрибуцию для пакета. Вторым значением возвращается
// причина, по которой атрибуция недоступна (пусто при успехе).
func (p *Pipeline) attribute(Xs *mat.Dense) ([]*mat.Dense, string) {
	if p.explainer == nil {
		return nil, "attribution unavailable: no explainer configured"
	}

	attr, err := p.explainer.Explain(Xs)
	if err != nil {
		telemetry.AttributionFailures.WithLabelValues("explain").Inc()
		p.logger.Warn("attribution failed", "error", err)
		return nil, fmt.Sprintf("attribution failed: %v", err)
	}

	perClass, err := model.NormalizeAttribution(attr)
	if err != nil {
		telemetry.AttributionFailures.WithLabelValues("shape").Inc()
		p.logger.Warn("attribution has unusable shape", "shape", attr.Shape, "error", err)
		return nil, fmt.Sprintf("attribution unusable: %v", err)
	}
	return perClass, ""
}

// explainRow строит объяснение строки i для предсказанного класса.
func (p *Pipeline) explainRow(perClass []*mat.Dense, batchErr string, cls, i int, values []float64) ([]domain.FeatureContribution, string) {
	if batchErr != "" {
		return nil, batchErr
	}
	if cls >= len(perClass) {
		telemetry.AttributionFailures.WithLabelValues("class").Inc()
		return nil, fmt.Sprintf("predicted class %d has no attribution: %d classes available", cls, len(perClass))
	}
	m := perClass[cls]
	rows, cols := m.Dims()
	if i >= rows {
		telemetry.AttributionFailures.WithLabelValues("rows").Inc()
		return nil, fmt.Sprintf("attribution has %d rows, row %d requested", rows, i)
	}
	if cols != len(p.bundle.FeatureNames) {
		telemetry.AttributionFailures.WithLabelValues("length").Inc()
		return nil, fmt.Sprintf("attribution/feature length mismatch: %d attributions, %d features", cols, len(p.bundle.FeatureNames))
	}
	return topContributions(p.bundle.FeatureNames, values, m.RawRowView(i)), ""
}

// recommend выбирает рекомендации: статические для низкого риска,
// иначе генератор с запасными списками.
func (p *Pipeline) recommend(ctx context.Context, pr *domain.Prediction) []string {
	if pr.DropoutRisk == domain.RiskLow {
		return advice.LowRiskRecommendations()
	}
	if p.advisor == nil {
		telemetry.AdvisorRequests.WithLabelValues("disabled").Inc()
		return advice.FallbackRecommendations()
	}

	recs, err := p.advisor.Recommend(ctx, pr)
	if err != nil {
		telemetry.AdvisorRequests.WithLabelValues("error").Inc()
		telemetry.WithStudentID(p.logger, pr.StudentID).Warn("advisor failed", "error", err)
		return advice.FallbackRecommendations()
	}
	if len(recs) == 0 {
		telemetry.AdvisorRequests.WithLabelValues("empty").Inc()
		return advice.EmptyAdviceRecommendations()
	}

	telemetry.AdvisorRequests.WithLabelValues("ok").Inc()
	cleaned := make([]string, len(recs))
	for i, r := range recs {
		cleaned[i] = advice.RemoveEmojis(r)
	}
	return cleaned
}

// categoryValue — строковое представление значения категориальной колонки.
// Пропуск и пустая строка кодируются как "nan". Числа приводятся к одному
// виду независимо от источника: 1, 1.0 и json.Number("1.0") дают "1".
func categoryValue(v any) string {
	switch x := v.(type) {
	case string:
		if x == "" {
			return "nan"
		}
		return x
	case bool:
		return strconv.FormatBool(x)
	}
	f, isNum, missing := features.ToFloat(v)
	switch {
	case missing:
		return "nan"
	case isNum:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func firstN(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[:n]
}

package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Bundle — версионированный артефакт модели.
//
// Хранит всё, что нужно для инференса: порядок признаков,
// энкодеры категорий, scaler, классификатор и опорную точку объяснителя.
type Bundle struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	FeatureNames []string                 `json:"feature_names"`
	Encoders     map[string]*LabelEncoder `json:"encoders,omitempty"`
	Scaler       *StandardScaler          `json:"scaler"`
	Classifier   *SoftmaxRegression       `json:"classifier"`

	// Background — опорная точка LinearExplainer в масштабированном пространстве.
	// Nil — объяснитель недоступен.
	Background []float64 `json:"background,omitempty"`

	// Metrics — метрики на обучающей выборке (accuracy и т.п.), для справки.
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Load читает Bundle из JSON-файла и проверяет его.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Save записывает Bundle атомарно (временный файл + rename).
func (b *Bundle) Save(path string) error {
	if err := b.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename bundle: %w", err)
	}
	return nil
}

// Validate проверяет, что размеры компонентов согласованы.
func (b *Bundle) Validate() error {
	if b.Version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidBundle)
	}
	f := len(b.FeatureNames)
	if f == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidBundle)
	}
	seen := make(map[string]struct{}, f)
	for _, name := range b.FeatureNames {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate feature %q", ErrInvalidBundle, name)
		}
		seen[name] = struct{}{}
	}
	for name, enc := range b.Encoders {
		if _, ok := seen[name]; !ok {
			return fmt.Errorf("%w: encoder for unknown feature %q", ErrInvalidBundle, name)
		}
		if enc == nil || len(enc.Classes) == 0 {
			return fmt.Errorf("%w: encoder for %q has no classes", ErrInvalidBundle, name)
		}
	}
	if b.Scaler == nil || b.Scaler.Width() != f || len(b.Scaler.Scale) != f {
		return fmt.Errorf("%w: scaler does not match %d features", ErrInvalidBundle, f)
	}
	if b.Classifier == nil {
		return fmt.Errorf("%w: no classifier", ErrInvalidBundle)
	}
	if err := b.Classifier.Validate(); err != nil {
		return err
	}
	if b.Classifier.NumFeatures() != f {
		return fmt.Errorf("%w: classifier has %d features, bundle has %d", ErrInvalidBundle, b.Classifier.NumFeatures(), f)
	}
	if b.Background != nil && len(b.Background) != f {
		return fmt.Errorf("%w: background has %d values, bundle has %d features", ErrInvalidBundle, len(b.Background), f)
	}
	return nil
}

// NumClasses возвращает число классов классификатора.
func (b *Bundle) NumClasses() int {
	return b.Classifier.NumClasses()
}

// IsCategorical возвращает true, если у признака есть энкодер.
func (b *Bundle) IsCategorical(feature string) bool {
	_, ok := b.Encoders[feature]
	return ok
}

// CategoricalFeatures возвращает имена категориальных признаков по алфавиту.
func (b *Bundle) CategoricalFeatures() []string {
	names := make([]string, 0, len(b.Encoders))
	for name := range b.Encoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Explainer возвращает LinearExplainer или nil, если Background не задан.
func (b *Bundle) Explainer() (Explainer, error) {
	if b.Background == nil {
		return nil, nil
	}
	e, err := NewLinearExplainer(b.Classifier, b.Background)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Clone возвращает копию с независимыми энкодерами.
// Остальные компоненты только читаются и разделяются.
func (b *Bundle) Clone() *Bundle {
	c := *b
	c.Encoders = make(map[string]*LabelEncoder, len(b.Encoders))
	for name, enc := range b.Encoders {
		c.Encoders[name] = enc.Clone()
	}
	return &c
}

package predict

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFeatureMismatch — во входных данных нет признаков, на которых обучена модель.
	ErrFeatureMismatch = errors.New("feature mismatch")

	// ErrNonNumericFeature — в числовой колонке нечисловое значение.
	ErrNonNumericFeature = errors.New("non-numeric feature value")

	// ErrLabelLimit — категориальный признак получил слишком много новых меток.
	ErrLabelLimit = errors.New("too many unseen labels")

	// ErrNoModel — пайплайн создан без модели.
	ErrNoModel = errors.New("model not loaded")
)

// FeatureMismatchError перечисляет отсутствующие признаки.
type FeatureMismatchError struct {
	Missing []string
}

func (e *FeatureMismatchError) Error() string {
	return fmt.Sprintf("%s: missing features [%s]", ErrFeatureMismatch, strings.Join(e.Missing, ", "))
}

func (e *FeatureMismatchError) Unwrap() error {
	return ErrFeatureMismatch
}

// NonNumericError указывает студента, признак и значение.
type NonNumericError struct {
	StudentID int64
	Feature   string
	Value     any
}

func (e *NonNumericError) Error() string {
	return fmt.Sprintf("%s: student %d, feature %q, value %v", ErrNonNumericFeature, e.StudentID, e.Feature, e.Value)
}

func (e *NonNumericError) Unwrap() error {
	return ErrNonNumericFeature
}

// LabelLimitError — пакет превысил бы предел новых меток признака.
// Энкодеры в этом случае не расширяются.
type LabelLimitError struct {
	Feature string
	Limit   int
}

func (e *LabelLimitError) Error() string {
	return fmt.Sprintf("%s: feature %q accepts at most %d labels beyond training", ErrLabelLimit, e.Feature, e.Limit)
}

func (e *LabelLimitError) Unwrap() error {
	return ErrLabelLimit
}

package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Attribution — сырой выход объяснителя: n-мерный массив в row-major порядке.
//
// Ожидаемые формы:
//   - (samples, features, classes) — мультиклассовая модель
//   - (samples, features)          — модель с одним выходом
type Attribution struct {
	Shape  []int
	Values []float64
}

// Explainer считает вклад признаков в предсказание для каждой строки X.
type Explainer interface {
	Explain(X mat.Matrix) (Attribution, error)
}

// NormalizeAttribution раскладывает атрибуцию по классам.
//
// 3-D (n, f, k) → k матриц n×f; 2-D (n, f) → одна матрица.
// Любая другая форма — ErrUnsupportedShape.
func NormalizeAttribution(a Attribution) ([]*mat.Dense, error) {
	size := 1
	for _, d := range a.Shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedShape, a.Shape)
		}
		size *= d
	}
	if len(a.Shape) > 0 && size != len(a.Values) {
		return nil, fmt.Errorf("%w: shape %v holds %d values, got %d", ErrUnsupportedShape, a.Shape, size, len(a.Values))
	}

	switch len(a.Shape) {
	case 3:
		n, f, k := a.Shape[0], a.Shape[1], a.Shape[2]
		perClass := make([]*mat.Dense, k)
		for c := 0; c < k; c++ {
			m := mat.NewDense(n, f, nil)
			for i := 0; i < n; i++ {
				for j := 0; j < f; j++ {
					m.Set(i, j, a.Values[(i*f+j)*k+c])
				}
			}
			perClass[c] = m
		}
		return perClass, nil
	case 2:
		n, f := a.Shape[0], a.Shape[1]
		return []*mat.Dense{mat.NewDense(n, f, append([]float64(nil), a.Values...))}, nil
	default:
		return nil, fmt.Errorf("%w: %d dimensions", ErrUnsupportedShape, len(a.Shape))
	}
}

// LinearExplainer — точные значения Шепли для SoftmaxRegression
// в пространстве логитов при независимых признаках:
//
//	phi[i][j][c] = W[c][j] * (x[i][j] - background[j])
//
// Сумма вкладов строки по признакам равна margin(x) - margin(background).
type LinearExplainer struct {
	model      *SoftmaxRegression
	background []float64
}

// NewLinearExplainer создаёт объяснитель. background — опорная точка
// (обычно среднее обучающих строк после масштабирования).
func NewLinearExplainer(m *SoftmaxRegression, background []float64) (*LinearExplainer, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil classifier", ErrInvalidBundle)
	}
	if len(background) != m.NumFeatures() {
		return nil, fmt.Errorf("%w: background has %d values, model has %d features",
			ErrDimensionMismatch, len(background), m.NumFeatures())
	}
	return &LinearExplainer{model: m, background: background}, nil
}

// Explain возвращает атрибуцию формы (n, f, k).
func (e *LinearExplainer) Explain(X mat.Matrix) (Attribution, error) {
	n, f := X.Dims()
	if f != len(e.background) {
		return Attribution{}, fmt.Errorf("%w: explainer expects %d features, got %d", ErrDimensionMismatch, len(e.background), f)
	}
	k := e.model.NumClasses()
	values := make([]float64, n*f*k)
	for i := 0; i < n; i++ {
		for j := 0; j < f; j++ {
			delta := X.At(i, j) - e.background[j]
			for c := 0; c < k; c++ {
				values[(i*f+j)*k+c] = e.model.Weights[c][j] * delta
			}
		}
	}
	return Attribution{Shape: []int{n, f, k}, Values: values}, nil
}

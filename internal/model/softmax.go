package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftmaxRegression — мультиномиальная логистическая регрессия.
//
// Weights имеет размер k×f (классы × признаки).
type SoftmaxRegression struct {
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
}

// FitOptions — параметры градиентного спуска.
type FitOptions struct {
	LearningRate float64 `json:"learning_rate"`
	Epochs       int     `json:"epochs"`
	L2           float64 `json:"l2"`
}

// DefaultFitOptions возвращает параметры, подходящие для стандартизованных признаков.
func DefaultFitOptions() FitOptions {
	return FitOptions{LearningRate: 0.5, Epochs: 500, L2: 1e-3}
}

// NumClasses возвращает число классов.
func (m *SoftmaxRegression) NumClasses() int {
	return len(m.Weights)
}

// NumFeatures возвращает число признаков.
func (m *SoftmaxRegression) NumFeatures() int {
	if len(m.Weights) == 0 {
		return 0
	}
	return len(m.Weights[0])
}

// Validate проверяет согласованность размеров.
func (m *SoftmaxRegression) Validate() error {
	k := len(m.Weights)
	if k == 0 {
		return fmt.Errorf("%w: classifier has no classes", ErrInvalidBundle)
	}
	if len(m.Intercepts) != k {
		return fmt.Errorf("%w: %d intercepts for %d classes", ErrInvalidBundle, len(m.Intercepts), k)
	}
	f := len(m.Weights[0])
	for c, row := range m.Weights {
		if len(row) != f {
			return fmt.Errorf("%w: weight row %d has %d features, want %d", ErrInvalidBundle, c, len(row), f)
		}
	}
	return nil
}

// weightMatrix возвращает веса как k×f матрицу.
func (m *SoftmaxRegression) weightMatrix() *mat.Dense {
	k, f := m.NumClasses(), m.NumFeatures()
	data := make([]float64, 0, k*f)
	for _, row := range m.Weights {
		data = append(data, row...)
	}
	return mat.NewDense(k, f, data)
}

// Margins возвращает логиты X·Wᵀ + b размера n×k.
func (m *SoftmaxRegression) Margins(X mat.Matrix) (*mat.Dense, error) {
	n, f := X.Dims()
	if f != m.NumFeatures() {
		return nil, fmt.Errorf("%w: model expects %d features, got %d", ErrDimensionMismatch, m.NumFeatures(), f)
	}
	var z mat.Dense
	z.Mul(X, m.weightMatrix().T())
	for i := 0; i < n; i++ {
		for c, b := range m.Intercepts {
			z.Set(i, c, z.At(i, c)+b)
		}
	}
	return &z, nil
}

// PredictProba возвращает вероятности классов, строки суммируются в 1.
func (m *SoftmaxRegression) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	z, err := m.Margins(X)
	if err != nil {
		return nil, err
	}
	softmaxRows(z)
	return z, nil
}

// Predict возвращает индекс наиболее вероятного класса.
// При равенстве выбирается меньший индекс.
func (m *SoftmaxRegression) Predict(X mat.Matrix) ([]int, error) {
	p, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return Argmax(p), nil
}

// Argmax возвращает индекс максимума в каждой строке.
func Argmax(p *mat.Dense) []int {
	n, _ := p.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		row := p.RawRowView(i)
		best := 0
		for c := 1; c < len(row); c++ {
			if row[c] > row[best] {
				best = c
			}
		}
		out[i] = best
	}
	return out
}

// FitSoftmax обучает модель пакетным градиентным спуском с L2.
func FitSoftmax(X mat.Matrix, y []int, numClasses int, opts FitOptions) (*SoftmaxRegression, error) {
	n, f := X.Dims()
	if n == 0 {
		return nil, errors.New("fit softmax: empty training set")
	}
	if len(y) != n {
		return nil, fmt.Errorf("%w: %d rows, %d labels", ErrDimensionMismatch, n, len(y))
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("fit softmax: need at least 2 classes, got %d", numClasses)
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultFitOptions().LearningRate
	}
	if opts.Epochs <= 0 {
		opts.Epochs = DefaultFitOptions().Epochs
	}

	onehot := mat.NewDense(n, numClasses, nil)
	for i, label := range y {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("fit softmax: label %d out of range [0,%d)", label, numClasses)
		}
		onehot.Set(i, label, 1)
	}

	W := mat.NewDense(numClasses, f, nil)
	b := make([]float64, numClasses)
	invN := 1 / float64(n)

	var z, grad mat.Dense
	gb := make([]float64, numClasses)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		z.Mul(X, W.T())
		for i := 0; i < n; i++ {
			row := z.RawRowView(i)
			floats.Add(row, b)
		}
		softmaxRows(&z)
		z.Sub(&z, onehot) // z = P - Y

		grad.Mul(z.T(), X)
		grad.Scale(invN, &grad)
		if opts.L2 > 0 {
			var reg mat.Dense
			reg.Scale(opts.L2, W)
			grad.Add(&grad, &reg)
		}

		for c := range gb {
			gb[c] = floats.Sum(mat.Col(nil, c, &z)) * invN
		}

		grad.Scale(opts.LearningRate, &grad)
		W.Sub(W, &grad)
		floats.AddScaled(b, -opts.LearningRate, gb)
	}

	m := &SoftmaxRegression{
		Weights:    make([][]float64, numClasses),
		Intercepts: b,
	}
	for c := 0; c < numClasses; c++ {
		m.Weights[c] = mat.Row(nil, c, W)
	}
	return m, nil
}

// softmaxRows заменяет каждую строку z на softmax(строка).
func softmaxRows(z *mat.Dense) {
	n, _ := z.Dims()
	for i := 0; i < n; i++ {
		row := z.RawRowView(i)
		maxV := floats.Max(row)
		var sum float64
		for c := range row {
			row[c] = math.Exp(row[c] - maxV)
			sum += row[c]
		}
		floats.Scale(1/sum, row)
	}
}

package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler приводит колонки к нулевому среднему и единичному отклонению.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler вычисляет среднее и стандартное отклонение (ddof=0) по колонкам X.
// Колонка с нулевым разбросом получает scale=1.
func FitScaler(X mat.Matrix) *StandardScaler {
	r, c := X.Dims()
	s := &StandardScaler{
		Mean:  make([]float64, c),
		Scale: make([]float64, c),
	}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, variance := stat.PopMeanVariance(col, nil)
		s.Mean[j] = mean
		s.Scale[j] = scaleOrOne(math.Sqrt(variance))
	}
	return s
}

// Width возвращает число колонок, на которые обучен scaler.
func (s *StandardScaler) Width() int {
	return len(s.Mean)
}

// Transform возвращает новую матрицу (x - mean) / scale.
func (s *StandardScaler) Transform(X mat.Matrix) (*mat.Dense, error) {
	r, c := X.Dims()
	if c != len(s.Mean) || c != len(s.Scale) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", ErrDimensionMismatch, len(s.Mean), c)
	}
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / scaleOrOne(s.Scale[j])
	}, X)
	return out, nil
}

func scaleOrOne(v float64) float64 {
	if v == 0 || math.IsNaN(v) {
		return 1
	}
	return v
}

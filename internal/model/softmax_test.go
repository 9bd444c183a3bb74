package model

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// clusters — три хорошо разделённых облака точек в 2D.
func clusters() (*mat.Dense, []int) {
	centers := [][2]float64{{-3, 0}, {0, 3}, {3, 0}}
	offsets := [][2]float64{{0, 0}, {0.3, 0.2}, {-0.2, 0.3}, {0.25, -0.3}, {-0.3, -0.1}}

	var data []float64
	var y []int
	for c, center := range centers {
		for _, o := range offsets {
			data = append(data, center[0]+o[0], center[1]+o[1])
			y = append(y, c)
		}
	}
	return mat.NewDense(len(y), 2, data), y
}

func TestFitSoftmax_SeparatesClusters(t *testing.T) {
	X, y := clusters()

	m, err := FitSoftmax(X, y, 3, DefaultFitOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pred, err := m.Predict(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	if correct != len(y) {
		t.Errorf("expected all %d points classified, got %d", len(y), correct)
	}
}

func TestPredictProba_RowsSumToOne(t *testing.T) {
	m := &SoftmaxRegression{
		Weights:    [][]float64{{1, -1}, {0.5, 0.5}, {-1, 2}},
		Intercepts: []float64{0.1, 0, -0.2},
	}
	X := mat.NewDense(3, 2, []float64{0, 0, 10, -10, -500, 500})

	p, err := m.PredictProba(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 3; i++ {
		sum := 0.0
		for c := 0; c < 3; c++ {
			v := p.At(i, c)
			if math.IsNaN(v) || v < 0 || v > 1 {
				t.Fatalf("row %d class %d: invalid probability %v", i, c, v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d sums to %v", i, sum)
		}
	}
}

func TestPredict_TieGoesToLowestIndex(t *testing.T) {
	m := &SoftmaxRegression{
		Weights:    [][]float64{{0}, {0}, {0}},
		Intercepts: []float64{0, 0, 0},
	}
	pred, err := m.Predict(mat.NewDense(1, 1, []float64{5}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred[0] != 0 {
		t.Errorf("expected class 0 on tie, got %d", pred[0])
	}
}

func TestMargins_DimensionMismatch(t *testing.T) {
	m := &SoftmaxRegression{
		Weights:    [][]float64{{1, 2}, {3, 4}},
		Intercepts: []float64{0, 0},
	}
	_, err := m.Margins(mat.NewDense(1, 3, nil))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFitSoftmax_InvalidInput(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})

	if _, err := FitSoftmax(X, []int{0}, 2, FitOptions{}); err == nil {
		t.Error("expected error for label count mismatch")
	}
	if _, err := FitSoftmax(X, []int{0, 5}, 2, FitOptions{}); err == nil {
		t.Error("expected error for out of range label")
	}
	if _, err := FitSoftmax(X, []int{0, 0}, 1, FitOptions{}); err == nil {
		t.Error("expected error for single class")
	}
}

func TestScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 5,
		2, 5,
		3, 5,
		4, 5,
	})
	s := FitScaler(X)

	if s.Mean[0] != 2.5 || s.Mean[1] != 5 {
		t.Errorf("unexpected means %v", s.Mean)
	}
	// Колонка без разброса — scale=1
	if s.Scale[1] != 1 {
		t.Errorf("constant column should get scale 1, got %v", s.Scale[1])
	}

	out, err := s.Transform(X)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := (1 - 2.5) / math.Sqrt(1.25)
	if math.Abs(out.At(0, 0)-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, out.At(0, 0))
	}
	if out.At(2, 1) != 0 {
		t.Errorf("constant column should become 0, got %v", out.At(2, 1))
	}

	if _, err := s.Transform(mat.NewDense(1, 3, nil)); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

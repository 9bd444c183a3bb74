package model

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLabelEncoder_FitSortsUnique(t *testing.T) {
	e := NewLabelEncoder([]string{"Urban", "Rural", "Urban", "Semi-Urban"})

	want := []string{"Rural", "Semi-Urban", "Urban"}
	if diff := cmp.Diff(want, e.Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}

	codes, err := e.Transform([]string{"Urban", "Rural"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codes[0] != 2 || codes[1] != 0 {
		t.Errorf("expected codes [2 0], got %v", codes)
	}
}

func TestLabelEncoder_TransformUnknown(t *testing.T) {
	e := NewLabelEncoder([]string{"Low", "High"})

	_, err := e.Transform([]string{"Medium"})
	if !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("expected ErrUnknownLabel, got %v", err)
	}
}

func TestLabelEncoder_ExtendKeepsExistingCodes(t *testing.T) {
	e := NewLabelEncoder([]string{"Declining", "Stable", "Improving"})
	before, _ := e.Transform([]string{"Declining", "Improving", "Stable"})

	added := e.Extend([]string{"Volatile", "Stable", "Erratic", "Volatile"})

	// Новые метки добавляются отсортированными и без дубликатов
	if diff := cmp.Diff([]string{"Erratic", "Volatile"}, added); diff != "" {
		t.Errorf("added mismatch (-want +got):\n%s", diff)
	}

	after, err := e.Transform([]string{"Declining", "Improving", "Stable"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("existing codes changed after Extend (-before +after):\n%s", diff)
	}

	codes, err := e.Transform([]string{"Erratic", "Volatile"})
	if err != nil {
		t.Fatalf("extended labels should be encodable: %v", err)
	}
	if codes[0] != 3 || codes[1] != 4 {
		t.Errorf("expected appended codes [3 4], got %v", codes)
	}
}

func TestLabelEncoder_ExtendNothingNew(t *testing.T) {
	e := NewLabelEncoder([]string{"a", "b"})
	if added := e.Extend([]string{"b", "a"}); added != nil {
		t.Errorf("expected nil, got %v", added)
	}
	if len(e.Classes) != 2 {
		t.Errorf("classes should not grow, got %v", e.Classes)
	}
}

func TestLabelEncoder_CloneIsIndependent(t *testing.T) {
	e := NewLabelEncoder([]string{"x"})
	c := e.Clone()
	c.Extend([]string{"y"})

	if len(e.Classes) != 1 {
		t.Errorf("original encoder should be untouched, got %v", e.Classes)
	}
	if _, ok := c.Code("y"); !ok {
		t.Error("clone should know y")
	}
}

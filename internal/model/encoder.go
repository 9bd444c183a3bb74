package model

import (
	"fmt"
	"sort"
)

// LabelEncoder кодирует строковые категории в целые коды.
//
// Код категории — её индекс в Classes. Extend дописывает новые
// метки в конец, поэтому коды уже известных меток не меняются.
type LabelEncoder struct {
	Classes []string `json:"classes"`

	index map[string]int
}

// NewLabelEncoder создаёт энкодер, обученный на values.
func NewLabelEncoder(values []string) *LabelEncoder {
	e := &LabelEncoder{}
	e.Fit(values)
	return e
}

// Fit заменяет классы на отсортированные уникальные values.
func (e *LabelEncoder) Fit(values []string) {
	e.Classes = uniqueSorted(values)
	e.index = nil
}

// Unseen возвращает отсортированные уникальные значения, которых нет в Classes.
func (e *LabelEncoder) Unseen(values []string) []string {
	idx := e.lookup()
	var unseen []string
	for _, v := range uniqueSorted(values) {
		if _, ok := idx[v]; !ok {
			unseen = append(unseen, v)
		}
	}
	return unseen
}

// Extend добавляет неизвестные значения в конец Classes.
// Возвращает добавленные значения.
func (e *LabelEncoder) Extend(values []string) []string {
	added := e.Unseen(values)
	if len(added) == 0 {
		return nil
	}
	e.Classes = append(e.Classes, added...)
	e.index = nil
	return added
}

// Transform возвращает коды значений.
func (e *LabelEncoder) Transform(values []string) ([]float64, error) {
	idx := e.lookup()
	codes := make([]float64, len(values))
	for i, v := range values {
		code, ok := idx[v]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, v)
		}
		codes[i] = float64(code)
	}
	return codes, nil
}

// Code возвращает код одного значения.
func (e *LabelEncoder) Code(value string) (int, bool) {
	code, ok := e.lookup()[value]
	return code, ok
}

// Clone возвращает независимую копию.
func (e *LabelEncoder) Clone() *LabelEncoder {
	return &LabelEncoder{Classes: append([]string(nil), e.Classes...)}
}

func (e *LabelEncoder) lookup() map[string]int {
	if e.index != nil && len(e.index) == len(e.Classes) {
		return e.index
	}
	e.index = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		if _, dup := e.index[c]; !dup {
			e.index[c] = i
		}
	}
	return e.index
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

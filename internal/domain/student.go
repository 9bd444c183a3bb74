package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// StudentIDField — имя колонки с идентификатором студента.
const StudentIDField = "student_id"

// ErrMissingStudentID — в записи нет student_id или он не целое число.
var ErrMissingStudentID = errors.New("missing or invalid student_id")

// StudentRecord — сырая строка признаков студента.
//
// Fields хранит колонки как есть (числа, строки категорий, null).
// Feature engineering и кодирование делает predict.Pipeline.
type StudentRecord struct {
	StudentID int64          `json:"student_id"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// NewStudentRecord строит запись из плоского объекта, где student_id
// лежит среди остальных колонок (JSON, CSV).
func NewStudentRecord(fields map[string]any) (StudentRecord, error) {
	raw, ok := fields[StudentIDField]
	if !ok {
		return StudentRecord{}, ErrMissingStudentID
	}
	id, err := parseStudentID(raw)
	if err != nil {
		return StudentRecord{}, err
	}

	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == StudentIDField {
			continue
		}
		copied[k] = v
	}
	return StudentRecord{StudentID: id, Fields: copied}, nil
}

// Flatten возвращает поля вместе с student_id.
func (r StudentRecord) Flatten() map[string]any {
	out := make(map[string]any, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out[StudentIDField] = r.StudentID
	return out
}

func parseStudentID(v any) (int64, error) {
	switch id := v.(type) {
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	case float64:
		if id != math.Trunc(id) {
			return 0, fmt.Errorf("%w: %v", ErrMissingStudentID, id)
		}
		return int64(id), nil
	case json.Number:
		n, err := id.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMissingStudentID, err)
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMissingStudentID, id)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: unexpected type %T", ErrMissingStudentID, v)
	}
}

package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ToFloat приводит значение колонки к числу.
//
// Числа, json.Number, bool и числовые строки приводятся;
// nil, пустая строка и "nan" считаются пропуском (ok=false, missing=true).
// Для нечисловой строки ok=false, missing=false.
func ToFloat(v any) (f float64, ok bool, missing bool) {
	switch x := v.(type) {
	case nil:
		return 0, false, true
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), true, false
	case int64:
		return float64(x), true, false
	case int32:
		return float64(x), true, false
	case bool:
		if x {
			return 1, true, false
		}
		return 0, true, false
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false, false
		}
		return finite(n)
	case string:
		s := strings.TrimSpace(x)
		if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
			return 0, false, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, false
		}
		return finite(n)
	default:
		return 0, false, false
	}
}

// finite: NaN — пропуск, ±Inf — не число (модель на нём даёт NaN вероятности).
func finite(x float64) (float64, bool, bool) {
	switch {
	case math.IsNaN(x):
		return 0, false, true
	case math.IsInf(x, 0):
		return 0, false, false
	}
	return x, true, false
}

// Number возвращает числовое значение колонки или def, если
// колонки нет или она не число.
func Number(fields map[string]any, key string, def float64) float64 {
	v, exists := fields[key]
	if !exists {
		return def
	}
	f, ok, _ := ToFloat(v)
	if !ok {
		return def
	}
	return f
}

// IsCategorical возвращает true для непустой нечисловой строки.
func IsCategorical(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, isNum, missing := ToFloat(s)
	return !isNum && !missing
}

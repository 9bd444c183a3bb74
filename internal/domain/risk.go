package domain

import "strconv"

// RiskLevel — метка риска отчисления.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low Risk"
	RiskMedium RiskLevel = "Medium Risk"
	RiskHigh   RiskLevel = "High Risk"
)

// RiskLevels — метки в порядке индексов классов модели.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// RiskFromClass переводит индекс класса в метку.
// Для неизвестного индекса возвращает его десятичную запись.
func RiskFromClass(idx int) RiskLevel {
	if idx >= 0 && idx < len(RiskLevels) {
		return RiskLevels[idx]
	}
	return RiskLevel(strconv.Itoa(idx))
}

// ClassFromRisk — обратное преобразование. -1, если метка неизвестна.
func ClassFromRisk(r RiskLevel) int {
	for i, l := range RiskLevels {
		if l == r {
			return i
		}
	}
	return -1
}

// ParseRiskLevel принимает полную метку ("High Risk"), короткую ("High")
// или индекс класса ("2").
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch s {
	case string(RiskLow), "Low", "low", "0":
		return RiskLow, true
	case string(RiskMedium), "Medium", "medium", "1":
		return RiskMedium, true
	case string(RiskHigh), "High", "high", "2":
		return RiskHigh, true
	default:
		return "", false
	}
}

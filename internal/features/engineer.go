package features

import (
	"math"
	"strings"
)

// Пороги флагов риска.
const (
	LowAttendanceThreshold = 75.0
	LowGPAThreshold        = 5.0
	LowSubmissionThreshold = 70.0

	// DefaultWorkingDays — учебных дней в семестре, если в записи нет working_days.
	DefaultWorkingDays = 90.0
)

// Engineer дополняет запись производными признаками.
type Engineer struct {
	WorkingDays float64
}

// New создаёт Engineer с настройками по умолчанию.
func New() *Engineer {
	return &Engineer{WorkingDays: DefaultWorkingDays}
}

// Engineer возвращает копию fields с производными признаками.
// Исходная map не изменяется.
func (e *Engineer) Engineer(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+8)
	for k, v := range fields {
		out[k] = v
	}

	var flags []string
	setFlag := func(name string, value float64, ok bool) {
		if !ok {
			return
		}
		setDefault(out, name, value)
		flags = append(flags, name)
	}

	att, hasAtt := present(fields, "attendance_percentage")
	setFlag("flag_low_attendance", boolFloat(att < LowAttendanceThreshold), hasAtt)

	gpa, hasGPA := present(fields, "cumulative_gpa")
	setFlag("flag_low_gpa", boolFloat(gpa < LowGPAThreshold), hasGPA)

	fees, hasFees := present(fields, "fee_pending_count")
	setFlag("flag_fee_pending", boolFloat(fees > 0), hasFees)

	sub, hasSub := present(fields, "assignment_submission_rate")
	setFlag("flag_low_submission", boolFloat(sub < LowSubmissionThreshold), hasSub)

	if v, ok := fields["probation_status"]; ok && v != nil {
		if s, isStr := v.(string); isStr {
			setFlag("flag_probation", boolFloat(strings.EqualFold(strings.TrimSpace(s), "yes")), true)
		} else if f, isNum, _ := ToFloat(v); isNum {
			setFlag("flag_probation", boolFloat(f > 0), true)
		}
	}

	if len(flags) > 0 {
		var total float64
		for _, name := range flags {
			total += Number(out, name, 0)
		}
		setDefault(out, "total_risk_flags", total)
	}

	if se, ok := socialEngagement(fields); ok {
		setDefault(out, "social_engagement", se)
	}

	if hasAtt {
		days := Number(fields, "working_days", e.workingDays())
		setDefault(out, "status_attendance_present_days", math.Round(att*days/100))
	}

	return out
}

// EngineerAll применяет Engineer к каждой записи.
func (e *Engineer) EngineerAll(rows []map[string]any) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = e.Engineer(r)
	}
	return out
}

func (e *Engineer) workingDays() float64 {
	if e.WorkingDays <= 0 {
		return DefaultWorkingDays
	}
	return e.WorkingDays
}

// socialEngagement: 0.25 за каждую активность и каждую лидерскую роль,
// не больше 1. Без данных об активностях признак не строится.
func socialEngagement(fields map[string]any) (float64, bool) {
	activities, hasAct := present(fields, "extra_activities_count")
	leadership, hasLead := present(fields, "extra_leadership_roles")
	participates, hasPart := present(fields, "extra_participates")
	if !hasAct && !hasLead && !hasPart {
		return 0, false
	}
	if hasPart && participates == 0 && activities == 0 {
		return 0, true
	}
	if !hasAct && hasPart && participates > 0 {
		activities = 1
	}
	return math.Min(1, activities*0.25+leadership*0.25), true
}

func present(fields map[string]any, key string) (float64, bool) {
	v, ok := fields[key]
	if !ok {
		return 0, false
	}
	f, isNum, _ := ToFloat(v)
	return f, isNum
}

func setDefault(m map[string]any, key string, value float64) {
	if _, exists := m[key]; exists {
		return
	}
	m[key] = value
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

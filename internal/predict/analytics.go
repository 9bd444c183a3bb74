package predict

import (
	"sort"
	"strings"
	"unicode"

	"github.com/shaiso/Riskwatch/internal/features"
)

// NoneIdentified — значение списка аналитики, когда ничего не найдено.
const NoneIdentified = "None identified"

const maxAnalyticsItems = 5

// Analytics — профиль студента, не зависящий от модели.
type Analytics struct {
	LearningStyle string
	Strengths     []string
	Weaknesses    []string
	Interests     []string
}

var learningStyles = []struct {
	name  string
	field string
}{
	{"Visual", "learning_visual_score"},
	{"Reading/Writing", "learning_reading_score"},
	{"Kinesthetic", "learning_kinesthetic_score"},
	{"Auditory", "learning_auditory_score"},
}

var activityCategories = []string{"Technical", "Sports", "Cultural", "Social", "Academic"}

const subjectPrefix = "marks_subject_"

// BuildAnalytics строит профиль по записи после feature engineering
// (значения до масштабирования).
func BuildAnalytics(row map[string]any) Analytics {
	return Analytics{
		LearningStyle: learningStyle(row),
		Strengths:     orNone(capItems(strengths(row))),
		Weaknesses:    orNone(capItems(weaknesses(row))),
		Interests:     orNone(capItems(interests(row))),
	}
}

// learningStyle — стиль с максимальным баллом; при равенстве первый по порядку.
func learningStyle(row map[string]any) string {
	best := learningStyles[0].name
	bestScore := features.Number(row, learningStyles[0].field, 0)
	for _, ls := range learningStyles[1:] {
		if score := features.Number(row, ls.field, 0); score > bestScore {
			best, bestScore = ls.name, score
		}
	}
	return best
}

type subjectScore struct {
	name  string
	score float64
}

func strengths(row map[string]any) []string {
	var out []string

	var subjects []subjectScore
	for key, v := range row {
		if !strings.HasPrefix(key, subjectPrefix) {
			continue
		}
		score, ok, _ := features.ToFloat(v)
		if !ok {
			continue
		}
		subjects = append(subjects, subjectScore{name: subjectName(key), score: score})
	}
	// Сначала по имени для детерминизма, затем стабильно по баллу
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].name < subjects[j].name })
	sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].score > subjects[j].score })
	if len(subjects) > 3 {
		subjects = subjects[:3]
	}
	for _, s := range subjects {
		if s.score > 60 {
			out = append(out, s.name)
		}
	}

	if features.Number(row, "attendance_percentage", 0) >= 85 {
		out = append(out, "Excellent Attendance")
	}
	if features.Number(row, "assignment_submission_rate", 0) >= 90 {
		out = append(out, "Assignment Completion")
	}
	if features.Number(row, "extra_leadership_roles", 0) > 0 {
		out = append(out, "Leadership")
	}
	return out
}

func weaknesses(row map[string]any) []string {
	var out []string
	if features.Number(row, "attendance_percentage", 100) < 75 {
		out = append(out, "Low Attendance")
	}
	if features.Number(row, "assignment_submission_rate", 100) < 70 {
		out = append(out, "Assignment Delays")
	}
	if features.Number(row, "fee_pending_count", 0) > 0 {
		out = append(out, "Pending Fees")
	}
	if features.Number(row, "extra_participates", 1) == 0 {
		out = append(out, "No Extracurricular Activities")
	}
	return out
}

func interests(row map[string]any) []string {
	var out []string
	for _, cat := range activityCategories {
		if features.Number(row, "extra_category_"+cat, 0) > 0 {
			out = append(out, cat)
		}
	}
	if features.Number(row, "library_visits", 0) > 10 {
		out = append(out, "Reading/Research")
	}
	if features.Number(row, subjectPrefix+"computer_science", 0) > 75 {
		out = append(out, "Computer Science")
	}
	return out
}

// subjectName: "marks_subject_computer_science" → "Computer Science".
func subjectName(key string) string {
	return titleCase(strings.ReplaceAll(strings.TrimPrefix(key, subjectPrefix), "_", " "))
}

// titleCase делает заглавной первую букву каждого слова, остальные строчными.
// Словом считается непрерывная последовательность букв.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}

func capItems(items []string) []string {
	if len(items) > maxAnalyticsItems {
		return items[:maxAnalyticsItems]
	}
	return items
}

func orNone(items []string) []string {
	if len(items) == 0 {
		return []string{NoneIdentified}
	}
	return items
}

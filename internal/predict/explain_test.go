package predict

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shaiso/Riskwatch/internal/domain"
)

func TestTopContributions(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	contrib := []float64{0.1, -0.8, 0.3, 0, 0.05, -0.2, 0.4, 0.01}

	got := topContributions(names, values, contrib)
	if len(got) != maxExplanations {
		t.Fatalf("len = %d, want %d", len(got), maxExplanations)
	}

	var order []string
	for _, c := range got {
		order = append(order, c.Feature)
	}
	want := []string{"b", "g", "c", "f", "a", "e"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	if got[0].Impact != domain.ImpactDecreases || got[1].Impact != domain.ImpactIncreases {
		t.Errorf("impacts = %q, %q", got[0].Impact, got[1].Impact)
	}
	if got[0].Value != 2 {
		t.Errorf("Value = %v, want 2", got[0].Value)
	}
	// 0.8 / (0.8+0.4+0.3+0.2+0.1+0.05) * 100
	if got[0].ImportancePct != 43.2432 {
		t.Errorf("ImportancePct = %v, want 43.2432", got[0].ImportancePct)
	}
}

func TestTopContributions_ZeroIsDecrease(t *testing.T) {
	got := topContributions([]string{"x"}, []float64{0}, []float64{0})
	if got[0].Impact != domain.ImpactDecreases {
		t.Errorf("Impact = %q, want %q", got[0].Impact, domain.ImpactDecreases)
	}
	if got[0].ImportancePct != 0 {
		t.Errorf("ImportancePct = %v, want 0", got[0].ImportancePct)
	}
}

func TestNarrative(t *testing.T) {
	catalog := &Catalog{Features: map[string]FeatureInfo{
		"flag_low_attendance": {
			Label:         "Low Attendance Flag",
			Category:      "Engagement",
			Interventions: []string{"Call mentor", "Send reminders"},
		},
		"cumulative_gpa": {
			Label:         "Cumulative GPA 📉",
			Category:      "Academic",
			Interventions: []string{"Call mentor", "Tutoring", "Study plan", "Peer group", "Office hours"},
		},
	}}

	p := &domain.Prediction{
		DropoutRisk:    domain.RiskHigh,
		RiskConfidence: 87.5,
		ShapExplanations: []domain.FeatureContribution{
			{Feature: "cumulative_gpa", ImportancePct: 20},
			{Feature: "flag_low_attendance", ImportancePct: 50},
			{Feature: "mystery", ImportancePct: 10},
			{Feature: "ignored", ImportancePct: 5},
		},
	}

	statement, causes, actions := narrative(p, catalog)

	want := "Student is predicted as High Risk (confidence 87.5%). Key influencing factors include: " +
		"Low Attendance Flag (50.0%), Cumulative GPA  (20.0%), mystery (10.0%)."
	if statement != want {
		t.Errorf("statement =\n%q\nwant\n%q", statement, want)
	}
	if len(causes) != 3 || causes[2].Category != "Unknown" {
		t.Errorf("causes = %+v", causes)
	}
	wantActions := []string{"Call mentor", "Send reminders", "Tutoring", "Study plan", "Peer group"}
	if diff := cmp.Diff(wantActions, actions); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestNarrative_Empty(t *testing.T) {
	statement, causes, actions := narrative(&domain.Prediction{DropoutRisk: domain.RiskLow}, DefaultCatalog())
	if statement != NoExplanation || causes != nil || actions != nil {
		t.Errorf("narrative = %q, %v, %v", statement, causes, actions)
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100.0"},
		{87.5, "87.5"},
		{66.666667, "66.666667"},
		{0, "0.0"},
	}
	for _, tt := range tests {
		if got := formatPercent(tt.in); got != tt.want {
			t.Errorf("formatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{1.23456789, 6, 1.234568},
		{-0.0000004, 6, 0},
		{43.243243243, 4, 43.2432},
	}
	for _, tt := range tests {
		if got := round(tt.v, tt.places); got != tt.want {
			t.Errorf("round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	info, ok := c.Lookup("flag_low_attendance")
	if !ok {
		t.Fatal("flag_low_attendance not in default catalog")
	}
	if info.Category != "Engagement" || len(info.Interventions) == 0 {
		t.Errorf("info = %+v", info)
	}

	var nilCatalog *Catalog
	if _, ok := nilCatalog.Lookup("x"); ok {
		t.Error("nil catalog lookup returned ok")
	}
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte("features:\n  gpa:\n    label: GPA\n    category: Academic\n"))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	if info, _ := c.Lookup("gpa"); info.Label != "GPA" {
		t.Errorf("Label = %q", info.Label)
	}

	if _, err := ParseCatalog([]byte("features: [")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestAnalytics(t *testing.T) {
	row := map[string]any{
		"learning_visual_score":          3.0,
		"learning_kinesthetic_score":     8.0,
		"learning_auditory_score":        8.0,
		"marks_subject_math":             92.0,
		"marks_subject_computer_science": 81.0,
		"marks_subject_physics":          55.0,
		"marks_subject_history":          70.0,
		"attendance_percentage":          90.0,
		"assignment_submission_rate":     65.0,
		"fee_pending_count":              1.0,
		"extra_participates":             0.0,
		"extra_category_Sports":          1.0,
		"library_visits":                 12.0,
	}

	a := BuildAnalytics(row)
	if a.LearningStyle != "Kinesthetic" {
		t.Errorf("LearningStyle = %q, want Kinesthetic", a.LearningStyle)
	}
	if diff := cmp.Diff([]string{"Math", "Computer Science", "History", "Excellent Attendance"}, a.Strengths); diff != "" {
		t.Errorf("Strengths mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Assignment Delays", "Pending Fees", "No Extracurricular Activities"}, a.Weaknesses); diff != "" {
		t.Errorf("Weaknesses mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Sports", "Reading/Research", "Computer Science"}, a.Interests); diff != "" {
		t.Errorf("Interests mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalytics_Empty(t *testing.T) {
	a := BuildAnalytics(map[string]any{})
	if a.LearningStyle != "Visual" {
		t.Errorf("LearningStyle = %q, want Visual", a.LearningStyle)
	}
	for _, list := range [][]string{a.Strengths, a.Weaknesses, a.Interests} {
		if len(list) != 1 || list[0] != NoneIdentified {
			t.Errorf("list = %v, want [%s]", list, NoneIdentified)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"computer science": "Computer Science",
		"MATH":             "Math",
		"o'neil":           "O'Neil",
		"":                 "",
	}
	for in, want := range tests {
		if got := titleCase(in); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
	if !strings.EqualFold(subjectName("marks_subject_data_science"), "data science") {
		t.Errorf("subjectName = %q", subjectName("marks_subject_data_science"))
	}
}

package features

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToFloat(t *testing.T) {
	tests := []struct {
		name        string
		in          any
		want        float64
		wantOK      bool
		wantMissing bool
	}{
		{"nil", nil, 0, false, true},
		{"float", 2.5, 2.5, true, false},
		{"int", 3, 3, true, false},
		{"bool", true, 1, true, false},
		{"json number", json.Number("1.25"), 1.25, true, false},
		{"numeric string", " 80 ", 80, true, false},
		{"empty string", "", 0, false, true},
		{"nan string", "NaN", 0, false, true},
		{"text", "yes", 0, false, false},
		{"inf string", "inf", 0, false, false},
		{"signed infinity string", "+Infinity", 0, false, false},
		{"negative inf float", math.Inf(-1), 0, false, false},
		{"nan float", math.NaN(), 0, false, true},
		{"slice", []int{1}, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, missing := ToFloat(tt.in)
			if got != tt.want || ok != tt.wantOK || missing != tt.wantMissing {
				t.Errorf("ToFloat(%v) = %v, %v, %v; want %v, %v, %v",
					tt.in, got, ok, missing, tt.want, tt.wantOK, tt.wantMissing)
			}
		})
	}
}

func TestIsCategorical(t *testing.T) {
	if !IsCategorical("Engineering") {
		t.Error("IsCategorical(Engineering) = false")
	}
	for _, v := range []any{"12", "", 3.0, nil} {
		if IsCategorical(v) {
			t.Errorf("IsCategorical(%v) = true", v)
		}
	}
}

func TestEngineer(t *testing.T) {
	in := map[string]any{
		"attendance_percentage":      60.0,
		"cumulative_gpa":             "7.5",
		"fee_pending_count":          2.0,
		"assignment_submission_rate": 95.0,
		"probation_status":           "Yes",
		"extra_activities_count":     3.0,
		"extra_leadership_roles":     2.0,
	}

	out := New().Engineer(in)

	want := map[string]float64{
		"flag_low_attendance":            1,
		"flag_low_gpa":                   0,
		"flag_fee_pending":               1,
		"flag_low_submission":            0,
		"flag_probation":                 1,
		"total_risk_flags":               3,
		"social_engagement":              1,
		"status_attendance_present_days": 54,
	}
	for k, v := range want {
		if got := Number(out, k, -1); got != v {
			t.Errorf("%s = %v, want %v", k, got, v)
		}
	}
	if _, ok := in["flag_low_attendance"]; ok {
		t.Error("Engineer modified its input")
	}
}

func TestEngineer_KeepsExistingValues(t *testing.T) {
	out := New().Engineer(map[string]any{
		"attendance_percentage": 50.0,
		"flag_low_attendance":   0.0,
		"working_days":          100.0,
	})
	if got := Number(out, "flag_low_attendance", -1); got != 0 {
		t.Errorf("flag_low_attendance = %v, want existing 0", got)
	}
	if got := Number(out, "status_attendance_present_days", -1); got != 50 {
		t.Errorf("present days = %v, want 50", got)
	}
}

func TestEngineer_NoSourceColumns(t *testing.T) {
	out := New().Engineer(map[string]any{"dept": "cs"})
	for _, k := range []string{"flag_low_attendance", "total_risk_flags", "social_engagement", "status_attendance_present_days"} {
		if _, ok := out[k]; ok {
			t.Errorf("%s must not be derived without source columns", k)
		}
	}
}

func TestSocialEngagement(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   float64
	}{
		{"capped", map[string]any{"extra_activities_count": 4.0, "extra_leadership_roles": 2.0}, 1},
		{"partial", map[string]any{"extra_activities_count": 1.0}, 0.25},
		{"not participating", map[string]any{"extra_participates": 0.0}, 0},
		{"participates only", map[string]any{"extra_participates": 1.0}, 0.25},
	}
	for _, tt := range tests {
		got, ok := socialEngagement(tt.fields)
		if !ok || got != tt.want {
			t.Errorf("%s: socialEngagement = %v, %v; want %v", tt.name, got, ok, tt.want)
		}
	}
}

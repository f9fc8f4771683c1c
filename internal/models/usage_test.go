package models

import "testing"

func TestDisplayName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@corp.com", "Jane Doe"},
		{"JOHN@corp.com", "John"},
		{"mary_ann-smith@corp.com", "Mary Ann Smith"},
		{"@corp.com", "@corp.com"},
		{"élodie.durand@corp.com", "Élodie Durand"},
		{"øyvind@corp.com", "Øyvind"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := DisplayName(tt.email); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestUserSummary_GrowthOrZero(t *testing.T) {
	s := UserSummary{}
	if s.GrowthOrZero() != 0 {
		t.Error("nil growth should read as 0")
	}
	g := 12.5
	s.GrowthPct = &g
	if s.GrowthOrZero() != 12.5 {
		t.Errorf("GrowthOrZero() = %v, want 12.5", s.GrowthOrZero())
	}
}

func TestReport_Summary(t *testing.T) {
	r := Report{Summaries: []UserSummary{{Email: "a@x.com"}, {Email: "b@x.com", TotalLines: 3}}}
	s, ok := r.Summary("b@x.com")
	if !ok || s.TotalLines != 3 {
		t.Errorf("Summary(b) = %v, %v", s, ok)
	}
	if _, ok := r.Summary("c@x.com"); ok {
		t.Error("Summary(c) should not be found")
	}
}

package filename

import (
	"strings"
	"testing"
	"time"
)

func fixed() time.Time { return time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC) }

func TestResolve(t *testing.T) {
	r := Resolver{Prefix: DefaultPrefix, Extension: DefaultExtension, Now: fixed}
	tests := []struct {
		name    string
		title   string
		subject string
		want    string
	}{
		{"example", "Intro: Science/Math", "Physics", "lesson-plan-Intro- Science-Math-Physics-2024-01-15.pdf"},
		{"no subject", "Week 1", "", "lesson-plan-Week 1-2024-01-15.pdf"},
		{"all unsafe", `a/b\c?d%e*f:g|h"i<j>k`, "", "lesson-plan-a-b-c-d-e-f-g-h-i-j-k-2024-01-15.pdf"},
		{"subject sanitized", "Plan", "Math/Art", "lesson-plan-Plan-Math-Art-2024-01-15.pdf"},
		{"thai", "แผนการสอน", "วิทยาศาสตร์", "lesson-plan-แผนการสอน-วิทยาศาสตร์-2024-01-15.pdf"},
		{"padded title", " Unit 1 ", "", "lesson-plan- Unit 1 -2024-01-15.pdf"},
		{"empty title", "", "", "lesson-plan--2024-01-15.pdf"},
		{"empty title with subject", "", "Physics", "lesson-plan--Physics-2024-01-15.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.title, tt.subject); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.title, tt.subject, got, tt.want)
			}
		})
	}
}

func TestResolveTruncatesTitleOnly(t *testing.T) {
	r := Resolver{Prefix: DefaultPrefix, Now: fixed}
	title := strings.Repeat("ก", 80)
	subject := strings.Repeat("s", 60)
	got := r.Resolve(title, subject)
	want := "lesson-plan-" + strings.Repeat("ก", MaxTitleRunes) + "-" + subject + "-2024-01-15.pdf"
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveUsesUTCDate(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	r := Resolver{Prefix: "p", Now: func() time.Time { return time.Date(2024, 1, 16, 3, 0, 0, 0, bangkok) }}
	if got := r.Resolve("t", ""); got != "p-t-2024-01-15.pdf" {
		t.Errorf("Resolve() = %q", got)
	}
}

func TestEnsure(t *testing.T) {
	r := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"report", "report.pdf"},
		{"report.PDF", "report.PDF"},
		{"../../etc/passwd", "passwd.pdf"},
		{`C:\tmp\plan.pdf`, "plan.pdf"},
		{"a:b", "a-b.pdf"},
		{"", ""},
		{"..", ""},
	}
	for _, tt := range tests {
		if got := r.Ensure(tt.in); got != tt.want {
			t.Errorf("Ensure(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPick(t *testing.T) {
	r := Resolver{Prefix: DefaultPrefix, Now: fixed}
	if got := r.Pick("custom", "ignored", ""); got != "custom.pdf" {
		t.Errorf("Pick(name) = %q", got)
	}
	if got := r.Pick("", "Title", ""); got != "lesson-plan-Title-2024-01-15.pdf" {
		t.Errorf("Pick(title) = %q", got)
	}
	if got := r.Pick("", "", ""); got != Fallback {
		t.Errorf("Pick() = %q", got)
	}
	if got := r.Pick("", "  ", "Physics"); got != Fallback {
		t.Errorf("Pick(blank title) = %q", got)
	}
}

func TestPickFallbackExtension(t *testing.T) {
	r := Resolver{Prefix: DefaultPrefix, Extension: ".bin", Now: fixed}
	if got := r.Pick("", "", ""); got != "document.bin" {
		t.Errorf("Pick() = %q, want document.bin", got)
	}
	if got := r.Pick("plan", "", ""); got != "plan.bin" {
		t.Errorf("Pick(plan) = %q, want plan.bin", got)
	}
}

package tasks

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cjw/internal/storage"
)

var base = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func TestParseTomorrow(t *testing.T) {
	s := NewInputService(zerolog.Nop())
	p := s.Parse("buy milk tomorrow", base)
	if p.Content != "buy milk" {
		t.Fatalf("content=%q", p.Content)
	}
	if p.DueDate == nil || *p.DueDate != "2026-03-11" {
		t.Fatalf("due=%v", p.DueDate)
	}
	if p.ScheduledTime != nil {
		t.Fatalf("scheduled=%q, want none", *p.ScheduledTime)
	}

	in := BuildCreateInput(p, Overrides{})
	if in.Content != "buy milk" || in.DueDate == nil || *in.DueDate != "2026-03-11" {
		t.Fatalf("input=%+v", in)
	}
	if in.Status != "" || in.Duration != 0 {
		t.Fatalf("status and duration should be left to storage defaults: %+v", in)
	}
}

func TestParseMarkersAndDuration(t *testing.T) {
	s := NewInputService(zerolog.Nop())
	cases := []struct {
		raw       string
		content   string
		important bool
		urgent    bool
		duration  int
	}{
		{"write report !! 1h30m", "write report", true, true, 90},
		{"write report ! 45m", "write report", true, false, 45},
		{"write report urgent", "write report", false, true, 0},
		{"#important write report for 2h", "write report", true, false, 120},
		{"write report", "write report", false, false, 0},
		{"meet in 2h", "meet", false, false, 120},
		{"meet in 90m with bob", "meet with bob", false, false, 90},
	}
	for _, tc := range cases {
		p := s.Parse(tc.raw, base)
		if p.Content != tc.content || p.Important != tc.important || p.Urgent != tc.urgent {
			t.Fatalf("Parse(%q)=%+v", tc.raw, p)
		}
		got := 0
		if p.Duration != nil {
			got = *p.Duration
		}
		if got != tc.duration {
			t.Fatalf("Parse(%q) duration=%d, want %d", tc.raw, got, tc.duration)
		}
		if p.DueDate != nil {
			t.Fatalf("Parse(%q) unexpected due date %q", tc.raw, *p.DueDate)
		}
	}
}

func TestHasClock(t *testing.T) {
	for phrase, want := range map[string]bool{
		"tomorrow":         false,
		"next monday":      false,
		"tomorrow at 5pm":  true,
		"friday 9:30":      true,
		"today at noon":    true,
		"in 3 days":        false,
		"tomorrow 11 a.m.": true,
	} {
		if got := hasClock(phrase); got != want {
			t.Fatalf("hasClock(%q)=%v, want %v", phrase, got, want)
		}
	}
}

func TestBuildCreateInputOverridesWin(t *testing.T) {
	due := "2026-03-11"
	dur := 45
	p := Parsed{Content: "parsed", DueDate: &due, Duration: &dur, Important: true}

	content := "typed"
	otherDue := "2026-04-01"
	status := storage.StatusDoing
	no := false
	in := BuildCreateInput(p, Overrides{Content: &content, DueDate: &otherDue, Status: &status, Important: &no})

	if in.Content != "typed" || *in.DueDate != "2026-04-01" || in.Status != storage.StatusDoing {
		t.Fatalf("overrides lost: %+v", in)
	}
	if in.Important {
		t.Fatalf("explicit false override should win")
	}
	if in.Duration != 45 {
		t.Fatalf("parsed duration dropped: %d", in.Duration)
	}
}

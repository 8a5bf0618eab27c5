package storage

import (
	"errors"
	"testing"
)

func TestKeyResultProgress(t *testing.T) {
	cases := []struct {
		current, target, want float64
	}{
		{50, 100, 50},
		{10, 10, 100},
		{15, 10, 100},
		{-5, 10, 0},
		{5, 0, 0},
		{5, -1, 0},
	}
	for _, c := range cases {
		if got := KeyResultProgress(c.current, c.target); got != c.want {
			t.Fatalf("KeyResultProgress(%v,%v)=%v, want %v", c.current, c.target, got, c.want)
		}
	}
}

func TestPlanProgress(t *testing.T) {
	if got := PlanProgress(nil); got != 0 {
		t.Fatalf("PlanProgress(nil)=%v, want 0", got)
	}
	krs := []KeyResult{{Progress: 50}, {Progress: 100}}
	if got := PlanProgress(krs); got != 75 {
		t.Fatalf("PlanProgress=%v, want 75", got)
	}
}

func TestNormalizeTaskInputDefaults(t *testing.T) {
	in, err := NormalizeTaskInput(TaskInput{Content: "  buy milk "})
	if err != nil {
		t.Fatalf("NormalizeTaskInput: %v", err)
	}
	if in.Content != "buy milk" || in.Status != StatusInbox || in.Duration != DefaultDuration {
		t.Fatalf("unexpected defaults: %+v", in)
	}

	due := "2026-10-18"
	in, err = NormalizeTaskInput(TaskInput{Content: "x", DueDate: &due})
	if err != nil {
		t.Fatalf("NormalizeTaskInput: %v", err)
	}
	if in.Status != StatusTodo {
		t.Fatalf("status with due date=%s, want TODO", in.Status)
	}

	if _, err := NormalizeTaskInput(TaskInput{Content: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty content err=%v, want ErrValidation", err)
	}
	bad := "18/10/2026"
	if _, err := NormalizeTaskInput(TaskInput{Content: "x", DueDate: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad date err=%v, want ErrValidation", err)
	}
}

func TestMergeSettings(t *testing.T) {
	s := DefaultSettings()
	out, err := MergeSettings(s, map[string]any{
		"theme": map[string]any{"mode": "dark"},
		"data":  map[string]any{"trash_retention_days": 14},
	})
	if err != nil {
		t.Fatalf("MergeSettings: %v", err)
	}
	if out.Theme.Mode != "dark" {
		t.Fatalf("theme.mode=%q, want dark", out.Theme.Mode)
	}
	if out.Theme.AccentColor != s.Theme.AccentColor {
		t.Fatalf("sibling key changed: %q", out.Theme.AccentColor)
	}
	if out.Data.TrashRetentionDays != 14 {
		t.Fatalf("retention=%d, want 14", out.Data.TrashRetentionDays)
	}
	if out.Island != s.Island {
		t.Fatalf("untouched group changed")
	}

	if _, err := MergeSettings(s, map[string]any{"theme": map[string]any{"nope": 1}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown key err=%v, want ErrValidation", err)
	}
	if _, err := MergeSettings(s, map[string]any{"theme": "dark"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("group replace err=%v, want ErrValidation", err)
	}
	if _, err := MergeSettings(s, map[string]any{"island": map[string]any{"enabled": "yes"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("type mismatch err=%v, want ErrValidation", err)
	}
}

func TestPathPatchAndLookup(t *testing.T) {
	p, err := PathPatch("island.position", "bottom")
	if err != nil {
		t.Fatalf("PathPatch: %v", err)
	}
	out, err := MergeSettings(DefaultSettings(), p)
	if err != nil {
		t.Fatalf("MergeSettings: %v", err)
	}
	v, err := LookupSetting(out, "island.position")
	if err != nil {
		t.Fatalf("LookupSetting: %v", err)
	}
	if v != "bottom" {
		t.Fatalf("island.position=%v, want bottom", v)
	}
	if _, err := PathPatch("island..x", 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad path err=%v", err)
	}
}

package storage

import (
	"strings"
	"time"
)

// NormalizeTaskInput trims and validates in, filling defaults.
func NormalizeTaskInput(in TaskInput) (TaskInput, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return in, ValidationError{Field: "content", Reason: "required"}
	}
	if in.Duration == 0 {
		in.Duration = DefaultDuration
	}
	if in.Duration < 0 {
		return in, ValidationError{Field: "duration", Reason: "must be positive"}
	}
	if err := checkDate("due_date", in.DueDate); err != nil {
		return in, err
	}
	if err := checkTime("scheduled_time", in.ScheduledTime); err != nil {
		return in, err
	}
	if in.Status == "" {
		in.Status = StatusInbox
		if in.DueDate != nil {
			in.Status = StatusTodo
		}
	}
	if !in.Status.IsValid() {
		return in, ValidationError{Field: "status", Reason: string(in.Status)}
	}
	return in, nil
}

// ApplyTaskPatch applies p onto t in place. UpdatedAt is left to the caller.
func ApplyTaskPatch(t *Task, p TaskPatch) error {
	if p.Content != nil {
		c := strings.TrimSpace(*p.Content)
		if c == "" {
			return ValidationError{Field: "content", Reason: "required"}
		}
		t.Content = c
	}
	if p.Status != nil {
		if !p.Status.IsValid() {
			return ValidationError{Field: "status", Reason: string(*p.Status)}
		}
		t.Status = *p.Status
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		if err := checkDate("due_date", p.DueDate); err != nil {
			return err
		}
		t.DueDate = cloneString(p.DueDate)
	}
	if p.ClearScheduledTime {
		t.ScheduledTime = nil
	} else if p.ScheduledTime != nil {
		if err := checkTime("scheduled_time", p.ScheduledTime); err != nil {
			return err
		}
		t.ScheduledTime = cloneString(p.ScheduledTime)
	}
	if p.Duration != nil {
		if *p.Duration <= 0 {
			return ValidationError{Field: "duration", Reason: "must be positive"}
		}
		t.Duration = *p.Duration
	}
	if p.Important != nil {
		t.Important = *p.Important
	}
	if p.Urgent != nil {
		t.Urgent = *p.Urgent
	}
	return nil
}

func ApplyNotePatch(n *Note, p NotePatch) {
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.FolderID != nil {
		n.FolderID = *p.FolderID
	}
	if p.IsPinned != nil {
		n.IsPinned = *p.IsPinned
	}
}

// NormalizeNoteFolder maps empty and pseudo folders to FolderAll.
func NormalizeNoteFolder(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || id == FolderTrash {
		return FolderAll
	}
	return id
}

func NormalizePlanInput(in PlanInput) (PlanInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, ValidationError{Field: "title", Reason: "required"}
	}
	if in.Status == "" {
		in.Status = PlanActive
	}
	if in.Status != PlanActive && in.Status != PlanArchived {
		return in, ValidationError{Field: "status", Reason: string(in.Status)}
	}
	if err := checkDate("start_date", in.StartDate); err != nil {
		return in, err
	}
	if err := checkDate("end_date", in.EndDate); err != nil {
		return in, err
	}
	return in, nil
}

func ApplyPlanPatch(pl *Plan, p PlanPatch) error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return ValidationError{Field: "title", Reason: "required"}
		}
		pl.Title = t
	}
	if p.Description != nil {
		pl.Description = *p.Description
	}
	if p.Color != nil {
		pl.Color = *p.Color
	}
	if p.Status != nil {
		if *p.Status != PlanActive && *p.Status != PlanArchived {
			return ValidationError{Field: "status", Reason: string(*p.Status)}
		}
		pl.Status = *p.Status
	}
	if p.StartDate != nil {
		if err := checkDate("start_date", p.StartDate); err != nil {
			return err
		}
		pl.StartDate = cloneString(p.StartDate)
	}
	if p.EndDate != nil {
		if err := checkDate("end_date", p.EndDate); err != nil {
			return err
		}
		pl.EndDate = cloneString(p.EndDate)
	}
	return nil
}

func NormalizeKeyResultInput(in KeyResultInput) (KeyResultInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, ValidationError{Field: "title", Reason: "required"}
	}
	if in.TargetValue < 0 {
		return in, ValidationError{Field: "target_value", Reason: "must not be negative"}
	}
	return in, nil
}

// ApplyKeyResultPatch applies p and recomputes the key result's own progress.
func ApplyKeyResultPatch(kr *KeyResult, p KeyResultPatch) error {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		if t == "" {
			return ValidationError{Field: "title", Reason: "required"}
		}
		kr.Title = t
	}
	if p.TargetValue != nil {
		if *p.TargetValue < 0 {
			return ValidationError{Field: "target_value", Reason: "must not be negative"}
		}
		kr.TargetValue = *p.TargetValue
	}
	if p.CurrentValue != nil {
		kr.CurrentValue = *p.CurrentValue
	}
	if p.Unit != nil {
		kr.Unit = *p.Unit
	}
	kr.Progress = KeyResultProgress(kr.CurrentValue, kr.TargetValue)
	return nil
}

func checkDate(field string, v *string) error {
	if v == nil {
		return nil
	}
	if _, err := time.Parse(DateLayout, *v); err != nil {
		return ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return nil
}

func checkTime(field string, v *string) error {
	if v == nil {
		return nil
	}
	if _, err := time.Parse(TimeLayout, *v); err != nil {
		return ValidationError{Field: field, Reason: "expected HH:MM"}
	}
	return nil
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// CloneTask returns a deep copy of t.
func CloneTask(t Task) Task {
	t.DueDate = cloneString(t.DueDate)
	t.ScheduledTime = cloneString(t.ScheduledTime)
	return t
}

func ClonePlan(p Plan) Plan {
	p.StartDate = cloneString(p.StartDate)
	p.EndDate = cloneString(p.EndDate)
	return p
}

func CloneNote(n Note) Note {
	if n.TrashedAt != nil {
		t := *n.TrashedAt
		n.TrashedAt = &t
	}
	return n
}

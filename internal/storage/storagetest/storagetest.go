// Package storagetest holds the behavior suite every storage backend must pass.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"cjw/internal/storage"
)

// Run exercises b's repositories. newBackend must return an empty backend.
func Run(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b storage.Backend)
	}{
		{"TaskCreateDefaults", testTaskCreateDefaults},
		{"TaskEmptyPatch", testTaskEmptyPatch},
		{"TaskSparsePatch", testTaskSparsePatch},
		{"TaskDeleteTwice", testTaskDeleteTwice},
		{"TaskQueries", testTaskQueries},
		{"NoteTrashAndRestore", testNoteTrashAndRestore},
		{"NotePurge", testNotePurge},
		{"FolderDeleteCascade", testFolderDeleteCascade},
		{"PlanProgressScenario", testPlanProgressScenario},
		{"PlanProgressOnUpdateAndDelete", testPlanProgressOnUpdateAndDelete},
		{"PlanDeleteCascade", testPlanDeleteCascade},
		{"PlanImagesOrder", testPlanImagesOrder},
		{"Settings", testSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackend(t)
			t.Cleanup(func() { _ = b.Close() })
			tt.fn(t, b)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func mustCreateTask(t *testing.T, b storage.Backend, in storage.TaskInput) *storage.Task {
	t.Helper()
	task, err := b.Tasks().Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func testTaskCreateDefaults(t *testing.T, b storage.Backend) {
	task := mustCreateTask(t, b, storage.TaskInput{Content: "buy milk"})
	if task.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}
	if task.Status != storage.StatusInbox {
		t.Fatalf("status=%s, want INBOX", task.Status)
	}
	if task.DueDate != nil {
		t.Fatalf("due_date=%v, want nil", *task.DueDate)
	}
	if task.Duration != storage.DefaultDuration {
		t.Fatalf("duration=%d, want %d", task.Duration, storage.DefaultDuration)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", task)
	}

	got, err := b.Tasks().GetByID(context.Background(), task.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v, %v", got, err)
	}
	if got.Content != "buy milk" {
		t.Fatalf("content=%q", got.Content)
	}

	second := mustCreateTask(t, b, storage.TaskInput{Content: "next"})
	if second.ID <= task.ID {
		t.Fatalf("ids not increasing: %d then %d", task.ID, second.ID)
	}

	if _, err := b.Tasks().Create(context.Background(), storage.TaskInput{Content: " "}); !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("empty content err=%v, want ErrValidation", err)
	}
}

func testTaskEmptyPatch(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	task := mustCreateTask(t, b, storage.TaskInput{
		Content:       "write report",
		DueDate:       ptr("2026-10-20"),
		ScheduledTime: ptr("09:30"),
		Duration:      45,
		Important:     true,
	})
	time.Sleep(2 * time.Millisecond)

	got, err := b.Tasks().Update(ctx, task.ID, storage.TaskPatch{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.UpdatedAt.After(task.UpdatedAt) {
		t.Fatalf("updated_at not refreshed: %v -> %v", task.UpdatedAt, got.UpdatedAt)
	}
	want := *task
	want.UpdatedAt = got.UpdatedAt
	if !sameTask(*got, want) {
		t.Fatalf("empty patch changed the task:\n got %+v\nwant %+v", *got, want)
	}

	if _, err := b.Tasks().Update(ctx, 9999, storage.TaskPatch{}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update missing err=%v, want ErrNotFound", err)
	}
}

func testTaskSparsePatch(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	task := mustCreateTask(t, b, storage.TaskInput{Content: "call mom", DueDate: ptr("2026-10-18"), Urgent: true})

	got, err := b.Tasks().Update(ctx, task.ID, storage.TaskPatch{Content: ptr("call dad")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Content != "call dad" || got.DueDate == nil || *got.DueDate != "2026-10-18" || !got.Urgent {
		t.Fatalf("sparse patch touched other fields: %+v", got)
	}

	got, err = b.Tasks().Update(ctx, task.ID, storage.TaskPatch{ClearDueDate: true, Duration: ptr(60)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.DueDate != nil || got.Duration != 60 {
		t.Fatalf("clear due date / duration: %+v", got)
	}

	if _, err := b.Tasks().Update(ctx, task.ID, storage.TaskPatch{Status: ptr(storage.TaskStatus("LATER"))}); !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("bad status err=%v, want ErrValidation", err)
	}
}

func testTaskDeleteTwice(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	task := mustCreateTask(t, b, storage.TaskInput{Content: "temp"})
	if err := b.Tasks().Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.Tasks().Delete(ctx, task.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second Delete err=%v, want ErrNotFound", err)
	}
	got, err := b.Tasks().GetByID(ctx, task.ID)
	if err != nil || got != nil {
		t.Fatalf("GetByID after delete: %v, %v", got, err)
	}
}

func testTaskQueries(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	a := mustCreateTask(t, b, storage.TaskInput{Content: "a", DueDate: ptr("2026-10-17")})
	mustCreateTask(t, b, storage.TaskInput{Content: "b", DueDate: ptr("2026-10-18")})
	c := mustCreateTask(t, b, storage.TaskInput{Content: "c", Status: storage.StatusDoing})
	d := mustCreateTask(t, b, storage.TaskInput{Content: "d", Status: storage.StatusDoing})

	doing, err := b.Tasks().GetByStatus(ctx, storage.StatusDoing)
	if err != nil {
		t.Fatalf("GetByStatus: %v", err)
	}
	if len(doing) != 2 || doing[0].ID != d.ID || doing[1].ID != c.ID {
		t.Fatalf("GetByStatus(DOING) = %+v, want [d c]", doing)
	}
	n, err := b.Tasks().CountByStatus(ctx, storage.StatusDoing)
	if err != nil || n != 2 {
		t.Fatalf("CountByStatus=%d, %v; want 2", n, err)
	}

	today, err := b.Tasks().GetByDueDate(ctx, "2026-10-17")
	if err != nil {
		t.Fatalf("GetByDueDate: %v", err)
	}
	if len(today) != 1 || today[0].ID != a.ID {
		t.Fatalf("GetByDueDate = %+v", today)
	}

	all, err := b.Tasks().GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 4 || all[0].ID != d.ID || all[3].ID != a.ID {
		t.Fatalf("GetAll not newest first: %+v", all)
	}
}

func ids(notes []storage.Note) []int64 {
	out := make([]int64, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.ID)
	}
	return out
}

func contains(list []int64, id int64) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func testNoteTrashAndRestore(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	folder, err := b.Folders().Create(ctx, storage.FolderInput{Name: "Work"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if folder.ID == "" || folder.Type != storage.FolderUser {
		t.Fatalf("folder = %+v", folder)
	}
	note, err := b.Notes().Create(ctx, storage.NoteInput{Content: "<p>hi</p>", FolderID: folder.ID})
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if note.State != storage.NoteActive {
		t.Fatalf("state=%s", note.State)
	}

	if err := b.Notes().Delete(ctx, note.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	all, _ := b.Notes().GetByFolder(ctx, storage.FolderAll)
	trash, _ := b.Notes().GetByFolder(ctx, storage.FolderTrash)
	inFolder, _ := b.Notes().GetByFolder(ctx, folder.ID)
	if contains(ids(all), note.ID) || contains(ids(inFolder), note.ID) {
		t.Fatalf("trashed note still listed: all=%v folder=%v", ids(all), ids(inFolder))
	}
	if !contains(ids(trash), note.ID) {
		t.Fatalf("trashed note missing from trash: %v", ids(trash))
	}
	if err := b.Notes().Delete(ctx, note.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second Delete err=%v, want ErrNotFound", err)
	}

	restored, err := b.Notes().Restore(ctx, note.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.FolderID != folder.ID || restored.State != storage.NoteActive || restored.TrashedAt != nil {
		t.Fatalf("restored = %+v", restored)
	}
	trash, _ = b.Notes().GetByFolder(ctx, storage.FolderTrash)
	inFolder, _ = b.Notes().GetByFolder(ctx, folder.ID)
	if contains(ids(trash), note.ID) || !contains(ids(inFolder), note.ID) {
		t.Fatalf("after restore trash=%v folder=%v", ids(trash), ids(inFolder))
	}

	if _, err := b.Notes().Restore(ctx, note.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("restore active err=%v, want ErrNotFound", err)
	}
	if _, err := b.Notes().Create(ctx, storage.NoteInput{FolderID: "missing"}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown folder err=%v, want ErrNotFound", err)
	}
}

func testNotePurge(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	keep, _ := b.Notes().Create(ctx, storage.NoteInput{Content: "keep"})
	old, _ := b.Notes().Create(ctx, storage.NoteInput{Content: "old"})
	if err := b.Notes().Delete(ctx, old.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	n, err := b.Notes().PurgeTrashedBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("purge with past cutoff = %d, %v; want 0", n, err)
	}
	n, err = b.Notes().PurgeTrashedBefore(ctx, time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("purge with future cutoff = %d, %v; want 1", n, err)
	}
	if got, _ := b.Notes().GetByID(ctx, old.ID); got != nil {
		t.Fatalf("purged note still present")
	}
	if got, _ := b.Notes().GetByID(ctx, keep.ID); got == nil {
		t.Fatalf("active note purged")
	}
	if err := b.Notes().DeletePermanently(ctx, keep.ID); err != nil {
		t.Fatalf("DeletePermanently: %v", err)
	}
	if err := b.Notes().DeletePermanently(ctx, keep.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second DeletePermanently err=%v", err)
	}
}

func testFolderDeleteCascade(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	f, err := b.Folders().Create(ctx, storage.FolderInput{ID: "ideas", Name: "Ideas", Icon: "bulb"})
	if err != nil {
		t.Fatalf("create folder: %v", err)
	}
	if _, err := b.Folders().Create(ctx, storage.FolderInput{ID: "ideas", Name: "Dup"}); !errors.Is(err, storage.ErrConstraintViolation) {
		t.Fatalf("duplicate folder err=%v", err)
	}
	note, _ := b.Notes().Create(ctx, storage.NoteInput{Content: "x", FolderID: f.ID})

	if err := b.Folders().Delete(ctx, f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := b.Notes().GetByID(ctx, note.ID)
	if got == nil || got.FolderID != storage.FolderAll {
		t.Fatalf("note not reassigned: %+v", got)
	}
	if err := b.Folders().Delete(ctx, storage.FolderTrash); !errors.Is(err, storage.ErrConstraintViolation) {
		t.Fatalf("delete system folder err=%v, want ErrConstraintViolation", err)
	}
	if err := b.Folders().Delete(ctx, f.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete twice err=%v, want ErrNotFound", err)
	}
	folders, _ := b.Folders().GetAll(ctx)
	if len(folders) != len(storage.SystemFolders) {
		t.Fatalf("folders = %+v", folders)
	}
}

func planProgress(t *testing.T, b storage.Backend, id int64) float64 {
	t.Helper()
	p, err := b.Plans().GetByID(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("get plan: %v, %v", p, err)
	}
	return p.Progress
}

func testPlanProgressScenario(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	plan, err := b.Plans().Create(ctx, storage.PlanInput{Title: "Q4", Color: "#f00"})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan.Progress != 0 || plan.Status != storage.PlanActive {
		t.Fatalf("new plan = %+v", plan)
	}

	kr1, err := b.Plans().CreateKeyResult(ctx, storage.KeyResultInput{PlanID: plan.ID, Title: "read", TargetValue: 100, CurrentValue: 50})
	if err != nil {
		t.Fatalf("create kr: %v", err)
	}
	if kr1.Progress != 50 {
		t.Fatalf("kr1 progress=%v", kr1.Progress)
	}
	if got := planProgress(t, b, plan.ID); got != 50 {
		t.Fatalf("plan progress=%v, want 50", got)
	}

	kr2, err := b.Plans().CreateKeyResult(ctx, storage.KeyResultInput{PlanID: plan.ID, Title: "run", TargetValue: 10, CurrentValue: 10})
	if err != nil {
		t.Fatalf("create kr: %v", err)
	}
	if kr2.Progress != 100 {
		t.Fatalf("kr2 progress=%v", kr2.Progress)
	}
	if got := planProgress(t, b, plan.ID); got != 75 {
		t.Fatalf("plan progress=%v, want 75", got)
	}

	if _, err := b.Plans().CreateKeyResult(ctx, storage.KeyResultInput{PlanID: 9999, Title: "x", TargetValue: 1}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("kr for missing plan err=%v", err)
	}
}

func testPlanProgressOnUpdateAndDelete(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	plan, _ := b.Plans().Create(ctx, storage.PlanInput{Title: "Fitness"})
	kr1, _ := b.Plans().CreateKeyResult(ctx, storage.KeyResultInput{PlanID: plan.ID, Title: "a", TargetValue: 100, CurrentValue: 50})
	kr2, _ := b.Plans().CreateKeyResult(ctx, storage.KeyResultInput{PlanID: plan.ID, Title: "b", TargetValue: 10, CurrentValue: 10})

	// Raising the target lowers the key result's own progress first.
	got, err := b.Plans().UpdateKeyResult(ctx, kr2.ID, storage.KeyResultPatch{TargetValue: ptr(20.0)})
	if err != nil {
		t.Fatalf("UpdateKeyResult: %v", err)
	}
	if got.Progress != 50 {
		t.Fatalf("kr2 progress=%v, want 50", got.Progress)
	}
	if p := planProgress(t, b, plan.ID); p != 50 {
		t.Fatalf("plan progress=%v, want 50", p)
	}

	if _, err := b.Plans().UpdateKeyResult(ctx, kr1.ID, storage.KeyResultPatch{CurrentValue: ptr(150.0)}); err != nil {
		t.Fatalf("UpdateKeyResult: %v", err)
	}
	if p := planProgress(t, b, plan.ID); p != 75 {
		t.Fatalf("plan progress=%v, want 75", p)
	}

	if err := b.Plans().DeleteKeyResult(ctx, kr1.ID); err != nil {
		t.Fatalf("DeleteKeyResult: %v", err)
	}
	if p := planProgress(t, b, plan.ID); p != 50 {
		t.Fatalf("plan progress=%v, want 50", p)
	}
	if err := b.Plans().DeleteKeyResult(ctx, kr2.ID); err != nil {
		t.Fatalf("DeleteKeyResult: %v", err)
	}
	if p := planProgress(t, b, plan.ID); p != 0 {
		t.Fatalf("plan progress=%v, want 0", p)
	}
	if err := b.Plans().DeleteKeyResult(ctx, kr2.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete twice err=%v", err)
	}

	v, err := b.Plans().RecalculatePlanProgress(ctx, plan.ID)
	if err != nil || v != 0 {
		t.Fatalf("RecalculatePlanProgress = %v, %v", v, err)
	}
	if _, err := b.Plans().RecalculatePlanProgress(ctx, 9999); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("recalculate missing err=%v", err)
	}
}

func testPlanDeleteCascade(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	active, _ := b.Plans().Create(ctx, storage.PlanInput{Title: "Active"})
	archived, _ := b.Plans().Create(ctx, storage.PlanInput{Title: "Old", Status: storage.PlanArchived})
	kr, _ := b.Plans().CreateKeyResult(ctx, storage.KeyResultInput{PlanID: archived.ID, Title: "x", TargetValue: 1})

	list, err := b.Plans().GetActive(ctx)
	if err != nil || len(list) != 1 || list[0].ID != active.ID {
		t.Fatalf("GetActive = %+v, %v", list, err)
	}

	if err := b.Plans().Delete(ctx, archived.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := b.Plans().GetKeyResult(ctx, kr.ID); got != nil {
		t.Fatalf("key result survived plan delete")
	}
	if err := b.Plans().Delete(ctx, archived.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete twice err=%v", err)
	}
}

func testPlanImagesOrder(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	a, _ := b.PlanImages().Create(ctx, storage.PlanImageInput{Title: "a", ImagePath: "/tmp/a.png"})
	c, _ := b.PlanImages().Create(ctx, storage.PlanImageInput{Title: "c", ImagePath: "/tmp/c.png"})
	if a.SortOrder != 0 || c.SortOrder != 1 {
		t.Fatalf("sort orders %d %d", a.SortOrder, c.SortOrder)
	}
	if err := b.PlanImages().Reorder(ctx, []int64{c.ID, a.ID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	list, _ := b.PlanImages().GetAll(ctx)
	if len(list) != 2 || list[0].ID != c.ID || list[1].ID != a.ID {
		t.Fatalf("after reorder %+v", list)
	}
	if err := b.PlanImages().Reorder(ctx, []int64{9999}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("reorder missing err=%v", err)
	}
	if err := b.PlanImages().Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := b.PlanImages().Delete(ctx, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("delete twice err=%v", err)
	}
}

func testSettings(t *testing.T, b storage.Backend) {
	ctx := context.Background()
	s, err := b.Settings().Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s != storage.DefaultSettings() {
		t.Fatalf("fresh settings differ from defaults: %+v", s)
	}
	s, err = b.Settings().Set(ctx, "theme.mode", "dark")
	if err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Theme.Mode != "dark" {
		t.Fatalf("theme.mode=%q", s.Theme.Mode)
	}
	s, err = b.Settings().Update(ctx, map[string]any{"island": map[string]any{"auto_hide": true}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := b.Settings().Get(ctx)
	if got.Theme.Mode != "dark" || !got.Island.AutoHide || got != s {
		t.Fatalf("persisted settings = %+v", got)
	}
	if _, err := b.Settings().Set(ctx, "theme.nope", 1); !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("bad path err=%v", err)
	}
	if err := b.Settings().Replace(ctx, storage.DefaultSettings()); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got, _ := b.Settings().Get(ctx); got != storage.DefaultSettings() {
		t.Fatalf("Replace not persisted")
	}
}

func sameTask(a, b storage.Task) bool {
	eq := func(x, y *string) bool {
		if x == nil || y == nil {
			return x == y
		}
		return *x == *y
	}
	return a.ID == b.ID && a.Content == b.Content && a.Status == b.Status &&
		eq(a.DueDate, b.DueDate) && eq(a.ScheduledTime, b.ScheduledTime) &&
		a.Duration == b.Duration && a.Important == b.Important && a.Urgent == b.Urgent &&
		a.CreatedAt.Equal(b.CreatedAt) && a.UpdatedAt.Equal(b.UpdatedAt)
}

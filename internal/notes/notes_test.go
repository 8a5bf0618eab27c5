package notes

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cjw/internal/query"
	"cjw/internal/storage"
	"cjw/internal/storage/memory"
)

type brokenNotes struct {
	storage.NoteRepository
}

func (brokenNotes) Delete(ctx context.Context, id int64) error { return errors.New("locked") }

func newService(t *testing.T) (*Service, storage.Backend) {
	t.Helper()
	b := memory.New()
	return NewService(b.Notes(), b.Folders(), b.Settings(), query.NewClient(zerolog.Nop()), zerolog.Nop()), b
}

func create(t *testing.T, s *Service, content, folder string) *storage.Note {
	t.Helper()
	n, err := s.Create(context.Background(), storage.NoteInput{Content: content, FolderID: folder})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return n
}

func ids(notes []storage.Note) []int64 {
	out := make([]int64, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.ID)
	}
	return out
}

func TestTrashAndRestore(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	work, err := s.CreateFolder(ctx, storage.FolderInput{Name: "Work"})
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	n := create(t, s, "meeting notes", work.ID)

	if _, err := s.List(ctx, work.ID); err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := s.Trash(ctx, work.ID, n.ID); err != nil {
		t.Fatalf("Trash: %v", err)
	}
	list, _ := s.List(ctx, work.ID)
	if len(list) != 0 {
		t.Fatalf("trashed note still listed: %v", ids(list))
	}
	trash, _ := s.List(ctx, storage.FolderTrash)
	if !reflect.DeepEqual(ids(trash), []int64{n.ID}) {
		t.Fatalf("trash=%v", ids(trash))
	}

	restored, err := s.Restore(ctx, n.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.FolderID != work.ID {
		t.Fatalf("restored into %q, want %q", restored.FolderID, work.ID)
	}
	list, _ = s.List(ctx, work.ID)
	if len(list) != 1 {
		t.Fatalf("restored note missing from folder")
	}
}

func TestRestoreAfterFolderDeleted(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	f, _ := s.CreateFolder(ctx, storage.FolderInput{Name: "Tmp"})
	n := create(t, s, "x", f.ID)
	if err := s.Trash(ctx, f.ID, n.ID); err != nil {
		t.Fatalf("Trash: %v", err)
	}
	if err := s.DeleteFolder(ctx, f.ID); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	restored, err := s.Restore(ctx, n.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.FolderID != storage.FolderAll {
		t.Fatalf("folder=%q, want %q", restored.FolderID, storage.FolderAll)
	}
}

func TestTrashRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	b := memory.New()
	cache := query.NewClient(zerolog.Nop())
	s := NewService(brokenNotes{b.Notes()}, b.Folders(), b.Settings(), cache, zerolog.Nop())
	n := create(t, s, "keep me", "")

	before, err := s.List(ctx, storage.FolderAll)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if err := s.Trash(ctx, storage.FolderAll, n.ID); err == nil {
		t.Fatalf("expected error")
	}
	after, ok := query.Get[[]storage.Note](cache, ListKey(storage.FolderAll))
	if !ok || !reflect.DeepEqual(after, before) {
		t.Fatalf("listing not restored: %v", after)
	}
}

func TestTogglePinReorders(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	first := create(t, s, "first", "")
	time.Sleep(2 * time.Millisecond)
	second := create(t, s, "second", "")

	list, _ := s.List(ctx, storage.FolderAll)
	if !reflect.DeepEqual(ids(list), []int64{second.ID, first.ID}) {
		t.Fatalf("initial order=%v", ids(list))
	}
	n, err := s.TogglePin(ctx, storage.FolderAll, first.ID)
	if err != nil || !n.IsPinned {
		t.Fatalf("TogglePin: %v %v", n, err)
	}
	list, _ = s.List(ctx, storage.FolderAll)
	if !reflect.DeepEqual(ids(list), []int64{first.ID, second.ID}) {
		t.Fatalf("pinned order=%v", ids(list))
	}
}

func TestSweepTrashUsesRetention(t *testing.T) {
	ctx := context.Background()
	s, b := newService(t)
	n := create(t, s, "old", "")
	if err := s.Trash(ctx, storage.FolderAll, n.ID); err != nil {
		t.Fatalf("Trash: %v", err)
	}

	purged, err := s.SweepTrash(ctx, time.Now().AddDate(0, 0, 6))
	if err != nil || purged != 0 {
		t.Fatalf("within retention: purged=%d err=%v", purged, err)
	}

	if _, err := b.Settings().Set(ctx, "data.trash_retention_days", 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	purged, err = s.SweepTrash(ctx, time.Now().AddDate(0, 0, 2))
	if err != nil || purged != 1 {
		t.Fatalf("past retention: purged=%d err=%v", purged, err)
	}
	trash, _ := s.List(ctx, storage.FolderTrash)
	if len(trash) != 0 {
		t.Fatalf("trash not empty: %v", ids(trash))
	}
}

func TestDeletePermanently(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	n := create(t, s, "gone", "")
	if err := s.DeletePermanently(ctx, n.ID); err != nil {
		t.Fatalf("DeletePermanently: %v", err)
	}
	if _, err := s.Get(ctx, n.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

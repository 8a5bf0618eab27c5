package planimages

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"cjw/internal/storage"
	"cjw/internal/storage/memory"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return New(memory.New().PlanImages(), t.TempDir(), zerolog.Nop())
}

func TestAddReadRemove(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	payload := []byte("\x89PNG fake")

	img, err := s.Add(ctx, "roadmap", ".PNG", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if filepath.Dir(img.ImagePath) != s.Dir() || !strings.HasSuffix(img.ImagePath, ".png") {
		t.Fatalf("unexpected path %q", img.ImagePath)
	}

	got, err := s.Read(ctx, img.ID)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("Read=%q err=%v", got, err)
	}

	if err := s.Remove(ctx, img.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(img.ImagePath); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	if _, err := s.Read(ctx, img.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Read after remove: %v", err)
	}
}

func TestAddRejectsUnknownType(t *testing.T) {
	s := newStore(t)
	_, err := s.Add(context.Background(), "x", ".exe", strings.NewReader("MZ"))
	if !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("err=%v", err)
	}
	entries, _ := os.ReadDir(s.Dir())
	if len(entries) != 0 {
		t.Fatalf("rejected upload left files behind")
	}
}

func TestAddFileAndReorder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	src := filepath.Join(t.TempDir(), "q3-goals.jpg")
	if err := os.WriteFile(src, []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	a, err := s.AddFile(ctx, "", src)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if a.Title != "q3-goals" {
		t.Fatalf("title=%q", a.Title)
	}
	b, err := s.AddFile(ctx, "second", src)
	if err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if a.ImagePath == b.ImagePath {
		t.Fatalf("two uploads share a file")
	}

	if err := s.Reorder(ctx, []int64{b.ID, a.ID}); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	list, _ := s.List(ctx)
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("order=%v", list)
	}
}

package backend

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
)

// blockedPath returns a db path whose parent is a regular file.
func blockedPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	return filepath.Join(file, "cjw.db")
}

func TestOpenAutoUsesSQLite(t *testing.T) {
	b, err := Open(context.Background(), Options{Kind: KindAuto, DBPath: filepath.Join(t.TempDir(), "cjw.db"), Logger: zerolog.Nop()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	if b.Name() != "sqlite" {
		t.Fatalf("backend=%s, want sqlite", b.Name())
	}
}

func TestOpenAutoFallsBackToMemory(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	b, err := Open(context.Background(), Options{Kind: KindAuto, DBPath: blockedPath(t), Logger: log})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if b.Name() != "memory" {
		t.Fatalf("backend=%s, want memory", b.Name())
	}
	if !strings.Contains(buf.String(), `"level":"warn"`) {
		t.Fatalf("expected a warning log, got %q", buf.String())
	}
}

func TestOpenSQLiteFailureIsUnavailable(t *testing.T) {
	_, err := Open(context.Background(), Options{Kind: KindSQLite, DBPath: blockedPath(t), Logger: zerolog.Nop()})
	if !errors.Is(err, storage.ErrStorageUnavailable) {
		t.Fatalf("err=%v, want ErrStorageUnavailable", err)
	}
}

func TestSelectorCachesChoice(t *testing.T) {
	sel := NewSelector(Options{Kind: KindMemory, Logger: zerolog.Nop()})
	ctx := context.Background()
	a, err := sel.Backend(ctx)
	if err != nil {
		t.Fatalf("Backend: %v", err)
	}
	if _, err := a.Tasks().Create(ctx, storage.TaskInput{Content: "kept"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _ := sel.Backend(ctx)
	if a != b {
		t.Fatalf("selector returned a different backend")
	}
	all, _ := b.Tasks().GetAll(ctx)
	if len(all) != 1 {
		t.Fatalf("state lost across calls: %d tasks", len(all))
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindAuto, "auto": KindAuto, "sqlite": KindSQLite, "memory": KindMemory} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q)=%q,%v", in, got, err)
		}
	}
	if _, err := ParseKind("postgres"); !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("ParseKind(postgres) err=%v", err)
	}
}

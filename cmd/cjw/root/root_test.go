package root

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cjw/internal/storage"
)

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	return &cli{t: t, dir: t.TempDir()}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(c.dir, "config.toml"),
		"--env-file", filepath.Join(c.dir, "missing.env"),
		"--backend", "sqlite",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("cjw %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestTaskCommands(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("add", "write", "report", "!!", "--due", "2026-03-11")
	if !strings.Contains(out, "#1 write report") || !strings.Contains(out, "TODO") {
		t.Fatalf("add output: %q", out)
	}
	c.mustRun("add", "plan", "sprint", "--status", "doing")

	out = c.mustRun("list", "--status", "doing")
	if !strings.Contains(out, "plan sprint") || strings.Contains(out, "write report") {
		t.Fatalf("list output: %q", out)
	}

	out = c.mustRun("toggle", "1")
	if !strings.Contains(out, "DONE") {
		t.Fatalf("toggle output: %q", out)
	}
	c.mustRun("edit", "1", "--content", "write final report", "--clear-due")
	out = c.mustRun("list")
	if !strings.Contains(out, "write final report") {
		t.Fatalf("edit not persisted: %q", out)
	}

	c.mustRun("rm", "2")
	if _, err := c.run("rm", "2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second rm err=%v", err)
	}
}

func TestMoveRespectsDoingLimit(t *testing.T) {
	c := newCLI(t)
	for i := 0; i < 3; i++ {
		c.mustRun("add", "busy", "--status", "DOING")
	}
	c.mustRun("add", "waiting")
	_, err := c.run("move", "4", "doing")
	if !errors.Is(err, storage.ErrConstraintViolation) {
		t.Fatalf("err=%v, want constraint violation", err)
	}
	if _, err := c.run("move", "4", "later"); !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("err=%v, want validation", err)
	}
}

func TestPlanProgressCommands(t *testing.T) {
	c := newCLI(t)
	c.mustRun("plan", "add", "Q3")
	c.mustRun("kr", "add", "1", "users", "--target", "100", "--current", "50")
	out := c.mustRun("kr", "add", "1", "revenue", "--target", "10", "--current", "10")
	if !strings.Contains(out, "75%") {
		t.Fatalf("plan progress not reported: %q", out)
	}
	out = c.mustRun("kr", "rm", "2")
	if !strings.Contains(out, "50%") {
		t.Fatalf("progress after delete: %q", out)
	}
}

func TestNotesAndSettings(t *testing.T) {
	c := newCLI(t)
	c.mustRun("folder", "add", "Work", "--id", "work")
	c.mustRun("note", "add", "agenda", "-f", "work")
	c.mustRun("note", "trash", "1")
	out := c.mustRun("note", "list", "-f", "trash")
	if !strings.Contains(out, "agenda") {
		t.Fatalf("trash listing: %q", out)
	}
	c.mustRun("note", "restore", "1")
	out = c.mustRun("note", "list", "-f", "work")
	if !strings.Contains(out, "agenda") {
		t.Fatalf("restored note missing: %q", out)
	}

	c.mustRun("settings", "set", "data.trash_retention_days", "14")
	out = c.mustRun("settings", "get", "data.trash_retention_days")
	if strings.TrimSpace(out) != "14" {
		t.Fatalf("settings get: %q", out)
	}
	if _, err := c.run("settings", "set", "data.nope", "1"); !errors.Is(err, storage.ErrValidation) {
		t.Fatalf("unknown key err=%v", err)
	}
}

func TestExportImport(t *testing.T) {
	src := newCLI(t)
	src.mustRun("add", "carry", "me")
	file := filepath.Join(t.TempDir(), "backup.yaml")
	src.mustRun("export", file)

	dst := newCLI(t)
	out := dst.mustRun("import", file)
	if !strings.Contains(out, "1 tasks") {
		t.Fatalf("import output: %q", out)
	}
	if out := dst.mustRun("list"); !strings.Contains(out, "carry me") {
		t.Fatalf("imported task missing: %q", out)
	}
}

func TestImageRename(t *testing.T) {
	c := newCLI(t)
	src := filepath.Join(t.TempDir(), "roadmap.png")
	if err := os.WriteFile(src, []byte("\x89PNG"), 0o644); err != nil {
		t.Fatal(err)
	}
	c.mustRun("image", "add", src)
	out := c.mustRun("image", "rename", "1", "Q3", "roadmap")
	if !strings.Contains(out, "#1 Q3 roadmap") {
		t.Fatalf("rename output: %q", out)
	}
	if out := c.mustRun("image", "list"); !strings.Contains(out, "Q3 roadmap") {
		t.Fatalf("renamed title missing: %q", out)
	}
	if _, err := c.run("image", "rename", "9", "x"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing image err=%v", err)
	}
}

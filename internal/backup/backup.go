// Package backup exports a whole backend to a single JSON or YAML document
// and imports it back.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cjw/internal/storage"
)

const Version = 1

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks YAML for .yaml/.yml paths and JSON otherwise.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

type PlanEntry struct {
	storage.Plan `json:",inline" yaml:",inline"`
	KeyResults   []storage.KeyResult `json:"key_results" yaml:"key_results"`
}

type Document struct {
	Version    int                 `json:"version" yaml:"version"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Backend    string              `json:"backend" yaml:"backend"`
	Tasks      []storage.Task      `json:"tasks" yaml:"tasks"`
	Folders    []storage.Folder    `json:"folders" yaml:"folders"`
	Notes      []storage.Note      `json:"notes" yaml:"notes"`
	Plans      []PlanEntry         `json:"plans" yaml:"plans"`
	PlanImages []storage.PlanImage `json:"plan_images" yaml:"plan_images"`
	Settings   *storage.Settings   `json:"settings,omitempty" yaml:"settings,omitempty"`

	// settings holds the decoded settings section as written, so a partial
	// section is merged onto the current settings instead of replacing them.
	settings map[string]any
}

// Stats counts imported records.
type Stats struct {
	Tasks, Folders, Notes, Plans, KeyResults, PlanImages int
}

func Export(ctx context.Context, b storage.Backend, now time.Time) (*Document, error) {
	doc := &Document{Version: Version, ExportedAt: now.UTC(), Backend: b.Name()}
	var err error

	if doc.Tasks, err = b.Tasks().GetAll(ctx); err != nil {
		return nil, fmt.Errorf("export tasks: %w", err)
	}
	folders, err := b.Folders().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export folders: %w", err)
	}
	for _, f := range folders {
		if f.Type == storage.FolderUser {
			doc.Folders = append(doc.Folders, f)
		}
	}
	if doc.Notes, err = b.Notes().GetAll(ctx); err != nil {
		return nil, fmt.Errorf("export notes: %w", err)
	}

	plans, err := b.Plans().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export plans: %w", err)
	}
	for _, p := range plans {
		krs, err := b.Plans().ListKeyResults(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("export key results of plan %d: %w", p.ID, err)
		}
		doc.Plans = append(doc.Plans, PlanEntry{Plan: p, KeyResults: krs})
	}

	if doc.PlanImages, err = b.PlanImages().GetAll(ctx); err != nil {
		return nil, fmt.Errorf("export plan images: %w", err)
	}
	settings, err := b.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}
	doc.Settings = &settings
	return doc, nil
}

func Encode(w io.Writer, doc *Document, f Format) error {
	if f == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func Decode(r io.Reader, f Format) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, storage.ValidationError{Field: "backup", Reason: "empty document"}
	}
	unmarshal := json.Unmarshal
	if f == FormatYAML {
		unmarshal = yaml.Unmarshal
	}

	var doc Document
	if err := unmarshal(data, &doc); err != nil {
		return nil, storage.ValidationError{Field: "backup", Reason: err.Error()}
	}
	if doc.Version > Version {
		return nil, storage.ValidationError{Field: "version", Reason: fmt.Sprintf("backup version %d is newer than supported %d", doc.Version, Version)}
	}
	var raw struct {
		Settings map[string]any `json:"settings" yaml:"settings"`
	}
	if err := unmarshal(data, &raw); err != nil {
		return nil, storage.ValidationError{Field: "settings", Reason: err.Error()}
	}
	doc.settings = raw.Settings
	return &doc, nil
}

func ExportFile(ctx context.Context, b storage.Backend, path string, now time.Time) (*Document, error) {
	doc, err := Export(ctx, b, now)
	if err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	if err := Encode(f, doc, FormatFor(path)); err != nil {
		f.Close()
		return nil, fmt.Errorf("write backup: %w", err)
	}
	return doc, f.Close()
}

func ImportFile(ctx context.Context, b storage.Backend, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()
	doc, err := Decode(f, FormatFor(path))
	if err != nil {
		return Stats{}, err
	}
	return Import(ctx, b, doc)
}

// Import recreates the document's records with plain Create calls, oldest
// first. Records get fresh ids and timestamps and plan references are
// remapped. Folders that already exist are kept as they are. Settings are
// merged key by key when the document was decoded, replaced when it was
// built in memory, and left alone when the document carries none.
func Import(ctx context.Context, b storage.Backend, doc *Document) (Stats, error) {
	var st Stats

	for _, f := range doc.Folders {
		existing, err := b.Folders().GetByID(ctx, f.ID)
		if err != nil {
			return st, err
		}
		if existing != nil {
			continue
		}
		if _, err := b.Folders().Create(ctx, storage.FolderInput{ID: f.ID, Name: f.Name, Icon: f.Icon}); err != nil {
			return st, fmt.Errorf("import folder %q: %w", f.ID, err)
		}
		st.Folders++
	}

	for _, t := range slices.Backward(doc.Tasks) {
		_, err := b.Tasks().Create(ctx, storage.TaskInput{
			Content:       t.Content,
			Status:        t.Status,
			DueDate:       t.DueDate,
			ScheduledTime: t.ScheduledTime,
			Duration:      t.Duration,
			Important:     t.Important,
			Urgent:        t.Urgent,
		})
		if err != nil {
			return st, fmt.Errorf("import task %d: %w", t.ID, err)
		}
		st.Tasks++
	}

	for _, n := range slices.Backward(doc.Notes) {
		created, err := b.Notes().Create(ctx, storage.NoteInput{Content: n.Content, FolderID: n.FolderID, IsPinned: n.IsPinned})
		if err != nil {
			return st, fmt.Errorf("import note %d: %w", n.ID, err)
		}
		if n.State == storage.NoteTrashed {
			if err := b.Notes().Delete(ctx, created.ID); err != nil {
				return st, fmt.Errorf("trash imported note %d: %w", n.ID, err)
			}
		}
		st.Notes++
	}

	for _, p := range slices.Backward(doc.Plans) {
		created, err := b.Plans().Create(ctx, storage.PlanInput{
			Title:       p.Title,
			Description: p.Description,
			Color:       p.Color,
			Status:      p.Status,
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
		})
		if err != nil {
			return st, fmt.Errorf("import plan %d: %w", p.ID, err)
		}
		st.Plans++
		for _, kr := range p.KeyResults {
			_, err := b.Plans().CreateKeyResult(ctx, storage.KeyResultInput{
				PlanID:       created.ID,
				Title:        kr.Title,
				TargetValue:  kr.TargetValue,
				CurrentValue: kr.CurrentValue,
				Unit:         kr.Unit,
			})
			if err != nil {
				return st, fmt.Errorf("import key result %d: %w", kr.ID, err)
			}
			st.KeyResults++
		}
	}

	for _, img := range doc.PlanImages {
		if _, err := b.PlanImages().Create(ctx, storage.PlanImageInput{Title: img.Title, ImagePath: img.ImagePath}); err != nil {
			return st, fmt.Errorf("import plan image %d: %w", img.ID, err)
		}
		st.PlanImages++
	}

	switch {
	case doc.settings != nil:
		if _, err := b.Settings().Update(ctx, doc.settings); err != nil {
			return st, fmt.Errorf("import settings: %w", err)
		}
	case doc.Settings != nil:
		if err := b.Settings().Replace(ctx, *doc.Settings); err != nil {
			return st, fmt.Errorf("import settings: %w", err)
		}
	}
	return st, nil
}

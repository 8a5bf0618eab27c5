// Package planimages keeps plan image files on disk next to their rows.
package planimages

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cjw/internal/storage"
)

const DirName = "plan-images"

var allowedExt = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

type Store struct {
	repo storage.PlanImageRepository
	dir  string
	log  zerolog.Logger
}

// New stores files under <dataDir>/plan-images.
func New(repo storage.PlanImageRepository, dataDir string, log zerolog.Logger) *Store {
	return &Store{repo: repo, dir: filepath.Join(dataDir, DirName), log: log}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) List(ctx context.Context) ([]storage.PlanImage, error) {
	return s.repo.GetAll(ctx)
}

// Add copies r into a new file named <uuid><ext> and records it.
func (s *Store) Add(ctx context.Context, title, ext string, r io.Reader) (*storage.PlanImage, error) {
	ext = strings.ToLower(ext)
	if !allowedExt[ext] {
		return nil, storage.ValidationError{Field: "image", Reason: fmt.Sprintf("unsupported file type %q", ext)}
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	path := filepath.Join(s.dir, uuid.NewString()+ext)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close image file: %w", err)
	}

	img, err := s.repo.Create(ctx, storage.PlanImageInput{Title: title, ImagePath: path})
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	s.log.Debug().Int64("id", img.ID).Str("path", path).Msg("plan image added")
	return img, nil
}

// AddFile imports the file at src, titled after its base name when title is empty.
func (s *Store) AddFile(ctx context.Context, title, src string) (*storage.PlanImage, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	return s.Add(ctx, title, filepath.Ext(src), f)
}

// Remove deletes the row first, then the file. A missing file is not an error.
func (s *Store) Remove(ctx context.Context, id int64) error {
	img, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(img.ImagePath); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Str("path", img.ImagePath).Msg("could not remove image file")
	}
	return nil
}

func (s *Store) Rename(ctx context.Context, id int64, title string) (*storage.PlanImage, error) {
	return s.repo.Update(ctx, id, storage.PlanImagePatch{Title: &title})
}

func (s *Store) Reorder(ctx context.Context, ids []int64) error {
	return s.repo.Reorder(ctx, ids)
}

func (s *Store) Read(ctx context.Context, id int64) ([]byte, error) {
	img, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(img.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("read image %d: %w", id, err)
	}
	return data, nil
}

func (s *Store) get(ctx context.Context, id int64) (*storage.PlanImage, error) {
	img, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, storage.NotFound("plan image", id)
	}
	return img, nil
}

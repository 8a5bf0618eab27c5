// Package notes wraps the note and folder repositories with cached folder
// listings and optimistic trash, restore and pin actions.
package notes

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"cjw/internal/query"
	"cjw/internal/storage"
)

var (
	keyPrefix  = query.KeyOf("notes", "")
	foldersKey = query.KeyOf("notes", "folders")
)

// ListKey is the cache key of one folder listing.
func ListKey(folderID string) query.Key {
	if folderID == "" {
		folderID = storage.FolderAll
	}
	return query.KeyOf("notes", "list", folderID)
}

type Service struct {
	notes    storage.NoteRepository
	folders  storage.FolderRepository
	settings storage.SettingsRepository
	cache    *query.Client
	log      zerolog.Logger
}

func NewService(notes storage.NoteRepository, folders storage.FolderRepository, settings storage.SettingsRepository, cache *query.Client, log zerolog.Logger) *Service {
	return &Service{notes: notes, folders: folders, settings: settings, cache: cache, log: log}
}

// List returns the notes of a folder, pinned first. FolderAll lists every
// active note and FolderTrash the trashed ones.
func (s *Service) List(ctx context.Context, folderID string) ([]storage.Note, error) {
	return query.Fetch(ctx, s.cache, ListKey(folderID), func(ctx context.Context) ([]storage.Note, error) {
		return s.notes.GetByFolder(ctx, folderID)
	})
}

func (s *Service) Folders(ctx context.Context) ([]storage.Folder, error) {
	return query.Fetch(ctx, s.cache, foldersKey, s.folders.GetAll)
}

func (s *Service) Get(ctx context.Context, id int64) (*storage.Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, storage.NotFound("note", id)
	}
	return n, nil
}

func (s *Service) Create(ctx context.Context, in storage.NoteInput) (*storage.Note, error) {
	n, err := s.notes.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix(keyPrefix)
	return n, nil
}

func (s *Service) Update(ctx context.Context, id int64, p storage.NotePatch) (*storage.Note, error) {
	n, err := s.notes.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix(keyPrefix)
	return n, nil
}

// Trash moves a note to the trash, hiding it from the view listing at once.
func (s *Service) Trash(ctx context.Context, view string, id int64) error {
	_, err := query.Optimistic(ctx, s.cache, ListKey(view),
		func(old []storage.Note) []storage.Note { return without(old, id) },
		func(ctx context.Context) (struct{}, error) { return struct{}{}, s.notes.Delete(ctx, id) })
	if err != nil {
		return err
	}
	s.cache.InvalidatePrefix(keyPrefix)
	s.log.Debug().Int64("id", id).Msg("note trashed")
	return nil
}

// Restore brings a trashed note back to its folder, or to FolderAll when
// that folder no longer exists.
func (s *Service) Restore(ctx context.Context, id int64) (*storage.Note, error) {
	n, err := query.Optimistic(ctx, s.cache, ListKey(storage.FolderTrash),
		func(old []storage.Note) []storage.Note { return without(old, id) },
		func(ctx context.Context) (*storage.Note, error) { return s.notes.Restore(ctx, id) })
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix(keyPrefix)
	return n, nil
}

func (s *Service) DeletePermanently(ctx context.Context, id int64) error {
	_, err := query.Optimistic(ctx, s.cache, ListKey(storage.FolderTrash),
		func(old []storage.Note) []storage.Note { return without(old, id) },
		func(ctx context.Context) (struct{}, error) { return struct{}{}, s.notes.DeletePermanently(ctx, id) })
	if err != nil {
		return err
	}
	s.cache.InvalidatePrefix(keyPrefix)
	return nil
}

// TogglePin flips the pin flag and re-sorts the view listing immediately.
func (s *Service) TogglePin(ctx context.Context, view string, id int64) (*storage.Note, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pinned := !cur.IsPinned
	n, err := query.Optimistic(ctx, s.cache, ListKey(view),
		func(old []storage.Note) []storage.Note { return withPin(old, id, pinned) },
		func(ctx context.Context) (*storage.Note, error) {
			return s.notes.Update(ctx, id, storage.NotePatch{IsPinned: &pinned})
		})
	if err != nil {
		return nil, err
	}
	s.cache.InvalidatePrefix(keyPrefix)
	return n, nil
}

func (s *Service) CreateFolder(ctx context.Context, in storage.FolderInput) (*storage.Folder, error) {
	f, err := s.folders.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(foldersKey)
	return f, nil
}

func (s *Service) RenameFolder(ctx context.Context, id, name string) (*storage.Folder, error) {
	f, err := s.folders.Update(ctx, id, storage.FolderPatch{Name: &name})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(foldersKey)
	return f, nil
}

// DeleteFolder removes a user folder; its notes move to FolderAll.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	if err := s.folders.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidatePrefix(keyPrefix)
	s.cache.Remove(ListKey(id))
	return nil
}

// SweepTrash permanently deletes notes trashed longer ago than the
// configured retention.
func (s *Service) SweepTrash(ctx context.Context, now time.Time) (int, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	days := settings.Data.TrashRetentionDays
	if days <= 0 {
		days = storage.DefaultTrashRetentionDays
	}
	cutoff := now.AddDate(0, 0, -days)
	n, err := s.notes.PurgeTrashedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.cache.Invalidate(ListKey(storage.FolderTrash))
	}
	s.log.Info().Int("purged", n).Int("retention_days", days).Msg("trash swept")
	return n, nil
}

func without(list []storage.Note, id int64) []storage.Note {
	out := make([]storage.Note, 0, len(list))
	for _, n := range list {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

func withPin(list []storage.Note, id int64, pinned bool) []storage.Note {
	out := slices.Clone(list)
	for i := range out {
		if out[i].ID == id {
			out[i].IsPinned = pinned
		}
	}
	slices.SortStableFunc(out, func(a, b storage.Note) int {
		switch {
		case a.IsPinned == b.IsPinned:
			return 0
		case a.IsPinned:
			return -1
		default:
			return 1
		}
	})
	return out
}

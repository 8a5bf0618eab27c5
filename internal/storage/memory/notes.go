package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"cjw/internal/storage"
)

type noteRepo struct{ s *Store }

func (r noteRepo) GetAll(ctx context.Context) ([]storage.Note, error) {
	notes := r.filter(func(storage.Note) bool { return true })
	slices.SortStableFunc(notes, byCreatedDesc)
	return notes, nil
}

func (r noteRepo) GetByID(ctx context.Context, id int64) (*storage.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, nil
	}
	n := storage.CloneNote(r.s.notes[i])
	return &n, nil
}

func (r noteRepo) Create(ctx context.Context, in storage.NoteInput) (*storage.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	folder := storage.NormalizeNoteFolder(in.FolderID)
	if folderIndex(r.s, folder) < 0 {
		return nil, storage.NotFound("folder", folder)
	}
	r.s.nextNoteID++
	ts := now()
	n := storage.Note{
		ID:        r.s.nextNoteID,
		Content:   in.Content,
		FolderID:  folder,
		IsPinned:  in.IsPinned,
		State:     storage.NoteActive,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	r.s.notes = append(r.s.notes, n)
	return &n, nil
}

func (r noteRepo) Update(ctx context.Context, id int64, p storage.NotePatch) (*storage.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return nil, storage.NotFound("note", id)
	}
	if p.FolderID != nil {
		f := storage.NormalizeNoteFolder(*p.FolderID)
		if folderIndex(r.s, f) < 0 {
			return nil, storage.NotFound("folder", f)
		}
		p.FolderID = &f
	}
	n := storage.CloneNote(r.s.notes[i])
	storage.ApplyNotePatch(&n, p)
	n.UpdatedAt = now()
	r.s.notes[i] = n
	out := storage.CloneNote(n)
	return &out, nil
}

func (r noteRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 || r.s.notes[i].State == storage.NoteTrashed {
		return storage.NotFound("note", id)
	}
	ts := now()
	r.s.notes[i].State = storage.NoteTrashed
	r.s.notes[i].TrashedAt = &ts
	r.s.notes[i].UpdatedAt = ts
	return nil
}

func (r noteRepo) Restore(ctx context.Context, id int64) (*storage.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 || r.s.notes[i].State != storage.NoteTrashed {
		return nil, storage.NotFound("trashed note", id)
	}
	n := &r.s.notes[i]
	n.State = storage.NoteActive
	n.TrashedAt = nil
	n.UpdatedAt = now()
	if folderIndex(r.s, n.FolderID) < 0 {
		n.FolderID = storage.FolderAll
	}
	out := storage.CloneNote(*n)
	return &out, nil
}

func (r noteRepo) DeletePermanently(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := r.index(id)
	if i < 0 {
		return storage.NotFound("note", id)
	}
	r.s.notes = slices.Delete(r.s.notes, i, i+1)
	return nil
}

func (r noteRepo) GetByFolder(ctx context.Context, folderID string) ([]storage.Note, error) {
	var notes []storage.Note
	switch folderID {
	case storage.FolderTrash:
		notes = r.filter(func(n storage.Note) bool { return n.State == storage.NoteTrashed })
	case storage.FolderAll, "":
		notes = r.filter(func(n storage.Note) bool { return n.State == storage.NoteActive })
	default:
		notes = r.filter(func(n storage.Note) bool {
			return n.State == storage.NoteActive && n.FolderID == folderID
		})
	}
	slices.SortStableFunc(notes, func(a, b storage.Note) int {
		if a.IsPinned != b.IsPinned {
			if a.IsPinned {
				return -1
			}
			return 1
		}
		return byCreatedDesc(a, b)
	})
	return notes, nil
}

func (r noteRepo) PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	before := len(r.s.notes)
	r.s.notes = slices.DeleteFunc(r.s.notes, func(n storage.Note) bool {
		return n.State == storage.NoteTrashed && n.TrashedAt != nil && n.TrashedAt.Before(cutoff)
	})
	return before - len(r.s.notes), nil
}

func (r noteRepo) index(id int64) int {
	return slices.IndexFunc(r.s.notes, func(n storage.Note) bool { return n.ID == id })
}

func (r noteRepo) filter(keep func(storage.Note) bool) []storage.Note {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []storage.Note
	for _, n := range r.s.notes {
		if keep(n) {
			out = append(out, storage.CloneNote(n))
		}
	}
	return out
}

func byCreatedDesc(a, b storage.Note) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

type folderRepo struct{ s *Store }

func (r folderRepo) GetAll(ctx context.Context) ([]storage.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.folders), nil
}

func (r folderRepo) GetByID(ctx context.Context, id string) (*storage.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := folderIndex(r.s, id)
	if i < 0 {
		return nil, nil
	}
	f := r.s.folders[i]
	return &f, nil
}

func (r folderRepo) Create(ctx context.Context, in storage.FolderInput) (*storage.Folder, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, storage.ValidationError{Field: "name", Reason: "required"}
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if folderIndex(r.s, id) >= 0 {
		return nil, storage.ConstraintError{Reason: "folder " + id + " already exists"}
	}
	f := storage.Folder{ID: id, Name: name, Icon: in.Icon, Type: storage.FolderUser}
	r.s.folders = append(r.s.folders, f)
	return &f, nil
}

func (r folderRepo) Update(ctx context.Context, id string, p storage.FolderPatch) (*storage.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := folderIndex(r.s, id)
	if i < 0 {
		return nil, storage.NotFound("folder", id)
	}
	f := r.s.folders[i]
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, storage.ValidationError{Field: "name", Reason: "required"}
		}
		f.Name = name
	}
	if p.Icon != nil {
		f.Icon = *p.Icon
	}
	r.s.folders[i] = f
	return &f, nil
}

func (r folderRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	i := folderIndex(r.s, id)
	if i < 0 {
		return storage.NotFound("folder", id)
	}
	if r.s.folders[i].Type == storage.FolderSystem {
		return storage.ConstraintError{Reason: "system folder " + id + " cannot be deleted"}
	}
	r.s.folders = slices.Delete(r.s.folders, i, i+1)
	ts := now()
	for j := range r.s.notes {
		if r.s.notes[j].FolderID == id {
			r.s.notes[j].FolderID = storage.FolderAll
			r.s.notes[j].UpdatedAt = ts
		}
	}
	return nil
}

// folderIndex expects s.mu to be held.
func folderIndex(s *Store, id string) int {
	return slices.IndexFunc(s.folders, func(f storage.Folder) bool { return f.ID == id })
}

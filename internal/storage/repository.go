package storage

import (
	"context"
	"time"
)

type TaskRepository interface {
	GetAll(ctx context.Context) ([]Task, error)
	GetByID(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, in TaskInput) (*Task, error)
	Update(ctx context.Context, id int64, p TaskPatch) (*Task, error)
	Delete(ctx context.Context, id int64) error
	GetByStatus(ctx context.Context, status TaskStatus) ([]Task, error)
	GetByDueDate(ctx context.Context, date string) ([]Task, error)
	CountByStatus(ctx context.Context, status TaskStatus) (int, error)
}

type NoteRepository interface {
	GetAll(ctx context.Context) ([]Note, error)
	GetByID(ctx context.Context, id int64) (*Note, error)
	Create(ctx context.Context, in NoteInput) (*Note, error)
	Update(ctx context.Context, id int64, p NotePatch) (*Note, error)
	// Delete moves the note to the trash.
	Delete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) (*Note, error)
	DeletePermanently(ctx context.Context, id int64) error
	// GetByFolder understands the pseudo-folders FolderAll and FolderTrash.
	GetByFolder(ctx context.Context, folderID string) ([]Note, error)
	PurgeTrashedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type FolderRepository interface {
	GetAll(ctx context.Context) ([]Folder, error)
	GetByID(ctx context.Context, id string) (*Folder, error)
	Create(ctx context.Context, in FolderInput) (*Folder, error)
	Update(ctx context.Context, id string, p FolderPatch) (*Folder, error)
	// Delete removes a user folder and reassigns its notes to FolderAll.
	Delete(ctx context.Context, id string) error
}

type PlanRepository interface {
	GetAll(ctx context.Context) ([]Plan, error)
	GetByID(ctx context.Context, id int64) (*Plan, error)
	Create(ctx context.Context, in PlanInput) (*Plan, error)
	Update(ctx context.Context, id int64, p PlanPatch) (*Plan, error)
	Delete(ctx context.Context, id int64) error
	GetActive(ctx context.Context) ([]Plan, error)

	ListKeyResults(ctx context.Context, planID int64) ([]KeyResult, error)
	GetKeyResult(ctx context.Context, id int64) (*KeyResult, error)
	CreateKeyResult(ctx context.Context, in KeyResultInput) (*KeyResult, error)
	UpdateKeyResult(ctx context.Context, id int64, p KeyResultPatch) (*KeyResult, error)
	DeleteKeyResult(ctx context.Context, id int64) error
	RecalculatePlanProgress(ctx context.Context, planID int64) (float64, error)
}

type PlanImageRepository interface {
	GetAll(ctx context.Context) ([]PlanImage, error)
	GetByID(ctx context.Context, id int64) (*PlanImage, error)
	Create(ctx context.Context, in PlanImageInput) (*PlanImage, error)
	Update(ctx context.Context, id int64, p PlanImagePatch) (*PlanImage, error)
	Delete(ctx context.Context, id int64) error
	// Reorder assigns sort_order by position in ids.
	Reorder(ctx context.Context, ids []int64) error
}

type SettingsRepository interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, patch map[string]any) (Settings, error)
	Set(ctx context.Context, path string, value any) (Settings, error)
	Replace(ctx context.Context, s Settings) error
}

// Backend bundles the repositories of one storage strategy. All
// repositories of a backend share the same underlying handle.
type Backend interface {
	Name() string
	Tasks() TaskRepository
	Notes() NoteRepository
	Folders() FolderRepository
	Plans() PlanRepository
	PlanImages() PlanImageRepository
	Settings() SettingsRepository
	Close() error
}

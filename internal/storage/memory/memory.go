// Package memory is the in-process storage backend used when no database
// file is available. Records live in slices and ids increase monotonically
// per entity type.
package memory

import (
	"sync"
	"time"

	"cjw/internal/storage"
)

type Store struct {
	mu sync.Mutex

	tasks      []storage.Task
	notes      []storage.Note
	folders    []storage.Folder
	plans      []storage.Plan
	keyResults []storage.KeyResult
	images     []storage.PlanImage
	settings   storage.Settings

	nextTaskID  int64
	nextNoteID  int64
	nextPlanID  int64
	nextKRID    int64
	nextImageID int64
}

var _ storage.Backend = (*Store)(nil)

func New() *Store {
	s := &Store{settings: storage.DefaultSettings()}
	s.folders = append(s.folders, storage.SystemFolders...)
	return s
}

func (s *Store) Name() string { return "memory" }

func (s *Store) Close() error { return nil }

func (s *Store) Tasks() storage.TaskRepository           { return taskRepo{s} }
func (s *Store) Notes() storage.NoteRepository           { return noteRepo{s} }
func (s *Store) Folders() storage.FolderRepository       { return folderRepo{s} }
func (s *Store) Plans() storage.PlanRepository           { return planRepo{s} }
func (s *Store) PlanImages() storage.PlanImageRepository { return imageRepo{s} }
func (s *Store) Settings() storage.SettingsRepository    { return settingsRepo{s} }

func now() time.Time {
	return time.Now().UTC()
}

package storage

import "time"

type TaskStatus string

const (
	StatusInbox TaskStatus = "INBOX"
	StatusTodo  TaskStatus = "TODO"
	StatusDoing TaskStatus = "DOING"
	StatusDone  TaskStatus = "DONE"
)

// KanbanStatuses lists the board columns in display order.
var KanbanStatuses = []TaskStatus{StatusInbox, StatusTodo, StatusDoing, StatusDone}

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusInbox, StatusTodo, StatusDoing, StatusDone:
		return true
	default:
		return false
	}
}

const (
	DefaultDuration = 30
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
)

type Task struct {
	ID            int64      `json:"id" yaml:"id"`
	Content       string     `json:"content" yaml:"content"`
	Status        TaskStatus `json:"status" yaml:"status"`
	DueDate       *string    `json:"due_date" yaml:"due_date"`
	ScheduledTime *string    `json:"scheduled_time" yaml:"scheduled_time"`
	Duration      int        `json:"duration" yaml:"duration"`
	Important     bool       `json:"important" yaml:"important"`
	Urgent        bool       `json:"urgent" yaml:"urgent"`
	CreatedAt     time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" yaml:"updated_at"`
}

// TaskInput is the payload for creating a task. Empty Status picks the
// default: TODO when a due date is set, INBOX otherwise.
type TaskInput struct {
	Content       string
	Status        TaskStatus
	DueDate       *string
	ScheduledTime *string
	Duration      int
	Important     bool
	Urgent        bool
}

// TaskPatch is a sparse update; nil fields are left untouched.
type TaskPatch struct {
	Content            *string
	Status             *TaskStatus
	DueDate            *string
	ClearDueDate       bool
	ScheduledTime      *string
	ClearScheduledTime bool
	Duration           *int
	Important          *bool
	Urgent             *bool
}

const (
	FolderAll   = "all"
	FolderTrash = "trash"
)

type NoteState string

const (
	NoteActive  NoteState = "active"
	NoteTrashed NoteState = "trashed"
)

type Note struct {
	ID        int64      `json:"id" yaml:"id"`
	Content   string     `json:"content" yaml:"content"`
	FolderID  string     `json:"folder_id" yaml:"folder_id"`
	IsPinned  bool       `json:"is_pinned" yaml:"is_pinned"`
	State     NoteState  `json:"state" yaml:"state"`
	TrashedAt *time.Time `json:"trashed_at,omitempty" yaml:"trashed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

type NoteInput struct {
	Content  string
	FolderID string
	IsPinned bool
}

type NotePatch struct {
	Content  *string
	FolderID *string
	IsPinned *bool
}

type FolderType string

const (
	FolderSystem FolderType = "system"
	FolderUser   FolderType = "user"
)

type Folder struct {
	ID   string     `json:"id" yaml:"id"`
	Name string     `json:"name" yaml:"name"`
	Icon string     `json:"icon" yaml:"icon"`
	Type FolderType `json:"type" yaml:"type"`
}

// SystemFolders are seeded by every backend and cannot be deleted.
var SystemFolders = []Folder{
	{ID: FolderAll, Name: "All notes", Icon: "notebook", Type: FolderSystem},
	{ID: FolderTrash, Name: "Trash", Icon: "trash", Type: FolderSystem},
}

type FolderInput struct {
	ID   string
	Name string
	Icon string
}

type FolderPatch struct {
	Name *string
	Icon *string
}

type PlanImage struct {
	ID        int64     `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	ImagePath string    `json:"image_path" yaml:"image_path"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	SortOrder int       `json:"sort_order" yaml:"sort_order"`
}

type PlanImageInput struct {
	Title     string
	ImagePath string
}

type PlanImagePatch struct {
	Title     *string
	ImagePath *string
}

type PlanStatus string

const (
	PlanActive   PlanStatus = "active"
	PlanArchived PlanStatus = "archived"
)

type Plan struct {
	ID          int64      `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Color       string     `json:"color" yaml:"color"`
	Progress    float64    `json:"progress" yaml:"progress"`
	Status      PlanStatus `json:"status" yaml:"status"`
	StartDate   *string    `json:"start_date" yaml:"start_date"`
	EndDate     *string    `json:"end_date" yaml:"end_date"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// PlanInput has no progress field: plan progress is always derived.
type PlanInput struct {
	Title       string
	Description string
	Color       string
	Status      PlanStatus
	StartDate   *string
	EndDate     *string
}

type PlanPatch struct {
	Title       *string
	Description *string
	Color       *string
	Status      *PlanStatus
	StartDate   *string
	EndDate     *string
}

type KeyResult struct {
	ID           int64     `json:"id" yaml:"id"`
	PlanID       int64     `json:"plan_id" yaml:"plan_id"`
	Title        string    `json:"title" yaml:"title"`
	TargetValue  float64   `json:"target_value" yaml:"target_value"`
	CurrentValue float64   `json:"current_value" yaml:"current_value"`
	Unit         string    `json:"unit" yaml:"unit"`
	Progress     float64   `json:"progress" yaml:"progress"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

type KeyResultInput struct {
	PlanID       int64
	Title        string
	TargetValue  float64
	CurrentValue float64
	Unit         string
}

type KeyResultPatch struct {
	Title        *string
	TargetValue  *float64
	CurrentValue *float64
	Unit         *string
}

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task validation errors
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskProject   = errors.New("task project cannot be empty")
	ErrEmptyTaskTitle     = errors.New("task title cannot be empty")
	ErrTaskTitleTooLong   = errors.New("task title must be at most 200 characters long")
	ErrInvalidTaskStatus  = errors.New("invalid task status")
	ErrEmptyAttachmentKey = errors.New("attachment storage key cannot be empty")
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
)

// ValidTaskStatus reports whether s is a defined task status.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Task is a unit of work inside a project.
type Task struct {
	ID         uuid.UUID  `json:"id"`
	ProjectID  uuid.UUID  `json:"project_id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Status     TaskStatus `json:"status"`
	AssigneeID uuid.UUID  `json:"assignee_id"` // uuid.Nil means unassigned
	ViewCount  int64      `json:"view_count"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NewTask creates a task in status todo.
func NewTask(projectID uuid.UUID, title, body string) (*Task, error) {
	task := &Task{
		ID:        uuid.New(),
		ProjectID: projectID,
		Title:     title,
		Body:      body,
		Status:    TaskStatusTodo,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.ProjectID == uuid.Nil {
		return ErrEmptyTaskProject
	}
	if t.Title == "" {
		return ErrEmptyTaskTitle
	}
	if len(t.Title) > 200 {
		return ErrTaskTitleTooLong
	}
	if !ValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}
	return nil
}

// Attachment is a file uploaded against a task. Post-processing fills in the
// derived fields and flips Processed; reprocessing overwrites them.
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	TaskID      uuid.UUID `json:"task_id"`
	FileName    string    `json:"file_name"`
	StorageKey  string    `json:"storage_key"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Processed   bool      `json:"processed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewAttachment creates an unprocessed attachment record.
func NewAttachment(taskID uuid.UUID, fileName, storageKey string) (*Attachment, error) {
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}
	if storageKey == "" {
		return nil, ErrEmptyAttachmentKey
	}

	return &Attachment{
		ID:         uuid.New(),
		TaskID:     taskID,
		FileName:   fileName,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

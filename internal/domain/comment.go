package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Comment validation errors
var (
	ErrEmptyCommentID   = errors.New("comment ID cannot be empty")
	ErrEmptyCommentBody = errors.New("comment body cannot be empty")
	ErrEmptyCommentTask = errors.New("comment task cannot be empty")
)

// Comment is an authored note on a task.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	TaskID    uuid.UUID `json:"task_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewComment creates a comment by authorID on taskID.
func NewComment(taskID, authorID uuid.UUID, body string) (*Comment, error) {
	comment := &Comment{
		ID:        uuid.New(),
		TaskID:    taskID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := comment.Validate(); err != nil {
		return nil, err
	}

	return comment, nil
}

// Validate checks if the Comment has valid data.
func (c *Comment) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyCommentID
	}
	if c.TaskID == uuid.Nil {
		return ErrEmptyCommentTask
	}
	if c.AuthorID == uuid.Nil {
		return ErrEmptyUserID
	}
	if c.Body == "" {
		return ErrEmptyCommentBody
	}
	return nil
}

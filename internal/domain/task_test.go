package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	projectID := uuid.New()

	tests := []struct {
		name      string
		projectID uuid.UUID
		title     string
		wantErr   error
	}{
		{name: "valid task", projectID: projectID, title: "Fit the crankshaft"},
		{name: "missing project", projectID: uuid.Nil, title: "Fit the crankshaft", wantErr: ErrEmptyTaskProject},
		{name: "empty title", projectID: projectID, title: "", wantErr: ErrEmptyTaskTitle},
		{name: "title too long", projectID: projectID, title: strings.Repeat("t", 201), wantErr: ErrTaskTitleTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewTask(tt.projectID, tt.title, "body")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, TaskStatusTodo, task.Status)
			assert.Equal(t, uuid.Nil, task.AssigneeID)
			assert.Nil(t, task.DueAt)
		})
	}
}

func TestTaskValidateStatus(t *testing.T) {
	task, err := NewTask(uuid.New(), "Fit the crankshaft", "")
	require.NoError(t, err)

	for _, status := range []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone} {
		task.Status = status
		assert.NoError(t, task.Validate(), string(status))
	}

	task.Status = TaskStatus("parked")
	assert.ErrorIs(t, task.Validate(), ErrInvalidTaskStatus)
}

func TestNewAttachment(t *testing.T) {
	taskID := uuid.New()

	attachment, err := NewAttachment(taskID, "blueprint.pdf", "uploads/blueprint.pdf")
	require.NoError(t, err)
	assert.Equal(t, taskID, attachment.TaskID)
	assert.False(t, attachment.Processed)
	assert.Empty(t, attachment.ContentType)

	_, err = NewAttachment(uuid.Nil, "blueprint.pdf", "uploads/blueprint.pdf")
	assert.ErrorIs(t, err, ErrEmptyTaskID)

	_, err = NewAttachment(taskID, "blueprint.pdf", "")
	assert.ErrorIs(t, err, ErrEmptyAttachmentKey)
}

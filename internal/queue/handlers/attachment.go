package handlers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/queue"
	"github.com/crewboard/crewboard-api/internal/store"
)

// TypeProcessAttachment is the job type tag for uploaded-file
// post-processing.
const TypeProcessAttachment = "process_attachment"

// ProcessAttachmentPayload identifies the attachment to post-process.
type ProcessAttachmentPayload struct {
	AttachmentID uuid.UUID `json:"attachment_id" validate:"required"`
}

// AttachmentHandler derives metadata for uploaded files and marks them
// processed.
type AttachmentHandler struct {
	tasks store.TaskStore
}

var _ queue.Handler = (*AttachmentHandler)(nil)

// NewAttachmentHandler creates the handler.
func NewAttachmentHandler(tasks store.TaskStore) *AttachmentHandler {
	return &AttachmentHandler{tasks: tasks}
}

func (h *AttachmentHandler) Type() string { return TypeProcessAttachment }

func (h *AttachmentHandler) Queue() string { return queue.QueueFileProcessing }

func (h *AttachmentHandler) NewPayload() any { return &ProcessAttachmentPayload{} }

// Handle overwrites the attachment's derived fields whole, so reprocessing
// the same file converges on the same record.
func (h *AttachmentHandler) Handle(ctx context.Context, payload any) (string, error) {
	p := payload.(*ProcessAttachmentPayload)

	attachment, err := h.tasks.GetAttachment(ctx, p.AttachmentID)
	if err != nil {
		if store.IsNotFound(err) {
			// Deleted before processing ran; cleanup won the race.
			return "attachment no longer exists", nil
		}
		return "", fmt.Errorf("load attachment %s: %w", p.AttachmentID, err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(attachment.FileName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment.ContentType = contentType
	attachment.Processed = true

	if err := h.tasks.UpdateAttachment(ctx, attachment); err != nil {
		if store.IsNotFound(err) {
			return "attachment no longer exists", nil
		}
		return "", fmt.Errorf("update attachment %s: %w", p.AttachmentID, err)
	}

	return "processed " + attachment.FileName, nil
}

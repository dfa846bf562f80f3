package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/caribbeat/caribbeat/internal/models"
	"github.com/caribbeat/caribbeat/internal/notifications"
)

// NotifyFanoutHandler delivers a creator event to all followers. Fan-out runs
// as a job so a creator with a large following never blocks the request that
// triggered it.
type NotifyFanoutHandler struct {
	notifier *notifications.Notifier
}

func NewNotifyFanoutHandler(notifier *notifications.Notifier) *NotifyFanoutHandler {
	return &NotifyFanoutHandler{notifier: notifier}
}

func (h *NotifyFanoutHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p NotifyFanoutPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	creatorID, err := uuid.Parse(p.CreatorID)
	if err != nil {
		return fmt.Errorf("parse creator id: %w", err)
	}
	var refID *uuid.UUID
	if p.RefID != "" {
		if id, err := uuid.Parse(p.RefID); err == nil {
			refID = &id
		}
	}

	if err := h.notifier.NotifyFollowers(creatorID, models.NotificationType(p.Type), p.Title, p.Body, refID); err != nil {
		return fmt.Errorf("fanout: %w", err)
	}
	log.Printf("Job: fanout %s for creator %s done", p.Type, p.CreatorID)
	return nil
}

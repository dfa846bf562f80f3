package jobs

import (
	"github.com/caribbeat/caribbeat/internal/config"
	"github.com/caribbeat/caribbeat/internal/notifications"
	"github.com/caribbeat/caribbeat/internal/repository"
)

// ──────── Payloads ────────

type RotateSlotsPayload struct {
	Force bool `json:"force,omitempty"`
}

type NotifyFanoutPayload struct {
	CreatorID string `json:"creator_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	RefID     string `json:"ref_id,omitempty"`
}

type ViewsRollupPayload struct{}

type CloseCampaignsPayload struct{}

// EventNotifier pushes live events to connected websocket clients.
type EventNotifier interface {
	Broadcast(event string, data interface{})
}

// DocPublisher feeds updated documents into the live document store so feed
// compositors on every node converge.
type DocPublisher interface {
	Publish(path string, doc interface{}) error
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, contentRepo *repository.ContentRepository,
	layoutRepo *repository.LayoutRepository, campaignRepo *repository.CampaignRepository,
	notifier *notifications.Notifier, feed DocPublisher, ws EventNotifier, cfg *config.Config) {

	q.RegisterHandler(TaskRotateSlots, NewSlotRotationHandler(contentRepo, layoutRepo, feed, ws, cfg))
	q.RegisterHandler(TaskNotifyFanout, NewNotifyFanoutHandler(notifier))
	q.RegisterHandler(TaskViewsRollup, NewViewsRollupHandler(contentRepo, feed))
	q.RegisterHandler(TaskCloseCampaigns, NewCloseCampaignsHandler(campaignRepo))
}

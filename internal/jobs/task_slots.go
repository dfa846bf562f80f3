package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/caribbeat/caribbeat/internal/config"
	"github.com/caribbeat/caribbeat/internal/curation"
	"github.com/caribbeat/caribbeat/internal/models"
)

// TopPerformerSource yields the best-engaging active items inside a window.
type TopPerformerSource interface {
	TopPerformers(window time.Duration, limit int) ([]models.ContentItem, error)
}

// SlotStore loads and persists the automated slots document.
type SlotStore interface {
	GetSlots() (*curation.SlotsDoc, error)
	SaveSlots(doc *curation.SlotsDoc) error
}

// SlotRotationHandler refills the unlocked automated slots with top
// performers from the engagement window. Locked slots keep their pinned
// content and their items never appear twice.
type SlotRotationHandler struct {
	content  TopPerformerSource
	slots    SlotStore
	feed     DocPublisher
	notifier EventNotifier
	cfg      *config.Config
}

func NewSlotRotationHandler(content TopPerformerSource, slots SlotStore, feed DocPublisher, notifier EventNotifier, cfg *config.Config) *SlotRotationHandler {
	return &SlotRotationHandler{content: content, slots: slots, feed: feed, notifier: notifier, cfg: cfg}
}

func (h *SlotRotationHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p RotateSlotsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
	}
	return h.Rotate()
}

// Rotate runs one rotation pass. Split out so the API can trigger it inline.
func (h *SlotRotationHandler) Rotate() error {
	doc, err := h.slots.GetSlots()
	if err != nil {
		return fmt.Errorf("load slots: %w", err)
	}

	// Pinned content stays put and is excluded from candidates.
	taken := map[string]struct{}{}
	unlocked := 0
	for _, slot := range doc.All() {
		if slot.IsLocked {
			if slot.Content != nil {
				taken[slot.Content.ID] = struct{}{}
			}
		} else {
			unlocked++
		}
	}
	if unlocked == 0 {
		log.Println("Job: slot rotation skipped, all slots locked")
		return nil
	}

	window := time.Duration(h.cfg.TrendingWindowDays) * 24 * time.Hour
	// Over-fetch so exclusions still leave enough candidates.
	top, err := h.content.TopPerformers(window, unlocked+len(taken)+6)
	if err != nil {
		return fmt.Errorf("top performers: %w", err)
	}

	filled := 0
	next := 0
	for i, slot := range doc.All() {
		if slot.IsLocked {
			continue
		}
		var content *curation.Content
		for next < len(top) {
			candidate := &top[next]
			next++
			if _, dup := taken[candidate.ID.String()]; dup {
				continue
			}
			c := curation.FromModel(candidate)
			content = &c
			taken[c.ID] = struct{}{}
			break
		}
		// Runs dry when the catalog is smaller than the slot count; the
		// slot empties rather than repeating an item.
		doc.SetSlot(i+1, curation.Slot{IsLocked: false, Content: content})
		if content != nil {
			filled++
		}
	}

	if err := h.slots.SaveSlots(doc); err != nil {
		return fmt.Errorf("save slots: %w", err)
	}
	if err := h.feed.Publish(curation.SlotsPath, doc); err != nil {
		return fmt.Errorf("publish slots: %w", err)
	}

	log.Printf("Job: slot rotation filled %d of %d unlocked slots", filled, unlocked)
	if h.notifier != nil {
		h.notifier.Broadcast("slots:rotated", map[string]interface{}{"filled": filled})
	}
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/caribbeat/caribbeat/internal/curation"
	"github.com/caribbeat/caribbeat/internal/models"
)

// ViewedSource lists items with recent view activity.
type ViewedSource interface {
	ListViewedSince(window time.Duration) ([]models.ContentItem, error)
}

// ViewsRollupHandler republishes the live documents of recently viewed items
// so feed snapshots carry counters no staler than one rollup interval.
type ViewsRollupHandler struct {
	content ViewedSource
	feed    DocPublisher
}

func NewViewsRollupHandler(content ViewedSource, feed DocPublisher) *ViewsRollupHandler {
	return &ViewsRollupHandler{content: content, feed: feed}
}

func (h *ViewsRollupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	items, err := h.content.ListViewedSince(10 * time.Minute)
	if err != nil {
		return fmt.Errorf("list viewed: %w", err)
	}
	for i := range items {
		doc := curation.FromModel(&items[i])
		if err := h.feed.Publish(curation.ContentPath(doc.ID), doc); err != nil {
			return fmt.Errorf("publish %s: %w", doc.ID, err)
		}
	}
	if len(items) > 0 {
		log.Printf("Job: views rollup republished %d documents", len(items))
	}
	return nil
}

package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// CampaignCloser finalizes campaigns whose deadline has passed.
type CampaignCloser interface {
	CloseExpired() (int64, error)
}

type CloseCampaignsHandler struct {
	campaigns CampaignCloser
}

func NewCloseCampaignsHandler(campaigns CampaignCloser) *CloseCampaignsHandler {
	return &CloseCampaignsHandler{campaigns: campaigns}
}

func (h *CloseCampaignsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	n, err := h.campaigns.CloseExpired()
	if err != nil {
		return fmt.Errorf("close expired: %w", err)
	}
	if n > 0 {
		log.Printf("Job: closed %d expired campaigns", n)
	}
	return nil
}

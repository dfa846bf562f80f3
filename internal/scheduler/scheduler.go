package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/caribbeat/caribbeat/internal/config"
	"github.com/caribbeat/caribbeat/internal/jobs"
	"github.com/caribbeat/caribbeat/internal/models"
	"github.com/caribbeat/caribbeat/internal/repository"
)

// Scheduler drives the recurring platform work: slot rotation, premiere
// reminders, stale live cleanup, view rollups and campaign deadlines.
// Rotation cadence comes from config so admins can retune it without a
// deploy.
type Scheduler struct {
	cron      *cron.Cron
	queue     *jobs.Queue
	eventRepo *repository.EventRepository
	cfg       *config.Config
}

func New(queue *jobs.Queue, eventRepo *repository.EventRepository, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		queue:     queue,
		eventRepo: eventRepo,
		cfg:       cfg,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SlotRotationSpec, s.enqueueRotation); err != nil {
		return fmt.Errorf("rotation spec %q: %w", s.cfg.SlotRotationSpec, err)
	}
	if _, err := s.cron.AddFunc("@every 1m", s.checkPremieres); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@every 10m", s.enqueueRollup); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("@hourly", s.enqueueCampaignClose); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[scheduler] started (rotation %s)", s.cfg.SlotRotationSpec)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[scheduler] stopped")
}

func (s *Scheduler) enqueueRotation() {
	if _, err := s.queue.EnqueueUnique(jobs.TaskRotateSlots, jobs.RotateSlotsPayload{}, "slots:rotate"); err != nil {
		log.Printf("[scheduler] enqueue rotation: %v", err)
	}
}

func (s *Scheduler) enqueueRollup() {
	if _, err := s.queue.EnqueueUnique(jobs.TaskViewsRollup, jobs.ViewsRollupPayload{}, "views:rollup"); err != nil {
		log.Printf("[scheduler] enqueue rollup: %v", err)
	}
}

func (s *Scheduler) enqueueCampaignClose() {
	if _, err := s.queue.EnqueueUnique(jobs.TaskCloseCampaigns, jobs.CloseCampaignsPayload{}, "campaigns:close"); err != nil {
		log.Printf("[scheduler] enqueue campaign close: %v", err)
	}
}

// checkPremieres handles both the reminder lead window and live events whose
// stream was never ended.
func (s *Scheduler) checkPremieres() {
	lead := time.Duration(s.cfg.PremiereReminderMin) * time.Minute
	due, err := s.eventRepo.ListDueReminders(lead)
	if err != nil {
		log.Printf("[scheduler] due reminders: %v", err)
		return
	}
	for i := range due {
		event := &due[i]
		// Mark first so a notify failure cannot spam followers every minute.
		if err := s.eventRepo.MarkReminderSent(event.ID); err != nil {
			log.Printf("[scheduler] mark reminder %s: %v", event.ID, err)
			continue
		}
		id := event.ID
		title := "Premiere starting soon"
		body := fmt.Sprintf("%q goes live at %s", event.Title, event.ScheduledAt.Format("3:04 PM"))
		if _, err := s.queue.Enqueue(jobs.TaskNotifyFanout, jobs.NotifyFanoutPayload{
			CreatorID: event.CreatorID.String(),
			Type:      string(models.NotifyPremiere),
			Title:     title,
			Body:      body,
			RefID:     id.String(),
		}); err != nil {
			log.Printf("[scheduler] enqueue reminder fanout %s: %v", event.ID, err)
		}
	}

	stale, err := s.eventRepo.CompleteStale(12 * time.Hour)
	if err != nil {
		log.Printf("[scheduler] complete stale: %v", err)
		return
	}
	for i := range stale {
		log.Printf("[scheduler] auto-completed stale live event %s (%q)", stale[i].ID, stale[i].Title)
	}
}

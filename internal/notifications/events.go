package notifications

import (
	"log"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
	"github.com/caribbeat/caribbeat/internal/repository"
)

// Notifier writes in-app notifications for a creator's followers and pushes
// the same event to the creator's enabled webhook channels.
type Notifier struct {
	notifRepo  *repository.NotificationRepository
	socialRepo *repository.SocialRepository
	sender     *WebhookSender
}

func NewNotifier(notifRepo *repository.NotificationRepository, socialRepo *repository.SocialRepository, sender *WebhookSender) *Notifier {
	return &Notifier{
		notifRepo:  notifRepo,
		socialRepo: socialRepo,
		sender:     sender,
	}
}

// NotifyFollowers fans out to everyone following creatorID, skipping anyone
// the creator has blocked.
func (n *Notifier) NotifyFollowers(creatorID uuid.UUID, typ models.NotificationType, title, body string, refID *uuid.UUID) error {
	followers, err := n.socialRepo.ListFollowerIDs(creatorID)
	if err != nil {
		return err
	}
	if err := n.notifRepo.CreateBatch(followers, typ, title, body, refID); err != nil {
		return err
	}
	n.notifyChannels(creatorID, title, body)
	return nil
}

// NotifyUser writes a single in-app notification.
func (n *Notifier) NotifyUser(userID uuid.UUID, typ models.NotificationType, title, body string, refID *uuid.UUID) error {
	notif := &models.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		RefID:  refID,
	}
	return n.notifRepo.Create(notif)
}

func (n *Notifier) notifyChannels(creatorID uuid.UUID, title, body string) {
	channels, err := n.notifRepo.ListEnabledChannels(creatorID)
	if err != nil {
		log.Printf("[notifier] list channels for %s: %v", creatorID, err)
		return
	}
	for i := range channels {
		if err := n.sender.Send(&channels[i], title, body); err != nil {
			log.Printf("[notifier] send to channel %s: %v", channels[i].Name, err)
		}
	}
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleAuthority UserRole = "authority"
	RoleCreator   UserRole = "creator"
	RoleUser      UserRole = "user"
	RoleGuest     UserRole = "guest"
)

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventLive      EventStatus = "live"
	EventCompleted EventStatus = "completed"
)

type CampaignStatus string

const (
	CampaignActive CampaignStatus = "active"
	CampaignFunded CampaignStatus = "funded"
	CampaignClosed CampaignStatus = "closed"
)

type ReportStatus string

const (
	ReportOpen      ReportStatus = "open"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

type NotificationType string

const (
	NotifyNewContent  NotificationType = "new_content"
	NotifyPremiere    NotificationType = "premiere"
	NotifyCampaign    NotificationType = "campaign"
	NotifyFollow      NotificationType = "follow"
	NotifyModeration  NotificationType = "moderation"
	NotifyOpportunity NotificationType = "opportunity"
)

// ──────────────────── User ────────────────────

type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"email" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	DisplayName  *string    `json:"display_name,omitempty" db:"display_name"`
	Bio          *string    `json:"bio,omitempty" db:"bio"`
	AvatarURL    *string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Country      *string    `json:"country,omitempty" db:"country"`
	Role         UserRole   `json:"role" db:"role"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	PremiumUntil *time.Time `json:"premium_until,omitempty" db:"premium_until"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsPremiumActive reports whether the user's premium window covers now.
func (u *User) IsPremiumActive(now time.Time) bool {
	return u.PremiumUntil != nil && u.PremiumUntil.After(now)
}

// ──────────────────── ContentItem ────────────────────

type ContentItem struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	CreatorID          uuid.UUID `json:"creator_id" db:"creator_id"`
	CreatorName        string    `json:"creator_name" db:"creator_name"`
	Title              string    `json:"title" db:"title"`
	Description        *string   `json:"description,omitempty" db:"description"`
	MainURL            string    `json:"main_url" db:"main_url"`
	EmbedURL           *string   `json:"embed_url,omitempty" db:"embed_url"`
	CustomThumbnailURL *string   `json:"custom_thumbnail_url,omitempty" db:"custom_thumbnail_url"`
	ContentType        string    `json:"content_type" db:"content_type"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	IsFeatured         bool      `json:"is_featured" db:"is_featured"`
	ViewCount          int64     `json:"view_count" db:"view_count"`
	LikeCount          int64     `json:"like_count" db:"like_count"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Premiere Events ────────────────────

type Event struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	CreatorID        uuid.UUID   `json:"creator_id" db:"creator_id"`
	Title            string      `json:"title" db:"title"`
	Description      *string     `json:"description,omitempty" db:"description"`
	Status           EventStatus `json:"status" db:"status"`
	IsTicketed       bool        `json:"is_ticketed" db:"is_ticketed"`
	TicketPriceCents *int        `json:"ticket_price_cents,omitempty" db:"ticket_price_cents"`
	StreamURL        *string     `json:"stream_url,omitempty" db:"stream_url"`
	ContentID        *uuid.UUID  `json:"content_id,omitempty" db:"content_id"`
	ScheduledAt      time.Time   `json:"scheduled_at" db:"scheduled_at"`
	StartedAt        *time.Time  `json:"started_at,omitempty" db:"started_at"`
	EndedAt          *time.Time  `json:"ended_at,omitempty" db:"ended_at"`
	ReminderSent     bool        `json:"-" db:"reminder_sent"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

type Ticket struct {
	ID          uuid.UUID `json:"id" db:"id"`
	EventID     uuid.UUID `json:"event_id" db:"event_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	AmountCents int       `json:"amount_cents" db:"amount_cents"`
	Reference   *string   `json:"reference,omitempty" db:"reference"`
	PurchasedAt time.Time `json:"purchased_at" db:"purchased_at"`
}

type ChatMessage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	EventID   uuid.UUID `json:"event_id" db:"event_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Crowdfunding ────────────────────

type Campaign struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	CreatorID    uuid.UUID      `json:"creator_id" db:"creator_id"`
	Title        string         `json:"title" db:"title"`
	Description  string         `json:"description" db:"description"`
	CoverURL     *string        `json:"cover_url,omitempty" db:"cover_url"`
	GoalCents    int64          `json:"goal_cents" db:"goal_cents"`
	PledgedCents int64          `json:"pledged_cents" db:"pledged_cents"`
	BackerCount  int            `json:"backer_count" db:"backer_count"`
	Status       CampaignStatus `json:"status" db:"status"`
	Deadline     *time.Time     `json:"deadline,omitempty" db:"deadline"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

type Pledge struct {
	ID          uuid.UUID `json:"id" db:"id"`
	CampaignID  uuid.UUID `json:"campaign_id" db:"campaign_id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	Reference   *string   `json:"reference,omitempty" db:"reference"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Opportunities ────────────────────

type Opportunity struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	PostedBy    uuid.UUID  `json:"posted_by" db:"posted_by"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Category    string     `json:"category" db:"category"`
	Location    *string    `json:"location,omitempty" db:"location"`
	ContactURL  *string    `json:"contact_url,omitempty" db:"contact_url"`
	Deadline    *time.Time `json:"deadline,omitempty" db:"deadline"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type OpportunityApplication struct {
	ID            uuid.UUID `json:"id" db:"id"`
	OpportunityID uuid.UUID `json:"opportunity_id" db:"opportunity_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Message       string    `json:"message" db:"message"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Social ────────────────────

type Follow struct {
	FollowerID uuid.UUID `json:"follower_id" db:"follower_id"`
	CreatorID  uuid.UUID `json:"creator_id" db:"creator_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type Block struct {
	BlockerID uuid.UUID `json:"blocker_id" db:"blocker_id"`
	BlockedID uuid.UUID `json:"blocked_id" db:"blocked_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	RefID     *uuid.UUID       `json:"ref_id,omitempty" db:"ref_id"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// NotificationChannel is a creator-configured outbound webhook target.
type NotificationChannel struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	ChannelType string          `json:"channel_type" db:"channel_type"`
	WebhookURL  string          `json:"webhook_url" db:"webhook_url"`
	Config      json.RawMessage `json:"config" db:"config"`
	IsEnabled   bool            `json:"is_enabled" db:"is_enabled"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// GetConfig parses the channel config JSON into a flat string map.
func (c *NotificationChannel) GetConfig() map[string]string {
	out := map[string]string{}
	if len(c.Config) > 0 {
		json.Unmarshal(c.Config, &out)
	}
	return out
}

// ──────────────────── Moderation ────────────────────

type Report struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	ReporterID uuid.UUID    `json:"reporter_id" db:"reporter_id"`
	ContentID  uuid.UUID    `json:"content_id" db:"content_id"`
	Reason     string       `json:"reason" db:"reason"`
	Detail     *string      `json:"detail,omitempty" db:"detail"`
	Status     ReportStatus `json:"status" db:"status"`
	ResolvedBy *uuid.UUID   `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

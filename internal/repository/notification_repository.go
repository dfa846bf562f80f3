package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(n *models.Notification) error {
	return r.db.QueryRow(`
		INSERT INTO notifications (user_id, type, title, body, ref_id)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, is_read, created_at`,
		n.UserID, n.Type, n.Title, n.Body, n.RefID,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

// CreateBatch inserts one notification per recipient in a single transaction.
func (r *NotificationRepository) CreateBatch(userIDs []uuid.UUID, typ models.NotificationType, title, body string, refID *uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO notifications (user_id, type, title, body, ref_id) VALUES ($1,$2,$3,$4,$5)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range userIDs {
		if _, err := stmt.Exec(id, typ, title, body, refID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *NotificationRepository) ListByUser(userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	query := `SELECT id, user_id, type, title, body, ref_id, is_read, created_at
		FROM notifications WHERE user_id=$1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.RefID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) CountUnread(userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read=FALSE`, userID).Scan(&count)
	return count, err
}

func (r *NotificationRepository) MarkRead(id, userID uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE notifications SET is_read=TRUE WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}

func (r *NotificationRepository) MarkAllRead(userID uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND is_read=FALSE`, userID)
	return err
}

// ──────────────────── Channels ────────────────────

func (r *NotificationRepository) CreateChannel(c *models.NotificationChannel) error {
	return r.db.QueryRow(`
		INSERT INTO notification_channels (user_id, name, channel_type, webhook_url, config, is_enabled)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		c.UserID, c.Name, c.ChannelType, c.WebhookURL, c.Config, c.IsEnabled,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *NotificationRepository) GetChannel(id uuid.UUID) (*models.NotificationChannel, error) {
	return scanChannel(r.db.QueryRow(`
		SELECT id, user_id, name, channel_type, webhook_url, config, is_enabled, created_at
		FROM notification_channels WHERE id=$1`, id))
}

func (r *NotificationRepository) ListChannels(userID uuid.UUID) ([]models.NotificationChannel, error) {
	return r.queryChannels(`
		SELECT id, user_id, name, channel_type, webhook_url, config, is_enabled, created_at
		FROM notification_channels WHERE user_id=$1 ORDER BY created_at ASC`, userID)
}

// ListEnabledChannels backs webhook delivery for a creator's events.
func (r *NotificationRepository) ListEnabledChannels(userID uuid.UUID) ([]models.NotificationChannel, error) {
	return r.queryChannels(`
		SELECT id, user_id, name, channel_type, webhook_url, config, is_enabled, created_at
		FROM notification_channels WHERE user_id=$1 AND is_enabled=TRUE`, userID)
}

func (r *NotificationRepository) UpdateChannel(c *models.NotificationChannel) error {
	_, err := r.db.Exec(`
		UPDATE notification_channels SET name=$1, channel_type=$2, webhook_url=$3,
			config=$4, is_enabled=$5
		WHERE id=$6 AND user_id=$7`,
		c.Name, c.ChannelType, c.WebhookURL, c.Config, c.IsEnabled, c.ID, c.UserID)
	return err
}

func (r *NotificationRepository) DeleteChannel(id, userID uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM notification_channels WHERE id=$1 AND user_id=$2`, id, userID)
	return err
}

func scanChannel(row interface{ Scan(...interface{}) error }) (*models.NotificationChannel, error) {
	var c models.NotificationChannel
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.ChannelType, &c.WebhookURL, &c.Config, &c.IsEnabled, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *NotificationRepository) queryChannels(query string, args ...interface{}) ([]models.NotificationChannel, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NotificationChannel
	for rows.Next() {
		c, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, creator_id, title, description, status, is_ticketed, ticket_price_cents,
	stream_url, content_id, scheduled_at, started_at, ended_at, reminder_sent, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.CreatorID, &e.Title, &e.Description, &e.Status, &e.IsTicketed,
		&e.TicketPriceCents, &e.StreamURL, &e.ContentID, &e.ScheduledAt, &e.StartedAt, &e.EndedAt,
		&e.ReminderSent, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EventRepository) Create(e *models.Event) error {
	return r.db.QueryRow(`
		INSERT INTO events (creator_id, title, description, is_ticketed, ticket_price_cents, scheduled_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, status, reminder_sent, created_at, updated_at`,
		e.CreatorID, e.Title, e.Description, e.IsTicketed, e.TicketPriceCents, e.ScheduledAt,
	).Scan(&e.ID, &e.Status, &e.ReminderSent, &e.CreatedAt, &e.UpdatedAt)
}

func (r *EventRepository) GetByID(id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id=$1`, id))
}

func (r *EventRepository) ListUpcoming(limit int) ([]models.Event, error) {
	return r.queryEvents(`
		SELECT `+eventColumns+` FROM events
		WHERE status IN ('upcoming','live')
		ORDER BY scheduled_at ASC LIMIT $1`, limit)
}

func (r *EventRepository) ListByCreator(creatorID uuid.UUID) ([]models.Event, error) {
	return r.queryEvents(`SELECT `+eventColumns+` FROM events WHERE creator_id=$1 ORDER BY scheduled_at DESC`, creatorID)
}

// Start transitions upcoming -> live. Returns sql.ErrNoRows when the event is
// not in a startable state.
func (r *EventRepository) Start(id uuid.UUID, streamURL string) (*models.Event, error) {
	return scanEvent(r.db.QueryRow(`
		UPDATE events SET status='live', stream_url=$1, started_at=NOW(), updated_at=NOW()
		WHERE id=$2 AND status='upcoming'
		RETURNING `+eventColumns, streamURL, id))
}

// End transitions live -> completed, optionally attaching the recorded replay
// as a content item.
func (r *EventRepository) End(id uuid.UUID, contentID *uuid.UUID) (*models.Event, error) {
	return scanEvent(r.db.QueryRow(`
		UPDATE events SET status='completed', content_id=COALESCE($1, content_id),
			ended_at=NOW(), updated_at=NOW()
		WHERE id=$2 AND status='live'
		RETURNING `+eventColumns, contentID, id))
}

// ListDueReminders returns upcoming events whose scheduled time is within the
// lead window and which have not been reminded yet.
func (r *EventRepository) ListDueReminders(lead time.Duration) ([]models.Event, error) {
	return r.queryEvents(`
		SELECT `+eventColumns+` FROM events
		WHERE status='upcoming' AND reminder_sent = FALSE
		  AND scheduled_at <= NOW() + $1::interval AND scheduled_at > NOW()`, lead.String())
}

func (r *EventRepository) MarkReminderSent(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE events SET reminder_sent = TRUE, updated_at=NOW() WHERE id=$1`, id)
	return err
}

// CompleteStale ends live events that started more than maxAge ago. The
// scheduler calls this so an abandoned stream does not stay live forever.
func (r *EventRepository) CompleteStale(maxAge time.Duration) ([]models.Event, error) {
	return r.queryEvents(`
		UPDATE events SET status='completed', ended_at=NOW(), updated_at=NOW()
		WHERE status='live' AND started_at < NOW() - $1::interval
		RETURNING `+eventColumns, maxAge.String())
}

func (r *EventRepository) queryEvents(query string, args ...interface{}) ([]models.Event, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

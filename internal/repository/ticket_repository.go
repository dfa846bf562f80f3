package repository

import (
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/caribbeat/caribbeat/internal/models"
)

var ErrAlreadyPurchased = errors.New("ticket already purchased for this event")

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(t *models.Ticket) error {
	err := r.db.QueryRow(`
		INSERT INTO tickets (event_id, user_id, amount_cents, reference)
		VALUES ($1,$2,$3,$4)
		RETURNING id, purchased_at`,
		t.EventID, t.UserID, t.AmountCents, t.Reference,
	).Scan(&t.ID, &t.PurchasedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrAlreadyPurchased
	}
	return err
}

func (r *TicketRepository) Exists(eventID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM tickets WHERE event_id=$1 AND user_id=$2)`,
		eventID, userID).Scan(&exists)
	return exists, err
}

// ListEventIDsByUser backs the access evaluation context: the set of premieres
// the viewer holds a ticket for.
func (r *TicketRepository) ListEventIDsByUser(userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(`SELECT event_id FROM tickets WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *TicketRepository) ListByEvent(eventID uuid.UUID) ([]models.Ticket, error) {
	rows, err := r.db.Query(`
		SELECT id, event_id, user_id, amount_cents, reference, purchased_at
		FROM tickets WHERE event_id=$1 ORDER BY purchased_at ASC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.UserID, &t.AmountCents, &t.Reference, &t.PurchasedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

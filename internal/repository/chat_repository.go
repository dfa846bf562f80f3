package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(m *models.ChatMessage) error {
	return r.db.QueryRow(`
		INSERT INTO chat_messages (event_id, user_id, username, body)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		m.EventID, m.UserID, m.Username, m.Body,
	).Scan(&m.ID, &m.CreatedAt)
}

// ListRecent returns the latest messages for an event in chronological order.
func (r *ChatRepository) ListRecent(eventID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	rows, err := r.db.Query(`
		SELECT id, event_id, user_id, username, body, created_at
		FROM (
			SELECT id, event_id, user_id, username, body, created_at
			FROM chat_messages WHERE event_id=$1
			ORDER BY created_at DESC LIMIT $2
		) recent
		ORDER BY created_at ASC`, eventID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.EventID, &m.UserID, &m.Username, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ChatRepository) DeleteByEvent(eventID uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM chat_messages WHERE event_id=$1`, eventID)
	return err
}

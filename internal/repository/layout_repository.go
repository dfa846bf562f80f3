package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/caribbeat/caribbeat/internal/curation"
)

// LayoutRepository persists the curated home layout and the automated slots.
// The layout is a single jsonb row; slots are one row per position so a lock
// flip never rewrites its neighbors.
type LayoutRepository struct {
	db *sql.DB
}

func NewLayoutRepository(db *sql.DB) *LayoutRepository {
	return &LayoutRepository{db: db}
}

func (r *LayoutRepository) GetLayout() (*curation.LayoutDoc, error) {
	var raw []byte
	err := r.db.QueryRow(`SELECT doc FROM home_layout WHERE id = 1`).Scan(&raw)
	if err == sql.ErrNoRows {
		return &curation.LayoutDoc{}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc curation.LayoutDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *LayoutRepository) SaveLayout(doc *curation.LayoutDoc) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO home_layout (id, doc, updated_at) VALUES (1, $1, NOW())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`, raw)
	return err
}

func (r *LayoutRepository) GetSlots() (*curation.SlotsDoc, error) {
	rows, err := r.db.Query(`SELECT slot_no, is_locked, content FROM automated_slots ORDER BY slot_no`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doc curation.SlotsDoc
	for rows.Next() {
		var (
			n      int
			locked bool
			raw    []byte
		)
		if err := rows.Scan(&n, &locked, &raw); err != nil {
			return nil, err
		}
		slot := curation.Slot{IsLocked: locked}
		if len(raw) > 0 {
			var c curation.Content
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, err
			}
			slot.Content = &c
		}
		doc.SetSlot(n, slot)
	}
	return &doc, rows.Err()
}

func (r *LayoutRepository) SaveSlot(n int, slot curation.Slot) error {
	var raw []byte
	if slot.Content != nil {
		b, err := json.Marshal(slot.Content)
		if err != nil {
			return err
		}
		raw = b
	}
	_, err := r.db.Exec(`
		INSERT INTO automated_slots (slot_no, is_locked, content, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (slot_no) DO UPDATE SET is_locked = EXCLUDED.is_locked,
			content = EXCLUDED.content, updated_at = NOW()`, n, slot.IsLocked, raw)
	return err
}

func (r *LayoutRepository) SaveSlots(doc *curation.SlotsDoc) error {
	for i, slot := range doc.All() {
		if err := r.SaveSlot(i+1, slot); err != nil {
			return err
		}
	}
	return nil
}

func (r *LayoutRepository) SetSlotLock(n int, locked bool) error {
	_, err := r.db.Exec(`
		INSERT INTO automated_slots (slot_no, is_locked, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (slot_no) DO UPDATE SET is_locked = EXCLUDED.is_locked, updated_at = NOW()`, n, locked)
	return err
}

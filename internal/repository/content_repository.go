package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, creator_id, creator_name, title, description, main_url, embed_url,
	custom_thumbnail_url, content_type, is_active, is_featured, view_count, like_count,
	created_at, updated_at`

func scanContent(row interface{ Scan(...interface{}) error }) (*models.ContentItem, error) {
	var c models.ContentItem
	err := row.Scan(&c.ID, &c.CreatorID, &c.CreatorName, &c.Title, &c.Description, &c.MainURL,
		&c.EmbedURL, &c.CustomThumbnailURL, &c.ContentType, &c.IsActive, &c.IsFeatured,
		&c.ViewCount, &c.LikeCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContentRepository) Create(c *models.ContentItem) error {
	return r.db.QueryRow(`
		INSERT INTO content_items (creator_id, creator_name, title, description, main_url,
			embed_url, custom_thumbnail_url, content_type, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, is_featured, view_count, like_count, created_at, updated_at`,
		c.CreatorID, c.CreatorName, c.Title, c.Description, c.MainURL,
		c.EmbedURL, c.CustomThumbnailURL, c.ContentType, c.IsActive,
	).Scan(&c.ID, &c.IsFeatured, &c.ViewCount, &c.LikeCount, &c.CreatedAt, &c.UpdatedAt)
}

func (r *ContentRepository) GetByID(id uuid.UUID) (*models.ContentItem, error) {
	return scanContent(r.db.QueryRow(`SELECT `+contentColumns+` FROM content_items WHERE id=$1`, id))
}

func (r *ContentRepository) Update(c *models.ContentItem) error {
	_, err := r.db.Exec(`
		UPDATE content_items SET title=$1, description=$2, main_url=$3, embed_url=$4,
			custom_thumbnail_url=$5, content_type=$6, updated_at=NOW()
		WHERE id=$7`,
		c.Title, c.Description, c.MainURL, c.EmbedURL, c.CustomThumbnailURL, c.ContentType, c.ID)
	return err
}

// SetActive flips moderation visibility. The caller republishes the content
// document so live feeds converge.
func (r *ContentRepository) SetActive(id uuid.UUID, active bool) error {
	_, err := r.db.Exec(`UPDATE content_items SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	return err
}

func (r *ContentRepository) SetFeatured(id uuid.UUID, featured bool) error {
	_, err := r.db.Exec(`UPDATE content_items SET is_featured=$1, updated_at=NOW() WHERE id=$2`, featured, id)
	return err
}

func (r *ContentRepository) Delete(id uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM content_items WHERE id=$1`, id)
	return err
}

// RecordView appends a view event and bumps the denormalized counter.
func (r *ContentRepository) RecordView(contentID uuid.UUID, userID *uuid.UUID) (int64, error) {
	if _, err := r.db.Exec(`INSERT INTO view_events (content_id, user_id) VALUES ($1, $2)`, contentID, userID); err != nil {
		return 0, err
	}
	var count int64
	err := r.db.QueryRow(`
		UPDATE content_items SET view_count = view_count + 1, updated_at=NOW()
		WHERE id=$1 RETURNING view_count`, contentID).Scan(&count)
	return count, err
}

func (r *ContentRepository) AddLike(contentID, userID uuid.UUID) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO content_likes (content_id, user_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, contentID, userID)
	if err != nil {
		return 0, err
	}
	var count int64
	if n, _ := res.RowsAffected(); n > 0 {
		err = r.db.QueryRow(`UPDATE content_items SET like_count = like_count + 1 WHERE id=$1 RETURNING like_count`, contentID).Scan(&count)
	} else {
		err = r.db.QueryRow(`SELECT like_count FROM content_items WHERE id=$1`, contentID).Scan(&count)
	}
	return count, err
}

func (r *ContentRepository) ListActive(contentType string, limit, offset int) ([]models.ContentItem, error) {
	query := `SELECT ` + contentColumns + ` FROM content_items WHERE is_active = TRUE`
	args := []interface{}{}
	if contentType != "" {
		query += ` AND content_type = $1`
		args = append(args, contentType)
	}
	query += ` ORDER BY created_at DESC`
	args = append(args, limit, offset)
	if contentType != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	return r.queryContent(query, args...)
}

func (r *ContentRepository) ListByCreator(creatorID uuid.UUID) ([]models.ContentItem, error) {
	return r.queryContent(`SELECT `+contentColumns+` FROM content_items WHERE creator_id=$1 ORDER BY created_at DESC`, creatorID)
}

// GetByIDs returns the items for ids, active or not; missing ids are simply
// absent from the result.
func (r *ContentRepository) GetByIDs(ids []uuid.UUID) ([]models.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.queryContent(`SELECT `+contentColumns+` FROM content_items WHERE id = ANY($1)`, idArray(ids))
}

// TopPerformers returns the most viewed active items inside the engagement
// window, used to fill unlocked automated slots.
func (r *ContentRepository) TopPerformers(window time.Duration, limit int) ([]models.ContentItem, error) {
	return r.queryContent(`
		SELECT c.id, c.creator_id, c.creator_name, c.title, c.description, c.main_url, c.embed_url,
			c.custom_thumbnail_url, c.content_type, c.is_active, c.is_featured, c.view_count, c.like_count,
			c.created_at, c.updated_at
		FROM content_items c
		LEFT JOIN view_events v ON v.content_id = c.id AND v.viewed_at > NOW() - $1::interval
		WHERE c.is_active = TRUE
		GROUP BY c.id
		ORDER BY COUNT(v.id) DESC, c.view_count DESC, c.created_at DESC
		LIMIT $2`, window.String(), limit)
}

// ListViewedSince returns active items that received views inside the window,
// for periodic republish of their live documents.
func (r *ContentRepository) ListViewedSince(window time.Duration) ([]models.ContentItem, error) {
	return r.queryContent(`
		SELECT DISTINCT c.id, c.creator_id, c.creator_name, c.title, c.description, c.main_url, c.embed_url,
			c.custom_thumbnail_url, c.content_type, c.is_active, c.is_featured, c.view_count, c.like_count,
			c.created_at, c.updated_at
		FROM content_items c
		JOIN view_events v ON v.content_id = c.id
		WHERE c.is_active = TRUE AND v.viewed_at > NOW() - $1::interval`, window.String())
}

func (r *ContentRepository) queryContent(query string, args ...interface{}) ([]models.ContentItem, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ContentItem
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

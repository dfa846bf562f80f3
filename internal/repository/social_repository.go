package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

// SocialRepository covers follows and blocks. Blocks always trump follows:
// follower listings exclude anyone the creator has blocked.
type SocialRepository struct {
	db *sql.DB
}

func NewSocialRepository(db *sql.DB) *SocialRepository {
	return &SocialRepository{db: db}
}

func (r *SocialRepository) Follow(followerID, creatorID uuid.UUID) error {
	_, err := r.db.Exec(`
		INSERT INTO follows (follower_id, creator_id) VALUES ($1,$2)
		ON CONFLICT DO NOTHING`, followerID, creatorID)
	return err
}

func (r *SocialRepository) Unfollow(followerID, creatorID uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM follows WHERE follower_id=$1 AND creator_id=$2`, followerID, creatorID)
	return err
}

func (r *SocialRepository) IsFollowing(followerID, creatorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id=$1 AND creator_id=$2)`,
		followerID, creatorID).Scan(&exists)
	return exists, err
}

// Block removes any follow edges between the two users in both directions.
func (r *SocialRepository) Block(blockerID, blockedID uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO blocks (blocker_id, blocked_id) VALUES ($1,$2)
		ON CONFLICT DO NOTHING`, blockerID, blockedID); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM follows
		WHERE (follower_id=$1 AND creator_id=$2) OR (follower_id=$2 AND creator_id=$1)`,
		blockerID, blockedID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SocialRepository) Unblock(blockerID, blockedID uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM blocks WHERE blocker_id=$1 AND blocked_id=$2`, blockerID, blockedID)
	return err
}

func (r *SocialRepository) IsBlocked(blockerID, blockedID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM blocks WHERE blocker_id=$1 AND blocked_id=$2)`,
		blockerID, blockedID).Scan(&exists)
	return exists, err
}

// ListFollowerIDs returns everyone following the creator, minus users blocked
// by the creator. Backs notification fan-out.
func (r *SocialRepository) ListFollowerIDs(creatorID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(`
		SELECT f.follower_id FROM follows f
		WHERE f.creator_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE b.blocker_id = $1 AND b.blocked_id = f.follower_id)`, creatorID)
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

func (r *SocialRepository) ListFollowing(followerID uuid.UUID) ([]models.Follow, error) {
	rows, err := r.db.Query(`
		SELECT follower_id, creator_id, created_at FROM follows
		WHERE follower_id=$1 ORDER BY created_at DESC`, followerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Follow
	for rows.Next() {
		var f models.Follow
		if err := rows.Scan(&f.FollowerID, &f.CreatorID, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *SocialRepository) CountFollowers(creatorID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM follows WHERE creator_id=$1`, creatorID).Scan(&count)
	return count, err
}

package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, creator_id, title, description, cover_url, goal_cents,
	pledged_cents, backer_count, status, deadline, created_at, updated_at`

func scanCampaign(row interface{ Scan(...interface{}) error }) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.CreatorID, &c.Title, &c.Description, &c.CoverURL, &c.GoalCents,
		&c.PledgedCents, &c.BackerCount, &c.Status, &c.Deadline, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) Create(c *models.Campaign) error {
	return r.db.QueryRow(`
		INSERT INTO campaigns (creator_id, title, description, cover_url, goal_cents, deadline)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, pledged_cents, backer_count, status, created_at, updated_at`,
		c.CreatorID, c.Title, c.Description, c.CoverURL, c.GoalCents, c.Deadline,
	).Scan(&c.ID, &c.PledgedCents, &c.BackerCount, &c.Status, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepository) GetByID(id uuid.UUID) (*models.Campaign, error) {
	return scanCampaign(r.db.QueryRow(`SELECT `+campaignColumns+` FROM campaigns WHERE id=$1`, id))
}

func (r *CampaignRepository) ListActive(limit, offset int) ([]models.Campaign, error) {
	return r.queryCampaigns(`
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status='active' ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
}

func (r *CampaignRepository) ListByCreator(creatorID uuid.UUID) ([]models.Campaign, error) {
	return r.queryCampaigns(`SELECT `+campaignColumns+` FROM campaigns WHERE creator_id=$1 ORDER BY created_at DESC`, creatorID)
}

func (r *CampaignRepository) SetStatus(id uuid.UUID, status models.CampaignStatus) error {
	_, err := r.db.Exec(`UPDATE campaigns SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

// AddPledge records the pledge and rolls it into the campaign counters inside
// one transaction. A repeat backer does not bump backer_count twice.
func (r *CampaignRepository) AddPledge(p *models.Pledge) (*models.Campaign, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var prior int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM pledges WHERE campaign_id=$1 AND user_id=$2`,
		p.CampaignID, p.UserID).Scan(&prior); err != nil {
		return nil, err
	}

	if err := tx.QueryRow(`
		INSERT INTO pledges (campaign_id, user_id, amount_cents, reference)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`,
		p.CampaignID, p.UserID, p.AmountCents, p.Reference,
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return nil, err
	}

	newBacker := 0
	if prior == 0 {
		newBacker = 1
	}
	campaign, err := scanCampaign(tx.QueryRow(`
		UPDATE campaigns SET pledged_cents = pledged_cents + $1,
			backer_count = backer_count + $2, updated_at=NOW()
		WHERE id=$3 AND status='active'
		RETURNING `+campaignColumns, p.AmountCents, newBacker, p.CampaignID))
	if err != nil {
		return nil, err
	}
	return campaign, tx.Commit()
}

func (r *CampaignRepository) ListPledges(campaignID uuid.UUID) ([]models.Pledge, error) {
	rows, err := r.db.Query(`
		SELECT id, campaign_id, user_id, amount_cents, reference, created_at
		FROM pledges WHERE campaign_id=$1 ORDER BY created_at DESC`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pledge
	for rows.Next() {
		var p models.Pledge
		if err := rows.Scan(&p.ID, &p.CampaignID, &p.UserID, &p.AmountCents, &p.Reference, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CloseExpired marks active campaigns past their deadline as funded or closed
// depending on whether the goal was met.
func (r *CampaignRepository) CloseExpired() (int64, error) {
	res, err := r.db.Exec(`
		UPDATE campaigns SET
			status = CASE WHEN pledged_cents >= goal_cents THEN 'funded' ELSE 'closed' END,
			updated_at = NOW()
		WHERE status='active' AND deadline IS NOT NULL AND deadline < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *CampaignRepository) queryCampaigns(query string, args ...interface{}) ([]models.Campaign, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

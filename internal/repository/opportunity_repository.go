package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type OpportunityRepository struct {
	db *sql.DB
}

func NewOpportunityRepository(db *sql.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

const opportunityColumns = `id, posted_by, title, description, category, location,
	contact_url, deadline, is_active, created_at, updated_at`

func scanOpportunity(row interface{ Scan(...interface{}) error }) (*models.Opportunity, error) {
	var o models.Opportunity
	err := row.Scan(&o.ID, &o.PostedBy, &o.Title, &o.Description, &o.Category, &o.Location,
		&o.ContactURL, &o.Deadline, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OpportunityRepository) Create(o *models.Opportunity) error {
	return r.db.QueryRow(`
		INSERT INTO opportunities (posted_by, title, description, category, location, contact_url, deadline)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, is_active, created_at, updated_at`,
		o.PostedBy, o.Title, o.Description, o.Category, o.Location, o.ContactURL, o.Deadline,
	).Scan(&o.ID, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
}

func (r *OpportunityRepository) GetByID(id uuid.UUID) (*models.Opportunity, error) {
	return scanOpportunity(r.db.QueryRow(`SELECT `+opportunityColumns+` FROM opportunities WHERE id=$1`, id))
}

func (r *OpportunityRepository) Update(o *models.Opportunity) error {
	_, err := r.db.Exec(`
		UPDATE opportunities SET title=$1, description=$2, category=$3, location=$4,
			contact_url=$5, deadline=$6, updated_at=NOW()
		WHERE id=$7`,
		o.Title, o.Description, o.Category, o.Location, o.ContactURL, o.Deadline, o.ID)
	return err
}

func (r *OpportunityRepository) SetActive(id uuid.UUID, active bool) error {
	_, err := r.db.Exec(`UPDATE opportunities SET is_active=$1, updated_at=NOW() WHERE id=$2`, active, id)
	return err
}

// ListActive filters out postings whose deadline has passed.
func (r *OpportunityRepository) ListActive(category string, limit, offset int) ([]models.Opportunity, error) {
	query := `SELECT ` + opportunityColumns + ` FROM opportunities
		WHERE is_active = TRUE AND (deadline IS NULL OR deadline > NOW())`
	args := []interface{}{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`
	if category != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (r *OpportunityRepository) CreateApplication(a *models.OpportunityApplication) error {
	return r.db.QueryRow(`
		INSERT INTO opportunity_applications (opportunity_id, user_id, message)
		VALUES ($1,$2,$3)
		ON CONFLICT (opportunity_id, user_id) DO UPDATE SET message = EXCLUDED.message
		RETURNING id, created_at`,
		a.OpportunityID, a.UserID, a.Message,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *OpportunityRepository) ListApplications(opportunityID uuid.UUID) ([]models.OpportunityApplication, error) {
	rows, err := r.db.Query(`
		SELECT id, opportunity_id, user_id, message, created_at
		FROM opportunity_applications WHERE opportunity_id=$1 ORDER BY created_at ASC`, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OpportunityApplication
	for rows.Next() {
		var a models.OpportunityApplication
		if err := rows.Scan(&a.ID, &a.OpportunityID, &a.UserID, &a.Message, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

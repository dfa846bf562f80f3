package repository

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/caribbeat/caribbeat/internal/models"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, reporter_id, content_id, reason, detail, status, resolved_by, resolved_at, created_at`

func scanReport(row interface{ Scan(...interface{}) error }) (*models.Report, error) {
	var rep models.Report
	err := row.Scan(&rep.ID, &rep.ReporterID, &rep.ContentID, &rep.Reason, &rep.Detail,
		&rep.Status, &rep.ResolvedBy, &rep.ResolvedAt, &rep.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) Create(rep *models.Report) error {
	return r.db.QueryRow(`
		INSERT INTO reports (reporter_id, content_id, reason, detail)
		VALUES ($1,$2,$3,$4)
		RETURNING id, status, created_at`,
		rep.ReporterID, rep.ContentID, rep.Reason, rep.Detail,
	).Scan(&rep.ID, &rep.Status, &rep.CreatedAt)
}

func (r *ReportRepository) GetByID(id uuid.UUID) (*models.Report, error) {
	return scanReport(r.db.QueryRow(`SELECT `+reportColumns+` FROM reports WHERE id=$1`, id))
}

func (r *ReportRepository) ListByStatus(status models.ReportStatus, limit, offset int) ([]models.Report, error) {
	rows, err := r.db.Query(`
		SELECT `+reportColumns+` FROM reports WHERE status=$1
		ORDER BY created_at ASC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rep)
	}
	return out, rows.Err()
}

func (r *ReportRepository) Resolve(id, resolverID uuid.UUID, status models.ReportStatus) (*models.Report, error) {
	return scanReport(r.db.QueryRow(`
		UPDATE reports SET status=$1, resolved_by=$2, resolved_at=NOW()
		WHERE id=$3 AND status='open'
		RETURNING `+reportColumns, status, resolverID, id))
}

func (r *ReportRepository) CountOpen() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM reports WHERE status='open'`).Scan(&count)
	return count, err
}

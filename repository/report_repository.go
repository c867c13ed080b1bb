package repository

import (
	"context"

	"maljrs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReportRepository handles database operations for analysis reports
type ReportRepository struct {
	db *pgxpool.Pool
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create creates a new stored report
func (r *ReportRepository) Create(ctx context.Context, report *models.StoredReport) error {
	query := `
		INSERT INTO reports (case_id, options, report, archive_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		report.CaseID,
		report.Options,
		report.Report,
		report.ArchivePath,
	).Scan(&report.ID, &report.CreatedAt)

	return err
}

// GetByID retrieves a report by ID
func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoredReport, error) {
	report := &models.StoredReport{}
	query := `
		SELECT id, case_id, options, report, archive_path, created_at
		FROM reports
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&report.ID,
		&report.CaseID,
		&report.Options,
		&report.Report,
		&report.ArchivePath,
		&report.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return report, nil
}

// GetLatestByCaseID retrieves the most recent report for a case
func (r *ReportRepository) GetLatestByCaseID(ctx context.Context, caseID uuid.UUID) (*models.StoredReport, error) {
	report := &models.StoredReport{}
	query := `
		SELECT id, case_id, options, report, archive_path, created_at
		FROM reports
		WHERE case_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, caseID).Scan(
		&report.ID,
		&report.CaseID,
		&report.Options,
		&report.Report,
		&report.ArchivePath,
		&report.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	return report, nil
}

// ListByCaseID retrieves all reports for a case, newest first
func (r *ReportRepository) ListByCaseID(ctx context.Context, caseID uuid.UUID) ([]*models.StoredReport, error) {
	query := `
		SELECT id, case_id, options, report, archive_path, created_at
		FROM reports
		WHERE case_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []*models.StoredReport
	for rows.Next() {
		report := &models.StoredReport{}
		err := rows.Scan(
			&report.ID,
			&report.CaseID,
			&report.Options,
			&report.Report,
			&report.ArchivePath,
			&report.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

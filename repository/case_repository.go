package repository

import (
	"context"
	"fmt"

	"maljrs-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRepository handles database operations for cases
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create creates a new case
func (r *CaseRepository) Create(ctx context.Context, c *models.StoredCase) error {
	query := `
		INSERT INTO cases (status, record)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		c.Status,
		c.Record,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	return err
}

// GetByID retrieves a case by ID
func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StoredCase, error) {
	c := &models.StoredCase{}
	query := `
		SELECT id, status, record, created_at, updated_at, completed_at
		FROM cases
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Status,
		&c.Record,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	return c, nil
}

// Update updates a case
func (r *CaseRepository) Update(ctx context.Context, c *models.StoredCase) error {
	query := `
		UPDATE cases SET
			status = $2,
			record = $3,
			completed_at = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(
		ctx, query,
		c.ID,
		c.Status,
		c.Record,
		c.CompletedAt,
	).Scan(&c.UpdatedAt)

	return err
}

// UpdateStatus updates only the status of a case
func (r *CaseRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.CaseStatus) error {
	query := `
		UPDATE cases SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// List retrieves cases, optionally filtered by status
func (r *CaseRepository) List(ctx context.Context, status *models.CaseStatus, limit, offset int) ([]*models.StoredCase, error) {
	query := `
		SELECT id, status, record, created_at, updated_at, completed_at
		FROM cases`

	args := []interface{}{}
	argIndex := 1

	if status != nil {
		query += fmt.Sprintf(" WHERE status = $%d", argIndex)
		args = append(args, *status)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, limit)
		argIndex++
		if offset > 0 {
			query += fmt.Sprintf(" OFFSET $%d", argIndex)
			args = append(args, offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*models.StoredCase
	for rows.Next() {
		c := &models.StoredCase{}
		err := rows.Scan(
			&c.ID,
			&c.Status,
			&c.Record,
			&c.CreatedAt,
			&c.UpdatedAt,
			&c.CompletedAt,
		)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

// Delete deletes a case
func (r *CaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM cases WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

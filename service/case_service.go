package service

import (
	"context"
	"errors"

	"maljrs-backend/models"
	"maljrs-backend/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrCaseNotFound is returned when a requested case does not exist
var ErrCaseNotFound = errors.New("case not found")

// CaseService handles business logic for cases
type CaseService struct {
	caseRepo   *repository.CaseRepository
	reportRepo *repository.ReportRepository
	cache      *ResultCache
}

// CaseServiceOption is a functional option for CaseService
type CaseServiceOption func(*CaseService)

// WithCaseRepository sets the case repository
func WithCaseRepository(repo *repository.CaseRepository) CaseServiceOption {
	return func(s *CaseService) {
		s.caseRepo = repo
	}
}

// WithReportRepository sets the report repository
func WithReportRepository(repo *repository.ReportRepository) CaseServiceOption {
	return func(s *CaseService) {
		s.reportRepo = repo
	}
}

// WithResultCache sets the analysis result cache so cached reports for a
// case are dropped when its record changes
func WithResultCache(cache *ResultCache) CaseServiceOption {
	return func(s *CaseService) {
		s.cache = cache
	}
}

// NewCaseService creates a new case service
func NewCaseService(opts ...CaseServiceOption) *CaseService {
	s := &CaseService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCaseRequest represents a request to create a case
type CreateCaseRequest struct {
	Record models.CaseRecord
}

// CreateCaseResult represents the result of creating a case
type CreateCaseResult struct {
	Case *models.StoredCase
}

// CreateCase stores a new case in draft status. The record is accepted as
// given; referential checks happen when an analysis is requested.
func (s *CaseService) CreateCase(ctx context.Context, req CreateCaseRequest) (*CreateCaseResult, error) {
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}

	c := &models.StoredCase{
		Status: models.CaseStatusDraft,
		Record: req.Record,
	}

	err := s.caseRepo.Create(ctx, c)
	if err != nil {
		return nil, err
	}

	return &CreateCaseResult{Case: c}, nil
}

// GetCaseRequest represents a request to get a case
type GetCaseRequest struct {
	ID uuid.UUID
}

// GetCaseResult represents the result of getting a case
type GetCaseResult struct {
	Case *models.StoredCase
}

// GetCase retrieves a case by ID
func (s *CaseService) GetCase(ctx context.Context, req GetCaseRequest) (*GetCaseResult, error) {
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}

	c, err := s.caseRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}

	return &GetCaseResult{Case: c}, nil
}

// UpdateCaseRequest represents a request to update a case
type UpdateCaseRequest struct {
	ID     uuid.UUID
	Record models.CaseRecord
}

// UpdateCaseResult represents the result of updating a case
type UpdateCaseResult struct {
	Case *models.StoredCase
}

// UpdateCase replaces a case's record
func (s *CaseService) UpdateCase(ctx context.Context, req UpdateCaseRequest) (*UpdateCaseResult, error) {
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}

	c, err := s.caseRepo.GetByID(ctx, req.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}

	c.Record = req.Record
	if err := s.caseRepo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.invalidateCachedReports(req.ID)

	return &UpdateCaseResult{Case: c}, nil
}

// UpdateCaseStatusRequest represents a request to change a case's status
type UpdateCaseStatusRequest struct {
	ID     uuid.UUID
	Status models.CaseStatus
}

// UpdateCaseStatusResult represents the result of a status change
type UpdateCaseStatusResult struct{}

// UpdateCaseStatus updates only the status of a case
func (s *CaseService) UpdateCaseStatus(ctx context.Context, req UpdateCaseStatusRequest) (*UpdateCaseStatusResult, error) {
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}

	if err := s.caseRepo.UpdateStatus(ctx, req.ID, req.Status); err != nil {
		return nil, err
	}

	return &UpdateCaseStatusResult{}, nil
}

// ListCasesRequest represents a request to list cases
type ListCasesRequest struct {
	Status *models.CaseStatus
	Limit  int
	Offset int
}

// ListCasesResult represents the result of listing cases
type ListCasesResult struct {
	Cases []*models.StoredCase
}

// ListCases lists cases, optionally filtered by status
func (s *CaseService) ListCases(ctx context.Context, req ListCasesRequest) (*ListCasesResult, error) {
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}

	cases, err := s.caseRepo.List(ctx, req.Status, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	return &ListCasesResult{Cases: cases}, nil
}

// DeleteCaseRequest represents a request to delete a case
type DeleteCaseRequest struct {
	ID uuid.UUID
}

// DeleteCaseResult represents the result of deleting a case
type DeleteCaseResult struct{}

// DeleteCase deletes a case
func (s *CaseService) DeleteCase(ctx context.Context, req DeleteCaseRequest) (*DeleteCaseResult, error) {
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}

	if err := s.caseRepo.Delete(ctx, req.ID); err != nil {
		return nil, err
	}
	s.invalidateCachedReports(req.ID)

	return &DeleteCaseResult{}, nil
}

// invalidateCachedReports drops every cached report keyed to the case. The
// key scope prefix matches what Analyze uses for stored cases.
func (s *CaseService) invalidateCachedReports(id uuid.UUID) {
	if s.cache == nil {
		return
	}
	s.cache.InvalidatePrefix(id.String() + ":")
}

// GetCaseReportsRequest represents a request to list a case's reports
type GetCaseReportsRequest struct {
	CaseID uuid.UUID
}

// GetCaseReportsResult represents the result of listing a case's reports
type GetCaseReportsResult struct {
	Reports []*models.StoredReport
}

// GetCaseReports lists the stored analysis reports for a case, newest first
func (s *CaseService) GetCaseReports(ctx context.Context, req GetCaseReportsRequest) (*GetCaseReportsResult, error) {
	if s.reportRepo == nil {
		return nil, errors.New("report repository not set")
	}

	reports, err := s.reportRepo.ListByCaseID(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}

	return &GetCaseReportsResult{Reports: reports}, nil
}

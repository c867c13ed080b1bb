package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"maljrs-backend/models"
	"maljrs-backend/narrative"
	"maljrs-backend/pipeline"
	"maljrs-backend/repository"
	"maljrs-backend/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AnalysisService runs the analysis pipeline over case records and manages
// the resulting reports: caching, persistence and archiving.
type AnalysisService struct {
	registry   *pipeline.Registry
	executor   *pipeline.Executor
	cache      *ResultCache
	caseRepo   *repository.CaseRepository
	reportRepo *repository.ReportRepository
	storage    storage.Storage
}

// AnalysisServiceOption is a functional option for AnalysisService
type AnalysisServiceOption func(*AnalysisService)

// AnalysisWithRegistry sets the stage registry
func AnalysisWithRegistry(registry *pipeline.Registry) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.registry = registry
	}
}

// AnalysisWithExecutor sets the pipeline executor
func AnalysisWithExecutor(executor *pipeline.Executor) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.executor = executor
	}
}

// AnalysisWithCache sets the result cache
func AnalysisWithCache(cache *ResultCache) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.cache = cache
	}
}

// AnalysisWithCaseRepository sets the case repository
func AnalysisWithCaseRepository(repo *repository.CaseRepository) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.caseRepo = repo
	}
}

// AnalysisWithReportRepository sets the report repository
func AnalysisWithReportRepository(repo *repository.ReportRepository) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.reportRepo = repo
	}
}

// AnalysisWithStorage sets the archive storage backend
func AnalysisWithStorage(store storage.Storage) AnalysisServiceOption {
	return func(s *AnalysisService) {
		s.storage = store
	}
}

// NewAnalysisService creates an analysis service. A registry and an executor
// are required; cache, repositories and storage are optional.
func NewAnalysisService(opts ...AnalysisServiceOption) (*AnalysisService, error) {
	s := &AnalysisService{}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		return nil, errors.New("analysis service requires a stage registry")
	}
	if s.executor == nil {
		return nil, errors.New("analysis service requires an executor")
	}
	return s, nil
}

// AnalyzeRequest represents a request to analyze a case. Either CaseID or
// Record must be set; empty Options means a full analysis.
type AnalyzeRequest struct {
	CaseID  *uuid.UUID
	Record  *models.CaseRecord
	Options []string
}

// AnalyzeResult represents the result of an analysis run
type AnalyzeResult struct {
	Report    *models.Report
	StoredID  *uuid.UUID
	FromCache bool
	Narrative string
}

// Analyze compiles the case record into a narrative, runs the requested
// stages and assembles the report. Reports are cached per record and option
// set; persistence and archiving failures are logged but never fail the run.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalyzeResult, error) {
	record, storedCase, err := s.resolveRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	options := req.Options
	if len(options) == 0 {
		options = []string{pipeline.OptionFullAnalysis}
	}

	requested, err := s.registry.ResolveOptions(options)
	if err != nil {
		return nil, err
	}

	narrativeText, err := narrative.Compile(record)
	if err != nil {
		return nil, err
	}

	scope := ""
	if storedCase != nil {
		scope = storedCase.ID.String()
	}
	key := CacheKey(scope, record, options)
	if s.cache != nil {
		if report, ok := s.cache.Get(key); ok {
			return &AnalyzeResult{Report: report, FromCache: true, Narrative: narrativeText}, nil
		}
	}

	if storedCase != nil && s.caseRepo != nil {
		if err := s.caseRepo.UpdateStatus(ctx, storedCase.ID, models.CaseStatusAnalyzing); err != nil {
			log.Printf("Warning: failed to mark case %s as analyzing: %v", storedCase.ID, err)
		}
	}

	report, err := s.executor.Run(ctx, narrativeText, requested)
	if err != nil {
		return nil, fmt.Errorf("analysis run failed: %w", err)
	}

	result := &AnalyzeResult{Report: report, Narrative: narrativeText}
	s.persist(ctx, storedCase, options, report, result)

	if s.cache != nil {
		s.cache.Set(key, report)
	}

	return result, nil
}

// resolveRecord loads the record from the case repository when a case ID was
// given, otherwise it uses the inline record.
func (s *AnalysisService) resolveRecord(ctx context.Context, req AnalyzeRequest) (*models.CaseRecord, *models.StoredCase, error) {
	if req.CaseID != nil {
		if s.caseRepo == nil {
			return nil, nil, errors.New("case repository not set")
		}
		storedCase, err := s.caseRepo.GetByID(ctx, *req.CaseID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil, ErrCaseNotFound
			}
			return nil, nil, err
		}
		return &storedCase.Record, storedCase, nil
	}
	if req.Record == nil {
		return nil, nil, errors.New("either a case ID or a case record is required")
	}
	return req.Record, nil, nil
}

// persist stores the report, marks the case completed and archives a
// plain-text rendering. All three are best effort.
func (s *AnalysisService) persist(ctx context.Context, storedCase *models.StoredCase, options []string, report *models.Report, result *AnalyzeResult) {
	if storedCase == nil {
		return
	}

	var archivePath *string
	if s.storage != nil {
		text := FormatReportText(storedCase.Record.CaseTitle, report)
		archiveID := uuid.New()
		path, err := s.storage.Upload(ctx, archiveID, fmt.Sprintf("report_%s.txt", storedCase.ID), strings.NewReader(text))
		if err != nil {
			log.Printf("Warning: failed to archive report for case %s: %v", storedCase.ID, err)
		} else {
			archivePath = &path
		}
	}

	if s.reportRepo != nil {
		stored := &models.StoredReport{
			CaseID:      storedCase.ID,
			Options:     options,
			Report:      *report,
			ArchivePath: archivePath,
		}
		if err := s.reportRepo.Create(ctx, stored); err != nil {
			log.Printf("Warning: failed to persist report for case %s: %v", storedCase.ID, err)
		} else {
			result.StoredID = &stored.ID
		}
	}

	if s.caseRepo != nil {
		now := time.Now().UTC()
		storedCase.Status = models.CaseStatusCompleted
		storedCase.CompletedAt = &now
		if err := s.caseRepo.Update(ctx, storedCase); err != nil {
			log.Printf("Warning: failed to mark case %s as completed: %v", storedCase.ID, err)
		}
	}
}

// CacheStats returns cache counters, or zeros when no cache is configured.
func (s *AnalysisService) CacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

// ClearCache drops all cached reports.
func (s *AnalysisService) ClearCache() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// FormatReportText renders a report as a plain-text document suitable for
// archiving or download.
func FormatReportText(caseTitle string, report *models.Report) string {
	var b strings.Builder
	rule := strings.Repeat("=", 60)

	b.WriteString(rule + "\n")
	b.WriteString("LEGAL ANALYSIS REPORT\n")
	if caseTitle != "" {
		b.WriteString("Case: " + caseTitle + "\n")
	}
	b.WriteString("Generated: " + report.GeneratedAt.Format(time.RFC3339) + "\n")
	b.WriteString("Status: " + string(report.Status) + "\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("EXECUTIVE SUMMARY\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	b.WriteString(report.ExecutiveSummary + "\n\n")

	for _, entry := range report.Stages {
		b.WriteString(strings.ToUpper(entry.Name) + "\n")
		b.WriteString(strings.Repeat("-", 40) + "\n")
		b.WriteString("Status: " + string(entry.Result.Status) + "\n")
		if entry.Result.FailReason != "" {
			b.WriteString("Reason: " + entry.Result.FailReason + "\n")
		}
		if len(entry.Result.MissingRequired) > 0 {
			b.WriteString("Missing required fields: " + strings.Join(entry.Result.MissingRequired, ", ") + "\n")
		}
		writeStageData(&b, entry.Result.Data)
		b.WriteString("\n")
	}

	b.WriteString(rule + "\n")
	b.WriteString("This report was generated automatically and is not legal advice.\n")
	b.WriteString(rule + "\n")
	return b.String()
}

func writeStageData(b *strings.Builder, data models.StageData) {
	for _, key := range sortedKeys(data) {
		switch v := data[key].(type) {
		case string:
			b.WriteString(key + ": " + v + "\n")
		case []string:
			b.WriteString(key + ":\n")
			for _, item := range v {
				b.WriteString("  - " + item + "\n")
			}
		case []models.LawReference:
			b.WriteString(key + ":\n")
			for _, law := range v {
				b.WriteString(fmt.Sprintf("  - %s, %s", law.Statute, law.Section))
				if law.Applicability != "" {
					b.WriteString(": " + law.Applicability)
				}
				b.WriteString("\n")
			}
		case []models.PrecedentCase:
			b.WriteString(key + ":\n")
			for _, c := range v {
				b.WriteString("  - " + c.CaseName)
				if c.Year != 0 {
					b.WriteString(fmt.Sprintf(" (%d)", c.Year))
				}
				if c.Relevance != "" {
					b.WriteString(": " + c.Relevance)
				}
				b.WriteString("\n")
			}
		case []models.ActionStep:
			b.WriteString(key + ":\n")
			for _, step := range v {
				b.WriteString(fmt.Sprintf("  %d. %s", step.Step, step.Title))
				if step.Timeline != "" {
					b.WriteString(" (" + step.Timeline + ")")
				}
				b.WriteString("\n")
				if step.Details != "" {
					b.WriteString("     " + step.Details + "\n")
				}
			}
		}
	}
}

func sortedKeys(data models.StageData) []string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

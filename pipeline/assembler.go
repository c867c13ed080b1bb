package pipeline

import (
	"fmt"
	"strings"
	"time"

	"maljrs-backend/models"
)

// Assemble combines stage entries into a report. The overall status is the
// worst outcome among the stages the caller asked for; prerequisite stages
// that ran only in support do not drag the status down.
func Assemble(entries []models.StageEntry, requested []models.StageID) *models.Report {
	report := &models.Report{
		Stages:      entries,
		Status:      models.ReportComplete,
		GeneratedAt: time.Now().UTC(),
	}

	wanted := make(map[models.StageID]bool, len(requested))
	for _, id := range requested {
		wanted[id] = true
	}

	for _, entry := range entries {
		if !wanted[entry.Stage] {
			continue
		}
		switch entry.Result.Status {
		case models.StageFailure:
			report.Status = models.ReportDegraded
		case models.StagePartialSuccess:
			if report.Status == models.ReportComplete {
				report.Status = models.ReportPartial
			}
		}
		if report.Status == models.ReportDegraded {
			break
		}
	}

	report.ExecutiveSummary = executiveSummary(entries)
	return report
}

// executiveSummary prefers the synthesis stage's own summary and falls back
// to a sentence built from whatever upstream stages produced.
func executiveSummary(entries []models.StageEntry) string {
	var byStage = make(map[models.StageID]models.StageResult, len(entries))
	for _, entry := range entries {
		byStage[entry.Stage] = entry.Result
	}

	if synthesis, ok := byStage[models.StageSynthesis]; ok {
		if summary := synthesis.Data.Text("executiveSummary"); summary != "" {
			return summary
		}
	}

	var parts []string
	if classification := byStage[models.StageClassification].Data.Text("classification"); classification != "" {
		parts = append(parts, fmt.Sprintf("This matter has been assessed as a %s case.", classification))
	}
	if laws := byStage[models.StageLawMapping].Data.Laws("laws"); len(laws) > 0 {
		names := make([]string, 0, 3)
		for _, law := range laws {
			names = append(names, law.Statute)
			if len(names) == 3 {
				break
			}
		}
		parts = append(parts, fmt.Sprintf("Key legal provisions include: %s.", strings.Join(names, "; ")))
	}
	if steps := byStage[models.StagePathway].Data.Steps("steps"); len(steps) > 0 {
		parts = append(parts, fmt.Sprintf("A %d-step action plan has been prepared.", len(steps)))
	}
	if len(parts) == 0 {
		return "The analysis could not produce a summary. See individual stage results for details."
	}
	return strings.Join(parts, " ")
}

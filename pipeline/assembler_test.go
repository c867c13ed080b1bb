package pipeline

import (
	"testing"

	"maljrs-backend/models"

	"github.com/stretchr/testify/assert"
)

func successEntry(id models.StageID, data models.StageData) models.StageEntry {
	return models.StageEntry{
		Stage:  id,
		Name:   string(id),
		Result: models.StageResult{Status: models.StageSuccess, Data: data},
	}
}

func TestAssembleCompleteStatus(t *testing.T) {
	entries := []models.StageEntry{
		successEntry(models.StageClassification, models.StageData{"classification": "civil"}),
		successEntry(models.StageFactExtraction, models.StageData{"parties": []string{"A", "B"}}),
		successEntry(models.StageLawMapping, models.StageData{"laws": []models.LawReference{{Statute: "Specific Relief Act"}}}),
	}

	report := Assemble(entries, []models.StageID{models.StageLawMapping})

	assert.Equal(t, models.ReportComplete, report.Status)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestAssemblePartialForRequestedStage(t *testing.T) {
	entries := []models.StageEntry{
		successEntry(models.StageClassification, nil),
		{
			Stage: models.StageLawMapping,
			Result: models.StageResult{
				Status:        models.StagePartialSuccess,
				Data:          models.StageData{"laws": []models.LawReference{{Statute: "X"}}},
				MissingFields: []string{"limitation_notes"},
			},
		},
	}

	report := Assemble(entries, []models.StageID{models.StageLawMapping})
	assert.Equal(t, models.ReportPartial, report.Status)
}

func TestAssembleSupportStageFailureDoesNotDegrade(t *testing.T) {
	entries := []models.StageEntry{
		{
			Stage:  models.StageClassification,
			Result: models.StageResult{Status: models.StageFailure, FailReason: models.FailReasonBackendUnavailable},
		},
		successEntry(models.StageLawMapping, models.StageData{"laws": []models.LawReference{{Statute: "X"}}}),
	}

	// Only law mapping was requested; the failed classification ran in
	// support and must not affect the overall status.
	report := Assemble(entries, []models.StageID{models.StageLawMapping})
	assert.Equal(t, models.ReportComplete, report.Status)
}

func TestAssembleDegradedBeatsPartial(t *testing.T) {
	entries := []models.StageEntry{
		{
			Stage: models.StageLawMapping,
			Result: models.StageResult{
				Status: models.StagePartialSuccess,
				Data:   models.StageData{"laws": []models.LawReference{{Statute: "X"}}},
			},
		},
		{
			Stage:  models.StagePathway,
			Result: models.StageResult{Status: models.StageFailure, FailReason: models.FailReasonUpstreamFailed},
		},
	}

	report := Assemble(entries, []models.StageID{models.StageLawMapping, models.StagePathway})
	assert.Equal(t, models.ReportDegraded, report.Status)
}

func TestExecutiveSummaryFromSynthesis(t *testing.T) {
	entries := []models.StageEntry{
		successEntry(models.StageSynthesis, models.StageData{"executiveSummary": "All is well."}),
	}

	report := Assemble(entries, []models.StageID{models.StageSynthesis})
	assert.Equal(t, "All is well.", report.ExecutiveSummary)
}

func TestExecutiveSummaryFallback(t *testing.T) {
	entries := []models.StageEntry{
		successEntry(models.StageClassification, models.StageData{"classification": "criminal"}),
		successEntry(models.StageLawMapping, models.StageData{
			"laws": []models.LawReference{
				{Statute: "Indian Penal Code", Section: "Section 420"},
			},
		}),
		{
			Stage:  models.StageSynthesis,
			Result: models.StageResult{Status: models.StageFailure, FailReason: models.FailReasonBackendUnavailable},
		},
	}

	report := Assemble(entries, []models.StageID{models.StageSynthesis})

	assert.Equal(t, models.ReportDegraded, report.Status)
	assert.Contains(t, report.ExecutiveSummary, "criminal")
	assert.Contains(t, report.ExecutiveSummary, "Indian Penal Code")
}

func TestExecutiveSummaryNothingUsable(t *testing.T) {
	entries := []models.StageEntry{
		{
			Stage:  models.StageClassification,
			Result: models.StageResult{Status: models.StageFailure, FailReason: models.FailReasonBackendUnavailable},
		},
	}

	report := Assemble(entries, []models.StageID{models.StageClassification})
	assert.Contains(t, report.ExecutiveSummary, "could not produce a summary")
}

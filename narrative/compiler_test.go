package narrative

import (
	"strings"
	"testing"

	"maljrs-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *models.CaseRecord {
	return &models.CaseRecord{
		CaseTitle:         "Sharma v. Verma",
		CaseType:          "Property Dispute",
		CourtJurisdiction: "District Court, Pune",
		StageOfCase:       "Pre-filing",
		PlaintiffName:     "Anil Sharma",
		DefendantName:     "Rakesh Verma",
		Timeline: []models.TimelineEvent{
			{ID: "evt-2", Date: "2024-03-15", Description: "Possession forcibly taken", ProofAvailable: false},
			{ID: "evt-1", Date: "2023-11-02", Description: "Sale agreement signed", PeopleInvolved: "Both parties, notary", ProofAvailable: true},
		},
		Claims:          []string{"Recovery of possession", "Damages for trespass"},
		ReliefRequested: "Permanent injunction and possession",
		Evidence: []models.EvidenceItem{
			{ID: "ev-1", Type: models.EvidenceDocument, Strength: models.StrengthStrong, Description: "Registered sale agreement", LinkedTimelineEventID: "evt-1"},
			{ID: "ev-2", Type: models.EvidenceWitness, Strength: models.StrengthMedium, Description: "Neighbour saw the incident"},
		},
		LegalIssues: []string{"Whether possession was lawfully transferred"},
		LawSections: []models.LawSection{
			{ActName: "Specific Relief Act, 1963", SectionNumber: "Section 6", Description: "Recovery of possession"},
		},
		Strengths:  "Registered documentation",
		Weaknesses: "Delay in filing",
		Witnesses: []models.WitnessInfo{
			{Name: "Suresh Patil", Knowledge: "Witnessed the agreement signing", LinkedTimelineEventID: "evt-1"},
		},
	}
}

func TestCompileDeterministic(t *testing.T) {
	record := sampleRecord()

	first, err := Compile(record)
	require.NoError(t, err)
	second, err := Compile(record)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompileStructure(t *testing.T) {
	text, err := Compile(sampleRecord())
	require.NoError(t, err)

	assert.Contains(t, text, "LEGAL CASE NARRATIVE")
	assert.Contains(t, text, "END OF CASE NARRATIVE")
	assert.Contains(t, text, "CASE INFORMATION")
	assert.Contains(t, text, "Case Title: Sharma v. Verma")
	assert.Contains(t, text, "TIMELINE OF EVENTS")
	assert.Contains(t, text, "CLAIMS AND RELIEF SOUGHT")
	assert.Contains(t, text, "EVIDENCE AVAILABLE")
	assert.Contains(t, text, "LEGAL ISSUES IDENTIFIED")
	assert.Contains(t, text, "APPLICABLE LAWS AND SECTIONS")
	assert.Contains(t, text, "CASE ASSESSMENT")
	assert.Contains(t, text, "WITNESSES")
}

func TestCompileProofMarkers(t *testing.T) {
	text, err := Compile(sampleRecord())
	require.NoError(t, err)

	assert.Contains(t, text, "[PROOF AVAILABLE]")
	assert.Contains(t, text, "[NO PROOF]")
}

func TestCompileTimelineSortedByDate(t *testing.T) {
	text, err := Compile(sampleRecord())
	require.NoError(t, err)

	// The agreement (2023) must appear before the dispossession (2024)
	// despite being second in the input slice.
	first := strings.Index(text, "Sale agreement signed")
	second := strings.Index(text, "Possession forcibly taken")
	require.Greater(t, first, 0)
	require.Greater(t, second, 0)
	assert.Less(t, first, second)
}

func TestCompileLinkedEventResolution(t *testing.T) {
	text, err := Compile(sampleRecord())
	require.NoError(t, err)

	assert.Contains(t, text, "Related to event on: 2023-11-02")
	assert.Contains(t, text, "Can testify about event on: 2023-11-02")
}

func TestCompileEmptyRecordUsesPlaceholders(t *testing.T) {
	text, err := Compile(&models.CaseRecord{})
	require.NoError(t, err)

	// Every section is still present, carrying the placeholder.
	assert.Contains(t, text, "Case Title: Not specified")
	assert.Contains(t, text, "TIMELINE OF EVENTS")
	assert.Contains(t, text, "WITNESSES")
	assert.GreaterOrEqual(t, strings.Count(text, "Not specified"), 8)
}

func TestCompileRejectsBrokenEvidenceLink(t *testing.T) {
	record := sampleRecord()
	record.Evidence[0].LinkedTimelineEventID = "evt-missing"

	_, err := Compile(record)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "evidence[0]", validationErr.Field)
	assert.Equal(t, "evt-missing", validationErr.Ref)
}

func TestCompileRejectsBrokenWitnessLink(t *testing.T) {
	record := sampleRecord()
	record.Witnesses[0].LinkedTimelineEventID = "evt-missing"

	_, err := Compile(record)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "witnesses[0]", validationErr.Field)
}

func TestCompileEvidenceGroupedByTypeOrder(t *testing.T) {
	record := sampleRecord()
	// Witness evidence listed first in input; Document must still render first.
	record.Evidence[0], record.Evidence[1] = record.Evidence[1], record.Evidence[0]

	text, err := Compile(record)
	require.NoError(t, err)

	docIdx := strings.Index(text, "Document Evidence:")
	witIdx := strings.Index(text, "Witness Evidence:")
	require.Greater(t, docIdx, 0)
	require.Greater(t, witIdx, 0)
	assert.Less(t, docIdx, witIdx)
}

package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CaseStatus represents the status of a stored case
type CaseStatus string

const (
	CaseStatusDraft     CaseStatus = "draft"
	CaseStatusAnalyzing CaseStatus = "analyzing"
	CaseStatusCompleted CaseStatus = "completed"
	CaseStatusArchived  CaseStatus = "archived"
)

// EvidenceType represents the kind of evidence an item is
type EvidenceType string

const (
	EvidenceDocument EvidenceType = "Document"
	EvidenceWitness  EvidenceType = "Witness"
	EvidenceAudio    EvidenceType = "Audio"
	EvidenceVideo    EvidenceType = "Video"
	EvidenceDigital  EvidenceType = "Digital"
)

// EvidenceTypes lists all evidence types in their canonical presentation order.
var EvidenceTypes = []EvidenceType{
	EvidenceDocument,
	EvidenceWitness,
	EvidenceAudio,
	EvidenceVideo,
	EvidenceDigital,
}

// EvidenceStrength represents how strong a piece of evidence is
type EvidenceStrength string

const (
	StrengthStrong EvidenceStrength = "Strong"
	StrengthMedium EvidenceStrength = "Medium"
	StrengthWeak   EvidenceStrength = "Weak"
)

// TimelineEvent is one dated event in the case chronology
type TimelineEvent struct {
	ID             string `json:"id"`
	Date           string `json:"date"`
	Description    string `json:"description"`
	PeopleInvolved string `json:"peopleInvolved,omitempty"`
	ProofAvailable bool   `json:"proofAvailable"`
}

// EvidenceItem is one piece of evidence, optionally linked to a timeline event
type EvidenceItem struct {
	ID                    string           `json:"id"`
	Type                  EvidenceType     `json:"type"`
	Strength              EvidenceStrength `json:"strength"`
	Description           string           `json:"description"`
	FileName              string           `json:"fileName,omitempty"`
	LinkedTimelineEventID string           `json:"linkedTimelineEventId,omitempty"`
}

// WitnessInfo describes a witness, optionally linked to a timeline event
type WitnessInfo struct {
	Name                  string `json:"name"`
	Knowledge             string `json:"knowledge"`
	LinkedTimelineEventID string `json:"linkedTimelineEventId,omitempty"`
}

// LawSection is a statute reference the user already knows about
type LawSection struct {
	ActName       string `json:"actName"`
	SectionNumber string `json:"sectionNumber"`
	Description   string `json:"description,omitempty"`
}

// CaseRecord is the structured case intake snapshot submitted for analysis.
// It is treated as immutable once handed to the analysis pipeline.
type CaseRecord struct {
	CaseTitle         string          `json:"caseTitle"`
	CaseType          string          `json:"caseType"`
	CourtJurisdiction string          `json:"courtJurisdiction"`
	StageOfCase       string          `json:"stageOfCase"`
	PlaintiffName     string          `json:"plaintiffName"`
	DefendantName     string          `json:"defendantName"`
	Timeline          []TimelineEvent `json:"timeline"`
	Claims            []string        `json:"claims"`
	ReliefRequested   string          `json:"reliefRequested"`
	Evidence          []EvidenceItem  `json:"evidence"`
	LegalIssues       []string        `json:"legalIssues"`
	LawSections       []LawSection    `json:"lawSections"`
	Strengths         string          `json:"strengths"`
	Weaknesses        string          `json:"weaknesses"`
	Witnesses         []WitnessInfo   `json:"witnesses"`
}

// TimelineEventByID returns the timeline event with the given identifier.
func (r *CaseRecord) TimelineEventByID(id string) (*TimelineEvent, bool) {
	for i := range r.Timeline {
		if r.Timeline[i].ID == id {
			return &r.Timeline[i], true
		}
	}
	return nil, false
}

// Value implements driver.Valuer for JSONB
func (r CaseRecord) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *CaseRecord) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// StoredCase represents a persisted case entity
type StoredCase struct {
	ID          uuid.UUID  `json:"id"`
	Status      CaseStatus `json:"status"`
	Record      CaseRecord `json:"record"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

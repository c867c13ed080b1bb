package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StageID identifies one analysis stage in the pipeline
type StageID string

const (
	StageClassification      StageID = "classification"
	StageFactExtraction      StageID = "fact_extraction"
	StageLawMapping          StageID = "law_mapping"
	StagePrecedentSearch     StageID = "precedent_search"
	StageConstitutionalCheck StageID = "constitutional_check"
	StagePathway             StageID = "pathway"
	StageSynthesis           StageID = "synthesis"
)

// StageStatus is the outcome of a single stage execution
type StageStatus string

const (
	StageSuccess        StageStatus = "success"
	StagePartialSuccess StageStatus = "partial_success"
	StageFailure        StageStatus = "failure"
)

// Stage failure reasons carried in StageResult.FailReason.
const (
	FailReasonBackendUnavailable = "backend unavailable"
	FailReasonUpstreamFailed     = "upstream dependency failed"
	FailReasonUnparseable        = "no usable structure in backend output"
	FailReasonCancelled          = "run cancelled"
)

// LawReference is one applicable statute produced by the law mapping stage
type LawReference struct {
	Statute       string `json:"statute"`
	Section       string `json:"section"`
	Applicability string `json:"applicability,omitempty"`
}

// PrecedentCase is one relevant decided case produced by precedent search
type PrecedentCase struct {
	CaseName  string `json:"caseName"`
	Citation  string `json:"citation,omitempty"`
	Court     string `json:"court,omitempty"`
	Year      int    `json:"year,omitempty"`
	Relevance string `json:"relevance,omitempty"`
}

// ActionStep is one step of the recommended legal pathway
type ActionStep struct {
	Step     int    `json:"step"`
	Title    string `json:"title"`
	Timeline string `json:"timeline,omitempty"`
	Details  string `json:"details,omitempty"`
}

// StageData holds the structured fields recovered from a stage's output,
// keyed by schema field name. Values are one of: string, []string,
// []LawReference, []PrecedentCase or []ActionStep.
type StageData map[string]any

// Text returns the string value stored under key, or "" when absent.
func (d StageData) Text(key string) string {
	if d == nil {
		return ""
	}
	s, _ := d[key].(string)
	return s
}

// Strings returns the string list stored under key, or nil when absent.
func (d StageData) Strings(key string) []string {
	if d == nil {
		return nil
	}
	v, _ := d[key].([]string)
	return v
}

// Laws returns the law references stored under key, or nil when absent.
func (d StageData) Laws(key string) []LawReference {
	if d == nil {
		return nil
	}
	v, _ := d[key].([]LawReference)
	return v
}

// Cases returns the precedent cases stored under key, or nil when absent.
func (d StageData) Cases(key string) []PrecedentCase {
	if d == nil {
		return nil
	}
	v, _ := d[key].([]PrecedentCase)
	return v
}

// Steps returns the action steps stored under key, or nil when absent.
func (d StageData) Steps(key string) []ActionStep {
	if d == nil {
		return nil
	}
	v, _ := d[key].([]ActionStep)
	return v
}

// StageResult is the parsed outcome of one stage execution. MissingFields
// lists every schema field that could not be recovered; MissingRequired is
// the subset of those the stage's schema marks as required.
type StageResult struct {
	Status          StageStatus `json:"status"`
	Data            StageData   `json:"data,omitempty"`
	MissingFields   []string    `json:"missingFields,omitempty"`
	MissingRequired []string    `json:"missingRequired,omitempty"`
	FailReason      string      `json:"failReason,omitempty"`
	Raw             string      `json:"raw,omitempty"`
}

// ReportStatus is the overall outcome of an analysis run
type ReportStatus string

const (
	ReportComplete ReportStatus = "complete"
	ReportPartial  ReportStatus = "partial"
	ReportDegraded ReportStatus = "degraded"
)

// StageEntry pairs a stage identifier with its result inside a report
type StageEntry struct {
	Stage  StageID     `json:"stage"`
	Name   string      `json:"name"`
	Result StageResult `json:"result"`
}

// Report is the assembled outcome of one analysis run
type Report struct {
	Stages           []StageEntry `json:"stages"`
	Status           ReportStatus `json:"status"`
	ExecutiveSummary string       `json:"executiveSummary"`
	GeneratedAt      time.Time    `json:"generatedAt"`
}

// Entry returns the report entry for the given stage, if present.
func (r *Report) Entry(id StageID) (*StageEntry, bool) {
	for i := range r.Stages {
		if r.Stages[i].Stage == id {
			return &r.Stages[i], true
		}
	}
	return nil, false
}

// Value implements driver.Valuer for JSONB
func (r Report) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *Report) Scan(value interface{}) error {
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

// StoredReport represents a persisted analysis report
type StoredReport struct {
	ID          uuid.UUID `json:"id"`
	CaseID      uuid.UUID `json:"case_id"`
	Options     []string  `json:"options"`
	Report      Report    `json:"report"`
	ArchivePath *string   `json:"archive_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

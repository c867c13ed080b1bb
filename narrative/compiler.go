package narrative

import (
	"fmt"
	"sort"
	"strings"

	"maljrs-backend/models"
)

const (
	notSpecified = "Not specified"
	ruleHeavy    = "============================================================"
	ruleLight    = "----------------------------------------"
)

// Compile converts a structured case record into the plain-text narrative the
// analysis stages consume. The output is deterministic: the same record always
// produces byte-identical text. Every section is rendered even when its source
// data is empty, so the stages always see the full document shape.
func Compile(record *models.CaseRecord) (string, error) {
	if err := ValidateRecord(record); err != nil {
		return "", err
	}

	var b strings.Builder

	// Header
	line(&b, ruleHeavy)
	line(&b, "LEGAL CASE NARRATIVE")
	line(&b, ruleHeavy)
	line(&b, "")

	writeCaseInformation(&b, record)
	writeTimeline(&b, record)
	writeClaims(&b, record)
	writeEvidence(&b, record)
	writeLegalIssues(&b, record)
	writeLawSections(&b, record)
	writeAssessment(&b, record)
	writeWitnesses(&b, record)

	// Footer
	line(&b, ruleHeavy)
	line(&b, "END OF CASE NARRATIVE")
	b.WriteString(ruleHeavy)

	return b.String(), nil
}

func writeCaseInformation(b *strings.Builder, record *models.CaseRecord) {
	line(b, "CASE INFORMATION")
	line(b, ruleLight)
	line(b, "Case Title: "+orNotSpecified(record.CaseTitle))
	line(b, "Case Type: "+orNotSpecified(record.CaseType))
	line(b, "Court/Jurisdiction: "+orNotSpecified(record.CourtJurisdiction))
	line(b, "Current Stage: "+orNotSpecified(record.StageOfCase))
	line(b, "Plaintiff/Complainant: "+orNotSpecified(record.PlaintiffName))
	line(b, "Defendant/Respondent: "+orNotSpecified(record.DefendantName))
	line(b, "")
}

func writeTimeline(b *strings.Builder, record *models.CaseRecord) {
	line(b, "TIMELINE OF EVENTS")
	line(b, ruleLight)
	if len(record.Timeline) == 0 {
		line(b, notSpecified)
		line(b, "")
		return
	}

	sorted := make([]models.TimelineEvent, len(record.Timeline))
	copy(sorted, record.Timeline)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})

	for i, event := range sorted {
		line(b, fmt.Sprintf("%d. Date: %s", i+1, event.Date))
		line(b, "   Event: "+event.Description)
		if event.PeopleInvolved != "" {
			line(b, "   People Involved: "+event.PeopleInvolved)
		}
		if event.ProofAvailable {
			line(b, "   Evidence Status: [PROOF AVAILABLE]")
		} else {
			line(b, "   Evidence Status: [NO PROOF]")
		}
		line(b, "")
	}
}

func writeClaims(b *strings.Builder, record *models.CaseRecord) {
	line(b, "CLAIMS AND RELIEF SOUGHT")
	line(b, ruleLight)
	if len(record.Claims) == 0 && record.ReliefRequested == "" {
		line(b, notSpecified)
		line(b, "")
		return
	}
	if len(record.Claims) > 0 {
		line(b, "Specific Claims:")
		for i, claim := range record.Claims {
			line(b, fmt.Sprintf("%d. %s", i+1, claim))
		}
	}
	if record.ReliefRequested != "" {
		line(b, "")
		line(b, "Relief Requested: "+record.ReliefRequested)
	}
	line(b, "")
}

func writeEvidence(b *strings.Builder, record *models.CaseRecord) {
	line(b, "EVIDENCE AVAILABLE")
	line(b, ruleLight)
	if len(record.Evidence) == 0 {
		line(b, notSpecified)
		line(b, "")
		return
	}

	// Group by type in the canonical order so the section layout never
	// depends on input order.
	for _, evidenceType := range models.EvidenceTypes {
		var items []models.EvidenceItem
		for _, item := range record.Evidence {
			if item.Type == evidenceType {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}

		line(b, "")
		line(b, string(evidenceType)+" Evidence:")
		for _, item := range items {
			label := item.Description
			if label == "" {
				label = item.FileName
			}
			line(b, "  - "+label)
			line(b, "    Strength: "+string(item.Strength))
			if item.LinkedTimelineEventID != "" {
				if event, ok := record.TimelineEventByID(item.LinkedTimelineEventID); ok {
					line(b, "    Related to event on: "+event.Date)
				}
			}
		}
	}
	line(b, "")
}

func writeLegalIssues(b *strings.Builder, record *models.CaseRecord) {
	line(b, "LEGAL ISSUES IDENTIFIED")
	line(b, ruleLight)
	if len(record.LegalIssues) == 0 {
		line(b, notSpecified)
		line(b, "")
		return
	}
	for i, issue := range record.LegalIssues {
		line(b, fmt.Sprintf("%d. %s", i+1, issue))
	}
	line(b, "")
}

func writeLawSections(b *strings.Builder, record *models.CaseRecord) {
	line(b, "APPLICABLE LAWS AND SECTIONS")
	line(b, ruleLight)
	if len(record.LawSections) == 0 {
		line(b, notSpecified)
		line(b, "")
		return
	}
	for _, law := range record.LawSections {
		line(b, fmt.Sprintf("- %s, %s", law.ActName, law.SectionNumber))
		if law.Description != "" {
			line(b, "  Description: "+law.Description)
		}
	}
	line(b, "")
}

func writeAssessment(b *strings.Builder, record *models.CaseRecord) {
	line(b, "CASE ASSESSMENT")
	line(b, ruleLight)
	if record.Strengths == "" && record.Weaknesses == "" {
		line(b, notSpecified)
		line(b, "")
		return
	}
	if record.Strengths != "" {
		line(b, "Strengths:")
		line(b, record.Strengths)
		line(b, "")
	}
	if record.Weaknesses != "" {
		line(b, "Weaknesses:")
		line(b, record.Weaknesses)
		line(b, "")
	}
}

func writeWitnesses(b *strings.Builder, record *models.CaseRecord) {
	line(b, "WITNESSES")
	line(b, ruleLight)
	if len(record.Witnesses) == 0 {
		line(b, notSpecified)
		line(b, "")
		return
	}
	for i, witness := range record.Witnesses {
		line(b, fmt.Sprintf("%d. %s", i+1, witness.Name))
		line(b, "   Knowledge/Testimony: "+witness.Knowledge)
		if witness.LinkedTimelineEventID != "" {
			if event, ok := record.TimelineEventByID(witness.LinkedTimelineEventID); ok {
				line(b, "   Can testify about event on: "+event.Date)
			}
		}
		line(b, "")
	}
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func line(b *strings.Builder, s string) {
	b.WriteString(s)
	b.WriteByte('\n')
}

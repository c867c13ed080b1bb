package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"maljrs-backend/models"
)

// jsonFence is the code fence marker the prompts ask the backend to wrap its
// JSON answer in.
const jsonFence = "```"

func classificationPrompt(narrative string, _ map[models.StageID]models.StageData) string {
	return fmt.Sprintf(`You are a senior legal analyst. Read the case narrative below and classify the matter.

%s

Classify the case as "civil" or "criminal". Base the classification only on the facts in the narrative. If both civil and criminal elements are present, pick the dominant one.

Respond with a JSON object inside a %[2]sjson fence with these fields:
- "classification": "civil" or "criminal"
- "rationale": one or two sentences explaining the classification
- "key_signals": a list of the facts that drove the decision

%[2]sjson
{"classification": "...", "rationale": "...", "key_signals": ["..."]}
%[2]s`, narrative, jsonFence)
}

func factExtractionPrompt(narrative string, prereqs map[models.StageID]models.StageData) string {
	classification := prereqs[models.StageClassification].Text("classification")
	if classification == "" {
		classification = "unclassified"
	}
	return fmt.Sprintf(`You are a fact interpreter for %s legal proceedings. Extract the structured facts from the case narrative below. Do not invent facts; when something is unclear, record it as an uncertainty.

%s

Respond with a JSON object inside a %[3]sjson fence with these fields:
- "parties": list of the parties and their roles
- "dates": list of the key dates and what happened on each
- "claims": list of the claims or allegations raised
- "evidence": list of the evidence items mentioned, noting which carry proof
- "uncertainties": list of gaps or ambiguities in the narrative

%[3]sjson
{"parties": ["..."], "dates": ["..."], "claims": ["..."], "evidence": ["..."], "uncertainties": ["..."]}
%[3]s`, classification, narrative, jsonFence)
}

func lawMappingPrompt(narrative string, prereqs map[models.StageID]models.StageData) string {
	facts := formatStageData(models.StageFactExtraction, prereqs[models.StageFactExtraction])
	return fmt.Sprintf(`You are a legal researcher mapping facts to Indian statutes. Using the case narrative and the extracted facts below, identify every statute and section that applies.

%s

EXTRACTED FACTS
%s

For each applicable provision, give the statute name, the section or article number, and a short note on how it applies to these facts. Also note any limitation period concerns.

Respond with a JSON object inside a %[3]sjson fence:
%[3]sjson
{"laws": [{"statute": "...", "section": "...", "applicability": "..."}], "limitation_notes": "..."}
%[3]s`, narrative, facts, jsonFence)
}

func precedentSearchPrompt(narrative string, prereqs map[models.StageID]models.StageData) string {
	facts := formatStageData(models.StageFactExtraction, prereqs[models.StageFactExtraction])
	laws := formatStageData(models.StageLawMapping, prereqs[models.StageLawMapping])
	return fmt.Sprintf(`You are a legal researcher finding precedents. Using the case narrative, the extracted facts and the applicable laws below, list the decided cases most relevant to this matter.

%s

EXTRACTED FACTS
%s

APPLICABLE LAWS
%s

List up to five precedents. For each, give the case name, citation if known, court, year, and one sentence on why it is relevant here.

Respond with a JSON object inside a %[4]sjson fence:
%[4]sjson
{"cases": [{"caseName": "...", "citation": "...", "court": "...", "year": 2015, "relevance": "..."}]}
%[4]s`, narrative, facts, laws, jsonFence)
}

func constitutionalCheckPrompt(narrative string, prereqs map[models.StageID]models.StageData) string {
	facts := formatStageData(models.StageFactExtraction, prereqs[models.StageFactExtraction])
	laws := formatStageData(models.StageLawMapping, prereqs[models.StageLawMapping])
	return fmt.Sprintf(`You are a constitutional validator. Assess whether the facts below engage fundamental rights, in particular Articles 14, 15, 19 and 21 of the Constitution of India.

%s

EXTRACTED FACTS
%s

APPLICABLE LAWS
%s

Respond with a JSON object inside a %[4]sjson fence with these fields:
- "analysis": a short assessment of the constitutional dimensions of the case
- "articles": list of the constitutional articles engaged, with a phrase on each
- "remedies": list of constitutional remedies available, such as writ petitions

%[4]sjson
{"analysis": "...", "articles": ["..."], "remedies": ["..."]}
%[4]s`, narrative, facts, laws, jsonFence)
}

func pathwayPrompt(narrative string, prereqs map[models.StageID]models.StageData) string {
	laws := formatStageData(models.StageLawMapping, prereqs[models.StageLawMapping])
	constitutional := formatStageData(models.StageConstitutionalCheck, prereqs[models.StageConstitutionalCheck])
	return fmt.Sprintf(`You are a legal pathway advisor. Build a practical, time-bound action plan for the person described in the case narrative below, using the legal analysis that follows it.

%s

APPLICABLE LAWS
%s

CONSTITUTIONAL ANALYSIS
%s

Give numbered steps in the order they should be taken. Each step needs a short title, an indicative timeline, and practical details a layperson can follow. Also list any document templates that would help.

Respond with a JSON object inside a %[4]sjson fence:
%[4]sjson
{"steps": [{"step": 1, "title": "...", "timeline": "...", "details": "..."}], "templates": ["..."]}
%[4]s`, narrative, laws, constitutional, jsonFence)
}

func synthesisPrompt(narrative string, prereqs map[models.StageID]models.StageData) string {
	var sections strings.Builder
	for _, id := range []models.StageID{
		models.StageClassification,
		models.StageFactExtraction,
		models.StageLawMapping,
		models.StagePrecedentSearch,
		models.StageConstitutionalCheck,
		models.StagePathway,
	} {
		data, ok := prereqs[id]
		if !ok {
			continue
		}
		sections.WriteString(strings.ToUpper(strings.ReplaceAll(string(id), "_", " ")))
		sections.WriteByte('\n')
		sections.WriteString(formatStageData(id, data))
		sections.WriteString("\n\n")
	}

	return fmt.Sprintf(`You are a report synthesizer writing for a person with no legal training. Combine the case narrative and the stage findings below into a single coherent report.

%s

STAGE FINDINGS
%s

Respond with a JSON object inside a %[3]sjson fence with these fields:
- "executiveSummary": three to five plain-language sentences summarizing the situation, the applicable law and the recommended path
- "keyFacts": list of the decisive facts
- "timeline": list of the key dates in order
- "disclaimers": list of caveats, including that this is not formal legal advice

%[3]sjson
{"executiveSummary": "...", "keyFacts": ["..."], "timeline": ["..."], "disclaimers": ["..."]}
%[3]s`, narrative, sections.String(), jsonFence)
}

// formatStageData renders a stage's structured result as plain text for
// inclusion in a downstream prompt. Fields are rendered in schema order so
// the same data always produces the same text.
func formatStageData(id models.StageID, data models.StageData) string {
	if len(data) == 0 {
		return "(not available)"
	}

	schema := schemaFor(id)
	var b strings.Builder
	for _, field := range schema {
		value, ok := data[field.Name]
		if !ok {
			continue
		}
		b.WriteString(field.Label)
		b.WriteString(":")
		switch v := value.(type) {
		case string:
			b.WriteString(" ")
			b.WriteString(v)
			b.WriteByte('\n')
		case []string:
			b.WriteByte('\n')
			for _, item := range v {
				b.WriteString("- ")
				b.WriteString(item)
				b.WriteByte('\n')
			}
		case []models.LawReference:
			b.WriteByte('\n')
			for _, law := range v {
				b.WriteString(fmt.Sprintf("- %s, %s", law.Statute, law.Section))
				if law.Applicability != "" {
					b.WriteString(": " + law.Applicability)
				}
				b.WriteByte('\n')
			}
		case []models.PrecedentCase:
			b.WriteByte('\n')
			for _, c := range v {
				b.WriteString("- " + c.CaseName)
				if c.Citation != "" {
					b.WriteString(", " + c.Citation)
				}
				if c.Year != 0 {
					b.WriteString(fmt.Sprintf(" (%d)", c.Year))
				}
				if c.Relevance != "" {
					b.WriteString(": " + c.Relevance)
				}
				b.WriteByte('\n')
			}
		case []models.ActionStep:
			b.WriteByte('\n')
			for _, step := range v {
				b.WriteString(fmt.Sprintf("%d. %s", step.Step, step.Title))
				if step.Timeline != "" {
					b.WriteString(" (" + step.Timeline + ")")
				}
				if step.Details != "" {
					b.WriteString(": " + step.Details)
				}
				b.WriteByte('\n')
			}
		default:
			// Unknown shape, fall back to JSON so nothing is silently lost.
			encoded, err := json.Marshal(v)
			if err == nil {
				b.WriteString(" ")
				b.Write(encoded)
			}
			b.WriteByte('\n')
		}
	}
	if b.Len() == 0 {
		return "(not available)"
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	schemaOnce  sync.Once
	stageSchema map[models.StageID]OutputSchema
)

// schemaFor returns the output schema of a stage in the default registry.
// Prompt construction uses it to render prerequisite data; an unknown stage
// yields an empty schema.
func schemaFor(id models.StageID) OutputSchema {
	schemaOnce.Do(func() {
		stageSchema = make(map[models.StageID]OutputSchema)
		reg, err := DefaultRegistry()
		if err != nil {
			return
		}
		for _, def := range reg.Stages() {
			stageSchema[def.ID] = def.Schema
		}
	})
	return stageSchema[id]
}

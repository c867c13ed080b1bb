package pipeline

import (
	"testing"

	"maljrs-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lawMappingSchema(t *testing.T) OutputSchema {
	t.Helper()
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	def, ok := reg.Get(models.StageLawMapping)
	require.True(t, ok)
	return def.Schema
}

func TestParseFencedJSON(t *testing.T) {
	raw := "Here is the analysis you asked for.\n" +
		"```json\n" +
		`{"laws": [{"statute": "Specific Relief Act, 1963", "section": "Section 6", "applicability": "Recovery of possession"}], "limitation_notes": "File within six months."}` +
		"\n```\nLet me know if you need more detail."

	result := ParseStageOutput(lawMappingSchema(t), raw)

	require.Equal(t, models.StageSuccess, result.Status)
	laws := result.Data.Laws("laws")
	require.Len(t, laws, 1)
	assert.Equal(t, "Specific Relief Act, 1963", laws[0].Statute)
	assert.Equal(t, "Section 6", laws[0].Section)
	assert.Equal(t, "File within six months.", result.Data.Text("limitation_notes"))
	assert.Equal(t, raw, result.Raw)
}

func TestParseBareJSON(t *testing.T) {
	raw := `The answer is {"laws": [{"act": "Indian Contract Act, 1872", "sectionNumber": "Section 73"}], "limitation_notes": "Three years."} as requested.`

	result := ParseStageOutput(lawMappingSchema(t), raw)

	require.Equal(t, models.StageSuccess, result.Status)
	laws := result.Data.Laws("laws")
	require.Len(t, laws, 1)
	// Alternate key names are accepted.
	assert.Equal(t, "Indian Contract Act, 1872", laws[0].Statute)
	assert.Equal(t, "Section 73", laws[0].Section)
}

func TestParseLawStringsInJSON(t *testing.T) {
	raw := `{"laws": ["Indian Penal Code - Section 420", "Limitation Act, 1963"]}`

	result := ParseStageOutput(lawMappingSchema(t), raw)

	require.Equal(t, models.StagePartialSuccess, result.Status)
	laws := result.Data.Laws("laws")
	require.Len(t, laws, 2)
	assert.Equal(t, "Indian Penal Code", laws[0].Statute)
	assert.Equal(t, "Section 420", laws[0].Section)
	assert.Equal(t, "Limitation Act, 1963", laws[1].Statute)
	assert.Equal(t, []string{"limitation_notes"}, result.MissingFields)
	// limitation_notes is optional, so no required field is missing.
	assert.Empty(t, result.MissingRequired)
}

func TestParsePartialJSON(t *testing.T) {
	raw := `{"limitation_notes": "Act within three years of the breach."}`

	result := ParseStageOutput(lawMappingSchema(t), raw)

	require.Equal(t, models.StagePartialSuccess, result.Status)
	assert.Equal(t, []string{"laws"}, result.MissingFields)
	assert.Equal(t, []string{"laws"}, result.MissingRequired)
	assert.Equal(t, "Act within three years of the breach.", result.Data.Text("limitation_notes"))
}

func TestParseFreeTextSections(t *testing.T) {
	raw := `APPLICABLE LAWS

The dispute falls under Section 6 of the Specific Relief Act because possession
was taken without consent. Section 73 of the Indian Contract Act also applies.

LIMITATION NOTES

A suit under this provision must be filed within six months.`

	result := ParseStageOutput(lawMappingSchema(t), raw)

	require.Equal(t, models.StageSuccess, result.Status)
	laws := result.Data.Laws("laws")
	require.Len(t, laws, 2)
	assert.Equal(t, "6", laws[0].Section)
	assert.Contains(t, laws[0].Statute, "Specific Relief Act")
	assert.Contains(t, result.Data.Text("limitation_notes"), "six months")
}

func TestParsePrecedentFreeText(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	def, ok := reg.Get(models.StagePrecedentSearch)
	require.True(t, ok)

	raw := `Relevant judgments include:
- Krishna Ram Mahale v. Shobha Venkat Rao, decided in 1989, on unlawful dispossession.
- Lallu Yeshwant Singh v. Rao Jagdish Singh (1968) on possessory remedies.`

	result := ParseStageOutput(def.Schema, raw)

	require.Equal(t, models.StageSuccess, result.Status)
	cases := result.Data.Cases("cases")
	require.Len(t, cases, 2)
	assert.Contains(t, cases[0].CaseName, "v.")
	assert.Equal(t, 1989, cases[0].Year)
	assert.Equal(t, 1968, cases[1].Year)
}

func TestParseActionStepsFreeText(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	def, ok := reg.Get(models.StagePathway)
	require.True(t, ok)

	raw := `ACTION PLAN

Step 1: Send a legal notice to the opposing party
Timeline: Within 2 weeks
Draft and dispatch a notice demanding restoration of possession.

Step 2: File the suit
Timeline: Within 2 months
Prepare the plaint and file before the District Court.`

	result := ParseStageOutput(def.Schema, raw)

	require.NotEqual(t, models.StageFailure, result.Status)
	steps := result.Data.Steps("steps")
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Step)
	assert.Equal(t, "Send a legal notice to the opposing party", steps[0].Title)
	assert.Equal(t, "Within 2 weeks", steps[0].Timeline)
	assert.Contains(t, steps[0].Details, "restoration of possession")
	assert.Equal(t, 2, steps[1].Step)
}

func TestParseGarbageFails(t *testing.T) {
	result := ParseStageOutput(lawMappingSchema(t), "zzzz qqqq 1234 !!!!")

	require.Equal(t, models.StageFailure, result.Status)
	assert.Equal(t, models.FailReasonUnparseable, result.FailReason)
	assert.Empty(t, result.Data)
	assert.Equal(t, "zzzz qqqq 1234 !!!!", result.Raw)
}

func TestParseEmptyInputFails(t *testing.T) {
	result := ParseStageOutput(lawMappingSchema(t), "")
	assert.Equal(t, models.StageFailure, result.Status)
}

func TestParseCoercesListToText(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	def, ok := reg.Get(models.StageConstitutionalCheck)
	require.True(t, ok)

	raw := `{"analysis": ["Article 21 is engaged.", "Due process concerns arise."], "articles": ["Article 21"], "remedies": ["Writ petition under Article 226"]}`

	result := ParseStageOutput(def.Schema, raw)

	require.Equal(t, models.StageSuccess, result.Status)
	assert.Equal(t, "Article 21 is engaged.\nDue process concerns arise.", result.Data.Text("analysis"))
}

func TestParseSynthesisJSON(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)
	def, ok := reg.Get(models.StageSynthesis)
	require.True(t, ok)

	raw := "```json\n" + `{
		"executiveSummary": "This is a civil property dispute with a strong documentary record.",
		"keyFacts": ["Registered sale agreement exists", "Possession taken forcibly"],
		"timeline": ["2023-11-02: agreement", "2024-03-15: dispossession"],
		"disclaimers": ["Not formal legal advice"]
	}` + "\n```"

	result := ParseStageOutput(def.Schema, raw)

	require.Equal(t, models.StageSuccess, result.Status)
	assert.Contains(t, result.Data.Text("executiveSummary"), "civil property dispute")
	assert.Len(t, result.Data.Strings("keyFacts"), 2)
}

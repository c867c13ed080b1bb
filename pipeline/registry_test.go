package pipeline

import (
	"testing"

	"maljrs-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryOrder(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	stages := reg.Stages()
	require.Len(t, stages, 7)

	position := make(map[models.StageID]int, len(stages))
	for i, stage := range stages {
		position[stage.ID] = i
	}

	// Every stage must come after all of its prerequisites.
	for _, stage := range stages {
		for _, req := range stage.Requires {
			assert.Less(t, position[req], position[stage.ID],
				"stage %s must come after %s", stage.ID, req)
		}
	}
	assert.Equal(t, models.StageClassification, stages[0].ID)
	assert.Equal(t, models.StageSynthesis, stages[len(stages)-1].ID)
}

func TestNewRegistryRejectsCycle(t *testing.T) {
	stages := []StageDefinition{
		{ID: "a", Requires: []models.StageID{"b"}},
		{ID: "b", Requires: []models.StageID{"a"}},
	}

	_, err := NewRegistry(stages, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNewRegistryRejectsUnknownPrerequisite(t *testing.T) {
	stages := []StageDefinition{
		{ID: "a", Requires: []models.StageID{"missing"}},
	}

	_, err := NewRegistry(stages, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestNewRegistryRejectsDuplicateStage(t *testing.T) {
	stages := []StageDefinition{
		{ID: "a"},
		{ID: "a"},
	}

	_, err := NewRegistry(stages, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestClosureExpandsPrerequisites(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	closure, err := reg.Closure([]models.StageID{models.StageLawMapping})
	require.NoError(t, err)

	ids := make([]models.StageID, len(closure))
	for i, def := range closure {
		ids[i] = def.ID
	}
	assert.Equal(t, []models.StageID{
		models.StageClassification,
		models.StageFactExtraction,
		models.StageLawMapping,
	}, ids)
}

func TestClosureOfSynthesisIsEverything(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	closure, err := reg.Closure([]models.StageID{models.StageSynthesis})
	require.NoError(t, err)
	assert.Len(t, closure, 7)
}

func TestResolveOptions(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	ids, err := reg.ResolveOptions([]string{OptionIdentifyIssues, OptionActionPlan})
	require.NoError(t, err)
	assert.Equal(t, []models.StageID{models.StageLawMapping, models.StagePathway}, ids)
}

func TestResolveOptionsDeduplicates(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	ids, err := reg.ResolveOptions([]string{OptionIdentifyIssues, OptionIdentifyIssues})
	require.NoError(t, err)
	assert.Equal(t, []models.StageID{models.StageLawMapping}, ids)
}

func TestResolveOptionsUnknownLabel(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	_, err = reg.ResolveOptions([]string{"Summon a wizard"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOption)
}

func TestPromptsEmbedNarrativeAndPrereqData(t *testing.T) {
	reg, err := DefaultRegistry()
	require.NoError(t, err)

	def, ok := reg.Get(models.StageLawMapping)
	require.True(t, ok)

	prompt := def.Prompt("NARRATIVE GOES HERE", map[models.StageID]models.StageData{
		models.StageFactExtraction: {
			"parties": []string{"Anil Sharma (plaintiff)"},
		},
	})

	assert.Contains(t, prompt, "NARRATIVE GOES HERE")
	assert.Contains(t, prompt, "Anil Sharma (plaintiff)")
	assert.Contains(t, prompt, "```json")
}

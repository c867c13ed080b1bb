package pipeline

import (
	"errors"
	"fmt"

	"maljrs-backend/models"
)

// ErrUnknownOption is returned when an analysis option label does not match
// any registered option.
var ErrUnknownOption = errors.New("unknown analysis option")

// FieldKind describes how a schema field's value is shaped
type FieldKind string

const (
	FieldText  FieldKind = "text"
	FieldList  FieldKind = "list"
	FieldLaws  FieldKind = "laws"
	FieldCases FieldKind = "cases"
	FieldSteps FieldKind = "steps"
)

// FieldSpec describes one field a stage is expected to produce
type FieldSpec struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
}

// OutputSchema is the ordered set of fields a stage's output is parsed against
type OutputSchema []FieldSpec

// Field returns the field with the given name, if present.
func (s OutputSchema) Field(name string) (FieldSpec, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// PromptFunc builds the backend prompt for a stage from the compiled case
// narrative and the structured results of its prerequisite stages.
type PromptFunc func(narrative string, prereqs map[models.StageID]models.StageData) string

// StageDefinition describes one analysis stage: its prerequisites, the prompt
// it sends to the text backend and the schema its output is parsed against.
type StageDefinition struct {
	ID       models.StageID
	Name     string
	Requires []models.StageID
	Prompt   PromptFunc
	Schema   OutputSchema
}

// Registry holds the stage graph in a fixed topological order and maps
// user-facing option labels to the stages they request.
type Registry struct {
	stages  []StageDefinition
	byID    map[models.StageID]*StageDefinition
	options map[string][]models.StageID
}

// NewRegistry builds a registry from stage definitions and option mappings.
// It verifies that every prerequisite refers to a registered stage and that
// the graph has no cycles, then stores the stages in topological order.
func NewRegistry(stages []StageDefinition, options map[string][]models.StageID) (*Registry, error) {
	byID := make(map[models.StageID]*StageDefinition, len(stages))
	for i := range stages {
		if _, dup := byID[stages[i].ID]; dup {
			return nil, fmt.Errorf("duplicate stage %q", stages[i].ID)
		}
		byID[stages[i].ID] = &stages[i]
	}

	for _, stage := range stages {
		for _, req := range stage.Requires {
			if _, ok := byID[req]; !ok {
				return nil, fmt.Errorf("stage %q requires unknown stage %q", stage.ID, req)
			}
		}
	}

	ordered, err := topoSort(stages, byID)
	if err != nil {
		return nil, err
	}

	for label, ids := range options {
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				return nil, fmt.Errorf("option %q maps to unknown stage %q", label, id)
			}
		}
	}

	reg := &Registry{
		stages:  ordered,
		byID:    make(map[models.StageID]*StageDefinition, len(ordered)),
		options: options,
	}
	for i := range reg.stages {
		reg.byID[reg.stages[i].ID] = &reg.stages[i]
	}
	return reg, nil
}

// topoSort orders stages so every stage appears after all of its
// prerequisites, using Kahn's algorithm. Ties are broken by the
// declaration order of the input slice so the result is deterministic.
func topoSort(stages []StageDefinition, byID map[models.StageID]*StageDefinition) ([]StageDefinition, error) {
	indegree := make(map[models.StageID]int, len(stages))
	dependents := make(map[models.StageID][]models.StageID, len(stages))
	for _, stage := range stages {
		indegree[stage.ID] = len(stage.Requires)
		for _, req := range stage.Requires {
			dependents[req] = append(dependents[req], stage.ID)
		}
	}

	var ordered []StageDefinition
	ready := make(map[models.StageID]bool, len(stages))
	for len(ordered) < len(stages) {
		progressed := false
		for _, stage := range stages {
			if ready[stage.ID] || indegree[stage.ID] > 0 {
				continue
			}
			ready[stage.ID] = true
			ordered = append(ordered, stage)
			for _, dep := range dependents[stage.ID] {
				indegree[dep]--
			}
			progressed = true
		}
		if !progressed {
			return nil, errors.New("stage graph contains a cycle")
		}
	}
	return ordered, nil
}

// Stages returns all stage definitions in topological order.
func (r *Registry) Stages() []StageDefinition {
	return r.stages
}

// Get returns the definition for the given stage.
func (r *Registry) Get(id models.StageID) (*StageDefinition, bool) {
	def, ok := r.byID[id]
	return def, ok
}

// Closure expands a set of requested stages to include every transitive
// prerequisite, returned in topological order.
func (r *Registry) Closure(requested []models.StageID) ([]StageDefinition, error) {
	include := make(map[models.StageID]bool)
	var visit func(id models.StageID) error
	visit = func(id models.StageID) error {
		if include[id] {
			return nil
		}
		def, ok := r.byID[id]
		if !ok {
			return fmt.Errorf("unknown stage %q", id)
		}
		include[id] = true
		for _, req := range def.Requires {
			if err := visit(req); err != nil {
				return err
			}
		}
		return nil
	}
	for _, id := range requested {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	var closure []StageDefinition
	for _, stage := range r.stages {
		if include[stage.ID] {
			closure = append(closure, stage)
		}
	}
	return closure, nil
}

// Options returns the registered option labels in a stable order.
func (r *Registry) Options() []string {
	labels := make([]string, 0, len(r.options))
	for _, label := range optionOrder {
		if _, ok := r.options[label]; ok {
			labels = append(labels, label)
		}
	}
	return labels
}

// ResolveOptions maps user-facing option labels to the stages they request.
// Labels are deduplicated; an unrecognized label yields ErrUnknownOption.
func (r *Registry) ResolveOptions(labels []string) ([]models.StageID, error) {
	seen := make(map[models.StageID]bool)
	var ids []models.StageID
	for _, label := range labels {
		stages, ok := r.options[label]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, label)
		}
		for _, id := range stages {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// User-facing analysis option labels.
const (
	OptionIdentifyIssues      = "Identify legal issues"
	OptionFindPrecedents      = "Find relevant precedents"
	OptionConstitutionalCheck = "Check constitutional rights"
	OptionActionPlan          = "Build action plan"
	OptionFullAnalysis        = "Full analysis"
)

var optionOrder = []string{
	OptionIdentifyIssues,
	OptionFindPrecedents,
	OptionConstitutionalCheck,
	OptionActionPlan,
	OptionFullAnalysis,
}

// DefaultRegistry builds the standard seven-stage analysis graph.
func DefaultRegistry() (*Registry, error) {
	stages := []StageDefinition{
		{
			ID:     models.StageClassification,
			Name:   "Case Classification",
			Prompt: classificationPrompt,
			Schema: OutputSchema{
				{Name: "classification", Label: "Classification", Kind: FieldText, Required: true},
				{Name: "rationale", Label: "Rationale", Kind: FieldText},
				{Name: "key_signals", Label: "Key Signals", Kind: FieldList},
			},
		},
		{
			ID:       models.StageFactExtraction,
			Name:     "Fact Interpretation",
			Requires: []models.StageID{models.StageClassification},
			Prompt:   factExtractionPrompt,
			Schema: OutputSchema{
				{Name: "parties", Label: "Parties", Kind: FieldList, Required: true},
				{Name: "dates", Label: "Key Dates", Kind: FieldList},
				{Name: "claims", Label: "Claims", Kind: FieldList},
				{Name: "evidence", Label: "Evidence", Kind: FieldList},
				{Name: "uncertainties", Label: "Uncertainties", Kind: FieldList},
			},
		},
		{
			ID:       models.StageLawMapping,
			Name:     "Law Mapping",
			Requires: []models.StageID{models.StageFactExtraction},
			Prompt:   lawMappingPrompt,
			Schema: OutputSchema{
				{Name: "laws", Label: "Applicable Laws", Kind: FieldLaws, Required: true},
				{Name: "limitation_notes", Label: "Limitation Notes", Kind: FieldText},
			},
		},
		{
			ID:       models.StagePrecedentSearch,
			Name:     "Precedent Search",
			Requires: []models.StageID{models.StageFactExtraction, models.StageLawMapping},
			Prompt:   precedentSearchPrompt,
			Schema: OutputSchema{
				{Name: "cases", Label: "Relevant Precedents", Kind: FieldCases, Required: true},
			},
		},
		{
			ID:       models.StageConstitutionalCheck,
			Name:     "Constitutional Validation",
			Requires: []models.StageID{models.StageFactExtraction, models.StageLawMapping},
			Prompt:   constitutionalCheckPrompt,
			Schema: OutputSchema{
				{Name: "analysis", Label: "Constitutional Analysis", Kind: FieldText, Required: true},
				{Name: "articles", Label: "Articles Engaged", Kind: FieldList},
				{Name: "remedies", Label: "Remedies", Kind: FieldList},
			},
		},
		{
			ID:       models.StagePathway,
			Name:     "Pathway Recommendation",
			Requires: []models.StageID{models.StageLawMapping, models.StageConstitutionalCheck},
			Prompt:   pathwayPrompt,
			Schema: OutputSchema{
				{Name: "steps", Label: "Action Plan", Kind: FieldSteps, Required: true},
				{Name: "templates", Label: "Suggested Templates", Kind: FieldList},
			},
		},
		{
			ID:   models.StageSynthesis,
			Name: "Report Synthesis",
			Requires: []models.StageID{
				models.StageClassification,
				models.StageFactExtraction,
				models.StageLawMapping,
				models.StagePrecedentSearch,
				models.StageConstitutionalCheck,
				models.StagePathway,
			},
			Prompt: synthesisPrompt,
			Schema: OutputSchema{
				{Name: "executiveSummary", Label: "Executive Summary", Kind: FieldText, Required: true},
				{Name: "keyFacts", Label: "Key Facts", Kind: FieldList},
				{Name: "timeline", Label: "Timeline", Kind: FieldList},
				{Name: "disclaimers", Label: "Disclaimers", Kind: FieldList},
			},
		},
	}

	options := map[string][]models.StageID{
		OptionIdentifyIssues:      {models.StageLawMapping},
		OptionFindPrecedents:      {models.StagePrecedentSearch},
		OptionConstitutionalCheck: {models.StageConstitutionalCheck},
		OptionActionPlan:          {models.StagePathway},
		OptionFullAnalysis:        {models.StageSynthesis},
	}

	return NewRegistry(stages, options)
}

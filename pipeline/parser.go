package pipeline

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"maljrs-backend/models"
)

// ParseStageOutput recovers a stage's structured fields from raw backend
// output. It is total: any input, including garbage, yields a StageResult.
// The chain is JSON first, then free-text heuristics:
//
//  1. a fenced ```json block
//  2. the outermost {...} span anywhere in the text
//  3. section and list extraction from plain prose
//
// The raw text is always preserved on the result so nothing the backend said
// is lost to a parsing gap.
func ParseStageOutput(schema OutputSchema, raw string) models.StageResult {
	data := models.StageData{}

	if obj := extractJSONObject(raw); obj != nil {
		buildFromJSON(schema, obj, data)
	}
	if len(data) == 0 {
		buildFromText(schema, raw, data)
	}

	var missing, missingRequired []string
	located := len(data) > 0
	for _, field := range schema {
		if _, ok := data[field.Name]; !ok {
			missing = append(missing, field.Name)
			if field.Required {
				missingRequired = append(missingRequired, field.Name)
			}
		}
	}

	switch {
	case !located:
		return models.StageResult{
			Status:     models.StageFailure,
			FailReason: models.FailReasonUnparseable,
			Raw:        raw,
		}
	case len(missing) > 0:
		return models.StageResult{
			Status:          models.StagePartialSuccess,
			Data:            data,
			MissingFields:   missing,
			MissingRequired: missingRequired,
			Raw:             raw,
		}
	default:
		return models.StageResult{
			Status: models.StageSuccess,
			Data:   data,
			Raw:    raw,
		}
	}
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractJSONObject pulls the most plausible JSON object out of raw text.
func extractJSONObject(raw string) map[string]any {
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		if obj := decodeObject(m[1]); obj != nil {
			return obj
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if obj := decodeObject(raw[start : end+1]); obj != nil {
			return obj
		}
	}
	return nil
}

func decodeObject(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}

// buildFromJSON maps decoded JSON values onto the schema, coercing shapes the
// backend commonly gets wrong. Some models nest everything under "result".
func buildFromJSON(schema OutputSchema, obj map[string]any, data models.StageData) {
	if nested, ok := obj["result"].(map[string]any); ok {
		obj = nested
	}

	for _, field := range schema {
		value, ok := lookupField(obj, field)
		if !ok {
			continue
		}
		switch field.Kind {
		case FieldText:
			if s := coerceText(value); s != "" {
				data[field.Name] = s
			}
		case FieldList:
			if list := coerceList(value); len(list) > 0 {
				data[field.Name] = list
			}
		case FieldLaws:
			if laws := coerceLaws(value); len(laws) > 0 {
				data[field.Name] = laws
			}
		case FieldCases:
			if cases := coerceCases(value); len(cases) > 0 {
				data[field.Name] = cases
			}
		case FieldSteps:
			if steps := coerceSteps(value); len(steps) > 0 {
				data[field.Name] = steps
			}
		}
	}
}

// lookupField finds the JSON value for a field by exact name first, then by
// a case-insensitive match against the name and the label.
func lookupField(obj map[string]any, field FieldSpec) (any, bool) {
	if v, ok := obj[field.Name]; ok {
		return v, true
	}
	want := strings.ToLower(field.Name)
	wantLabel := strings.ToLower(field.Label)
	for k, v := range obj {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == want || key == wantLabel || strings.ReplaceAll(key, " ", "_") == want {
			return v, true
		}
	}
	return nil, false
}

func coerceText(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := coerceText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]any:
		encoded, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(encoded)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return ""
	}
}

func coerceList(value any) []string {
	switch v := value.(type) {
	case []any:
		var list []string
		for _, item := range v {
			if s := coerceText(item); s != "" {
				list = append(list, s)
			}
		}
		return list
	case string:
		var list []string
		for _, line := range strings.Split(v, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-•* "))
			if line != "" {
				list = append(list, line)
			}
		}
		return list
	default:
		if s := coerceText(value); s != "" {
			return []string{s}
		}
		return nil
	}
}

func coerceLaws(value any) []models.LawReference {
	items, ok := value.([]any)
	if !ok {
		if s := coerceText(value); s != "" {
			items = []any{s}
		} else {
			return nil
		}
	}

	var laws []models.LawReference
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			law := models.LawReference{
				Statute:       firstText(v, "statute", "act", "actName", "law", "name"),
				Section:       firstText(v, "section", "sectionNumber", "article"),
				Applicability: firstText(v, "applicability", "description", "relevance", "note"),
			}
			if law.Statute != "" || law.Section != "" {
				laws = append(laws, law)
			}
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			// "Act Name - Section X" form
			if statute, section, found := strings.Cut(s, " - "); found {
				laws = append(laws, models.LawReference{
					Statute:       strings.TrimSpace(statute),
					Section:       strings.TrimSpace(section),
					Applicability: s,
				})
			} else {
				laws = append(laws, models.LawReference{Statute: s})
			}
		}
	}
	return laws
}

func coerceCases(value any) []models.PrecedentCase {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	var cases []models.PrecedentCase
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			c := models.PrecedentCase{
				CaseName:  firstText(v, "caseName", "name", "case"),
				Citation:  firstText(v, "citation"),
				Court:     firstText(v, "court"),
				Year:      coerceYear(v["year"]),
				Relevance: firstText(v, "relevance", "holding", "headnote"),
			}
			if c.CaseName != "" {
				cases = append(cases, c)
			}
		case string:
			s := strings.TrimSpace(v)
			if s != "" {
				cases = append(cases, models.PrecedentCase{CaseName: s})
			}
		}
	}
	return cases
}

func coerceYear(value any) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case string:
		year, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return year
	default:
		return 0
	}
}

func coerceSteps(value any) []models.ActionStep {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	var steps []models.ActionStep
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			step := models.ActionStep{
				Step:     coerceYear(v["step"]),
				Title:    firstText(v, "title", "action", "name"),
				Timeline: firstText(v, "timeline", "deadline"),
				Details:  firstText(v, "details", "description"),
			}
			if step.Title != "" {
				if step.Step == 0 {
					step.Step = len(steps) + 1
				}
				steps = append(steps, step)
			}
		case string:
			s := strings.TrimSpace(v)
			if s != "" {
				steps = append(steps, models.ActionStep{Step: len(steps) + 1, Title: s})
			}
		}
	}
	return steps
}

func firstText(obj map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := coerceText(obj[key]); s != "" {
			return s
		}
	}
	return ""
}

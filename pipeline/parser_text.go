package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"maljrs-backend/models"
)

// Free-text recovery for backends that ignore the JSON instruction and answer
// in prose. The heuristics are deliberately permissive: a partially recovered
// field beats losing the whole stage.

var (
	listItemRe = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-•*])\s+(.+)$`)
	lawRefRe   = regexp.MustCompile(`(?i)(?:Section|Article)s?\s+([0-9]+[A-Za-z0-9()/-]*)\s+of\s+(?:the\s+)?([A-Z][A-Za-z0-9 ,'&.-]+?)(?:[.,;\n]|$)`)
	caseNameRe = regexp.MustCompile(`([A-Z][A-Za-z.'&()-]*(?:\s+[A-Za-z.'&()-]+)*)\s+vs?\.?\s+([A-Z][A-Za-z.'&()-]*(?:\s+[A-Za-z.'&()-]+)*)`)
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	stepHeadRe = regexp.MustCompile(`(?m)^\s*(?:Step\s+)?(\d+)\s*[.:)]\s*(.+)$`)
	timelineRe = regexp.MustCompile(`(?i)timeline\s*[:-]\s*(.+)`)
)

// buildFromText fills data by extracting sections and patterns from prose.
func buildFromText(schema OutputSchema, raw string, data models.StageData) {
	sections := splitSections(raw)

	for _, field := range schema {
		body := sectionFor(sections, field)
		switch field.Kind {
		case FieldText:
			if body != "" {
				data[field.Name] = strings.TrimSpace(body)
			}
		case FieldList:
			source := body
			if source == "" && onlyListField(schema, field) {
				source = raw
			}
			if list := extractListItems(source); len(list) > 0 {
				data[field.Name] = list
			}
		case FieldLaws:
			source := body
			if source == "" {
				source = raw
			}
			if laws := extractLaws(source); len(laws) > 0 {
				data[field.Name] = laws
			}
		case FieldCases:
			source := body
			if source == "" {
				source = raw
			}
			if cases := extractCases(source); len(cases) > 0 {
				data[field.Name] = cases
			}
		case FieldSteps:
			source := body
			if source == "" {
				source = raw
			}
			if steps := extractSteps(source); len(steps) > 0 {
				data[field.Name] = steps
			}
		}
	}
}

// splitSections breaks prose into sections keyed by their heading. A heading
// is a short line that is all caps, or bold (**...**), or ends with a colon.
func splitSections(raw string) map[string]string {
	sections := make(map[string]string)
	var current string
	var body strings.Builder

	flush := func() {
		if current != "" {
			sections[current] = body.String()
		}
		body.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		if heading, ok := headingOf(line); ok {
			flush()
			current = heading
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	flush()
	return sections
}

func headingOf(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.Trim(trimmed, "*#")
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, ":")
	if trimmed == "" || len(trimmed) > 60 {
		return "", false
	}
	letters := 0
	for _, r := range trimmed {
		if r >= 'a' && r <= 'z' {
			return headingByMarkup(line, trimmed)
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	if letters < 3 {
		return "", false
	}
	return strings.ToLower(trimmed), true
}

// headingByMarkup accepts mixed-case headings only when the line carried
// explicit markup, a bold wrapper or a trailing colon with a short phrase.
func headingByMarkup(line, trimmed string) (string, bool) {
	stripped := strings.TrimSpace(line)
	bold := strings.HasPrefix(stripped, "**") && strings.HasSuffix(stripped, "**")
	colon := strings.HasSuffix(stripped, ":") && len(strings.Fields(trimmed)) <= 5
	if bold || colon {
		return strings.ToLower(trimmed), true
	}
	return "", false
}

// sectionFor finds the section whose heading best matches a field's label or
// name, using case-insensitive containment in either direction.
func sectionFor(sections map[string]string, field FieldSpec) string {
	label := strings.ToLower(field.Label)
	name := strings.ToLower(strings.ReplaceAll(field.Name, "_", " "))
	for heading, body := range sections {
		if strings.Contains(heading, label) || strings.Contains(label, heading) ||
			strings.Contains(heading, name) || strings.Contains(name, heading) {
			return body
		}
	}
	return ""
}

// onlyListField reports whether the field is the only list-kind field in the
// schema, in which case list items anywhere in the text can be attributed to
// it without ambiguity.
func onlyListField(schema OutputSchema, field FieldSpec) bool {
	for _, other := range schema {
		if other.Kind == FieldList && other.Name != field.Name {
			return false
		}
	}
	return field.Kind == FieldList
}

func extractListItems(text string) []string {
	if text == "" {
		return nil
	}
	var items []string
	for _, m := range listItemRe.FindAllStringSubmatch(text, -1) {
		item := strings.TrimSpace(m[1])
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func extractLaws(text string) []models.LawReference {
	var laws []models.LawReference
	seen := make(map[string]bool)
	for _, m := range lawRefRe.FindAllStringSubmatch(text, -1) {
		section := strings.TrimSpace(m[1])
		statute := strings.TrimSpace(m[2])
		key := statute + "|" + section
		if seen[key] {
			continue
		}
		seen[key] = true
		laws = append(laws, models.LawReference{Statute: statute, Section: section})
	}
	return laws
}

func extractCases(text string) []models.PrecedentCase {
	var cases []models.PrecedentCase
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		m := caseNameRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[0])
		if seen[name] {
			continue
		}
		seen[name] = true
		c := models.PrecedentCase{CaseName: name}
		if y := yearRe.FindString(line); y != "" {
			c.Year, _ = strconv.Atoi(y)
		}
		cases = append(cases, c)
		if len(cases) == 5 {
			break
		}
	}
	return cases
}

func extractSteps(text string) []models.ActionStep {
	matches := stepHeadRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	var steps []models.ActionStep
	for i, m := range matches {
		num, _ := strconv.Atoi(text[m[2]:m[3]])
		title := strings.TrimSpace(text[m[4]:m[5]])

		// Everything up to the next step heading is this step's detail.
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])

		step := models.ActionStep{Step: num, Title: title}
		if tm := timelineRe.FindStringSubmatch(body); tm != nil {
			step.Timeline = strings.TrimSpace(tm[1])
			body = strings.TrimSpace(strings.Replace(body, tm[0], "", 1))
		}
		if body != "" {
			step.Details = body
		}
		if step.Step == 0 {
			step.Step = len(steps) + 1
		}
		steps = append(steps, step)
	}
	return steps
}

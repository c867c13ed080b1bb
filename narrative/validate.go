package narrative

import (
	"fmt"

	"maljrs-backend/models"
)

// ValidationError reports a referential problem inside a case record, such as
// an evidence item pointing at a timeline event that does not exist.
type ValidationError struct {
	Field string
	Ref   string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid case record: %s references unknown timeline event %q", e.Field, e.Ref)
}

// ValidateRecord checks the internal references of a case record. Evidence
// items and witnesses may link to timeline events by identifier; every such
// link must resolve. The first broken reference found is returned.
func ValidateRecord(record *models.CaseRecord) error {
	ids := make(map[string]struct{}, len(record.Timeline))
	for _, ev := range record.Timeline {
		ids[ev.ID] = struct{}{}
	}

	for i, item := range record.Evidence {
		if item.LinkedTimelineEventID == "" {
			continue
		}
		if _, ok := ids[item.LinkedTimelineEventID]; !ok {
			return &ValidationError{
				Field: fmt.Sprintf("evidence[%d]", i),
				Ref:   item.LinkedTimelineEventID,
			}
		}
	}

	for i, w := range record.Witnesses {
		if w.LinkedTimelineEventID == "" {
			continue
		}
		if _, ok := ids[w.LinkedTimelineEventID]; !ok {
			return &ValidationError{
				Field: fmt.Sprintf("witnesses[%d]", i),
				Ref:   w.LinkedTimelineEventID,
			}
		}
	}

	return nil
}

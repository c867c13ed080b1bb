package models

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceFile represents an uploaded evidence artifact attached to a case
type EvidenceFile struct {
	ID          uuid.UUID  `json:"id"`
	CaseID      *uuid.UUID `json:"case_id,omitempty"`
	Filename    string     `json:"filename"`
	MimeType    string     `json:"mime_type"`
	Size        int64      `json:"size"`
	StoragePath string     `json:"storage_path"`
	CreatedAt   time.Time  `json:"created_at"`
}

package domain

import "time"

// ProcessRecord is the durable aggregate a completed intake session is
// promoted into. It holds value copies of the session's data and lives
// independently of the session afterwards.
type ProcessRecord struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Department  string              `json:"department"`
	OwnerID     string              `json:"owner_id"`
	Attachments []ProcessAttachment `json:"attachments"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ProcessAttachment is the promoted copy of a session attachment. The
// original session attachment is never moved or mutated.
type ProcessAttachment struct {
	ID             string         `json:"id"`
	ProcessID      string         `json:"process_id"`
	FileName       string         `json:"file_name"`
	DeclaredType   AttachmentType `json:"declared_type"`
	StorageLocator string         `json:"storage_locator"`
	SizeBytes      int64          `json:"size_bytes"`
	EnrichedText   string         `json:"enriched_text,omitempty"`
}

// BuildProcessRecord assembles the process record for a session, copying
// every attachment. Department defaults to General when the conversation
// never captured one. IDs are assigned by the caller.
func BuildProcessRecord(s *IntakeSession, processID string, attachmentID func() string, now time.Time) ProcessRecord {
	department := s.Fields.Department
	if department == "" {
		department = "General"
	}
	rec := ProcessRecord{
		ID:          processID,
		Name:        s.Fields.Title,
		Description: s.Fields.Description,
		Department:  department,
		OwnerID:     s.OwnerID,
		CreatedAt:   now,
	}
	for _, a := range s.Attachments {
		rec.Attachments = append(rec.Attachments, ProcessAttachment{
			ID:             attachmentID(),
			ProcessID:      processID,
			FileName:       a.FileName,
			DeclaredType:   a.DeclaredType,
			StorageLocator: a.StorageLocator,
			SizeBytes:      a.SizeBytes,
			EnrichedText:   a.EnrichedText,
		})
	}
	return rec
}

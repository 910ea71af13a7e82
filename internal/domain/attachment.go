package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AttachmentType classifies an uploaded file by its declared content.
type AttachmentType string

const (
	AttachmentVideo         AttachmentType = "video"
	AttachmentPdf           AttachmentType = "pdf"
	AttachmentAudio         AttachmentType = "audio"
	AttachmentTranscription AttachmentType = "transcription"
	AttachmentSpreadsheet   AttachmentType = "spreadsheet"
	AttachmentOther         AttachmentType = "other"
)

// ParseAttachmentType validates a caller-declared type string.
func ParseAttachmentType(s string) (AttachmentType, error) {
	switch AttachmentType(strings.ToLower(strings.TrimSpace(s))) {
	case AttachmentVideo:
		return AttachmentVideo, nil
	case AttachmentPdf:
		return AttachmentPdf, nil
	case AttachmentAudio:
		return AttachmentAudio, nil
	case AttachmentTranscription:
		return AttachmentTranscription, nil
	case AttachmentSpreadsheet:
		return AttachmentSpreadsheet, nil
	case AttachmentOther:
		return AttachmentOther, nil
	}
	return "", fmt.Errorf("%w: unknown attachment type %q", ErrValidationFailed, s)
}

// InferAttachmentType guesses a type from the file extension when the client
// does not declare one.
func InferAttachmentType(fileName string) AttachmentType {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".mp4", ".mov", ".avi", ".webm", ".mkv":
		return AttachmentVideo
	case ".pdf":
		return AttachmentPdf
	case ".mp3", ".wav", ".ogg", ".m4a", ".flac":
		return AttachmentAudio
	case ".vtt", ".srt":
		return AttachmentTranscription
	case ".xls", ".xlsx", ".csv", ".ods":
		return AttachmentSpreadsheet
	}
	return AttachmentOther
}

// Attachment is a file owned by an intake session. Only EnrichedText is
// mutable, and only from empty to non-empty.
type Attachment struct {
	ID             string         `json:"id"`
	OwnerSessionID string         `json:"owner_session_id"`
	FileName       string         `json:"file_name"`
	DeclaredType   AttachmentType `json:"declared_type"`
	StorageLocator string         `json:"storage_locator"`
	SizeBytes      int64          `json:"size_bytes"`
	EnrichedText   string         `json:"enriched_text,omitempty"`
}

// SetEnrichedText records extracted text exactly once.
func (a *Attachment) SetEnrichedText(text string) error {
	if a.EnrichedText != "" {
		return fmt.Errorf("%w: enriched text already set for attachment %s", ErrInvalidState, a.ID)
	}
	a.EnrichedText = text
	return nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status tracks where a session is in its lifecycle. Transitions are linear:
// Draft -> Submitted -> Analysed -> Promoted. Promoted is terminal.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusAnalysed  Status = "analysed"
	StatusPromoted  Status = "promoted"
)

const DefaultQueuePriority = "Medium"

// QueuePriorities lists the accepted priority values in canonical casing.
var QueuePriorities = []string{"Low", "Medium", "High", "Critical"}

// NormalizeQueuePriority maps a free-form answer onto a canonical priority.
// Anything unrecognized falls back to Medium.
func NormalizeQueuePriority(s string) string {
	for _, p := range QueuePriorities {
		if strings.EqualFold(strings.TrimSpace(s), p) {
			return p
		}
	}
	return DefaultQueuePriority
}

// IntakeFields holds the seven slots collected during an intake conversation.
// Empty string means "not set"; a skipped optional slot stays empty forever.
type IntakeFields struct {
	Title         string `json:"title,omitempty"`
	Department    string `json:"department,omitempty"`
	Description   string `json:"description,omitempty"`
	Location      string `json:"location,omitempty"`
	BusinessUnit  string `json:"business_unit,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty"`
	QueuePriority string `json:"queue_priority,omitempty"`
}

// MergeFields folds a partial proposal into existing fields. A non-empty
// proposed value wins; an empty one means "no new information" and never
// clears a previously set field.
func MergeFields(existing, proposed IntakeFields) IntakeFields {
	merged := existing
	if v := strings.TrimSpace(proposed.Title); v != "" {
		merged.Title = v
	}
	if v := strings.TrimSpace(proposed.Department); v != "" {
		merged.Department = v
	}
	if v := strings.TrimSpace(proposed.Description); v != "" {
		merged.Description = v
	}
	if v := strings.TrimSpace(proposed.Location); v != "" {
		merged.Location = v
	}
	if v := strings.TrimSpace(proposed.BusinessUnit); v != "" {
		merged.BusinessUnit = v
	}
	if v := strings.TrimSpace(proposed.ContactEmail); v != "" {
		merged.ContactEmail = v
	}
	if v := strings.TrimSpace(proposed.QueuePriority); v != "" {
		merged.QueuePriority = NormalizeQueuePriority(v)
	}
	return merged
}

// IntakeSession is the aggregate collecting structured information about a
// candidate process. All mutation goes through its methods, which enforce the
// lifecycle state machine.
type IntakeSession struct {
	ID                  string       `json:"id"`
	OwnerID             string       `json:"owner_id"`
	Status              Status       `json:"status"`
	Fields              IntakeFields `json:"fields"`
	Transcript          []ChatTurn   `json:"transcript"`
	Attachments         []Attachment `json:"attachments"`
	AnalysisBrief       string       `json:"analysis_brief,omitempty"`
	AnalysisCheckpoints []string     `json:"analysis_checkpoints,omitempty"`
	AnalysisActionables []string     `json:"analysis_actionables,omitempty"`
	PromotedProcessID   string       `json:"promoted_process_id,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// NewIntakeSession creates a Draft session with the default queue priority and
// an opening assistant turn.
func NewIntakeSession(id, ownerID, opening string, now time.Time) *IntakeSession {
	return &IntakeSession{
		ID:      id,
		OwnerID: ownerID,
		Status:  StatusDraft,
		Fields:  IntakeFields{QueuePriority: DefaultQueuePriority},
		Transcript: []ChatTurn{
			{Role: RoleAssistant, Text: opening, CreatedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendExchange records one conversation round trip: the user's turn, the
// assistant's reply, and the field proposal the extractor derived from it.
func (s *IntakeSession) AppendExchange(userText, assistantReply string, proposed IntakeFields, now time.Time) error {
	if s.Status != StatusDraft {
		return fmt.Errorf("%w: cannot converse on %s session %s", ErrInvalidState, s.Status, s.ID)
	}
	s.Transcript = append(s.Transcript,
		ChatTurn{Role: RoleUser, Text: userText, CreatedAt: now},
		ChatTurn{Role: RoleAssistant, Text: assistantReply, CreatedAt: now},
	)
	s.Fields = MergeFields(s.Fields, proposed)
	s.UpdatedAt = now
	return nil
}

// Submit finalizes the draft. Caller-supplied values win over conversation
// values; title and department are hard requirements.
func (s *IntakeSession) Submit(final IntakeFields, now time.Time) error {
	if s.Status != StatusDraft {
		return fmt.Errorf("%w: cannot submit %s session %s", ErrInvalidState, s.Status, s.ID)
	}
	merged := MergeFields(s.Fields, final)
	if merged.Title == "" || merged.Department == "" {
		return fmt.Errorf("%w: title and department are required", ErrValidationFailed)
	}
	s.Fields = merged
	s.Status = StatusSubmitted
	s.UpdatedAt = now
	return nil
}

// AddAttachment registers an uploaded file. Promoted sessions are frozen.
func (s *IntakeSession) AddAttachment(a Attachment, now time.Time) error {
	if s.Status == StatusPromoted {
		return fmt.Errorf("%w: cannot attach to promoted session %s", ErrInvalidState, s.ID)
	}
	s.Attachments = append(s.Attachments, a)
	s.UpdatedAt = now
	return nil
}

// SetAnalysis stores synthesized analysis output and moves the session to
// Analysed. Legal from any pre-promotion state.
func (s *IntakeSession) SetAnalysis(brief string, checkpoints, actionables []string, now time.Time) error {
	if s.Status == StatusPromoted {
		return fmt.Errorf("%w: cannot analyse promoted session %s", ErrInvalidState, s.ID)
	}
	s.AnalysisBrief = brief
	s.AnalysisCheckpoints = checkpoints
	s.AnalysisActionables = actionables
	s.Status = StatusAnalysed
	s.UpdatedAt = now
	return nil
}

// MarkPromoted records the one-way link to the process record created from
// this session. Only an Analysed session can be promoted, and only once.
func (s *IntakeSession) MarkPromoted(processID string, now time.Time) error {
	if s.Status != StatusAnalysed {
		return fmt.Errorf("%w: cannot promote %s session %s", ErrInvalidState, s.Status, s.ID)
	}
	s.PromotedProcessID = processID
	s.Status = StatusPromoted
	s.UpdatedAt = now
	return nil
}

// Attachment returns the attachment with the given id.
func (s *IntakeSession) Attachment(id string) (*Attachment, error) {
	for i := range s.Attachments {
		if s.Attachments[i].ID == id {
			return &s.Attachments[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAttachmentNotFound, id)
}

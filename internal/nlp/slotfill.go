package nlp

import (
	"context"
	"fmt"
	"strings"

	"github.com/fieldline/intakeflow/internal/domain"
)

type slot struct {
	name     string
	prompt   string
	optional bool
	get      func(*domain.IntakeFields) *string
}

// Slot order is fixed; the conversation walks it front to back.
var slots = []slot{
	{
		name:   "title",
		prompt: "Let's capture a new process. What should we call it?",
		get:    func(f *domain.IntakeFields) *string { return &f.Title },
	},
	{
		name:   "department",
		prompt: "Which department owns this process?",
		get:    func(f *domain.IntakeFields) *string { return &f.Department },
	},
	{
		name:   "description",
		prompt: "Describe what the process does today.",
		get:    func(f *domain.IntakeFields) *string { return &f.Description },
	},
	{
		name:     "location",
		prompt:   "Where does this process run? Reply with nothing to skip.",
		optional: true,
		get:      func(f *domain.IntakeFields) *string { return &f.Location },
	},
	{
		name:     "business unit",
		prompt:   "Which business unit does it belong to? Reply with nothing to skip.",
		optional: true,
		get:      func(f *domain.IntakeFields) *string { return &f.BusinessUnit },
	},
	{
		name:     "contact email",
		prompt:   "Who can we contact about it? Enter an email, or reply with nothing to skip.",
		optional: true,
		get:      func(f *domain.IntakeFields) *string { return &f.ContactEmail },
	},
	{
		name:   "queue priority",
		prompt: "How urgent is this? Low, Medium, High or Critical.",
		get:    func(f *domain.IntakeFields) *string { return &f.QueuePriority },
	},
}

// SlotFiller is the deterministic reference backend. It keeps no state of its
// own: every call replays the user turns in the transcript to rediscover
// which slot is current, so skipped optional slots are never re-asked.
type SlotFiller struct{}

func NewSlotFiller() *SlotFiller { return &SlotFiller{} }

func (s *SlotFiller) Extract(_ context.Context, transcript []domain.ChatTurn, userText string, current domain.IntakeFields) (ExtractResult, error) {
	// Opening call: no conversation yet, just hand back the first prompt.
	if len(transcript) == 0 {
		return ExtractResult{Reply: slots[0].prompt, Fields: current}, nil
	}

	answers := make([]string, 0, len(transcript)/2+1)
	for _, turn := range transcript {
		if turn.Role == domain.RoleUser {
			answers = append(answers, turn.Text)
		}
	}
	answers = append(answers, userText)

	var replayed domain.IntakeFields
	done := make([]bool, len(slots))
	cursor := 0
	for _, answer := range answers {
		for cursor < len(slots) && done[cursor] {
			cursor++
		}
		if cursor >= len(slots) {
			break
		}
		text := strings.TrimSpace(answer)
		cur := slots[cursor]
		switch {
		case cur.name == "queue priority":
			// Accepts anything: unrecognized or empty input becomes Medium.
			*cur.get(&replayed) = domain.NormalizeQueuePriority(text)
			done[cursor] = true
		case text == "" && cur.optional:
			// Explicit skip: advance past the slot without writing a value.
			done[cursor] = true
		case text == "":
			// Required slot, keep asking.
		default:
			*cur.get(&replayed) = text
			done[cursor] = true
		}
	}

	merged := domain.MergeFields(current, replayed)
	complete := merged.Title != "" && merged.Department != "" && merged.Description != ""

	reply := ""
	if complete {
		reply = renderSummary(merged)
	} else {
		for i, sl := range slots {
			if !done[i] && *sl.get(&merged) == "" {
				reply = sl.prompt
				break
			}
		}
	}

	return ExtractResult{Reply: reply, Fields: replayed, IsComplete: complete}, nil
}

func renderSummary(f domain.IntakeFields) string {
	var b strings.Builder
	b.WriteString("Here is what I have so far:\n")
	for _, line := range []struct{ label, value string }{
		{"Title", f.Title},
		{"Department", f.Department},
		{"Description", f.Description},
		{"Location", f.Location},
		{"Business unit", f.BusinessUnit},
		{"Contact email", f.ContactEmail},
		{"Queue priority", f.QueuePriority},
	} {
		if line.value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", line.label, line.value)
		}
	}
	b.WriteString("Everything required is captured. Submit the intake when you are ready.")
	return b.String()
}

// Synthesize produces a deterministic analysis from the collected material.
// Output is never empty so callers can distinguish backend failure from a
// legitimately sparse result.
func (s *SlotFiller) Synthesize(_ context.Context, title, description string, attachmentTexts []string) (Synthesis, error) {
	if title == "" {
		title = "the captured process"
	}
	brief := fmt.Sprintf("%s was captured through a guided intake conversation.", title)
	if description != "" {
		brief = fmt.Sprintf("%s Current state: %s", brief, description)
	}
	if n := len(attachmentTexts); n > 0 {
		brief = fmt.Sprintf("%s %d supporting document(s) were reviewed.", brief, n)
	}

	checkpoints := []string{
		fmt.Sprintf("Confirm the scope of %s with its owner", title),
		"Verify the inputs and outputs named in the description",
	}
	actionables := []string{
		"Walk the process end to end with the operating team",
		"Identify the highest-effort manual step",
	}
	for i, text := range attachmentTexts {
		excerpt := text
		if len(excerpt) > 60 {
			excerpt = excerpt[:60]
		}
		checkpoints = append(checkpoints, fmt.Sprintf("Review supporting document %d: %s", i+1, excerpt))
	}
	return Synthesis{Brief: brief, Checkpoints: checkpoints, Actionables: actionables}, nil
}

// Package nlp defines the extraction contract an intake backend must satisfy
// and its two implementations: a live OpenRouter-backed model and a
// deterministic slot filler used when no API key is configured.
package nlp

import (
	"context"

	"github.com/fieldline/intakeflow/internal/domain"
)

// ExtractResult is one conversation round trip. Fields is a partial record:
// empty entries mean "no new information" and the caller merges it with
// overwrite-if-present semantics.
type ExtractResult struct {
	Reply      string
	Fields     domain.IntakeFields
	IsComplete bool
}

// Synthesis is the analysis produced for a submitted session.
type Synthesis struct {
	Brief       string
	Checkpoints []string
	Actionables []string
}

// Backend is the field extraction contract. Extract is called with the full
// transcript so far, the latest user turn, and the fields already known;
// passing an empty transcript requests the opening prompt only.
type Backend interface {
	Extract(ctx context.Context, transcript []domain.ChatTurn, userText string, current domain.IntakeFields) (ExtractResult, error)
	Synthesize(ctx context.Context, title, description string, attachmentTexts []string) (Synthesis, error)
}

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/fieldline/intakeflow/internal/domain"
)

type MarkdownExporter struct{}

func (e *MarkdownExporter) Export(session *domain.IntakeSession, w io.Writer) error {
	var b strings.Builder

	title := session.Fields.Title
	if title == "" {
		title = "Untitled intake"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Session: %s\n- Owner: %s\n- Status: %s\n\n", session.ID, session.OwnerID, session.Status)

	b.WriteString("## Fields\n\n")
	for _, row := range []struct{ label, value string }{
		{"Title", session.Fields.Title},
		{"Department", session.Fields.Department},
		{"Description", session.Fields.Description},
		{"Location", session.Fields.Location},
		{"Business unit", session.Fields.BusinessUnit},
		{"Contact email", session.Fields.ContactEmail},
		{"Queue priority", session.Fields.QueuePriority},
	} {
		if row.value != "" {
			fmt.Fprintf(&b, "- **%s**: %s\n", row.label, row.value)
		}
	}

	b.WriteString("\n## Conversation\n\n")
	for _, turn := range session.Transcript {
		fmt.Fprintf(&b, "**%s** (%s):\n\n%s\n\n", turn.Role, turn.CreatedAt.Format("2006-01-02 15:04:05"), turn.Text)
	}

	if len(session.Attachments) > 0 {
		b.WriteString("## Attachments\n\n")
		for _, a := range session.Attachments {
			fmt.Fprintf(&b, "- %s (%s, %d bytes)\n", a.FileName, a.DeclaredType, a.SizeBytes)
		}
		b.WriteString("\n")
	}

	if session.AnalysisBrief != "" {
		b.WriteString("## Analysis\n\n")
		fmt.Fprintf(&b, "%s\n\n", session.AnalysisBrief)
		if len(session.AnalysisCheckpoints) > 0 {
			b.WriteString("### Checkpoints\n\n")
			for _, c := range session.AnalysisCheckpoints {
				fmt.Fprintf(&b, "1. %s\n", c)
			}
			b.WriteString("\n")
		}
		if len(session.AnalysisActionables) > 0 {
			b.WriteString("### Actionables\n\n")
			for _, a := range session.AnalysisActionables {
				fmt.Fprintf(&b, "1. %s\n", a)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (e *MarkdownExporter) Extension() string { return "md" }

func (e *MarkdownExporter) ContentType() string { return "text/markdown" }

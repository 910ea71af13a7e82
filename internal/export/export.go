// Package export renders an intake session for download in several formats.
package export

import (
	"fmt"
	"io"

	"github.com/fieldline/intakeflow/internal/domain"
)

// Exporter writes a session rendering to w.
type Exporter interface {
	Export(session *domain.IntakeSession, w io.Writer) error
	Extension() string
	ContentType() string
}

// NewExporter returns the exporter for a format name.
func NewExporter(format string) (Exporter, error) {
	switch format {
	case "json", "":
		return &JSONExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	case "md", "markdown":
		return &MarkdownExporter{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q (supported: json, yaml, md)", domain.ErrValidationFailed, format)
	}
}

package export

import (
	"encoding/json"
	"io"

	"github.com/fieldline/intakeflow/internal/domain"
)

type JSONExporter struct{}

func (e *JSONExporter) Export(session *domain.IntakeSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(session)
}

func (e *JSONExporter) Extension() string { return "json" }

func (e *JSONExporter) ContentType() string { return "application/json" }

package export

import (
	"io"

	"github.com/fieldline/intakeflow/internal/domain"
	"gopkg.in/yaml.v3"
)

type YAMLExporter struct{}

func (e *YAMLExporter) Export(session *domain.IntakeSession, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()

	return enc.Encode(session)
}

func (e *YAMLExporter) Extension() string { return "yaml" }

func (e *YAMLExporter) ContentType() string { return "application/yaml" }

package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fieldline/intakeflow/internal/domain"
	"github.com/fieldline/intakeflow/internal/storage"
)

func storeBlob(t *testing.T, blobs storage.BlobStore, name string, data []byte) string {
	t.Helper()
	locator, err := blobs.Store(context.Background(), "s1", name, data)
	if err != nil {
		t.Fatalf("store blob: %v", err)
	}
	return locator
}

func TestEnrichPlainText(t *testing.T) {
	blobs := storage.NewMemoryStore()
	locator := storeBlob(t, blobs, "notes.txt", []byte("  step one\nstep two  "))

	text, err := NewTextExtractor(blobs).Enrich(context.Background(), locator, "notes.txt")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if text != "step one\nstep two" {
		t.Fatalf("text = %q", text)
	}
}

func TestEnrichHTML(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head>
<body><h1>Invoice SOP</h1><p>Match the PO first.</p><script>alert(1)</script></body></html>`
	blobs := storage.NewMemoryStore()
	locator := storeBlob(t, blobs, "sop.html", []byte(html))

	text, err := NewTextExtractor(blobs).Enrich(context.Background(), locator, "sop.html")
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if !strings.Contains(text, "Invoice SOP") || !strings.Contains(text, "Match the PO first.") {
		t.Fatalf("html text = %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Fatalf("script/style leaked into text: %q", text)
	}
}

func TestEnrichUnsupportedFormat(t *testing.T) {
	blobs := storage.NewMemoryStore()
	locator := storeBlob(t, blobs, "demo.mp4", []byte{0, 1, 2})

	_, err := NewTextExtractor(blobs).Enrich(context.Background(), locator, "demo.mp4")
	if !errors.Is(err, domain.ErrValidationFailed) {
		t.Fatalf("want ErrValidationFailed, got %v", err)
	}
}

func TestEnrichMissingBlob(t *testing.T) {
	blobs := storage.NewMemoryStore()
	_, err := NewTextExtractor(blobs).Enrich(context.Background(), "missing", "notes.txt")
	if !errors.Is(err, domain.ErrBackendFailure) {
		t.Fatalf("want ErrBackendFailure, got %v", err)
	}
}

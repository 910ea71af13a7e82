// Package enrich extracts searchable text from stored attachments. It is a
// collaborator of the intake core: the core only records the extracted text,
// it never calls in here itself.
package enrich

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fieldline/intakeflow/internal/domain"
	"github.com/fieldline/intakeflow/internal/storage"
)

// Enricher turns a stored attachment into plain text.
type Enricher interface {
	Enrich(ctx context.Context, locator, fileName string) (string, error)
}

// TextExtractor handles text-bearing formats directly: HTML via goquery,
// plain-text formats verbatim. Binary formats (audio, video, pdf) need an
// external transcription service and are rejected here.
type TextExtractor struct {
	blobs storage.BlobStore
}

func NewTextExtractor(blobs storage.BlobStore) *TextExtractor {
	return &TextExtractor{blobs: blobs}
}

func (e *TextExtractor) Enrich(ctx context.Context, locator, fileName string) (string, error) {
	data, err := e.blobs.Fetch(ctx, locator)
	if err != nil {
		return "", fmt.Errorf("%w: fetch attachment: %v", domain.ErrBackendFailure, err)
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".html", ".htm":
		return extractHTML(data)
	case ".txt", ".md", ".csv", ".vtt", ".srt", ".log":
		return strings.TrimSpace(string(data)), nil
	}
	return "", fmt.Errorf("%w: no text extractor for %s", domain.ErrValidationFailed, fileName)
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", domain.ErrBackendFailure, err)
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("body *").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() > 0 {
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		if text := strings.TrimSpace(doc.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n"), nil
}

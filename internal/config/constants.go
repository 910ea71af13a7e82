package config

import "time"

const (
	// NLP request timeout
	BackendTimeout = 90 * time.Second

	// Attachment limits
	MaxAttachmentBytes = 50 << 20

	// How many attachment texts feed one analysis call
	MaxAnalysisDocuments = 10

	// Truncation applied to each attachment text before analysis
	MaxAnalysisDocumentLen = 4000

	// Sessions per page when listing by owner
	SessionsPerPage = 20

	// HTTP server timeouts
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 120 * time.Second
	ShutdownTimeout = 10 * time.Second
)

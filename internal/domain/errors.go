package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("intake session not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrProcessNotFound    = errors.New("process record not found")
	ErrInvalidState       = errors.New("operation not allowed in current session state")
	ErrValidationFailed   = errors.New("validation failed")
	ErrBackendFailure     = errors.New("backend collaborator failed")
)

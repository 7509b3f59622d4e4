package main

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMode rejects redaction modes outside the accepted set.
var ErrUnsupportedMode = errors.New("unsupported redaction mode")

// ErrFileTooLarge rejects uploads over the configured size limit.
var ErrFileTooLarge = errors.New("uploaded file exceeds the size limit")

// InputDecodingError indicates the uploaded bytes could not be turned
// into page images. Reported to the client as a bad request.
type InputDecodingError struct {
	Filename string
	Cause    error
}

func (e *InputDecodingError) Error() string {
	return fmt.Sprintf("cannot decode %q into page images: %v", e.Filename, e.Cause)
}

func (e *InputDecodingError) Unwrap() error {
	return e.Cause
}

// CollaboratorError indicates an OCR or NER backend failed while
// processing a page. The whole request fails rather than returning a
// partial result that silently missed PII.
type CollaboratorError struct {
	Collaborator string
	Page         int
	Cause        error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s backend failed on page %d: %v", e.Collaborator, e.Page, e.Cause)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Cause
}

// isClientError splits errors into the 4xx family. Everything else is
// the service's fault.
func isClientError(err error) bool {
	var decodeErr *InputDecodingError
	if errors.As(err, &decodeErr) {
		return true
	}
	return errors.Is(err, ErrUnsupportedMode) || errors.Is(err, ErrFileTooLarge)
}

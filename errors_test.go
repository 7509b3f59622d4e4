package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsClientError(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"decoding error", &InputDecodingError{Filename: "x.png", Cause: cause}, true},
		{"wrapped decoding error", fmt.Errorf("request failed: %w", &InputDecodingError{Cause: cause}), true},
		{"unsupported mode", fmt.Errorf("%w: %q", ErrUnsupportedMode, "pixelate"), true},
		{"file too large", fmt.Errorf("%w: 100 bytes", ErrFileTooLarge), true},
		{"collaborator failure", &CollaboratorError{Collaborator: "ocr", Page: 1, Cause: cause}, false},
		{"plain error", cause, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isClientError(tt.err))
		})
	}
}

func TestCollaboratorErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &CollaboratorError{Collaborator: "ner", Page: 2, Cause: cause}

	assert.Equal(t, "ner backend failed on page 2: connection refused", err.Error())
	require.ErrorIs(t, err, cause)
}

func TestInputDecodingErrorMessage(t *testing.T) {
	err := &InputDecodingError{Filename: "scan.pdf", Cause: errors.New("bad xref")}

	assert.Contains(t, err.Error(), `"scan.pdf"`)
	assert.Contains(t, err.Error(), "bad xref")
}

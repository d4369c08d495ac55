package tutor

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when neither the session nor the
	// configuration provides a key.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrEmptyQuestion is returned for blank questions.
	ErrEmptyQuestion = errors.New("question must not be empty")
	// ErrEmptyReply is returned when the backend answers without text.
	ErrEmptyReply = errors.New("no response received from the AI model")
)

// APIError is a non-2xx answer from the chat-completion backend.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tutor API returned %d: %v", e.StatusCode, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

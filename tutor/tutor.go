// Package tutor talks to the LLM-backed tutor on behalf of a session.
//
// The conversation is carried as an explicit Transcript value that the caller
// owns; Ask returns the extended transcript instead of mutating shared state.
package tutor

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Observer records tutor backend calls.
type Observer interface {
	ObserveTutorRequest(status string, duration time.Duration)
}

// Tutor answers student questions using a chat-completion Client.
type Tutor struct {
	client        Client
	logger        *zap.Logger
	observer      Observer
	defaultAPIKey string
	timeout       time.Duration
}

// Option configures a Tutor.
type Option func(*Tutor)

// WithObserver sets the Observer notified after every backend call.
func WithObserver(observer Observer) Option {
	return func(t *Tutor) {
		t.observer = observer
	}
}

// WithDefaultAPIKey sets the key used when the session has none.
func WithDefaultAPIKey(key string) Option {
	return func(t *Tutor) {
		t.defaultAPIKey = key
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(timeout time.Duration) Option {
	return func(t *Tutor) {
		t.timeout = timeout
	}
}

// New creates a Tutor.
func New(client Client, logger *zap.Logger, opts ...Option) *Tutor {
	t := &Tutor{
		client: client,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// HasDefaultAPIKey reports whether a server-wide key is configured.
func (t *Tutor) HasDefaultAPIKey() bool {
	return t.defaultAPIKey != ""
}

// Ask sends question, with the conversation so far, to the backend. On
// success it returns transcript extended by the question and the reply. On
// any error it returns transcript unchanged.
func (t *Tutor) Ask(ctx context.Context, transcript Transcript, apiKey, question string) (Transcript, string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return transcript, "", ErrEmptyQuestion
	}

	if apiKey == "" {
		apiKey = t.defaultAPIKey
	}
	if apiKey == "" {
		return transcript, "", ErrMissingAPIKey
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	pending := transcript.With(Message{Role: RoleUser, Content: question})

	start := time.Now()
	reply, err := t.client.Complete(ctx, apiKey, pending.Messages())
	t.observe(err, time.Since(start))
	if err != nil {
		t.logger.Warn("tutor request failed",
			zap.Int("history_len", transcript.Len()),
			zap.Error(err))
		return transcript, "", err
	}

	t.logger.Debug("tutor replied",
		zap.Int("history_len", pending.Len()),
		zap.Int("reply_len", len(reply)))

	return pending.With(Message{Role: RoleAssistant, Content: reply}), reply, nil
}

func (t *Tutor) observe(err error, d time.Duration) {
	if t.observer == nil {
		return
	}
	status := "ok"
	var apiErr *APIError
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyReply):
		status = "empty"
	case errors.As(err, &apiErr):
		status = "api_error"
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	default:
		status = "error"
	}
	t.observer.ObserveTutorRequest(status, d)
}

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isdmx/tutorbox/apperror"
	"github.com/isdmx/tutorbox/session"
	"github.com/isdmx/tutorbox/tutor"
)

const maxChatBody = 64 * 1024

// Tutor answers questions for a session's transcript.
type Tutor interface {
	Ask(ctx context.Context, transcript tutor.Transcript, apiKey, question string) (tutor.Transcript, string, error)
	HasDefaultAPIKey() bool
}

// SessionResponse describes a session without exposing its API key.
type SessionResponse struct {
	ID        string          `json:"id"`
	HasAPIKey bool            `json:"has_api_key"`
	Messages  []tutor.Message `json:"messages"`
}

// APIKeyRequest is the body of PUT /api/sessions/{id}/key.
type APIKeyRequest struct {
	APIKey string `json:"api_key"`
}

// ChatRequest is the body of POST /api/sessions/{id}/messages.
type ChatRequest struct {
	Content string `json:"content"`
}

// ChatResponse carries the tutor's reply and the updated conversation.
type ChatResponse struct {
	Reply    string          `json:"reply"`
	Messages []tutor.Message `json:"messages"`
}

func (s *Server) sessionResponse(sess session.Session) SessionResponse {
	return SessionResponse{
		ID:        sess.ID,
		HasAPIKey: sess.APIKey != "" || s.tutor.HasDefaultAPIKey(),
		Messages:  sess.Transcript.Visible(),
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, s.logger, http.StatusCreated, s.sessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, s.sessionResponse(sess))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetAPIKey(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if err := decodeJSON(w, r, maxChatBody, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.sessions.SetAPIKey(chi.URLParam(r, "id"), req.APIKey); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, ChatResponse{Messages: sess.Transcript.Visible()})
}

func (s *Server) handleResetMessages(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Reset(chi.URLParam(r, "id")); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage asks the tutor and stores the extended transcript. A
// failed call leaves the stored transcript as it was.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ChatRequest
	if err := decodeJSON(w, r, maxChatBody, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	next, reply, err := s.tutor.Ask(r.Context(), sess.Transcript, sess.APIKey, req.Content)
	if err != nil {
		writeError(w, s.logger, tutorError(err))
		return
	}

	if err := s.sessions.SetTranscript(id, next); err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, s.logger, http.StatusOK, ChatResponse{
		Reply:    reply,
		Messages: next.Visible(),
	})
}

func tutorError(err error) error {
	var apiErr *tutor.APIError
	switch {
	case errors.Is(err, tutor.ErrEmptyQuestion):
		return apperror.ValidationFailed("content", "Please enter a question for the tutor.")
	case errors.Is(err, tutor.ErrMissingAPIKey):
		return apperror.ValidationFailed("api_key", "Please enter your API Key to use AI Tutor.")
	case errors.Is(err, tutor.ErrEmptyReply):
		return apperror.Upstream("No response received from the AI model.", err)
	case errors.As(err, &apiErr):
		return apperror.Upstream(fmt.Sprintf("Error with AI Tutor API: status %d.", apiErr.StatusCode), err)
	default:
		return apperror.Upstream("Error with AI Tutor API.", err)
	}
}

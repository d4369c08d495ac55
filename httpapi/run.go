package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/isdmx/tutorbox/apperror"
	"github.com/isdmx/tutorbox/sandbox"
)

// User-facing messages for the run outcomes.
const (
	MsgEmptyCode       = "Please enter some code to run."
	MsgNoOutput        = "Code executed successfully with no output."
	MsgTimeLimit       = "Code execution exceeded the time limit."
	MsgTruncatedOutput = "Output was truncated."
)

// RunRequest is the body of POST /api/run.
type RunRequest struct {
	Code string `json:"code"`
}

// RunResponse renders one of the three run outcomes.
type RunResponse struct {
	Status     sandbox.Outcome `json:"status"`
	Stdout     string          `json:"stdout"`
	Stderr     string          `json:"stderr"`
	ExitCode   int             `json:"exit_code"`
	DurationMS int64           `json:"duration_ms"`
	Truncated  bool            `json:"truncated"`
	Message    string          `json:"message,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := decodeJSON(w, r, s.maxRunBody(), &req); err != nil {
		writeError(w, s.logger, err)
		return
	}

	// Empty submissions never reach the executor.
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, s.logger, apperror.ValidationFailed("code", MsgEmptyCode))
		return
	}

	if limit := s.config.Sandbox.MaxSourceKB * sandbox.BytesPerKB; len(req.Code) > limit {
		writeError(w, s.logger, apperror.ValidationFailed("code",
			fmt.Sprintf("Code is too long: %d bytes, the limit is %d.", len(req.Code), limit)))
		return
	}

	result, err := s.executor.Execute(r.Context(), sandbox.ExecuteRequest{
		Code:    req.Code,
		Timeout: s.config.GetTimeout(),
	})
	if err != nil {
		writeError(w, s.logger, apperror.Execution(fmt.Sprintf("Error executing code: %v", err), err))
		return
	}

	s.logger.Debug("run finished",
		zap.String("outcome", string(result.Outcome)),
		zap.Duration("duration", result.Duration))

	writeJSON(w, s.logger, http.StatusOK, newRunResponse(result))
}

func newRunResponse(result sandbox.ExecuteResult) RunResponse {
	resp := RunResponse{
		Status:     result.Outcome,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ExitCode,
		DurationMS: result.Duration.Milliseconds(),
		Truncated:  result.Truncated,
	}

	switch {
	case result.Outcome == sandbox.OutcomeTimeout:
		resp.Message = MsgTimeLimit
	case result.Truncated:
		resp.Message = MsgTruncatedOutput
	case result.Outcome == sandbox.OutcomeSuccess && strings.TrimSpace(result.Stdout) == "":
		resp.Message = MsgNoOutput
	}

	return resp
}

func (s *Server) maxRunBody() int64 {
	// JSON escaping can blow a source byte up to six ("\u00XX").
	return int64(s.config.Sandbox.MaxSourceKB*sandbox.BytesPerKB)*6 + 4*sandbox.BytesPerKB
}

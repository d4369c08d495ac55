package httpapi

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/isdmx/tutorbox/exercise"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Exercise         exercise.Exercise
	TimeoutSec       int
	HasDefaultAPIKey bool
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Exercise:         s.exercise,
		TimeoutSec:       s.config.Sandbox.TimeoutSec,
		HasDefaultAPIKey: s.tutor.HasDefaultAPIKey(),
	})
	if err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "An internal error occurred", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExercise(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.exercise)
}

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/tutorbox/config"
	"github.com/isdmx/tutorbox/httpapi"
	"github.com/isdmx/tutorbox/mcpserver"
	"github.com/isdmx/tutorbox/metrics"
	"github.com/isdmx/tutorbox/sandbox"
	"github.com/isdmx/tutorbox/session"
	"github.com/isdmx/tutorbox/tutor"
)

type stubClient struct{}

func (stubClient) Complete(context.Context, string, []tutor.Message) (string, error) {
	return "Check your loop condition.", nil
}

func newStack(t *testing.T) (*config.Config, *httptest.Server, *metrics.Metrics) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	logger := zaptest.NewLogger(t)
	cfg := config.Default()
	cfg.Sandbox.TempDir = t.TempDir()
	cfg.Sandbox.TimeoutSec = 1
	cfg.Sandbox.KillGraceMS = 200

	m := metrics.New()
	executor, err := sandbox.NewExecutor(logger, cfg, m)
	require.NoError(t, err)

	tut := tutor.New(stubClient{}, logger, tutor.WithObserver(m), tutor.WithDefaultAPIKey("server-key"))
	mcp, err := mcpserver.New(cfg, logger, executor)
	require.NoError(t, err)

	srv := httpapi.New(cfg, logger, executor, tut,
		session.NewStore(cfg.Tutor.SystemPrompt, cfg.GetSessionTTL()), m,
		httpapi.WithMCPHandler(mcp.HTTPHandler()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return cfg, ts, m
}

func postRun(t *testing.T, ts *httptest.Server, code string) httpapi.RunResponse {
	t.Helper()
	body, err := json.Marshal(httpapi.RunRequest{Code: code})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/run", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out httpapi.RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// TestRunOutcomes drives the three outcomes through the HTTP API with a real interpreter.
func TestRunOutcomes(t *testing.T) {
	cfg, ts, m := newStack(t)

	t.Run("success", func(t *testing.T) {
		out := postRun(t, ts, "def count_positive(ns):\n    return sum(1 for n in ns if n > 0)\nprint(count_positive([1, -2, 3, 4, -5]))\n")
		assert.Equal(t, sandbox.OutcomeSuccess, out.Status)
		assert.Equal(t, "3\n", out.Stdout)
		assert.Empty(t, out.Message)
	})

	t.Run("failure", func(t *testing.T) {
		out := postRun(t, ts, "raise ValueError('negative input')\n")
		assert.Equal(t, sandbox.OutcomeFailure, out.Status)
		assert.Contains(t, out.Stderr, "ValueError: negative input")
		assert.NotZero(t, out.ExitCode)
	})

	t.Run("timeout", func(t *testing.T) {
		start := time.Now()
		out := postRun(t, ts, "while True:\n    pass\n")
		assert.Equal(t, sandbox.OutcomeTimeout, out.Status)
		assert.Equal(t, httpapi.MsgTimeLimit, out.Message)
		assert.Empty(t, out.Stdout)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	entries, err := os.ReadDir(cfg.Sandbox.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "submission files must be removed")

	assert.InDelta(t, 1, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues(string(sandbox.OutcomeSuccess))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues(string(sandbox.OutcomeFailure))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ExecutionsTotal.WithLabelValues(string(sandbox.OutcomeTimeout))), 0)
}

// TestTutorConversation checks a session round trip through the API.
func TestTutorConversation(t *testing.T) {
	_, ts, _ := newStack(t)

	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	var sess httpapi.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, sess.HasAPIKey)

	body, err := json.Marshal(httpapi.ChatRequest{Content: "Why is my answer 0?"})
	require.NoError(t, err)
	resp, err = http.Post(ts.URL+"/api/sessions/"+sess.ID+"/messages", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var chat httpapi.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&chat))
	assert.Equal(t, "Check your loop condition.", chat.Reply)
	assert.Len(t, chat.Messages, 2)
}

// TestExampleConfigRoundTrip writes the example config and loads it back.
func TestExampleConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.WriteExample(path))

	t.Setenv("TUTORBOX_SANDBOX_TIMEOUT_SEC", "4")
	cfg, err := config.Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, cfg.GetTimeout())
	assert.Equal(t, config.Default().Tutor.Model, cfg.Tutor.Model)
}

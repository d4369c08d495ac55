package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/tutorbox/config"
	"github.com/isdmx/tutorbox/sandbox"
)

// MockSandboxExecutor implements sandbox.SandboxExecutor for testing
type MockSandboxExecutor struct {
	executeResult sandbox.ExecuteResult
	executeError  error
	lastRequest   sandbox.ExecuteRequest
	calls         int
}

func (m *MockSandboxExecutor) Execute(_ context.Context, req sandbox.ExecuteRequest) (sandbox.ExecuteResult, error) { //nolint:gocritic // Mock implementation requires full parameter signature
	m.calls++
	m.lastRequest = req
	return m.executeResult, m.executeError
}

func newTestServer(t *testing.T, exec *MockSandboxExecutor) *MCPServer {
	t.Helper()
	s, err := New(config.Default(), zaptest.NewLogger(t), exec)
	require.NoError(t, err)
	return s
}

func callRunPython(t *testing.T, s *MCPServer, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = toolRunPython
	req.Params.Arguments = args

	result, err := s.handleRunPython(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewMCPServer(t *testing.T) {
	exec := &MockSandboxExecutor{}
	s := newTestServer(t, exec)

	assert.NotNil(t, s.mcpServer)
	assert.Equal(t, exec, s.sandboxExec)
	assert.NotNil(t, s.HTTPHandler())
}

func TestRunPython(t *testing.T) {
	tests := []struct {
		name        string
		result      sandbox.ExecuteResult
		wantIsError bool
	}{
		{
			name:   "success",
			result: sandbox.ExecuteResult{Outcome: sandbox.OutcomeSuccess, Stdout: "3\n", Duration: 15 * time.Millisecond},
		},
		{
			name:        "failure",
			result:      sandbox.ExecuteResult{Outcome: sandbox.OutcomeFailure, Stderr: "NameError\n", ExitCode: 1},
			wantIsError: true,
		},
		{
			name:        "timeout",
			result:      sandbox.ExecuteResult{Outcome: sandbox.OutcomeTimeout, ExitCode: -1},
			wantIsError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &MockSandboxExecutor{executeResult: tt.result}
			s := newTestServer(t, exec)

			result := callRunPython(t, s, map[string]any{"code": "print(3)"})
			assert.Equal(t, tt.wantIsError, result.IsError)

			var got RunResult
			require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &got))
			assert.Equal(t, tt.result.Outcome, got.Status)
			assert.Equal(t, tt.result.Stdout, got.Stdout)
			assert.Equal(t, tt.result.Stderr, got.Stderr)
			assert.Equal(t, tt.result.ExitCode, got.ExitCode)
			assert.Equal(t, tt.result.Duration.Milliseconds(), got.DurationMS)

			assert.Equal(t, "print(3)", exec.lastRequest.Code)
			assert.Equal(t, config.Default().GetTimeout(), exec.lastRequest.Timeout)
		})
	}
}

func TestRunPythonTimeoutArgument(t *testing.T) {
	exec := &MockSandboxExecutor{executeResult: sandbox.ExecuteResult{Outcome: sandbox.OutcomeSuccess}}
	s := newTestServer(t, exec)

	callRunPython(t, s, map[string]any{"code": "pass", "timeout_sec": 2})
	assert.Equal(t, 2*time.Second, exec.lastRequest.Timeout)

	// Longer than the configured limit is clamped.
	callRunPython(t, s, map[string]any{"code": "pass", "timeout_sec": 3600})
	assert.Equal(t, config.Default().GetTimeout(), exec.lastRequest.Timeout)
}

func TestRunPythonRejectsEmptyCode(t *testing.T) {
	exec := &MockSandboxExecutor{}
	s := newTestServer(t, exec)

	result := callRunPython(t, s, map[string]any{"code": "  \n"})
	assert.True(t, result.IsError)
	assert.Zero(t, exec.calls)
}

func TestRunPythonMissingCode(t *testing.T) {
	s := newTestServer(t, &MockSandboxExecutor{})

	req := mcp.CallToolRequest{}
	req.Params.Name = toolRunPython
	req.Params.Arguments = map[string]any{}

	_, err := s.handleRunPython(context.Background(), req)
	require.Error(t, err)
}

func TestRunPythonLaunchError(t *testing.T) {
	exec := &MockSandboxExecutor{
		executeError: &sandbox.LaunchError{Op: "start interpreter", Err: errors.New("not found")},
	}
	s := newTestServer(t, exec)

	result := callRunPython(t, s, map[string]any{"code": "print(1)"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Execution failed: start interpreter")
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/tutorbox/config"
	"github.com/isdmx/tutorbox/sandbox"
)

const (
	serverName    = "tutorbox"
	serverVersion = "1.0.0"
	toolRunPython = "run_python"
)

// MCPServer exposes the sandbox as an MCP tool.
type MCPServer struct {
	config      *config.Config
	logger      *zap.Logger
	sandboxExec sandbox.SandboxExecutor
	mcpServer   *server.MCPServer
}

// RunResult is the JSON document returned as the tool's text content.
type RunResult struct {
	Status     sandbox.Outcome `json:"status"`
	Stdout     string          `json:"stdout"`
	Stderr     string          `json:"stderr"`
	ExitCode   int             `json:"exit_code"`
	DurationMS int64           `json:"duration_ms"`
	Truncated  bool            `json:"truncated"`
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, sandboxExec sandbox.SandboxExecutor) (*MCPServer, error) {
	s := &MCPServer{
		config:      cfg,
		logger:      logger.Named("mcp"),
		sandboxExec: sandboxExec,
	}

	s.mcpServer = server.NewMCPServer(serverName, serverVersion)
	s.registerRunPythonTool()

	return s, nil
}

func (s *MCPServer) registerRunPythonTool() {
	tool := mcp.Tool{
		Name: toolRunPython,
		Description: fmt.Sprintf("Run a Python program and return its output. "+
			"The program gets no stdin and is killed after %d seconds.", s.config.Sandbox.TimeoutSec),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"code": map[string]any{
					"type":        "string",
					"description": "Python source code",
				},
				"timeout_sec": map[string]any{
					"type":        "integer",
					"description": "Optional shorter time limit in seconds",
					"minimum":     1,
					"maximum":     s.config.Sandbox.TimeoutSec,
				},
			},
			Required: []string{"code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleRunPython)
}

// handleRunPython runs the submitted code. Program failures and timeouts are
// tool errors carrying the result; launch failures are tool errors with a
// plain message.
func (s *MCPServer) handleRunPython(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return nil, fmt.Errorf("code parameter is required: %w", err)
	}
	if strings.TrimSpace(code) == "" {
		return textResult("code must not be empty", true), nil
	}
	if limit := s.config.Sandbox.MaxSourceKB * sandbox.BytesPerKB; len(code) > limit {
		return textResult(fmt.Sprintf("code is %d bytes, the limit is %d", len(code), limit), true), nil
	}

	timeout := s.timeout(request.GetInt("timeout_sec", 0))

	result, err := s.sandboxExec.Execute(ctx, sandbox.ExecuteRequest{
		Code:    code,
		Timeout: timeout,
	})
	if err != nil {
		s.logger.Error("run_python could not run submission", zap.Error(err))
		return textResult(fmt.Sprintf("Execution failed: %v", err), true), nil
	}

	payload, err := json.Marshal(RunResult{
		Status:     result.Outcome,
		Stdout:     result.Stdout,
		Stderr:     result.Stderr,
		ExitCode:   result.ExitCode,
		DurationMS: result.Duration.Milliseconds(),
		Truncated:  result.Truncated,
	})
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}

	return textResult(string(payload), !result.Succeeded()), nil
}

// timeout clamps a requested limit to the configured one.
func (s *MCPServer) timeout(requestedSec int) time.Duration {
	limit := s.config.GetTimeout()
	if requestedSec <= 0 {
		return limit
	}
	if requested := time.Duration(requestedSec) * time.Second; requested < limit {
		return requested
	}
	return limit
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: text,
			},
		},
		IsError: isError,
	}
}

// ServeStdio serves MCP on stdin/stdout until the input is closed.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// HTTPHandler returns a streamable HTTP handler for mounting at /mcp.
func (s *MCPServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

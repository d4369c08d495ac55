// Package mcpserver exposes the Python sandbox over the Model Context
// Protocol.
//
// It registers a single run_python tool backed by a sandbox.SandboxExecutor,
// so an assistant can run a student's program the same way the web page does.
// The server can run on stdio or be mounted on the HTTP router at /mcp.
package mcpserver

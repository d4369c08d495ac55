// Package main is the entry point for the tutorbox server.
//
// tutorbox serves a single-page Python tutoring tool: a student edits code,
// runs it in a local sandbox with a wall-clock limit, and asks an AI tutor
// about it. The same sandbox is available as an MCP run_python tool, either
// mounted at /mcp on the HTTP server or served on stdio.
//
// Dependencies are wired with Uber's fx, logging goes through zap and the
// configuration is read with viper from config.yaml and TUTORBOX_*
// environment variables.
package main

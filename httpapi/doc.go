// Package httpapi serves the tutoring page and its JSON API.
//
// The page shows the exercise, a code editor and a chat panel. Runs go
// through POST /api/run, which hands the code to a sandbox.SandboxExecutor
// and renders one of three outcomes: success with stdout, failure with
// stderr, or a timeout notice. Tutor conversations live in a session.Store
// keyed by an opaque session id; the API key a user enters is kept only in
// that session.
package httpapi

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ExecuteRequest represents the parameters for code execution
type ExecuteRequest struct {
	Code    string
	Timeout time.Duration
}

// Outcome is the shape of a finished run.
type Outcome string

const (
	// OutcomeSuccess means the program exited with status zero.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure means the program exited with a non-zero status.
	OutcomeFailure Outcome = "failure"
	// OutcomeTimeout means the program was killed at its deadline.
	OutcomeTimeout Outcome = "timeout"
)

// ExecuteResult represents the result of code execution.
//
// Stdout is only set for OutcomeSuccess and Stderr only for OutcomeFailure.
// A timed-out run carries no output at all.
type ExecuteResult struct {
	Outcome   Outcome
	Stdout    string
	Stderr    string
	ExitCode  int
	Duration  time.Duration
	Truncated bool
}

// Succeeded reports whether the program exited with status zero.
func (r ExecuteResult) Succeeded() bool { return r.Outcome == OutcomeSuccess }

// TimedOut reports whether the program was killed at its deadline.
func (r ExecuteResult) TimedOut() bool { return r.Outcome == OutcomeTimeout }

// SandboxExecutor defines the interface for sandbox execution.
//
// A non-nil error is only returned when the submission could not be run at
// all; program failures and timeouts are reported through ExecuteResult.
type SandboxExecutor interface {
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error)
}

// ErrInvalidTimeout is returned for a zero or negative request timeout.
var ErrInvalidTimeout = errors.New("timeout must be positive")

// LaunchError reports that a submission never ran: its file could not be
// written or the interpreter could not be started.
type LaunchError struct {
	Op  string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Observer is notified about every finished run. Status is an Outcome or
// StatusLaunchError.
type Observer interface {
	ObserveExecution(status string, duration time.Duration)
	ObserveCleanupFailure()
}

// StatusLaunchError is the Observer status for runs that never started.
const StatusLaunchError = "launch_error"

type nopObserver struct{}

func (nopObserver) ObserveExecution(string, time.Duration) {}
func (nopObserver) ObserveCleanupFailure()                 {}

// FileSystem defines an interface for file system operations
type FileSystem interface {
	// CreateExclusive writes data to a new file at path, failing if the
	// path already exists.
	CreateExclusive(path string, data []byte, perm os.FileMode) error
	Remove(path string) error
}

// RealFileSystem implements FileSystem using actual file system operations
type RealFileSystem struct{}

func (RealFileSystem) CreateExclusive(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

func (RealFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// File naming and permission constants
const (
	FilePermission     = 0600
	BytesPerKB         = 1024
	SubmissionPrefix   = "submission-"
	SubmissionExt      = ".py"
	DefaultInterpreter = "python3"
)

// DefaultKillGrace is used when Config.KillGrace is not positive.
const DefaultKillGrace = 2 * time.Second

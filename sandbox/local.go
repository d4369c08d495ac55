// Package sandbox provides secure code execution capabilities.
//
// The sandbox package implements the execution engine for running untrusted
// code in isolated environments. The LocalExecutor runs a submission as a
// separate interpreter process on the host, bounded by a wall-clock deadline.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds configuration for the local executor
type Config struct {
	Interpreter     string
	InterpreterArgs []string
	// TempDir is where submissions are written; empty means os.TempDir().
	TempDir        string
	MaxOutputBytes int
	// KillGrace bounds how long Wait keeps reading output after the deadline
	// or after the interpreter exits while a descendant still holds its pipes.
	// Zero or negative means DefaultKillGrace; Wait is never unbounded.
	KillGrace   time.Duration
	Environment []string
}

// LocalExecutor implements SandboxExecutor by running the interpreter as a
// child process. It holds no per-run state and is safe for concurrent use.
type LocalExecutor struct {
	logger   *zap.Logger
	config   *Config
	fs       FileSystem
	observer Observer
	newName  func() string
}

// LocalExecutorOption defines a functional option for LocalExecutor
type LocalExecutorOption func(*LocalExecutor)

// WithLocalFileSystem sets the FileSystem for LocalExecutor
func WithLocalFileSystem(fs FileSystem) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.fs = fs
	}
}

// WithObserver sets the Observer notified after every run
func WithObserver(observer Observer) LocalExecutorOption {
	return func(l *LocalExecutor) {
		if observer != nil {
			l.observer = observer
		}
	}
}

// WithNameGenerator overrides how submission file names are generated.
func WithNameGenerator(newName func() string) LocalExecutorOption {
	return func(l *LocalExecutor) {
		l.newName = newName
	}
}

// NewLocalExecutor creates a new LocalExecutor with default implementations and optional interfaces
func NewLocalExecutor(logger *zap.Logger, config *Config, opts ...LocalExecutorOption) *LocalExecutor {
	executor := &LocalExecutor{
		logger:   logger,
		config:   config,
		fs:       &RealFileSystem{},
		observer: nopObserver{},
		newName:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Execute writes the submission to a uniquely named file, runs it under
// req.Timeout and removes the file again on every path.
//
// Cancelling ctx does not stop a run early; only the timeout does.
func (l *LocalExecutor) Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error) {
	if req.Timeout <= 0 {
		return ExecuteResult{}, fmt.Errorf("%w, got: %s", ErrInvalidTimeout, req.Timeout)
	}

	start := time.Now()

	path, err := l.writeSubmission(req.Code)
	if err != nil {
		l.observer.ObserveExecution(StatusLaunchError, time.Since(start))
		return ExecuteResult{}, &LaunchError{Op: "write submission", Err: err}
	}
	defer l.removeSubmission(path)

	result, err := l.run(ctx, path, req.Timeout)
	if err != nil {
		l.observer.ObserveExecution(StatusLaunchError, time.Since(start))
		l.logger.Error("submission could not be run",
			zap.String("file", filepath.Base(path)),
			zap.Error(err))
		return ExecuteResult{}, err
	}

	l.observer.ObserveExecution(string(result.Outcome), result.Duration)
	l.logger.Info("submission finished",
		zap.String("file", filepath.Base(path)),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration),
		zap.Bool("truncated", result.Truncated))

	return result, nil
}

func (l *LocalExecutor) run(ctx context.Context, path string, timeout time.Duration) (ExecuteResult, error) {
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	args := append(slices.Clone(l.config.InterpreterArgs), path)
	//nolint:gosec // Running student code is intended functionality
	cmd := exec.CommandContext(runCtx, l.interpreter(), args...)
	cmd.Dir = filepath.Dir(path)
	cmd.Env = append(os.Environ(), l.config.Environment...)
	// nil Stdin reads from the null device, so input() sees EOF instead of blocking
	cmd.Stdin = nil

	stdout := newCappedBuffer(l.config.MaxOutputBytes)
	stderr := newCappedBuffer(l.config.MaxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	isolateProcessGroup(cmd)
	cmd.WaitDelay = l.killGrace()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return ExecuteResult{}, &LaunchError{Op: "start interpreter", Err: err}
	}
	pid := cmd.Process.Pid

	waitErr := cmd.Wait()
	duration := time.Since(start)

	// Reap anything the submission left running in its group.
	if err := killProcessGroup(pid); err != nil {
		l.logger.Warn("failed to kill submission process group",
			zap.Int("pgid", pid),
			zap.Error(err))
	}

	if waitErr != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return ExecuteResult{
			Outcome:  OutcomeTimeout,
			ExitCode: -1,
			Duration: duration,
		}, nil
	}

	exitCode := 0
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.Is(waitErr, exec.ErrWaitDelay):
		exitCode = cmd.ProcessState.ExitCode()
	case errors.As(waitErr, &exitErr):
		exitCode = exitErr.ExitCode()
	default:
		return ExecuteResult{}, &LaunchError{Op: "wait for interpreter", Err: waitErr}
	}

	if exitCode == 0 {
		return ExecuteResult{
			Outcome:   OutcomeSuccess,
			Stdout:    stdout.String(),
			ExitCode:  0,
			Duration:  duration,
			Truncated: stdout.Truncated(),
		}, nil
	}

	return ExecuteResult{
		Outcome:   OutcomeFailure,
		Stderr:    stderr.String(),
		ExitCode:  exitCode,
		Duration:  duration,
		Truncated: stderr.Truncated(),
	}, nil
}

func (l *LocalExecutor) interpreter() string {
	if l.config.Interpreter == "" {
		return DefaultInterpreter
	}
	return l.config.Interpreter
}

func (l *LocalExecutor) killGrace() time.Duration {
	if l.config.KillGrace <= 0 {
		return DefaultKillGrace
	}
	return l.config.KillGrace
}

func (l *LocalExecutor) tempDir() string {
	if l.config.TempDir == "" {
		return os.TempDir()
	}
	return l.config.TempDir
}

// SubmissionPath returns where a submission with the given name is written.
func (l *LocalExecutor) SubmissionPath(name string) string {
	return filepath.Join(l.tempDir(), SubmissionPrefix+name+SubmissionExt)
}

func (l *LocalExecutor) writeSubmission(code string) (string, error) {
	path := l.SubmissionPath(l.newName())
	if err := l.fs.CreateExclusive(path, []byte(code), FilePermission); err != nil {
		return "", err
	}
	return path, nil
}

// removeSubmission deletes the submission file. Failure is logged and
// counted but never reported to the caller.
func (l *LocalExecutor) removeSubmission(path string) {
	if err := l.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		l.observer.ObserveCleanupFailure()
		l.logger.Warn("failed to remove submission file",
			zap.String("path", path),
			zap.Error(err))
	}
}

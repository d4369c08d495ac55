// Package sandbox provides secure code execution capabilities.
//
// The sandbox package implements the execution engine for running untrusted
// student code. Each submission is written to its own uniquely named file,
// run by the Python interpreter in a fresh process group and killed together
// with any descendants once its deadline passes. The file is removed on every
// path, including launch failures.
//
// Isolation is limited to a separate OS process plus the deadline; there is
// no filesystem or network restriction.
//
// Usage:
//
//	executor := sandbox.NewLocalExecutor(logger, &sandbox.Config{Interpreter: "python3"})
//	result, err := executor.Execute(ctx, sandbox.ExecuteRequest{
//	    Code:    "print('Hello, World!')",
//	    Timeout: 10 * time.Second,
//	})
package sandbox

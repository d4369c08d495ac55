//go:build !unix

package sandbox

import "os/exec"

// Without process groups only the direct child is killed on cancellation.
func isolateProcessGroup(*exec.Cmd) {}

func killProcessGroup(int) error { return nil }

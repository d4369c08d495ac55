package sandbox

import (
	"go.uber.org/zap"

	"github.com/isdmx/tutorbox/config"
)

// NewExecutor creates the submission executor from the application configuration
func NewExecutor(logger *zap.Logger, cfg *config.Config, observer Observer) (SandboxExecutor, error) {
	executorConfig := Config{
		Interpreter:     cfg.Sandbox.Interpreter,
		InterpreterArgs: cfg.Sandbox.InterpreterArgs,
		TempDir:         cfg.Sandbox.TempDir,
		MaxOutputBytes:  cfg.Sandbox.MaxOutputKB * BytesPerKB,
		KillGrace:       cfg.GetKillGrace(),
		Environment:     cfg.Sandbox.Environment,
	}

	return NewLocalExecutor(logger.Named("sandbox"), &executorConfig, WithObserver(observer)), nil
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/isdmx/tutorbox/config"
	"github.com/isdmx/tutorbox/httpapi"
	"github.com/isdmx/tutorbox/logger"
	"github.com/isdmx/tutorbox/mcpserver"
	"github.com/isdmx/tutorbox/metrics"
	"github.com/isdmx/tutorbox/sandbox"
	"github.com/isdmx/tutorbox/session"
	"github.com/isdmx/tutorbox/tutor"
)

const tutorMaxRetries = 2

func appOptions(configPath string) fx.Option {
	return fx.Options(
		fx.Provide(
			func() (*config.Config, error) {
				return config.Load(viper.New(), configPath)
			},
			logger.NewFromConfig,
			metrics.New,
			fx.Annotate(
				func(m *metrics.Metrics) *metrics.Metrics { return m },
				fx.As(new(sandbox.Observer)),
			),
			sandbox.NewExecutor,
			newTutor,
			newSessionStore,
			mcpserver.New,
			newHTTPServer,
		),
		fx.Invoke(startTransport),
		fx.WithLogger(logger.FxLogger),
	)
}

func newTutor(cfg *config.Config, log *zap.Logger, m *metrics.Metrics) *tutor.Tutor {
	client := tutor.NewOpenAIClient(cfg.Tutor.BaseURL, cfg.Tutor.Model, tutorMaxRetries)
	return tutor.New(client, log.Named("tutor"),
		tutor.WithObserver(m),
		tutor.WithDefaultAPIKey(cfg.Tutor.APIKey),
		tutor.WithTimeout(cfg.GetTutorTimeout()),
	)
}

func newSessionStore(cfg *config.Config) *session.Store {
	return session.NewStore(cfg.Tutor.SystemPrompt, cfg.GetSessionTTL())
}

func newHTTPServer(
	cfg *config.Config,
	log *zap.Logger,
	executor sandbox.SandboxExecutor,
	t *tutor.Tutor,
	sessions *session.Store,
	m *metrics.Metrics,
	mcp *mcpserver.MCPServer,
) *httpapi.Server {
	return httpapi.New(cfg, log, executor, t, sessions, m, httpapi.WithMCPHandler(mcp.HTTPHandler()))
}

// startTransport hooks the configured transport into the fx lifecycle.
func startTransport(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Config,
	log *zap.Logger,
	httpServer *httpapi.Server,
	mcp *mcpserver.MCPServer,
) error {
	log.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.String("sandbox.interpreter", cfg.Sandbox.Interpreter),
		zap.Int("sandbox.timeout_sec", cfg.Sandbox.TimeoutSec),
		zap.Int("sandbox.max_output_kb", cfg.Sandbox.MaxOutputKB),
		zap.String("tutor.model", cfg.Tutor.Model),
		zap.Bool("tutor.api_key_set", cfg.Tutor.APIKey != ""),
		zap.Int("session.ttl_min", cfg.Session.TTLMin),
	)

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				return httpServer.Start()
			},
			OnStop: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.GetShutdownTimeout())
				defer cancel()
				return httpServer.Shutdown(ctx)
			},
		})
	case config.TransportStdio:
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					if err := mcp.ServeStdio(); err != nil {
						log.Error("stdio server stopped", zap.Error(err))
					}
					if err := shutdowner.Shutdown(); err != nil {
						log.Error("failed to request shutdown", zap.Error(err))
					}
				}()
				return nil
			},
		})
	default:
		return fmt.Errorf("unsupported transport: %s", cfg.Server.Transport)
	}

	return nil
}

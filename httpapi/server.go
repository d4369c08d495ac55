package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/isdmx/tutorbox/config"
	"github.com/isdmx/tutorbox/exercise"
	"github.com/isdmx/tutorbox/metrics"
	"github.com/isdmx/tutorbox/sandbox"
	"github.com/isdmx/tutorbox/session"
)

const (
	defaultSweepInterval = time.Minute
	readHeaderTimeout    = 10 * time.Second
)

// Server serves the tutoring page and its JSON API.
type Server struct {
	config   *config.Config
	logger   *zap.Logger
	executor sandbox.SandboxExecutor
	tutor    Tutor
	sessions *session.Store
	metrics  *metrics.Metrics
	exercise exercise.Exercise
	mcp      http.Handler

	sweepInterval time.Duration
	router        chi.Router

	mu         sync.Mutex
	httpServer *http.Server
	stopSweep  chan struct{}
	sweepDone  chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithMCPHandler mounts an MCP endpoint at /mcp.
func WithMCPHandler(h http.Handler) Option {
	return func(s *Server) {
		s.mcp = h
	}
}

// WithExercise replaces the exercise shown on the page.
func WithExercise(ex exercise.Exercise) Option {
	return func(s *Server) {
		s.exercise = ex
	}
}

// WithSweepInterval sets how often expired sessions are dropped.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// New creates a Server and builds its routes.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	executor sandbox.SandboxExecutor,
	tutor Tutor,
	sessions *session.Store,
	m *metrics.Metrics,
	opts ...Option,
) *Server {
	s := &Server{
		config:        cfg,
		logger:        logger.Named("http"),
		executor:      executor,
		tutor:         tutor,
		sessions:      sessions,
		metrics:       m,
		exercise:      exercise.Sample,
		sweepInterval: defaultSweepInterval,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	var observer HTTPObserver
	if s.metrics != nil {
		observer = s.metrics
	}
	r.Use(requestLogger(s.logger, observer))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.mcp != nil {
		r.Handle("/mcp", s.mcp)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/exercise", s.handleExercise)
		r.Post("/run", s.handleRun)

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Put("/key", s.handleSetAPIKey)
			r.Get("/messages", s.handleListMessages)
			r.Post("/messages", s.handleSendMessage)
			r.Delete("/messages", s.handleResetMessages)
		})
	})

	return r
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// Start binds the configured port and serves in the background. It returns
// once the listener is open.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Server.HTTPPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln in the background.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return errors.New("server already started")
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.stopSweep = make(chan struct{})
	s.sweepDone = make(chan struct{})

	s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server stopped", zap.Error(err))
		}
	}(s.httpServer)

	go s.sweepSessions(s.stopSweep, s.sweepDone)

	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	stop, done := s.stopSweep, s.sweepDone
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	close(stop)
	<-done

	s.logger.Info("stopping HTTP server")
	return srv.Shutdown(ctx)
}

func (s *Server) sweepSessions(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := s.sessions.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

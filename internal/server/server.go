// Package server exposes program inspection and target selection as MCP
// tools over stdio or SSE.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"go-method-tracer/internal/metrics"
	"go-method-tracer/internal/program"
)

const (
	name    = "go-method-tracer"
	version = "0.1.0"
)

// Server wraps an MCP server and the programs it has loaded.
type Server struct {
	mcp      *server.MCPServer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	dir      string
	patterns []string
	tests    bool

	mu       sync.Mutex
	programs map[string]*program.Program
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records selections and serves /metrics over SSE.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithProject sets the project tools use when a request names none.
func WithProject(dir string, patterns []string, tests bool) Option {
	return func(s *Server) {
		s.dir, s.patterns, s.tests = dir, patterns, tests
	}
}

// New returns a Server with every tool registered.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   slog.Default(),
		dir:      ".",
		programs: make(map[string]*program.Program),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcp = server.NewMCPServer(name, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.registerTools()
	return s
}

// ServeStdio serves MCP on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// messagePath derives the message endpoint from the SSE endpoint:
// "/mcp/sse" pairs with "/mcp/message", anything else gets "/message"
// appended.
func messagePath(ssePath string) string {
	msg := strings.Replace(ssePath, "/sse", "/message", 1)
	if msg == ssePath {
		msg = strings.TrimRight(ssePath, "/") + "/message"
	}
	return msg
}

// Handler routes the SSE transport, /healthz and, with metrics, /metrics.
func (s *Server) Handler(ssePath string) http.Handler {
	msgPath := messagePath(ssePath)
	sse := server.NewSSEServer(s.mcp,
		server.WithSSEEndpoint(ssePath),
		server.WithMessageEndpoint(msgPath),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle(ssePath, sse.SSEHandler())
	r.Handle(msgPath, sse.MessageHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// ServeSSE listens on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeSSE(ctx context.Context, addr, ssePath string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(ssePath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving MCP over SSE", "addr", addr, "sse", ssePath, "message", messagePath(ssePath))
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// load returns the program rooted at dir, loading it on first use. An
// empty dir means the configured project.
func (s *Server) load(ctx context.Context, dir string, refresh bool) (*program.Program, error) {
	if dir == "" {
		dir = s.dir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prog, ok := s.programs[abs]; ok && !refresh {
		return prog, nil
	}
	start := time.Now()
	prog, err := program.Load(ctx, program.LoadConfig{
		Dir:      abs,
		Patterns: s.patterns,
		Tests:    s.tests,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project loaded", "dir", abs, "packages", len(prog.Packages()), "took", time.Since(start))
	s.programs[abs] = prog
	return prog, nil
}

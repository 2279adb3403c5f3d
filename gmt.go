// Package gmt traces calls of selected functions in a running Go program.
//
// A Session loads the program's source to know its packages, types and
// functions, selects targets from them, and attaches trace hooks. The
// program reports calls by opening probes at the top of the functions
// that may be traced:
//
//	func (s *Store) Checkout(ctx context.Context, c *cart.Cart) (total int) {
//		ctx, done := session.Enter(ctx, c)
//		defer func() { _ = done(total) }()
//		...
//	}
//
// Probes of functions that are not targets cost a stack walk and a map
// lookup. Every outermost traced call produces one block of output
// describing its whole call tree.
package gmt

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go-method-tracer/internal/config"
	"go-method-tracer/internal/emission"
	"go-method-tracer/internal/metrics"
	"go-method-tracer/internal/probe"
	"go-method-tracer/internal/program"
	"go-method-tracer/internal/rules"
	"go-method-tracer/internal/selector"
	"go-method-tracer/internal/tracer"
)

// Session is one tracing setup: a loaded program, its targets and the
// probes reporting their calls.
type Session struct {
	cfg     *config.Config
	prog    *program.Program
	rules   *rules.File
	sink    emission.Sink
	metrics *metrics.Metrics
	logger  *slog.Logger

	emitter *emission.Emitter
	tracer  *tracer.Tracer
	probes  *probe.Registry
}

// Option configures a Session.
type Option func(*Session)

// WithConfig replaces config.NewDefaultConfig.
func WithConfig(cfg *config.Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithProgram uses an already loaded program instead of loading
// cfg.Project.
func WithProgram(prog *program.Program) Option {
	return func(s *Session) { s.prog = prog }
}

// WithRules selects targets when the session opens. Without it the
// rules file named by cfg.Project.Rules is used, if any.
func WithRules(f *rules.File) Option {
	return func(s *Session) { s.rules = f }
}

// WithSink sends trace blocks to sink instead of stderr.
func WithSink(sink emission.Sink) Option {
	return func(s *Session) { s.sink = sink }
}

// WithMetrics records emission and selection activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Open builds a Session. Targets from rules are selected and attached
// before Open returns.
func Open(ctx context.Context, opts ...Option) (*Session, error) {
	s := &Session{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg == nil {
		s.cfg = config.NewDefaultConfig()
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	if s.prog == nil {
		prog, err := program.Load(ctx, program.LoadConfig{
			Dir:      s.cfg.Project.Dir,
			Patterns: s.cfg.Project.Patterns,
			Tests:    s.cfg.Project.Tests,
			Logger:   s.logger,
		})
		if err != nil {
			return nil, err
		}
		s.prog = prog
	}
	if s.rules == nil && s.cfg.Project.Rules != "" {
		f, err := rules.Load(s.cfg.Project.Rules)
		if err != nil {
			return nil, err
		}
		s.rules = f
	}

	hasher, err := emission.HasherByName(s.cfg.Trace.Fingerprint)
	if err != nil {
		return nil, err
	}
	variant, err := tracer.VariantByName(s.cfg.Trace.Variant, s.cfg.Trace.Parameters)
	if err != nil {
		return nil, err
	}
	if s.sink == nil {
		s.sink = emission.NewWriterSink(os.Stderr, s.cfg.Trace.Color)
	}

	emitterOpts := []emission.Option{emission.WithHasher(hasher), emission.WithLogger(s.logger)}
	tracerOpts := []tracer.Option{
		tracer.WithDomain(s.prog),
		tracer.WithVariant(variant),
		tracer.WithHistory(s.cfg.Trace.HistoryEnabled()),
		tracer.WithLogger(s.logger),
	}
	if s.metrics != nil {
		emitterOpts = append(emitterOpts, emission.WithRecorder(s.metrics))
		tracerOpts = append(tracerOpts, tracer.WithRecorder(s.metrics))
	}
	s.emitter = emission.New(s.sink, emitterOpts...)
	s.tracer = tracer.New(s.emitter, tracerOpts...)
	s.probes = probe.NewRegistry(s.logger)

	if s.rules != nil {
		if _, err := s.rules.Apply(s.tracer.Select(), s.prog); err != nil {
			return nil, fmt.Errorf("applying rules: %w", err)
		}
		if err := s.Attach(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Program returns the loaded program.
func (s *Session) Program() *program.Program { return s.prog }

// Select starts a selection over the program. Call Attach afterwards to
// trace what it resolved.
func (s *Session) Select() *selector.Builder { return s.tracer.Select() }

// Targets returns every selected method.
func (s *Session) Targets() []program.Method { return s.tracer.Targets() }

// Attach installs trace hooks on every selected method.
func (s *Session) Attach() error { return s.tracer.Attach(s.probes) }

// Enter opens a probe for the calling function. The returned context must
// be passed to the calls it makes so they nest in its call tree.
func (s *Session) Enter(ctx context.Context, args ...any) (context.Context, probe.Done) {
	return s.probes.EnterSkip(ctx, 1, args...)
}

// Detached returns a context whose traced calls start a new call tree.
// Use it for goroutines started inside a traced call.
func (s *Session) Detached(ctx context.Context) context.Context {
	return s.tracer.Detached(ctx)
}

// Emitted reports how many distinct call trees were recorded. It only
// counts when history is enabled.
func (s *Session) Emitted() int { return s.emitter.History().Len() }

// Package tracer selects target methods of a program and traces their
// invocations as call trees.
package tracer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-method-tracer/internal/emission"
	"go-method-tracer/internal/probe"
	"go-method-tracer/internal/program"
	"go-method-tracer/internal/selector"
)

// Interceptor installs hooks on a method. probe.Registry is the in-process
// implementation.
type Interceptor interface {
	Intercept(m program.Method, h probe.Hooks) error
}

// Recorder observes selection and attachment.
type Recorder interface {
	TargetsResolved(root string, n int)
	TargetsAttached(n int)
}

type nopRecorder struct{}

func (nopRecorder) TargetsResolved(string, int) {}
func (nopRecorder) TargetsAttached(int)         {}

// Tracer owns a target list, the selector that fills it and the emitter
// its hooks write to.
type Tracer struct {
	targets  selector.TargetList
	builder  *selector.Builder
	emitter  *emission.Emitter
	variant  Variant
	history  bool
	domain   program.Domain
	logger   *slog.Logger
	recorder Recorder
	attached map[string]bool
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithDomain sets the program Select().Domain() resolves against.
func WithDomain(d program.Domain) Option {
	return func(t *Tracer) { t.domain = d }
}

// WithVariant sets how invocations are rendered. The default is Calls{}.
func WithVariant(v Variant) Option {
	return func(t *Tracer) { t.variant = v }
}

// WithHistory suppresses call trees identical to one already emitted.
func WithHistory(on bool) Option {
	return func(t *Tracer) { t.history = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracer) { t.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(t *Tracer) { t.recorder = r }
}

// New returns a Tracer emitting through e.
func New(e *emission.Emitter, opts ...Option) *Tracer {
	t := &Tracer{
		emitter:  e,
		variant:  Calls{},
		logger:   slog.Default(),
		recorder: nopRecorder{},
		attached: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.builder = selector.New(t.domain, &t.targets,
		selector.WithLogger(t.logger),
		selector.OnResolve(func(r selector.Resolution) {
			t.recorder.TargetsResolved(r.Root, r.Added)
		}),
	)
	return t
}

// Select starts a selection. Resolved methods accumulate in the tracer's
// targets across selections.
func (t *Tracer) Select() *selector.Builder { return t.builder }

// Targets returns the resolved methods in resolution order.
func (t *Tracer) Targets() []program.Method { return t.targets.Methods() }

// Reset forgets every target. Hooks already installed stay installed.
func (t *Tracer) Reset() {
	t.targets.Reset()
	clear(t.attached)
}

// Attach hooks every target not attached yet. Failures are collected and
// returned together; the remaining targets are still attached.
func (t *Tracer) Attach(ic Interceptor) error {
	var errs []error
	added := 0
	for _, m := range t.targets.Methods() {
		symbol := m.Symbol()
		if t.attached[symbol] {
			continue
		}
		if err := ic.Intercept(m, t.hooks()); err != nil {
			errs = append(errs, fmt.Errorf("attaching %s: %w", symbol, err))
			continue
		}
		t.attached[symbol] = true
		added++
	}
	t.recorder.TargetsAttached(len(t.attached))
	t.logger.Info("tracer attached", "added", added, "attached", len(t.attached), "failed", len(errs))
	return errors.Join(errs...)
}

type stackKey struct{ t *Tracer }

// Detached returns a context whose traced calls start a new call tree.
// Goroutines spawned from inside a traced call should use it.
func (t *Tracer) Detached(ctx context.Context) context.Context {
	return context.WithValue(ctx, stackKey{t}, (*emission.Stack)(nil))
}

func (t *Tracer) stack(ctx context.Context) *emission.Stack {
	st, _ := ctx.Value(stackKey{t}).(*emission.Stack)
	return st
}

func (t *Tracer) hooks() probe.Hooks {
	return probe.Hooks{
		OnEnter: func(ctx context.Context, inv *probe.Invocation) context.Context {
			st := t.stack(ctx)
			if st == nil {
				st = t.emitter.NewStack()
				ctx = context.WithValue(ctx, stackKey{t}, st)
			}
			st.Enter()
			st.Append(t.variant.Enter(st.Depth(), inv)...)
			return ctx
		},
		OnLeave: func(ctx context.Context, inv *probe.Invocation) error {
			st := t.stack(ctx)
			if st == nil {
				return fmt.Errorf("leaving %s: no call tree open", inv.Symbol)
			}
			st.Append(t.variant.Leave(st.Depth(), inv)...)
			if err := st.Exit(t.history); err != nil {
				t.logger.Warn("trace block dropped", "symbol", inv.Symbol, "error", err)
				return err
			}
			return nil
		},
	}
}

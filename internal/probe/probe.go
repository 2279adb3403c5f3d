// Package probe is an in-process interception point for traced code.
//
// Instrumented functions open a probe on entry and close it on return:
//
//	func (s *Store) Checkout(ctx context.Context, c *cart.Cart) (total int) {
//		ctx, done := probes.Enter(ctx, c)
//		defer func() { done(total) }()
//		...
//	}
//
// The probe identifies its caller by the symbol the runtime reports, so it
// only costs a stack walk and a map lookup until some tracer intercepts
// that symbol through the Registry.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"go-method-tracer/internal/program"
)

const maxFrames = 32

// Invocation describes one call of an intercepted function.
type Invocation struct {
	Symbol  string
	Method  program.Method
	Args    []any
	Results []any

	pcs []uintptr
}

// Frames returns the callers of the intercepted function, innermost first.
func (inv *Invocation) Frames() []runtime.Frame {
	if len(inv.pcs) == 0 {
		return nil
	}
	var out []runtime.Frame
	frames := runtime.CallersFrames(inv.pcs)
	first := true
	for {
		frame, more := frames.Next()
		if !first {
			out = append(out, frame)
		}
		first = false
		if !more {
			return out
		}
	}
}

// Hooks run around every invocation of an intercepted function. OnEnter
// may derive the context the leave hooks observe.
type Hooks struct {
	OnEnter func(ctx context.Context, inv *Invocation) context.Context
	OnLeave func(ctx context.Context, inv *Invocation) error
}

// Done closes a probe with the function's results. Calls after the first
// are ignored.
type Done func(results ...any) error

func nopDone(...any) error { return nil }

type entry struct {
	method program.Method
	hooks  []Hooks
}

// Registry maps runtime symbols to the hooks installed on them.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	hooked  atomic.Int64
	logger  *slog.Logger
}

// NewRegistry returns an empty Registry. A nil logger uses slog.Default.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{entries: make(map[string]*entry), logger: logger}
}

// Intercept installs h on m. Several hook sets may be installed on the
// same method; enter hooks run in installation order, leave hooks in
// reverse.
func (r *Registry) Intercept(m program.Method, h Hooks) error {
	symbol := m.Symbol()
	if symbol == "" {
		return fmt.Errorf("intercepting %s: method has no symbol", m.Name())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[symbol]
	if !ok {
		e = &entry{method: m}
		r.entries[symbol] = e
		r.hooked.Add(1)
	}
	e.hooks = append(e.hooks[:len(e.hooks):len(e.hooks)], h)
	r.logger.Debug("probe intercepted", "symbol", symbol, "hooks", len(e.hooks))
	return nil
}

// Detach removes every hook installed on symbol and reports whether there
// were any.
func (r *Registry) Detach(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[symbol]; !ok {
		return false
	}
	delete(r.entries, symbol)
	r.hooked.Add(-1)
	return true
}

// Len returns the number of intercepted symbols.
func (r *Registry) Len() int { return int(r.hooked.Load()) }

// Hooked reports whether symbol has hooks installed.
func (r *Registry) Hooked(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[symbol]
	return ok
}

// Enter opens a probe for the calling function.
func (r *Registry) Enter(ctx context.Context, args ...any) (context.Context, Done) {
	return r.enter(ctx, 1, args)
}

// EnterSkip is Enter for wrappers: skip counts the wrapper frames between
// the instrumented function and this call.
func (r *Registry) EnterSkip(ctx context.Context, skip int, args ...any) (context.Context, Done) {
	return r.enter(ctx, skip+1, args)
}

func (r *Registry) enter(ctx context.Context, skip int, args []any) (context.Context, Done) {
	if r.hooked.Load() == 0 {
		return ctx, nopDone
	}
	pcs := make([]uintptr, maxFrames)
	// Skip runtime.Callers, enter and the exported entry point.
	n := runtime.Callers(skip+2, pcs)
	if n == 0 {
		return ctx, nopDone
	}
	frame, _ := runtime.CallersFrames(pcs[:n]).Next()
	return r.open(ctx, frame.Function, pcs[:n], args)
}

// EnterSymbol opens a probe for an explicitly named function.
func (r *Registry) EnterSymbol(ctx context.Context, symbol string, args ...any) (context.Context, Done) {
	if r.hooked.Load() == 0 {
		return ctx, nopDone
	}
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(2, pcs)
	return r.open(ctx, symbol, pcs[:n], args)
}

func (r *Registry) open(ctx context.Context, symbol string, pcs []uintptr, args []any) (context.Context, Done) {
	r.mu.RLock()
	e, ok := r.entries[symbol]
	var method program.Method
	var hooks []Hooks
	if ok {
		method, hooks = e.method, e.hooks
	}
	r.mu.RUnlock()
	if !ok {
		return ctx, nopDone
	}

	inv := &Invocation{Symbol: symbol, Method: method, Args: args, pcs: pcs}
	for _, h := range hooks {
		if h.OnEnter != nil {
			ctx = h.OnEnter(ctx, inv)
		}
	}

	closed := false
	return ctx, func(results ...any) error {
		if closed {
			return nil
		}
		closed = true
		inv.Results = results
		var errs []error
		for i := len(hooks) - 1; i >= 0; i-- {
			if hooks[i].OnLeave == nil {
				continue
			}
			if err := hooks[i].OnLeave(ctx, inv); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

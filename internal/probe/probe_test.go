package probe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-method-tracer/internal/program/programtest"
)

const pkgPath = "go-method-tracer/internal/probe"

type counter struct{ n int }

func (c *counter) bump(ctx context.Context, r *Registry, by int) int {
	_, done := r.Enter(ctx, by)
	c.n += by
	_ = done(c.n)
	return c.n
}

func (c counter) peek(ctx context.Context, r *Registry) int {
	_, done := r.Enter(ctx)
	defer done(c.n)
	return c.n
}

func double(ctx context.Context, r *Registry, x int) int {
	_, done := r.Enter(ctx, x)
	defer done(x * 2)
	return x * 2
}

type event struct {
	kind   string
	symbol string
	args   []any
}

func recordingHooks(events *[]event, tag string) Hooks {
	return Hooks{
		OnEnter: func(ctx context.Context, inv *Invocation) context.Context {
			*events = append(*events, event{kind: tag + ">", symbol: inv.Symbol, args: inv.Args})
			return ctx
		},
		OnLeave: func(ctx context.Context, inv *Invocation) error {
			*events = append(*events, event{kind: tag + "<", symbol: inv.Symbol, args: inv.Results})
			return nil
		},
	}
}

func TestEnterResolvesCallerSymbol(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	var events []event

	for _, sym := range []string{
		pkgPath + ".(*counter).bump",
		pkgPath + ".counter.peek",
		pkgPath + ".double",
	} {
		require.NoError(t, r.Intercept(programtest.NewMethod(sym), recordingHooks(&events, "")))
	}
	assert.Equal(t, 3, r.Len())

	c := &counter{}
	c.bump(ctx, r, 2)
	c.peek(ctx, r)
	double(ctx, r, 5)

	assert.Equal(t, []event{
		{kind: ">", symbol: pkgPath + ".(*counter).bump", args: []any{2}},
		{kind: "<", symbol: pkgPath + ".(*counter).bump", args: []any{2}},
		{kind: ">", symbol: pkgPath + ".counter.peek", args: nil},
		{kind: "<", symbol: pkgPath + ".counter.peek", args: []any{2}},
		{kind: ">", symbol: pkgPath + ".double", args: []any{5}},
		{kind: "<", symbol: pkgPath + ".double", args: []any{10}},
	}, events)
}

func TestUnhookedCallsAreNoops(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	var events []event

	double(ctx, r, 1)
	require.NoError(t, r.Intercept(programtest.NewMethod(pkgPath+".(*counter).bump"), recordingHooks(&events, "")))
	double(ctx, r, 1)

	assert.Empty(t, events)
	assert.False(t, r.Hooked(pkgPath+".double"))
}

func TestHookOrdering(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	var events []event
	m := programtest.NewMethod(pkgPath + ".double")

	require.NoError(t, r.Intercept(m, recordingHooks(&events, "a")))
	require.NoError(t, r.Intercept(m, recordingHooks(&events, "b")))
	assert.Equal(t, 1, r.Len())

	double(ctx, r, 1)

	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.kind
	}
	assert.Equal(t, []string{"a>", "b>", "b<", "a<"}, kinds)
}

func TestDetach(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	var events []event
	require.NoError(t, r.Intercept(programtest.NewMethod(pkgPath+".double"), recordingHooks(&events, "")))

	assert.True(t, r.Detach(pkgPath+".double"))
	assert.False(t, r.Detach(pkgPath+".double"))
	assert.Zero(t, r.Len())

	double(ctx, r, 1)
	assert.Empty(t, events)
}

func TestDoneIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	leaves := 0
	require.NoError(t, r.Intercept(programtest.NewMethod("explicit"), Hooks{
		OnLeave: func(context.Context, *Invocation) error {
			leaves++
			return nil
		},
	}))

	_, done := r.EnterSymbol(ctx, "explicit")
	require.NoError(t, done())
	require.NoError(t, done())
	assert.Equal(t, 1, leaves)
}

func TestLeaveErrorsAreJoined(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(nil)
	m := programtest.NewMethod("explicit")
	e1, e2 := errors.New("first"), errors.New("second")
	require.NoError(t, r.Intercept(m, Hooks{OnLeave: func(context.Context, *Invocation) error { return e1 }}))
	require.NoError(t, r.Intercept(m, Hooks{OnLeave: func(context.Context, *Invocation) error { return e2 }}))

	_, done := r.EnterSymbol(ctx, "explicit")
	err := done()
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestEnterHookDerivesContext(t *testing.T) {
	type key struct{}
	r := NewRegistry(nil)
	var seen any
	require.NoError(t, r.Intercept(programtest.NewMethod("explicit"), Hooks{
		OnEnter: func(ctx context.Context, _ *Invocation) context.Context {
			return context.WithValue(ctx, key{}, "stack")
		},
		OnLeave: func(ctx context.Context, _ *Invocation) error {
			seen = ctx.Value(key{})
			return nil
		},
	}))

	ctx, done := r.EnterSymbol(context.Background(), "explicit")
	assert.Equal(t, "stack", ctx.Value(key{}))
	require.NoError(t, done())
	assert.Equal(t, "stack", seen)
}

func TestFrames(t *testing.T) {
	r := NewRegistry(nil)
	var frames []string
	require.NoError(t, r.Intercept(programtest.NewMethod(pkgPath+".double"), Hooks{
		OnEnter: func(ctx context.Context, inv *Invocation) context.Context {
			for _, f := range inv.Frames() {
				frames = append(frames, f.Function)
			}
			return ctx
		},
	}))

	double(context.Background(), r, 1)

	require.NotEmpty(t, frames)
	assert.True(t, strings.HasSuffix(frames[0], ".TestFrames"), frames[0])
}

func TestInterceptRejectsEmptySymbol(t *testing.T) {
	r := NewRegistry(nil)
	assert.Error(t, r.Intercept(programtest.NewMethod(""), Hooks{}))
}

type session struct{ r *Registry }

func (s session) enter(ctx context.Context, args ...any) (context.Context, Done) {
	return s.r.EnterSkip(ctx, 1, args...)
}

func viaWrapper(ctx context.Context, s session) {
	_, done := s.enter(ctx, "w")
	_ = done()
}

func TestEnterSkipResolvesPastWrapper(t *testing.T) {
	r := NewRegistry(nil)
	var events []event
	require.NoError(t, r.Intercept(programtest.NewMethod(pkgPath+".viaWrapper"), recordingHooks(&events, "")))

	viaWrapper(context.Background(), session{r})

	require.Len(t, events, 2)
	assert.Equal(t, pkgPath+".viaWrapper", events[0].symbol)
	assert.Equal(t, []any{"w"}, events[0].args)
}

// Package selector narrows a program hierarchy down to a list of target
// methods.
//
// Configuration is a chain of stages. Each stage only exposes the calls
// that can meaningfully follow it, so a chain reads top-down:
//
//	b.Domain().
//		FilterAssemblies(filter.Glob[program.Assembly]("example.com/**")).
//		FilterMethods(filter.Exported[program.Method]()).
//		And()
//
// Nothing touches the hierarchy until And, which walks it once and appends
// the accepted methods to the builder's TargetList.
package selector

import (
	"errors"
	"fmt"
	"log/slog"

	"go-method-tracer/internal/program"
)

// ErrNoDomain is returned when resolving from the domain root of a builder
// created without one.
var ErrNoDomain = errors.New("selector: no domain to resolve from")

// Filter decides whether a node of the hierarchy is kept. A non-nil error
// aborts the resolution in progress.
type Filter[T any] func(T) (bool, error)

// Match adapts an infallible predicate.
func Match[T any](pred func(T) bool) Filter[T] {
	return func(v T) (bool, error) { return pred(v), nil }
}

// Level names a level of the hierarchy a filter applies to.
type Level string

const (
	LevelAssembly  Level = "assembly"
	LevelClass     Level = "class"
	LevelMethod    Level = "method"
	LevelParameter Level = "parameter"
)

// FilterError reports a filter that failed during resolution.
type FilterError struct {
	Level   Level
	Subject string
	Err     error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s filter failed on %s: %v", e.Level, e.Subject, e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// Resolution summarises one call to And.
type Resolution struct {
	Root  string
	Added int
	Err   error
}

// state is the configuration accumulated between two resolutions. A nil
// list means "not set"; an empty non-nil list selects nothing.
type state struct {
	assemblies []program.Assembly
	classes    []program.Class
	methods    []program.Method

	assemblyFilter  Filter[program.Assembly]
	classFilter     Filter[program.Class]
	methodFilter    Filter[program.Method]
	parameterFilter Filter[program.Parameter]
}

func (s state) empty() bool {
	return s.assemblies == nil && s.classes == nil && s.methods == nil &&
		s.assemblyFilter == nil && s.classFilter == nil &&
		s.methodFilter == nil && s.parameterFilter == nil
}

// Builder accumulates a selection and resolves it into its TargetList.
// A Builder is not safe for concurrent use.
type Builder struct {
	domain    program.Domain
	targets   *TargetList
	logger    *slog.Logger
	onResolve func(Resolution)
	st        state
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// OnResolve registers a callback invoked after every resolution.
func OnResolve(fn func(Resolution)) Option {
	return func(b *Builder) { b.onResolve = fn }
}

// New returns a Builder resolving against domain and appending to targets.
// A nil targets gets a fresh list.
func New(domain program.Domain, targets *TargetList, opts ...Option) *Builder {
	if targets == nil {
		targets = &TargetList{}
	}
	b := &Builder{
		domain:  domain,
		targets: targets,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Targets returns the list resolutions append to.
func (b *Builder) Targets() *TargetList { return b.targets }

// Domain searches the whole program.
func (b *Builder) Domain() AssemblyStage {
	return AssemblyStage{b.classStage()}
}

// Assemblies searches only the given assemblies.
func (b *Builder) Assemblies(assemblies ...program.Assembly) ClassStage {
	b.st.assemblies = append([]program.Assembly{}, assemblies...)
	return b.classStage()
}

// Classes searches only the given classes.
func (b *Builder) Classes(classes ...program.Class) MethodStage {
	b.st.classes = append([]program.Class{}, classes...)
	return b.methodStage()
}

// Methods uses the given methods as candidates outright.
func (b *Builder) Methods(methods ...program.Method) ParameterStage {
	b.st.methods = append([]program.Method{}, methods...)
	return b.parameterStage()
}

func (b *Builder) classStage() ClassStage {
	return ClassStage{b.methodStage()}
}

func (b *Builder) methodStage() MethodStage {
	return MethodStage{b.parameterStage()}
}

func (b *Builder) parameterStage() ParameterStage {
	return ParameterStage{FinalStage{b}}
}

// AssemblyStage follows Domain.
type AssemblyStage struct{ ClassStage }

// FilterAssemblies keeps only the assemblies accepted by f.
func (s AssemblyStage) FilterAssemblies(f Filter[program.Assembly]) ClassStage {
	s.b.st.assemblyFilter = f
	return s.ClassStage
}

// ClassStage follows Assemblies or FilterAssemblies.
type ClassStage struct{ MethodStage }

// FilterClasses keeps only the classes accepted by f.
func (s ClassStage) FilterClasses(f Filter[program.Class]) MethodStage {
	s.b.st.classFilter = f
	return s.MethodStage
}

// MethodStage follows Classes or FilterClasses.
type MethodStage struct{ ParameterStage }

// FilterMethods keeps only the methods accepted by f.
func (s MethodStage) FilterMethods(f Filter[program.Method]) ParameterStage {
	s.b.st.methodFilter = f
	return s.ParameterStage
}

// ParameterStage follows Methods or FilterMethods.
type ParameterStage struct{ FinalStage }

// FilterParameters keeps a method when at least one of its parameters is
// accepted by f.
func (s ParameterStage) FilterParameters(f Filter[program.Parameter]) FinalStage {
	s.b.st.parameterFilter = f
	return s.FinalStage
}

// FinalStage can only be resolved.
type FinalStage struct{ b *Builder }

// And resolves the configured selection, appends the accepted methods to
// the TargetList and clears the configuration. The builder is returned so
// another selection can be chained against the same list.
func (s FinalStage) And() (*Builder, error) {
	return s.b, s.b.resolve()
}

// Package filter builds selector predicates from patterns, for rule files
// and command-line flags.
package filter

import (
	"fmt"
	"go/token"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"

	"go-method-tracer/internal/program"
	"go-method-tracer/internal/selector"
)

// Named is anything in the program hierarchy.
type Named interface {
	Name() string
}

// Glob matches Name() against doublestar patterns. Package paths use "/"
// as separator, so "example.com/shop/**" selects a package tree. No
// patterns matches everything.
func Glob[T Named](patterns ...string) selector.Filter[T] {
	return func(v T) (bool, error) {
		if len(patterns) == 0 {
			return true, nil
		}
		return matchAny(patterns, v.Name())
	}
}

// Validate reports the first malformed glob pattern.
func Validate(patterns ...string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid pattern %q: %w", p, doublestar.ErrBadPattern)
		}
	}
	return nil
}

func matchAny(patterns []string, name string) (bool, error) {
	for _, p := range patterns {
		ok, err := doublestar.Match(p, name)
		if err != nil {
			return false, fmt.Errorf("pattern %q: %w", p, err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Regexp matches Name() against expr.
func Regexp[T Named](expr string) (selector.Filter[T], error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", expr, err)
	}
	return selector.Match(func(v T) bool { return re.MatchString(v.Name()) }), nil
}

// Exported keeps exported types and functions. The free-function
// pseudo-class always passes.
func Exported[T Named]() selector.Filter[T] {
	return selector.Match(func(v T) bool {
		name := v.Name()
		return name == program.FuncsClass || token.IsExported(name)
	})
}

// ParamType matches a parameter's type string. Types from other packages
// are qualified with their import path, e.g. "**/cart.Cart" matches
// "*example.com/shop/cart.Cart".
func ParamType(patterns ...string) selector.Filter[program.Parameter] {
	return func(p program.Parameter) (bool, error) {
		return matchAny(patterns, p.Type())
	}
}

// Not inverts f.
func Not[T any](f selector.Filter[T]) selector.Filter[T] {
	return func(v T) (bool, error) {
		ok, err := f(v)
		return !ok && err == nil, err
	}
}

// Any passes when one of fs passes. Evaluation stops at the first match
// or error.
func Any[T any](fs ...selector.Filter[T]) selector.Filter[T] {
	return func(v T) (bool, error) {
		for _, f := range fs {
			if ok, err := f(v); err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
}

// All passes when every one of fs passes. Nil entries are skipped.
func All[T any](fs ...selector.Filter[T]) selector.Filter[T] {
	return func(v T) (bool, error) {
		for _, f := range fs {
			if f == nil {
				continue
			}
			if ok, err := f(v); err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

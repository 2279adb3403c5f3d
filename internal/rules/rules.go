// Package rules reads selection rules from YAML and applies them to a
// selector. Each rule is one selector pass.
//
//	rules:
//	  - name: checkout
//	    packages: [example.com/shop/store]
//	    filters:
//	      methods: ["Check*"]
//	    follow_calls: 2
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-method-tracer/internal/filter"
	"go-method-tracer/internal/program"
	"go-method-tracer/internal/selector"
)

// File is the top level of a rules document.
type File struct {
	Rules []Rule `yaml:"rules"`
}

// Rule selects targets. The most specific of Methods, Classes and
// Packages that is set becomes the root; with none set the rule starts
// from the whole program.
type Rule struct {
	Name string `yaml:"name"`
	// Packages are import paths.
	Packages []string `yaml:"packages,omitempty"`
	// Classes are "importpath.Type"; "importpath.(funcs)" names the
	// package's free functions.
	Classes []string `yaml:"classes,omitempty"`
	// Methods are runtime symbols such as "example.com/shop/cart.(*Cart).Add".
	Methods []string `yaml:"methods,omitempty"`
	Filters Filters  `yaml:"filters,omitempty"`
	// FollowCalls also targets the functions the selected ones call, up to
	// this many levels deep.
	FollowCalls int `yaml:"follow_calls,omitempty"`
}

// Filters are glob patterns per level. Parameter patterns match type
// strings. A name must match the globs, the regexp and none of the
// exclusions of its level.
type Filters struct {
	Packages []string   `yaml:"packages,omitempty"`
	Classes  []string   `yaml:"classes,omitempty"`
	Methods  []string   `yaml:"methods,omitempty"`
	Params   []string   `yaml:"params,omitempty"`
	Exported bool       `yaml:"exported,omitempty"`
	Regexp   Regexps    `yaml:"regexp,omitempty"`
	Exclude  Exclusions `yaml:"exclude,omitempty"`
}

// Regexps are regular expressions per level, matched unanchored.
type Regexps struct {
	Packages string `yaml:"packages,omitempty"`
	Classes  string `yaml:"classes,omitempty"`
	Methods  string `yaml:"methods,omitempty"`
}

// Exclusions are glob patterns per level that drop a name.
type Exclusions struct {
	Packages []string `yaml:"packages,omitempty"`
	Classes  []string `yaml:"classes,omitempty"`
	Methods  []string `yaml:"methods,omitempty"`
}

// Load reads a rules file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	f, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a rules document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	for i, rule := range f.Rules {
		if err := rule.validate(); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Name, err)
		}
	}
	return &f, nil
}

func (r Rule) validate() error {
	if r.FollowCalls < 0 {
		return fmt.Errorf("follow_calls must not be negative")
	}
	fs := r.Filters
	for _, patterns := range [][]string{
		fs.Packages, fs.Classes, fs.Methods, fs.Params,
		fs.Exclude.Packages, fs.Exclude.Classes, fs.Exclude.Methods,
	} {
		if err := filter.Validate(patterns...); err != nil {
			return err
		}
	}
	for _, expr := range []string{fs.Regexp.Packages, fs.Regexp.Classes, fs.Regexp.Methods} {
		if expr == "" {
			continue
		}
		if _, err := filter.Regexp[program.Method](expr); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes f as YAML.
func (f *File) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// Apply runs every rule in order and returns the number of targets added.
// It stops at the first failing rule.
func (f *File) Apply(b *selector.Builder, prog *program.Program) (int, error) {
	total := 0
	for _, r := range f.Rules {
		n, err := r.Apply(b, prog)
		total += n
		if err != nil {
			return total, fmt.Errorf("rule %s: %w", r.Name, err)
		}
	}
	return total, nil
}

// Apply resolves r against prog through b and returns the number of
// targets added.
func (r Rule) Apply(b *selector.Builder, prog *program.Program) (int, error) {
	before := b.Targets().Len()

	final, err := r.configure(b, prog)
	if err != nil {
		return 0, err
	}
	if _, err := final.And(); err != nil {
		return b.Targets().Len() - before, err
	}

	if r.FollowCalls > 0 {
		if err := r.follow(b, prog, before); err != nil {
			return b.Targets().Len() - before, err
		}
	}
	return b.Targets().Len() - before, nil
}

func (r Rule) configure(b *selector.Builder, prog *program.Program) (selector.FinalStage, error) {
	fs := r.Filters
	packages, err := levelFilter[program.Assembly](fs.Packages, fs.Regexp.Packages, fs.Exclude.Packages, false)
	if err != nil {
		return selector.FinalStage{}, err
	}
	classes, err := levelFilter[program.Class](fs.Classes, fs.Regexp.Classes, fs.Exclude.Classes, fs.Exported)
	if err != nil {
		return selector.FinalStage{}, err
	}
	methods, err := levelFilter[program.Method](fs.Methods, fs.Regexp.Methods, fs.Exclude.Methods, fs.Exported)
	if err != nil {
		return selector.FinalStage{}, err
	}
	var params selector.Filter[program.Parameter]
	if len(fs.Params) > 0 {
		params = filter.ParamType(fs.Params...)
	}

	switch {
	case r.Methods != nil:
		ms, err := lookupMethods(prog, r.Methods)
		if err != nil {
			return selector.FinalStage{}, err
		}
		return b.Methods(ms...).FilterParameters(params), nil
	case r.Classes != nil:
		cs, err := lookupClasses(prog, r.Classes)
		if err != nil {
			return selector.FinalStage{}, err
		}
		return b.Classes(cs...).FilterMethods(methods).FilterParameters(params), nil
	case r.Packages != nil:
		as, err := lookupPackages(prog, r.Packages)
		if err != nil {
			return selector.FinalStage{}, err
		}
		return b.Assemblies(as...).
			FilterClasses(classes).
			FilterMethods(methods).
			FilterParameters(params), nil
	default:
		return b.Domain().
			FilterAssemblies(packages).
			FilterClasses(classes).
			FilterMethods(methods).
			FilterParameters(params), nil
	}
}

// levelFilter combines the settings of one level. It returns nil when
// there is nothing to filter on.
func levelFilter[T filter.Named](globs []string, expr string, exclude []string, exported bool) (selector.Filter[T], error) {
	var fs []selector.Filter[T]
	if len(globs) > 0 {
		fs = append(fs, filter.Glob[T](globs...))
	}
	if expr != "" {
		re, err := filter.Regexp[T](expr)
		if err != nil {
			return nil, err
		}
		fs = append(fs, re)
	}
	if exported {
		fs = append(fs, filter.Exported[T]())
	}
	if len(exclude) > 0 {
		excluded := make([]selector.Filter[T], len(exclude))
		for i, p := range exclude {
			excluded[i] = filter.Glob[T](p)
		}
		fs = append(fs, filter.Not(filter.Any(excluded...)))
	}
	switch len(fs) {
	case 0:
		return nil, nil
	case 1:
		return fs[0], nil
	default:
		return filter.All(fs...), nil
	}
}

// follow targets the callees of everything this rule added, skipping
// methods that are already targets.
func (r Rule) follow(b *selector.Builder, prog *program.Program, from int) error {
	targets := b.Targets().Methods()
	seen := make(map[string]bool, len(targets))
	for _, m := range targets {
		seen[m.Symbol()] = true
	}
	var callees []program.Method
	for _, m := range targets[from:] {
		for _, c := range prog.Callees(m, r.FollowCalls) {
			if !seen[c.Symbol()] {
				seen[c.Symbol()] = true
				callees = append(callees, c)
			}
		}
	}
	if len(callees) == 0 {
		return nil
	}
	_, err := b.Methods(callees...).And()
	return err
}

func lookupMethods(prog *program.Program, symbols []string) ([]program.Method, error) {
	out := make([]program.Method, 0, len(symbols))
	for _, s := range symbols {
		fn, err := prog.Lookup(s)
		if err != nil {
			return nil, err
		}
		out = append(out, fn)
	}
	return out, nil
}

func lookupClasses(prog *program.Program, names []string) ([]program.Class, error) {
	out := make([]program.Class, 0, len(names))
	for _, name := range names {
		i := strings.LastIndex(name, ".")
		if i <= 0 || i == len(name)-1 {
			return nil, fmt.Errorf("class %q: want importpath.Type", name)
		}
		pkg, err := prog.Package(name[:i])
		if err != nil {
			return nil, err
		}
		t, err := pkg.Type(name[i+1:])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func lookupPackages(prog *program.Program, paths []string) ([]program.Assembly, error) {
	out := make([]program.Assembly, 0, len(paths))
	for _, p := range paths {
		pkg, err := prog.Package(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pkg)
	}
	return out, nil
}

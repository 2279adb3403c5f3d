package program

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"strings"

	"golang.org/x/tools/go/packages"
)

// ErrNotFound is returned when a package, type or function cannot be located.
var ErrNotFound = errors.New("not found")

// LoadConfig controls which packages Load reads.
type LoadConfig struct {
	// Dir is the project root. Empty means the current directory.
	Dir string
	// Patterns are go list patterns; defaults to "./...".
	Patterns []string
	// Tests includes _test.go files and external test packages.
	Tests  bool
	Logger *slog.Logger
}

// Program is a loaded Go program. It implements Domain.
type Program struct {
	packages []*Package
	byPath   map[string]*Package
	bySymbol map[string]*Func
	byObj    map[*types.Func]*Func
}

// Package is one loaded package. It implements Assembly.
type Package struct {
	prog  *Program
	pkg   *packages.Package
	types []*Type
}

// Type is a named type declared at package scope, or the FuncsClass
// pseudo-type. It implements Class.
type Type struct {
	pkg     *Package
	name    string
	spec    *ast.TypeSpec
	methods []*Func
}

// Func is a function or method declaration. It implements Method.
type Func struct {
	owner  *Type
	decl   *ast.FuncDecl
	obj    *types.Func
	symbol string
	params []Param
}

// Param implements Parameter.
type Param struct {
	name  string
	typ   string
	index int
}

// Load reads the packages matching cfg.Patterns under cfg.Dir. Packages
// with type errors are kept and reported through the logger; Load only
// fails when nothing could be loaded.
func Load(ctx context.Context, cfg LoadConfig) (*Program, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	pcfg := &packages.Config{
		Context: ctx,
		Mode:    packages.LoadSyntax | packages.LoadTypes | packages.LoadFiles,
		Dir:     cfg.Dir,
		Tests:   cfg.Tests,
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages in %q: %w", cfg.Dir, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages matched %v in %q", patterns, cfg.Dir)
	}
	for _, p := range pkgs {
		for _, e := range p.Errors {
			logger.Warn("package loaded with errors", "package", p.PkgPath, "error", e.Msg)
		}
	}

	prog := &Program{
		byPath:   make(map[string]*Package, len(pkgs)),
		bySymbol: make(map[string]*Func),
		byObj:    make(map[*types.Func]*Func),
	}
	for _, p := range widest(pkgs) {
		pkg := prog.addPackage(p)
		logger.Debug("package loaded", "package", p.PkgPath, "types", len(pkg.types))
	}
	return prog, nil
}

// widest keeps one package per import path, in load order. With tests
// enabled a path is loaded twice; the variant compiled with its _test.go
// files has more syntax and wins. Generated test mains are dropped.
func widest(pkgs []*packages.Package) []*packages.Package {
	var out []*packages.Package
	at := make(map[string]int)
	for _, p := range pkgs {
		if p.TypesInfo == nil || p.Types == nil || strings.HasSuffix(p.PkgPath, ".test") {
			continue
		}
		i, dup := at[p.PkgPath]
		if !dup {
			at[p.PkgPath] = len(out)
			out = append(out, p)
			continue
		}
		if len(p.Syntax) > len(out[i].Syntax) {
			out[i] = p
		}
	}
	return out
}

func (prog *Program) addPackage(p *packages.Package) *Package {
	pkg := &Package{prog: prog, pkg: p}
	prog.packages = append(prog.packages, pkg)
	prog.byPath[p.PkgPath] = pkg

	byName := make(map[string]*Type)
	for _, file := range p.Syntax {
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				if ts.Name.Name == "_" {
					continue
				}
				t := &Type{pkg: pkg, name: ts.Name.Name, spec: ts}
				byName[t.name] = t
				pkg.types = append(pkg.types, t)
			}
		}
	}

	var funcs *Type
	for _, file := range p.Syntax {
		for _, decl := range file.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Name.Name == "_" {
				continue
			}
			if fd.Recv == nil && fd.Name.Name == "init" {
				continue
			}
			obj, ok := p.TypesInfo.Defs[fd.Name].(*types.Func)
			if !ok {
				continue
			}
			var owner *Type
			if fd.Recv == nil {
				if funcs == nil {
					funcs = &Type{pkg: pkg, name: FuncsClass}
				}
				owner = funcs
			} else if owner = byName[receiverName(fd)]; owner == nil {
				continue
			}
			fn := newFunc(owner, fd, obj)
			owner.methods = append(owner.methods, fn)
			prog.bySymbol[fn.symbol] = fn
			prog.byObj[obj] = fn
		}
	}
	if funcs != nil {
		pkg.types = append(pkg.types, funcs)
	}
	return pkg
}

func newFunc(owner *Type, fd *ast.FuncDecl, obj *types.Func) *Func {
	p := owner.pkg.pkg
	fn := &Func{
		owner:  owner,
		decl:   fd,
		obj:    obj,
		symbol: symbolOf(p.Name, p.PkgPath, obj),
	}
	sig := obj.Type().(*types.Signature)
	qual := types.RelativeTo(obj.Pkg())
	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		v := params.At(i)
		typ := types.TypeString(v.Type(), qual)
		if sig.Variadic() && i == params.Len()-1 {
			if s, ok := v.Type().(*types.Slice); ok {
				typ = "..." + types.TypeString(s.Elem(), qual)
			}
		}
		fn.params = append(fn.params, Param{name: v.Name(), typ: typ, index: i})
	}
	return fn
}

// receiverName returns the base type name of a method receiver.
func receiverName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	expr := fd.Recv.List[0].Type
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.ParenExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

// Assemblies implements Domain.
func (prog *Program) Assemblies() []Assembly {
	out := make([]Assembly, len(prog.packages))
	for i, p := range prog.packages {
		out[i] = p
	}
	return out
}

// Packages returns the loaded packages in load order.
func (prog *Program) Packages() []*Package {
	return prog.packages
}

// Package returns the package with the given import path.
func (prog *Program) Package(path string) (*Package, error) {
	p, ok := prog.byPath[path]
	if !ok {
		return nil, fmt.Errorf("package %q: %w", path, ErrNotFound)
	}
	return p, nil
}

// Lookup returns the function whose runtime symbol is symbol.
func (prog *Program) Lookup(symbol string) (*Func, error) {
	fn, ok := prog.bySymbol[symbol]
	if !ok {
		return nil, fmt.Errorf("function %q: %w", symbol, ErrNotFound)
	}
	return fn, nil
}

func (p *Package) Name() string { return p.pkg.PkgPath }

// Classes implements Assembly.
func (p *Package) Classes() []Class {
	out := make([]Class, len(p.types))
	for i, t := range p.types {
		out[i] = t
	}
	return out
}

// Type returns the named type, or FuncsClass, declared in p.
func (p *Package) Type(name string) (*Type, error) {
	for _, t := range p.types {
		if t.name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("type %s.%s: %w", p.pkg.PkgPath, name, ErrNotFound)
}

func (t *Type) Name() string       { return t.name }
func (t *Type) Assembly() Assembly { return t.pkg }
func (t *Type) IsFuncs() bool      { return t.spec == nil }

// Methods implements Class.
func (t *Type) Methods() []Method {
	out := make([]Method, len(t.methods))
	for i, m := range t.methods {
		out[i] = m
	}
	return out
}

func (f *Func) Name() string   { return f.obj.Name() }
func (f *Func) Class() Class   { return f.owner }
func (f *Func) Symbol() string { return f.symbol }

// Parameters implements Method.
func (f *Func) Parameters() []Parameter {
	out := make([]Parameter, len(f.params))
	for i, p := range f.params {
		out[i] = p
	}
	return out
}

// Position reports where f is declared.
func (f *Func) Position() token.Position {
	return f.owner.pkg.pkg.Fset.Position(f.decl.Pos())
}

func (p Param) Name() string { return p.name }
func (p Param) Type() string { return p.typ }
func (p Param) Index() int   { return p.index }

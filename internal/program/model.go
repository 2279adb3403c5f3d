// Package program exposes the structure of a Go program as an ordered
// hierarchy: domain, packages, types, functions and parameters.
//
// The interfaces are read-only views. Every slice they return is in
// enumeration order, which for source-backed programs is declaration order.
package program

// Domain is the root scope: every package of a loaded program.
type Domain interface {
	Assemblies() []Assembly
}

// Assembly is one package.
type Assembly interface {
	Name() string
	Classes() []Class
}

// Class is a named type, or the pseudo-class grouping a package's free functions.
type Class interface {
	Name() string
	Assembly() Assembly
	Methods() []Method
}

// Method is a function or method declaration; the unit of instrumentation.
type Method interface {
	Name() string
	Class() Class
	// Symbol is the name the Go runtime reports for the compiled function.
	Symbol() string
	Parameters() []Parameter
}

// Parameter is a declared parameter of a Method. The receiver is not a parameter.
type Parameter interface {
	Name() string
	Type() string
	Index() int
}

// FuncsClass names the pseudo-class that holds a package's free functions.
const FuncsClass = "(funcs)"

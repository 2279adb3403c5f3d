// Package programtest provides in-memory program models for tests.
package programtest

import (
	"fmt"
	"strings"

	"go-method-tracer/internal/program"
)

type Domain struct {
	Asms []*Assembly
}

type Assembly struct {
	N   string
	Cls []*Class
}

type Class struct {
	N   string
	Asm *Assembly
	Ms  []*Method
}

type Method struct {
	N      string
	Cls    *Class
	Params []*Parameter
}

type Parameter struct {
	N string
	T string
	I int
}

// Grid builds a domain of a assemblies, each with c classes of m
// parameterless methods, named "A0", "A0.C0", "A0.C0.M0" and so on.
func Grid(a, c, m int) *Domain {
	d := &Domain{}
	for i := 0; i < a; i++ {
		var classes []*Class
		for j := 0; j < c; j++ {
			var methods []*Method
			for k := 0; k < m; k++ {
				methods = append(methods, NewMethod(fmt.Sprintf("M%d", k)))
			}
			classes = append(classes, NewClass(fmt.Sprintf("C%d", j), methods...))
		}
		d.Add(fmt.Sprintf("A%d", i), classes...)
	}
	return d
}

// Add appends an assembly holding classes to d.
func (d *Domain) Add(name string, classes ...*Class) *Assembly {
	a := &Assembly{N: name, Cls: classes}
	for _, c := range classes {
		c.Asm = a
	}
	d.Asms = append(d.Asms, a)
	return a
}

// NewClass returns a class owning methods.
func NewClass(name string, methods ...*Method) *Class {
	c := &Class{N: name, Ms: methods}
	for _, m := range methods {
		m.Cls = c
	}
	return c
}

// NewMethod returns a method whose parameters are given as "name type".
func NewMethod(name string, params ...string) *Method {
	m := &Method{N: name}
	for i, p := range params {
		pname, ptype, _ := strings.Cut(p, " ")
		m.Params = append(m.Params, &Parameter{N: pname, T: ptype, I: i})
	}
	return m
}

func (d *Domain) Assemblies() []program.Assembly {
	out := make([]program.Assembly, len(d.Asms))
	for i, a := range d.Asms {
		out[i] = a
	}
	return out
}

// Methods returns every method of d in enumeration order.
func (d *Domain) Methods() []program.Method {
	var out []program.Method
	for _, a := range d.Asms {
		for _, c := range a.Cls {
			for _, m := range c.Ms {
				out = append(out, m)
			}
		}
	}
	return out
}

func (a *Assembly) Name() string { return a.N }

func (a *Assembly) Classes() []program.Class {
	out := make([]program.Class, len(a.Cls))
	for i, c := range a.Cls {
		out[i] = c
	}
	return out
}

func (c *Class) Name() string { return c.N }

func (c *Class) Assembly() program.Assembly { return c.Asm }

func (c *Class) Methods() []program.Method {
	out := make([]program.Method, len(c.Ms))
	for i, m := range c.Ms {
		out[i] = m
	}
	return out
}

func (m *Method) Name() string { return m.N }

func (m *Method) Class() program.Class { return m.Cls }

func (m *Method) Symbol() string {
	if m.Cls == nil {
		return m.N
	}
	if m.Cls.Asm == nil {
		return m.Cls.N + "." + m.N
	}
	return m.Cls.Asm.N + "." + m.Cls.N + "." + m.N
}

func (m *Method) Parameters() []program.Parameter {
	out := make([]program.Parameter, len(m.Params))
	for i, p := range m.Params {
		out[i] = p
	}
	return out
}

func (p *Parameter) Name() string { return p.N }
func (p *Parameter) Type() string { return p.T }
func (p *Parameter) Index() int   { return p.I }

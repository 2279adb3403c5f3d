package selector

import "go-method-tracer/internal/program"

func (b *Builder) resolve() error {
	st := b.st
	// The configuration is consumed even when a filter fails, so the
	// builder never carries a half-used selection into the next chain.
	defer func() { b.st = state{} }()

	r := resolver{st: st, targets: b.targets}
	before := b.targets.Len()

	var root string
	var err error
	switch {
	case st.methods != nil:
		root = "methods"
		err = r.methods(st.methods)
	case st.classes != nil:
		root = "classes"
		err = r.classes(st.classes)
	case st.assemblies != nil:
		root = "assemblies"
		err = r.assemblies(st.assemblies)
	case b.domain == nil:
		root = "domain"
		err = ErrNoDomain
	default:
		root = "domain"
		err = r.domain(b.domain)
	}

	res := Resolution{Root: root, Added: b.targets.Len() - before, Err: err}
	if err != nil {
		b.logger.Warn("target resolution failed", "root", root, "added", res.Added, "error", err)
	} else {
		b.logger.Debug("targets resolved", "root", root, "added", res.Added, "total", b.targets.Len())
	}
	if b.onResolve != nil {
		b.onResolve(res)
	}
	return err
}

type resolver struct {
	st      state
	targets *TargetList
}

// keep applies f to v, treating a nil filter as accepting everything.
func keep[T any](f Filter[T], v T, level Level, subject func() string) (bool, error) {
	if f == nil {
		return true, nil
	}
	ok, err := f(v)
	if err != nil {
		return false, &FilterError{Level: level, Subject: subject(), Err: err}
	}
	return ok, nil
}

func (r *resolver) method(m program.Method) error {
	if r.st.parameterFilter == nil {
		r.targets.add(m)
		return nil
	}
	for _, p := range m.Parameters() {
		ok, err := keep(r.st.parameterFilter, p, LevelParameter, func() string {
			return m.Symbol() + "(" + p.Name() + ")"
		})
		if err != nil {
			return err
		}
		if ok {
			r.targets.add(m)
			return nil
		}
	}
	return nil
}

func (r *resolver) methods(ms []program.Method) error {
	for _, m := range ms {
		if err := r.method(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) class(c program.Class) error {
	for _, m := range c.Methods() {
		ok, err := keep(r.st.methodFilter, m, LevelMethod, m.Symbol)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.method(m); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) classes(cs []program.Class) error {
	for _, c := range cs {
		if err := r.class(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) assembly(a program.Assembly) error {
	for _, c := range a.Classes() {
		ok, err := keep(r.st.classFilter, c, LevelClass, func() string {
			return a.Name() + "." + c.Name()
		})
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.class(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) assemblies(as []program.Assembly) error {
	for _, a := range as {
		if err := r.assembly(a); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) domain(d program.Domain) error {
	for _, a := range d.Assemblies() {
		ok, err := keep(r.st.assemblyFilter, a, LevelAssembly, a.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := r.assembly(a); err != nil {
			return err
		}
	}
	return nil
}

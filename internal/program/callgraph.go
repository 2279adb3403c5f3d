package program

import (
	"go/ast"
	"go/types"
)

// calleeCollector walks a function body and records every project
// function or method it references.
type calleeCollector struct {
	info  *types.Info
	prog  *Program
	found []*Func
}

func (v *calleeCollector) Visit(node ast.Node) ast.Visitor {
	if node == nil {
		return nil
	}
	ident, ok := node.(*ast.Ident)
	if !ok {
		return v
	}
	obj, ok := v.info.Uses[ident].(*types.Func)
	if !ok {
		return v
	}
	if fn := v.prog.byObj[obj.Origin()]; fn != nil {
		v.found = append(v.found, fn)
	}
	return v
}

type calleeTask struct {
	fn    *Func
	depth int
}

// Callees returns the project functions reachable from m within depth
// call levels, breadth first, each at most once. m itself is excluded.
// A depth of 1 yields only the functions m references directly.
func (prog *Program) Callees(m Method, depth int) []Method {
	if depth <= 0 {
		return nil
	}
	root, ok := m.(*Func)
	if !ok {
		var err error
		if root, err = prog.Lookup(m.Symbol()); err != nil {
			return nil
		}
	}

	queue := []calleeTask{{fn: root}}
	seen := map[*Func]bool{root: true}
	var out []Method
	for len(queue) > 0 {
		task := queue[0]
		queue = queue[1:]
		if task.fn.decl.Body == nil {
			continue
		}
		collector := &calleeCollector{info: task.fn.owner.pkg.pkg.TypesInfo, prog: prog}
		ast.Walk(collector, task.fn.decl.Body)
		for _, fn := range collector.found {
			if seen[fn] {
				continue
			}
			seen[fn] = true
			out = append(out, fn)
			if task.depth+1 < depth {
				queue = append(queue, calleeTask{fn: fn, depth: task.depth + 1})
			}
		}
	}
	return out
}

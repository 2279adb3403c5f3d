package program

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// Source returns the gofmt'd declaration of f.
func (f *Func) Source() (string, error) {
	var buf bytes.Buffer
	if err := format.Node(&buf, f.owner.pkg.pkg.Fset, f.decl); err != nil {
		return "", fmt.Errorf("formatting %s: %w", f.symbol, err)
	}
	return buf.String(), nil
}

// Source returns the gofmt'd declaration of t. Single-spec declarations
// are printed with their enclosing "type" keyword and doc comment.
func (t *Type) Source() (string, error) {
	if t.IsFuncs() {
		return "", fmt.Errorf("%s.%s has no declaration", t.pkg.Name(), t.name)
	}
	p := t.pkg.pkg
	for _, file := range p.Syntax {
		if file.Pos() > t.spec.Pos() || t.spec.Pos() >= file.End() {
			continue
		}
		var node ast.Node = t.spec
		path, _ := astutil.PathEnclosingInterval(file, t.spec.Pos(), t.spec.End())
		for _, n := range path {
			if gd, ok := n.(*ast.GenDecl); ok && gd.Tok == token.TYPE && len(gd.Specs) == 1 {
				node = gd
				break
			}
		}
		var buf bytes.Buffer
		if err := format.Node(&buf, p.Fset, node); err != nil {
			return "", fmt.Errorf("formatting %s.%s: %w", t.pkg.Name(), t.name, err)
		}
		return buf.String(), nil
	}
	return "", fmt.Errorf("could not find TypeSpec node for %s.%s", t.pkg.Name(), t.name)
}

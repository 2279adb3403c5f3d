package program

import (
	"fmt"
	"go/types"
	"strings"
)

// symbolOf builds the name runtime.FuncForPC reports for obj, so that
// probes in a running binary can be matched against loaded declarations.
func symbolOf(pkgName, pkgPath string, obj *types.Func) string {
	prefix := escapePath(pkgPath)
	if pkgName == "main" {
		prefix = "main"
	}

	sig := obj.Type().(*types.Signature)
	recv := sig.Recv()
	if recv == nil {
		name := obj.Name()
		if sig.TypeParams().Len() > 0 {
			name += "[...]"
		}
		return prefix + "." + name
	}

	t := types.Unalias(recv.Type())
	ptr := false
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
		ptr = true
	}
	tname := types.TypeString(t, func(*types.Package) string { return "" })
	if named, ok := t.(*types.Named); ok {
		tname = named.Obj().Name()
		if named.Origin().TypeParams().Len() > 0 {
			tname += "[...]"
		}
	}
	if ptr {
		return prefix + ".(*" + tname + ")." + obj.Name()
	}
	return prefix + "." + tname + "." + obj.Name()
}

// escapePath mirrors the linker's symbol prefix escaping: dots in the last
// path element and unprintable bytes anywhere are written as %xx.
func escapePath(path string) string {
	slash := strings.LastIndex(path, "/")
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c <= ' ' || (c == '.' && i > slash) || c == '%' || c == '"' || c >= 0x7f {
			fmt.Fprintf(&b, "%%%02x", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

package tracer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go-method-tracer/internal/probe"
)

// Variant renders the lines an invocation contributes to its call tree.
// depth is the nesting level of the invocation, 1 for the outermost call.
type Variant interface {
	Enter(depth int, inv *probe.Invocation) []string
	Leave(depth int, inv *probe.Invocation) []string
}

// VariantByName maps a configuration name to a Variant.
func VariantByName(name string, parameters bool) (Variant, error) {
	switch name {
	case "", "calls":
		return Calls{Parameters: parameters}, nil
	case "backtrace":
		return Backtrace{}, nil
	default:
		return nil, fmt.Errorf("unknown trace variant %q (want calls or backtrace)", name)
	}
}

func indent(depth int) string {
	if depth <= 1 {
		return ""
	}
	return strings.Repeat("│ ", depth-1)
}

// Calls draws every invocation as an opening and a closing line.
type Calls struct {
	// Parameters adds arguments and results.
	Parameters bool
}

func (c Calls) Enter(depth int, inv *probe.Invocation) []string {
	line := indent(depth) + "┌─" + inv.Symbol
	if c.Parameters {
		line += "(" + formatArgs(inv) + ")"
	}
	return []string{line}
}

func (c Calls) Leave(depth int, inv *probe.Invocation) []string {
	line := indent(depth) + "└─" + inv.Symbol
	if c.Parameters && len(inv.Results) > 0 {
		vals := make([]string, len(inv.Results))
		for i, r := range inv.Results {
			vals[i] = formatValue(r)
		}
		line += " = " + strings.Join(vals, ", ")
	}
	return []string{line}
}

func formatArgs(inv *probe.Invocation) string {
	var names []string
	if inv.Method != nil {
		params := inv.Method.Parameters()
		if len(params) == len(inv.Args) {
			names = make([]string, len(params))
			for i, p := range params {
				names[i] = p.Name()
			}
		}
	}
	parts := make([]string, len(inv.Args))
	for i, a := range inv.Args {
		if names != nil && names[i] != "" && names[i] != "_" {
			parts[i] = names[i] + "=" + formatValue(a)
			continue
		}
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case error:
		return "error(" + strconv.Quote(v.Error()) + ")"
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

const defaultBacktraceFrames = 16

// Backtrace records where each invocation was called from. It is usually
// combined with history so every distinct call path is reported once.
type Backtrace struct {
	// Frames caps the number of callers listed; zero means 16.
	Frames int
}

func (b Backtrace) Enter(depth int, inv *probe.Invocation) []string {
	limit := b.Frames
	if limit <= 0 {
		limit = defaultBacktraceFrames
	}
	pad := indent(depth)
	lines := []string{pad + "┌─" + inv.Symbol}
	for i, f := range inv.Frames() {
		if i == limit || f.Function == "runtime.goexit" || f.Function == "runtime.main" {
			break
		}
		lines = append(lines, fmt.Sprintf("%s│ ← %s (%s:%d)", pad, f.Function, filepath.Base(f.File), f.Line))
	}
	return lines
}

func (b Backtrace) Leave(int, *probe.Invocation) []string { return nil }

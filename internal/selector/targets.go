package selector

import (
	"slices"

	"go-method-tracer/internal/program"
)

// TargetList is the ordered, append-only result of one or more resolutions.
// Entries are never deduplicated.
type TargetList struct {
	methods []program.Method
}

func (l *TargetList) add(m program.Method) {
	l.methods = append(l.methods, m)
}

// Methods returns a copy of the targets in resolution order.
func (l *TargetList) Methods() []program.Method {
	return slices.Clone(l.methods)
}

func (l *TargetList) Len() int { return len(l.methods) }

// Reset drops every target.
func (l *TargetList) Reset() { l.methods = nil }

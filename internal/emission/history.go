package emission

import "sync"

// History is the set of fingerprints already emitted. It is shared by every
// Stack of an Emitter and never shrinks: a tracing session is expected to
// see a bounded number of distinct blocks.
type History struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

func NewHistory() *History {
	return &History{seen: make(map[uint64]struct{})}
}

// Add records fp and reports whether it was new.
func (h *History) Add(fp uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.seen[fp]; ok {
		return false
	}
	h.seen[fp] = struct{}{}
	return true
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

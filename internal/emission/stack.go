package emission

import "strings"

// Stack is the emission state of one logical call stack: the current
// nesting depth and the lines of the call tree being composed.
//
// A Stack must be confined to the call stack it was created for; it is not
// safe for concurrent use.
type Stack struct {
	e     *Emitter
	depth int
	lines []string
}

func (s *Stack) Depth() int { return s.depth }

// Pending returns a copy of the lines not yet flushed.
func (s *Stack) Pending() []string {
	return append([]string(nil), s.lines...)
}

// Enter records the start of a traced call.
func (s *Stack) Enter() {
	s.depth++
}

// Append adds lines to the block being composed, in call order.
func (s *Stack) Append(lines ...string) {
	s.lines = append(s.lines, lines...)
}

// Exit records the end of a traced call and flushes when it was the
// outermost one. Exit without a matching Enter is a programming error and
// panics.
func (s *Stack) Exit(useHistory bool) error {
	if s.depth == 0 {
		panic("emission: depth underflow: Exit without matching Enter")
	}
	s.depth--
	return s.MaybeFlush(useHistory)
}

// MaybeFlush flushes the pending lines if no traced call is open. The
// lines are joined into one block framed by blank lines. With useHistory
// the block is only emitted the first time its fingerprint is seen. The
// pending lines are dropped whether or not the block was emitted, and a
// sink error is returned as is, without retry.
func (s *Stack) MaybeFlush(useHistory bool) error {
	if s.depth != 0 || len(s.lines) == 0 {
		return nil
	}
	block := "\n" + strings.Join(s.lines, "\n") + "\n"
	clear(s.lines)
	s.lines = s.lines[:0]
	return s.e.emit(block, useHistory)
}

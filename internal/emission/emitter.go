// Package emission composes trace lines into blocks and hands each block to
// a Sink once the outermost traced call returns.
//
// An Emitter is shared by every call stack of a tracer. Each logical call
// stack gets its own Stack, which tracks the nesting depth and the pending
// lines of the call tree being composed. Only the exit that brings a Stack
// back to depth zero flushes it, so a whole call tree is emitted as one
// block. Flushes may optionally be deduplicated against the Emitter's
// History.
package emission

import (
	"fmt"
	"log/slog"
)

// Recorder observes emission outcomes.
type Recorder interface {
	BlockEmitted()
	BlockSuppressed()
	SinkFailed()
	HistorySize(n int)
}

type nopRecorder struct{}

func (nopRecorder) BlockEmitted()    {}
func (nopRecorder) BlockSuppressed() {}
func (nopRecorder) SinkFailed()      {}
func (nopRecorder) HistorySize(int)  {}

// Emitter owns the sink, the fingerprint function and the dedup history.
// It is safe for concurrent use by multiple Stacks.
type Emitter struct {
	sink     Sink
	hasher   Hasher
	history  *History
	logger   *slog.Logger
	recorder Recorder
}

// Option configures an Emitter.
type Option func(*Emitter)

func WithHasher(h Hasher) Option {
	return func(e *Emitter) { e.hasher = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) { e.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(e *Emitter) { e.recorder = r }
}

// New returns an Emitter flushing to sink, fingerprinting with Cyrb53
// unless configured otherwise.
func New(sink Sink, opts ...Option) *Emitter {
	e := &Emitter{
		sink:     sink,
		hasher:   Cyrb53,
		history:  NewHistory(),
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewStack returns an empty Stack for one logical call stack.
func (e *Emitter) NewStack() *Stack {
	return &Stack{e: e}
}

func (e *Emitter) History() *History { return e.history }

func (e *Emitter) emit(block string, useHistory bool) error {
	if useHistory {
		fp := e.hasher(block)
		if !e.history.Add(fp) {
			e.recorder.BlockSuppressed()
			e.logger.Debug("duplicate trace block suppressed", "fingerprint", fp)
			return nil
		}
		e.recorder.HistorySize(e.history.Len())
	}
	if err := e.sink.Emit(block); err != nil {
		e.recorder.SinkFailed()
		return fmt.Errorf("emitting trace block: %w", err)
	}
	e.recorder.BlockEmitted()
	return nil
}

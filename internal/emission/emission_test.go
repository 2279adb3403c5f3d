package emission

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	blocks []string
	err    error
}

func (r *recorder) Emit(block string) error {
	if r.err != nil {
		return r.err
	}
	r.blocks = append(r.blocks, block)
	return nil
}

type counts struct {
	emitted, suppressed, failed, history int
}

func (c *counts) BlockEmitted()     { c.emitted++ }
func (c *counts) BlockSuppressed()  { c.suppressed++ }
func (c *counts) SinkFailed()       { c.failed++ }
func (c *counts) HistorySize(n int) { c.history = n }

func TestNestedCallsFlushOnce(t *testing.T) {
	sink := &recorder{}
	s := New(sink).NewStack()

	s.Enter()
	s.Append("┌─outer")
	s.Enter()
	s.Append("│ ┌─inner", "│ └─inner")
	require.NoError(t, s.Exit(false))

	assert.Equal(t, 1, s.Depth())
	assert.Empty(t, sink.blocks, "inner exit must not flush")

	s.Append("└─outer")
	require.NoError(t, s.Exit(false))

	assert.Zero(t, s.Depth())
	require.Len(t, sink.blocks, 1)
	assert.Equal(t, "\n┌─outer\n│ ┌─inner\n│ └─inner\n└─outer\n", sink.blocks[0])
	assert.Empty(t, s.Pending())
}

func TestDeduplication(t *testing.T) {
	flush := func(s *Stack, line string, useHistory bool) {
		s.Enter()
		s.Append(line)
		require.NoError(t, s.Exit(useHistory))
	}

	t.Run("identical blocks emit once", func(t *testing.T) {
		sink := &recorder{}
		c := &counts{}
		e := New(sink, WithRecorder(c))
		s := e.NewStack()

		flush(s, "same", true)
		flush(s, "same", true)

		assert.Len(t, sink.blocks, 1)
		assert.Equal(t, 1, e.History().Len())
		assert.Equal(t, counts{emitted: 1, suppressed: 1, history: 1}, *c)
	})

	t.Run("blocks differing by one character both emit", func(t *testing.T) {
		sink := &recorder{}
		s := New(sink).NewStack()

		flush(s, "same", true)
		flush(s, "sane", true)

		assert.Len(t, sink.blocks, 2)
	})

	t.Run("invalid utf-8 bytes stay distinct", func(t *testing.T) {
		sink := &recorder{}
		s := New(sink).NewStack()

		flush(s, "\xff", true)
		flush(s, "\xfe", true)
		flush(s, "\uFFFD", true)

		assert.Len(t, sink.blocks, 3)
	})

	t.Run("history shared across stacks", func(t *testing.T) {
		sink := &recorder{}
		e := New(sink)

		flush(e.NewStack(), "same", true)
		flush(e.NewStack(), "same", true)

		assert.Len(t, sink.blocks, 1)
	})

	t.Run("without history everything emits and nothing is recorded", func(t *testing.T) {
		sink := &recorder{}
		e := New(sink)
		s := e.NewStack()

		flush(s, "same", false)
		flush(s, "same", false)

		assert.Len(t, sink.blocks, 2)
		assert.Zero(t, e.History().Len())
	})

	t.Run("custom hasher", func(t *testing.T) {
		sink := &recorder{}
		s := New(sink, WithHasher(func(string) uint64 { return 7 })).NewStack()

		flush(s, "one", true)
		flush(s, "two", true)

		assert.Len(t, sink.blocks, 1)
	})
}

func TestSinkFailure(t *testing.T) {
	boom := errors.New("boom")
	sink := &recorder{err: boom}
	c := &counts{}
	e := New(sink, WithRecorder(c))
	s := e.NewStack()

	s.Enter()
	s.Append("line")
	err := s.Exit(true)

	require.ErrorIs(t, err, boom)
	assert.Empty(t, s.Pending(), "buffer is cleared even when the sink fails")
	assert.Equal(t, 1, c.failed)

	// The fingerprint was recorded before the sink failed.
	sink.err = nil
	s.Enter()
	s.Append("line")
	require.NoError(t, s.Exit(true))
	assert.Empty(t, sink.blocks)
}

func TestDepthUnderflowPanics(t *testing.T) {
	s := New(&recorder{}).NewStack()
	assert.PanicsWithValue(t, "emission: depth underflow: Exit without matching Enter", func() {
		_ = s.Exit(false)
	})
}

func TestMaybeFlush(t *testing.T) {
	sink := &recorder{}
	s := New(sink).NewStack()

	require.NoError(t, s.MaybeFlush(false))
	assert.Empty(t, sink.blocks, "nothing pending, nothing emitted")

	s.Enter()
	s.Append("open")
	require.NoError(t, s.MaybeFlush(false))
	assert.Empty(t, sink.blocks, "open call blocks the flush")
	assert.Equal(t, []string{"open"}, s.Pending())
}

func TestWriterSink(t *testing.T) {
	t.Run("plain", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterSink(&buf, false).Emit("\n┌─f\n└─f\n"))
		assert.Equal(t, "\n┌─f\n└─f\n", buf.String())
	})

	t.Run("coloured", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewWriterSink(&buf, true).Emit("\n┌─f\nx\n└─f\n"))
		out := buf.String()
		assert.Contains(t, out, "\x1b[")
		assert.Contains(t, out, "┌─f")
		assert.Contains(t, out, "└─f")
	})

	t.Run("concurrent emitters do not interleave", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewWriterSink(&buf, false)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = sink.Emit(fmt.Sprintf("[%d]", i))
			}(i)
		}
		wg.Wait()
		assert.Len(t, buf.String(), 8*3)
	})
}

func TestLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	require.NoError(t, NewLoggerSink(logger, slog.LevelInfo).Emit("\nline\n"))
	assert.Contains(t, buf.String(), "msg=trace")
	assert.Contains(t, buf.String(), `block="\nline\n"`)
}

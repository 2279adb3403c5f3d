package emission

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Sink accepts finished trace blocks.
type Sink interface {
	Emit(block string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(block string) error

func (f SinkFunc) Emit(block string) error { return f(block) }

// WriterSink writes blocks to an io.Writer, optionally colouring the call
// tree glyphs.
type WriterSink struct {
	mu    sync.Mutex
	w     io.Writer
	enter *color.Color
	leave *color.Color
	other *color.Color
}

// NewWriterSink returns a sink writing to w. With colorize set, lines are
// coloured regardless of whether w is a terminal.
func NewWriterSink(w io.Writer, colorize bool) *WriterSink {
	s := &WriterSink{w: w}
	if colorize {
		s.enter = color.New(color.FgGreen)
		s.leave = color.New(color.FgMagenta)
		s.other = color.New(color.Faint)
		for _, c := range []*color.Color{s.enter, s.leave, s.other} {
			c.EnableColor()
		}
	}
	return s
}

func (s *WriterSink) Emit(block string) error {
	if s.enter != nil {
		block = s.colorize(block)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, block)
	return err
}

func (s *WriterSink) colorize(block string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		switch {
		case line == "":
		case strings.Contains(line, "┌─"):
			lines[i] = s.enter.Sprint(line)
		case strings.Contains(line, "└─"):
			lines[i] = s.leave.Sprint(line)
		default:
			lines[i] = s.other.Sprint(line)
		}
	}
	return strings.Join(lines, "\n")
}

// LoggerSink logs every block as one record.
type LoggerSink struct {
	logger *slog.Logger
	level  slog.Level
}

func NewLoggerSink(logger *slog.Logger, level slog.Level) *LoggerSink {
	return &LoggerSink{logger: logger, level: level}
}

func (s *LoggerSink) Emit(block string) error {
	s.logger.Log(context.Background(), s.level, "trace", "block", block)
	return nil
}

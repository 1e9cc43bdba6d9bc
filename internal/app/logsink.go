package app

import (
	"bytes"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// logSink turns logger output into log pane lines. Lines written before
// attach are held and replayed.
type logSink struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	pending []string
	fn      func(string)
}

var _ io.Writer = (*logSink)(nil)

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.buf.Write(p)
	var lines []string
	for {
		idx := bytes.IndexByte(s.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(s.buf.Next(idx + 1))
		lines = append(lines, line[:len(line)-1])
	}
	fn := s.fn
	if fn == nil {
		s.pending = append(s.pending, lines...)
		lines = nil
	}
	s.mu.Unlock()
	for _, l := range lines {
		fn(l)
	}
	return len(p), nil
}

func (s *logSink) attach(fn func(string)) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.fn = fn
	s.mu.Unlock()
	for _, l := range pending {
		fn(l)
	}
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "simmatch"})
	setVerbose(logger, verbose)
	return logger
}

func setVerbose(logger *log.Logger, verbose bool) {
	if logger == nil {
		return
	}
	if verbose {
		logger.SetLevel(log.DebugLevel)
		return
	}
	logger.SetLevel(log.InfoLevel)
}

package simmatch

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v2"
)

// stageBar is a progress bar that tolerates a nil receiver so stages can
// report unconditionally.
type stageBar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
	out io.Writer
}

// progress returns a bar for a stage of n steps, or nil when the matcher is
// not verbose or has nowhere to draw.
func (m *Matcher) progress(desc string, n int) *stageBar {
	if !m.cfg.Verbose || m.progOut == nil || n == 0 {
		return nil
	}
	return &stageBar{
		out: m.progOut,
		bar: progressbar.NewOptions(n,
			progressbar.OptionSetWriter(m.progOut),
			progressbar.OptionSetDescription(desc),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
		),
	}
}

func (b *stageBar) add() {
	if b == nil {
		return
	}
	b.mu.Lock()
	_ = b.bar.Add(1)
	b.mu.Unlock()
}

func (b *stageBar) finish() {
	if b == nil {
		return
	}
	b.mu.Lock()
	_ = b.bar.Finish()
	_, _ = io.WriteString(b.out, "\n")
	b.mu.Unlock()
}

package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Progress reports bulk-indexing progress. Implementations are safe for
// concurrent use; the index command feeds them from parallel file readers.
type Progress interface {
	// Add advances the progress count by n items.
	Add(n int)

	// Describe updates the label shown next to the count.
	Describe(label string)

	// Finish completes the display and moves to a fresh line.
	Finish()
}

// NewProgress returns a Progress for indexing total items. Interactive
// terminals get an animated bar; pipes, CI runs, and forcePlain get
// line-based output at coarse intervals.
func NewProgress(out io.Writer, total int, label string, forcePlain bool) Progress {
	if UsePlain(out, forcePlain) {
		return newPlainProgress(out, total, label)
	}
	return newBarProgress(out, total, label)
}

// barProgress renders an animated terminal bar.
type barProgress struct {
	bar *progressbar.ProgressBar
}

func newBarProgress(out io.Writer, total int, label string) *barProgress {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(out)
		}),
	)
	return &barProgress{bar: bar}
}

func (p *barProgress) Add(n int) {
	_ = p.bar.Add(n)
}

func (p *barProgress) Describe(label string) {
	p.bar.Describe(label)
}

func (p *barProgress) Finish() {
	_ = p.bar.Finish()
}

// plainProgress prints a line every few percent so logs stay readable.
type plainProgress struct {
	mu       sync.Mutex
	out      io.Writer
	label    string
	total    int
	current  int
	lastMark int
}

// plainStepPercent is how much progress accrues between printed lines.
const plainStepPercent = 10

func newPlainProgress(out io.Writer, total int, label string) *plainProgress {
	return &plainProgress{out: out, total: total, label: label}
}

func (p *plainProgress) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current += n
	if p.total <= 0 {
		return
	}

	pct := p.current * 100 / p.total
	if pct >= p.lastMark+plainStepPercent || p.current == p.total {
		p.lastMark = pct - pct%plainStepPercent
		_, _ = fmt.Fprintf(p.out, "%s: %d/%d (%d%%)\n", p.label, p.current, p.total, pct)
	}
}

func (p *plainProgress) Describe(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label = label
}

func (p *plainProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.total > 0 && p.current < p.total {
		_, _ = fmt.Fprintf(p.out, "%s: %d/%d\n", p.label, p.current, p.total)
	}
}

package ui

import (
	"fmt"
	"io"
	"sync"
)

// Progress tracks completion of a known number of tasks with a simple
// counter display.
type Progress struct {
	out       io.Writer
	styles    Styles
	total     int
	completed int
	mu        sync.Mutex
}

// NewProgress creates a progress tracker for n tasks.
func NewProgress(out io.Writer, total int) *Progress {
	return &Progress{out: out, styles: StylesFor(out), total: total}
}

// Done marks one task as completed and prints the current progress.
func (p *Progress) Done(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed++
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s\n", p.completed, p.total, p.styles.OK.Render(label))
}

// Log prints an informational message within the progress context.
func (p *Progress) Log(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.out, format+"\n", args...)
}

// Warn prints a highlighted warning within the progress context.
func (p *Progress) Warn(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.out, p.styles.Warn.Render("Warning: "+fmt.Sprintf(format, args...)))
}

// Summary prints a heading followed by one bullet per item.
func Summary(out io.Writer, heading string, items []string) {
	styles := StylesFor(out)
	_, _ = fmt.Fprintln(out, styles.Heading.Render(heading))
	for _, item := range items {
		_, _ = fmt.Fprintf(out, "  - %s\n", item)
	}
}

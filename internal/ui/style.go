package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Styles renders status words. The zero value renders plain text.
type Styles struct {
	OK      lipgloss.Style
	Warn    lipgloss.Style
	Fail    lipgloss.Style
	Heading lipgloss.Style
}

// StylesFor returns colored styles when out is a terminal and plain ones
// otherwise, so piped output and tests stay free of escape codes.
func StylesFor(out io.Writer) Styles {
	if !IsTerminal(out) {
		return Styles{}
	}
	return Styles{
		OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Warn:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Heading: lipgloss.NewStyle().Bold(true),
	}
}

// IsTerminal reports whether w is an *os.File attached to a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

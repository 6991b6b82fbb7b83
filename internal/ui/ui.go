// Package ui provides styled terminal output for the CLI.
package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	accentColor  = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")

	accentStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// colorEnabled reports whether stdout supports styled output.
func colorEnabled() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

// RenderAccent styles s in the accent color.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderSuccess styles s as a success.
func RenderSuccess(s string) string { return render(successStyle, s) }

// RenderError styles s as an error.
func RenderError(s string) string { return render(errorStyle, s) }

// RenderMuted styles s as secondary text.
func RenderMuted(s string) string { return render(mutedStyle, s) }

// RenderHeader styles s as a section header.
func RenderHeader(s string) string { return render(headerStyle, s) }

// StatusLine formats a sync status for one-line display.
func StatusLine(syncing bool, lastSyncAt *time.Time, errText string) string {
	switch {
	case syncing:
		return RenderAccent("syncing...")
	case errText != "":
		return RenderError("error: " + errText)
	case lastSyncAt != nil:
		return RenderSuccess("synced " + lastSyncAt.Format("15:04:05"))
	default:
		return RenderMuted("never synced")
	}
}

// Width returns the terminal width, or a conservative default when
// stdout is not a terminal.
func Width() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// Truncate shortens s to fit the given width.
func Truncate(s string, width int) string {
	if width <= 3 || len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// Table renders rows as aligned columns, muted header first.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	for i, h := range header {
		b.WriteString(RenderMuted(pad(h, widths[i])))
		if i < len(header)-1 {
			b.WriteString("  ")
		}
	}
	b.WriteByte('\n')
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				b.WriteString(pad(cell, widths[i]))
			}
			if i < len(row)-1 {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}

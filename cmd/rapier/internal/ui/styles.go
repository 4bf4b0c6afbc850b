// Package ui holds the terminal styles used by the rapier commands
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	// Colors
	primaryColor = lipgloss.Color("#3b82f6")
	successColor = lipgloss.Color("#10b981")
	warningColor = lipgloss.Color("#f59e0b")
	errorColor   = lipgloss.Color("#ef4444")
	mutedColor   = lipgloss.Color("#94a3b8")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	nameStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)
)

// Success formats a status line for a completed step
func Success(format string, args ...any) string {
	return successStyle.Render("✓ ") + fmt.Sprintf(format, args...)
}

// Warning formats a status line for a recoverable problem
func Warning(format string, args ...any) string {
	return warningStyle.Render("! " + fmt.Sprintf(format, args...))
}

// Error formats a status line for a failure
func Error(format string, args ...any) string {
	return errorStyle.Render("✗ " + fmt.Sprintf(format, args...))
}

// Muted renders secondary text
func Muted(text string) string {
	return mutedStyle.Render(text)
}

// ComponentEntry is one line of a component listing
type ComponentEntry struct {
	Name     string
	Variants []string
}

// ComponentList renders a boxed listing of components and their variants
func ComponentList(title string, entries []ComponentEntry) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	if len(entries) == 0 {
		b.WriteString("\n" + mutedStyle.Render("no components found"))
	}
	for _, e := range entries {
		b.WriteString("\n" + nameStyle.Render(e.Name))
		if len(e.Variants) > 0 {
			b.WriteString(" " + mutedStyle.Render("variants: "+strings.Join(e.Variants, ", ")))
		}
	}
	return boxStyle.Render(b.String())
}

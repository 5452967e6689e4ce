// Package ui renders terminal output: styled text for command results and a
// live progress view for maintenance runs.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("86")  // Cyan
	colorSuccess = lipgloss.Color("42")  // Green
	colorWarning = lipgloss.Color("214") // Orange
	colorError   = lipgloss.Color("196") // Red
	colorInfo    = lipgloss.Color("75")  // Blue
	colorMuted   = lipgloss.Color("240") // Gray
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorInfo)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted).
			Padding(0, 1)
)

// Icons
const (
	iconTool    = "🔧"
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "⚠"
	iconArrow   = "►"
)

func Header(text string) string {
	return headerStyle.Render(iconTool + " " + text)
}

func Success(text string) string {
	return successStyle.Render(iconSuccess + " " + text)
}

func Warning(text string) string {
	return warningStyle.Render(iconWarning + " " + text)
}

func Error(text string) string {
	return errorStyle.Render(iconError + " " + text)
}

func Info(text string) string {
	return infoStyle.Render(text)
}

func Label(text string) string {
	return labelStyle.Render(text)
}

func Item(text string) string {
	return infoStyle.Render(iconArrow) + " " + text
}

func Box(text string) string {
	return borderStyle.Render(text)
}

// Status renders a result or run status in its color
func Status(status string, ok bool) string {
	if ok {
		return successStyle.Render(status)
	}
	return errorStyle.Render(status)
}

package ui

import "fmt"

// ANSI256 color codes.
const (
	colorGreen  = 71  // completed
	colorRed    = 167 // failed
	colorYellow = 178 // in progress
	colorMuted  = 245 // pending / other
)

var noColor bool

// RenderStatus returns a session status colored by lifecycle state.
func RenderStatus(status string) string {
	if noColor {
		return status
	}
	code := colorMuted
	switch status {
	case "completed":
		code = colorGreen
	case "failed":
		code = colorRed
	case "in_progress":
		code = colorYellow
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, status)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	if noColor {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", colorMuted, s)
}

// ForceNoColor disables color output globally.
func ForceNoColor() {
	noColor = true
}

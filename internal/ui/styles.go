package ui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	colorRed    = lipgloss.Color("#FF5555")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#666666")
	colorWhite  = lipgloss.Color("#F8F8F2")
)

// Styles for the transcript view. Volatile text renders dimmed so
// provisional words are visually distinct from committed ones.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	recordingDotStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Bold(true)

	idleDotStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	pipelineStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	stateStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	finalTextStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	volatileTextStyle = lipgloss.NewStyle().
				Foreground(colorGray).
				Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)

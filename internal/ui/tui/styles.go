package tui

import "github.com/charmbracelet/lipgloss"

// Adaptive colors pick the light variant on light terminal backgrounds.
var (
	azure   = lipgloss.AdaptiveColor{Light: "#005a9e", Dark: "#50a0f0"}
	teal    = lipgloss.AdaptiveColor{Light: "#0b6a0b", Dark: "#6ccb5f"}
	crimson = lipgloss.AdaptiveColor{Light: "#a4262c", Dark: "#f1707b"}
	amber   = lipgloss.AdaptiveColor{Light: "#8a5300", Dark: "#fce100"}
	slate   = lipgloss.AdaptiveColor{Light: "#605e5c", Dark: "#a19f9d"}
	ink     = lipgloss.AdaptiveColor{Light: "#201f1e", Dark: "#f3f2f1"}
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(azure)
	captionStyle = lipgloss.NewStyle().Foreground(slate).Italic(true)
	groupStyle   = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(ink).MarginTop(1)

	passStyle    = lipgloss.NewStyle().Foreground(teal)
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(crimson)
	cautionStyle = lipgloss.NewStyle().Foreground(amber)
	mutedStyle   = lipgloss.NewStyle().Foreground(slate)
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(azure)

	barDoneStyle = lipgloss.NewStyle().Foreground(azure)
	barTodoStyle = lipgloss.NewStyle().Foreground(slate)

	summaryStyle = lipgloss.NewStyle().Foreground(slate).MarginTop(1)
)

// Row markers. They stay ASCII so plain output greps cleanly in CI logs.
const (
	markPass    = "PASS"
	markFail    = "FAIL"
	markSkip    = "SKIP"
	markWarn    = "WARN"
	markPending = "    "
)

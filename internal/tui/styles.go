package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/egoavara/repo-upgrade/internal/progress"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Bold(true).
			Padding(0, 1)

	descStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginLeft(4)

	descSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				MarginLeft(4)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 2)

	previewStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	upToDateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("34"))

	behindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func statusStyle(status progress.Status) lipgloss.Style {
	switch status {
	case progress.StatusRunning:
		return runningStyle
	case progress.StatusComplete:
		return completeStyle
	case progress.StatusFailed:
		return failedStyle
	default:
		return optionStyle
	}
}

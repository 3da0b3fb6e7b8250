package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/smartidler/internal/ui"
	"github.com/muurk/smartidler/internal/version"
)

// Application branding
const AppName = "SMART IDLER"

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 64  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
	MinTerminalLines = 24
)

// Colors shared with the one-shot output
var (
	PrimaryColor   = ui.PrimaryColor
	HighlightColor = ui.SuccessColor
	SubtleColor    = ui.MutedColor
	ErrorColor     = ui.ErrorColor
	WarningColor   = ui.WarningColor
	TextColor      = ui.TextColor
)

var (
	// SectionTitleStyle heads each group of rows
	SectionTitleStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	// LabelStyle is for row labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Width(22)

	// FocusedLabelStyle is for the label of the focused row
	FocusedLabelStyle = LabelStyle.
				Foreground(HighlightColor).
				Bold(true)

	// ButtonStyle is for unfocused buttons
	ButtonStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor)

	// FocusedButtonStyle is for the focused button
	FocusedButtonStyle = ButtonStyle.
				Foreground(HighlightColor).
				Bold(true).
				BorderForeground(HighlightColor)

	// SpinnerStyle colors the loading spinner
	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	// MessageStyle is for the last action's outcome
	MessageStyle = lipgloss.NewStyle().
			Foreground(HighlightColor)

	// ErrorMessageStyle is for the last action's failure
	ErrorMessageStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// HeaderInfoStyle is for the agent line under the title
	HeaderInfoStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// ListItemStyle renders an agent in the picker
	ListItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(TextColor)

	// SelectedListItemStyle renders the highlighted agent in the picker
	SelectedListItemStyle = lipgloss.NewStyle().
				Foreground(HighlightColor).
				Bold(true)
)

// clamp keeps the terminal size within the supported layout range.
func clamp(width, height int) (int, int) {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if width > MaxContentWidth {
		width = MaxContentWidth
	}
	if height < MinTerminalLines {
		height = MinTerminalLines
	}
	return width, height
}

// RenderApplicationContainer frames content with the title bar and a
// footer carrying the help line.
func RenderApplicationContainer(content, subtitle, footer string, width, height int) string {
	width, height = clamp(width, height)

	header := lipgloss.JoinHorizontal(lipgloss.Left,
		lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true).Render(AppName),
		HeaderInfoStyle.Render("  v"+version.Version),
	)
	if subtitle != "" {
		header = lipgloss.JoinVertical(lipgloss.Left, header, HeaderInfoStyle.Render(subtitle))
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(PrimaryColor).
		Width(width-4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(PrimaryColor).
		Width(width-4).
		Padding(0, 1)

	inner := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(header),
		lipgloss.NewStyle().Width(width-4).Padding(1, 1).Render(content),
		footerStyle.Render(footer),
	)

	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(inner)
}

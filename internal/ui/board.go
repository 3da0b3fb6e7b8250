package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/panel"
)

// FieldValue renders the visible text of one field, styled by its status.
// Toggles are prefixed with a check box.
func FieldValue(kind panel.Kind, st panel.FieldState) string {
	text := st.Display()

	if kind == panel.KindToggle && st.Status != panel.StatusLoading {
		box := UncheckedBox
		switch {
		case st.Status == panel.StatusIndeterminate:
			box = UnknownBox
		case st.Checked:
			box = CheckedBox
		}
		text = box + " " + text
	}

	switch st.Status {
	case panel.StatusLoading:
		return FieldLoadingStyle.Render(text)
	case panel.StatusError, panel.StatusIndeterminate:
		out := FieldErrorStyle.Render(text)
		if st.Err != nil {
			out += "  " + FieldNoteStyle.Render("("+agentrpc.GetShortErrorMessage(st.Err)+")")
		}
		return out
	default:
		return FieldReadyStyle.Render(text)
	}
}

// RenderBoard renders every mirrored field as a labelled row inside a
// rounded box, in display order.
func RenderBoard(snapshot map[panel.FieldID]panel.FieldState, width int) string {
	width = clampWidth(width)

	lines := make([]string, 0, len(snapshot)+1)
	for _, d := range panel.Descriptors() {
		lines = append(lines, FieldLabelStyle.Render(d.Label)+FieldValue(d.Kind, snapshot[d.ID]))
	}

	if in := snapshot[panel.FieldIntervalInput]; in.Placeholder != "" {
		style := FieldReadyStyle
		if in.Status == panel.StatusError {
			style = FieldErrorStyle
		}
		lines = append(lines, FieldLabelStyle.Render("Interval update")+style.Render(in.Placeholder))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(width - 2).
		Padding(1, 0).
		Render(strings.Join(lines, "\n"))
}

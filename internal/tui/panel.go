package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/panel"
	"github.com/muurk/smartidler/internal/ui"
)

// Messages for async operations
type fieldChangedMsg struct {
	id panel.FieldID
}

type actionDoneMsg struct {
	action string
	err    error
}

// row is a focusable control, in focus order.
type row int

const (
	rowLogging row = iota
	rowMaintenance
	rowStartup
	rowShutdownTime
	rowShutdownEnabled
	rowInterval
	rowSubmit
	rowRefresh
	rowCount
)

var rowToggles = map[row]panel.Toggle{
	rowLogging:     panel.ToggleLogging,
	rowMaintenance: panel.ToggleMaintenance,
	rowStartup:     panel.ToggleStartup,
}

const intervalPlaceholder = "seconds"

// PanelModel is the settings screen. Every control reads from the board;
// user actions go through the panel's dispatcher as commands, and board
// notifications trigger redraws.
type PanelModel struct {
	ctx   context.Context
	panel *panel.Panel
	board *panel.Board
	agent string

	updates     <-chan panel.FieldID
	unsubscribe func()

	focus         row
	shutdownInput textinput.Model
	intervalInput textinput.Model
	spinner       spinner.Model

	pending    int
	message    string
	messageErr bool

	Width  int
	Height int

	help help.Model
	keys panelKeyMap
}

// NewPanelModel creates the panel screen for p, which must write to board.
func NewPanelModel(ctx context.Context, p *panel.Panel, board *panel.Board, agent string) PanelModel {
	updates, unsubscribe := board.Subscribe()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	shutdownInput := textinput.New()
	shutdownInput.Placeholder = "HH:MM"
	shutdownInput.CharLimit = 5
	shutdownInput.Width = 8

	intervalInput := textinput.New()
	intervalInput.Placeholder = intervalPlaceholder
	intervalInput.CharLimit = 9
	intervalInput.Width = 16

	return PanelModel{
		ctx:           ctx,
		panel:         p,
		board:         board,
		agent:         agent,
		updates:       updates,
		unsubscribe:   unsubscribe,
		shutdownInput: shutdownInput,
		intervalInput: intervalInput,
		spinner:       s,
		pending:       1,
		message:       "Loading settings...",
		help:          help.New(),
		keys:          newPanelKeyMap(),
	}
}

// Init starts the first refresh pass
func (m PanelModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange(), m.run("Load", m.panel.Load))
}

// Close ends the board subscription.
func (m PanelModel) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m PanelModel) waitForChange() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		id, ok := <-updates
		if !ok {
			return nil
		}
		return fieldChangedMsg{id: id}
	}
}

// run performs one panel operation off the UI goroutine.
func (m PanelModel) run(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

// Update handles messages and updates the model
func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case fieldChangedMsg:
		m.syncInputs(msg.id)
		return m, m.waitForChange()

	case actionDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil {
			m.message = fmt.Sprintf("%s failed: %s", msg.action, shortError(msg.err))
			m.messageErr = true
		} else {
			m.message = msg.action + " done"
			m.messageErr = false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m PanelModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	inInput := m.focus == rowShutdownTime || m.focus == rowInterval

	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.ShiftTab):
		m.setFocus(m.focus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.Tab):
		m.setFocus(m.focus + 1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.activate()
	}

	if inInput {
		return m.updateInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m.activate()
	case key.Matches(msg, m.keys.Refresh):
		return m.start("Refresh", m.panel.Refresh)
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	}
	return m, nil
}

func (m *PanelModel) setFocus(r row) {
	m.focus = (r + rowCount) % rowCount

	m.shutdownInput.Blur()
	m.intervalInput.Blur()
	switch m.focus {
	case rowShutdownTime:
		if m.shutdownInput.Value() == agentrpc.StopSentinel {
			m.shutdownInput.SetValue("")
		}
		m.shutdownInput.Focus()
	case rowInterval:
		m.intervalInput.Focus()
	}
}

func (m PanelModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == rowShutdownTime {
		m.shutdownInput, cmd = m.shutdownInput.Update(msg)
		return m, cmd
	}

	m.intervalInput, cmd = m.intervalInput.Update(msg)
	value := m.intervalInput.Value()
	m.board.Update(panel.FieldIntervalInput, func(st *panel.FieldState) {
		st.Value = value
	})
	return m, cmd
}

// activate performs the focused control's action. The interval field and
// the submit button share one path.
func (m PanelModel) activate() (tea.Model, tea.Cmd) {
	if t, ok := rowToggles[m.focus]; ok {
		desired := !m.board.Field(t.Field()).Checked
		return m.start(toggleAction(t, desired), func(ctx context.Context) error {
			return m.panel.SetToggle(ctx, t, desired)
		})
	}

	switch m.focus {
	case rowShutdownTime:
		value := m.shutdownInput.Value()
		return m.start("Shutdown time", func(ctx context.Context) error {
			return m.panel.EditShutdownTime(ctx, value)
		})
	case rowShutdownEnabled:
		enabled := !m.board.Field(panel.FieldShutdownEnabled).Checked
		typed := m.shutdownInput.Value()
		return m.start("Scheduled shutdown", func(ctx context.Context) error {
			return m.panel.ToggleShutdownAt(ctx, enabled, typed)
		})
	case rowInterval, rowSubmit:
		value := m.intervalInput.Value()
		return m.start("Interval update", func(ctx context.Context) error {
			return m.panel.SubmitInterval(ctx, value)
		})
	case rowRefresh:
		return m.start("Refresh", m.panel.Refresh)
	}
	return m, nil
}

func (m PanelModel) start(action string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.pending++
	m.message = action + "..."
	m.messageErr = false
	return m, m.run(action, fn)
}

func toggleAction(t panel.Toggle, on bool) string {
	if on {
		return "Enable " + string(t)
	}
	return "Disable " + string(t)
}

// syncInputs copies board values into the text inputs. An input being
// edited keeps what the user typed.
func (m *PanelModel) syncInputs(id panel.FieldID) {
	switch id {
	case panel.FieldShutdownTime:
		if m.shutdownInput.Focused() {
			return
		}
		// STOP is shown as-is so the time agrees with the unchecked box
		value := m.board.Field(id).Value
		if panel.ValidateScheduleRequest(value) != nil {
			value = ""
		}
		if m.shutdownInput.Value() != value {
			m.shutdownInput.SetValue(value)
		}

	case panel.FieldIntervalInput:
		st := m.board.Field(id)
		if m.intervalInput.Value() != st.Value {
			m.intervalInput.SetValue(st.Value)
		}
		m.intervalInput.Placeholder = intervalPlaceholder
		if st.Placeholder != "" {
			m.intervalInput.Placeholder = st.Placeholder
		}
	}
}

func shortError(err error) string {
	if panel.IsValidationError(err) {
		return err.Error()
	}
	return agentrpc.GetShortErrorMessage(err)
}

// View renders the panel screen
func (m PanelModel) View() string {
	snap := m.board.Snapshot()

	var sections []string

	// Status rows are read-only
	statusLines := []string{SectionTitleStyle.Render("Status")}
	for _, id := range []panel.FieldID{panel.FieldInputCount, panel.FieldCurrentInterval, panel.FieldLastInput} {
		d, _ := panel.DescriptorFor(id)
		statusLines = append(statusLines, "  "+LabelStyle.Render(d.Label)+m.renderValue(d.Kind, snap[id]))
	}
	sections = append(sections, strings.Join(statusLines, "\n"))

	settingLines := []string{SectionTitleStyle.Render("Settings")}
	for r := rowLogging; r <= rowStartup; r++ {
		d, _ := panel.DescriptorFor(rowToggles[r].Field())
		settingLines = append(settingLines, m.renderRow(r, d.Label, m.renderValue(d.Kind, snap[d.ID])))
	}
	sections = append(sections, strings.Join(settingLines, "\n"))

	timeState := snap[panel.FieldShutdownTime]
	timeValue := m.shutdownInput.View()
	if timeState.Status == panel.StatusLoading {
		timeValue = m.renderValue(panel.KindTime, timeState)
	} else if timeState.Status == panel.StatusError && timeState.Err != nil {
		timeValue += "  " + ui.FieldNoteStyle.Render(shortError(timeState.Err))
	}
	scheduleLines := []string{
		SectionTitleStyle.Render("Scheduled shutdown"),
		m.renderRow(rowShutdownTime, "Shutdown at", timeValue),
		m.renderRow(rowShutdownEnabled, "Enabled", m.renderValue(panel.KindToggle, snap[panel.FieldShutdownEnabled])),
	}
	sections = append(sections, strings.Join(scheduleLines, "\n"))

	intervalState := snap[panel.FieldIntervalInput]
	intervalValue := m.intervalInput.View()
	if intervalState.Status == panel.StatusError {
		intervalValue = ui.FieldErrorStyle.Render(intervalValue)
	}
	intervalLines := []string{
		SectionTitleStyle.Render("Polling interval"),
		m.renderRow(rowInterval, "New interval", intervalValue),
	}
	sections = append(sections, strings.Join(intervalLines, "\n"))

	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		"  ",
		m.renderButton(rowSubmit, "Submit interval"),
		" ",
		m.renderButton(rowRefresh, "Refresh"),
	)
	sections = append(sections, buttons)

	if m.message != "" {
		style := MessageStyle
		if m.messageErr {
			style = ErrorMessageStyle
		}
		line := style.Render(m.message)
		if m.pending > 0 {
			line = m.spinner.View() + " " + line
		}
		sections = append(sections, line)
	}

	content := strings.Join(sections, "\n\n")
	return RenderApplicationContainer(content, "Agent: "+m.agent, m.help.View(m.keys), m.Width, m.Height)
}

func (m PanelModel) renderValue(kind panel.Kind, st panel.FieldState) string {
	value := ui.FieldValue(kind, st)
	if st.Status == panel.StatusLoading {
		return m.spinner.View() + " " + value
	}
	return value
}

func (m PanelModel) renderRow(r row, label, value string) string {
	arrow := "  "
	labelStyle := LabelStyle
	if m.focus == r {
		arrow = "→ "
		labelStyle = FocusedLabelStyle
	}
	return arrow + labelStyle.Render(label) + value
}

func (m PanelModel) renderButton(r row, label string) string {
	if m.focus == r {
		return FocusedButtonStyle.Render(label)
	}
	return ButtonStyle.Render(label)
}

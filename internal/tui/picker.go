package tui

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/smartidler/internal/discovery"
)

// ScanFunc finds agents on the network.
type ScanFunc func(ctx context.Context) ([]*discovery.Agent, error)

// AgentChosenMsg is emitted when the user picks an agent.
type AgentChosenMsg struct {
	Name      string
	URL       string
	Transport string // empty to infer from URL
}

type scanDoneMsg struct {
	agents []*discovery.Agent
	err    error
}

// PickerModel lists discovered agents and accepts a typed address.
type PickerModel struct {
	ctx  context.Context
	scan ScanFunc

	Scanning bool
	Agents   []*discovery.Agent
	Err      error
	cursor   int

	ManualMode bool
	urlInput   textinput.Model

	Width   int
	Height  int
	spinner spinner.Model
	help    help.Model
	keys    pickerKeyMap
}

// NewPickerModel creates the picker. A nil scan starts in manual mode.
func NewPickerModel(ctx context.Context, scan ScanFunc) PickerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	urlInput := textinput.New()
	urlInput.Placeholder = fmt.Sprintf("host:%d or ws://host:%d%s", discovery.DefaultPort, discovery.DefaultPort, discovery.DefaultPath)
	urlInput.CharLimit = 256
	urlInput.Width = 48

	m := PickerModel{
		ctx:      ctx,
		scan:     scan,
		Scanning: scan != nil,
		urlInput: urlInput,
		spinner:  s,
		help:     help.New(),
		keys:     newPickerKeyMap(),
	}
	if scan == nil {
		m.ManualMode = true
		m.urlInput.Focus()
	}
	return m
}

// Init starts the first scan
func (m PickerModel) Init() tea.Cmd {
	if m.scan == nil {
		return textinput.Blink
	}
	return tea.Batch(m.spinner.Tick, m.runScan())
}

func (m PickerModel) runScan() tea.Cmd {
	ctx, scan := m.ctx, m.scan
	return func() tea.Msg {
		agents, err := scan(ctx)
		return scanDoneMsg{agents: agents, err: err}
	}
}

// Update handles messages and updates the model
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case scanDoneMsg:
		m.Scanning = false
		m.Agents = msg.agents
		m.Err = msg.err
		m.cursor = 0
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)
	}

	return m, nil
}

func (m PickerModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Manual):
		m.ManualMode = true
		m.urlInput.SetValue("")
		m.urlInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Rescan):
		if m.Scanning || m.scan == nil {
			return m, nil
		}
		m.Scanning = true
		m.Err = nil
		return m, tea.Batch(m.spinner.Tick, m.runScan())

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.Agents)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Enter):
		if m.Scanning || len(m.Agents) == 0 {
			return m, nil
		}
		agent := m.Agents[m.cursor]
		return m, choose(AgentChosenMsg{Name: agent.Instance, URL: agent.URL(), Transport: agent.Transport()})
	}

	return m, nil
}

func (m PickerModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.scan == nil {
			return m, tea.Quit
		}
		m.ManualMode = false
		m.urlInput.Blur()
		m.Err = nil
		return m, nil

	case key.Matches(msg, m.keys.Enter):
		addr, err := NormalizeAgentAddress(m.urlInput.Value())
		if err != nil {
			m.Err = err
			return m, nil
		}
		return m, choose(AgentChosenMsg{Name: addr, URL: addr})
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

func choose(msg AgentChosenMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// NormalizeAgentAddress turns a typed address into an agent URL. A bare
// host gets the default port, and anything without a scheme is taken as a
// WebSocket endpoint.
func NormalizeAgentAddress(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("enter an agent address")
	}
	if strings.Contains(s, "://") {
		return s, nil
	}

	host, port, err := net.SplitHostPort(s)
	if err != nil {
		host, port = s, strconv.Itoa(discovery.DefaultPort)
	}
	if host == "" {
		return "", fmt.Errorf("invalid agent address %q", raw)
	}
	if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
		return "", fmt.Errorf("invalid port in %q", raw)
	}
	return "ws://" + net.JoinHostPort(host, port) + discovery.DefaultPath, nil
}

// View renders the picker
func (m PickerModel) View() string {
	var b strings.Builder

	b.WriteString(SectionTitleStyle.Render("Choose an agent"))
	b.WriteString("\n\n")

	switch {
	case m.ManualMode:
		b.WriteString("Agent address:\n\n  ")
		b.WriteString(m.urlInput.View())
		b.WriteString("\n")

	case m.Scanning:
		b.WriteString(m.spinner.View())
		b.WriteString(" Looking for agents on the local network...\n")

	case len(m.Agents) == 0:
		b.WriteString("No agents answered.\n\n")
		b.WriteString(HeaderInfoStyle.Render("Press r to scan again or m to type an address."))
		b.WriteString("\n")

	default:
		for i, agent := range m.Agents {
			line := fmt.Sprintf("%s  %s", agent.Instance, HeaderInfoStyle.Render(agent.URL()))
			if v := agent.GetMetadata(discovery.TxtVersion); v != "" {
				line += HeaderInfoStyle.Render("  v" + v)
			}
			if i == m.cursor {
				b.WriteString(SelectedListItemStyle.Render("→ " + line))
			} else {
				b.WriteString(ListItemStyle.Render(line))
			}
			b.WriteString("\n")
		}
	}

	if m.Err != nil {
		b.WriteString("\n")
		b.WriteString(ErrorMessageStyle.Render(m.Err.Error()))
		b.WriteString("\n")
	}

	return RenderApplicationContainer(b.String(), "", m.help.View(m.keys), m.Width, m.Height)
}

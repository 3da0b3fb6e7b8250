package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/logging"
	"github.com/muurk/smartidler/internal/panel"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenPicker     Screen = "picker"
	ScreenConnecting Screen = "connecting"
	ScreenPanel      Screen = "panel"
)

// DialFunc opens a client to the agent at url.
type DialFunc func(ctx context.Context, transport, url string) (agentrpc.Client, error)

// Options configures the interactive panel.
type Options struct {
	// Agent is the agent URL to open directly. Empty shows the picker.
	Agent     string
	AgentName string
	Transport string

	Dial DialFunc
	// Scan feeds the picker; nil leaves only manual entry.
	Scan ScanFunc

	Panel panel.Options

	// OnConnect is called after a successful dial, e.g. to remember the agent.
	OnConnect func(AgentChosenMsg)
}

type connectedMsg struct {
	agent  AgentChosenMsg
	client agentrpc.Client
	err    error
}

// session owns the open client; it outlives the value-copied models.
type session struct {
	client agentrpc.Client
	close  func()
}

func (s *session) release() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logging.Debug("Failed to close agent client", zap.Error(err))
		}
		s.client = nil
	}
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	ctx  context.Context
	opts Options

	CurrentScreen Screen
	PickerModel   PickerModel
	PanelModel    PanelModel

	Connecting AgentChosenMsg
	LastError  error

	spinner spinner.Model
	session *session

	Width  int
	Height int
}

// NewAppModel creates the application, starting at the picker unless
// opts names an agent.
func NewAppModel(ctx context.Context, opts Options) AppModel {
	if opts.Dial == nil {
		clientOpts := agentrpc.DefaultOptions()
		opts.Dial = func(ctx context.Context, transport, url string) (agentrpc.Client, error) {
			return agentrpc.Dial(ctx, transport, url, clientOpts)
		}
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := AppModel{
		ctx:     ctx,
		opts:    opts,
		spinner: s,
		session: &session{},
	}

	if opts.Agent != "" {
		name := opts.AgentName
		if name == "" {
			name = opts.Agent
		}
		m.CurrentScreen = ScreenConnecting
		m.Connecting = AgentChosenMsg{Name: name, URL: opts.Agent, Transport: opts.Transport}
	} else {
		m.CurrentScreen = ScreenPicker
		m.PickerModel = NewPickerModel(ctx, opts.Scan)
	}
	return m
}

// Init initializes the application
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenConnecting:
		return tea.Batch(m.spinner.Tick, m.connect(m.Connecting))
	case ScreenPicker:
		return m.PickerModel.Init()
	default:
		return nil
	}
}

func (m AppModel) connect(agent AgentChosenMsg) tea.Cmd {
	ctx, dial := m.ctx, m.opts.Dial
	return func() tea.Msg {
		logging.Info("Connecting to agent",
			zap.String("agent", agent.Name),
			zap.String("url", agent.URL),
			zap.String("transport", agent.Transport),
		)
		client, err := dial(ctx, agent.Transport, agent.URL)
		return connectedMsg{agent: agent, client: client, err: err}
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.PickerModel.Width = msg.Width
		m.PickerModel.Height = msg.Height
		m.PanelModel.Width = msg.Width
		m.PanelModel.Height = msg.Height
		return m, nil

	case AgentChosenMsg:
		m.CurrentScreen = ScreenConnecting
		m.Connecting = msg
		m.LastError = nil
		return m, tea.Batch(m.spinner.Tick, m.connect(msg))

	case connectedMsg:
		return m.handleConnected(msg)
	}

	switch m.CurrentScreen {
	case ScreenPicker:
		updated, cmd := m.PickerModel.Update(msg)
		m.PickerModel = updated.(PickerModel)
		return m, cmd

	case ScreenPanel:
		updated, cmd := m.PanelModel.Update(msg)
		m.PanelModel = updated.(PanelModel)
		return m, cmd

	case ScreenConnecting:
		switch msg := msg.(type) {
		case spinner.TickMsg:
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		case tea.KeyMsg:
			if msg.String() == "ctrl+c" || msg.String() == "q" {
				return m, tea.Quit
			}
		}
	}

	return m, nil
}

func (m AppModel) handleConnected(msg connectedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		logging.Warn("Failed to connect to agent",
			zap.String("url", msg.agent.URL),
			zap.Error(msg.err),
		)
		m.LastError = msg.err
		m.CurrentScreen = ScreenPicker
		m.PickerModel = NewPickerModel(m.ctx, m.opts.Scan)
		m.PickerModel.Width, m.PickerModel.Height = m.Width, m.Height
		m.PickerModel.Err = fmt.Errorf("cannot reach %s: %s", msg.agent.Name, agentrpc.GetShortErrorMessage(msg.err))
		return m, m.PickerModel.Init()
	}

	logging.LogConnection(msg.agent.URL, "connected")
	if m.opts.OnConnect != nil {
		m.opts.OnConnect(msg.agent)
	}

	board := panel.NewBoard()
	p := panel.New(msg.client, board, m.opts.Panel)

	m.session.release()
	m.session.client = msg.client

	m.PanelModel = NewPanelModel(m.ctx, p, board, msg.agent.Name)
	m.PanelModel.Width, m.PanelModel.Height = m.Width, m.Height
	m.session.close = m.PanelModel.Close
	m.CurrentScreen = ScreenPanel
	return m, m.PanelModel.Init()
}

// Close releases the agent connection.
func (m AppModel) Close() {
	m.session.release()
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenPicker:
		return m.PickerModel.View()
	case ScreenPanel:
		return m.PanelModel.View()
	case ScreenConnecting:
		content := fmt.Sprintf("%s Connecting to %s...\n\n%s",
			m.spinner.View(), m.Connecting.Name, HeaderInfoStyle.Render(m.Connecting.URL))
		return RenderApplicationContainer(content, "", HeaderInfoStyle.Render("q quit"), m.Width, m.Height)
	default:
		return "Unknown screen"
	}
}

// Run starts the interactive panel and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	m := NewAppModel(ctx, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("panel UI failed: %w", err)
	}
	return nil
}

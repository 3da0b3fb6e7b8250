package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/agentsim"
	"github.com/muurk/smartidler/internal/config"
	"github.com/muurk/smartidler/internal/discovery"
	"github.com/muurk/smartidler/internal/logging"
	"github.com/muurk/smartidler/internal/panel"
)

// Global flags
var (
	agentURL     string
	transport    string
	configPath   string
	logLevel     string
	logFile      string
	callTimeout  time.Duration
	demoMode     bool
	outputFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&agentURL, "agent", "", "Agent URL, e.g. ws://office-pc.local:7420/ws (skips discovery)")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "", "Transport (ws, http); inferred from the URL when empty")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default is the user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when empty")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file")
	rootCmd.PersistentFlags().DurationVar(&callTimeout, "timeout", 0, "Per-request timeout (overrides agent.timeout)")
	rootCmd.PersistentFlags().BoolVar(&demoMode, "demo", false, "Use a built-in simulated agent instead of a real one")
}

// target is the agent a command talks to.
type target struct {
	Name      string
	URL       string
	Transport string
}

// setup loads the config file and starts logging. Flags override the file.
func setup() (*config.Settings, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" {
		level = settings.Logging.Level
	}
	output := logFile
	if output == "" {
		output = settings.Logging.File
	}
	if err := logging.InitializeWithOptions(logging.Options{Level: level, OutputPath: output}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	if callTimeout > 0 {
		settings.Agent.Timeout = config.Duration(callTimeout)
	}
	return settings, nil
}

// configuredTarget returns the agent named by flag or config, if any.
func configuredTarget(settings *config.Settings) (target, bool) {
	if agentURL != "" {
		return target{Name: agentURL, URL: agentURL, Transport: transport}, true
	}
	if settings.Agent.URL != "" {
		t := transport
		if t == "" {
			t = settings.Agent.Transport
		}
		return target{Name: settings.Agent.URL, URL: settings.Agent.URL, Transport: t}, true
	}
	return target{}, false
}

// resolveTarget finds the agent for a one-shot command: flag, config,
// remembered agent, then a discovery scan that must find exactly one agent.
func resolveTarget(ctx context.Context, settings *config.Settings) (target, error) {
	if t, ok := configuredTarget(settings); ok {
		return t, nil
	}

	if !settings.Discovery.Enabled {
		return target{}, fmt.Errorf("no agent configured and discovery is disabled; use --agent")
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = settings.Discovery.Timeout.Std()

	// A remembered agent may have moved; look it up by name first
	if name, known := settings.LastKnownAgent(); known != nil {
		agent, err := scanner.WaitForAgent(ctx, name)
		if err == nil {
			return targetFor(agent), nil
		}
		logging.Debug("Remembered agent did not answer, using stored address",
			zap.String("instance", name),
			zap.Error(err),
		)
		return target{Name: name, URL: known.URL, Transport: transport}, nil
	}

	agents, err := scanner.ScanForAgents(ctx)
	if err != nil {
		return target{}, fmt.Errorf("discovery failed: %w", err)
	}
	switch len(agents) {
	case 0:
		return target{}, fmt.Errorf("no agents found; use --agent to give an address")
	case 1:
		return targetFor(agents[0]), nil
	default:
		names := make([]string, len(agents))
		for i, a := range agents {
			names[i] = a.Instance
		}
		return target{}, fmt.Errorf("found %d agents (%v); use --agent to choose one", len(agents), names)
	}
}

func targetFor(agent *discovery.Agent) target {
	return target{Name: agent.Instance, URL: agent.URL(), Transport: agent.Transport()}
}

// demoAgent returns an in-process agent with a short history of inputs.
func demoAgent(ctx context.Context) (*agentsim.Handler, error) {
	store := agentsim.NewMemoryStore()
	if err := store.Set(ctx, agentsim.SettingLogStatistics, agentsim.StateEnabled); err != nil {
		return nil, err
	}
	now := time.Now()
	for i := 5; i > 0; i-- {
		at := now.Add(-time.Duration(i) * time.Duration(agentsim.DefaultForceInterval) * time.Second)
		if err := store.RecordInput(ctx, at, fmt.Sprint(agentsim.DefaultForceInterval)); err != nil {
			return nil, err
		}
	}
	return agentsim.NewHandler(store), nil
}

// connect opens a client to the resolved agent.
func connect(ctx context.Context, settings *config.Settings) (agentrpc.Client, target, error) {
	if demoMode {
		h, err := demoAgent(ctx)
		return h, target{Name: "demo", URL: "demo"}, err
	}

	t, err := resolveTarget(ctx, settings)
	if err != nil {
		return nil, target{}, err
	}

	logging.Info("Connecting to agent", zap.String("agent", t.Name), zap.String("url", t.URL))
	client, err := agentrpc.Dial(ctx, t.Transport, t.URL, settings.ClientOptions())
	if err != nil {
		return nil, t, fmt.Errorf("failed to connect to %s: %w", t.URL, err)
	}
	return client, t, nil
}

// session is an open panel for a one-shot command.
type session struct {
	panel  *panel.Panel
	board  *panel.Board
	client agentrpc.Client
	target target
}

func (s *session) Close() {
	if err := s.client.Close(); err != nil {
		logging.Debug("Failed to close agent client", zap.Error(err))
	}
	logging.Sync()
}

// openSession loads settings and connects; callers must Close it.
func openSession(cmd *cobra.Command) (*session, error) {
	settings, err := setup()
	if err != nil {
		return nil, err
	}

	client, t, err := connect(cmd.Context(), settings)
	if err != nil {
		return nil, err
	}

	board := panel.NewBoard()
	// One-shot commands print once at the end; no need to show loading
	opts := settings.PanelOptions()
	opts.RefreshDelay = 0

	return &session{
		panel:  panel.New(client, board, opts),
		board:  board,
		client: client,
		target: t,
	}, nil
}

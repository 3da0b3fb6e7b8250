package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/config"
	"github.com/muurk/smartidler/internal/discovery"
	"github.com/muurk/smartidler/internal/logging"
	"github.com/muurk/smartidler/internal/panel"
	"github.com/muurk/smartidler/internal/tui"
	"github.com/muurk/smartidler/internal/ui"
)

// Command flags
var (
	scanTimeout time.Duration
	saveFound   bool
	forceInit   bool
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(intervalCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(configCmd)
}

// runPanel launches the interactive panel
func runPanel(cmd *cobra.Command, args []string) error {
	settings, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	ctx := cmd.Context()
	opts := tui.Options{
		Panel: settings.PanelOptions(),
		Dial: func(ctx context.Context, transport, url string) (agentrpc.Client, error) {
			return agentrpc.Dial(ctx, transport, url, settings.ClientOptions())
		},
	}

	switch t, ok := configuredTarget(settings); {
	case demoMode:
		h, err := demoAgent(ctx)
		if err != nil {
			return err
		}
		opts.Agent, opts.AgentName = "demo", "demo (simulated)"
		opts.Dial = func(context.Context, string, string) (agentrpc.Client, error) { return h, nil }
	case ok:
		opts.Agent, opts.AgentName, opts.Transport = t.URL, t.Name, t.Transport
	case settings.Discovery.Enabled:
		scanner := discovery.NewScanner()
		scanner.Timeout = settings.Discovery.Timeout.Std()
		opts.Scan = scanner.ScanForAgents
		opts.OnConnect = func(chosen tui.AgentChosenMsg) {
			if chosen.Name == chosen.URL {
				return
			}
			settings.RememberAgent(chosen.Name, chosen.URL)
			if err := settings.Save(configPath); err != nil {
				logging.Warn("Failed to remember agent", zap.String("agent", chosen.Name), zap.Error(err))
			}
		}
	}

	return tui.Run(ctx, opts)
}

// statusCmd prints every panel field
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the agent's current settings",
	Long: `Read every panel field from the agent once and print it.

Fields that could not be read are shown as unavailable; the command then
exits with an error after printing what it could.`,
	Example: `  # Show settings with auto-discovery
  smartidler-panel status

  # JSON output for scripting
  smartidler-panel status --agent ws://office-pc.local:7420/ws --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
}

// fieldReport is the JSON form of one field.
type fieldReport struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Checked *bool  `json:"checked,omitempty"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if outputFormat != "table" && outputFormat != "json" {
		return fmt.Errorf("unknown format %q (expected table or json)", outputFormat)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	loadErr := s.panel.Load(cmd.Context())
	snapshot := s.board.Snapshot()

	if outputFormat == "json" {
		report := make(map[panel.FieldID]fieldReport)
		for _, d := range panel.Descriptors() {
			st := snapshot[d.ID]
			r := fieldReport{Label: d.Label, Value: st.Display(), Status: st.Status.String()}
			if d.Kind == panel.KindToggle {
				checked := st.Checked
				r.Checked = &checked
			}
			if st.Err != nil {
				r.Error = st.Err.Error()
			}
			report[d.ID] = r
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return loadErr
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("AGENT STATUS", "status", ui.Param{Key: "Agent", Value: s.target.Name})
	p.PrintBoard(snapshot)
	if loadErr != nil {
		p.PrintError("Some fields could not be read", loadErr)
	}
	return loadErr
}

// toggleCmd sets one of the agent's toggles
var toggleCmd = &cobra.Command{
	Use:   "toggle <logging|maintenance|startup> <on|off>",
	Short: "Turn an agent toggle on or off",
	Long: `Set one of the agent's toggles:

  logging      record robot inputs
  maintenance  start maintenance mode
  startup      launch the agent with Windows

The new state is shown only once the agent has accepted it.`,
	Example: `  smartidler-panel toggle logging on
  smartidler-panel toggle startup off --agent ws://office-pc.local:7420/ws`,
	Args: cobra.ExactArgs(2),
	RunE: runToggle,
}

// parseOnOff accepts on/off and the usual boolean spellings.
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "yes", "enable", "enabled", "1":
		return true, nil
	case "off", "false", "no", "disable", "disabled", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state %q (use on or off)", s)
	}
}

func runToggle(cmd *cobra.Command, args []string) error {
	t, err := panel.ParseToggle(args[0])
	if err != nil {
		return err
	}
	on, err := parseOnOff(args[1])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p := ui.NewPrinter(cmd.OutOrStdout())
	d, _ := panel.DescriptorFor(t.Field())
	if err := s.panel.SetToggle(cmd.Context(), t, on); err != nil {
		p.PrintError("Failed to change "+d.Label, err)
		return err
	}

	p.PrintSuccess(d.Label+" updated",
		ui.Param{Key: "Agent", Value: s.target.Name},
		ui.Param{Key: d.Label, Value: s.board.Field(t.Field()).Display()},
	)
	return nil
}

// scheduleCmd sets or clears the scheduled shutdown
var scheduleCmd = &cobra.Command{
	Use:   "schedule <HH:MM|on|off>",
	Short: "Set or clear the scheduled shutdown",
	Long: `Change the agent's scheduled shutdown.

  HH:MM  schedule a shutdown at this 24-hour time
  on     enable the schedule, keeping the agent's time or using the default
  off    clear the schedule`,
	Example: `  smartidler-panel schedule 19:30
  smartidler-panel schedule off`,
	Args: cobra.ExactArgs(1),
	RunE: runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	arg := strings.TrimSpace(args[0])

	// Reject a bad time before connecting
	switch strings.ToLower(arg) {
	case "on", "off":
	default:
		if err := panel.ValidateShutdownTime(arg); err != nil {
			return err
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	switch strings.ToLower(arg) {
	case "on":
		// Enabling reuses the agent's current time when it has one
		if err := s.panel.Mirror().Refresh(ctx, panel.FieldShutdownTime); err != nil {
			logging.Debug("Could not read current shutdown time", zap.Error(err))
		}
		err = s.panel.ToggleShutdown(ctx, true)
	case "off":
		err = s.panel.ToggleShutdown(ctx, false)
	default:
		err = s.panel.EditShutdownTime(ctx, arg)
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	if err != nil {
		p.PrintError("Failed to change the shutdown schedule", err)
		return err
	}

	enabled := s.board.Field(panel.FieldShutdownEnabled)
	title := "Shutdown scheduled"
	if !enabled.Checked {
		title = "Scheduled shutdown cleared"
	}
	p.PrintSuccess(title,
		ui.Param{Key: "Agent", Value: s.target.Name},
		ui.Param{Key: "Shutdown at", Value: s.board.Field(panel.FieldShutdownTime).Display()},
		ui.Param{Key: "Scheduled", Value: enabled.Display()},
	)
	return nil
}

// intervalCmd sets the robot polling interval
var intervalCmd = &cobra.Command{
	Use:   "interval <seconds>",
	Short: "Set the robot polling interval",
	Long: fmt.Sprintf(`Set how often, in seconds, the agent's robot acts.

The interval must be a whole number of at least %d seconds. After the
agent accepts it, every field is read again and the current values shown.`, panel.MinimumInterval),
	Example: `  smartidler-panel interval 120`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInterval,
}

func runInterval(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	p := ui.NewPrinter(cmd.OutOrStdout())
	err = s.panel.SubmitInterval(cmd.Context(), args[0])
	if err != nil && (panel.IsValidationError(err) || s.board.Field(panel.FieldIntervalInput).Status == panel.StatusError) {
		p.PrintError("Interval not changed", err)
		return err
	}

	// The write went through; a failure here is from the refresh that follows it
	p.PrintSuccess("Polling interval updated",
		ui.Param{Key: "Agent", Value: s.target.Name},
		ui.Param{Key: "Current interval", Value: s.board.Field(panel.FieldCurrentInterval).Display()},
	)
	if err != nil {
		p.PrintWarning("Some fields could not be refreshed", ui.Param{Key: "Error", Value: agentrpc.GetShortErrorMessage(err)})
	}
	return nil
}

// discoverCmd scans the network for agents
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find Smart Idler agents on the network",
	Long: `Browse for agents using mDNS/DNS-SD and list every one that answers.

With --save, the agents found are remembered in the config file, and later
commands without --agent will look for the most recently seen one.`,
	Example: `  smartidler-panel discover
  smartidler-panel discover --timeout 10s --save`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to wait for answers")
	discoverCmd.Flags().BoolVar(&saveFound, "save", false, "Remember the agents found in the config file")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	settings, err := setup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("AGENT DISCOVERY", "discover",
		ui.Param{Key: "Service", Value: discovery.ServiceType},
		ui.Param{Key: "Timeout", Value: scanTimeout.String()},
	)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	agents, err := scanner.ScanForAgents(cmd.Context())
	if err != nil {
		p.PrintError("Discovery failed", err,
			"mDNS needs multicast on the local network",
			"Use --agent to give an address directly",
		)
		return err
	}

	if len(agents) == 0 {
		p.PrintWarning("No agents found",
			ui.Param{Key: "Hint", Value: "Check the agent is running and on this network"},
			ui.Param{Key: "Hint", Value: "Try a longer --timeout"},
		)
		return nil
	}

	details := make([]ui.Param, 0, len(agents))
	for _, a := range agents {
		value := a.URL()
		if v := a.GetMetadata(discovery.TxtVersion); v != "" {
			value += " (v" + v + ")"
		}
		details = append(details, ui.Param{Key: a.Instance, Value: value})
		if saveFound {
			settings.RememberAgent(a.Instance, a.URL())
		}
	}
	p.PrintSuccess(fmt.Sprintf("Found %d agent(s)", len(agents)), details...)

	if saveFound {
		if err := settings.Save(configPath); err != nil {
			return err
		}
		p.Println("Agents saved to the config file.")
	}
	return nil
}

// configCmd manages the config file
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the config file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file without asking")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	settings, err := setup()
	if err != nil {
		return err
	}

	path := configPath
	if path == "" {
		if path, err = config.GetConfigPath(); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", path, data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())

	path, err := config.CreateDefaultConfig(configPath, forceInit)
	if err != nil && !forceInit && ui.IsInteractive() {
		if _, statErr := os.Stat(path); statErr == nil && ui.ConfirmOverwrite(cmd.InOrStdin(), cmd.OutOrStdout(), path) {
			path, err = config.CreateDefaultConfig(configPath, true)
		} else if statErr == nil {
			return nil
		}
	}
	if err != nil {
		return err
	}

	p.PrintSuccess("Config file written", ui.Param{Key: "Path", Value: path})
	return nil
}

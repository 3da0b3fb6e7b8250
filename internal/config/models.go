package config

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/panel"
)

// CurrentVersion is the settings file format version.
const CurrentVersion = 1

// Settings is the whole panel configuration file. It holds client
// preferences only; agent state is never stored here.
type Settings struct {
	Version   int                    `yaml:"version"`
	Agent     *AgentSettings         `yaml:"agent"`
	Panel     *PanelSettings         `yaml:"panel"`
	Logging   *LoggingSettings       `yaml:"logging"`
	Discovery *DiscoverySettings     `yaml:"discovery"`
	Known     map[string]*KnownAgent `yaml:"known_agents,omitempty"` // Keyed by mDNS instance name
}

// AgentSettings says where and how to reach the agent.
type AgentSettings struct {
	URL       string   `yaml:"url,omitempty"`       // e.g. ws://127.0.0.1:7420/ws; empty means discover
	Transport string   `yaml:"transport,omitempty"` // "ws" or "http"; empty infers from URL
	Timeout   Duration `yaml:"timeout"`             // per-invocation bound
}

// PanelSettings tunes the settings panel.
type PanelSettings struct {
	RefreshDelay        Duration `yaml:"refresh_delay"`         // pause before each read is issued
	DefaultShutdownTime string   `yaml:"default_shutdown_time"` // used when enabling without a time
	MinimumInterval     int      `yaml:"minimum_interval"`      // seconds, never below 60
}

// LoggingSettings configures the zap logger.
type LoggingSettings struct {
	Level string `yaml:"level,omitempty"` // debug, info, warn, error; empty is silent
	File  string `yaml:"file,omitempty"`  // log file; the TUI owns stdout
}

// DiscoverySettings configures mDNS lookup of agents.
type DiscoverySettings struct {
	Enabled bool     `yaml:"enabled"`
	Timeout Duration `yaml:"timeout"`
}

// KnownAgent remembers an agent found by discovery.
type KnownAgent struct {
	URL      string    `yaml:"url"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`
}

// Duration is a time.Duration written as "250ms" rather than nanoseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Plain integers are read as
// seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}

	var secs int
	if value.Tag == "!!int" {
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", value.Line, value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// NewSettings returns settings with every default filled in.
func NewSettings() *Settings {
	s := &Settings{Version: CurrentVersion}
	s.applyDefaults()
	return s
}

// applyDefaults fills sections missing from a loaded file.
func (s *Settings) applyDefaults() {
	if s.Agent == nil {
		s.Agent = &AgentSettings{Timeout: Duration(agentrpc.DefaultTimeout)}
	}
	if s.Panel == nil {
		s.Panel = &PanelSettings{
			RefreshDelay:        Duration(panel.DefaultRefreshDelay),
			DefaultShutdownTime: panel.DefaultShutdownTime,
			MinimumInterval:     panel.MinimumInterval,
		}
	}
	if s.Logging == nil {
		s.Logging = &LoggingSettings{}
	}
	if s.Discovery == nil {
		s.Discovery = &DiscoverySettings{Enabled: true, Timeout: Duration(5 * time.Second)}
	}
	if s.Known == nil {
		s.Known = make(map[string]*KnownAgent)
	}
}

// Validate checks every setting and reports all problems at once.
func (s *Settings) Validate() error {
	var errs []error

	if s.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion))
	}

	if s.Agent != nil {
		switch s.Agent.Transport {
		case "", agentrpc.TransportWebSocket, agentrpc.TransportHTTP:
		default:
			errs = append(errs, fmt.Errorf("agent.transport: %q is not %q or %q", s.Agent.Transport, agentrpc.TransportWebSocket, agentrpc.TransportHTTP))
		}
		if s.Agent.Timeout < 0 {
			errs = append(errs, fmt.Errorf("agent.timeout: must not be negative"))
		}
	}

	if s.Panel != nil {
		if s.Panel.MinimumInterval < panel.MinimumInterval {
			errs = append(errs, fmt.Errorf("panel.minimum_interval: %d is below %d", s.Panel.MinimumInterval, panel.MinimumInterval))
		}
		if err := panel.ValidateShutdownTime(s.Panel.DefaultShutdownTime); err != nil {
			errs = append(errs, fmt.Errorf("panel.default_shutdown_time: %w", err))
		}
		if s.Panel.RefreshDelay < 0 {
			errs = append(errs, fmt.Errorf("panel.refresh_delay: must not be negative"))
		}
	}

	if s.Discovery != nil && s.Discovery.Timeout < 0 {
		errs = append(errs, fmt.Errorf("discovery.timeout: must not be negative"))
	}

	return errors.Join(errs...)
}

// PanelOptions converts the panel section for panel.New.
func (s *Settings) PanelOptions() panel.Options {
	return panel.Options{
		RefreshDelay:        s.Panel.RefreshDelay.Std(),
		MinimumInterval:     s.Panel.MinimumInterval,
		DefaultShutdownTime: s.Panel.DefaultShutdownTime,
	}
}

// ClientOptions converts the agent section for agentrpc.Dial.
func (s *Settings) ClientOptions() agentrpc.Options {
	opts := agentrpc.DefaultOptions()
	opts.Timeout = s.Agent.Timeout.Std()
	return opts
}

// RememberAgent records a discovered agent.
func (s *Settings) RememberAgent(instance, url string) {
	if s.Known == nil {
		s.Known = make(map[string]*KnownAgent)
	}
	s.Known[instance] = &KnownAgent{URL: url, LastSeen: time.Now()}
}

// LastKnownAgent returns the most recently seen remembered agent.
func (s *Settings) LastKnownAgent() (string, *KnownAgent) {
	var name string
	var latest *KnownAgent
	for n, a := range s.Known {
		if latest == nil || a.LastSeen.After(latest.LastSeen) {
			name, latest = n, a
		}
	}
	return name, latest
}

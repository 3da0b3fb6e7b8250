// Package config manages the panel's YAML settings file.
//
// The file holds client preferences: where the agent lives, how the panel
// behaves, logging, and discovery. It never holds agent state; toggles, the
// shutdown schedule and the polling interval belong to the agent.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/smartidler/config.yaml or $HOME/.config/smartidler/config.yaml
//   - macOS: $HOME/.config/smartidler/config.yaml
//   - Windows: %LOCALAPPDATA%\smartidler\config.yaml
//
// # Example
//
//	version: 1
//	agent:
//	    url: ws://127.0.0.1:7420/ws
//	    timeout: 10s
//	panel:
//	    refresh_delay: 250ms
//	    default_shutdown_time: "19:00"
//	    minimum_interval: 60
//	logging:
//	    level: info
//	    file: /tmp/smartidler.log
//	discovery:
//	    enabled: true
//	    timeout: 5s
//
// Missing sections take their defaults. Command-line flags override the
// file.
package config

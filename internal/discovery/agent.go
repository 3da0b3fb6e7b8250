package discovery

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// TXT record keys published by agents.
const (
	TxtTransport = "transport" // "ws" or "http"
	TxtPath      = "path"      // WebSocket endpoint path, e.g. "/ws"
	TxtVersion   = "version"   // agent build version
)

// Agent is a Smart Idler agent found on the network.
type Agent struct {
	// Instance is the advertised service instance name (e.g., "office-pc")
	Instance string

	// Hostname is the mDNS hostname (e.g., "office-pc.local.")
	Hostname string

	// IP is the agent address, IPv4 preferred
	IP string

	// Port is the invocation port
	Port int

	// Metadata holds the TXT record pairs
	Metadata map[string]string

	// DiscoveredAt is when the agent answered
	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the agent
func (a *Agent) String() string {
	return fmt.Sprintf("Smart Idler agent %s (%s) at %s", a.Instance, a.Hostname, a.hostPort())
}

func (a *Agent) hostPort() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

// Transport returns the advertised transport, WebSocket when unset.
func (a *Agent) Transport() string {
	if t := strings.ToLower(a.GetMetadata(TxtTransport)); t == "http" {
		return "http"
	}
	return "ws"
}

// URL returns the endpoint to pass to agentrpc.Dial.
func (a *Agent) URL() string {
	if a.Transport() == "http" {
		return "http://" + a.hostPort()
	}

	path := a.GetMetadata(TxtPath)
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "ws://" + a.hostPort() + path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (a *Agent) GetMetadata(key string) string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}

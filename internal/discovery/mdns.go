package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/logging"
)

const (
	// ServiceType is the mDNS service type agents advertise
	ServiceType = "_smartidler._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for agent discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the agent's default invocation port
	DefaultPort = 7420

	// DefaultPath is the agent's default WebSocket path
	DefaultPath = "/ws"

	// entriesDrainTimeout bounds the wait for the resolver to close its channel
	entriesDrainTimeout = time.Second
)

// Scanner handles mDNS agent discovery
type Scanner struct {
	// Timeout is the maximum time to wait for agents to answer
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForAgents browses for agents until the timeout expires and returns
// every distinct agent that answered, sorted by instance name.
func (s *Scanner) ScanForAgents(ctx context.Context) ([]*Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	collected := make(chan struct{})

	var mu sync.Mutex
	found := make(map[string]*Agent)

	go func() {
		defer close(collected)
		for entry := range entries {
			if agent := parseServiceEntry(entry); agent != nil {
				mu.Lock()
				found[agent.Instance] = agent
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	// The resolver closes entries once ctx is done
	select {
	case <-collected:
	case <-time.After(entriesDrainTimeout):
	}

	mu.Lock()
	defer mu.Unlock()

	agents := make([]*Agent, 0, len(found))
	for _, a := range found {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Instance < agents[j].Instance })

	logging.Debug("mDNS scan finished",
		zap.String("service", ServiceType),
		zap.Int("agents", len(agents)),
	)
	return agents, nil
}

// WaitForAgent returns the first agent to answer whose instance name
// matches instance. An empty instance accepts any agent.
func (s *Scanner) WaitForAgent(ctx context.Context, instance string) (*Agent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	agentChan := make(chan *Agent, 1)

	go func() {
		for entry := range entries {
			agent := parseServiceEntry(entry)
			if agent == nil || (instance != "" && agent.Instance != instance) {
				continue
			}
			select {
			case agentChan <- agent:
				cancel()
			default:
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case agent := <-agentChan:
		return agent, nil
	case <-ctx.Done():
		// A match may have cancelled the context itself
		select {
		case agent := <-agentChan:
			return agent, nil
		default:
		}
		if instance == "" {
			return nil, fmt.Errorf("no agent found within %s", s.Timeout)
		}
		return nil, fmt.Errorf("agent %q not found within %s", instance, s.Timeout)
	}
}

// parseServiceEntry converts a zeroconf service entry to an Agent.
// Returns nil if the entry cannot be reached.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Agent {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Agent{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     parseTXT(entry.Text),
		DiscoveredAt: time.Now(),
	}
}

// parseTXT splits "key=value" TXT strings. A bare key maps to "".
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// FormatTXT renders metadata as sorted TXT strings.
func FormatTXT(metadata map[string]string) []string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+metadata[k])
	}
	return out
}

// Advertisement is a running mDNS registration.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers an agent instance on the local network until
// Shutdown is called.
func Advertise(instance string, port int, metadata map[string]string) (*Advertisement, error) {
	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, FormatTXT(metadata), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising agent via mDNS",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}

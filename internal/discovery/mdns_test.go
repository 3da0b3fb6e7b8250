package discovery

import (
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "IPv4 agent",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "office-pc"},
				HostName:      "office-pc.local.",
				Port:          7420,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.20")},
				Text:          []string{"transport=ws", "path=/ws"},
			},
			wantIP:   "192.168.1.20",
			wantPort: 7420,
		},
		{
			name: "no port falls back to default",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "lab"},
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "v6"},
				Port:          7420,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 7420,
		},
		{
			name: "both families prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "dual"},
				Port:          7420,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:   "192.168.1.50",
			wantPort: 7420,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "ghost"},
				Port:          7420,
			},
			wantNil: true,
		},
		{
			name: "no instance",
			entry: &zeroconf.ServiceEntry{
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if agent != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", agent)
				}
				return
			}
			if agent == nil {
				t.Fatal("parseServiceEntry() = nil, want agent")
			}

			if agent.Instance != tt.entry.Instance {
				t.Errorf("agent.Instance = %v, want %v", agent.Instance, tt.entry.Instance)
			}
			if agent.IP != tt.wantIP {
				t.Errorf("agent.IP = %v, want %v", agent.IP, tt.wantIP)
			}
			if agent.Port != tt.wantPort {
				t.Errorf("agent.Port = %v, want %v", agent.Port, tt.wantPort)
			}
			if time.Since(agent.DiscoveredAt) > time.Second {
				t.Errorf("agent.DiscoveredAt is not recent: %v", agent.DiscoveredAt)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	got := parseTXT([]string{"transport=http", "path=/ws", "flag", "version=1.0=beta"})
	want := map[string]string{
		"transport": "http",
		"path":      "/ws",
		"flag":      "",
		"version":   "1.0=beta",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseTXT() = %v, want %v", got, want)
	}
}

func TestFormatTXTRoundTrip(t *testing.T) {
	meta := map[string]string{"version": "dev", "transport": "ws", "path": "/ws"}

	txt := FormatTXT(meta)
	want := []string{"path=/ws", "transport=ws", "version=dev"}
	if !reflect.DeepEqual(txt, want) {
		t.Errorf("FormatTXT() = %v, want %v", txt, want)
	}
	if got := parseTXT(txt); !reflect.DeepEqual(got, meta) {
		t.Errorf("parseTXT(FormatTXT()) = %v, want %v", got, meta)
	}
}

func TestAgentURL(t *testing.T) {
	tests := []struct {
		name  string
		agent *Agent
		want  string
	}{
		{
			name:  "websocket default path",
			agent: &Agent{IP: "192.168.1.20", Port: 7420},
			want:  "ws://192.168.1.20:7420/ws",
		},
		{
			name:  "websocket custom path",
			agent: &Agent{IP: "192.168.1.20", Port: 9000, Metadata: map[string]string{TxtPath: "agent"}},
			want:  "ws://192.168.1.20:9000/agent",
		},
		{
			name:  "http transport",
			agent: &Agent{IP: "10.0.0.5", Port: 7420, Metadata: map[string]string{TxtTransport: "HTTP"}},
			want:  "http://10.0.0.5:7420",
		},
		{
			name:  "IPv6 host is bracketed",
			agent: &Agent{IP: "fe80::1", Port: 7420},
			want:  "ws://[fe80::1]:7420/ws",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.agent.URL(); got != tt.want {
				t.Errorf("Agent.URL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentString(t *testing.T) {
	agent := &Agent{Instance: "office-pc", Hostname: "office-pc.local.", IP: "192.168.1.20", Port: 7420}

	want := "Smart Idler agent office-pc (office-pc.local.) at 192.168.1.20:7420"
	if agent.String() != want {
		t.Errorf("Agent.String() = %v, want %v", agent.String(), want)
	}
}

func TestGetMetadataNil(t *testing.T) {
	agent := &Agent{}
	if got := agent.GetMetadata(TxtVersion); got != "" {
		t.Errorf("GetMetadata() = %q, want empty", got)
	}
	if agent.Transport() != "ws" {
		t.Errorf("Transport() = %q, want ws", agent.Transport())
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

// Live mDNS browsing needs a multicast-capable network and is not exercised
// here; Advertise and ScanForAgents are covered by running the simulator
// with --advertise and `smartidler-panel discover`.

// Package discovery finds Smart Idler agents on the local network over mDNS.
//
// Agents advertise the "_smartidler._tcp" service with TXT records naming
// the transport ("ws" or "http") and, for WebSocket, the endpoint path.
// Agent.URL turns an answer into an address agentrpc.Dial accepts.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	agents, err := scanner.ScanForAgents(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, a := range agents {
//	    fmt.Println(a.Instance, a.URL())
//	}
//
// Advertise is the other side, used by the agent simulator.
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Agents must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery

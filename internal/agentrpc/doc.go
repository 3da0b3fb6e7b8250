// Package agentrpc implements the remote invocation contract between the
// settings panel and the Smart Idler agent.
//
// Every call is a named command with an optional key-value payload that
// returns a single JSON value or fails. The command names and argument
// shapes live in commands.go and nowhere else.
//
// # Wire Format
//
// Requests and responses are JSON envelopes correlated by a UUID:
//
//	-> {"id":"9b1d...","command":"get_state","args":{"data":"logging"}}
//	<- {"id":"9b1d...","result":true}
//	<- {"id":"9b1d...","error":{"code":"unknown_data","message":"..."}}
//
// # Transports
//
// WSClient keeps one WebSocket open and multiplexes concurrent calls over
// it; responses may arrive in any order. HTTPClient POSTs one envelope per
// call to /invoke. Dial picks between them from the URL scheme or an
// explicit transport name.
//
// # Usage Example
//
//	client, err := agentrpc.Dial(ctx, "", "ws://127.0.0.1:7420/ws", agentrpc.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	var enabled bool
//	err = client.Invoke(ctx, agentrpc.CmdGetState, agentrpc.Args{agentrpc.ArgData: "logging"}, &enabled)
//
// # Error Handling
//
// All failures are returned as *AgentError. Use IsNetworkError, IsRemoteError,
// IsTimeout and friends to classify them, and GetShortErrorMessage for text
// suitable for a status line.
package agentrpc

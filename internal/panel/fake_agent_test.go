package panel

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/muurk/smartidler/internal/agentrpc"
)

type call struct {
	Command string
	Args    agentrpc.Args
}

// fakeAgent is a scriptable in-memory agent. Each call is answered from the
// state at the moment the call arrives; hold can then park the caller
// before the answer is delivered, which lets tests choose completion order.
type fakeAgent struct {
	mu sync.Mutex

	calls []call

	toggles   map[string]bool
	hour      string
	interval  string
	count     string
	lastInput string

	// fail makes every call of a command fail with the given error
	fail map[string]error

	// hold returns a channel the n-th call (0-based) waits on, or nil
	hold func(n int, command string) <-chan struct{}
}

func newFakeAgent() *fakeAgent {
	return &fakeAgent{
		toggles: map[string]bool{
			string(ToggleLogging):     false,
			string(ToggleMaintenance): false,
			string(ToggleStartup):     false,
		},
		hour:      agentrpc.StopSentinel,
		interval:  "60",
		count:     "3",
		lastInput: "12:00:00",
		fail:      make(map[string]error),
	}
}

func (f *fakeAgent) Invoke(ctx context.Context, command string, args agentrpc.Args, out any) error {
	f.mu.Lock()
	n := len(f.calls)
	recorded := make(agentrpc.Args, len(args))
	for k, v := range args {
		recorded[k] = v
	}
	f.calls = append(f.calls, call{Command: command, Args: recorded})

	var gate <-chan struct{}
	if f.hold != nil {
		gate = f.hold(n, command)
	}

	failErr := f.fail[command]
	var result any
	if failErr == nil {
		result, failErr = f.handle(command, args)
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if failErr != nil {
		return failErr
	}
	if out == nil || result == nil {
		return nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// handle runs with f.mu held.
func (f *fakeAgent) handle(command string, args agentrpc.Args) (any, error) {
	switch command {
	case agentrpc.CmdGetInputCount:
		return f.count, nil
	case agentrpc.CmdGetData:
		switch args[agentrpc.ArgData] {
		case agentrpc.DataForceInterval:
			return f.interval, nil
		case agentrpc.DataRobotInput:
			return f.lastInput, nil
		}
		return nil, agentrpc.NewRemoteError(command, &agentrpc.RemoteError{Code: agentrpc.CodeUnknownData, Message: "unknown data"})
	case agentrpc.CmdGetState:
		return f.toggles[args[agentrpc.ArgData].(string)], nil
	case agentrpc.CmdGetShutdownClock:
		return f.hour, nil
	case agentrpc.CmdGetShutdownState:
		return f.hour != agentrpc.StopSentinel, nil
	case agentrpc.CmdSetShutdown:
		f.hour = args[agentrpc.ArgHour].(string)
		return nil, nil
	case agentrpc.CmdSetForceInterval:
		f.interval = args[agentrpc.ArgInterval].(string)
		return nil, nil
	case agentrpc.CmdSetRegistryState:
		f.toggles[args[agentrpc.ArgData].(string)] = args[agentrpc.ArgWantedStatus].(bool)
		return nil, nil
	}
	return nil, agentrpc.NewRemoteError(command, &agentrpc.RemoteError{Code: agentrpc.CodeUnknownCommand, Message: "unknown command"})
}

func (f *fakeAgent) callsFor(command string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []call
	for _, c := range f.calls {
		if c.Command == command {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAgent) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAgent) resetCalls() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

func (f *fakeAgent) set(fn func(f *fakeAgent)) {
	f.mu.Lock()
	fn(f)
	f.mu.Unlock()
}

func newTestPanel(agent *fakeAgent) (*Panel, *Board) {
	board := NewBoard()
	opts := DefaultOptions()
	opts.RefreshDelay = 0
	return New(agent, board, opts), board
}

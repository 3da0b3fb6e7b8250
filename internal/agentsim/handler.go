package agentsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/logging"
)

// toggleSettings maps the toggle names used on the wire to stored settings.
var toggleSettings = map[string]string{
	"logging":     SettingLogStatistics,
	"maintenance": SettingStartMaintenance,
	"startup":     SettingStartWithWindows,
}

// commandError is a refusal carrying an agentrpc error code.
type commandError struct {
	code    string
	message string
}

func (e *commandError) Error() string { return e.message }

func refuse(code, format string, args ...any) error {
	return &commandError{code: code, message: fmt.Sprintf(format, args...)}
}

// Handler answers agent commands from a Store.
type Handler struct {
	store Store
}

// NewHandler creates a handler backed by store.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Store returns the backing store.
func (h *Handler) Store() Store { return h.store }

// Handle executes req and returns its response. It never returns nil.
func (h *Handler) Handle(ctx context.Context, req *agentrpc.Request) *agentrpc.Response {
	value, err := h.dispatch(ctx, req)
	if err != nil {
		code := agentrpc.CodeInternal
		var ce *commandError
		if errors.As(err, &ce) {
			code = ce.code
		}
		logging.Warn("Command refused",
			zap.String("command", req.Command),
			zap.String("code", code),
			zap.Error(err),
		)
		return agentrpc.NewErrorResponse(req, code, err.Error())
	}

	resp, err := agentrpc.NewResult(req, value)
	if err != nil {
		return agentrpc.NewErrorResponse(req, agentrpc.CodeInternal, err.Error())
	}
	return resp
}

// Invoke makes the handler an in-process agentrpc.Invoker, for running the
// panel without a network hop. Results still travel as JSON.
func (h *Handler) Invoke(ctx context.Context, command string, args agentrpc.Args, out any) error {
	if err := ctx.Err(); err != nil {
		return agentrpc.ClassifyNetworkError(command, err)
	}

	resp := h.Handle(ctx, agentrpc.NewRequest(command, args))
	if resp.Error != nil {
		return agentrpc.NewRemoteError(command, resp.Error)
	}
	if out == nil {
		return nil
	}
	if len(resp.Result) == 0 {
		return agentrpc.NewParseError(command, "response carried no result", nil)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return agentrpc.NewParseError(command, "cannot decode result", err)
	}
	return nil
}

// Close satisfies agentrpc.Client; the store is owned by the caller.
func (h *Handler) Close() error { return nil }

func (h *Handler) dispatch(ctx context.Context, req *agentrpc.Request) (any, error) {
	switch req.Command {
	case agentrpc.CmdGetInputCount:
		return h.inputCount(ctx)

	case agentrpc.CmdGetData:
		name, err := stringArg(req.Args, agentrpc.ArgData)
		if err != nil {
			return nil, err
		}
		switch name {
		case agentrpc.DataForceInterval:
			return h.store.Get(ctx, SettingForceInterval)
		case agentrpc.DataRobotInput:
			return h.store.Get(ctx, SettingLastRobotInput)
		default:
			return nil, refuse(agentrpc.CodeUnknownData, "unknown data %q", name)
		}

	case agentrpc.CmdGetState:
		setting, err := toggleArg(req.Args)
		if err != nil {
			return nil, err
		}
		value, err := h.store.Get(ctx, setting)
		if err != nil {
			return nil, err
		}
		return value == StateEnabled, nil

	case agentrpc.CmdGetShutdownClock:
		return h.store.Get(ctx, SettingShutdownTime)

	case agentrpc.CmdGetShutdownState:
		hour, err := h.store.Get(ctx, SettingShutdownTime)
		if err != nil {
			return nil, err
		}
		return hour != agentrpc.StopSentinel, nil

	case agentrpc.CmdSetShutdown:
		hour, err := stringArg(req.Args, agentrpc.ArgHour)
		if err != nil {
			return nil, err
		}
		hour = strings.TrimSpace(hour)
		if hour == "" {
			return nil, refuse(agentrpc.CodeBadArgs, "hour must not be empty")
		}
		return nil, h.store.Set(ctx, SettingShutdownTime, hour)

	case agentrpc.CmdSetForceInterval:
		raw, err := stringArg(req.Args, agentrpc.ArgInterval)
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return nil, refuse(agentrpc.CodeBadArgs, "interval %q is not a positive number of seconds", raw)
		}
		return nil, h.store.Set(ctx, SettingForceInterval, strconv.Itoa(n))

	case agentrpc.CmdSetRegistryState:
		setting, err := toggleArg(req.Args)
		if err != nil {
			return nil, err
		}
		wanted, ok := req.Args[agentrpc.ArgWantedStatus].(bool)
		if !ok {
			return nil, refuse(agentrpc.CodeBadArgs, "%s must be a boolean", agentrpc.ArgWantedStatus)
		}
		value := StateDisabled
		if wanted {
			value = StateEnabled
		}
		return nil, h.store.Set(ctx, setting, value)

	default:
		return nil, refuse(agentrpc.CodeUnknownCommand, "unknown command %q", req.Command)
	}
}

// inputCount reports "Disabled" while input logging is off.
func (h *Handler) inputCount(ctx context.Context) (string, error) {
	state, err := h.store.Get(ctx, SettingLogStatistics)
	if err != nil {
		return "", err
	}
	if state == StateDisabled {
		return StateDisabled, nil
	}
	n, err := h.store.InputCount(ctx)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}

func stringArg(args agentrpc.Args, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", refuse(agentrpc.CodeBadArgs, "missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", refuse(agentrpc.CodeBadArgs, "argument %q must be a string", key)
	}
	return s, nil
}

func toggleArg(args agentrpc.Args) (string, error) {
	name, err := stringArg(args, agentrpc.ArgData)
	if err != nil {
		return "", err
	}
	setting, ok := toggleSettings[name]
	if !ok {
		return "", refuse(agentrpc.CodeUnknownData, "unknown toggle %q", name)
	}
	return setting, nil
}

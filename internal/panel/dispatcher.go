package panel

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/logging"
)

// Dispatcher owns the write paths. Each user action is validated locally,
// sent as exactly one write, and its outcome reflected into the field that
// triggered it. Writes are never retried or queued.
type Dispatcher struct {
	inv             agentrpc.Invoker
	binding         Binding
	seq             *sequencer
	mirror          *Mirror
	defaultShutdown string
	minInterval     int
}

// SetToggle asks the agent to set t to desired. The control only changes
// once the agent has accepted the write; a failed write leaves it
// indeterminate until the next refresh.
func (d *Dispatcher) SetToggle(ctx context.Context, t Toggle, desired bool) error {
	id := t.Field()
	if id == "" {
		return fmt.Errorf("unknown toggle %q", t)
	}

	err := d.inv.Invoke(ctx, agentrpc.CmdSetRegistryState, agentrpc.Args{
		agentrpc.ArgData:         string(t),
		agentrpc.ArgWantedStatus: desired,
	}, nil)
	if err != nil {
		logging.Warn("Toggle write failed",
			zap.String("toggle", string(t)),
			zap.Bool("desired", desired),
			zap.Error(err),
		)
		d.binding.Update(id, func(st *FieldState) {
			st.Status = StatusIndeterminate
			st.Err = err
		})
		return fmt.Errorf("set %s: %w", t, err)
	}

	d.seq.claim(id, func(st *FieldState) {
		st.Checked = desired
		st.Value = toggleText(desired)
		st.Status = StatusReady
		st.Err = nil
	})
	return nil
}

// EditShutdownTime handles a change of the time field: the new time is
// scheduled and the schedule marked enabled.
func (d *Dispatcher) EditShutdownTime(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if err := ValidateShutdownTime(value); err != nil {
		d.binding.Update(FieldShutdownTime, func(st *FieldState) {
			st.Status = StatusError
			st.Err = err
		})
		return err
	}
	return d.SetSchedule(ctx, value)
}

// ToggleShutdown handles a click on the schedule checkbox. Enabling reuses
// the time field when it holds a real time and falls back to the default
// time otherwise; disabling sends STOP.
func (d *Dispatcher) ToggleShutdown(ctx context.Context, enabled bool) error {
	return d.ToggleShutdownAt(ctx, enabled, d.binding.Field(FieldShutdownTime).Value)
}

// ToggleShutdownAt is ToggleShutdown for a view whose time control may hold
// text not yet sent to the agent. Enabling schedules current when it is a
// real time.
func (d *Dispatcher) ToggleShutdownAt(ctx context.Context, enabled bool, current string) error {
	if !enabled {
		return d.SetSchedule(ctx, agentrpc.StopSentinel)
	}

	hour := strings.TrimSpace(current)
	if ValidateShutdownTime(hour) != nil {
		hour = d.defaultShutdown
	}
	return d.SetSchedule(ctx, hour)
}

// SetSchedule sends an HH:MM time or STOP to the agent. Both schedule
// fields are updated before the write is sent; if the write fails they are
// restored to their previous values and marked as failed, unless a newer
// read or write has replaced them in the meantime.
func (d *Dispatcher) SetSchedule(ctx context.Context, hour string) error {
	if err := ValidateScheduleRequest(hour); err != nil {
		return err
	}
	enabled := hour != agentrpc.StopSentinel

	prevTime := d.binding.Field(FieldShutdownTime)
	prevEnabled := d.binding.Field(FieldShutdownEnabled)

	timeSeq := d.seq.claim(FieldShutdownTime, func(st *FieldState) {
		st.Value = hour
		st.Status = StatusReady
		st.Err = nil
	})
	enabledSeq := d.seq.claim(FieldShutdownEnabled, func(st *FieldState) {
		st.Checked = enabled
		st.Value = toggleText(enabled)
		st.Status = StatusReady
		st.Err = nil
	})

	err := d.inv.Invoke(ctx, agentrpc.CmdSetShutdown, agentrpc.Args{agentrpc.ArgHour: hour}, nil)
	if err == nil {
		return nil
	}

	logging.Warn("Schedule write failed, restoring previous schedule",
		zap.String("hour", hour),
		zap.String("previous_hour", prevTime.Value),
		zap.Error(err),
	)
	d.seq.current(FieldShutdownTime, timeSeq, func(st *FieldState) {
		st.Value = prevTime.Value
		st.Status = StatusError
		st.Err = err
	})
	d.seq.current(FieldShutdownEnabled, enabledSeq, func(st *FieldState) {
		st.Checked = prevEnabled.Checked
		st.Value = prevEnabled.Value
		st.Status = StatusError
		st.Err = err
	})
	return fmt.Errorf("set schedule %s: %w", hour, err)
}

// SubmitInterval validates and sends a new polling interval. It is the one
// submit path for both the confirm key and the submit control.
//
// Rejected input never reaches the agent: the entry is cleared and shows
// the invalid placeholder. Accepted input is written, the entry cleared
// with the success placeholder, and every field refreshed.
//
// The agent receives the parsed value in canonical decimal form, so " 0120"
// is sent as "120".
func (d *Dispatcher) SubmitInterval(ctx context.Context, raw string) error {
	n, err := ValidateInterval(raw, d.minInterval)
	if err != nil {
		d.binding.Update(FieldIntervalInput, func(st *FieldState) {
			st.Value = ""
			st.Placeholder = InvalidPlaceholder
			st.Status = StatusError
			st.Err = err
		})
		return err
	}

	interval := strconv.Itoa(n)
	err = d.inv.Invoke(ctx, agentrpc.CmdSetForceInterval, agentrpc.Args{agentrpc.ArgInterval: interval}, nil)
	if err != nil {
		logging.Warn("Interval write failed",
			zap.String("interval", interval),
			zap.Error(err),
		)
		d.binding.Update(FieldIntervalInput, func(st *FieldState) {
			st.Value = ""
			st.Placeholder = FailedPlaceholder
			st.Status = StatusError
			st.Err = err
		})
		return fmt.Errorf("set interval %s: %w", interval, err)
	}

	d.binding.Update(FieldIntervalInput, func(st *FieldState) {
		st.Value = ""
		st.Placeholder = SuccessPlaceholder
		st.Status = StatusReady
		st.Err = nil
	})

	return d.mirror.RefreshAll(ctx)
}

package panel

import (
	"context"
	"time"

	"github.com/muurk/smartidler/internal/agentrpc"
)

// Options tunes the panel.
type Options struct {
	// RefreshDelay is the pause after a field shows "Loading..." and before
	// its read is issued.
	RefreshDelay time.Duration

	// MinimumInterval is the lowest accepted polling interval. Values below
	// MinimumInterval are raised to it.
	MinimumInterval int

	// DefaultShutdownTime is scheduled when the schedule is enabled without
	// a usable time.
	DefaultShutdownTime string
}

// DefaultOptions returns the stock panel settings.
func DefaultOptions() Options {
	return Options{
		RefreshDelay:        DefaultRefreshDelay,
		MinimumInterval:     MinimumInterval,
		DefaultShutdownTime: DefaultShutdownTime,
	}
}

// Panel wires a Mirror and a Dispatcher to one Binding.
type Panel struct {
	binding    Binding
	mirror     *Mirror
	dispatcher *Dispatcher
}

// New builds a panel reading from and writing to the agent through inv.
func New(inv agentrpc.Invoker, binding Binding, opts Options) *Panel {
	if opts.MinimumInterval < MinimumInterval {
		opts.MinimumInterval = MinimumInterval
	}
	if ValidateShutdownTime(opts.DefaultShutdownTime) != nil {
		opts.DefaultShutdownTime = DefaultShutdownTime
	}
	if opts.RefreshDelay < 0 {
		opts.RefreshDelay = 0
	}

	seq := newSequencer(binding)
	mirror := &Mirror{inv: inv, seq: seq, delay: opts.RefreshDelay}

	return &Panel{
		binding: binding,
		mirror:  mirror,
		dispatcher: &Dispatcher{
			inv:             inv,
			binding:         binding,
			seq:             seq,
			mirror:          mirror,
			defaultShutdown: opts.DefaultShutdownTime,
			minInterval:     opts.MinimumInterval,
		},
	}
}

// Binding returns the field set the panel writes to.
func (p *Panel) Binding() Binding { return p.binding }

// Mirror returns the panel's read side.
func (p *Panel) Mirror() *Mirror { return p.mirror }

// Dispatcher returns the panel's write side.
func (p *Panel) Dispatcher() *Dispatcher { return p.dispatcher }

// Load populates every field from the agent.
func (p *Panel) Load(ctx context.Context) error {
	return p.mirror.RefreshAll(ctx)
}

// Refresh re-reads every field; the manual refresh control.
func (p *Panel) Refresh(ctx context.Context) error {
	return p.mirror.RefreshAll(ctx)
}

// SetToggle writes one of the agent's toggles. The toggle field changes
// only after the agent accepts.
func (p *Panel) SetToggle(ctx context.Context, t Toggle, desired bool) error {
	return p.dispatcher.SetToggle(ctx, t, desired)
}

// EditShutdownTime schedules the shutdown at value, an HH:MM time. Invalid
// text is rejected without contacting the agent.
func (p *Panel) EditShutdownTime(ctx context.Context, value string) error {
	return p.dispatcher.EditShutdownTime(ctx, value)
}

// ToggleShutdown enables or disables the scheduled shutdown. Enabling uses
// the current time field, or the default time when it holds none.
func (p *Panel) ToggleShutdown(ctx context.Context, enabled bool) error {
	return p.dispatcher.ToggleShutdown(ctx, enabled)
}

// ToggleShutdownAt is ToggleShutdown using current as the time field's
// contents, for views that hold unsent edits.
func (p *Panel) ToggleShutdownAt(ctx context.Context, enabled bool, current string) error {
	return p.dispatcher.ToggleShutdownAt(ctx, enabled, current)
}

// SetSchedule sends an HH:MM time or STOP and keeps both schedule fields
// consistent with it.
func (p *Panel) SetSchedule(ctx context.Context, hour string) error {
	return p.dispatcher.SetSchedule(ctx, hour)
}

// SubmitInterval validates raw and writes it as the polling interval, then
// refreshes every field.
func (p *Panel) SubmitInterval(ctx context.Context, raw string) error {
	return p.dispatcher.SubmitInterval(ctx, raw)
}

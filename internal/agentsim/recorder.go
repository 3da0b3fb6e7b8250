package agentsim

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/smartidler/internal/logging"
)

// Recorder stands in for the robot: every ForceInterval it logs an input,
// as long as input logging is enabled.
type Recorder struct {
	store Store

	// Unit is the length of one interval step; seconds unless a test
	// wants it faster.
	Unit time.Duration

	now func() time.Time
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, Unit: time.Second, now: time.Now}
}

// Run records inputs until ctx is done. The interval is re-read after every
// input, so a new ForceInterval takes effect on the next cycle.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		timer := time.NewTimer(r.interval(ctx))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := r.Tick(ctx); err != nil && ctx.Err() == nil {
			logging.Warn("Failed to record input", zap.Error(err))
		}
	}
}

// Tick records one input if logging is enabled and reports whether it did.
func (r *Recorder) Tick(ctx context.Context) (bool, error) {
	state, err := r.store.Get(ctx, SettingLogStatistics)
	if err != nil {
		return false, err
	}
	if state != StateEnabled {
		return false, nil
	}

	interval, err := r.store.Get(ctx, SettingForceInterval)
	if err != nil {
		return false, err
	}
	if err := r.store.RecordInput(ctx, r.now(), interval); err != nil {
		return false, err
	}
	logging.Debug("Recorded input", zap.String("interval", interval))
	return true, nil
}

func (r *Recorder) interval(ctx context.Context) time.Duration {
	n := DefaultForceInterval
	if raw, err := r.store.Get(ctx, SettingForceInterval); err == nil {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			n = v
		}
	}
	return time.Duration(n) * r.Unit
}

package panel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/logging"
)

// DefaultRefreshDelay is the pause between showing the loading placeholder
// and issuing the read, so the placeholder is visible on fast agents.
const DefaultRefreshDelay = 250 * time.Millisecond

// sequencer orders completions per field. Every read is issued a number;
// a completion is applied only if nothing newer has already been applied.
// Writes claim the next number when they land, which retires any read that
// was in flight before them.
type sequencer struct {
	mu      sync.Mutex
	binding Binding
	issued  map[FieldID]uint64
	applied map[FieldID]uint64
}

func newSequencer(binding Binding) *sequencer {
	return &sequencer{
		binding: binding,
		issued:  make(map[FieldID]uint64),
		applied: make(map[FieldID]uint64),
	}
}

// begin issues a read number for id and runs fn against the field.
func (s *sequencer) begin(id FieldID, fn func(*FieldState)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued[id]++
	seq := s.issued[id]
	s.binding.Update(id, fn)
	return seq
}

// finish applies a read completion unless a newer one already landed.
// superseded tells fn whether a newer read is still in flight.
func (s *sequencer) finish(id FieldID, seq uint64, fn func(st *FieldState, superseded bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq < s.applied[id] {
		return false
	}
	s.applied[id] = seq
	superseded := seq < s.issued[id]
	s.binding.Update(id, func(st *FieldState) { fn(st, superseded) })
	return true
}

// claim applies a write result as the newest state of id.
func (s *sequencer) claim(id FieldID, fn func(*FieldState)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.issued[id]++
	seq := s.issued[id]
	s.applied[id] = seq
	s.binding.Update(id, fn)
	return seq
}

// current runs fn only if seq is still the newest state of id.
func (s *sequencer) current(id FieldID, seq uint64, fn func(*FieldState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applied[id] != seq || s.issued[id] != seq {
		return false
	}
	s.binding.Update(id, fn)
	return true
}

// Mirror keeps the mirrored fields in step with the agent.
type Mirror struct {
	inv   agentrpc.Invoker
	seq   *sequencer
	delay time.Duration
}

// Refresh re-reads one field. The field shows the loading placeholder until
// the read lands; on failure the previous value is kept and the field is
// marked as failed.
func (m *Mirror) Refresh(ctx context.Context, id FieldID) error {
	d, ok := DescriptorFor(id)
	if !ok {
		return fmt.Errorf("field %q has no read command", id)
	}

	seq := m.seq.begin(id, func(st *FieldState) {
		st.Status = StatusLoading
	})

	err := m.read(ctx, d, seq)
	logging.LogFieldRefresh(string(id), err)
	return err
}

func (m *Mirror) read(ctx context.Context, d Descriptor, seq uint64) error {
	if err := sleep(ctx, m.delay); err != nil {
		m.fail(d.ID, seq, err)
		return err
	}

	var apply func(*FieldState)
	var err error

	switch d.Kind {
	case KindToggle:
		var on bool
		err = m.inv.Invoke(ctx, d.Command, d.Args(), &on)
		apply = func(st *FieldState) {
			st.Checked = on
			st.Value = toggleText(on)
		}
	default:
		var text string
		err = m.inv.Invoke(ctx, d.Command, d.Args(), &text)
		apply = func(st *FieldState) {
			st.Value = text
		}
	}

	if err != nil {
		m.fail(d.ID, seq, err)
		return fmt.Errorf("refresh %s: %w", d.ID, err)
	}

	m.seq.finish(d.ID, seq, func(st *FieldState, superseded bool) {
		apply(st)
		st.Err = nil
		if !superseded {
			st.Status = StatusReady
		}
	})
	return nil
}

func (m *Mirror) fail(id FieldID, seq uint64, err error) {
	m.seq.finish(id, seq, func(st *FieldState, superseded bool) {
		if superseded {
			return
		}
		st.Status = StatusError
		st.Err = err
	})
}

// RefreshAll re-reads every mirrored field concurrently and waits for all
// of them. One field failing never stops the others; the first error is
// returned once every read has settled.
func (m *Mirror) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	for _, d := range descriptors {
		id := d.ID
		g.Go(func() error {
			return m.Refresh(ctx, id)
		})
	}
	return g.Wait()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/smartidler/internal/agentrpc"
	"github.com/muurk/smartidler/internal/logging"
)

func TestLoadPopulatesEveryField(t *testing.T) {
	agent := newFakeAgent()
	agent.set(func(f *fakeAgent) {
		f.toggles[string(ToggleMaintenance)] = true
		f.hour = "18:30"
	})
	p, board := newTestPanel(agent)

	require.NoError(t, p.Load(context.Background()))

	want := map[FieldID]string{
		FieldInputCount:      "3",
		FieldCurrentInterval: "60",
		FieldLastInput:       "12:00:00",
		FieldLogging:         DisabledText,
		FieldMaintenance:     EnabledText,
		FieldStartup:         DisabledText,
		FieldShutdownTime:    "18:30",
		FieldShutdownEnabled: EnabledText,
	}
	for id, value := range want {
		st := board.Field(id)
		assert.Equal(t, StatusReady, st.Status, "field %s", id)
		assert.Equal(t, value, st.Display(), "field %s", id)
	}
	assert.True(t, board.Field(FieldMaintenance).Checked)
	assert.True(t, board.Field(FieldShutdownEnabled).Checked)
	assert.False(t, board.Field(FieldLogging).Checked)

	// One read per descriptor, with the fixed argument where there is one
	assert.Equal(t, len(Descriptors()), agent.callCount())
	for _, d := range Descriptors() {
		found := false
		for _, c := range agent.callsFor(d.Command) {
			if d.Arg == "" || c.Args[agentrpc.ArgData] == d.Arg {
				found = true
			}
		}
		assert.True(t, found, "no read issued for %s", d.ID)
	}
}

func TestRefreshShowsLoadingPlaceholder(t *testing.T) {
	agent := newFakeAgent()
	gate := make(chan struct{})
	agent.hold = func(n int, command string) <-chan struct{} { return gate }
	p, board := newTestPanel(agent)

	done := make(chan error, 1)
	go func() { done <- p.Mirror().Refresh(context.Background(), FieldInputCount) }()

	require.Eventually(t, func() bool { return agent.callCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, LoadingText, board.Field(FieldInputCount).Display())

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, "3", board.Field(FieldInputCount).Display())
}

func TestRefreshDelayIsApplied(t *testing.T) {
	agent := newFakeAgent()
	board := NewBoard()
	p := New(agent, board, Options{RefreshDelay: 30 * time.Millisecond})

	start := time.Now()
	require.NoError(t, p.Mirror().Refresh(context.Background(), FieldLastInput))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRefreshUnknownField(t *testing.T) {
	p, _ := newTestPanel(newFakeAgent())
	err := p.Mirror().Refresh(context.Background(), FieldIntervalInput)
	assert.Error(t, err)
}

func TestFailingFieldKeepsPriorValue(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	require.NoError(t, p.Load(context.Background()))

	boom := errors.New("agent unavailable")
	agent.set(func(f *fakeAgent) {
		f.fail[agentrpc.CmdGetInputCount] = boom
		f.lastInput = "12:05:00"
	})

	err := p.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	count := board.Field(FieldInputCount)
	assert.Equal(t, StatusError, count.Status)
	assert.Equal(t, "3", count.Value)
	assert.Equal(t, "3", count.Display())
	assert.ErrorIs(t, count.Err, boom)

	// The rest of the batch still landed
	last := board.Field(FieldLastInput)
	assert.Equal(t, StatusReady, last.Status)
	assert.Equal(t, "12:05:00", last.Value)
}

func TestFailedFirstReadShowsUnavailable(t *testing.T) {
	agent := newFakeAgent()
	agent.fail[agentrpc.CmdGetShutdownClock] = errors.New("down")
	p, board := newTestPanel(agent)

	require.Error(t, p.Load(context.Background()))
	assert.Equal(t, UnavailableText, board.Field(FieldShutdownTime).Display())
}

func TestSlowFieldDoesNotBlockOthers(t *testing.T) {
	agent := newFakeAgent()
	gate := make(chan struct{})
	agent.hold = func(n int, command string) <-chan struct{} {
		if command == agentrpc.CmdGetShutdownClock {
			return gate
		}
		return nil
	}
	p, board := newTestPanel(agent)

	done := make(chan error, 1)
	go func() { done <- p.Load(context.Background()) }()

	require.Eventually(t, func() bool {
		for _, d := range Descriptors() {
			if d.ID == FieldShutdownTime {
				continue
			}
			if board.Field(d.ID).Status != StatusReady {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)
	assert.Equal(t, StatusLoading, board.Field(FieldShutdownTime).Status)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, StatusReady, board.Field(FieldShutdownTime).Status)
}

func TestRefreshAllTwiceLeavesNoFieldLoading(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Refresh(context.Background())
		}()
	}
	wg.Wait()

	for _, d := range Descriptors() {
		st := board.Field(d.ID)
		assert.NotEqual(t, StatusLoading, st.Status, "field %s left loading", d.ID)
		assert.NotEqual(t, LoadingText, st.Display(), "field %s left loading", d.ID)
		assert.NotEmpty(t, st.Display(), "field %s empty", d.ID)
	}
}

func TestOlderCompletionNeverOverwritesNewer(t *testing.T) {
	agent := newFakeAgent()
	firstPass := make(chan struct{})
	reads := len(Descriptors())
	agent.hold = func(n int, command string) <-chan struct{} {
		if n < reads {
			return firstPass
		}
		return nil
	}
	p, board := newTestPanel(agent)

	done := make(chan error, 1)
	go func() { done <- p.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return agent.callCount() == reads }, time.Second, time.Millisecond)

	// The first pass saw count=3; the second pass sees count=4 and lands first
	agent.set(func(f *fakeAgent) { f.count = "4" })
	require.NoError(t, p.Refresh(context.Background()))
	assert.Equal(t, "4", board.Field(FieldInputCount).Display())

	close(firstPass)
	require.NoError(t, <-done)

	count := board.Field(FieldInputCount)
	assert.Equal(t, "4", count.Value)
	assert.Equal(t, StatusReady, count.Status)
}

func TestOlderCompletionStaysLoadingWhileNewerInFlight(t *testing.T) {
	agent := newFakeAgent()
	firstPass := make(chan struct{})
	secondPass := make(chan struct{})
	reads := len(Descriptors())
	agent.hold = func(n int, command string) <-chan struct{} {
		if n < reads {
			return firstPass
		}
		return secondPass
	}
	p, board := newTestPanel(agent)

	first := make(chan error, 1)
	second := make(chan error, 1)
	go func() { first <- p.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return agent.callCount() == reads }, time.Second, time.Millisecond)
	go func() { second <- p.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return agent.callCount() == 2*reads }, time.Second, time.Millisecond)

	close(firstPass)
	require.NoError(t, <-first)

	// Value landed but the newer read is still pending
	count := board.Field(FieldInputCount)
	assert.Equal(t, "3", count.Value)
	assert.Equal(t, LoadingText, count.Display())

	close(secondPass)
	require.NoError(t, <-second)
	assert.Equal(t, StatusReady, board.Field(FieldInputCount).Status)
}

func TestCanceledRefreshMarksError(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Refresh(ctx)
	require.Error(t, err)
	for _, d := range Descriptors() {
		assert.Equal(t, StatusError, board.Field(d.ID).Status, "field %s", d.ID)
	}
	assert.Zero(t, agent.callCount())
}

func TestConcurrentRefreshWithDefaultLogger(t *testing.T) {
	logging.SetLogger(nil)

	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, p.Refresh(ctx))
		}()
	}
	wg.Wait()

	for id, st := range board.Snapshot() {
		assert.NotEqual(t, StatusLoading, st.Status, id)
	}
}

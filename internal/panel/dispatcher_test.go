package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/smartidler/internal/agentrpc"
)

func TestSetToggleThenReadReturnsDesired(t *testing.T) {
	for _, toggle := range Toggles() {
		for _, desired := range []bool{true, false} {
			t.Run(string(toggle), func(t *testing.T) {
				agent := newFakeAgent()
				agent.toggles[string(toggle)] = !desired
				p, board := newTestPanel(agent)
				ctx := context.Background()

				require.NoError(t, p.SetToggle(ctx, toggle, desired))
				assert.Equal(t, desired, board.Field(toggle.Field()).Checked)

				require.NoError(t, p.Mirror().Refresh(ctx, toggle.Field()))
				st := board.Field(toggle.Field())
				assert.Equal(t, desired, st.Checked)
				assert.Equal(t, StatusReady, st.Status)
			})
		}
	}
}

func TestStartupToggleWriteArguments(t *testing.T) {
	agent := newFakeAgent()
	p, _ := newTestPanel(agent)
	ctx := context.Background()

	require.NoError(t, p.SetToggle(ctx, ToggleStartup, true))
	require.NoError(t, p.SetToggle(ctx, ToggleStartup, false))

	writes := agent.callsFor(agentrpc.CmdSetRegistryState)
	require.Len(t, writes, 2)
	assert.Equal(t, agentrpc.Args{agentrpc.ArgData: "startup", agentrpc.ArgWantedStatus: true}, writes[0].Args)
	assert.Equal(t, agentrpc.Args{agentrpc.ArgData: "startup", agentrpc.ArgWantedStatus: false}, writes[1].Args)
}

func TestSetToggleFailureIsIndeterminate(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	boom := errors.New("registry locked")
	agent.set(func(f *fakeAgent) { f.fail[agentrpc.CmdSetRegistryState] = boom })

	err := p.SetToggle(ctx, ToggleLogging, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	st := board.Field(FieldLogging)
	assert.Equal(t, StatusIndeterminate, st.Status)
	assert.False(t, st.Checked, "failed write must not flip the control")
	assert.Len(t, agent.callsFor(agentrpc.CmdSetRegistryState), 1, "no automatic retry")

	// Next refresh reconciles
	agent.set(func(f *fakeAgent) { delete(f.fail, agentrpc.CmdSetRegistryState) })
	require.NoError(t, p.Mirror().Refresh(ctx, FieldLogging))
	assert.Equal(t, StatusReady, board.Field(FieldLogging).Status)
}

func TestSetToggleUnknown(t *testing.T) {
	agent := newFakeAgent()
	p, _ := newTestPanel(agent)

	require.Error(t, p.SetToggle(context.Background(), Toggle("turbo"), true))
	assert.Zero(t, agent.callCount())
}

func TestWriteRetiresInFlightRead(t *testing.T) {
	agent := newFakeAgent()
	gate := make(chan struct{})
	agent.hold = func(n int, command string) <-chan struct{} {
		if command == agentrpc.CmdGetState {
			return gate
		}
		return nil
	}
	p, board := newTestPanel(agent)
	ctx := context.Background()

	// Read starts while logging is still off
	done := make(chan error, 1)
	go func() { done <- p.Mirror().Refresh(ctx, FieldLogging) }()
	require.Eventually(t, func() bool { return len(agent.callsFor(agentrpc.CmdGetState)) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, p.SetToggle(ctx, ToggleLogging, true))

	close(gate)
	require.NoError(t, <-done)

	st := board.Field(FieldLogging)
	assert.True(t, st.Checked, "stale read overwrote a newer write")
	assert.Equal(t, StatusReady, st.Status)
}

func TestSubmitIntervalRejectsInvalidInput(t *testing.T) {
	inputs := []string{"", "   ", "abc", "59", "45", "0", "-120", "60.5", "1e3", "12O"}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			agent := newFakeAgent()
			p, board := newTestPanel(agent)
			board.Update(FieldIntervalInput, func(st *FieldState) { st.Value = raw })

			err := p.SubmitInterval(context.Background(), raw)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))

			assert.Empty(t, agent.callsFor(agentrpc.CmdSetForceInterval))
			assert.Zero(t, agent.callCount(), "no remote call for invalid input")

			st := board.Field(FieldIntervalInput)
			assert.Equal(t, "", st.Value)
			assert.Equal(t, InvalidPlaceholder, st.Placeholder)
		})
	}
}

func TestSubmitIntervalAccepted(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"60", "60"},
		{"120", "120"},
		{" 90 ", "90"},
		{" 0120", "120"},
		{"3600", "3600"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			agent := newFakeAgent()
			p, board := newTestPanel(agent)

			require.NoError(t, p.SubmitInterval(context.Background(), tt.raw))

			writes := agent.callsFor(agentrpc.CmdSetForceInterval)
			require.Len(t, writes, 1)
			assert.Equal(t, tt.want, writes[0].Args[agentrpc.ArgInterval])

			st := board.Field(FieldIntervalInput)
			assert.Equal(t, "", st.Value)
			assert.Equal(t, SuccessPlaceholder, st.Placeholder)

			// Full refresh followed the write
			assert.Equal(t, 1+len(Descriptors()), agent.callCount())
			assert.Equal(t, tt.want, board.Field(FieldCurrentInterval).Display())
		})
	}
}

func TestSubmitIntervalRemoteFailure(t *testing.T) {
	agent := newFakeAgent()
	agent.fail[agentrpc.CmdSetForceInterval] = errors.New("write refused")
	p, board := newTestPanel(agent)

	err := p.SubmitInterval(context.Background(), "120")
	require.Error(t, err)
	assert.False(t, IsValidationError(err))

	st := board.Field(FieldIntervalInput)
	assert.Equal(t, "", st.Value)
	assert.Equal(t, FailedPlaceholder, st.Placeholder)
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, 1, agent.callCount(), "no refresh after a failed write")
}

func TestSubmitIntervalRespectsHigherMinimum(t *testing.T) {
	agent := newFakeAgent()
	board := NewBoard()
	p := New(agent, board, Options{MinimumInterval: 300})

	require.Error(t, p.SubmitInterval(context.Background(), "120"))
	assert.Empty(t, agent.callsFor(agentrpc.CmdSetForceInterval))
}

func TestIntervalScenario(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))
	agent.resetCalls()

	// 45 is rejected locally
	require.Error(t, p.SubmitInterval(ctx, "45"))
	st := board.Field(FieldIntervalInput)
	assert.Equal(t, "", st.Value)
	assert.Equal(t, InvalidPlaceholder, st.Placeholder)
	assert.Zero(t, agent.callCount())

	// 120 is written and the status rows re-read
	require.NoError(t, p.SubmitInterval(ctx, "120"))
	writes := agent.callsFor(agentrpc.CmdSetForceInterval)
	require.Len(t, writes, 1)
	assert.Equal(t, "120", writes[0].Args[agentrpc.ArgInterval])
	assert.Equal(t, SuccessPlaceholder, board.Field(FieldIntervalInput).Placeholder)
	assert.Len(t, agent.callsFor(agentrpc.CmdGetInputCount), 1)
	assert.Len(t, agent.callsFor(agentrpc.CmdGetData), 2)
	assert.Equal(t, "120", board.Field(FieldCurrentInterval).Display())
}

func assertScheduleConsistent(t *testing.T, board *Board, agent *fakeAgent) {
	t.Helper()

	timeValue := board.Field(FieldShutdownTime).Value
	enabled := board.Field(FieldShutdownEnabled).Checked
	assert.True(t, IsScheduleConsistent(timeValue, enabled), "time=%q enabled=%v", timeValue, enabled)

	agent.mu.Lock()
	hour := agent.hour
	agent.mu.Unlock()
	assert.Equal(t, hour, timeValue, "panel and agent diverged")
}

func TestScheduleStaysConsistent(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))
	assertScheduleConsistent(t, board, agent)

	steps := []struct {
		name string
		run  func() error
	}{
		{"edit time", func() error { return p.EditShutdownTime(ctx, "07:30") }},
		{"disable", func() error { return p.ToggleShutdown(ctx, false) }},
		{"enable", func() error { return p.ToggleShutdown(ctx, true) }},
		{"set stop", func() error { return p.SetSchedule(ctx, agentrpc.StopSentinel) }},
		{"set time", func() error { return p.SetSchedule(ctx, "23:59") }},
		{"enable while enabled", func() error { return p.ToggleShutdown(ctx, true) }},
		{"edit midnight", func() error { return p.EditShutdownTime(ctx, "00:00") }},
	}

	for _, step := range steps {
		require.NoError(t, step.run(), step.name)
		assertScheduleConsistent(t, board, agent)

		// and it survives a re-read
		require.NoError(t, p.Refresh(ctx), step.name)
		assertScheduleConsistent(t, board, agent)
	}
}

func TestEditShutdownTimeEnablesSchedule(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	require.NoError(t, p.EditShutdownTime(ctx, "21:15"))

	writes := agent.callsFor(agentrpc.CmdSetShutdown)
	require.Len(t, writes, 1, "one edit, one write")
	assert.Equal(t, "21:15", writes[0].Args[agentrpc.ArgHour])
	assert.True(t, board.Field(FieldShutdownEnabled).Checked)
	assert.Equal(t, "21:15", board.Field(FieldShutdownTime).Value)
}

func TestDisableThenEnableRestoresDefaultTime(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	require.NoError(t, p.EditShutdownTime(ctx, "08:15"))
	require.NoError(t, p.ToggleShutdown(ctx, false))
	assert.Equal(t, agentrpc.StopSentinel, board.Field(FieldShutdownTime).Value)

	require.NoError(t, p.ToggleShutdown(ctx, true))
	assert.Equal(t, DefaultShutdownTime, board.Field(FieldShutdownTime).Value)
	assert.True(t, board.Field(FieldShutdownEnabled).Checked)

	writes := agent.callsFor(agentrpc.CmdSetShutdown)
	require.Len(t, writes, 3)
	assert.Equal(t, agentrpc.StopSentinel, writes[1].Args[agentrpc.ArgHour])
	assert.Equal(t, DefaultShutdownTime, writes[2].Args[agentrpc.ArgHour])
}

func TestEnableFromEmptyUsesConfiguredDefault(t *testing.T) {
	agent := newFakeAgent()
	board := NewBoard()
	p := New(agent, board, Options{DefaultShutdownTime: "22:00"})

	// Nothing loaded yet, the time field is empty
	require.NoError(t, p.ToggleShutdown(context.Background(), true))
	assert.Equal(t, "22:00", board.Field(FieldShutdownTime).Value)
}

func TestEnableKeepsTypedTime(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	board.Update(FieldShutdownTime, func(st *FieldState) { st.Value = "21:00" })

	require.NoError(t, p.ToggleShutdown(context.Background(), true))
	writes := agent.callsFor(agentrpc.CmdSetShutdown)
	require.Len(t, writes, 1)
	assert.Equal(t, "21:00", writes[0].Args[agentrpc.ArgHour])
}

func TestEnableUsesUnsentTimeFromView(t *testing.T) {
	agent := newFakeAgent()
	p, board := newTestPanel(agent)
	ctx := context.Background()
	require.NoError(t, p.ToggleShutdown(ctx, false))

	// The view still shows STOP on the board but the user typed a time
	require.NoError(t, p.ToggleShutdownAt(ctx, true, " 06:45 "))
	assert.Equal(t, "06:45", board.Field(FieldShutdownTime).Value)

	require.NoError(t, p.ToggleShutdownAt(ctx, false, "06:45"))
	require.NoError(t, p.ToggleShutdownAt(ctx, true, "later"))
	assert.Equal(t, DefaultShutdownTime, board.Field(FieldShutdownTime).Value)

	writes := agent.callsFor(agentrpc.CmdSetShutdown)
	require.Len(t, writes, 4)
	assert.Equal(t, "06:45", writes[1].Args[agentrpc.ArgHour])
	assert.Equal(t, agentrpc.StopSentinel, writes[2].Args[agentrpc.ArgHour])
	assert.Equal(t, DefaultShutdownTime, writes[3].Args[agentrpc.ArgHour])
}

func TestEditShutdownTimeRejectsInvalid(t *testing.T) {
	for _, value := range []string{"", "7:30", "24:00", "12:60", "STOP", "noon", "12:30:00"} {
		t.Run(value, func(t *testing.T) {
			agent := newFakeAgent()
			p, _ := newTestPanel(agent)

			err := p.EditShutdownTime(context.Background(), value)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Empty(t, agent.callsFor(agentrpc.CmdSetShutdown))
		})
	}
}

func TestSetScheduleFailureRestoresPreviousPair(t *testing.T) {
	agent := newFakeAgent()
	agent.hour = "08:00"
	p, board := newTestPanel(agent)
	ctx := context.Background()
	require.NoError(t, p.Load(ctx))

	agent.set(func(f *fakeAgent) { f.fail[agentrpc.CmdSetShutdown] = errors.New("clock busy") })

	require.Error(t, p.EditShutdownTime(ctx, "09:00"))

	timeField := board.Field(FieldShutdownTime)
	enabledField := board.Field(FieldShutdownEnabled)
	assert.Equal(t, "08:00", timeField.Value)
	assert.True(t, enabledField.Checked)
	assert.Equal(t, StatusError, timeField.Status)
	assert.Equal(t, StatusError, enabledField.Status)
	assert.True(t, IsScheduleConsistent(timeField.Value, enabledField.Checked))

	require.Error(t, p.ToggleShutdown(ctx, false))
	assert.Equal(t, "08:00", board.Field(FieldShutdownTime).Value)
	assert.True(t, board.Field(FieldShutdownEnabled).Checked)
}

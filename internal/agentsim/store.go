package agentsim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/muurk/smartidler/internal/agentrpc"
)

// Setting names, as the agent keeps them in its settings store.
const (
	SettingForceInterval    = "ForceInterval"
	SettingLastRobotInput   = "LastRobotInput"
	SettingLogStatistics    = "LogStatistics"
	SettingStartMaintenance = "StartMaintenance"
	SettingStartWithWindows = "StartWithWindows"
	SettingShutdownTime     = "ShutdownTime"
)

// Stored toggle values.
const (
	StateEnabled  = "Enabled"
	StateDisabled = "Disabled"
)

// DefaultForceInterval is the polling interval, in seconds, of a fresh agent.
const DefaultForceInterval = 60

// InputTimeLayout is how recorded inputs and LastRobotInput are formatted.
const InputTimeLayout = "15:04:05"

// ErrUnknownSetting is returned for a setting name the store does not keep.
var ErrUnknownSetting = errors.New("unknown setting")

// Store holds the agent's settings and its robot input log.
type Store interface {
	// Get returns the current value of a setting.
	Get(ctx context.Context, name string) (string, error)

	// Set replaces the value of a setting.
	Set(ctx context.Context, name, value string) error

	// RecordInput appends an input to the log and updates LastRobotInput.
	RecordInput(ctx context.Context, at time.Time, interval string) error

	// InputCount returns the number of logged inputs.
	InputCount(ctx context.Context) (int, error)

	Close() error
}

// DefaultSettings returns the values a fresh agent starts with.
func DefaultSettings(now time.Time) map[string]string {
	return map[string]string{
		SettingForceInterval:    fmt.Sprint(DefaultForceInterval),
		SettingLastRobotInput:   now.Format(InputTimeLayout),
		SettingLogStatistics:    StateDisabled,
		SettingStartMaintenance: StateDisabled,
		SettingStartWithWindows: StateDisabled,
		SettingShutdownTime:     agentrpc.StopSentinel,
	}
}

func knownSetting(name string) bool {
	_, ok := DefaultSettings(time.Time{})[name]
	return ok
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu       sync.RWMutex
	settings map[string]string
	inputs   int
}

// NewMemoryStore creates a store holding the default settings.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: DefaultSettings(time.Now())}
}

func (m *MemoryStore) Get(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.settings[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, name, value string) error {
	if !knownSetting(name) {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[name] = value
	return nil
}

func (m *MemoryStore) RecordInput(_ context.Context, at time.Time, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs++
	m.settings[SettingLastRobotInput] = at.Format(InputTimeLayout)
	return nil
}

func (m *MemoryStore) InputCount(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.inputs, nil
}

func (m *MemoryStore) Close() error { return nil }

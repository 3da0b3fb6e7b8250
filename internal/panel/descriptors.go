package panel

import (
	"fmt"

	"github.com/muurk/smartidler/internal/agentrpc"
)

// FieldID identifies one UI-visible value on the panel.
type FieldID string

const (
	FieldInputCount      FieldID = "robot-inputs"
	FieldCurrentInterval FieldID = "current-interval"
	FieldLastInput       FieldID = "last-input"
	FieldLogging         FieldID = "log-toggle"
	FieldMaintenance     FieldID = "mnts-toggle"
	FieldStartup         FieldID = "startup-toggle"
	FieldShutdownTime    FieldID = "timed-input"
	FieldShutdownEnabled FieldID = "timed-stop"

	// FieldIntervalInput is the interval entry box. It is written by the
	// dispatcher only and has no read command.
	FieldIntervalInput FieldID = "interval-data"
)

// Kind says how a field's read result is decoded and shown.
type Kind int

const (
	// KindStatus is free text shown as returned
	KindStatus Kind = iota
	// KindToggle is a boolean control
	KindToggle
	// KindTime is a time of day in HH:MM form or the STOP sentinel
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindToggle:
		return "toggle"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor maps a field to the remote read that populates it.
type Descriptor struct {
	ID      FieldID
	Label   string
	Command string
	Arg     string // fixed "data" argument, empty for none
	Kind    Kind
}

// Args returns the read arguments for d.
func (d Descriptor) Args() agentrpc.Args {
	if d.Arg == "" {
		return nil
	}
	return agentrpc.Args{agentrpc.ArgData: d.Arg}
}

var descriptors = []Descriptor{
	{ID: FieldInputCount, Label: "Robot inputs", Command: agentrpc.CmdGetInputCount, Kind: KindStatus},
	{ID: FieldCurrentInterval, Label: "Current interval", Command: agentrpc.CmdGetData, Arg: agentrpc.DataForceInterval, Kind: KindStatus},
	{ID: FieldLastInput, Label: "Last input", Command: agentrpc.CmdGetData, Arg: agentrpc.DataRobotInput, Kind: KindStatus},
	{ID: FieldLogging, Label: "Logging", Command: agentrpc.CmdGetState, Arg: string(ToggleLogging), Kind: KindToggle},
	{ID: FieldMaintenance, Label: "Maintenance", Command: agentrpc.CmdGetState, Arg: string(ToggleMaintenance), Kind: KindToggle},
	{ID: FieldStartup, Label: "Launch at startup", Command: agentrpc.CmdGetState, Arg: string(ToggleStartup), Kind: KindToggle},
	{ID: FieldShutdownTime, Label: "Shutdown at", Command: agentrpc.CmdGetShutdownClock, Kind: KindTime},
	{ID: FieldShutdownEnabled, Label: "Scheduled shutdown", Command: agentrpc.CmdGetShutdownState, Kind: KindToggle},
}

// Descriptors returns a copy of the mirrored field table in display order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	copy(out, descriptors)
	return out
}

// DescriptorFor looks up the descriptor of a mirrored field.
func DescriptorFor(id FieldID) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// AllFields lists every field on the panel, mirrored fields first.
func AllFields() []FieldID {
	ids := make([]FieldID, 0, len(descriptors)+1)
	for _, d := range descriptors {
		ids = append(ids, d.ID)
	}
	return append(ids, FieldIntervalInput)
}

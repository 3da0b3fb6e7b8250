package panel

import (
	"fmt"
	"strings"
)

// Toggle is a named boolean behavior owned by the agent.
type Toggle string

const (
	ToggleLogging     Toggle = "logging"
	ToggleMaintenance Toggle = "maintenance"
	ToggleStartup     Toggle = "startup"
)

// Toggles returns every toggle in display order.
func Toggles() []Toggle {
	return []Toggle{ToggleLogging, ToggleMaintenance, ToggleStartup}
}

// Field returns the panel field showing t.
func (t Toggle) Field() FieldID {
	switch t {
	case ToggleLogging:
		return FieldLogging
	case ToggleMaintenance:
		return FieldMaintenance
	case ToggleStartup:
		return FieldStartup
	default:
		return ""
	}
}

// ParseToggle accepts a toggle name, case-insensitively.
func ParseToggle(s string) (Toggle, error) {
	t := Toggle(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Toggles() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown toggle %q (expected logging, maintenance or startup)", s)
}

// Text shown for a boolean field.
const (
	EnabledText  = "Enabled"
	DisabledText = "Disabled"
)

func toggleText(on bool) string {
	if on {
		return EnabledText
	}
	return DisabledText
}

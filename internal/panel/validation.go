package panel

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/muurk/smartidler/internal/agentrpc"
)

// MinimumInterval is the lowest polling interval, in seconds, the agent may
// be sent.
const MinimumInterval = 60

// DefaultShutdownTime is used when a schedule is enabled with no usable time.
const DefaultShutdownTime = "19:00"

var shutdownTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidationError is a user edit rejected before anything was sent.
type ValidationError struct {
	Field  FieldID
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// ValidateInterval parses raw as a polling interval of at least minimum seconds.
// Surrounding whitespace is ignored; anything else that is not a base-10
// integer is rejected, including the empty string.
func ValidateInterval(raw string, minimum int) (int, error) {
	if minimum < MinimumInterval {
		minimum = MinimumInterval
	}

	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, &ValidationError{Field: FieldIntervalInput, Value: raw, Reason: "interval is empty"}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Field: FieldIntervalInput, Value: raw, Reason: "interval must be a whole number of seconds"}
	}
	if n < minimum {
		return 0, &ValidationError{Field: FieldIntervalInput, Value: raw, Reason: fmt.Sprintf("interval must be at least %d seconds", minimum)}
	}
	return n, nil
}

// ValidateShutdownTime checks s is a 24-hour HH:MM time.
func ValidateShutdownTime(s string) error {
	if !shutdownTimePattern.MatchString(s) {
		return &ValidationError{Field: FieldShutdownTime, Value: s, Reason: "time must be HH:MM (24-hour)"}
	}
	return nil
}

// ValidateScheduleRequest accepts an HH:MM time or the STOP sentinel.
func ValidateScheduleRequest(s string) error {
	if s == agentrpc.StopSentinel {
		return nil
	}
	return ValidateShutdownTime(s)
}

// IsScheduleConsistent reports whether the time field and the enabled box
// agree: enabled with a real time, or disabled with STOP.
func IsScheduleConsistent(time string, enabled bool) bool {
	if enabled {
		return shutdownTimePattern.MatchString(time)
	}
	return time == agentrpc.StopSentinel
}

package agentrpc

// Command names understood by the agent. This table is the only place the
// wire names appear; everything else refers to these constants.
const (
	// CmdGetInputCount returns the number of recorded inputs as a string,
	// or "Disabled" when input logging is off.
	CmdGetInputCount = "get_db_count"

	// CmdGetData returns a named data value as a string.
	// Args: {data: DataForceInterval | DataRobotInput}
	CmdGetData = "get_data"

	// CmdGetState returns a toggle state as a boolean.
	// Args: {data: <toggle name>}
	CmdGetState = "get_state"

	// CmdGetShutdownClock returns the scheduled shutdown time ("HH:MM" or "STOP").
	CmdGetShutdownClock = "get_shutdown_clock"

	// CmdGetShutdownState returns whether a scheduled shutdown is active.
	CmdGetShutdownState = "get_shutdown_state"

	// CmdSetShutdown schedules or cancels the shutdown.
	// Args: {hour: "HH:MM" | "STOP"}
	CmdSetShutdown = "set_shutdown"

	// CmdSetForceInterval sets the polling interval in seconds.
	// Args: {interval: "<integer>"}
	CmdSetForceInterval = "set_force_interval"

	// CmdSetRegistryState sets a toggle.
	// Args: {data: <toggle name>, wanted_status: bool}
	CmdSetRegistryState = "set_registry_state"
)

// Argument keys.
const (
	ArgData         = "data"
	ArgHour         = "hour"
	ArgInterval     = "interval"
	ArgWantedStatus = "wanted_status"
)

// Named data values readable through CmdGetData.
const (
	DataForceInterval = "force_interval"
	DataRobotInput    = "robot_input"
)

// StopSentinel is the shutdown value meaning "no shutdown scheduled".
const StopSentinel = "STOP"

// Commands lists every command in the table, reads first.
func Commands() []string {
	return []string{
		CmdGetInputCount,
		CmdGetData,
		CmdGetState,
		CmdGetShutdownClock,
		CmdGetShutdownState,
		CmdSetShutdown,
		CmdSetForceInterval,
		CmdSetRegistryState,
	}
}

// Package logging provides structured logging for smartidler.
//
// This package wraps a zap logger with convenience functions shared by the
// panel, the invocation clients and the agent simulator.
//
// # Log Levels
//
//   - Debug: successful invocations, per-field refreshes
//   - Info: connections, startup and shutdown
//   - Warn: failed invocations and refreshes (never fatal to the panel)
//   - Error: startup failures
//
// # Silent By Default
//
// When neither an explicit level nor SMARTIDLER_LOG_LEVEL is set the logger
// is a no-op. The interactive panel renders to the terminal, so logs should
// be sent to a file with SMARTIDLER_LOG_FILE or --log-file:
//
//	if err := logging.InitializeWithOptions(logging.Options{
//	    Level:      "debug",
//	    OutputPath: "/tmp/smartidler.log",
//	}); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Specialized Logging
//
//	logging.LogInvocation("get_state", map[string]any{"data": "logging"}, d, err)
//	logging.LogFieldRefresh("log-toggle", err)
//	logging.LogConnection(remoteAddr, "websocket_upgraded")
//
// All logging functions are safe for concurrent use.
package logging

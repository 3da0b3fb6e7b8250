package logging

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger is read from many goroutines; it always holds a usable logger.
var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "SMARTIDLER_LOG_LEVEL"

// LogFileEnvVar redirects log output to a file. The interactive panel owns
// stdout, so anything other than silent mode should normally go here.
const LogFileEnvVar = "SMARTIDLER_LOG_FILE"

// Options controls logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means silent.
	Level string

	// OutputPath is a file path, "stdout" or "stderr". Empty means stderr.
	OutputPath string
}

// Initialize creates a new logger with the specified level writing to stderr.
// If level is empty, it checks SMARTIDLER_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	return InitializeWithOptions(Options{Level: level})
}

// InitializeWithOptions is Initialize with an explicit output destination.
func InitializeWithOptions(opts Options) error {
	level := opts.Level
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	// If still no level, use silent mode (nop logger)
	if level == "" {
		logger.Store(zap.NewNop())
		return nil
	}

	output := opts.OutputPath
	if output == "" {
		output = os.Getenv(LogFileEnvVar)
	}
	if output == "" {
		output = "stderr"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	// Colors only make sense on a terminal
	if output == "stdout" || output == "stderr" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Store(built)

	return nil
}

// InitializeFromEnv initializes the logger from the SMARTIDLER_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		return zapcore.InfoLevel
	}
}

// GetLogger returns the global logger instance. It is silent until one of
// the Initialize functions or SetLogger installs another.
func GetLogger() *zap.Logger {
	return logger.Load()
}

// SetLogger replaces the global logger. Tests use it with zaptest/observer.
// A nil logger restores silent mode.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogConnection logs a connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogInvocation logs a completed remote invocation. Failures are logged at
// warn level, successes at debug.
func LogInvocation(command string, args map[string]any, duration time.Duration, err error) {
	fields := []zap.Field{
		zap.String("command", command),
		zap.String("args", formatArgs(args)),
		zap.Duration("duration", duration),
	}
	if err != nil {
		Warn("Invocation failed", append(fields, zap.Error(err))...)
		return
	}
	Debug("Invocation completed", fields...)
}

// LogFieldRefresh logs the outcome of a single field refresh.
func LogFieldRefresh(field string, err error) {
	if err != nil {
		Warn("Field refresh failed",
			zap.String("field", field),
			zap.Error(err),
		)
		return
	}
	Debug("Field refreshed", zap.String("field", field))
}

// formatArgs renders an argument map with sorted keys so log lines are stable.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := "{"
	for i, k := range keys {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %v", k, args[k])
	}
	return out + "}"
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}

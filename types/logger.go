package types

// Logger defines methods for structured logging.
//
// Compatible with slog-style loggers and zap.SugaredLogger. All methods
// accept alternating key-value pairs for structured fields.
type Logger interface {
	// Debug logs a message at DebugLevel with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel with optional key-value pairs.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message at FatalLevel and terminates the process.
	Fatal(msg string, keysAndValues ...any)
}

package logging

import "testing"

// TestLogger is a logger for tests. It is silent unless created with
// NewTestLoggerVerbose, in which case it forwards to testing.T.
type TestLogger struct {
	module string
	t      testing.TB
}

// NewTestLogger creates a new test logger that suppresses output
func NewTestLogger() *TestLogger {
	return &TestLogger{module: "test"}
}

// NewTestLoggerVerbose creates a test logger that outputs to t
func NewTestLoggerVerbose(t testing.TB) *TestLogger {
	return &TestLogger{module: "test", t: t}
}

func (l *TestLogger) logf(level Level, msg string, args []interface{}) {
	if l.t == nil {
		return
	}
	l.t.Helper()
	l.t.Logf("[%s] %s: %s %s", l.module, level, msg, formatArgs(args))
}

// Debug logs a debug message
func (l *TestLogger) Debug(msg string, args ...interface{}) { l.logf(LevelDebug, msg, args) }

// Info logs an informational message
func (l *TestLogger) Info(msg string, args ...interface{}) { l.logf(LevelInfo, msg, args) }

// Warn logs a warning message
func (l *TestLogger) Warn(msg string, args ...interface{}) { l.logf(LevelWarn, msg, args) }

// Error logs an error message
func (l *TestLogger) Error(msg string, args ...interface{}) { l.logf(LevelError, msg, args) }

// Fatal logs a fatal message; it does not exit.
func (l *TestLogger) Fatal(msg string, args ...interface{}) { l.logf(LevelFatal, msg, args) }

// WithModule creates a new logger with a nested module name.
func (l *TestLogger) WithModule(module string) Logger {
	return &TestLogger{module: joinModule(l.module, module), t: l.t}
}

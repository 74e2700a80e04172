package respkv

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Field represents a structured log field
type Field struct {
	Key   string
	Value interface{}
}

// Logger interface for custom logging implementations
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// MetricsCollector interface for metrics collection
type MetricsCollector interface {
	// RecordCommandProcessed records a command executed by the engine loop
	RecordCommandProcessed(cmd string, duration time.Duration)

	// RecordConnection records a client connection opening or closing
	RecordConnection(open bool)

	// RecordHandshake records a completed replication handshake
	RecordHandshake(duration time.Duration)

	// RecordKeyEvent records a key being set or removed after expiring
	RecordKeyEvent(event string)

	// RecordError records an error event
	RecordError(errorType string)
}

// Level is the minimum severity a default logger writes
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

// String returns the level name
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses "debug", "info" or "error". "warn" maps to error,
// the nearest level a Logger has.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning", "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
	}
}

// NewLogger returns a logger writing through the standard log package,
// dropping messages below level
func NewLogger(level Level) Logger {
	return &defaultLogger{level: level}
}

// defaultLogger is a simple logger implementation using the standard log package
type defaultLogger struct {
	level Level
}

func (l *defaultLogger) Debug(msg string, fields ...Field) {
	if l.level <= LevelDebug {
		l.logWithFields("DEBUG", msg, fields...)
	}
}

func (l *defaultLogger) Info(msg string, fields ...Field) {
	if l.level <= LevelInfo {
		l.logWithFields("INFO", msg, fields...)
	}
}

func (l *defaultLogger) Error(msg string, fields ...Field) {
	l.logWithFields("ERROR", msg, fields...)
}

func (l *defaultLogger) logWithFields(level, msg string, fields ...Field) {
	logMsg := level + ": " + msg
	for _, field := range fields {
		logMsg += " " + field.Key + "=" + formatValue(field.Value)
	}
	log.Println(logMsg)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Package utils provides logging shared by the client packages.
package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogLevel controls logging verbosity.
type LogLevel int

const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// String returns the lower-case level name.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// ParseLogLevel maps a level name to a LogLevel, defaulting to info.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "off", "none", "disabled":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogLevelOff:
		return zerolog.Disabled
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger is a key/value structured logger.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	SetLevel(level LogLevel)
	With(keysAndValues ...interface{}) Logger
}

type zerologLogger struct {
	mu     *sync.RWMutex
	logger *zerolog.Logger
}

// NewLogger returns a JSON logger writing to w (stderr when nil).
func NewLogger(level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(w).With().Timestamp().Logger().Level(level.zerolog())
	return &zerologLogger{mu: &sync.RWMutex{}, logger: &logger}
}

// NewConsoleLogger returns a human-readable logger for terminals.
func NewConsoleLogger(level LogLevel, w io.Writer) Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(level.zerolog())
	return &zerologLogger{mu: &sync.RWMutex{}, logger: &logger}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	logger := zerolog.Nop()
	return &zerologLogger{mu: &sync.RWMutex{}, logger: &logger}
}

func (z *zerologLogger) Debug(msg string, keysAndValues ...interface{}) {
	z.log(zerolog.DebugLevel, msg, keysAndValues)
}

func (z *zerologLogger) Info(msg string, keysAndValues ...interface{}) {
	z.log(zerolog.InfoLevel, msg, keysAndValues)
}

func (z *zerologLogger) Warn(msg string, keysAndValues ...interface{}) {
	z.log(zerolog.WarnLevel, msg, keysAndValues)
}

func (z *zerologLogger) Error(msg string, keysAndValues ...interface{}) {
	z.log(zerolog.ErrorLevel, msg, keysAndValues)
}

// SetLevel changes the level of this logger. Loggers derived earlier through
// With keep their level.
func (z *zerologLogger) SetLevel(level LogLevel) {
	z.mu.Lock()
	defer z.mu.Unlock()
	updated := z.logger.Level(level.zerolog())
	*z.logger = updated
}

func (z *zerologLogger) With(keysAndValues ...interface{}) Logger {
	z.mu.RLock()
	defer z.mu.RUnlock()
	child := z.logger.With().Fields(fields(keysAndValues)).Logger()
	return &zerologLogger{mu: &sync.RWMutex{}, logger: &child}
}

func (z *zerologLogger) log(level zerolog.Level, msg string, keysAndValues []interface{}) {
	z.mu.RLock()
	defer z.mu.RUnlock()
	event := z.logger.WithLevel(level)
	if event == nil {
		return
	}
	if len(keysAndValues) > 0 {
		event = event.Fields(fields(keysAndValues))
	}
	event.Msg(msg)
}

// fields converts alternating key/value pairs into a map. A dangling key is
// logged under "extra".
func fields(keysAndValues []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			out["extra"] = key
			break
		}
		value := keysAndValues[i+1]
		if err, ok := value.(error); ok {
			value = err.Error()
		}
		out[key] = value
	}
	return out
}

// SanitizeToken masks a credential for safe logging.
func SanitizeToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

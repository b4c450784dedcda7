package manager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the logging level
type LogLevel int

const (
	// LogLevelDebug represents debug level logging (most verbose)
	LogLevelDebug LogLevel = iota
	// LogLevelInfo represents info level logging (normal operations)
	LogLevelInfo
	// LogLevelWarn represents warning level logging
	LogLevelWarn
	// LogLevelError represents error level logging
	LogLevelError
	// LogLevelQuiet represents minimal logging (only errors)
	LogLevelQuiet
)

// LogFormat represents the logging output format
type LogFormat int

const (
	// LogFormatDefault uses emoji format if output is to a TTY, otherwise Go format
	LogFormatDefault LogFormat = iota
	// LogFormatGo uses the slog text format with timestamps
	LogFormatGo
	// LogFormatEmoji uses emoji for log prefixes
	LogFormatEmoji
	// LogFormatColor uses colored text without emoji
	LogFormatColor
	// LogFormatASCII uses plain text without colors or emoji
	LogFormatASCII
)

// ParseLogLevel maps a --log-level value to a LogLevel.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "quiet":
		return LogLevelQuiet, nil
	}
	return LogLevelInfo, fmt.Errorf("invalid log level %q (debug|info|warn|error|quiet)", s)
}

// ParseLogFormat maps a --log-format value to a LogFormat.
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return LogFormatDefault, nil
	case "go":
		return LogFormatGo, nil
	case "emoji":
		return LogFormatEmoji, nil
	case "color":
		return LogFormatColor, nil
	case "ascii":
		return LogFormatASCII, nil
	}
	return LogFormatDefault, fmt.Errorf("invalid log format %q (go|emoji|color|ascii)", s)
}

// Logger is a wrapper around slog to provide consistent logging across the application
type Logger struct {
	slogger *slog.Logger
	level   LogLevel
}

// DefaultLogger is the package-level logger
var DefaultLogger = NewLogger(os.Stderr, LogLevelInfo)

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError, LogLevelQuiet:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a Logger writing slog text records to w
func NewLogger(w io.Writer, level LogLevel) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})
	return &Logger{slogger: slog.New(handler), level: level}
}

// NewColorfulLogger creates a new human-friendly logger without timestamps
func NewColorfulLogger(w io.Writer, level LogLevel, useColors, useEmoji bool) *Logger {
	handler := &SimpleHandler{
		w:         w,
		level:     slogLevel(level),
		useColors: useColors,
		useEmoji:  useEmoji,
	}
	return &Logger{slogger: slog.New(handler), level: level}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.level <= LogLevelDebug {
		l.slogger.Debug(msg, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.level <= LogLevelInfo {
		l.slogger.Info(msg, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.level <= LogLevelWarn {
		l.slogger.Warn(msg, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.level <= LogLevelQuiet {
		l.slogger.Error(msg, args...)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level <= LogLevelDebug {
		l.slogger.Debug(fmt.Sprintf(format, args...))
	}
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level <= LogLevelInfo {
		l.slogger.Info(fmt.Sprintf(format, args...))
	}
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.level <= LogLevelWarn {
		l.slogger.Warn(fmt.Sprintf(format, args...))
	}
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level <= LogLevelQuiet {
		l.slogger.Error(fmt.Sprintf(format, args...))
	}
}

// isTerminal reports whether f is connected to a terminal
func isTerminal(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// SetupDefaultLogger replaces DefaultLogger with a stderr logger of the given level and format
func SetupDefaultLogger(level LogLevel, format LogFormat) *Logger {
	if format == LogFormatDefault {
		if isTerminal(os.Stderr) {
			format = LogFormatEmoji
		} else {
			format = LogFormatGo
		}
	}

	switch format {
	case LogFormatEmoji:
		DefaultLogger = NewColorfulLogger(os.Stderr, level, false, true)
	case LogFormatColor:
		DefaultLogger = NewColorfulLogger(os.Stderr, level, true, false)
	case LogFormatASCII:
		DefaultLogger = NewColorfulLogger(os.Stderr, level, false, false)
	default:
		DefaultLogger = NewLogger(os.Stderr, level)
	}
	return DefaultLogger
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[36m"
	colorBold   = "\033[1m"
)

type levelStyle struct {
	emoji string
	color string
	name  string
}

var levelStyles = map[slog.Level]levelStyle{
	slog.LevelDebug: {emoji: "🔍", color: colorBlue, name: "DEBUG"},
	slog.LevelInfo:  {emoji: "ℹ️", color: colorGreen, name: "INFO"},
	slog.LevelWarn:  {emoji: "⚠️", color: colorYellow, name: "WARN"},
	slog.LevelError: {emoji: "❌", color: colorRed + colorBold, name: "ERROR"},
}

// SimpleHandler is a basic slog.Handler that doesn't print timestamps
// and can use colors and emojis
type SimpleHandler struct {
	w         io.Writer
	level     slog.Leveler
	useColors bool
	useEmoji  bool
}

// Enabled implements slog.Handler.
func (h *SimpleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *SimpleHandler) Handle(_ context.Context, r slog.Record) error {
	style := levelStyles[r.Level]

	var prefix string
	switch {
	case h.useEmoji && h.useColors:
		prefix = style.emoji + " " + style.color + style.name + colorReset
	case h.useEmoji:
		prefix = style.emoji
	case h.useColors:
		prefix = style.color + style.name + colorReset
	default:
		prefix = style.name
	}

	var b strings.Builder
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	})

	msg := b.String()
	if h.useColors && r.Level == slog.LevelError {
		msg = colorBold + msg + colorReset
	}

	if _, err := fmt.Fprintf(h.w, "%s %s\n", prefix, msg); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing log: %v\n", err)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *SimpleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// attributes are only rendered per record
	return h
}

// WithGroup implements slog.Handler.
func (h *SimpleHandler) WithGroup(name string) slog.Handler {
	return h
}

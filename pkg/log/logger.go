// Structured logging for the scope client
//
// Provides component loggers with:
// - Log levels (DEBUG, INFO, WARN, ERROR)
// - Structured fields (key-value pairs)
// - Text or JSON output
// - ANSI colors for terminal output
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// DEBUG level for per-frame and per-call tracing
	DEBUG LogLevel = iota

	// INFO level for connection and mode changes
	INFO

	// WARN level for recoverable faults
	WARN

	// ERROR level for failures that lose work
	ERROR
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a LogLevel. Unknown strings map to INFO.
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// OutputFormat specifies the output format for log messages
type OutputFormat int

const (
	// FormatText outputs human-readable text
	FormatText OutputFormat = iota
	// FormatJSON outputs one JSON object per line
	FormatJSON
)

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// Fields is a map of structured logging fields
type Fields map[string]interface{}

// sink is the shared output state of a logger family. Loggers derived with
// WithPrefix share it, so SetWriter/SetLevel on the root reach every
// component.
type sink struct {
	mu         sync.Mutex
	writer     io.Writer
	level      LogLevel
	timeFormat string
	colorize   bool
	outFormat  OutputFormat
	caller     bool
}

// Logger writes levelled messages under a component prefix
type Logger struct {
	prefix string
	fields Fields
	out    *sink
}

// Entry is a pending log line carrying extra fields
type Entry struct {
	logger *Logger
	fields Fields
}

var (
	defaultLogger *Logger

	ansiColors = map[LogLevel]string{
		DEBUG: "\x1b[36m", // Cyan
		INFO:  "\x1b[32m", // Green
		WARN:  "\x1b[33m", // Yellow
		ERROR: "\x1b[31m", // Red
	}
	ansiReset = "\x1b[0m"
)

// New creates a new logger with the given prefix writing to stderr
func New(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		fields: make(Fields),
		out: &sink{
			writer:     os.Stderr,
			level:      INFO,
			timeFormat: "2006-01-02 15:04:05.000",
			colorize:   os.Getenv("NO_COLOR") == "",
			outFormat:  FormatText,
		},
	}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.out.level
}

// Enabled reports whether messages at level would be written
func (l *Logger) Enabled(level LogLevel) bool {
	return level >= l.GetLevel()
}

// SetWriter sets the output writer (e.g., for testing)
func (l *Logger) SetWriter(w io.Writer) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.writer = w
}

// SetTimeFormat sets the time format string used by text output
func (l *Logger) SetTimeFormat(format string) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.timeFormat = format
}

// SetColorize enables or disables colorized output
func (l *Logger) SetColorize(enable bool) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.colorize = enable
}

// SetFormat sets the output format
func (l *Logger) SetFormat(format OutputFormat) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.outFormat = format
}

// SetCaller enables or disables caller info in log output
func (l *Logger) SetCaller(enable bool) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.caller = enable
}

// WithPrefix returns a component logger sharing this logger's output
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		fields: l.fields,
		out:    l.out,
	}
}

// With returns a logger that attaches the given fields to every line
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{prefix: l.prefix, fields: merged, out: l.out}
}

// WithField returns an Entry with the given field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: l, fields: Fields{key: value}}
}

// WithFields returns an Entry with the given fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

// WithError returns an Entry with the error field set
func (l *Logger) WithError(err error) *Entry {
	if err == nil {
		return l.WithField("error", "<nil>")
	}
	return l.WithField("error", err.Error())
}

func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// mergeFields combines persistent and per-entry fields; entry fields win.
func (l *Logger) mergeFields(fields Fields) Fields {
	if len(l.fields) == 0 {
		return fields
	}
	out := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (l *Logger) formatText(level LogLevel, msg string, fields Fields, caller string) string {
	var sb strings.Builder

	sb.WriteString(time.Now().Format(l.out.timeFormat))
	sb.WriteString(" [")
	sb.WriteString(fmt.Sprintf("%-5s", level.String()))
	sb.WriteString("] ")

	if l.out.colorize {
		sb.WriteString(ansiColors[level])
	}
	sb.WriteString(l.prefix)
	if l.out.colorize {
		sb.WriteString(ansiReset)
	}
	sb.WriteString(": ")
	sb.WriteString(msg)

	if caller != "" {
		sb.WriteString(" (")
		sb.WriteString(caller)
		sb.WriteString(")")
	}

	if len(fields) > 0 {
		sb.WriteString(" {")
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(fmt.Sprintf("%v", fields[k]))
		}
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return sb.String()
}

// JSONLogEntry is the structure for JSON formatted log entries
type JSONLogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) formatJSON(level LogLevel, msg string, fields Fields, caller string) string {
	entry := JSONLogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		Logger:    l.prefix,
		Message:   msg,
		Caller:    caller,
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal log entry: %v"}`+"\n", err)
	}
	return string(data) + "\n"
}

// emit is the single write path; callerSkip counts frames above emit.
func (l *Logger) emit(level LogLevel, msg string, fields Fields, callerSkip int) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if level < l.out.level {
		return
	}

	caller := ""
	if l.out.caller {
		caller = getCaller(callerSkip + 1)
	}

	fields = l.mergeFields(fields)
	var line string
	if l.out.outFormat == FormatJSON {
		line = l.formatJSON(level, msg, fields, caller)
	} else {
		line = l.formatText(level, msg, fields, caller)
	}
	fmt.Fprint(l.out.writer, line)
}

func (l *Logger) logf(level LogLevel, msg string, args []interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.emit(level, msg, nil, 3)
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...interface{}) { l.logf(DEBUG, msg, args) }

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...interface{}) { l.logf(INFO, msg, args) }

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...interface{}) { l.logf(WARN, msg, args) }

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...interface{}) { l.logf(ERROR, msg, args) }

// Entry methods - log with fields

// WithField adds a field to the entry
func (e *Entry) WithField(key string, value interface{}) *Entry {
	newFields := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		newFields[k] = v
	}
	newFields[key] = value
	return &Entry{logger: e.logger, fields: newFields}
}

// WithFields adds multiple fields to the entry
func (e *Entry) WithFields(fields Fields) *Entry {
	newFields := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &Entry{logger: e.logger, fields: newFields}
}

// WithError adds an error field to the entry
func (e *Entry) WithError(err error) *Entry {
	if err == nil {
		return e.WithField("error", "<nil>")
	}
	return e.WithField("error", err.Error())
}

// Debug logs at DEBUG level with fields
func (e *Entry) Debug(msg string) { e.logger.emit(DEBUG, msg, e.fields, 2) }

// Info logs at INFO level with fields
func (e *Entry) Info(msg string) { e.logger.emit(INFO, msg, e.fields, 2) }

// Warn logs at WARN level with fields
func (e *Entry) Warn(msg string) { e.logger.emit(WARN, msg, e.fields, 2) }

// Error logs at ERROR level with fields
func (e *Entry) Error(msg string) { e.logger.emit(ERROR, msg, e.fields, 2) }

// Debugf logs a formatted message at DEBUG level with fields
func (e *Entry) Debugf(format string, args ...interface{}) {
	e.logger.emit(DEBUG, fmt.Sprintf(format, args...), e.fields, 2)
}

// Infof logs a formatted message at INFO level with fields
func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.emit(INFO, fmt.Sprintf(format, args...), e.fields, 2)
}

// Warnf logs a formatted message at WARN level with fields
func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.emit(WARN, fmt.Sprintf(format, args...), e.fields, 2)
}

// Package-level functions using the default logger

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	defaultLogger = logger
}

// Default returns the root logger
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("oscope")
	}
	return defaultLogger
}

// GetLogger returns a component logger derived from the default logger
func GetLogger(prefix string) *Logger {
	return Default().WithPrefix(prefix)
}

// Discard returns a logger that drops everything, for tests and tools
func Discard() *Logger {
	l := New("discard")
	l.SetWriter(io.Discard)
	l.SetLevel(ERROR + 1)
	return l
}

func init() {
	defaultLogger = New("oscope")
	ConfigureFromEnv(defaultLogger)
}

// ConfigureFromEnv applies environment-based configuration to the logger.
// Environment variables:
//   - OSCOPE_LOG_LEVEL: DEBUG, INFO, WARN, ERROR
//   - OSCOPE_LOG_FORMAT: text, json
//   - OSCOPE_LOG_CALLER: any non-empty value enables caller info
//   - NO_COLOR: any non-empty value disables colors
func ConfigureFromEnv(l *Logger) {
	if levelStr := os.Getenv("OSCOPE_LOG_LEVEL"); levelStr != "" {
		l.SetLevel(ParseLevel(levelStr))
	}
	if formatStr := os.Getenv("OSCOPE_LOG_FORMAT"); formatStr != "" {
		l.SetFormat(ParseFormat(formatStr))
	}
	if os.Getenv("OSCOPE_LOG_CALLER") != "" {
		l.SetCaller(true)
	}
	if os.Getenv("NO_COLOR") != "" {
		l.SetColorize(false)
	}
}

// Package logger is the leveled key=value logger shared by the CLI, the
// serial transport and the codeplug parser.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// Level represents log level
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	offLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Config holds logger configuration
type Config struct {
	Level  string
	Format string // "text" (default) or "json"
	Output io.Writer
}

// Logger writes leveled messages with structured fields.
type Logger struct {
	level     Level
	json      bool
	component string
	fields    []Field
	out       io.Writer
	logger    *log.Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// New creates a new logger
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	l := &Logger{
		level: parseLevel(cfg.Level),
		json:  strings.EqualFold(cfg.Format, "json"),
		out:   output,
	}
	l.logger = l.stdLogger("")
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	l := &Logger{level: offLevel, out: io.Discard}
	l.logger = l.stdLogger("")
	return l
}

// WithComponent creates a child logger with a component prefix
func (l *Logger) WithComponent(component string) *Logger {
	child := l.clone()
	child.component = component
	child.logger = child.stdLogger(component)
	return child
}

// With returns a child logger that adds fields to every message.
func (l *Logger) With(fields ...Field) *Logger {
	child := l.clone()
	child.fields = append(append([]Field(nil), l.fields...), fields...)
	return child
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l.level <= level
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(DebugLevel, msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...Field) {
	l.log(InfoLevel, msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(WarnLevel, msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...Field) {
	l.log(ErrorLevel, msg, fields)
}

func (l *Logger) clone() *Logger {
	c := *l
	return &c
}

func (l *Logger) stdLogger(component string) *log.Logger {
	if l.json {
		return log.New(l.out, "", 0)
	}
	prefix := ""
	if component != "" {
		prefix = fmt.Sprintf("[%s] ", component)
	}
	return log.New(l.out, prefix, log.LstdFlags)
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}
	all := fields
	if len(l.fields) > 0 {
		all = append(append([]Field(nil), l.fields...), fields...)
	}

	if l.json {
		l.logger.Print(l.jsonLine(level, msg, all))
		return
	}

	if len(all) == 0 {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	fieldStrs := make([]string, 0, len(all))
	for _, f := range all {
		fieldStrs = append(fieldStrs, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	l.logger.Printf("[%s] %s %s", level, msg, strings.Join(fieldStrs, " "))
}

func (l *Logger) jsonLine(level Level, msg string, fields []Field) string {
	entry := make(map[string]interface{}, len(fields)+4)
	for _, f := range fields {
		entry[f.Key] = f.Value
	}
	entry["time"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = strings.ToLower(level.String())
	entry["msg"] = msg
	if l.component != "" {
		entry["component"] = l.component
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"level":"error","msg":"log encode failed: %s"}`, err)
	}
	return string(b)
}

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field constructors

// String creates a string field
func String(key, val string) Field {
	return Field{Key: key, Value: val}
}

// Int creates an int field
func Int(key string, val int) Field {
	return Field{Key: key, Value: val}
}

// Int64 creates an int64 field
func Int64(key string, val int64) Field {
	return Field{Key: key, Value: val}
}

// Uint32 creates a uint32 field
func Uint32(key string, val uint32) Field {
	return Field{Key: key, Value: val}
}

// Hex creates a field rendered as 0x-prefixed hex, for addresses and offsets
func Hex(key string, val uint32) Field {
	return Field{Key: key, Value: fmt.Sprintf("0x%06X", val)}
}

// Bool creates a bool field
func Bool(key string, val bool) Field {
	return Field{Key: key, Value: val}
}

// Float64 creates a float64 field
func Float64(key string, val float64) Field {
	return Field{Key: key, Value: val}
}

// Duration creates a duration field
func Duration(key string, val time.Duration) Field {
	return Field{Key: key, Value: val.String()}
}

// Error creates an error field
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "nil"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any creates a field with any value
func Any(key string, val interface{}) Field {
	return Field{Key: key, Value: val}
}

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level.
type Level int

const (
	// LevelDebug is the most verbose level.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name. Unknown names map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Format represents the log output format.
type Format int

const (
	// FormatText outputs logs in human-readable text format.
	FormatText Format = iota
	// FormatJSON outputs one JSON object per line.
	FormatJSON
)

// ParseFormat parses a format name. Unknown names map to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(s, "json") {
		return FormatJSON
	}
	return FormatText
}

// Logger is the interface for structured logging.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})
	// Info logs an info message with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})
	// Warn logs a warning message with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})
	// Error logs an error message with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
	// Named returns a logger tagging every line with a component name.
	Named(component string) Logger
	// WithFields returns a new logger with the given fields.
	WithFields(keysAndValues ...interface{}) Logger
}

// Config holds the logger configuration.
type Config struct {
	Level  string
	Format string
	Output string
}

type field struct {
	key   string
	value interface{}
}

// sink is shared by a logger and everything derived from it.
type sink struct {
	mu  sync.Mutex
	out io.Writer
}

type logger struct {
	level     Level
	format    Format
	sink      *sink
	component string
	fields    []field
}

// New creates a Logger from cfg. Output is "stdout" (default), "stderr" or a
// file path opened for appending.
func New(cfg Config) (Logger, error) {
	var out io.Writer
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, fmt.Errorf("logging: open %s: %w", cfg.Output, err)
		}
		out = f
	}
	return NewWriter(out, ParseLevel(cfg.Level), ParseFormat(cfg.Format)), nil
}

// NewWriter creates a Logger writing to w.
func NewWriter(w io.Writer, level Level, format Format) Logger {
	return &logger{
		level:  level,
		format: format,
		sink:   &sink{out: w},
	}
}

// NewDefault creates a Logger at info level writing text to stderr.
func NewDefault() Logger {
	return NewWriter(os.Stderr, LevelInfo, FormatText)
}

// NewNop creates a no-op logger that discards all output.
func NewNop() Logger {
	return nopLogger{}
}

func (l *logger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, msg, keysAndValues)
}

func (l *logger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, msg, keysAndValues)
}

func (l *logger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, msg, keysAndValues)
}

func (l *logger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, msg, keysAndValues)
}

func (l *logger) Named(component string) Logger {
	c := l.clone()
	if c.component != "" {
		component = c.component + "." + component
	}
	c.component = component
	return c
}

func (l *logger) WithFields(keysAndValues ...interface{}) Logger {
	c := l.clone()
	c.fields = appendFields(c.fields, keysAndValues)
	return c
}

func (l *logger) clone() *logger {
	c := *l
	c.fields = append([]field(nil), l.fields...)
	return &c
}

// appendFields adds key-value pairs, replacing earlier values of the same key.
// Non-string keys and a trailing key without value are dropped.
func appendFields(fields []field, kv []interface{}) []field {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		value := kv[i+1]
		if err, ok := value.(error); ok && err != nil {
			value = err.Error()
		}

		replaced := false
		for j := range fields {
			if fields[j].key == key {
				fields[j].value = value
				replaced = true
				break
			}
		}
		if !replaced {
			fields = append(fields, field{key: key, value: value})
		}
	}
	return fields
}

func (l *logger) log(level Level, msg string, kv []interface{}) {
	if level < l.level {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	fields := appendFields(append([]field(nil), l.fields...), kv)

	var line string
	if l.format == FormatJSON {
		line = l.formatJSON(ts, level, msg, fields)
	} else {
		line = l.formatText(ts, level, msg, fields)
	}

	l.sink.mu.Lock()
	fmt.Fprintln(l.sink.out, line)
	l.sink.mu.Unlock()
}

func (l *logger) formatJSON(ts string, level Level, msg string, fields []field) string {
	entry := make(map[string]interface{}, len(fields)+4)
	for _, f := range fields {
		entry[f.key] = f.value
	}
	entry["ts"] = ts
	entry["level"] = level.String()
	entry["msg"] = msg
	if l.component != "" {
		entry["component"] = l.component
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"ts":%q,"level":"error","msg":"failed to marshal log entry"}`, ts)
	}
	return string(data)
}

func (l *logger) formatText(ts string, level Level, msg string, fields []field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", ts, level)
	if l.component != "" {
		fmt.Fprintf(&b, " %s:", l.component)
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.key, f.value)
	}
	return b.String()
}

type nopLogger struct{}

func (nopLogger) Debug(_ string, _ ...interface{})     {}
func (nopLogger) Info(_ string, _ ...interface{})      {}
func (nopLogger) Warn(_ string, _ ...interface{})      {}
func (nopLogger) Error(_ string, _ ...interface{})     {}
func (n nopLogger) Named(_ string) Logger              { return n }
func (n nopLogger) WithFields(_ ...interface{}) Logger { return n }

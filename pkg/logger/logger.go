// Package logger provides leveled structured logging for the progress engine.
// Output is one JSON object per line by default; a plain text format is
// available for local development.
package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log record.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unrecognized input means Info.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "FATAL":
		return LevelFatal
	default:
		return LevelInfo
	}
}

// Format selects the output encoding.
type Format int

const (
	// FormatJSON writes one JSON object per record.
	FormatJSON Format = iota
	// FormatText writes "ts LEVEL message key=value ..." lines.
	FormatText
)

// ParseFormat maps a config string to a Format. Unrecognized input means JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "text") {
		return FormatText
	}
	return FormatJSON
}

// Field is one structured key-value pair attached to a record.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field      { return Field{Key: key, Value: value} }
func Int(key string, value int) Field     { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field   { return Field{Key: key, Value: value} }
func Any(key string, value any) Field     { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Time(key string, value time.Time) Field {
	return Field{Key: key, Value: value.Format(time.RFC3339)}
}

// Err attaches an error under the "error" key.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Options configures a Logger.
type Options struct {
	Output    io.Writer
	Level     Level
	Format    Format
	AddCaller bool
}

// DefaultOptions: JSON to stdout at Info with caller annotations.
func DefaultOptions() Options {
	return Options{
		Output:    os.Stdout,
		Level:     LevelInfo,
		Format:    FormatJSON,
		AddCaller: true,
	}
}

// Logger writes leveled records. Loggers derived via With share the writer
// and its mutex, so all of them serialize on the same output.
type Logger struct {
	mu        *sync.Mutex
	out       io.Writer
	level     Level
	format    Format
	addCaller bool
	base      []Field
}

// New builds a Logger from opts. A nil Output falls back to stdout.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		mu:        &sync.Mutex{},
		out:       opts.Output,
		level:     opts.Level,
		format:    opts.Format,
		addCaller: opts.AddCaller,
	}
}

// Default returns a logger with DefaultOptions.
func Default() *Logger {
	return New(DefaultOptions())
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: LevelFatal})
}

// With returns a derived logger carrying extra base fields.
func (l *Logger) With(fields ...Field) *Logger {
	child := *l
	child.base = make([]Field, 0, len(l.base)+len(fields))
	child.base = append(child.base, l.base...)
	child.base = append(child.base, fields...)
	return &child
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

// Fatal logs the record and terminates the process.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.write(LevelFatal, msg, fields)
	os.Exit(1)
}

func (l *Logger) write(level Level, msg string, fields []Field) {
	if level < l.level {
		return
	}

	ts := time.Now().UTC().Format(time.RFC3339Nano)

	caller := ""
	if l.addCaller {
		// Skip write and the public wrapper.
		if _, file, line, ok := runtime.Caller(2); ok {
			if idx := strings.LastIndex(file, "/"); idx >= 0 {
				file = file[idx+1:]
			}
			caller = fmt.Sprintf("%s:%d", file, line)
		}
	}

	merged := make(map[string]any, len(l.base)+len(fields))
	for _, f := range l.base {
		merged[f.Key] = f.Value
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}

	var buf bytes.Buffer
	if l.format == FormatText {
		l.renderText(&buf, ts, level, msg, caller, merged)
	} else {
		l.renderJSON(&buf, ts, level, msg, caller, merged)
	}
	buf.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(buf.Bytes())
}

type record struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Caller    string         `json:"caller,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func (l *Logger) renderJSON(buf *bytes.Buffer, ts string, level Level, msg, caller string, fields map[string]any) {
	rec := record{
		Timestamp: ts,
		Level:     level.String(),
		Message:   msg,
		Caller:    caller,
	}
	if len(fields) > 0 {
		rec.Fields = fields
	}
	data, err := json.Marshal(rec)
	if err != nil {
		fmt.Fprintf(buf, "%s [%s] %s", ts, level, msg)
		return
	}
	buf.Write(data)
}

func (l *Logger) renderText(buf *bytes.Buffer, ts string, level Level, msg, caller string, fields map[string]any) {
	fmt.Fprintf(buf, "%s %-5s %s", ts, level, msg)
	if caller != "" {
		fmt.Fprintf(buf, " caller=%s", caller)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, " %s=%v", k, fields[k])
	}
}

// Field helpers for the engine's recurring keys.
func AccountID(id string) Field     { return String("account_id", id) }
func BadgeID(id string) Field       { return String("badge_id", id) }
func EventID(id string) Field       { return String("event_id", id) }
func PointsDelta(delta int) Field   { return Int("points_delta", delta) }
func LevelValue(level int) Field    { return Int("level", level) }
func StreakValue(streak int) Field  { return Int("streak", streak) }
func RankPosition(pos int) Field    { return Int("rank_position", pos) }
func Attempt(n int) Field           { return Int("attempt", n) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }

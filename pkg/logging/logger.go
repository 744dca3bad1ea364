package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// reserved keys of every entry; a field with one of these names is written
// as "field.<name>" instead
var reserved = map[string]bool{"time": true, "level": true, "msg": true}

// JSONLogger writes one flat JSON object per entry:
//
//	{"time":"...","level":"info","msg":"view ready","subject":"etl/2024-01-01","seq":3}
//
// Child loggers made by With share the parent's writer and lock, so entries
// from a coordinator and its views never interleave.
type JSONLogger struct {
	out    *output
	level  Level
	fields []Field
}

type output struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewJSONLogger creates a logger writing entries at level or above to w
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{
		out:   &output{w: w, now: time.Now},
		level: level,
	}
}

// NewLogger creates a JSON logger for the named output: "stderr" (or empty),
// "stdout", or a file path opened for append. The returned closer releases
// the file, if any.
func NewLogger(output string, level Level) (*JSONLogger, io.Closer, error) {
	switch output {
	case "", "stderr":
		return NewJSONLogger(os.Stderr, level), io.NopCloser(nil), nil
	case "stdout":
		return NewJSONLogger(os.Stdout, level), io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output %s: %w", output, err)
	}
	return NewJSONLogger(f, level), f, nil
}

// WithClock replaces the entry timestamp source; used by tests
func (l *JSONLogger) WithClock(now func() time.Time) *JSONLogger {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.now = now
	return l
}

// Level returns the minimum level written
func (l *JSONLogger) Level() Level {
	return l.level
}

func (l *JSONLogger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.write(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.write(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.write(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.write(ErrorLevel, msg, fields) }

func (l *JSONLogger) With(fields ...Field) Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &JSONLogger{out: l.out, level: l.level, fields: merged}
}

func (l *JSONLogger) write(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}

	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	entry := make(map[string]any, 3+len(l.fields)+len(fields))
	// later fields override earlier ones with the same key
	for _, set := range [][]Field{l.fields, fields} {
		for _, f := range set {
			key := f.Key
			if reserved[key] {
				key = "field." + key
			}
			entry[key] = f.Value
		}
	}
	entry["time"] = l.out.now().UTC().Format(time.RFC3339Nano)
	entry["level"] = level.String()
	entry["msg"] = msg

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.out.w, `{"level":"error","msg":"unencodable log entry","error":%q}`+"\n", err.Error())
		return
	}
	data = append(data, '\n')
	_, _ = l.out.w.Write(data)
}

// Timer measures one operation and logs it with its latency when stopped
type Timer struct {
	logger Logger
	msg    string
	fields []Field
	start  time.Time
}

// StartTimer starts timing an operation that will be logged as msg
func StartTimer(logger Logger, msg string, fields ...Field) *Timer {
	return &Timer{logger: logger, msg: msg, fields: fields, start: time.Now()}
}

// Elapsed returns the time since the timer started
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// Stop logs the operation at level with the extra fields and returns its duration
func (t *Timer) Stop(level Level, fields ...Field) time.Duration {
	elapsed := t.Elapsed()
	if !t.logger.Enabled(level) {
		return elapsed
	}
	all := make([]Field, 0, len(t.fields)+len(fields)+1)
	all = append(all, t.fields...)
	all = append(all, fields...)
	all = append(all, Latency(elapsed))

	switch level {
	case DebugLevel:
		t.logger.Debug(t.msg, all...)
	case InfoLevel:
		t.logger.Info(t.msg, all...)
	case WarnLevel:
		t.logger.Warn(t.msg, all...)
	default:
		t.logger.Error(t.msg, all...)
	}
	return elapsed
}

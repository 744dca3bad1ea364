package logging

import (
	"fmt"
	"time"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration is written in its String form ("1.5s")
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Error writes err's message under "error"; a nil error writes null
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Component(name string) Field {
	return String("component", name)
}

// Subject identifies the polled subject, formatted "<dag>/<partition>"
func Subject(key fmt.Stringer) Field {
	return String("subject", key.String())
}

func Direction(d fmt.Stringer) Field {
	return String("direction", d.String())
}

func State(s fmt.Stringer) Field {
	return String("state", s.String())
}

// Seq is the sequence number of a fetch or published update
func Seq(n uint64) Field {
	return Uint64("seq", n)
}

// FetchKind is "graph" or "satisfaction"
func FetchKind(kind string) Field {
	return String("fetch_kind", kind)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

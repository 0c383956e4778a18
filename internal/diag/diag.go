// Package diag is the write-only diagnostic channel used while parsing
// crontabs. Every discarded line and every unreadable file is recorded here
// with its file name, line number and error tag.
package diag

import (
	"sync"
	"time"

	logx "crontabs/pkg/logx"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Sink receives diagnostics. Implementations must be safe for concurrent use.
type Sink interface {
	Record(sev Severity, file string, line int, msg string)
}

// Record is one captured diagnostic.
type Record struct {
	Time     time.Time `json:"time"`
	Severity Severity  `json:"severity"`
	File     string    `json:"file"`
	Line     int       `json:"line"`
	Message  string    `json:"message"`
}

type nopSink struct{}

func (nopSink) Record(Severity, string, int, string) {}

// Nop discards everything.
func Nop() Sink { return nopSink{} }

// LogSink forwards diagnostics to a logx.Logger, one write at a time.
type LogSink struct {
	mu  sync.Mutex
	log logx.Logger
}

func NewLogSink(log logx.Logger) *LogSink {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Record(sev Severity, file string, line int, msg string) {
	fields := []logx.Field{logx.String("file", file)}
	if line > 0 {
		fields = append(fields, logx.Int("line", line))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.log.Log(sev.level(), msg, fields...)
}

func (s Severity) level() logx.Level {
	switch s {
	case SeverityDebug:
		return logx.LevelDebug
	case SeverityInfo:
		return logx.LevelInfo
	case SeverityWarn:
		return logx.LevelWarn
	default:
		return logx.LevelError
	}
}

// Collector keeps diagnostics in memory.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

func NewCollector() *Collector { return &Collector{} }

func (c *Collector) Record(sev Severity, file string, line int, msg string) {
	c.mu.Lock()
	c.records = append(c.records, Record{Time: time.Now(), Severity: sev, File: file, Line: line, Message: msg})
	c.mu.Unlock()
}

// Records returns a copy of everything recorded so far.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Count returns the number of records at or above min.
func (c *Collector) Count(min Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.Severity >= min {
			n++
		}
	}
	return n
}

type multi []Sink

func (m multi) Record(sev Severity, file string, line int, msg string) {
	for _, s := range m {
		s.Record(sev, file, line, msg)
	}
}

// Multi fans a record out to every non-nil sink.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"crontabs/internal/crontab"
	"crontabs/internal/loader"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": Path is the report prefix
//   - "sqlite": Path is the database file
//   - "postgres": DSN is a lib/pq connection string or URL
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Scan is one exported directory scan.
type Scan struct {
	ID       string          `json:"id"`
	At       time.Time       `json:"at"`
	Dir      string          `json:"dir"`
	Files    int             `json:"files"`
	Entries  []EntryRecord   `json:"entries"`
	Failures []FailureRecord `json:"failures,omitempty"`
}

type EntryRecord struct {
	File     string     `json:"file"`
	Line     int        `json:"line"`
	Owner    string     `json:"owner"`
	Schedule string     `json:"schedule"`
	Flags    string     `json:"flags,omitempty"`
	Command  string     `json:"command"`
	Next     *time.Time `json:"next,omitempty"`
}

type FailureRecord struct {
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewScan flattens a loader result into a report, computing each entry's
// next occurrence at or after now.
func NewScan(res *loader.Result, now time.Time) Scan {
	sc := Scan{ID: uuid.NewString(), At: now, Dir: res.Dir, Files: len(res.Files)}
	for _, f := range res.Files {
		if f.Err != nil {
			sc.Failures = append(sc.Failures, FailureRecord{
				File:    f.Path,
				Code:    failureCode(f.Err),
				Message: f.Err.Error(),
			})
		}
		for _, pe := range f.Errors {
			msg := pe.Code.String()
			if pe.Err != nil {
				msg = pe.Err.Error()
			}
			sc.Failures = append(sc.Failures, FailureRecord{File: pe.File, Line: pe.Line, Code: pe.Code.String(), Message: msg})
		}
		for _, e := range f.Entries {
			rec := EntryRecord{
				File:     e.File,
				Line:     e.Line,
				Owner:    e.Owner.Name,
				Schedule: e.Schedule(),
				Flags:    e.Flags.String(),
				Command:  e.Command,
			}
			if t, ok := e.Next(now); ok {
				rec.Next = &t
			}
			sc.Entries = append(sc.Entries, rec)
		}
	}
	return sc
}

func failureCode(err error) string {
	if c := crontab.CodeOf(err); c != crontab.CodeNone {
		return c.String()
	}
	return "unreadable-file"
}

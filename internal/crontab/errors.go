package crontab

import (
	"errors"
	"fmt"
)

// Code tags why an entry was discarded.
type Code int

const (
	CodeNone Code = iota
	CodeMinute
	CodeHour
	CodeDayOfMonth
	CodeMonth
	CodeDayOfWeek
	CodeCommand
	CodeTimeSpec
	CodeUsername
	CodeOption
	CodeMemory
)

var codeTags = [...]string{
	CodeNone:       "no-error",
	CodeMinute:     "bad-minute",
	CodeHour:       "bad-hour",
	CodeDayOfMonth: "bad-day-of-month",
	CodeMonth:      "bad-month",
	CodeDayOfWeek:  "bad-day-of-week",
	CodeCommand:    "bad-command",
	CodeTimeSpec:   "bad-time-specifier",
	CodeUsername:   "bad-username",
	CodeOption:     "bad-option",
	CodeMemory:     "out-of-memory-or-formatting",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeTags) {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return codeTags[c]
}

// ParseError describes one discarded crontab line.
type ParseError struct {
	File string
	Line int
	Code Code
	Err  error
}

func (e *ParseError) Error() string {
	msg := e.Detail()
	if e.File == "" {
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
}

// Detail is the tag and cause without the file position.
func (e *ParseError) Detail() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// CodeOf extracts the tag from err, or CodeNone if err is not a *ParseError.
func CodeOf(err error) Code {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeNone
}

var (
	errMissingCommand = errors.New("missing command")
	errNoNewline      = errors.New("command not terminated by newline")
)

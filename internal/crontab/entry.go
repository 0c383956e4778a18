package crontab

import (
	"strings"

	"crontabs/internal/account"
)

// Field bounds. Day-of-week 0 and 7 are both Sunday.
const (
	FirstMinute = 0
	LastMinute  = 59
	FirstHour   = 0
	LastHour    = 23
	FirstDom    = 1
	LastDom     = 31
	FirstMonth  = 1
	LastMonth   = 12
	FirstDow    = 0
	LastDow     = 7
)

// Flags records how an entry was written.
type Flags uint8

const (
	MinuteStar Flags = 1 << iota
	HourStar
	DomStar
	MonthStar
	DowStar
	WhenReboot
	DontLog
)

func (f Flags) Has(x Flags) bool { return f&x != 0 }

func (f Flags) String() string {
	names := []struct {
		f Flags
		s string
	}{
		{MinuteStar, "minute*"},
		{HourStar, "hour*"},
		{DomStar, "dom*"},
		{MonthStar, "month*"},
		{DowStar, "dow*"},
		{WhenReboot, "reboot"},
		{DontLog, "nolog"},
	}
	var parts []string
	for _, n := range names {
		if f.Has(n.f) {
			parts = append(parts, n.s)
		}
	}
	return strings.Join(parts, ",")
}

// Entry is one parsed crontab line. It is built once by Parser and never
// modified afterwards; Env returns copies so callers cannot reach into it.
type Entry struct {
	File string
	Line int

	Owner   account.Account
	Command string

	Minute BitSet
	Hour   BitSet
	Dom    BitSet
	Month  BitSet
	Dow    BitSet
	Flags  Flags

	env *Env
}

// Env returns a copy of the entry's environment.
func (e *Entry) Env() *Env { return e.env.Clone() }

// Environ renders the environment as "NAME=value" strings.
func (e *Entry) Environ() []string { return e.env.Environ() }

func (e *Entry) IsReboot() bool { return e.Flags.Has(WhenReboot) }

func (e *Entry) LogSuppressed() bool { return e.Flags.Has(DontLog) }

// Schedule renders the five calendar fields, or "@reboot".
func (e *Entry) Schedule() string {
	if e.IsReboot() {
		return "@reboot"
	}
	return strings.Join([]string{
		fieldString(e.Minute, e.Flags.Has(MinuteStar), FirstMinute, LastMinute),
		fieldString(e.Hour, e.Flags.Has(HourStar), FirstHour, LastHour),
		fieldString(e.Dom, e.Flags.Has(DomStar), FirstDom, LastDom),
		fieldString(e.Month, e.Flags.Has(MonthStar), FirstMonth, LastMonth),
		fieldString(e.Dow, e.Flags.Has(DowStar), FirstDow, LastDow),
	}, " ")
}

func fieldString(b BitSet, star bool, low, high int) string {
	var full BitSet
	full.setRange(low, high)
	if star && b == full {
		return "*"
	}
	return b.String()
}

package crontab

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxToken bounds a single number or name inside a field.
const maxToken = 100

var (
	monthNames = []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	dowNames   = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
)

type fieldSpec struct {
	name  string
	code  Code
	low   int
	high  int
	names []string
	star  Flags
	bits  func(e *Entry) *BitSet
}

var calendarFields = [...]fieldSpec{
	{"minute", CodeMinute, FirstMinute, LastMinute, nil, MinuteStar, func(e *Entry) *BitSet { return &e.Minute }},
	{"hour", CodeHour, FirstHour, LastHour, nil, HourStar, func(e *Entry) *BitSet { return &e.Hour }},
	{"day-of-month", CodeDayOfMonth, FirstDom, LastDom, nil, DomStar, func(e *Entry) *BitSet { return &e.Dom }},
	{"month", CodeMonth, FirstMonth, LastMonth, monthNames, MonthStar, func(e *Entry) *BitSet { return &e.Month }},
	{"day-of-week", CodeDayOfWeek, FirstDow, LastDow, dowNames, DowStar, func(e *Entry) *BitSet { return &e.Dow }},
}

func (f fieldSpec) check(v int) error {
	if v < f.low || v > f.high {
		return fmt.Errorf("%s %d out of range %d-%d", f.name, v, f.low, f.high)
	}
	return nil
}

// parseList parses `range {"," range}` starting at ch, the field's first
// character. On success it returns the selected bits and the first
// non-blank character after the field. On failure the returned character is
// the offending one; it has been consumed.
func parseList(s *source, f fieldSpec, ch int) (BitSet, int, error) {
	var bits BitSet
	for {
		var err error
		ch, err = parseRange(s, f, &bits, ch)
		if err != nil {
			return 0, ch, err
		}
		if ch != ',' {
			break
		}
		ch = s.next()
	}
	return bits, s.skipBlanks(ch), nil
}

// parseRange handles `"*" | number | number "-" number`, each optionally
// followed by "/" step. A lone number with a step runs to the field's end.
func parseRange(s *source, f fieldSpec, bits *BitSet, ch int) (int, error) {
	var lo, hi int
	if ch == '*' {
		lo, hi = f.low, f.high
		ch = s.next()
		if !isTerm(ch, "/, \t\n") {
			return ch, fmt.Errorf("unexpected %s after '*'", describe(ch))
		}
	} else {
		var err error
		lo, ch, err = parseNumber(s, f.low, f.names, ch, "-/, \t\n")
		if err != nil {
			return ch, err
		}
		switch ch {
		case '-':
			ch = s.next()
			hi, ch, err = parseNumber(s, f.low, f.names, ch, "/, \t\n")
			if err != nil {
				return ch, err
			}
			if lo > hi {
				return ch, fmt.Errorf("range %d-%d: start exceeds end", lo, hi)
			}
		case '/':
			hi = f.high
		default:
			if err := f.check(lo); err != nil {
				return ch, err
			}
			bits.set(lo)
			return ch, nil
		}
	}

	step := 1
	if ch == '/' {
		var err error
		ch = s.next()
		// A step is a count, not an element: no names and no offset.
		step, ch, err = parseNumber(s, 0, nil, ch, ", \t\n")
		if err != nil {
			return ch, err
		}
		if step == 0 {
			return ch, errors.New("step must be positive")
		}
	}

	if err := f.check(lo); err != nil {
		return ch, err
	}
	if err := f.check(hi); err != nil {
		return ch, err
	}
	for v := lo; v <= hi; v += step {
		bits.set(v)
	}
	return ch, nil
}

// parseNumber reads a decimal literal or, when names is non-nil, a
// case-insensitive name resolved to low+index. The token must be followed
// by one of terms.
func parseNumber(s *source, low int, names []string, ch int, terms string) (int, int, error) {
	var buf []byte
	for isDigit(ch) {
		if len(buf)+1 >= maxToken {
			return 0, ch, errors.New("number too long")
		}
		buf = append(buf, byte(ch))
		ch = s.next()
	}
	if len(buf) > 0 {
		if !isTerm(ch, terms) {
			return 0, ch, fmt.Errorf("unexpected %s after %q", describe(ch), buf)
		}
		n, err := strconv.Atoi(string(buf))
		if err != nil {
			return 0, ch, fmt.Errorf("invalid number %q", buf)
		}
		return n, ch, nil
	}

	if names != nil {
		for isAlpha(ch) {
			if len(buf)+1 >= maxToken {
				return 0, ch, errors.New("name too long")
			}
			buf = append(buf, byte(ch))
			ch = s.next()
		}
		if len(buf) > 0 {
			if !isTerm(ch, terms) {
				return 0, ch, fmt.Errorf("unexpected %s after %q", describe(ch), buf)
			}
			for i, name := range names {
				if strings.EqualFold(name, string(buf)) {
					return low + i, ch, nil
				}
			}
			return 0, ch, fmt.Errorf("unknown name %q", buf)
		}
	}

	return 0, ch, fmt.Errorf("unexpected %s", describe(ch))
}

func isTerm(ch int, terms string) bool {
	return ch != eof && strings.IndexByte(terms, byte(ch)) >= 0
}

func describe(ch int) string {
	switch ch {
	case eof:
		return "end of input"
	case '\n':
		return "end of line"
	default:
		return strconv.QuoteRune(rune(ch))
	}
}

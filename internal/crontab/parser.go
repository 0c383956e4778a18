package crontab

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"crontabs/internal/account"
	"crontabs/internal/diag"
	logx "crontabs/pkg/logx"
)

const (
	// MaxCommand bounds the command and username buffers. Longer input is
	// truncated silently.
	MaxCommand = 1000
	// MaxEnvString bounds a rendered "NAME=value" default.
	MaxEnvString = 1000

	DefaultShell = "/bin/sh"
	DefaultPath  = "/usr/bin:/bin"
)

// Options configures a Parser.
type Options struct {
	// File names the crontab in diagnostics and on each Entry.
	File string

	// Owner is set for a per-user crontab. When nil the input is a system
	// crontab and every line carries a username column.
	Owner *account.Account

	// Env is the base environment inherited by every entry. NAME=value lines
	// in the input extend a private copy of it.
	Env *Env

	// Resolver looks up system-crontab usernames. Defaults to account.OS.
	Resolver account.Resolver

	Sink   diag.Sink
	Logger logx.Logger
}

// Parser turns a crontab stream into entries, one per call to Next.
type Parser struct {
	src *source
	opt Options
	env *Env
	log logx.Logger
}

func NewParser(r io.Reader, opt Options) *Parser {
	if opt.Resolver == nil {
		opt.Resolver = account.OS{}
	}
	if opt.Sink == nil {
		opt.Sink = diag.Nop()
	}
	log := opt.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Parser{
		src: newSource(r),
		opt: opt,
		env: opt.Env.Clone(),
		log: log.With(logx.String("file", opt.File)),
	}
}

// Env returns a copy of the base environment as extended by the NAME=value
// lines seen so far.
func (p *Parser) Env() *Env { return p.env.Clone() }

// Next returns the next entry. It returns io.EOF once the input is exhausted
// and a *ParseError for a discarded line; parsing may continue after a
// *ParseError.
func (p *Parser) Next() (*Entry, error) {
	for {
		p.src.skipBlankAndComments()
		line := p.src.line
		ch := p.src.next()
		if ch == eof {
			return nil, io.EOF
		}

		if ch == '_' || isAlpha(ch) {
			if err := p.loadEnv(ch, line); err != nil {
				return nil, err
			}
			continue
		}

		e, last, err := p.loadEntry(ch, line)
		if err != nil {
			p.src.skipLine(last)
			p.log.Debug("discarded crontab line", logx.Int("line", line), logx.Err(err))
			return nil, err
		}
		p.log.Trace("parsed crontab entry",
			logx.Int("line", line),
			logx.String("schedule", e.Schedule()),
			logx.String("user", e.Owner.Name),
		)
		return e, nil
	}
}

func (p *Parser) fail(code Code, line int, err error) *ParseError {
	return &ParseError{File: p.opt.File, Line: line, Code: code, Err: err}
}

// loadEntry parses the remainder of a schedule line whose first character is
// ch. On failure it also returns the last character consumed so the caller
// can discard the rest of the line.
func (p *Parser) loadEntry(ch, line int) (*Entry, int, error) {
	e := &Entry{File: p.opt.File, Line: line}

	if ch == '-' {
		if p.opt.Owner != nil && !p.opt.Owner.Privileged {
			return nil, ch, p.fail(CodeOption, line, errors.New("only privileged crontabs may disable logging"))
		}
		e.Flags |= DontLog
		ch = p.src.next()
	}

	if ch == '@' {
		var err error
		if ch, err = p.loadMacro(e); err != nil {
			return nil, ch, p.fail(CodeTimeSpec, line, err)
		}
		ch = p.src.skipBlanks(ch)
		if ch == eof || ch == '\n' {
			return nil, ch, p.fail(CodeCommand, line, errMissingCommand)
		}
	} else {
		for _, f := range calendarFields {
			if ch == '*' {
				e.Flags |= f.star
			}
			bits, next, err := parseList(p.src, f, ch)
			ch = next
			if err != nil {
				return nil, ch, p.fail(f.code, line, err)
			}
			*f.bits(e) = bits
		}
	}

	if e.Dow.Has(0) || e.Dow.Has(7) {
		e.Dow.set(0)
		e.Dow.set(7)
	}

	// A newline means no command; a star means a sixth calendar field.
	if ch == '\n' || ch == '*' || ch == eof {
		return nil, ch, p.fail(CodeCommand, line, errMissingCommand)
	}
	p.src.pushback(ch)

	owner, ch, err := p.owner(line)
	if err != nil {
		return nil, ch, err
	}
	e.Owner = owner.Sanitized()
	e.env = p.entryEnv(e.Owner, line)

	cmd, ch := p.src.collectUntil(MaxCommand, "\n")
	if ch == eof {
		return nil, ch, p.fail(CodeCommand, line, errNoNewline)
	}
	e.Command = cmd
	return e, ch, nil
}

// owner returns the crontab's owner, or for a system crontab reads and
// resolves the username column. The source is left at the command's first
// character.
func (p *Parser) owner(line int) (account.Account, int, error) {
	if p.opt.Owner != nil {
		return *p.opt.Owner, 0, nil
	}
	name, ch := p.src.collectUntil(MaxCommand, " \t\n")
	if ch == eof || ch == '\n' {
		return account.Account{}, ch, p.fail(CodeCommand, line, errMissingCommand)
	}
	acct, err := p.opt.Resolver.Resolve(name)
	if err != nil {
		return account.Account{}, ch, p.fail(CodeUsername, line, fmt.Errorf("user %q: %w", name, err))
	}
	ch = p.src.skipBlanks(ch)
	if ch == eof || ch == '\n' {
		return account.Account{}, ch, p.fail(CodeCommand, line, errMissingCommand)
	}
	p.src.pushback(ch)
	return acct, 0, nil
}

type macro struct {
	minute, hour, dom, month, dow BitSet
	flags                         Flags
}

func span(low, high int) BitSet {
	var b BitSet
	b.setRange(low, high)
	return b
}

func one(v int) BitSet {
	var b BitSet
	b.set(v)
	return b
}

var (
	allMinutes = span(FirstMinute, LastMinute)
	allHours   = span(FirstHour, LastHour)
	allDoms    = span(FirstDom, LastDom)
	allMonths  = span(FirstMonth, LastMonth)
	allDows    = span(FirstDow, LastDow)
)

var macros = map[string]macro{
	"reboot":   {flags: WhenReboot},
	"yearly":   {one(0), one(0), one(1), one(1), allDows, DowStar},
	"annually": {one(0), one(0), one(1), one(1), allDows, DowStar},
	"monthly":  {one(0), one(0), one(1), allMonths, allDows, DowStar},
	"weekly":   {one(0), one(0), allDoms, allMonths, one(0), DowStar},
	"daily":    {one(0), one(0), allDoms, allMonths, allDows, 0},
	"midnight": {one(0), one(0), allDoms, allMonths, allDows, 0},
	"hourly":   {one(0), allHours, allDoms, allMonths, allDows, HourStar},
}

// loadMacro reads the keyword after '@' and fills e from the macro table.
func (p *Parser) loadMacro(e *Entry) (int, error) {
	word, ch := p.src.collectUntil(MaxCommand, " \t\n")
	m, ok := macros[word]
	if !ok {
		return ch, fmt.Errorf("unknown time specifier @%s", word)
	}
	e.Minute, e.Hour, e.Dom, e.Month, e.Dow = m.minute, m.hour, m.dom, m.month, m.dow
	e.Flags |= m.flags
	return ch, nil
}

// posixUser reports whether entries also get USER alongside LOGNAME.
var posixUser = runtime.GOOS != "windows"

// entryEnv copies the running base environment and fills in the defaults
// the command needs to run as owner. Existing values always win.
func (p *Parser) entryEnv(owner account.Account, line int) *Env {
	env := p.env.Clone()
	defaults := [][2]string{
		{"SHELL", DefaultShell},
		{"HOME", owner.Home},
		{"PATH", DefaultPath},
		{"LOGNAME", owner.Name},
	}
	if posixUser {
		defaults = append(defaults, [2]string{"USER", owner.Name})
	}
	for _, d := range defaults {
		if len(d[0])+1+len(d[1]) >= MaxEnvString {
			if _, ok := env.Get(d[0]); !ok {
				p.opt.Sink.Record(diag.SeverityError, p.opt.File, line,
					fmt.Sprintf("%s: cannot set %s", CodeMemory, d[0]))
			}
			continue
		}
		env.SetDefault(d[0], d[1])
	}
	return env
}

// loadEnv handles a NAME=value line starting with ch. The whole line is
// consumed whether or not it parses. Values are taken literally.
func (p *Parser) loadEnv(ch, line int) error {
	rest, _ := p.src.collectUntil(MaxEnvString, "\n")
	text := string(rune(ch)) + rest
	name, val, ok := splitAssignment(text)
	if !ok {
		return p.fail(CodeMinute, line, fmt.Errorf("unexpected %q", firstWord(text)))
	}
	p.env.Set(name, val)
	p.log.Debug("environment assignment", logx.Int("line", line), logx.String("name", name))
	return nil
}

// splitAssignment splits at the first '='. Blanks around the name and the
// value are dropped, and so is one pair of matching quotes around the value.
// Nothing is expanded and '#' is an ordinary character.
func splitAssignment(s string) (name, val string, ok bool) {
	name, val, ok = strings.Cut(s, "=")
	if !ok {
		return "", "", false
	}
	name = strings.Trim(name, " \t")
	if name == "" || strings.ContainsAny(name, " \t") {
		return "", "", false
	}
	val = strings.Trim(val, " \t\r")
	if n := len(val); n >= 2 && (val[0] == '"' || val[0] == '\'') && val[n-1] == val[0] {
		val = val[1 : n-1]
	}
	return name, val, true
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

// Parse reads r to the end. Each discarded line is recorded on opt.Sink and
// returned alongside the entries that did parse.
func Parse(r io.Reader, opt Options) ([]*Entry, []*ParseError) {
	p := NewParser(r, opt)
	var (
		entries []*Entry
		errs    []*ParseError
	)
	for {
		e, err := p.Next()
		if errors.Is(err, io.EOF) {
			return entries, errs
		}
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				pe = p.fail(CodeNone, p.src.line, err)
			}
			p.opt.Sink.Record(diag.SeverityError, pe.File, pe.Line, pe.Detail())
			errs = append(errs, pe)
			continue
		}
		entries = append(entries, e)
	}
}

// ParseLine parses a single crontab line. A missing trailing newline is
// supplied.
func ParseLine(line string, opt Options) (*Entry, error) {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	e, err := NewParser(strings.NewReader(line), opt).Next()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("crontab: empty line")
	}
	return e, err
}

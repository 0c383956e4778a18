package crontab

import (
	"bufio"
	"io"
	"strings"
)

const eof = -1

// source is a byte reader with one character of pushback and a 1-based
// line counter used for diagnostics.
type source struct {
	r    *bufio.Reader
	line int

	pending int
	pushed  bool
}

func newSource(r io.Reader) *source {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &source{r: br, line: 1}
}

// next returns the next byte or eof. Read errors other than io.EOF are
// treated as end of input; the caller sees a truncated file.
func (s *source) next() int {
	var ch int
	if s.pushed {
		s.pushed = false
		ch = s.pending
	} else {
		b, err := s.r.ReadByte()
		if err != nil {
			return eof
		}
		ch = int(b)
	}
	if ch == '\n' {
		s.line++
	}
	return ch
}

// pushback un-reads ch, which must be the character most recently returned
// by next. Pushing back eof is a no-op.
func (s *source) pushback(ch int) {
	if ch == eof {
		return
	}
	s.pending = ch
	s.pushed = true
	if ch == '\n' {
		s.line--
	}
}

// skipBlankAndComments leaves the source at the first character of the next
// line that is neither blank nor a comment, or at end of input.
func (s *source) skipBlankAndComments() {
	for {
		ch := s.skipBlanks(s.next())
		if ch == eof {
			return
		}
		if ch != '\n' && ch != '#' {
			s.pushback(ch)
			return
		}
		s.skipLine(ch)
	}
}

// collectUntil reads into a buffer of at most max-1 bytes until one of terms
// (or end of input) is seen. Longer input is silently truncated. The
// terminating character is returned and consumed.
func (s *source) collectUntil(max int, terms string) (string, int) {
	var b strings.Builder
	for {
		ch := s.next()
		if ch == eof || strings.IndexByte(terms, byte(ch)) >= 0 {
			return b.String(), ch
		}
		if b.Len() < max-1 {
			b.WriteByte(byte(ch))
		}
	}
}

// skipBlanks consumes blanks starting at ch and returns the first non-blank.
func (s *source) skipBlanks(ch int) int {
	for isBlank(ch) {
		ch = s.next()
	}
	return ch
}

// skipLine discards input through the next newline. ch is the character
// most recently read; if it already is a newline nothing more is consumed.
func (s *source) skipLine(ch int) {
	for ch != '\n' && ch != eof {
		ch = s.next()
	}
}

func isBlank(ch int) bool { return ch == ' ' || ch == '\t' }

func isDigit(ch int) bool { return ch >= '0' && ch <= '9' }

func isAlpha(ch int) bool { return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') }

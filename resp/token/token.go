// Package token splits SEED RESP text into field tokens.
//
// A RESP line has the shape
//
//	B053F07     A0 normalization factor:  +1.00000E+00
//	B053F10-13    0  +0.00000E+00  +0.00000E+00  +0.00000E+00  +0.00000E+00
//	B061F09       0  -1.09707E-03
//
// i.e. a blockette number, a field number (or field range) and either a
// "label: value" pair or a bare value list. Blank lines and lines starting
// with '#' are skipped.
package token

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Errors returned by [Scanner.Next].
var (
	ErrMalformedLine = errors.New("token: malformed line")
	ErrStream        = errors.New("token: stream read failed")
)

// MalformedLineError reports a non-blank, non-comment line that is not a
// RESP field line. It is not fatal: the next call to Next continues with the
// following line.
type MalformedLineError struct {
	Line int
	Text string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("token: line %d: malformed line %q", e.Line, e.Text)
}

func (e *MalformedLineError) Unwrap() error { return ErrMalformedLine }

// StreamError wraps a read failure of the underlying reader. It is fatal.
// errors.Is matches both ErrStream and the source error.
type StreamError struct {
	Line int
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("token: read failed after line %d: %v", e.Line, e.Err)
}

func (e *StreamError) Unwrap() []error { return []error{ErrStream, e.Err} }

// Token is one field line.
type Token struct {
	Line      int
	Blockette int
	Field     int
	// FieldEnd is the last field of a range code such as F10-13, or equal
	// to Field for single fields.
	FieldEnd int
	Label    string
	Value    string
	// Start is set on the first token of a blockette record.
	Start bool
}

// Code renders the field code, e.g. "B053F10-13".
func (t Token) Code() string {
	if t.FieldEnd != t.Field {
		return fmt.Sprintf("B%03dF%02d-%02d", t.Blockette, t.Field, t.FieldEnd)
	}
	return fmt.Sprintf("B%03dF%02d", t.Blockette, t.Field)
}

// Fields splits Value on white space.
func (t Token) Fields() []string {
	return strings.Fields(t.Value)
}

func (t Token) String() string {
	if t.Label != "" {
		return t.Code() + " " + t.Label + ": " + t.Value
	}
	return t.Code() + " " + t.Value
}

// Scanner reads tokens lazily from a reader. It is not seekable; to restart,
// open the source again.
type Scanner struct {
	r       *bufio.Reader
	line    int
	skipped int
	last    Token
	started bool
	done    bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

// Line returns the number of lines consumed so far, comments included.
func (s *Scanner) Line() int { return s.line }

// Skipped returns the number of blank and comment lines seen so far.
func (s *Scanner) Skipped() int { return s.skipped }

// Next returns the next token. At the end of input it returns io.EOF.
// A malformed line yields a *MalformedLineError and scanning may continue.
// A read failure yields a *StreamError; every later call returns io.EOF.
func (s *Scanner) Next() (Token, error) {
	for {
		if s.done {
			return Token{}, io.EOF
		}
		raw, err := s.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			s.done = true
			return Token{}, &StreamError{Line: s.line, Err: err}
		}
		if errors.Is(err, io.EOF) {
			s.done = true
			if raw == "" {
				return Token{}, io.EOF
			}
		}
		s.line++

		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, "#") {
			s.skipped++
			continue
		}

		tok, ok := parseLine(text)
		if !ok {
			return Token{}, &MalformedLineError{Line: s.line, Text: text}
		}
		tok.Line = s.line
		tok.Start = !s.started || tok.Blockette != s.last.Blockette || tok.Field < s.last.Field
		s.started = true
		s.last = tok
		return tok, nil
	}
}

// parseLine parses "BxxxFyy[-zz] rest".
func parseLine(text string) (Token, bool) {
	code, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexByte(code, '\t'); i >= 0 {
		code, rest = text[:i], text[i+1:]
	}
	if len(code) < 6 || code[0] != 'B' {
		return Token{}, false
	}
	fpos := strings.IndexByte(code, 'F')
	if fpos < 2 {
		return Token{}, false
	}
	blockette, err := strconv.Atoi(code[1:fpos])
	if err != nil {
		return Token{}, false
	}
	fieldPart := code[fpos+1:]
	first, last, isRange := strings.Cut(fieldPart, "-")
	field, err := strconv.Atoi(first)
	if err != nil {
		return Token{}, false
	}
	fieldEnd := field
	if isRange {
		fieldEnd, err = strconv.Atoi(last)
		if err != nil || fieldEnd < field {
			return Token{}, false
		}
	}

	tok := Token{Blockette: blockette, Field: field, FieldEnd: fieldEnd}
	rest = strings.TrimSpace(rest)
	if !isRange {
		if label, value, ok := strings.Cut(rest, ":"); ok {
			tok.Label = strings.TrimSpace(label)
			tok.Value = strings.TrimSpace(value)
			return tok, true
		}
	}
	tok.Value = rest
	return tok, true
}

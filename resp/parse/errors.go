package parse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors returned by the parser and selector.
var (
	ErrNotFound       = errors.New("parse: no matching channel epoch")
	ErrNumericField   = errors.New("parse: invalid numeric field")
	ErrMissingField   = errors.New("parse: missing field")
	ErrInvalidField   = errors.New("parse: invalid field")
	ErrOutsideChannel = errors.New("parse: stage blockette outside a channel")
	ErrDuplicate      = errors.New("parse: duplicate stage blockette")
	ErrInvalidCode    = errors.New("parse: invalid code")
)

// NumericFieldError reports a field whose value is not a valid number or
// date.
type NumericFieldError struct {
	Line  int
	Code  string
	Value string
	Err   error
}

func (e *NumericFieldError) Error() string {
	return fmt.Sprintf("parse: line %d: %s: invalid value %q: %v", e.Line, e.Code, e.Value, e.Err)
}

func (e *NumericFieldError) Unwrap() []error { return []error{ErrNumericField, e.Err} }

// NotFoundError reports a selection that matched nothing.
type NotFoundError struct {
	Filter Filter
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	b.WriteString("parse: no channel epoch matches")
	list := func(name string, v []string) {
		if len(v) > 0 {
			fmt.Fprintf(&b, " %s=%s", name, strings.Join(v, ","))
		}
	}
	list("net", e.Filter.Networks)
	list("sta", e.Filter.Stations)
	list("loc", e.Filter.Locations)
	list("cha", e.Filter.Channels)
	if !e.Filter.Time.IsZero() {
		fmt.Fprintf(&b, " time=%s", e.Filter.Time.UTC().Format(time.RFC3339))
	}
	return b.String()
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

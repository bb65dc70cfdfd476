package resp

import (
	"errors"
	"fmt"
)

// Errors returned by the engine.
var (
	ErrEmptyCascade          = errors.New("resp: response has no stages")
	ErrNonPositiveFrequency  = errors.New("resp: frequency must be positive")
	ErrUnsupportedStage      = errors.New("resp: unsupported stage")
	ErrStructural            = errors.New("resp: structural violation")
	ErrNoReferenceFrequency  = errors.New("resp: no reference frequency for sensitivity")
	ErrZeroSensitivity       = errors.New("resp: cascade has no gain at reference frequency")
	ErrStageRange            = errors.New("resp: stage range selects no stages")
	ErrMissingSampleRate     = errors.New("resp: digital stage without input sample rate")
	ErrInvalidFrequencyRange = errors.New("resp: invalid frequency range")
)

// NonPositiveFrequencyError reports the first requested frequency that is
// not strictly positive and finite.
type NonPositiveFrequencyError struct {
	Index     int
	Frequency float64
}

func (e *NonPositiveFrequencyError) Error() string {
	return fmt.Sprintf("resp: frequency[%d] = %g must be positive", e.Index, e.Frequency)
}

func (e *NonPositiveFrequencyError) Unwrap() error { return ErrNonPositiveFrequency }

// UnsupportedStageError reports a stage the evaluator cannot handle, such as
// a polynomial (blockette 62) or a response list (blockette 55).
type UnsupportedStageError struct {
	Sequence int
	What     string
}

func (e *UnsupportedStageError) Error() string {
	if e.Sequence > 0 {
		return fmt.Sprintf("resp: stage %d: unsupported %s", e.Sequence, e.What)
	}
	return fmt.Sprintf("resp: unsupported %s", e.What)
}

func (e *UnsupportedStageError) Unwrap() error { return ErrUnsupportedStage }

package units

import (
	"fmt"
	"strings"
)

// Target is the ground-motion quantity a response is expressed against.
// Default keeps the cascade's own input unit.
type Target int

const (
	Default Target = iota
	Displacement
	Velocity
	Acceleration
)

func (t Target) String() string {
	switch t {
	case Default:
		return "DEF"
	case Displacement:
		return "DIS"
	case Velocity:
		return "VEL"
	case Acceleration:
		return "ACC"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// Order returns the derivative order of t. Default has no order and
// reports -1.
func (t Target) Order() int {
	switch t {
	case Displacement:
		return 0
	case Velocity:
		return 1
	case Acceleration:
		return 2
	default:
		return -1
	}
}

// ParseTarget accepts def, dis, vel, acc and their long forms.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "def", "default":
		return Default, nil
	case "dis", "disp", "displacement":
		return Displacement, nil
	case "vel", "velocity":
		return Velocity, nil
	case "acc", "accel", "acceleration":
		return Acceleration, nil
	}
	return Default, &UnknownUnitError{Name: s}
}

// Conversion returns the power n of (jω) and the scale factor that turn a
// response with input unit from into one expressed against to.
//
// n is Order(to) - Order(from) and may be negative. The scale factor
// re-expresses scaled units (nm/s, gal) in SI. A Default target yields
// (0, 1, nil) regardless of from.
func Conversion(from Unit, to Target) (int, float64, error) {
	if to == Default {
		return 0, 1, nil
	}
	if to.Order() < 0 {
		return 0, 0, &UnknownUnitError{Name: to.String()}
	}
	if from.Dimension != Motion {
		return 0, 0, &IncompatibleUnitsError{From: from, To: to}
	}
	scale := 1.0
	if from.Scale != 0 {
		scale = 1 / from.Scale
	}
	return to.Order() - from.Order, scale, nil
}

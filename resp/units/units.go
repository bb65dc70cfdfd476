package units

import (
	"errors"
	"fmt"
	"strings"
)

// Errors returned by the registry.
var (
	ErrUnknownUnit       = errors.New("units: unknown unit")
	ErrIncompatibleUnits = errors.New("units: incompatible units")
)

// UnknownUnitError reports a unit name the registry cannot resolve.
type UnknownUnitError struct {
	Name string
}

func (e *UnknownUnitError) Error() string {
	return fmt.Sprintf("units: unknown unit %q", e.Name)
}

func (e *UnknownUnitError) Unwrap() error { return ErrUnknownUnit }

// IncompatibleUnitsError reports a conversion between different physical
// dimensions, e.g. pressure to velocity.
type IncompatibleUnitsError struct {
	From Unit
	To   Target
}

func (e *IncompatibleUnitsError) Error() string {
	return fmt.Sprintf("units: cannot convert %s (%s) to %s", e.From.Name, e.From.Dimension, e.To)
}

func (e *IncompatibleUnitsError) Unwrap() error { return ErrIncompatibleUnits }

// Dimension is the physical quantity a unit measures.
type Dimension int

// Supported dimensions. Undeclared is the zero value and marks stages whose
// blockettes carry no unit fields (gain-only and decimation-only stages).
const (
	Undeclared Dimension = iota
	Motion
	Rotation
	Pressure
	Temperature
	Voltage
	Current
	Counts
	MagneticField
	Strain
)

var dimensionNames = [...]string{
	Undeclared:    "undeclared",
	Motion:        "motion",
	Rotation:      "rotation",
	Pressure:      "pressure",
	Temperature:   "temperature",
	Voltage:       "voltage",
	Current:       "current",
	Counts:        "counts",
	MagneticField: "magnetic field",
	Strain:        "strain",
}

func (d Dimension) String() string {
	if d < 0 || int(d) >= len(dimensionNames) {
		return fmt.Sprintf("Dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Unit is a resolved response unit.
//
// Order is the number of time derivatives separating the unit from the
// zeroth-order quantity of its dimension (displacement for motion, angle for
// rotation). Scale converts one unit into the SI base unit of its dimension,
// so nanometres have Scale 1e-9.
type Unit struct {
	Name      string
	Dimension Dimension
	Order     int
	Scale     float64
}

// Declared reports whether u came from a unit field.
func (u Unit) Declared() bool {
	return u.Dimension != Undeclared
}

// SameAs reports whether u and v describe the same physical quantity at the
// same derivative order, ignoring display scale.
func (u Unit) SameAs(v Unit) bool {
	return u.Dimension == v.Dimension && u.Order == v.Order
}

func (u Unit) String() string {
	if !u.Declared() {
		return "undeclared"
	}
	return u.Name
}

// DerivativeOrder returns u.Order: 0 for displacement-class units, 1 for
// velocity, 2 for acceleration. Non-motion units report the order within
// their own dimension.
func DerivativeOrder(u Unit) int {
	return u.Order
}

// Lookup resolves a unit name.
//
// Matching is case-insensitive and tolerates the RESP "CODE - Description"
// form, common spelling variants (M/SEC, M/S/S, M/S^2) and descriptive
// aliases such as "velocity".
func Lookup(name string) (Unit, error) {
	code, desc := splitDescription(name)
	if u, ok := registry[canonical(code)]; ok {
		return u, nil
	}
	if desc != "" {
		if u, ok := fromDescription(desc); ok {
			return u, nil
		}
	}
	if u, ok := fromDescription(code); ok {
		return u, nil
	}
	return Unit{}, &UnknownUnitError{Name: strings.TrimSpace(name)}
}

// MustLookup is like Lookup but panics on failure. Intended for tests and
// package-level tables.
func MustLookup(name string) Unit {
	u, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return u
}

func splitDescription(name string) (code, desc string) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, " - "); i >= 0 {
		return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+3:])
	}
	return name, ""
}

func canonical(code string) string {
	s := strings.ToUpper(code)
	s = strings.Join(strings.Fields(s), "")
	s = strings.NewReplacer("^", "**", "(", "", ")", "", "SECONDS", "S", "SECOND", "S", "SEC", "S").Replace(s)
	s = strings.ReplaceAll(s, "/S/S", "/S**2")
	return s
}

// fromDescription matches free text such as "Velocity in Meters Per Second".
func fromDescription(desc string) (Unit, bool) {
	d := strings.ToUpper(desc)
	switch {
	case strings.Contains(d, "ACCELERATION"):
		return registry["M/S**2"], true
	case strings.Contains(d, "VELOCITY"):
		return registry["M/S"], true
	case strings.Contains(d, "DISPLACEMENT"):
		return registry["M"], true
	case strings.Contains(d, "COUNT"):
		return registry["COUNTS"], true
	case strings.Contains(d, "VOLT"):
		return registry["V"], true
	case strings.Contains(d, "PASCAL"), strings.Contains(d, "PRESSURE"):
		return registry["PA"], true
	case strings.Contains(d, "DEGREES C"), strings.Contains(d, "CELSIUS"), strings.Contains(d, "TEMPERATURE"):
		return registry["C"], true
	case strings.Contains(d, "TESLA"):
		return registry["T"], true
	}
	return Unit{}, false
}

func motion(name string, order int, scale float64) Unit {
	return Unit{Name: name, Dimension: Motion, Order: order, Scale: scale}
}

func unit(name string, dim Dimension, order int, scale float64) Unit {
	return Unit{Name: name, Dimension: dim, Order: order, Scale: scale}
}

const standardGravity = 9.80665

var registry = func() map[string]Unit {
	m := map[string]Unit{}
	add := func(u Unit, aliases ...string) {
		m[u.Name] = u
		for _, a := range aliases {
			m[a] = u
		}
	}

	add(motion("M", 0, 1), "METER", "METERS", "DIS", "DISPLACEMENT")
	add(motion("CM", 0, 1e-2))
	add(motion("MM", 0, 1e-3))
	add(motion("UM", 0, 1e-6))
	add(motion("NM", 0, 1e-9))

	add(motion("M/S", 1, 1), "VEL", "VELOCITY", "METERS/S")
	add(motion("CM/S", 1, 1e-2))
	add(motion("MM/S", 1, 1e-3))
	add(motion("UM/S", 1, 1e-6))
	add(motion("NM/S", 1, 1e-9))

	add(motion("M/S**2", 2, 1), "ACC", "ACCELERATION", "M/S2")
	add(motion("CM/S**2", 2, 1e-2), "CM/S2")
	add(motion("MM/S**2", 2, 1e-3), "MM/S2")
	add(motion("NM/S**2", 2, 1e-9), "NM/S2")
	add(motion("GAL", 2, 1e-2))
	add(motion("MGAL", 2, 1e-5))
	add(motion("G", 2, standardGravity))

	add(unit("RAD", Rotation, 0, 1), "RADIANS")
	add(unit("RAD/S", Rotation, 1, 1))
	add(unit("RAD/S**2", Rotation, 2, 1), "RAD/S2")

	add(unit("COUNTS", Counts, 0, 1), "COUNT", "DU", "DIGITALCOUNTS", "CNT")

	add(unit("V", Voltage, 0, 1), "VOLT", "VOLTS")
	add(unit("MV", Voltage, 0, 1e-3))
	add(unit("UV", Voltage, 0, 1e-6))

	add(unit("A", Current, 0, 1), "AMPERE", "AMPERES")
	add(unit("MA", Current, 0, 1e-3))

	add(unit("PA", Pressure, 0, 1), "PASCAL", "PASCALS")
	add(unit("HPA", Pressure, 0, 1e2))
	add(unit("KPA", Pressure, 0, 1e3))
	add(unit("MBAR", Pressure, 0, 1e2))
	add(unit("BAR", Pressure, 0, 1e5))

	add(unit("C", Temperature, 0, 1), "DEGC", "CELSIUS")
	add(unit("K", Temperature, 0, 1), "KELVIN")

	add(unit("T", MagneticField, 0, 1), "TESLA")
	add(unit("NT", MagneticField, 0, 1e-9))

	add(unit("M/M", Strain, 0, 1), "STRAIN")
	return m
}()

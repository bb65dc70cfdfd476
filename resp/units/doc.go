// Package units resolves SEED response unit names.
//
// Every [Unit] carries a physical [Dimension], a derivative order within that
// dimension and a display scale. The order drives (jω)^n unit conversion in
// the evaluator; the dimension decides whether a conversion is meaningful at
// all. Converting a pressure response to velocity fails with
// [IncompatibleUnitsError].
package units

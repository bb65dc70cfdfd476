// Package resp models and evaluates seismic instrument responses.
//
// A [Response] is the stage cascade of one channel epoch as described by SEED
// RESP text: analog poles and zeros, FIR and rational digital filters,
// decimation and gain, plus the declared overall sensitivity (stage 0).
// Responses are built by package parse and consumed here by three pure
// operations:
//
//   - [Check] lists structural problems (sequence gaps, unit mismatches,
//     coefficient count errors) without stopping at the first one.
//   - [Normalize] evaluates the cascade at a reference frequency and compares
//     the result with the declared sensitivity.
//   - [Evaluate] computes the complex response over a frequency array with
//     optional displacement/velocity/acceleration conversion.
//
// The package never logs and holds no global state. Evaluation across
// frequencies is independent and runs on a bounded set of goroutines.
package resp

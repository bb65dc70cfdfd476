// Package polyroot finds the roots of real and complex polynomials and
// checks root sets for conjugate symmetry.
package polyroot

import (
	"errors"
	"math"
	"math/cmplx"
)

// ErrDegeneratePolynomial is returned when a polynomial has degenerate
// coefficients (leading coefficient zero, convergence failure, etc.).
var ErrDegeneratePolynomial = errors.New("polyroot: degenerate polynomial")

// Roots returns the roots of the real polynomial
// c[0]*x^n + c[1]*x^(n-1) + ... + c[n]. Leading zero coefficients are
// dropped; a constant polynomial has no roots.
func Roots(c []float64) ([]complex128, error) {
	for len(c) > 0 && c[0] == 0 {
		c = c[1:]
	}
	if len(c) == 0 {
		return nil, ErrDegeneratePolynomial
	}
	if len(c) == 1 {
		return nil, nil
	}
	coeff := make([]complex128, len(c))
	for i, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrDegeneratePolynomial
		}
		coeff[i] = complex(v, 0)
	}
	return DurandKerner(coeff)
}

// DurandKerner finds all roots of a polynomial using the Durand-Kerner
// (Weierstrass) simultaneous iteration method. Coefficients are in descending
// power order: coeff[0]*z^n + coeff[1]*z^(n-1) + ... + coeff[n].
//
//nolint:cyclop
func DurandKerner(coeff []complex128) ([]complex128, error) {
	if len(coeff) < 2 {
		return nil, ErrDegeneratePolynomial
	}

	lead := coeff[0]
	if lead == 0 {
		return nil, ErrDegeneratePolynomial
	}

	n := len(coeff) - 1

	norm := make([]complex128, len(coeff))
	for i := range coeff {
		norm[i] = coeff[i] / lead
	}

	radius := 0.0
	for i := 1; i <= n; i++ {
		if r := cmplx.Abs(norm[i]); r > radius {
			radius = r
		}
	}

	if radius < 1 {
		radius = 1
	}

	roots := make([]complex128, n)
	for i := range n {
		angle := 2*math.Pi*float64(i)/float64(n) + 0.3
		r := radius * (1 + 0.1*float64(i)/float64(n))
		roots[i] = complex(r*math.Cos(angle), r*math.Sin(angle))
	}

	const (
		maxIter = 500
		tol     = 1e-12
	)

	for range maxIter {
		maxDelta := 0.0

		for i := range n {
			den := complex(1, 0)

			for j := range n {
				if i == j {
					continue
				}

				den *= roots[i] - roots[j]
			}

			if cmplx.Abs(den) == 0 {
				roots[i] += complex(1e-10, 1e-10)
				continue
			}

			delta := PolyEval(norm, roots[i]) / den

			roots[i] -= delta
			if d := cmplx.Abs(delta); d > maxDelta {
				maxDelta = d
			}
		}

		if maxDelta < tol {
			return roots, nil
		}
	}

	maxResidual := 0.0

	for _, r := range roots {
		if res := cmplx.Abs(PolyEval(norm, r)); res > maxResidual {
			maxResidual = res
		}
	}

	if maxResidual < 1e-6 {
		return roots, nil
	}

	return nil, ErrDegeneratePolynomial
}

// PolyEval evaluates a polynomial at x using Horner's method. Coefficients
// are in descending power order: coeff[0]*x^n + ... + coeff[n].
func PolyEval(coeff []complex128, x complex128) complex128 {
	v := coeff[0]
	for i := 1; i < len(coeff); i++ {
		v = v*x + coeff[i]
	}

	return v
}

// ConjugateTol is the relative tolerance for conjugate pair matching.
const ConjugateTol = 1e-7

// IsConjugate checks whether a and b are complex conjugates within tolerance.
func IsConjugate(a, b complex128, tol float64) bool {
	if math.Abs(real(a)-real(b)) > tol*math.Max(1, math.Abs(real(a))) {
		return false
	}

	if math.Abs(imag(a)+imag(b)) > tol*math.Max(1, math.Abs(imag(a))) {
		return false
	}

	return true
}

// IsReal reports whether the imaginary part of a is negligible.
func IsReal(a complex128, tol float64) bool {
	return math.Abs(imag(a)) <= tol*math.Max(1, math.Abs(real(a)))
}

// Unpaired returns the complex roots that have no conjugate partner. Real
// roots are their own conjugate. Each root pairs with at most one other, the
// closest match to its conjugate.
func Unpaired(roots []complex128, tol float64) []complex128 {
	used := make([]bool, len(roots))
	var out []complex128

	for i, root := range roots {
		if used[i] {
			continue
		}
		used[i] = true

		if IsReal(root, tol) {
			continue
		}

		conj := cmplx.Conj(root)
		best := -1
		bestDist := math.MaxFloat64

		for j := range roots {
			if used[j] {
				continue
			}

			if d := cmplx.Abs(roots[j] - conj); d < bestDist {
				bestDist = d
				best = j
			}
		}

		if best == -1 || !IsConjugate(root, roots[best], tol) {
			out = append(out, root)
			continue
		}

		used[best] = true
	}

	return out
}

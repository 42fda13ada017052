package optimize

import "math"

// invGold is (3 - sqrt(5)) / 2, the golden-section step fraction.
const invGold = 0.3819660112501051

// minimizeBrent searches [lower, upper] for a local minimum of f using
// Brent's method, starting the search at x0. It combines golden-section
// steps with parabolic interpolation and never evaluates outside the
// bracket. Returns the best abscissa and value found after convergence or
// maxEvals evaluations, whichever comes first.
//
// f may return +Inf for infeasible points; those never become the running
// best, so the search is steered back into the feasible region.
func minimizeBrent(f func(float64) float64, lower, upper, x0, relTol, absTol float64, maxEvals int) (float64, float64) {
	if x0 < lower || x0 > upper {
		x0 = lower + invGold*(upper-lower)
	}

	x, w, v := x0, x0, x0
	fx := f(x)
	fw, fv := fx, fx
	evals := 1

	var d, e float64
	for evals < maxEvals {
		mid := 0.5 * (lower + upper)
		tol1 := relTol*math.Abs(x) + absTol
		tol2 := 2 * tol1

		if math.Abs(x-mid) <= tol2-0.5*(upper-lower) {
			break
		}

		golden := true
		if math.Abs(e) > tol1 {
			// Fit a parabola through x, w, v.
			r := (x - w) * (fx - fv)
			q := (x - v) * (fx - fw)
			p := (x-v)*q - (x-w)*r
			q = 2 * (q - r)
			if q > 0 {
				p = -p
			}
			q = math.Abs(q)
			prev := e
			e = d

			// Accept the parabolic step only if it falls inside the
			// bracket and shrinks faster than the step before last.
			if math.Abs(p) < math.Abs(0.5*q*prev) && p > q*(lower-x) && p < q*(upper-x) {
				d = p / q
				u := x + d
				if u-lower < tol2 || upper-u < tol2 {
					d = math.Copysign(tol1, mid-x)
				}
				golden = false
			}
		}
		if golden {
			if x < mid {
				e = upper - x
			} else {
				e = lower - x
			}
			d = invGold * e
		}

		var u float64
		if math.Abs(d) >= tol1 {
			u = x + d
		} else {
			u = x + math.Copysign(tol1, d)
		}
		fu := f(u)
		evals++

		if fu <= fx {
			if u >= x {
				lower = x
			} else {
				upper = x
			}
			v, fv = w, fw
			w, fw = x, fx
			x, fx = u, fu
			continue
		}

		if u < x {
			lower = u
		} else {
			upper = u
		}
		if fu <= fw || w == x {
			v, fv = w, fw
			w, fw = u, fu
		} else if fu <= fv || v == x || v == w {
			v, fv = u, fu
		}
	}

	return x, fx
}

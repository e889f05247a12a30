package rating

import "math"

// gaussian is a 1-D Gaussian belief represented in canonical (precision,
// precision-mean) form, the representation used throughout the factor
// graph so that combining independent beliefs about the same variable is
// addition rather than the usual product-of-densities formula.
type gaussian struct {
	pi  float64 // precision = 1/variance
	tau float64 // precision * mean
}

func fromMeanVar(mean, variance float64) gaussian {
	if variance <= 0 {
		variance = 1e-9
	}
	pi := 1 / variance
	return gaussian{pi: pi, tau: mean * pi}
}

func (g gaussian) mean() float64 {
	if g.pi == 0 {
		return 0
	}
	return g.tau / g.pi
}

func (g gaussian) variance() float64 {
	if g.pi <= 0 {
		return math.MaxFloat64
	}
	return 1 / g.pi
}

// mul combines two independent beliefs about the same variable.
func (g gaussian) mul(o gaussian) gaussian {
	return gaussian{pi: g.pi + o.pi, tau: g.tau + o.tau}
}

// div removes a belief previously combined in with mul.
func (g gaussian) div(o gaussian) gaussian {
	return gaussian{pi: g.pi - o.pi, tau: g.tau - o.tau}
}

func stdNormPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func stdNormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// invCDF is the probit function, the inverse of stdNormCDF, built on the
// standard library's Erfinv (no statistics package exists anywhere in the
// example pack, so this is the one piece of the rating model grounded on
// math.Erfinv rather than on a third-party dependency; see DESIGN.md).
func invCDF(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// vWin and wWin are the moment-matching functions for a Gaussian
// truncated to the region (t > eps), used when a game result is a
// strict win (never a draw, since ranks are strictly ordered by the
// deterministic tie-break before they ever reach the rating model).
func vWin(t, eps float64) float64 {
	denom := stdNormCDF(t - eps)
	if denom < 1e-10 {
		return -t + eps
	}
	return stdNormPDF(t-eps) / denom
}

func wWin(t, eps float64) float64 {
	v := vWin(t, eps)
	return v * (v + (t - eps))
}

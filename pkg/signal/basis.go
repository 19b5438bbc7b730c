// Package signal provides the 1-D signal primitives used to build design
// matrix regressors: convolution, cosine (DCT) basis sets and Legendre
// polynomial trends.
package signal

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrBasisTooShort is returned when a cosine basis would have no columns.
var ErrBasisTooShort = errors.New("signal: too few samples for requested filter length")

// Linspace returns n evenly spaced samples over [start, stop].
// A single sample equals start.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	return floats.Span(out, start, stop)
}

// Legendre evaluates the Legendre polynomial of the given degree at every
// point of x using Bonnet's recursion.
func Legendre(degree int, x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		p0, p1 := 1.0, v
		switch degree {
		case 0:
			out[i] = p0
			continue
		case 1:
			out[i] = p1
			continue
		}
		for n := 1; n < degree; n++ {
			fn := float64(n)
			p0, p1 = p1, ((2*fn+1)*v*p1-fn*p0)/(fn+1)
		}
		out[i] = p1
	}
	return out
}

// CosineBasis builds a discrete cosine transform basis for high-pass
// filtering of a series of nsamples taken every samplingPeriod seconds.
//
// The number of basis functions follows SPM: fix(2*(n*TR)/filterLength + 1).
// The constant term is not returned. With unitScale the basis is scaled so
// the first entry of the first column is 1. The first drop columns are
// removed from the result.
func CosineBasis(nsamples int, samplingPeriod, filterLength float64, unitScale bool, drop int) (*mat.Dense, error) {
	if nsamples <= 0 || samplingPeriod <= 0 || filterLength <= 0 {
		return nil, ErrBasisTooShort
	}
	order := int(math.Trunc(2*(float64(nsamples)*samplingPeriod)/filterLength + 1))

	// Column 0 would be the constant, which is discarded
	ncols := order - 1 - drop
	if order-1 <= 0 || ncols <= 0 || drop < 0 {
		return nil, ErrBasisTooShort
	}

	n := float64(nsamples)
	norm := math.Sqrt(2.0 / n)
	scale := 1.0
	if unitScale {
		scale = 1.0 / (norm * math.Cos(math.Pi/(2*n)))
	}

	out := mat.NewDense(nsamples, ncols, nil)
	for c := 0; c < ncols; c++ {
		i := float64(c + 1 + drop)
		for k := 0; k < nsamples; k++ {
			out.Set(k, c, scale*norm*math.Cos(math.Pi*(2*float64(k)+1)*i/(2*n)))
		}
	}
	return out, nil
}

// Package hrf generates hemodynamic response function kernels used to
// convolve stimulus regressors.
//
// All kernels are difference-of-gammas curves sampled every tr/oversampling
// seconds over a 32 s window and normalized to unit sum.
package hrf

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"fmridesign/pkg/signal"
)

// TimeLength is the duration in seconds covered by a kernel.
const TimeLength = 32.0

const (
	timeDerivativeStep       = 0.1
	dispersionDerivativeStep = 0.01
)

// ErrInvalidTR is returned for non-positive repetition times or oversampling.
var ErrInvalidTR = errors.New("hrf: tr and oversampling must be positive")

// ErrUnknownModel is returned by Kernel for unsupported model names.
var ErrUnknownModel = errors.New("hrf: unknown model")

// gammaDifference holds the shape of a difference-of-gammas response.
type gammaDifference struct {
	Delay       float64 // peak delay of the response
	Undershoot  float64 // delay of the undershoot
	Dispersion  float64 // dispersion of the response
	UDispersion float64 // dispersion of the undershoot
	Ratio       float64 // undershoot to response ratio
}

var (
	gloverShape = gammaDifference{Delay: 6, Undershoot: 12, Dispersion: 0.9, UDispersion: 0.9, Ratio: 0.35}
	spmShape    = gammaDifference{Delay: 6, Undershoot: 16, Dispersion: 1, UDispersion: 1, Ratio: 0.167}
)

func (g gammaDifference) sample(tr, oversampling, onset float64) []float64 {
	dt := tr / oversampling
	times := signal.Linspace(0, TimeLength, sampleCount(tr, oversampling))

	peak := distuv.Gamma{Alpha: g.Delay / g.Dispersion, Beta: 1}
	under := distuv.Gamma{Alpha: g.Undershoot / g.UDispersion, Beta: 1}
	peakLoc := dt / g.Dispersion
	underLoc := dt / g.UDispersion

	out := make([]float64, len(times))
	for i, t := range times {
		t -= onset
		out[i] = gammaPDF(peak, t-peakLoc) - g.Ratio*gammaPDF(under, t-underLoc)
	}
	if sum := floats.Sum(out); sum != 0 {
		floats.Scale(1/sum, out)
	}
	return out
}

func gammaPDF(d distuv.Gamma, x float64) float64 {
	if x <= 0 {
		return 0
	}
	return d.Prob(x)
}

// sampleCount is the number of kernel samples over TimeLength, rounded to the
// nearest integer.
func sampleCount(tr, oversampling float64) int {
	return int(math.Round(TimeLength / (tr / oversampling)))
}

func validate(tr, oversampling float64) error {
	if !(tr > 0) || !(oversampling > 0) || math.IsInf(tr, 0) {
		return ErrInvalidTR
	}
	if sampleCount(tr, oversampling) < 2 {
		return fmt.Errorf("%w: tr %.3g too long for a %.0f s kernel", ErrInvalidTR, tr, TimeLength)
	}
	return nil
}

// Glover returns the Glover (1999) canonical HRF.
func Glover(tr, oversampling float64) ([]float64, error) {
	if err := validate(tr, oversampling); err != nil {
		return nil, err
	}
	return gloverShape.sample(tr, oversampling, 0), nil
}

// SPM returns the SPM canonical HRF.
func SPM(tr, oversampling float64) ([]float64, error) {
	if err := validate(tr, oversampling); err != nil {
		return nil, err
	}
	return spmShape.sample(tr, oversampling, 0), nil
}

// GloverTimeDerivative returns the finite-difference time derivative of the
// Glover HRF.
func GloverTimeDerivative(tr, oversampling float64) ([]float64, error) {
	if err := validate(tr, oversampling); err != nil {
		return nil, err
	}
	return timeDerivative(gloverShape, tr, oversampling), nil
}

// SPMTimeDerivative returns the finite-difference time derivative of the SPM
// HRF.
func SPMTimeDerivative(tr, oversampling float64) ([]float64, error) {
	if err := validate(tr, oversampling); err != nil {
		return nil, err
	}
	return timeDerivative(spmShape, tr, oversampling), nil
}

// SPMDispersionDerivative returns the finite-difference derivative of the SPM
// HRF with respect to its dispersion.
func SPMDispersionDerivative(tr, oversampling float64) ([]float64, error) {
	if err := validate(tr, oversampling); err != nil {
		return nil, err
	}
	base := spmShape.sample(tr, oversampling, 0)
	wider := spmShape
	wider.Dispersion += dispersionDerivativeStep
	shifted := wider.sample(tr, oversampling, 0)

	out := make([]float64, len(base))
	for i := range base {
		out[i] = (base[i] - shifted[i]) / dispersionDerivativeStep
	}
	return out, nil
}

func timeDerivative(g gammaDifference, tr, oversampling float64) []float64 {
	base := g.sample(tr, oversampling, 0)
	shifted := g.sample(tr, oversampling, timeDerivativeStep)
	out := make([]float64, len(base))
	for i := range base {
		out[i] = (base[i] - shifted[i]) / timeDerivativeStep
	}
	return out
}

// Stack arranges kernels as the columns of a samples x kernels matrix.
// All kernels must have the same length.
func Stack(kernels ...[]float64) (*mat.Dense, error) {
	if len(kernels) == 0 || len(kernels[0]) == 0 {
		return nil, errors.New("hrf: no kernels to stack")
	}
	n := len(kernels[0])
	out := mat.NewDense(n, len(kernels), nil)
	for j, k := range kernels {
		if len(k) != n {
			return nil, fmt.Errorf("hrf: kernel %d has %d samples, want %d", j, len(k), n)
		}
		out.SetCol(j, k)
	}
	return out, nil
}

// Kernel resolves a model name to a kernel stack sampled at tr with no
// oversampling. Supported models are "glover", "spm", "glover+derivative",
// "spm+derivative" and "spm+derivative+dispersion".
func Kernel(model string, tr float64) (*mat.Dense, error) {
	type generator func(tr, oversampling float64) ([]float64, error)

	var gens []generator
	switch strings.ToLower(strings.TrimSpace(model)) {
	case "", "glover", "hrf":
		gens = []generator{Glover}
	case "spm":
		gens = []generator{SPM}
	case "glover+derivative":
		gens = []generator{Glover, GloverTimeDerivative}
	case "spm+derivative":
		gens = []generator{SPM, SPMTimeDerivative}
	case "spm+derivative+dispersion":
		gens = []generator{SPM, SPMTimeDerivative, SPMDispersionDerivative}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	kernels := make([][]float64, 0, len(gens))
	for _, gen := range gens {
		k, err := gen(tr, 1)
		if err != nil {
			return nil, err
		}
		kernels = append(kernels, k)
	}
	return Stack(kernels...)
}

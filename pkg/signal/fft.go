package signal

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// directCutoff is the kernel length below which direct convolution is used.
// Short HRF kernels sampled at the TR are usually well under this.
const directCutoff = 64

// Convolve returns the full linear convolution of x and kernel, of length
// len(x)+len(kernel)-1. Either input being empty yields nil.
//
// Long inputs are convolved in the frequency domain using gonum's real FFT:
// both sequences are zero padded to the full output length, their spectra are
// multiplied and the product is transformed back.
func Convolve(x, kernel []float64) []float64 {
	if len(x) == 0 || len(kernel) == 0 {
		return nil
	}
	if len(kernel) < directCutoff || len(x) < directCutoff {
		return convolveDirect(x, kernel)
	}
	return convolveFFT(x, kernel)
}

// ConvolveSame convolves x with kernel and truncates the result to len(x),
// aligning the output with the start of x.
func ConvolveSame(x, kernel []float64) []float64 {
	full := Convolve(x, kernel)
	if full == nil {
		return nil
	}
	out := make([]float64, len(x))
	copy(out, full[:len(x)])
	return out
}

func convolveDirect(x, kernel []float64) []float64 {
	out := make([]float64, len(x)+len(kernel)-1)
	for i, xv := range x {
		if xv == 0 {
			continue
		}
		for j, kv := range kernel {
			out[i+j] += xv * kv
		}
	}
	return out
}

// convolveFFT performs the convolution in the frequency domain.
func convolveFFT(x, kernel []float64) []float64 {
	n := len(x) + len(kernel) - 1

	// Create a new FFT object from Gonum
	fft := fourier.NewFFT(n)

	a := make([]float64, n)
	copy(a, x)
	b := make([]float64, n)
	copy(b, kernel)

	fa := fft.Coefficients(nil, a)
	fb := fft.Coefficients(nil, b)

	// Multiply spectra
	for i := range fa {
		fa[i] *= fb[i]
	}

	// Gonum transforms are unnormalized: forward then inverse scales by n
	out := fft.Sequence(nil, fa)
	scale := 1 / float64(n)
	for i := range out {
		out[i] *= scale
	}
	return out
}

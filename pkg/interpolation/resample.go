// Package interpolation resamples regularly sampled time series.
//
// Upsampling interpolates new samples between the originals with one of
// gonum's 1-D interpolators; downsampling aggregates consecutive blocks of
// samples.
package interpolation

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat"
)

// Method selects the interpolator used by Upsample
type Method string

const (
	Linear  Method = "linear"
	Nearest Method = "nearest"
	Next    Method = "next"
	Cubic   Method = "cubic"
	Akima   Method = "akima"
	PCHIP   Method = "pchip"
)

// Aggregate selects how Downsample combines a block of samples
type Aggregate string

const (
	Mean   Aggregate = "mean"
	Median Aggregate = "median"
)

// ErrTooFewSamples is returned when a series is too short to interpolate.
var ErrTooFewSamples = errors.New("interpolation: too few samples")

// ParseMethod converts a name into a Method. The empty string selects Linear.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return Linear, nil
	case Linear, Nearest, Next, Cubic, Akima, PCHIP:
		return m, nil
	default:
		return "", fmt.Errorf("interpolation: unknown method %q", name)
	}
}

// ParseAggregate converts a name into an Aggregate. The empty string selects Mean.
func ParseAggregate(name string) (Aggregate, error) {
	switch a := Aggregate(strings.ToLower(strings.TrimSpace(name))); a {
	case "":
		return Mean, nil
	case Mean, Median:
		return a, nil
	default:
		return "", fmt.Errorf("interpolation: unknown aggregate %q", name)
	}
}

func (m Method) predictor() (interp.FittablePredictor, error) {
	switch m {
	case Linear, "":
		return &interp.PiecewiseLinear{}, nil
	case Nearest:
		return &nearestNeighbor{}, nil
	case Next:
		return &interp.PiecewiseConstant{}, nil
	case Cubic:
		return &interp.NaturalCubic{}, nil
	case Akima:
		return &interp.AkimaSpline{}, nil
	case PCHIP:
		return &interp.FritschButland{}, nil
	default:
		return nil, fmt.Errorf("interpolation: unknown method %q", string(m))
	}
}

// nearestNeighbor predicts the value of the closest fitted point. Ties go to
// the later point.
type nearestNeighbor struct {
	xs, ys []float64
}

func (nn *nearestNeighbor) Fit(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("interpolation: %d positions but %d values", len(xs), len(ys))
	}
	if len(xs) < 1 {
		return ErrTooFewSamples
	}
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return fmt.Errorf("interpolation: positions must be strictly increasing")
		}
	}
	nn.xs = append(nn.xs[:0], xs...)
	nn.ys = append(nn.ys[:0], ys...)
	return nil
}

func (nn *nearestNeighbor) Predict(x float64) float64 {
	i := sort.SearchFloat64s(nn.xs, x)
	switch {
	case i == 0:
		return nn.ys[0]
	case i == len(nn.xs):
		return nn.ys[len(nn.ys)-1]
	case x-nn.xs[i-1] < nn.xs[i]-x:
		return nn.ys[i-1]
	default:
		return nn.ys[i]
	}
}

// UpsampleCount returns the number of samples Upsample produces for a series
// of n samples: positions 0, step, 2*step, ... strictly below n-1.
func UpsampleCount(n int, step float64) int {
	if n < 2 || !(step > 0) {
		return 0
	}
	return int(math.Ceil(float64(n-1) / step))
}

// Upsample evaluates the series y, indexed 0..len(y)-1, at positions spaced
// step apart starting at 0 and ending before the last sample.
func Upsample(y []float64, step float64, method Method) ([]float64, error) {
	if len(y) < 2 {
		return nil, ErrTooFewSamples
	}
	if !(step > 0) {
		return nil, fmt.Errorf("interpolation: step must be positive, got %g", step)
	}

	pred, err := method.predictor()
	if err != nil {
		return nil, err
	}

	xs := make([]float64, len(y))
	for i := range xs {
		xs[i] = float64(i)
	}
	if err := pred.Fit(xs, y); err != nil {
		return nil, fmt.Errorf("interpolation: fit %s: %w", method, err)
	}

	out := make([]float64, UpsampleCount(len(y), step))
	for i := range out {
		out[i] = pred.Predict(float64(i) * step)
	}
	return out, nil
}

// DownsampleCount returns the number of samples Downsample produces.
func DownsampleCount(n, factor int) int {
	if n <= 0 || factor <= 0 {
		return 0
	}
	return (n + factor - 1) / factor
}

// Downsample aggregates consecutive blocks of factor samples. The last block
// holds whatever remains and may be shorter.
func Downsample(y []float64, factor int, agg Aggregate) ([]float64, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("interpolation: factor must be positive, got %d", factor)
	}
	if agg == "" {
		agg = Mean
	}
	if agg != Mean && agg != Median {
		return nil, fmt.Errorf("interpolation: unknown aggregate %q", string(agg))
	}

	out := make([]float64, DownsampleCount(len(y), factor))
	block := make([]float64, 0, factor)
	for i := range out {
		start := i * factor
		end := start + factor
		if end > len(y) {
			end = len(y)
		}
		block = append(block[:0], y[start:end]...)
		if agg == Median {
			out[i] = median(block)
		} else {
			out[i] = stat.Mean(block, nil)
		}
	}
	return out, nil
}

// median sorts values in place. Even-length blocks average the two middle
// values.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

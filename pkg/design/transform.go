package design

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"fmridesign/pkg/interpolation"
)

// ZScore standardizes the named columns to zero mean and unit sample standard
// deviation. With no names every non-trend column is standardized. Other
// columns are copied unchanged.
func (m *Matrix) ZScore(columns ...string) (*Matrix, error) {
	targets, err := m.resolveColumns(columns, true)
	if err != nil {
		return nil, err
	}
	isTarget := make(map[string]bool, len(targets))
	for _, name := range targets {
		isTarget[name] = true
	}

	cols := make([][]float64, len(m.columns))
	for j, name := range m.columns {
		cols[j] = m.colAt(j)
		if !isTarget[name] {
			continue
		}
		mean, std := stat.MeanStdDev(cols[j], nil)
		for i := range cols[j] {
			cols[j][i] = (cols[j][i] - mean) / std
		}
	}
	return m.buildFromColumns(cols, m.columns, m.rows), nil
}

// Upsample interpolates the matrix to a higher sampling frequency. New
// samples are placed every samplingFreq/target rows starting at the first
// row and stopping before the last one, so n rows become
// ceil((n-1)*target/samplingFreq).
func (m *Matrix) Upsample(target float64, method interpolation.Method) (*Matrix, error) {
	if err := checkFreq(target); err != nil {
		return nil, err
	}
	if target <= m.samplingFreq {
		return nil, fmt.Errorf("%w: upsample target %g Hz must exceed %g Hz", ErrInvalidSamplingFreq, target, m.samplingFreq)
	}
	if m.rows < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows to upsample", ErrEmpty)
	}

	step := m.samplingFreq / target
	rows := interpolation.UpsampleCount(m.rows, step)
	cols := make([][]float64, len(m.columns))
	for j, name := range m.columns {
		y, err := interpolation.Upsample(m.colAt(j), step, method)
		if err != nil {
			return nil, fmt.Errorf("upsample %q: %w", name, err)
		}
		cols[j] = y
	}

	out := m.buildFromColumns(cols, m.columns, rows)
	out.samplingFreq = target
	return out, nil
}

// Downsample aggregates blocks of samplingFreq/target consecutive rows. The
// ratio must be an integer; the final block may be shorter than the rest.
func (m *Matrix) Downsample(target float64, agg interpolation.Aggregate) (*Matrix, error) {
	if err := checkFreq(target); err != nil {
		return nil, err
	}
	if target >= m.samplingFreq {
		return nil, fmt.Errorf("%w: downsample target %g Hz must be below %g Hz", ErrInvalidSamplingFreq, target, m.samplingFreq)
	}
	if m.rows == 0 {
		return nil, ErrEmpty
	}

	ratio := m.samplingFreq / target
	factor := math.Round(ratio)
	if math.Abs(ratio-factor) > 1e-9*ratio {
		return nil, fmt.Errorf("%w: %g Hz to %g Hz", ErrNonIntegerRatio, m.samplingFreq, target)
	}

	rows := interpolation.DownsampleCount(m.rows, int(factor))
	cols := make([][]float64, len(m.columns))
	for j, name := range m.columns {
		y, err := interpolation.Downsample(m.colAt(j), int(factor), agg)
		if err != nil {
			return nil, fmt.Errorf("downsample %q: %w", name, err)
		}
		cols[j] = y
	}

	out := m.buildFromColumns(cols, m.columns, rows)
	out.samplingFreq = target
	return out, nil
}

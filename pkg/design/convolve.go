package design

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"fmridesign/pkg/hrf"
	"fmridesign/pkg/signal"
)

// ConvolveOptions configures Convolve.
type ConvolveOptions struct {
	// Kernel holds one kernel per column (samples x kernels). Nil selects the
	// Glover HRF sampled at the matrix TR.
	Kernel *mat.Dense

	// Columns lists the columns to convolve. Nil selects every non-trend
	// column.
	Columns []string
}

// Convolve convolves columns with one or more kernels and truncates each
// result to the original number of rows.
//
// With a single kernel convolved columns keep their names. With k kernels
// every selected column yields k columns named name_c0..name_c{k-1}, grouped
// by kernel. Columns that are not convolved follow the convolved block
// unchanged.
func (m *Matrix) Convolve(opts ConvolveOptions) (*Matrix, error) {
	if m.rows == 0 {
		return nil, ErrEmpty
	}

	kernel := opts.Kernel
	if kernel == nil {
		k, err := hrf.Glover(m.TR(), 1)
		if err != nil {
			return nil, fmt.Errorf("default kernel: %w", err)
		}
		kernel = mat.NewDense(len(k), 1, k)
	}
	if kernel.IsEmpty() {
		return nil, fmt.Errorf("%w: empty kernel", ErrDimensionMismatch)
	}
	_, nk := kernel.Dims()

	targets, err := m.resolveColumns(opts.Columns, true)
	if err != nil {
		return nil, err
	}
	isTarget := make(map[string]bool, len(targets))
	for _, name := range targets {
		isTarget[name] = true
	}

	var (
		cols      [][]float64
		names     []string
		convolved []string
	)
	for k := 0; k < nk; k++ {
		kern := mat.Col(nil, k, kernel)
		for _, name := range targets {
			x := m.colAt(m.colIndex(name))
			outName := name
			if nk > 1 {
				outName = name + "_c" + strconv.Itoa(k)
			}
			cols = append(cols, signal.ConvolveSame(x, kern))
			names = append(names, outName)
			convolved = append(convolved, outName)
		}
	}
	for j, name := range m.columns {
		if isTarget[name] {
			continue
		}
		cols = append(cols, m.colAt(j))
		names = append(names, name)
	}
	if dup := firstDuplicate(names); dup != "" {
		return nil, fmt.Errorf("%w: convolution output %q", ErrColumnExists, dup)
	}

	out := m.buildFromColumns(cols, names, m.rows)
	for _, name := range convolved {
		if !contains(out.convolved, name) {
			out.convolved = append(out.convolved, name)
		}
	}
	return out, nil
}

// resolveColumns validates requested names. An empty request selects every
// non-trend column when defaultNonPoly is set.
func (m *Matrix) resolveColumns(requested []string, defaultNonPoly bool) ([]string, error) {
	if len(requested) == 0 {
		if !defaultNonPoly {
			return nil, nil
		}
		var out []string
		for _, name := range m.columns {
			if !m.IsPoly(name) {
				out = append(out, name)
			}
		}
		return out, nil
	}
	if dup := firstDuplicate(requested); dup != "" {
		return nil, fmt.Errorf("%w: column %q requested twice", ErrInvalidArgument, dup)
	}
	for _, name := range requested {
		if !m.HasColumn(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
	}
	return append([]string(nil), requested...), nil
}

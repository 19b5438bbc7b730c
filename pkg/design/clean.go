package design

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// DefaultCleanThreshold is the absolute correlation at or above which Clean
// treats two columns as duplicates.
const DefaultCleanThreshold = 0.95

// CleanOptions configures Clean.
type CleanOptions struct {
	// FillNA replaces NaN values before comparing columns; nil leaves them.
	FillNA *float64

	// ExcludePolys keeps trend columns out of the comparison; they are always
	// retained.
	ExcludePolys bool

	// Thresh is the absolute correlation at which a column is dropped.
	// Zero selects DefaultCleanThreshold.
	Thresh float64

	// Verbose logs every dropped column.
	Verbose bool
}

// DefaultCleanOptions fills NaN with 0 and uses DefaultCleanThreshold.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{FillNA: Fill(0), Thresh: DefaultCleanThreshold}
}

// Fill returns a pointer to v for use as CleanOptions.FillNA.
func Fill(v float64) *float64 { return &v }

// Clean removes columns that duplicate an earlier column by value rather than
// by name. Columns are visited in order; a column is dropped when its
// absolute Pearson correlation with any column kept so far reaches the
// threshold. Correlations that are undefined, such as against a constant
// column, never cause a drop.
//
// A matrix with repeated column names is rejected with ErrDuplicateColumns
// before any other work.
func (m *Matrix) Clean(opts CleanOptions) (*Matrix, error) {
	if dup := firstDuplicate(m.columns); dup != "" {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateColumns, dup)
	}
	thresh := opts.Thresh
	if thresh == 0 {
		thresh = DefaultCleanThreshold
	}
	if !(thresh > 0 && thresh <= 1) {
		return nil, fmt.Errorf("%w: threshold %v must be in (0, 1]", ErrInvalidArgument, thresh)
	}

	cols := make([][]float64, len(m.columns))
	for j := range m.columns {
		cols[j] = m.colAt(j)
		if opts.FillNA != nil {
			fillNaN(cols[j], *opts.FillNA)
		}
	}

	var kept []int
	keep := make([]bool, len(m.columns))
	for j, name := range m.columns {
		if opts.ExcludePolys && m.IsPoly(name) {
			keep[j] = true
			continue
		}
		drop := false
		for _, k := range kept {
			r := stat.Correlation(cols[j], cols[k], nil)
			if math.Abs(r) >= thresh {
				drop = true
				if opts.Verbose {
					m.logger.Info("dropping correlated column",
						zap.String("column", name),
						zap.String("correlatedWith", m.columns[k]),
						zap.Float64("r", r))
				}
				break
			}
		}
		if !drop {
			keep[j] = true
			kept = append(kept, j)
		}
	}

	var (
		outCols  [][]float64
		outNames []string
	)
	for j, ok := range keep {
		if ok {
			outCols = append(outCols, cols[j])
			outNames = append(outNames, m.columns[j])
		}
	}
	if opts.Verbose {
		m.logger.Info("cleaned design matrix",
			zap.Int("before", len(m.columns)),
			zap.Int("after", len(outNames)))
	}
	return m.buildFromColumns(outCols, outNames, m.rows), nil
}

func fillNaN(x []float64, v float64) {
	for i := range x {
		if math.IsNaN(x[i]) {
			x[i] = v
		}
	}
}

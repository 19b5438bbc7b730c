package design

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// VIFResult holds one variance inflation factor per included column.
type VIFResult struct {
	Columns []string
	Values  []float64
}

// Max returns the largest factor, or NaN when there are none.
func (r VIFResult) Max() float64 {
	if len(r.Values) == 0 {
		return math.NaN()
	}
	return floats.Max(r.Values)
}

// AllBelow reports whether every factor is strictly below limit.
func (r VIFResult) AllBelow(limit float64) bool {
	for _, v := range r.Values {
		if !(v < limit) {
			return false
		}
	}
	return true
}

// VIF computes variance inflation factors. Each included column is regressed
// by least squares on an intercept plus every other included column and its
// factor is 1/(1-R²). A column that is perfectly explained gets +Inf.
//
// With excludePolys the trend columns are left out entirely; trends are
// collinear with slow drifts in everything and would swamp the diagnostic.
// Otherwise only intercept columns are left out.
func (m *Matrix) VIF(excludePolys bool) (VIFResult, error) {
	var included []int
	for j, name := range m.columns {
		if excludePolys && m.IsPoly(name) {
			continue
		}
		if isInterceptName(name) {
			continue
		}
		included = append(included, j)
	}
	if len(included) < 2 {
		return VIFResult{}, fmt.Errorf("%w: need at least 2 columns to compute VIF, have %d", ErrInvalidArgument, len(included))
	}
	if m.rows <= len(included) {
		return VIFResult{}, fmt.Errorf("%w: %d rows is too few to regress %d columns", ErrInvalidArgument, m.rows, len(included))
	}

	res := VIFResult{
		Columns: make([]string, len(included)),
		Values:  make([]float64, len(included)),
	}
	for i, j := range included {
		res.Columns[i] = m.columns[j]
		v, err := m.inflation(j, included)
		if err != nil {
			return VIFResult{}, fmt.Errorf("vif for %q: %w", m.columns[j], err)
		}
		res.Values[i] = v
	}
	return res, nil
}

// inflation regresses column target on the other included columns.
func (m *Matrix) inflation(target int, included []int) (float64, error) {
	y := m.colAt(target)

	// Design: intercept followed by the other regressors
	x := mat.NewDense(m.rows, len(included), nil)
	for i := 0; i < m.rows; i++ {
		x.Set(i, 0, 1)
	}
	c := 1
	for _, j := range included {
		if j == target {
			continue
		}
		x.SetCol(c, m.colAt(j))
		c++
	}

	var qr mat.QR
	qr.Factorize(x)

	var beta mat.Dense
	err := qr.SolveTo(&beta, false, mat.NewVecDense(m.rows, y))
	if err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return math.Inf(1), nil
		}
		return 0, err
	}

	var fitted mat.Dense
	fitted.Mul(x, &beta)

	mean := stat.Mean(y, nil)
	var ssRes, ssTot float64
	for i, v := range y {
		r := v - fitted.At(i, 0)
		ssRes += r * r
		d := v - mean
		ssTot += d * d
	}
	if ssRes == 0 {
		return math.Inf(1), nil
	}
	// 1/(1-R²) with R² = 1 - ssRes/ssTot
	return ssTot / ssRes, nil
}

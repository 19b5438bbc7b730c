package design

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"fmridesign/pkg/signal"
)

// DefaultDCTDuration is the default high-pass cutoff, in seconds, of the
// cosine drift basis.
const DefaultDCTDuration = 180.0

// AddPoly appends Legendre polynomial trend columns evaluated on a grid
// spanning -1..1 over the rows, so higher orders stay on the same scale.
//
// With includeLower every degree from 0 to order is added as poly_0..poly_N;
// otherwise only poly_N is added. Degrees already present as trends are
// skipped. A generated name matching a non-trend column is an error.
func (m *Matrix) AddPoly(order int, includeLower bool) (*Matrix, error) {
	if order < 0 {
		return nil, fmt.Errorf("%w: polynomial order %d must be non-negative", ErrInvalidArgument, order)
	}
	if m.rows == 0 {
		return nil, ErrEmpty
	}
	if m.hasSeparatedTrends("poly_") {
		return nil, fmt.Errorf("%w: add polynomials to each run before appending", ErrAmbiguousPolys)
	}

	degrees := []int{order}
	if includeLower {
		degrees = degrees[:0]
		for d := 0; d <= order; d++ {
			degrees = append(degrees, d)
		}
	}

	grid := signal.Linspace(-1, 1, m.rows)
	var (
		cols  [][]float64
		names []string
	)
	for _, d := range degrees {
		name := "poly_" + strconv.Itoa(d)
		if m.IsPoly(name) {
			m.logger.Debug("polynomial already present, skipping", zap.String("column", name))
			continue
		}
		if m.HasColumn(name) {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, name)
		}
		cols = append(cols, signal.Legendre(d, grid))
		names = append(names, name)
	}

	out := m.appendColumns(cols, names)
	out.polys = append(out.polys, names...)
	return out, nil
}

// AddDCTBasis appends a discrete cosine basis for high-pass filtering with a
// cutoff of duration seconds, as in SPM. The constant term is not added. The
// first drop basis functions are omitted. Columns are named cosine_1.. and
// are treated as trends.
func (m *Matrix) AddDCTBasis(duration float64, drop int) (*Matrix, error) {
	if !(duration > 0) {
		return nil, fmt.Errorf("%w: duration %v must be positive", ErrInvalidArgument, duration)
	}
	if drop < 0 {
		return nil, fmt.Errorf("%w: drop %d must be non-negative", ErrInvalidArgument, drop)
	}
	if m.rows == 0 {
		return nil, ErrEmpty
	}
	if m.hasSeparatedTrends("cosine_") {
		return nil, fmt.Errorf("%w: add cosine bases to each run before appending", ErrAmbiguousPolys)
	}

	basis, err := signal.CosineBasis(m.rows, m.TR(), duration, true, drop)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	_, n := basis.Dims()
	cols := make([][]float64, n)
	names := make([]string, n)
	for j := 0; j < n; j++ {
		names[j] = "cosine_" + strconv.Itoa(j+1)
		if m.HasColumn(names[j]) {
			return nil, fmt.Errorf("%w: %q", ErrColumnExists, names[j])
		}
		cols[j] = mat.Col(nil, j, basis)
	}

	out := m.appendColumns(cols, names)
	out.polys = append(out.polys, names...)
	return out, nil
}

// hasSeparatedTrends reports whether a run prefixed trend column whose base
// name starts with kind exists.
func (m *Matrix) hasSeparatedTrends(kind string) bool {
	for _, p := range m.polys {
		if _, base, ok := splitRunPrefix(p); ok && strings.HasPrefix(base, kind) {
			return true
		}
	}
	return false
}

// appendColumns returns a copy of m with cols appended on the right.
func (m *Matrix) appendColumns(cols [][]float64, names []string) *Matrix {
	all := make([][]float64, 0, len(m.columns)+len(cols))
	for j := range m.columns {
		all = append(all, m.colAt(j))
	}
	all = append(all, cols...)
	return m.buildFromColumns(all, append(m.Columns(), names...), m.rows)
}

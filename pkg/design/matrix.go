// Package design builds regression design matrices for fMRI time series.
//
// A Matrix is a labeled table: rows are samples taken at a fixed sampling
// frequency and columns are named regressors. Every operation returns a new
// Matrix that owns its own data, so matrices derived from one another never
// share storage.
//
// Besides the data, a Matrix remembers which columns are nuisance trends
// (polynomial and cosine drift terms), which were produced by HRF
// convolution, which were split per run by Append, and how many runs it holds.
package design

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Matrix is an immutable design matrix.
type Matrix struct {
	// data holds rows x len(columns) values; nil when the matrix has no cells
	data *mat.Dense

	rows    int
	columns []string

	// samplingFreq is the number of samples per second (1/TR)
	samplingFreq float64

	// polys lists nuisance trend columns (polynomial and cosine bases)
	polys []string

	// convolved lists columns produced by Convolve
	convolved []string

	// separated lists run specific columns created by Append
	separated []string

	// runs counts the runs stacked into this matrix; 0 for an empty matrix
	runs int

	logger *zap.Logger
}

var polyNamePattern = regexp.MustCompile(`^(\d+_)?(poly_\d+|cosine_\d+|intercept)$`)

// IsPolyName reports whether name follows the naming convention of trend
// columns: poly_N, cosine_N or intercept, optionally prefixed by a run index
// as in 2_poly_1.
func IsPolyName(name string) bool {
	return polyNamePattern.MatchString(name)
}

// isInterceptName reports whether name is a constant trend column.
func isInterceptName(name string) bool {
	base := stripRunPrefix(name)
	return base == "poly_0" || base == "intercept"
}

// Empty returns a matrix with no rows or columns sampled at samplingFreq. It
// is the usual starting point for growing a multi-run design with Append.
func Empty(samplingFreq float64) (*Matrix, error) {
	if err := checkFreq(samplingFreq); err != nil {
		return nil, err
	}
	return &Matrix{samplingFreq: samplingFreq, logger: zap.NewNop()}, nil
}

// New copies data into a new matrix with the given column names.
// The number of names must match the number of columns and names must be
// unique.
func New(data mat.Matrix, columns []string, samplingFreq float64) (*Matrix, error) {
	if err := checkFreq(samplingFreq); err != nil {
		return nil, err
	}
	if data == nil {
		if len(columns) != 0 {
			return nil, fmt.Errorf("%w: %d names for empty data", ErrDimensionMismatch, len(columns))
		}
		return Empty(samplingFreq)
	}
	r, c := data.Dims()
	if c != len(columns) {
		return nil, fmt.Errorf("%w: %d columns but %d names", ErrDimensionMismatch, c, len(columns))
	}
	if dup := firstDuplicate(columns); dup != "" {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateColumns, dup)
	}
	if r == 0 || c == 0 {
		return Empty(samplingFreq)
	}

	m := &Matrix{
		data:         mat.DenseCopyOf(data),
		rows:         r,
		columns:      append([]string(nil), columns...),
		samplingFreq: samplingFreq,
		runs:         1,
		logger:       zap.NewNop(),
	}
	return m, nil
}

// FromRows builds a matrix from row-major values.
func FromRows(rows [][]float64, columns []string, samplingFreq float64) (*Matrix, error) {
	if len(rows) == 0 {
		if dup := firstDuplicate(columns); dup != "" {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumns, dup)
		}
		return Empty(samplingFreq)
	}
	data := mat.NewDense(len(rows), len(columns), nil)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(row), len(columns))
		}
		data.SetRow(i, row)
	}
	return New(data, columns, samplingFreq)
}

// FromColumns builds a matrix from column vectors of equal length.
func FromColumns(cols [][]float64, columns []string, samplingFreq float64) (*Matrix, error) {
	if len(cols) != len(columns) {
		return nil, fmt.Errorf("%w: %d columns but %d names", ErrDimensionMismatch, len(cols), len(columns))
	}
	if len(cols) == 0 || len(cols[0]) == 0 {
		return New(nil, nil, samplingFreq)
	}
	data := mat.NewDense(len(cols[0]), len(cols), nil)
	for j, col := range cols {
		if len(col) != len(cols[0]) {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d", ErrDimensionMismatch, columns[j], len(col), len(cols[0]))
		}
		data.SetCol(j, col)
	}
	return New(data, columns, samplingFreq)
}

func checkFreq(f float64) error {
	if !(f > 0) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSamplingFreq, f)
	}
	return nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (r, c int) { return m.rows, len(m.columns) }

// Rows returns the number of samples.
func (m *Matrix) Rows() int { return m.rows }

// IsEmpty reports whether the matrix has no rows.
func (m *Matrix) IsEmpty() bool { return m.rows == 0 }

// SamplingFreq returns the sampling frequency in Hz.
func (m *Matrix) SamplingFreq() float64 { return m.samplingFreq }

// TR returns the sampling period in seconds.
func (m *Matrix) TR() float64 { return 1 / m.samplingFreq }

// Columns returns a copy of the column names.
func (m *Matrix) Columns() []string { return append([]string(nil), m.columns...) }

// Polys returns a copy of the trend column names.
func (m *Matrix) Polys() []string { return append([]string(nil), m.polys...) }

// Convolved returns a copy of the names of convolved columns.
func (m *Matrix) Convolved() []string { return append([]string(nil), m.convolved...) }

// Separated returns a copy of the names of run specific columns.
func (m *Matrix) Separated() []string { return append([]string(nil), m.separated...) }

// Runs returns the number of runs stacked into the matrix.
func (m *Matrix) Runs() int { return m.runs }

// IsPoly reports whether name is one of this matrix's trend columns.
func (m *Matrix) IsPoly(name string) bool { return contains(m.polys, name) }

// HasColumn reports whether a column called name exists.
func (m *Matrix) HasColumn(name string) bool { return m.colIndex(name) >= 0 }

// At returns the value at row i, column j.
func (m *Matrix) At(i, j int) float64 { return m.data.At(i, j) }

// Col returns a copy of the named column.
func (m *Matrix) Col(name string) ([]float64, error) {
	j := m.colIndex(name)
	if j < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return m.colAt(j), nil
}

// Dense returns a copy of the data, or nil for a matrix without cells.
func (m *Matrix) Dense() *mat.Dense {
	if m.data == nil {
		return nil
	}
	return mat.DenseCopyOf(m.data)
}

// Copy returns a deep copy.
func (m *Matrix) Copy() *Matrix {
	out := m.withData(m.Dense(), m.rows, m.columns)
	return out
}

// WithLogger returns a copy that reports verbose output to logger.
func (m *Matrix) WithLogger(logger *zap.Logger) *Matrix {
	out := m.Copy()
	if logger == nil {
		logger = zap.NewNop()
	}
	out.logger = logger
	return out
}

// WithSamplingFreq returns a copy with its sampling frequency replaced. The
// data is not resampled; use Upsample or Downsample for that.
func (m *Matrix) WithSamplingFreq(samplingFreq float64) (*Matrix, error) {
	if err := checkFreq(samplingFreq); err != nil {
		return nil, err
	}
	out := m.Copy()
	out.samplingFreq = samplingFreq
	return out, nil
}

// WithPolys returns a copy with the named columns marked as trend columns in
// addition to the existing ones.
func (m *Matrix) WithPolys(names ...string) (*Matrix, error) {
	out := m.Copy()
	for _, name := range names {
		if !m.HasColumn(name) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
		}
		if !contains(out.polys, name) {
			out.polys = append(out.polys, name)
		}
	}
	return out, nil
}

// String summarizes the matrix shape and metadata.
func (m *Matrix) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "design.Matrix %dx%d @ %g Hz", m.rows, len(m.columns), m.samplingFreq)
	if m.runs > 1 {
		fmt.Fprintf(&b, ", %d runs", m.runs)
	}
	if len(m.polys) > 0 {
		fmt.Fprintf(&b, ", polys %v", m.polys)
	}
	if len(m.convolved) > 0 {
		fmt.Fprintf(&b, ", convolved %v", m.convolved)
	}
	return b.String()
}

// withData derives a matrix carrying m's metadata restricted to columns.
// data is adopted, not copied.
func (m *Matrix) withData(data *mat.Dense, rows int, columns []string) *Matrix {
	if len(columns) == 0 || rows == 0 {
		data = nil
	}
	out := &Matrix{
		data:         data,
		rows:         rows,
		columns:      append([]string(nil), columns...),
		samplingFreq: m.samplingFreq,
		polys:        filterPresent(m.polys, columns),
		convolved:    filterPresent(m.convolved, columns),
		separated:    filterPresent(m.separated, columns),
		runs:         m.runs,
		logger:       m.logger,
	}
	if out.logger == nil {
		out.logger = zap.NewNop()
	}
	if rows > 0 && out.runs == 0 {
		out.runs = 1
	}
	return out
}

func (m *Matrix) colIndex(name string) int {
	for j, c := range m.columns {
		if c == name {
			return j
		}
	}
	return -1
}

func (m *Matrix) colAt(j int) []float64 {
	out := make([]float64, m.rows)
	if m.data != nil {
		mat.Col(out, j, m.data)
	}
	return out
}

// buildFromColumns assembles a matrix from column vectors, deriving metadata
// from m.
func (m *Matrix) buildFromColumns(cols [][]float64, names []string, rows int) *Matrix {
	var data *mat.Dense
	if rows > 0 && len(cols) > 0 {
		data = mat.NewDense(rows, len(cols), nil)
		for j, col := range cols {
			data.SetCol(j, col)
		}
	}
	return m.withData(data, rows, names)
}

func firstDuplicate(names []string) string {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return n
		}
		seen[n] = struct{}{}
	}
	return ""
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func filterPresent(list, columns []string) []string {
	if len(list) == 0 {
		return nil
	}
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	var out []string
	for _, v := range list {
		if _, ok := present[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

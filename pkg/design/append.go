package design

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// AppendOptions configures how Append merges the columns of stacked runs.
type AppendOptions struct {
	// KeepSeparate keeps trend columns run specific: each run gets its own
	// K_poly_N columns, zero outside the run.
	KeepSeparate bool

	// UniqueCols lists column names, or prefixes ending in '*', that stay run
	// specific. Columns not listed are merged by name.
	UniqueCols []string

	// FillNA fills cells of columns that a run does not have.
	FillNA float64

	// IgnoreSamplingFreq allows stacking runs sampled at different rates. The
	// result keeps the receiver's sampling frequency.
	IgnoreSamplingFreq bool

	// Verbose logs how columns were merged.
	Verbose bool
}

// DefaultAppendOptions keeps trends separate and fills with 0.
func DefaultAppendOptions() AppendOptions {
	return AppendOptions{KeepSeparate: true}
}

// Append stacks the rows of others below m, one run after another.
//
// Identically named columns are merged into a single column spanning all
// runs unless they are trends and KeepSeparate is set, or they match
// UniqueCols. Run specific columns are prefixed with their run index, as in
// 0_face_A and 1_face_A; appending to a matrix that already holds several
// runs continues the numbering from m.Runs(). Appending to an empty matrix
// returns a copy of the single appended run.
func (m *Matrix) Append(opts AppendOptions, others ...*Matrix) (*Matrix, error) {
	if len(others) == 0 {
		return nil, fmt.Errorf("%w: nothing to append", ErrInvalidArgument)
	}
	matcher, err := NewColumnMatcher(opts.UniqueCols)
	if err != nil {
		return nil, err
	}
	if dup := firstDuplicate(m.columns); dup != "" {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateColumns, dup)
	}
	for i, o := range others {
		if o == nil {
			return nil, fmt.Errorf("%w: matrix %d is nil", ErrInvalidArgument, i)
		}
		if !opts.IgnoreSamplingFreq && o.samplingFreq != m.samplingFreq {
			return nil, fmt.Errorf("%w: %g Hz and %g Hz", ErrSamplingFreqMismatch, m.samplingFreq, o.samplingFreq)
		}
		if dup := firstDuplicate(o.columns); dup != "" {
			return nil, fmt.Errorf("%w: %q in matrix %d", ErrDuplicateColumns, dup, i)
		}
	}

	out := m
	for _, o := range others {
		out, err = out.appendRun(o, opts, matcher)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (m *Matrix) appendRun(o *Matrix, opts AppendOptions, matcher ColumnMatcher) (*Matrix, error) {
	if m.rows == 0 {
		out := o.Copy()
		out.samplingFreq = m.samplingFreq
		out.logger = m.logger
		return out, nil
	}
	if o.rows == 0 {
		return m.Copy(), nil
	}

	split := func(src *Matrix, name string) bool {
		return (opts.KeepSeparate && src.IsPoly(name)) || matcher.Match(name)
	}
	offset := m.runs

	baseNames := make([]string, len(m.columns))
	for j, name := range m.columns {
		switch {
		case contains(m.separated, name):
			baseNames[j] = name
		case m.runs == 1 && split(m, name):
			baseNames[j] = runPrefix(0, name)
		default:
			baseNames[j] = name
		}
	}
	otherNames := make([]string, len(o.columns))
	for j, name := range o.columns {
		switch {
		case contains(o.separated, name):
			if run, base, ok := splitRunPrefix(name); ok {
				otherNames[j] = runPrefix(run+offset, base)
			} else {
				otherNames[j] = name
			}
		case o.runs <= 1 && split(o, name):
			otherNames[j] = runPrefix(offset, name)
		default:
			otherNames[j] = name
		}
	}

	// Output order: regressors of m, new regressors of o, trends of m, new
	// trends of o.
	type source struct {
		base, other int
		poly        bool
		separated   bool
		convolved   bool
		baseRun     bool
	}
	var (
		names   []string
		sources = make(map[string]*source)
	)
	add := func(name string) *source {
		s, ok := sources[name]
		if !ok {
			s = &source{base: -1, other: -1}
			sources[name] = s
			names = append(names, name)
		}
		return s
	}
	for pass := 0; pass < 2; pass++ {
		wantPoly := pass == 1
		for j, name := range m.columns {
			if m.IsPoly(name) != wantPoly {
				continue
			}
			s := add(baseNames[j])
			if s.base >= 0 {
				return nil, fmt.Errorf("%w: %q", ErrColumnExists, baseNames[j])
			}
			s.base = j
			s.poly = wantPoly
			s.separated = baseNames[j] != name || contains(m.separated, name)
			s.baseRun = s.separated
			s.convolved = s.convolved || contains(m.convolved, name)
		}
		for j, name := range o.columns {
			if o.IsPoly(name) != wantPoly {
				continue
			}
			s := add(otherNames[j])
			run := otherNames[j] != name || contains(o.separated, name)
			// A run-specific name may not land on a shared column of m, or
			// the other way round.
			if s.other >= 0 || (s.base >= 0 && s.baseRun != run) {
				return nil, fmt.Errorf("%w: %q", ErrColumnExists, otherNames[j])
			}
			s.other = j
			s.poly = s.poly || wantPoly
			s.separated = s.separated || run
			s.convolved = s.convolved || contains(o.convolved, name)
		}
	}

	rows := m.rows + o.rows
	data := mat.NewDense(rows, len(names), nil)
	var polys, separated, convolved []string
	for c, name := range names {
		s := sources[name]
		for i := 0; i < m.rows; i++ {
			v := opts.FillNA
			if s.base >= 0 {
				v = m.data.At(i, s.base)
			}
			data.Set(i, c, v)
		}
		for i := 0; i < o.rows; i++ {
			v := opts.FillNA
			if s.other >= 0 {
				v = o.data.At(i, s.other)
			}
			data.Set(m.rows+i, c, v)
		}
		if s.poly {
			polys = append(polys, name)
		}
		if s.separated {
			separated = append(separated, name)
		}
		if s.convolved {
			convolved = append(convolved, name)
		}
	}

	out := m.withData(data, rows, names)
	out.polys = polys
	out.separated = separated
	out.convolved = convolved
	out.runs = m.runs + max(o.runs, 1)

	if opts.Verbose {
		m.logger.Info("appended run",
			zap.Int("runs", out.runs),
			zap.Int("rows", rows),
			zap.Int("columns", len(names)),
			zap.Int("separated", len(separated)))
	}
	return out, nil
}

// Concat joins matrices side by side. All inputs need the same number of rows
// and sampling frequency. Repeated column names are kept, with a warning;
// Clean rejects such a matrix until the names are made unique.
func (m *Matrix) Concat(others ...*Matrix) (*Matrix, error) {
	all := append([]*Matrix{m}, others...)
	rows := -1
	for i, o := range all {
		if o == nil {
			return nil, fmt.Errorf("%w: matrix %d is nil", ErrInvalidArgument, i)
		}
		if o.samplingFreq != m.samplingFreq {
			return nil, fmt.Errorf("%w: %g Hz and %g Hz", ErrSamplingFreqMismatch, m.samplingFreq, o.samplingFreq)
		}
		if len(o.columns) == 0 {
			continue
		}
		if rows >= 0 && o.rows != rows {
			return nil, fmt.Errorf("%w: %d rows and %d rows", ErrDimensionMismatch, rows, o.rows)
		}
		rows = o.rows
	}
	if rows < 0 {
		return m.Copy(), nil
	}

	var (
		cols      [][]float64
		names     []string
		polys     []string
		convolved []string
		runs      int
	)
	for _, o := range all {
		for j, name := range o.columns {
			cols = append(cols, o.colAt(j))
			names = append(names, name)
		}
		polys = append(polys, o.polys...)
		convolved = append(convolved, o.convolved...)
		runs = max(runs, o.runs)
	}
	if dup := firstDuplicate(names); dup != "" {
		m.logger.Warn("duplicate column names after concat", zap.String("column", dup))
	}

	out := m.buildFromColumns(cols, names, rows)
	out.polys = dedupe(polys)
	out.convolved = dedupe(convolved)
	out.runs = runs
	return out, nil
}

// ReplaceData returns a matrix with m's sampling frequency and metadata but
// new values. data must have as many rows as m. With nil columns the existing
// names are reused and data must have as many columns as m.
func (m *Matrix) ReplaceData(data mat.Matrix, columns []string) (*Matrix, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: nil data", ErrInvalidArgument)
	}
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return nil, fmt.Errorf("%w: empty data", ErrInvalidArgument)
	}
	if r != m.rows {
		return nil, fmt.Errorf("%w: new data has %d rows, want %d", ErrDimensionMismatch, r, m.rows)
	}
	if columns == nil {
		if c != len(m.columns) {
			return nil, fmt.Errorf("%w: new data has %d columns, want %d; pass column names", ErrDimensionMismatch, c, len(m.columns))
		}
		columns = m.columns
	} else if len(columns) != c {
		return nil, fmt.Errorf("%w: %d columns but %d names", ErrDimensionMismatch, c, len(columns))
	}
	if dup := firstDuplicate(columns); dup != "" {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateColumns, dup)
	}
	return m.withData(mat.DenseCopyOf(data), r, columns), nil
}

func dedupe(list []string) []string {
	var out []string
	for _, v := range list {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

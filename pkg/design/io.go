package design

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Snapshot is a plain, serializable copy of a matrix and its metadata. Data
// is row-major.
type Snapshot struct {
	SamplingFreq float64   `json:"samplingFreq"`
	Rows         int       `json:"rows"`
	Columns      []string  `json:"columns"`
	Polys        []string  `json:"polys,omitempty"`
	Convolved    []string  `json:"convolved,omitempty"`
	Separated    []string  `json:"separated,omitempty"`
	Runs         int       `json:"runs"`
	Data         []float64 `json:"-"`
}

// Snapshot returns a deep copy of the matrix as a Snapshot.
func (m *Matrix) Snapshot() Snapshot {
	s := Snapshot{
		SamplingFreq: m.samplingFreq,
		Rows:         m.rows,
		Columns:      m.Columns(),
		Polys:        m.Polys(),
		Convolved:    m.Convolved(),
		Separated:    m.Separated(),
		Runs:         m.runs,
	}
	if m.data != nil {
		s.Data = make([]float64, 0, m.rows*len(m.columns))
		for i := 0; i < m.rows; i++ {
			s.Data = append(s.Data, m.data.RawRowView(i)...)
		}
	}
	return s
}

// FromSnapshot rebuilds a matrix from a Snapshot.
func FromSnapshot(s Snapshot) (*Matrix, error) {
	if len(s.Data) != s.Rows*len(s.Columns) {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrDimensionMismatch, len(s.Data), s.Rows, len(s.Columns))
	}
	var data mat.Matrix
	if len(s.Data) > 0 {
		data = mat.NewDense(s.Rows, len(s.Columns), append([]float64(nil), s.Data...))
	}
	m, err := New(data, s.Columns, s.SamplingFreq)
	if err != nil {
		return nil, err
	}
	for _, list := range [][]string{s.Polys, s.Convolved, s.Separated} {
		for _, name := range list {
			if !m.HasColumn(name) {
				return nil, fmt.Errorf("%w: metadata names %q", ErrUnknownColumn, name)
			}
		}
	}
	m.polys = append([]string(nil), s.Polys...)
	m.convolved = append([]string(nil), s.Convolved...)
	m.separated = append([]string(nil), s.Separated...)
	if s.Runs > 0 && m.rows > 0 {
		m.runs = s.Runs
	}
	return m, nil
}

// WriteCSV writes a header row of column names followed by one line per
// sample. NaN is written as an empty cell.
func WriteCSV(w io.Writer, m *Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(m.columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(m.columns))
	for i := 0; i < m.rows; i++ {
		for j := range m.columns {
			v := m.data.At(i, j)
			if math.IsNaN(v) {
				record[j] = ""
				continue
			}
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a matrix written by WriteCSV. CSV files carry no metadata,
// so trend columns are recognized by name (see IsPolyName). Run prefixed
// trends mark the matrix as holding several runs.
func ReadCSV(r io.Reader, samplingFreq float64) (*Matrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrEmpty)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]float64
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		row := make([]float64, len(record))
		for j, cell := range record {
			cell = strings.TrimSpace(cell)
			if cell == "" || strings.EqualFold(cell, "nan") {
				row[j] = math.NaN()
				continue
			}
			row[j], err = strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[j], err)
			}
		}
		rows = append(rows, row)
	}

	m, err := FromRows(rows, header, samplingFreq)
	if err != nil {
		return nil, err
	}
	maxRun := -1
	for _, name := range header {
		if !IsPolyName(name) {
			continue
		}
		m.polys = append(m.polys, name)
		if run, _, ok := splitRunPrefix(name); ok {
			m.separated = append(m.separated, name)
			maxRun = max(maxRun, run)
		}
	}
	if maxRun >= 1 && m.rows > 0 {
		m.runs = maxRun + 1
	}
	return m, nil
}

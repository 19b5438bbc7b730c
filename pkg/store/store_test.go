package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmridesign/pkg/design"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMatrix(t *testing.T) *design.Matrix {
	t.Helper()
	m, err := design.FromRows([][]float64{
		{1, 0},
		{0, 1},
		{math.NaN(), 0.5},
	}, []string{"face", "house"}, 0.5)
	require.NoError(t, err)
	m, err = m.AddPoly(1, true)
	require.NoError(t, err)
	return m
}

func TestSaveAndLoad(t *testing.T) {
	s := tempStore(t)
	m := testMatrix(t)

	rec, err := s.Save("sub-01", m)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 3, rec.Rows)
	assert.Equal(t, 4, rec.Cols)

	got, err := s.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Columns(), got.Columns())
	assert.Equal(t, m.Polys(), got.Polys())
	assert.Equal(t, m.SamplingFreq(), got.SamplingFreq())

	face, err := got.Col("face")
	require.NoError(t, err)
	assert.Equal(t, 1.0, face[0])
	assert.True(t, math.IsNaN(face[2]))
}

func TestLoadByNameReturnsLatest(t *testing.T) {
	s := tempStore(t)
	m := testMatrix(t)

	_, err := s.Save("run", m)
	require.NoError(t, err)
	longer, err := m.Append(design.DefaultAppendOptions(), m)
	require.NoError(t, err)
	_, err = s.Save("run", longer)
	require.NoError(t, err)

	got, err := s.LoadByName("run")
	require.NoError(t, err)
	assert.Equal(t, 6, got.Rows())
	assert.Equal(t, 2, got.Runs())
	assert.Equal(t, longer.Separated(), got.Separated())

	_, err = s.LoadByName("other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := tempStore(t)
	m := testMatrix(t)

	a, err := s.Save("a", m)
	require.NoError(t, err)
	b, err := s.Save("b", m)
	require.NoError(t, err)

	recs, err := s.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, b.ID, recs[0].ID)
	assert.Equal(t, a.ID, recs[1].ID)

	require.NoError(t, s.Delete(a.ID))
	_, err = s.Load(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(a.ID), ErrNotFound)

	recs, err = s.List()
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSaveEmpty(t *testing.T) {
	s := tempStore(t)
	e, err := design.Empty(1)
	require.NoError(t, err)

	rec, err := s.Save("empty", e)
	require.NoError(t, err)
	got, err := s.Load(rec.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())

	_, err = s.Save("", e)
	assert.ErrorIs(t, err, design.ErrInvalidArgument)
}

func TestValueEncoding(t *testing.T) {
	in := []float64{0, -1.5, math.Inf(1), math.MaxFloat64}
	assert.Equal(t, in, decodeValues(encodeValues(in)))
}

package events

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmridesign/internal/models"
	"fmridesign/pkg/design"
)

func TestReadOnsets(t *testing.T) {
	in := "Stim,Onset,Duration,Weight\nface,0,4,2\nhouse, 6, 2,\nface,10,0,0.5\n"
	evs, err := ReadOnsets(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, evs, 3)

	assert.Equal(t, models.Event{Onset: 0, Duration: 4, Stim: "face", Weight: 2, HasWeight: true}, evs[0])
	assert.Equal(t, "house", evs[1].Stim)
	assert.False(t, evs[1].HasWeight)
	assert.Equal(t, 10.0, evs[2].Onset)
	assert.Equal(t, 0.5, evs[2].Weight)
}

func TestReadOnsetsWithoutHeader(t *testing.T) {
	evs, err := ReadOnsets(strings.NewReader("2,2,a\n8,4,b\n"))
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, 8.0, evs[1].Onset)
	assert.Equal(t, 4.0, evs[1].Duration)
	assert.Equal(t, "b", evs[1].Stim)
}

func TestReadOnsetsErrors(t *testing.T) {
	_, err := ReadOnsets(strings.NewReader("Onset,Stim\n0,a\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadOnsets(strings.NewReader("Onset,Duration,Stim\n-1,2,a\n"))
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.Contains(t, err.Error(), "line 2")

	_, err = ReadOnsets(strings.NewReader("Onset,Duration,Stim\n1,2,\n"))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = ReadOnsets(strings.NewReader("Onset,Duration,Stim\nx,2,a\n"))
	assert.Error(t, err)

	evs, err := ReadOnsets(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestToMatrix(t *testing.T) {
	evs := []models.Event{
		{Onset: 4, Duration: 4, Stim: "house"},
		{Onset: 0, Duration: 2, Stim: "face"},
		{Onset: 12, Duration: 0, Stim: "face"},
	}
	m, err := ToMatrix(evs, 0.5, 8, Options{})
	require.NoError(t, err)

	r, c := m.Dims()
	assert.Equal(t, 8, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []string{"face", "house"}, m.Columns())

	face, err := m.Col("face")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0, 0, 0, 0, 1, 0}, face)

	house, err := m.Col("house")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1, 0, 0, 0, 0}, house)
}

func TestToMatrixWeights(t *testing.T) {
	evs := []models.Event{
		{Onset: 0, Duration: 2, Stim: "a", Weight: 3, HasWeight: true},
		{Onset: 2, Duration: 1, Stim: "a"},
		{Onset: 3, Duration: 10, Stim: "b", Weight: -2, HasWeight: true},
	}
	m, err := ToMatrix(evs, 1, 5, Options{UseWeights: true})
	require.NoError(t, err)

	a, err := m.Col("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3, 1, 0, 0}, a)

	// Truncated at the end of the run
	b, err := m.Col("b")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, -2, -2}, b)

	plain, err := ToMatrix(evs, 1, 5, Options{})
	require.NoError(t, err)
	a, err = plain.Col("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 0, 0}, a)
}

func TestToMatrixErrors(t *testing.T) {
	evs := []models.Event{{Onset: 20, Duration: 1, Stim: "late"}}
	_, err := ToMatrix(evs, 1, 10, Options{})
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = ToMatrix(nil, 0, 10, Options{})
	assert.ErrorIs(t, err, design.ErrInvalidSamplingFreq)

	_, err = ToMatrix(nil, 1, 0, Options{})
	assert.ErrorIs(t, err, design.ErrInvalidArgument)

	_, err = ToMatrix([]models.Event{{Onset: 1, Duration: -1, Stim: "x"}}, 1, 10, Options{})
	assert.ErrorIs(t, err, ErrInvalidEvent)

	// Non-finite times are rejected and huge ones stay out of range
	_, err = ToMatrix([]models.Event{{Onset: math.Inf(1), Duration: 1, Stim: "x"}}, 0.5, 10, Options{})
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = ToMatrix([]models.Event{{Onset: 1, Duration: math.Inf(1), Stim: "x"}}, 0.5, 10, Options{})
	assert.ErrorIs(t, err, ErrInvalidEvent)
	_, err = ToMatrix([]models.Event{{Onset: 1e300, Duration: 1, Stim: "x"}}, 0.5, 10, Options{})
	assert.ErrorIs(t, err, ErrOutOfRange)

	// A huge duration is truncated at the end of the run
	long, err := ToMatrix([]models.Event{{Onset: 2, Duration: 1e300, Stim: "x"}}, 0.5, 4, Options{})
	require.NoError(t, err)
	x, err := long.Col("x")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 1}, x)

	_, err = ReadOnsets(strings.NewReader("Onset,Duration,Stim\nInf,1,face\n"))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	empty, err := ToMatrix(nil, 1, 10, Options{})
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

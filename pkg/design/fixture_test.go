package design

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// simDesignMatrix returns 500 samples of four random binary stimulus columns
// at TR = 2 s.
func simDesignMatrix(t *testing.T) *Matrix {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	data := mat.NewDense(500, 4, nil)
	for i := 0; i < 500; i++ {
		for j := 0; j < 4; j++ {
			data.Set(i, j, float64(rng.Intn(2)))
		}
	}
	m, err := New(data, []string{"face_A", "face_B", "house_A", "house_B"}, 0.5)
	require.NoError(t, err)
	return m
}

// runDesignMatrix returns the 11 sample single run used for growing a
// multi-run design.
func runDesignMatrix(t *testing.T) *Matrix {
	t.Helper()
	m, err := FromRows([][]float64{
		{1, 0, 0, 0},
		{1, 0, 0, 0},
		{0, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 0},
		{0, 0, 0, 1},
		{0, 0, 0, 1},
	}, []string{"stim_A", "stim_B", "cond_C", "cond_D"}, 0.5)
	require.NoError(t, err)
	return m
}

func cols(m *Matrix) int {
	_, c := m.Dims()
	return c
}

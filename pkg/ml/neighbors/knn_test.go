package neighbors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKNNMajorityVote(t *testing.T) {
	X := [][]float64{{0, 0}, {0, 1}, {1, 0}, {10, 10}, {10, 11}, {11, 10}}
	y := []int{0, 0, 0, 1, 1, 1}
	m := NewKNN(3)
	require.NoError(t, m.Fit(X, y))

	assert.Equal(t, 0, m.Predict([]float64{0.5, 0.5}))
	assert.Equal(t, 1, m.Predict([]float64{9, 9}))
}

func TestKNNTieGoesToSmallestLabel(t *testing.T) {
	X := [][]float64{{0}, {2}}
	y := []int{1, 0}
	m := NewKNN(2)
	require.NoError(t, m.Fit(X, y))

	assert.Equal(t, 0, m.Predict([]float64{1}))
}

func TestKNNUsesAllSamplesWhenFewerThanK(t *testing.T) {
	m := NewKNN(5)
	require.NoError(t, m.Fit([][]float64{{0}, {1}, {2}}, []int{2, 2, 0}))

	assert.Equal(t, 2, m.Predict([]float64{100}))
}

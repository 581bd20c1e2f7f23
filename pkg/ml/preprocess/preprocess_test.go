package preprocess

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScaler(t *testing.T) {
	var s StandardScaler
	s.Fit([][]float64{{1, 5}, {3, 5}})

	assert.Equal(t, []float64{2, 5}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Scale)
	assert.Equal(t, []float64{-1, 0}, s.Transform([]float64{1, 5}))
	assert.Equal(t, [][]float64{{1, 0}}, s.TransformAll([][]float64{{3, 5}}))
}

func TestTrainTestSplitSizesAndDeterminism(t *testing.T) {
	train, test, err := TrainTestSplit(60, 0.25, DefaultSeed)
	require.NoError(t, err)
	assert.Len(t, test, 15)
	assert.Len(t, train, 45)

	all := append(append([]int{}, train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	train2, test2, err := TrainTestSplit(60, 0.25, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestTrainTestSplitRejectsBadSizes(t *testing.T) {
	_, _, err := TrainTestSplit(10, 0, DefaultSeed)
	assert.Error(t, err)
	_, _, err = TrainTestSplit(1, 0.25, DefaultSeed)
	assert.Error(t, err)
}

func TestStratifiedSplitKeepsClassShares(t *testing.T) {
	labels := make([]int, 0, 40)
	for i := 0; i < 20; i++ {
		labels = append(labels, 0)
	}
	for i := 0; i < 12; i++ {
		labels = append(labels, 1)
	}
	for i := 0; i < 8; i++ {
		labels = append(labels, 2)
	}

	train, test, err := StratifiedSplit(labels, 0.25, DefaultSeed)
	require.NoError(t, err)

	counts := map[int]int{}
	for _, i := range test {
		counts[labels[i]]++
	}
	assert.Equal(t, map[int]int{0: 5, 1: 3, 2: 2}, counts)
	assert.Len(t, train, 30)
}

func TestStratifiedSplitSingletonClassStaysInTrain(t *testing.T) {
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1, 1, 3}

	train, test, err := StratifiedSplit(labels, 0.25, DefaultSeed)
	require.NoError(t, err)

	for _, i := range test {
		assert.NotEqual(t, 3, labels[i])
	}
	assert.Contains(t, train, 9)
	assert.Len(t, test, 2)
}

func TestRows(t *testing.T) {
	assert.Equal(t, []string{"c", "a"}, Rows([]string{"a", "b", "c"}, []int{2, 0}))
}

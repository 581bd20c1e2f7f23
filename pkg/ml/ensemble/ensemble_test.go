package ensemble

import (
	"math/rand"
	"testing"

	"github.com/bodytwin/platform/pkg/ml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clusters returns three well separated gaussian blobs in 3 dimensions.
func clusters(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	centers := [][]float64{{0, 0, 0}, {6, 6, 0}, {0, 6, 6}}
	var X [][]float64
	var y []int
	for i := 0; i < n; i++ {
		label := i % len(centers)
		row := make([]float64, 3)
		for j := range row {
			row[j] = centers[label][j] + rng.NormFloat64()*0.5
		}
		X = append(X, row)
		y = append(y, label)
	}
	return X, y
}

func accuracy(clf ml.Classifier, X [][]float64, y []int) float64 {
	correct := 0
	for i, x := range X {
		if clf.Predict(x) == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

func TestClassifiersLearnSeparableClusters(t *testing.T) {
	Xtrain, ytrain := clusters(60, 1)
	Xtest, ytest := clusters(30, 2)

	cases := []ml.Classifier{
		NewRandomForest(25, 42),
		NewExtraTrees(25, 42),
		NewGradientBoosting(42),
		NewAdaBoost(42),
	}
	for _, clf := range cases {
		t.Run(clf.Algorithm(), func(t *testing.T) {
			require.NoError(t, clf.Fit(Xtrain, ytrain))
			assert.GreaterOrEqual(t, accuracy(clf, Xtest, ytest), 0.9)
		})
	}
}

func TestForestIsDeterministicForSeed(t *testing.T) {
	X, y := clusters(30, 3)
	a := NewRandomForest(10, 7)
	b := NewRandomForest(10, 7)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	point := []float64{3, 3, 3}
	assert.Equal(t, a.PredictProba(point), b.PredictProba(point))
}

func TestFitRejectsEmptyData(t *testing.T) {
	assert.ErrorIs(t, NewRandomForest(5, 1).Fit(nil, nil), ml.ErrEmptyDataset)
	assert.ErrorIs(t, NewGradientBoosting(1).Fit(nil, nil), ml.ErrEmptyDataset)
	assert.ErrorIs(t, NewMultiOutputForest(5, 1).Fit(nil, nil), ml.ErrEmptyDataset)
}

func TestSingleClassTrainingPredictsThatClass(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}}
	y := []int{2, 2, 2}
	for _, clf := range []ml.Classifier{NewRandomForest(5, 1), NewGradientBoosting(1), NewAdaBoost(1)} {
		require.NoError(t, clf.Fit(X, y))
		assert.Equal(t, 2, clf.Predict([]float64{2}), clf.Algorithm())
	}
}

func TestMultiOutputForestTracksTargets(t *testing.T) {
	var X, Y [][]float64
	for item := 0; item < 4; item++ {
		for _, qty := range []float64{0.5, 1, 1.5, 2, 3} {
			X = append(X, []float64{float64(item), qty})
			base := float64(item+1) * 10
			Y = append(Y, []float64{base * qty, base * qty / 10})
		}
	}
	m := NewMultiOutputForest(50, 42)
	require.NoError(t, m.Fit(X, Y))
	require.Len(t, m.Estimators, 2)

	pred := m.Predict([]float64{2, 2})
	require.Len(t, pred, 2)
	assert.InDelta(t, 60, pred[0], 15)
	assert.InDelta(t, 6, pred[1], 1.5)
}

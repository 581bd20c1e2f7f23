package pipeline

import (
	"testing"

	"github.com/bodytwin/platform/pkg/ml"
	"github.com/bodytwin/platform/pkg/ml/ensemble"
	"github.com/bodytwin/platform/pkg/ml/linear"
	"github.com/bodytwin/platform/pkg/ml/neighbors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	trainX = [][]float64{
		{1, 100}, {2, 110}, {1.5, 95}, {2.5, 105},
		{8, 300}, {9, 310}, {8.5, 290}, {9.5, 305},
	}
	trainY = []int{0, 0, 0, 0, 1, 1, 1, 1}
	inputs = [][]float64{{1.2, 98}, {9.1, 299}, {5, 200}}
)

func TestDecodedClassifierPredictsLikeOriginal(t *testing.T) {
	models := map[string]ml.Classifier{
		"logreg":      linear.NewLogistic(linear.Options{Epochs: 200}),
		"rf":          ensemble.NewRandomForest(10, 42),
		"extra_trees": ensemble.NewExtraTrees(10, 42),
		"gb":          ensemble.NewGradientBoosting(42),
		"adaboost":    ensemble.NewAdaBoost(42),
		"knn":         neighbors.NewKNN(3),
	}
	for key, model := range models {
		t.Run(key, func(t *testing.T) {
			original := NewClassifier(key, model)
			require.NoError(t, original.Fit(trainX, trainY))

			data, err := EncodeClassifier(original)
			require.NoError(t, err)
			decoded, err := DecodeClassifier(data)
			require.NoError(t, err)

			assert.Equal(t, key, decoded.ModelType)
			assert.Equal(t, original.PredictAll(inputs), decoded.PredictAll(inputs))
			assert.Equal(t, 0, decoded.Predict(inputs[0]))
			assert.Equal(t, 1, decoded.Predict(inputs[1]))
		})
	}
}

func TestDecodedRegressorPredictsLikeOriginal(t *testing.T) {
	X := [][]float64{{0, 1}, {0, 2}, {1, 1}, {1, 2}}
	Y := [][]float64{{10, 1}, {20, 2}, {30, 3}, {60, 6}}
	original := NewRegressor("rf_regressor", ensemble.NewMultiOutputForest(10, 42))
	require.NoError(t, original.Fit(X, Y))

	data, err := EncodeRegressor(original)
	require.NoError(t, err)
	decoded, err := DecodeRegressor(data)
	require.NoError(t, err)

	assert.Equal(t, original.PredictAll(X), decoded.PredictAll(X))
}

func TestDecodeRejectsWrongKindAndAlgorithm(t *testing.T) {
	_, err := DecodeClassifier([]byte(`{"kind":"regressor","algorithm":"multi_output_forest","model":{}}`))
	assert.Error(t, err)

	_, err = DecodeClassifier([]byte(`{"kind":"classifier","algorithm":"svm","model":{}}`))
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)

	_, err = DecodeRegressor([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeRejectsStructurallyEmptyModels(t *testing.T) {
	scaler := `{"mean":[0,0],"scale":[1,1]}`
	classifiers := map[string]string{
		"empty scaler":         `{"kind":"classifier","algorithm":"k_nearest_neighbors","scaler":{},"model":{"k":5}}`,
		"ragged scaler":        `{"kind":"classifier","algorithm":"k_nearest_neighbors","scaler":{"mean":[0,0],"scale":[1]},"model":{"k":1,"n_classes":1,"samples":[[0,0]],"labels":[0]}}`,
		"knn without samples":  `{"kind":"classifier","algorithm":"k_nearest_neighbors","scaler":` + scaler + `,"model":{"k":5,"n_classes":2}}`,
		"knn narrow sample":    `{"kind":"classifier","algorithm":"k_nearest_neighbors","scaler":` + scaler + `,"model":{"k":1,"n_classes":1,"samples":[[0]],"labels":[0]}}`,
		"forest without trees": `{"kind":"classifier","algorithm":"random_forest","scaler":` + scaler + `,"model":{"n_classes":2,"trees":[]}}`,
		"forest bad child":     `{"kind":"classifier","algorithm":"random_forest","scaler":` + scaler + `,"model":{"n_classes":1,"trees":[{"nodes":[{"f":0,"t":0,"l":4,"r":5,"v":[1]}]}]}}`,
		"boosting no stages":   `{"kind":"classifier","algorithm":"gradient_boosting","scaler":` + scaler + `,"model":{"n_classes":2,"init":[0,0]}}`,
		"adaboost no alphas":   `{"kind":"classifier","algorithm":"adaboost","scaler":` + scaler + `,"model":{"n_classes":1,"stumps":[{"nodes":[{"f":-1,"l":-1,"r":-1,"v":[1]}]}]}}`,
		"logistic no weights":  `{"kind":"classifier","algorithm":"logistic_regression","scaler":` + scaler + `,"model":{}}`,
	}
	for name, payload := range classifiers {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeClassifier([]byte(payload))
			assert.ErrorIs(t, err, ErrInvalidModel)
		})
	}

	_, err := DecodeRegressor([]byte(`{"kind":"regressor","algorithm":"multi_output_forest","model":{"estimators":[]}}`))
	assert.ErrorIs(t, err, ErrInvalidModel)
	_, err = DecodeRegressor([]byte(`{"kind":"regressor","algorithm":"multi_output_forest","model":{"estimators":[null]}}`))
	assert.ErrorIs(t, err, ErrInvalidModel)
	_, err = DecodeRegressor([]byte(`{"kind":"regressor","algorithm":"multi_output_forest","model":{"estimators":[{"trees":[{"nodes":[]}]}]}}`))
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestClassifierFitRejectsEmpty(t *testing.T) {
	err := NewClassifier("knn", neighbors.NewKNN(5)).Fit(nil, nil)
	assert.ErrorIs(t, err, ml.ErrEmptyDataset)
}

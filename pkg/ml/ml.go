// Package ml holds the estimator contracts shared by the model packages.
// Class labels are dense non-negative integers 0..K-1.
package ml

import (
	"errors"
	"fmt"
)

var ErrEmptyDataset = errors.New("ml: empty training set")

type Classifier interface {
	// Algorithm names the concrete estimator; artifact decoding keys on it.
	Algorithm() string
	Fit(X [][]float64, y []int) error
	Predict(x []float64) int
}

// MultiRegressor maps one feature vector to several continuous targets.
type MultiRegressor interface {
	Algorithm() string
	Fit(X [][]float64, Y [][]float64) error
	Predict(x []float64) []float64
}

// Validator is implemented by estimators that can check decoded state
// before serving. width is the expected input length, 0 when unknown.
type Validator interface {
	Validate(width int) error
}

// CheckClassification validates a labelled training set and returns K.
func CheckClassification(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("ml: %d samples but %d labels", len(X), len(y))
	}
	width := len(X[0])
	maxLabel := 0
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("ml: sample %d has %d features, want %d", i, len(row), width)
		}
		if y[i] < 0 {
			return 0, fmt.Errorf("ml: negative label %d at sample %d", y[i], i)
		}
		if y[i] > maxLabel {
			maxLabel = y[i]
		}
	}
	return maxLabel + 1, nil
}

// Argmax returns the first index holding the maximum value.
func Argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Column extracts target j from a row-major target matrix.
func Column(Y [][]float64, j int) []float64 {
	out := make([]float64, len(Y))
	for i, row := range Y {
		out[i] = row[j]
	}
	return out
}

package preprocess

import (
	"fmt"
	"math"
)

// StandardScaler centres each feature and divides by its population
// standard deviation. Constant features keep a scale of one.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

func (s *StandardScaler) Fit(X [][]float64) {
	if len(X) == 0 {
		return
	}
	width := len(X[0])
	n := float64(len(X))
	s.Mean = make([]float64, width)
	s.Scale = make([]float64, width)
	for _, row := range X {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Scale[j] += d * d
		}
	}
	for j := range s.Scale {
		s.Scale[j] = math.Sqrt(s.Scale[j] / n)
		if s.Scale[j] < 1e-12 {
			s.Scale[j] = 1
		}
	}
}

// Validate reports a scaler that was never fitted or whose columns disagree.
func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler: %d means and %d scales", len(s.Mean), len(s.Scale))
	}
	return nil
}

// Width is the number of features the scaler was fitted on.
func (s *StandardScaler) Width() int { return len(s.Mean) }

func (s *StandardScaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out
}

func (s *StandardScaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

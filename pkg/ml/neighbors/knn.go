package neighbors

import (
	"fmt"
	"slices"

	"github.com/bodytwin/platform/pkg/ml"
)

const AlgorithmKNN = "k_nearest_neighbors"

// KNN votes among the K closest training samples (euclidean, uniform
// weights). Vote ties go to the smallest label.
type KNN struct {
	K        int         `json:"k"`
	NClasses int         `json:"n_classes"`
	Samples  [][]float64 `json:"samples"`
	Labels   []int       `json:"labels"`
}

func NewKNN(k int) *KNN {
	return &KNN{K: k}
}

func (m *KNN) Algorithm() string { return AlgorithmKNN }

func (m *KNN) Fit(X [][]float64, y []int) error {
	k, err := ml.CheckClassification(X, y)
	if err != nil {
		return err
	}
	if m.K <= 0 {
		m.K = 5
	}
	m.NClasses = k
	m.Samples = make([][]float64, len(X))
	for i, row := range X {
		m.Samples[i] = slices.Clone(row)
	}
	m.Labels = slices.Clone(y)
	return nil
}

func (m *KNN) Predict(x []float64) int {
	type neighbor struct {
		dist  float64
		label int
	}
	all := make([]neighbor, len(m.Samples))
	for i, s := range m.Samples {
		all[i] = neighbor{dist: squaredDistance(s, x), label: m.Labels[i]}
	}
	slices.SortStableFunc(all, func(a, b neighbor) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})
	votes := make([]float64, m.NClasses)
	for _, n := range all[:min(m.K, len(all))] {
		votes[n.label]++
	}
	return ml.Argmax(votes)
}

func (m *KNN) Validate(width int) error {
	if m.K < 1 || m.NClasses < 1 {
		return fmt.Errorf("knn: k=%d with %d classes", m.K, m.NClasses)
	}
	if len(m.Samples) == 0 || len(m.Samples) != len(m.Labels) {
		return fmt.Errorf("knn: %d samples and %d labels", len(m.Samples), len(m.Labels))
	}
	for i, s := range m.Samples {
		if width > 0 && len(s) != width {
			return fmt.Errorf("knn: sample %d has %d features, want %d", i, len(s), width)
		}
		if m.Labels[i] < 0 || m.Labels[i] >= m.NClasses {
			return fmt.Errorf("knn: label %d outside %d classes", m.Labels[i], m.NClasses)
		}
	}
	return nil
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

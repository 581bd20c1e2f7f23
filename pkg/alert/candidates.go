package alert

import (
	"github.com/bodytwin/platform/pkg/ml"
	"github.com/bodytwin/platform/pkg/ml/ensemble"
	"github.com/bodytwin/platform/pkg/ml/linear"
	"github.com/bodytwin/platform/pkg/ml/neighbors"
)

// Candidate is one entry of the bake-off. Key becomes the record's
// model_type and part of the artifact name.
type Candidate struct {
	Key string
	New func(seed int64) ml.Classifier
}

// DefaultRoster lists the candidates in evaluation order. Order matters:
// on an exact macro-F1 tie the earlier candidate wins, so reordering this
// list can change which model gets promoted.
func DefaultRoster(boosted bool) []Candidate {
	roster := []Candidate{
		{Key: "logreg", New: func(int64) ml.Classifier {
			return linear.NewLogistic(linear.Options{Epochs: 2000, LearningRate: 0.1, C: 1.0})
		}},
		{Key: "rf", New: func(seed int64) ml.Classifier { return ensemble.NewRandomForest(200, seed) }},
		{Key: "gb", New: func(seed int64) ml.Classifier { return ensemble.NewGradientBoosting(seed) }},
		{Key: "knn", New: func(int64) ml.Classifier { return neighbors.NewKNN(5) }},
		{Key: "extra_trees", New: func(seed int64) ml.Classifier { return ensemble.NewExtraTrees(200, seed) }},
		{Key: "adaboost", New: func(seed int64) ml.Classifier { return ensemble.NewAdaBoost(seed) }},
	}
	if boosted {
		roster = append(roster, Candidate{Key: "hist_gb", New: newHistGB})
	}
	return roster
}

// newHistGB is the optional boosted backend: deeper, longer and
// stochastic gradient boosting.
func newHistGB(seed int64) ml.Classifier {
	gb := ensemble.NewGradientBoosting(seed)
	gb.NEstimators = 200
	gb.MaxDepth = 4
	gb.Subsample = 0.8
	return gb
}

package ensemble

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/bodytwin/platform/pkg/ml"
	"github.com/bodytwin/platform/pkg/ml/tree"
)

const (
	AlgorithmRandomForest    = "random_forest"
	AlgorithmExtraTrees      = "extra_trees"
	AlgorithmForestRegressor = "random_forest_regressor"
	AlgorithmMultiOutput     = "multi_output_forest"
)

// Forest is a bagged ensemble of gini trees. With Extra set it becomes an
// extra-trees ensemble: no bootstrap, random thresholds.
type Forest struct {
	NEstimators int          `json:"n_estimators"`
	MaxDepth    int          `json:"max_depth,omitempty"`
	Extra       bool         `json:"extra,omitempty"`
	Seed        int64        `json:"seed"`
	NClasses    int          `json:"n_classes"`
	Trees       []*tree.Tree `json:"trees"`
}

func NewRandomForest(nEstimators int, seed int64) *Forest {
	return &Forest{NEstimators: nEstimators, Seed: seed}
}

func NewExtraTrees(nEstimators int, seed int64) *Forest {
	return &Forest{NEstimators: nEstimators, Seed: seed, Extra: true}
}

func (f *Forest) Algorithm() string {
	if f.Extra {
		return AlgorithmExtraTrees
	}
	return AlgorithmRandomForest
}

func (f *Forest) Fit(X [][]float64, y []int) error {
	k, err := ml.CheckClassification(X, y)
	if err != nil {
		return err
	}
	if f.NEstimators <= 0 {
		f.NEstimators = 100
	}
	f.NClasses = k
	rng := rand.New(rand.NewSource(f.Seed))
	maxFeatures := sqrtFeatures(len(X[0]))
	f.Trees = make([]*tree.Tree, 0, f.NEstimators)
	for i := 0; i < f.NEstimators; i++ {
		cfg := tree.Config{
			MaxDepth:     f.MaxDepth,
			MaxFeatures:  maxFeatures,
			RandomSplits: f.Extra,
			Rand:         rand.New(rand.NewSource(rng.Int63())),
		}
		var weights []float64
		if !f.Extra {
			weights = bootstrapWeights(len(X), cfg.Rand)
		}
		f.Trees = append(f.Trees, tree.BuildClassifier(X, y, weights, k, cfg))
	}
	return nil
}

func (f *Forest) PredictProba(x []float64) []float64 {
	out := make([]float64, f.NClasses)
	for _, t := range f.Trees {
		for k, p := range t.PredictProba(x) {
			out[k] += p
		}
	}
	for k := range out {
		out[k] /= float64(len(f.Trees))
	}
	return out
}

func (f *Forest) Predict(x []float64) int {
	return ml.Argmax(f.PredictProba(x))
}

func (f *Forest) Validate(width int) error {
	if f.NClasses < 1 {
		return fmt.Errorf("forest: %d classes", f.NClasses)
	}
	return validateTrees("forest", f.Trees, width, f.NClasses)
}

// ForestRegressor averages bootstrapped squared-error trees over all features.
type ForestRegressor struct {
	NEstimators int          `json:"n_estimators"`
	Seed        int64        `json:"seed"`
	Trees       []*tree.Tree `json:"trees"`
}

func NewForestRegressor(nEstimators int, seed int64) *ForestRegressor {
	return &ForestRegressor{NEstimators: nEstimators, Seed: seed}
}

func (f *ForestRegressor) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 {
		return ml.ErrEmptyDataset
	}
	if len(X) != len(y) {
		return fmt.Errorf("ensemble: %d samples but %d targets", len(X), len(y))
	}
	if f.NEstimators <= 0 {
		f.NEstimators = 100
	}
	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]*tree.Tree, 0, f.NEstimators)
	for i := 0; i < f.NEstimators; i++ {
		cfg := tree.Config{Rand: rand.New(rand.NewSource(rng.Int63()))}
		f.Trees = append(f.Trees, tree.BuildRegressor(X, y, bootstrapWeights(len(X), cfg.Rand), cfg))
	}
	return nil
}

func (f *ForestRegressor) Validate(width int) error {
	if f == nil {
		return fmt.Errorf("forest regressor: missing")
	}
	return validateTrees("forest regressor", f.Trees, width, 1)
}

func (f *ForestRegressor) Predict(x []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.PredictValue(x)
	}
	return sum / float64(len(f.Trees))
}

// MultiOutputForest fits one independent ForestRegressor per target column,
// every one seeded identically.
type MultiOutputForest struct {
	NEstimators int                `json:"n_estimators"`
	Seed        int64              `json:"seed"`
	Estimators  []*ForestRegressor `json:"estimators"`
}

func NewMultiOutputForest(nEstimators int, seed int64) *MultiOutputForest {
	return &MultiOutputForest{NEstimators: nEstimators, Seed: seed}
}

func (m *MultiOutputForest) Algorithm() string { return AlgorithmMultiOutput }

func (m *MultiOutputForest) Fit(X [][]float64, Y [][]float64) error {
	if len(Y) == 0 {
		return ml.ErrEmptyDataset
	}
	outputs := len(Y[0])
	m.Estimators = make([]*ForestRegressor, outputs)
	for j := 0; j < outputs; j++ {
		est := NewForestRegressor(m.NEstimators, m.Seed)
		if err := est.Fit(X, ml.Column(Y, j)); err != nil {
			return fmt.Errorf("output %d: %w", j, err)
		}
		m.Estimators[j] = est
	}
	return nil
}

func (m *MultiOutputForest) Predict(x []float64) []float64 {
	out := make([]float64, len(m.Estimators))
	for j, est := range m.Estimators {
		out[j] = est.Predict(x)
	}
	return out
}

func (m *MultiOutputForest) Validate(width int) error {
	if len(m.Estimators) == 0 {
		return fmt.Errorf("multi-output forest: no estimators")
	}
	for j, est := range m.Estimators {
		if err := est.Validate(width); err != nil {
			return fmt.Errorf("output %d: %w", j, err)
		}
	}
	return nil
}

func validateTrees(name string, trees []*tree.Tree, width, values int) error {
	if len(trees) == 0 {
		return fmt.Errorf("%s: no trees", name)
	}
	for i, t := range trees {
		if err := t.Validate(width, values); err != nil {
			return fmt.Errorf("%s tree %d: %w", name, i, err)
		}
	}
	return nil
}

func bootstrapWeights(n int, rng *rand.Rand) []float64 {
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[rng.Intn(n)]++
	}
	return weights
}

func sqrtFeatures(n int) int {
	return max(1, int(math.Sqrt(float64(n))))
}

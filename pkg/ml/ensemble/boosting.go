package ensemble

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/bodytwin/platform/pkg/ml"
	"github.com/bodytwin/platform/pkg/ml/tree"
)

const (
	AlgorithmGradientBoosting = "gradient_boosting"
	AlgorithmAdaBoost         = "adaboost"
)

// GradientBoosting minimises multinomial deviance with one regression tree
// per class per stage. Leaf values take a single Newton step.
type GradientBoosting struct {
	NEstimators  int            `json:"n_estimators"`
	LearningRate float64        `json:"learning_rate"`
	MaxDepth     int            `json:"max_depth"`
	Subsample    float64        `json:"subsample,omitempty"`
	Seed         int64          `json:"seed"`
	NClasses     int            `json:"n_classes"`
	Init         []float64      `json:"init"`
	Stages       [][]*tree.Tree `json:"stages"`
}

func NewGradientBoosting(seed int64) *GradientBoosting {
	return &GradientBoosting{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3, Seed: seed}
}

func (g *GradientBoosting) Algorithm() string { return AlgorithmGradientBoosting }

func (g *GradientBoosting) Fit(X [][]float64, y []int) error {
	k, err := ml.CheckClassification(X, y)
	if err != nil {
		return err
	}
	if g.NEstimators <= 0 {
		g.NEstimators = 100
	}
	if g.LearningRate <= 0 {
		g.LearningRate = 0.1
	}
	if g.MaxDepth <= 0 {
		g.MaxDepth = 3
	}
	n := len(X)
	g.NClasses = k
	g.Init = make([]float64, k)
	counts := make([]float64, k)
	for _, label := range y {
		counts[label]++
	}
	for c := range g.Init {
		g.Init[c] = math.Log(math.Max(counts[c]/float64(n), 1e-12))
	}

	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = append([]float64(nil), g.Init...)
	}
	rng := rand.New(rand.NewSource(g.Seed))
	g.Stages = make([][]*tree.Tree, 0, g.NEstimators)
	residual := make([]float64, n)
	for m := 0; m < g.NEstimators; m++ {
		proba := make([][]float64, n)
		for i := range scores {
			proba[i] = softmax(scores[i])
		}
		weights := g.stageWeights(n, rng)
		stage := make([]*tree.Tree, k)
		for c := 0; c < k; c++ {
			for i := range residual {
				target := 0.0
				if y[i] == c {
					target = 1
				}
				residual[i] = target - proba[i][c]
			}
			t := tree.BuildRegressor(X, residual, weights, tree.Config{
				MaxDepth: g.MaxDepth,
				Rand:     rand.New(rand.NewSource(rng.Int63())),
			})
			g.newtonStep(t, X, residual, weights, k)
			for i, x := range X {
				scores[i][c] += g.LearningRate * t.PredictValue(x)
			}
			stage[c] = t
		}
		g.Stages = append(g.Stages, stage)
	}
	return nil
}

func (g *GradientBoosting) stageWeights(n int, rng *rand.Rand) []float64 {
	if g.Subsample <= 0 || g.Subsample >= 1 {
		return nil
	}
	weights := make([]float64, n)
	for i := range weights {
		if rng.Float64() < g.Subsample {
			weights[i] = 1
		}
	}
	return weights
}

func (g *GradientBoosting) newtonStep(t *tree.Tree, X [][]float64, residual, weights []float64, k int) {
	num := make(map[int]float64)
	den := make(map[int]float64)
	for i, x := range X {
		if weights != nil && weights[i] == 0 {
			continue
		}
		leaf := t.Apply(x)
		r := residual[i]
		num[leaf] += r
		den[leaf] += math.Abs(r) * (1 - math.Abs(r))
	}
	scale := float64(k-1) / float64(k)
	if k < 2 {
		scale = 1
	}
	for leaf, sum := range num {
		value := 0.0
		if den[leaf] > 1e-150 {
			value = scale * sum / den[leaf]
		}
		t.SetLeafValue(leaf, value)
	}
}

func (g *GradientBoosting) decision(x []float64) []float64 {
	scores := append([]float64(nil), g.Init...)
	for _, stage := range g.Stages {
		for c, t := range stage {
			scores[c] += g.LearningRate * t.PredictValue(x)
		}
	}
	return scores
}

func (g *GradientBoosting) Predict(x []float64) int {
	return ml.Argmax(g.decision(x))
}

func (g *GradientBoosting) Validate(width int) error {
	if g.NClasses < 1 || len(g.Init) != g.NClasses {
		return fmt.Errorf("gradient boosting: %d classes, %d initial scores", g.NClasses, len(g.Init))
	}
	if len(g.Stages) == 0 {
		return fmt.Errorf("gradient boosting: no stages")
	}
	for s, stage := range g.Stages {
		if len(stage) != g.NClasses {
			return fmt.Errorf("gradient boosting: stage %d has %d trees, want %d", s, len(stage), g.NClasses)
		}
		if err := validateTrees("gradient boosting", stage, width, 1); err != nil {
			return fmt.Errorf("stage %d: %w", s, err)
		}
	}
	return nil
}

func softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	peak := scores[0]
	for _, s := range scores[1:] {
		peak = math.Max(peak, s)
	}
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// AdaBoost is multi-class SAMME over depth-one trees.
type AdaBoost struct {
	NEstimators  int          `json:"n_estimators"`
	LearningRate float64      `json:"learning_rate"`
	Seed         int64        `json:"seed"`
	NClasses     int          `json:"n_classes"`
	Alphas       []float64    `json:"alphas"`
	Stumps       []*tree.Tree `json:"stumps"`
}

func NewAdaBoost(seed int64) *AdaBoost {
	return &AdaBoost{NEstimators: 50, LearningRate: 1.0, Seed: seed}
}

func (a *AdaBoost) Algorithm() string { return AlgorithmAdaBoost }

func (a *AdaBoost) Fit(X [][]float64, y []int) error {
	k, err := ml.CheckClassification(X, y)
	if err != nil {
		return err
	}
	if a.NEstimators <= 0 {
		a.NEstimators = 50
	}
	if a.LearningRate <= 0 {
		a.LearningRate = 1.0
	}
	a.NClasses = k
	a.Alphas, a.Stumps = nil, nil
	n := len(X)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1 / float64(n)
	}
	classTerm := math.Log(math.Max(float64(k-1), 1))
	rng := rand.New(rand.NewSource(a.Seed))

	for m := 0; m < a.NEstimators; m++ {
		stump := tree.BuildClassifier(X, y, weights, k, tree.Config{
			MaxDepth: 1,
			Rand:     rand.New(rand.NewSource(rng.Int63())),
		})
		wrong := make([]bool, n)
		var errSum, total float64
		for i, x := range X {
			total += weights[i]
			if ml.Argmax(stump.PredictProba(x)) != y[i] {
				wrong[i] = true
				errSum += weights[i]
			}
		}
		errRate := errSum / total
		if errRate <= 0 {
			a.Stumps = append(a.Stumps, stump)
			a.Alphas = append(a.Alphas, 1)
			return nil
		}
		if errRate >= 1-1/float64(max(k, 2)) {
			if len(a.Stumps) == 0 {
				a.Stumps = append(a.Stumps, stump)
				a.Alphas = append(a.Alphas, 1)
			}
			return nil
		}
		alpha := a.LearningRate * (math.Log((1-errRate)/errRate) + classTerm)
		a.Stumps = append(a.Stumps, stump)
		a.Alphas = append(a.Alphas, alpha)

		var norm float64
		for i := range weights {
			if wrong[i] {
				weights[i] *= math.Exp(alpha)
			}
			norm += weights[i]
		}
		for i := range weights {
			weights[i] /= norm
		}
	}
	return nil
}

func (a *AdaBoost) Predict(x []float64) int {
	votes := make([]float64, a.NClasses)
	for m, stump := range a.Stumps {
		votes[ml.Argmax(stump.PredictProba(x))] += a.Alphas[m]
	}
	return ml.Argmax(votes)
}

func (a *AdaBoost) Validate(width int) error {
	if a.NClasses < 1 {
		return fmt.Errorf("adaboost: %d classes", a.NClasses)
	}
	if len(a.Alphas) != len(a.Stumps) {
		return fmt.Errorf("adaboost: %d alphas for %d stumps", len(a.Alphas), len(a.Stumps))
	}
	return validateTrees("adaboost", a.Stumps, width, a.NClasses)
}

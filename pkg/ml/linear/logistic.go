package linear

import (
	"fmt"
	"math"

	"github.com/bodytwin/platform/pkg/ml"
)

const AlgorithmLogistic = "logistic_regression"

type Options struct {
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learning_rate"`
	// C is the inverse L2 strength, as in the usual liblinear convention.
	C float64 `json:"c"`
}

// Weights holds one row of coefficients per class.
type Weights struct {
	Bias         []float64   `json:"bias"`
	Coefficients [][]float64 `json:"coefficients"`
}

// Logistic is a multinomial (softmax) logistic regression trained by full
// batch gradient descent. Inputs are expected to be standardised.
type Logistic struct {
	Options Options `json:"options"`
	Weights Weights `json:"weights"`
}

func NewLogistic(opts Options) *Logistic {
	return &Logistic{Options: opts}
}

func (l *Logistic) Algorithm() string { return AlgorithmLogistic }

func (l *Logistic) Fit(X [][]float64, y []int) error {
	k, err := ml.CheckClassification(X, y)
	if err != nil {
		return err
	}
	l.Weights = TrainSoftmax(X, y, max(k, 2), l.Options)
	return nil
}

func (l *Logistic) Predict(x []float64) int {
	return ml.Argmax(Predict(l.Weights, x))
}

func (l *Logistic) Validate(width int) error {
	w := l.Weights
	if len(w.Bias) == 0 || len(w.Bias) != len(w.Coefficients) {
		return fmt.Errorf("logistic: %d biases for %d coefficient rows", len(w.Bias), len(w.Coefficients))
	}
	for c, row := range w.Coefficients {
		if width > 0 && len(row) != width {
			return fmt.Errorf("logistic: class %d has %d coefficients, want %d", c, len(row), width)
		}
	}
	return nil
}

func TrainSoftmax(samples [][]float64, labels []int, nClasses int, opts Options) Weights {
	if opts.Epochs <= 0 {
		opts.Epochs = 2000
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.1
	}
	if opts.C <= 0 {
		opts.C = 1.0
	}

	n := len(samples)
	if n == 0 {
		return Weights{}
	}
	featureCount := len(samples[0])
	weights := Weights{Bias: make([]float64, nClasses), Coefficients: make([][]float64, nClasses)}
	for c := range weights.Coefficients {
		weights.Coefficients[c] = make([]float64, featureCount)
	}
	penalty := 1 / (opts.C * float64(n))

	grad := make([][]float64, nClasses)
	for c := range grad {
		grad[c] = make([]float64, featureCount)
	}
	biasGrad := make([]float64, nClasses)
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		for c := range grad {
			clear(grad[c])
		}
		clear(biasGrad)
		for i, sample := range samples {
			proba := Predict(weights, sample)
			for c := 0; c < nClasses; c++ {
				diff := proba[c]
				if labels[i] == c {
					diff -= 1
				}
				for j := 0; j < featureCount; j++ {
					grad[c][j] += diff * sample[j]
				}
				biasGrad[c] += diff
			}
		}
		for c := 0; c < nClasses; c++ {
			for j := 0; j < featureCount; j++ {
				step := grad[c][j]/float64(n) + penalty*weights.Coefficients[c][j]
				weights.Coefficients[c][j] -= opts.LearningRate * step
			}
			weights.Bias[c] -= opts.LearningRate * biasGrad[c] / float64(n)
		}
	}

	return weights
}

// Predict returns class probabilities.
func Predict(weights Weights, sample []float64) []float64 {
	scores := make([]float64, len(weights.Bias))
	for c := range scores {
		scores[c] = dot(weights.Coefficients[c], sample) + weights.Bias[c]
	}
	return softmax(scores)
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func softmax(scores []float64) []float64 {
	peak := math.Inf(-1)
	for _, s := range scores {
		peak = math.Max(peak, s)
	}
	out := make([]float64, len(scores))
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

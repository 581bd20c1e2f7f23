package evaluate

import (
	"math"
	"sort"
)

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// F1Macro averages per-class F1 over every label seen in either slice.
// A class with no true or predicted positives scores zero.
func F1Macro(yTrue, yPred []int) float64 {
	labels := map[int]struct{}{}
	for i := range yTrue {
		labels[yTrue[i]] = struct{}{}
		labels[yPred[i]] = struct{}{}
	}
	if len(labels) == 0 {
		return 0
	}
	ordered := make([]int, 0, len(labels))
	for label := range labels {
		ordered = append(ordered, label)
	}
	sort.Ints(ordered)

	var sum float64
	for _, label := range ordered {
		var tp, fp, fn float64
		for i := range yTrue {
			switch {
			case yTrue[i] == label && yPred[i] == label:
				tp++
			case yPred[i] == label:
				fp++
			case yTrue[i] == label:
				fn++
			}
		}
		if denom := 2*tp + fp + fn; denom > 0 {
			sum += 2 * tp / denom
		}
	}
	return sum / float64(len(ordered))
}

// MeanAbsoluteError averages absolute errors over every output of every
// sample (uniform weighting across outputs).
func MeanAbsoluteError(yTrue, yPred [][]float64) float64 {
	var sum float64
	var count int
	for i := range yTrue {
		for j := range yTrue[i] {
			sum += math.Abs(yTrue[i][j] - yPred[i][j])
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

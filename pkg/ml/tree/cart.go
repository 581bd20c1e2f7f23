package tree

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
)

// Node is stored in a flat slice so a tree serialises as plain JSON.
// Leaves have Left == Right == -1.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v"`
}

// Tree is a binary CART tree. For classification Value holds class
// probabilities; for regression it holds a single mean.
type Tree struct {
	Nodes    []Node `json:"nodes"`
	NClasses int    `json:"n_classes,omitempty"`
}

type Config struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 means every feature
	// RandomSplits draws one uniform threshold per feature instead of
	// scanning every cut point (extremely randomised trees).
	RandomSplits bool
	Rand         *rand.Rand
}

const minGain = 1e-12

func (c Config) withDefaults() Config {
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf < 1 {
		c.MinSamplesLeaf = 1
	}
	if c.Rand == nil {
		c.Rand = rand.New(rand.NewSource(0))
	}
	return c
}

// BuildClassifier grows a gini tree. weights may be nil; samples with zero
// weight are ignored.
func BuildClassifier(X [][]float64, y []int, weights []float64, nClasses int, cfg Config) *Tree {
	target := make([]float64, len(y))
	for i, label := range y {
		target[i] = float64(label)
	}
	b := newBuilder(X, target, weights, nClasses, cfg)
	return b.run()
}

// BuildRegressor grows a squared-error tree.
func BuildRegressor(X [][]float64, y []float64, weights []float64, cfg Config) *Tree {
	b := newBuilder(X, y, weights, 0, cfg)
	return b.run()
}

// Apply returns the index of the leaf reached by x.
func (t *Tree) Apply(x []float64) int {
	idx := 0
	for {
		node := t.Nodes[idx]
		if node.Left < 0 {
			return idx
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
}

func (t *Tree) PredictProba(x []float64) []float64 {
	return t.Nodes[t.Apply(x)].Value
}

func (t *Tree) PredictValue(x []float64) float64 {
	return t.Nodes[t.Apply(x)].Value[0]
}

// SetLeafValue overwrites a regression leaf; gradient boosting uses it for
// its Newton step.
func (t *Tree) SetLeafValue(leaf int, value float64) {
	t.Nodes[leaf].Value = []float64{value}
}

// Validate checks a decoded tree against the input width (0 skips the
// feature bound) and the leaf value length. Children always follow their
// parent, so a valid tree cannot loop.
func (t *Tree) Validate(width, values int) error {
	if t == nil || len(t.Nodes) == 0 {
		return fmt.Errorf("tree: no nodes")
	}
	for i, node := range t.Nodes {
		if node.Left < 0 && node.Right < 0 {
			if len(node.Value) != values {
				return fmt.Errorf("tree: leaf %d holds %d values, want %d", i, len(node.Value), values)
			}
			continue
		}
		if node.Left <= i || node.Right <= i || node.Left >= len(t.Nodes) || node.Right >= len(t.Nodes) {
			return fmt.Errorf("tree: node %d has children %d/%d outside (%d, %d)", i, node.Left, node.Right, i, len(t.Nodes))
		}
		if node.Feature < 0 || (width > 0 && node.Feature >= width) {
			return fmt.Errorf("tree: node %d splits on feature %d of %d", i, node.Feature, width)
		}
	}
	return nil
}

func (t *Tree) Depth() int {
	var walk func(idx int) int
	walk = func(idx int) int {
		node := t.Nodes[idx]
		if node.Left < 0 {
			return 0
		}
		return 1 + max(walk(node.Left), walk(node.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

type builder struct {
	cfg      Config
	X        [][]float64
	y        []float64
	w        []float64
	nClasses int
	nodes    []Node
}

func newBuilder(X [][]float64, y []float64, weights []float64, nClasses int, cfg Config) *builder {
	if weights == nil {
		weights = make([]float64, len(y))
		for i := range weights {
			weights[i] = 1
		}
	}
	return &builder{cfg: cfg.withDefaults(), X: X, y: y, w: weights, nClasses: nClasses}
}

func (b *builder) run() *Tree {
	idx := make([]int, 0, len(b.y))
	for i, w := range b.w {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	b.grow(idx, 0)
	return &Tree{Nodes: b.nodes, NClasses: b.nClasses}
}

func (b *builder) grow(idx []int, depth int) int {
	stats := b.newStats()
	for _, i := range idx {
		b.add(stats, i, 1)
	}
	pos := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Left: -1, Right: -1, Value: b.leafValue(stats)})

	if b.cfg.MaxDepth > 0 && depth >= b.cfg.MaxDepth {
		return pos
	}
	if len(idx) < b.cfg.MinSamplesSplit || len(idx) < 2*b.cfg.MinSamplesLeaf {
		return pos
	}
	if b.impurity(stats) <= minGain {
		return pos
	}

	feature, threshold, ok := b.bestSplit(idx, stats)
	if !ok {
		return pos
	}
	var left, right []int
	for _, i := range idx {
		if b.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return pos
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[pos].Feature = feature
	b.nodes[pos].Threshold = threshold
	b.nodes[pos].Left = l
	b.nodes[pos].Right = r
	return pos
}

func (b *builder) candidateFeatures() []int {
	n := len(b.X[0])
	if b.cfg.MaxFeatures <= 0 || b.cfg.MaxFeatures >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.cfg.Rand.Perm(n)[:b.cfg.MaxFeatures]
}

func (b *builder) bestSplit(idx []int, parent []float64) (int, float64, bool) {
	parentCost := b.weight(parent) * b.impurity(parent)
	bestGain := minGain
	bestFeature, bestThreshold, found := -1, 0.0, false

	consider := func(feature int, threshold float64, left, right []float64, nLeft, nRight int) {
		if nLeft < b.cfg.MinSamplesLeaf || nRight < b.cfg.MinSamplesLeaf {
			return
		}
		cost := b.weight(left)*b.impurity(left) + b.weight(right)*b.impurity(right)
		if gain := parentCost - cost; gain > bestGain {
			bestGain, bestFeature, bestThreshold, found = gain, feature, threshold, true
		}
	}

	for _, f := range b.candidateFeatures() {
		if b.cfg.RandomSplits {
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, i := range idx {
				lo = math.Min(lo, b.X[i][f])
				hi = math.Max(hi, b.X[i][f])
			}
			if hi <= lo {
				continue
			}
			threshold := lo + b.cfg.Rand.Float64()*(hi-lo)
			left, right := b.newStats(), b.newStats()
			nLeft := 0
			for _, i := range idx {
				if b.X[i][f] <= threshold {
					b.add(left, i, 1)
					nLeft++
				} else {
					b.add(right, i, 1)
				}
			}
			consider(f, threshold, left, right, nLeft, len(idx)-nLeft)
			continue
		}

		sorted := slices.Clone(idx)
		slices.SortStableFunc(sorted, func(a, c int) int {
			switch {
			case b.X[a][f] < b.X[c][f]:
				return -1
			case b.X[a][f] > b.X[c][f]:
				return 1
			}
			return 0
		})
		left := b.newStats()
		right := slices.Clone(parent)
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			b.add(left, i, 1)
			b.add(right, i, -1)
			cur, next := b.X[i][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			consider(f, cur+(next-cur)/2, left, right, k+1, len(sorted)-k-1)
		}
	}
	return bestFeature, bestThreshold, found
}

// Stats layout: class weights for classification, [Σw, Σwy, Σwy²] for regression.
func (b *builder) newStats() []float64 {
	if b.nClasses > 0 {
		return make([]float64, b.nClasses)
	}
	return make([]float64, 3)
}

func (b *builder) add(stats []float64, i int, sign float64) {
	w := sign * b.w[i]
	if b.nClasses > 0 {
		stats[int(b.y[i])] += w
		return
	}
	stats[0] += w
	stats[1] += w * b.y[i]
	stats[2] += w * b.y[i] * b.y[i]
}

func (b *builder) weight(stats []float64) float64 {
	if b.nClasses > 0 {
		var total float64
		for _, v := range stats {
			total += v
		}
		return total
	}
	return stats[0]
}

func (b *builder) impurity(stats []float64) float64 {
	total := b.weight(stats)
	if total <= 0 {
		return 0
	}
	if b.nClasses > 0 {
		gini := 1.0
		for _, v := range stats {
			p := v / total
			gini -= p * p
		}
		return gini
	}
	mean := stats[1] / total
	return math.Max(stats[2]/total-mean*mean, 0)
}

func (b *builder) leafValue(stats []float64) []float64 {
	total := b.weight(stats)
	if b.nClasses > 0 {
		out := make([]float64, b.nClasses)
		if total > 0 {
			for k, v := range stats {
				out[k] = v / total
			}
		}
		return out
	}
	if total <= 0 {
		return []float64{0}
	}
	return []float64{stats[1] / total}
}

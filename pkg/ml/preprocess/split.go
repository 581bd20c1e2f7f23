package preprocess

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// DefaultSeed keeps fixtures and registry contents reproducible run to run.
const DefaultSeed int64 = 42

// TrainTestSplit shuffles 0..n-1 with seed and returns train and test
// indices. The test side gets ceil(testSize*n) samples.
func TrainTestSplit(n int, testSize float64, seed int64) ([]int, []int, error) {
	nTest, err := testCount(n, testSize)
	if err != nil {
		return nil, nil, err
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// StratifiedSplit keeps every class's share of the test side close to
// testSize. Each class with at least two members contributes
// round(testSize*count) test samples, clamped to [1, count-1]; a class with
// a single member stays entirely on the train side.
func StratifiedSplit(labels []int, testSize float64, seed int64) ([]int, []int, error) {
	if _, err := testCount(len(labels), testSize); err != nil {
		return nil, nil, err
	}
	byClass := map[int][]int{}
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	var train, test []int
	for _, label := range classes {
		members := byClass[label]
		rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })
		if len(members) < 2 {
			train = append(train, members...)
			continue
		}
		nTest := int(math.Round(testSize * float64(len(members))))
		nTest = min(max(nTest, 1), len(members)-1)
		test = append(test, members[:nTest]...)
		train = append(train, members[nTest:]...)
	}
	if len(test) == 0 {
		return nil, nil, fmt.Errorf("preprocess: no class has enough members for a test split")
	}
	return train, test, nil
}

func testCount(n int, testSize float64) (int, error) {
	if testSize <= 0 || testSize >= 1 {
		return 0, fmt.Errorf("preprocess: test size %v outside (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || nTest >= n {
		return 0, fmt.Errorf("preprocess: cannot split %d samples with test size %v", n, testSize)
	}
	return nTest, nil
}

// Rows selects rows of X by index.
func Rows[T any](X []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

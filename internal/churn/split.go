package churn

import (
	"math/rand/v2"
	"sort"
)

// StratifiedSplit shuffles the rows of each class with seed and moves a
// testFraction share of every class, rounded, to the test side. Both index
// lists come back sorted.
func StratifiedSplit(target []float64, testFraction float64, seed uint64) (train, test []int) {
	rng := rand.New(rand.NewPCG(seed, seed))

	classes := map[float64][]int{}
	var order []float64
	for i, y := range target {
		if _, ok := classes[y]; !ok {
			order = append(order, y)
		}
		classes[y] = append(classes[y], i)
	}
	sort.Float64s(order)

	for _, y := range order {
		idx := classes[y]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		k := int(testFraction*float64(len(idx)) + 0.5)
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

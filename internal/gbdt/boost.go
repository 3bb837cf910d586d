package gbdt

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// Result is a trained model and its learning curve.
type Result struct {
	Model    *Model
	TrainAUC []float64
	ValidAUC []float64 // empty without a validation set
	BestAUC  float64
}

// BalancedWeights gives every row of class c the weight n/(2·n_c), so both
// classes contribute the same total weight.
func BalancedWeights(label []float64) []float64 {
	var pos int
	for _, y := range label {
		if y == 1 {
			pos++
		}
	}
	n := len(label)
	wPos := float64(n) / (2 * float64(pos))
	wNeg := float64(n) / (2 * float64(n-pos))
	w := make([]float64, n)
	for i, y := range label {
		if y == 1 {
			w[i] = wPos
		} else {
			w[i] = wNeg
		}
	}
	return w
}

// Train boosts trees on train. When valid is given, AUC on it is tracked
// every round, training stops after EarlyStopping rounds without improvement
// and the model is cut back to the best round.
func Train(train, valid *Dataset, p Params) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := train.check(); err != nil {
		return nil, err
	}
	if valid != nil {
		if err := valid.check(); err != nil {
			return nil, err
		}
		if len(valid.Features) != len(train.Features) {
			return nil, fmt.Errorf("gbdt: validation set has %d features, training %d", len(valid.Features), len(train.Features))
		}
	}
	n := train.Rows()
	pos := 0
	for _, y := range train.Label {
		if y == 1 {
			pos++
		}
	}
	if pos == 0 || pos == n {
		return nil, fmt.Errorf("gbdt: training labels need both classes (%d of %d positive)", pos, n)
	}

	weight := train.Weight
	if weight == nil {
		if p.Balanced {
			weight = BalancedWeights(train.Label)
		} else {
			weight = make([]float64, n)
			for i := range weight {
				weight[i] = 1
			}
		}
	}

	var sw, swy float64
	for i, y := range train.Label {
		sw += weight[i]
		swy += weight[i] * y
	}
	avg := swy / sw
	model := &Model{Features: append([]Feature(nil), train.Features...), InitScore: math.Log(avg / (1 - avg))}

	data := binDataset(train, p.MaxBin)
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	l := &learner{p: p, data: data, grad: make([]float64, n), hess: make([]float64, n)}

	score := fill(n, model.InitScore)
	var vscore []float64
	if valid != nil {
		vscore = fill(valid.Rows(), model.InitScore)
	}

	res := &Result{Model: model, BestAUC: math.NaN()}
	bag := seq(n)
	best := 0
	row := make([]float64, len(train.Features))
	for it := 0; it < p.NumRounds; it++ {
		if p.BaggingFreq > 0 && p.BaggingFraction < 1 && it%p.BaggingFreq == 0 {
			bag = sample(rng, n, p.BaggingFraction)
		}
		for i, y := range train.Label {
			prob := sigmoid(score[i])
			l.grad[i] = (prob - y) * weight[i]
			l.hess[i] = prob * (1 - prob) * weight[i]
		}
		l.features = sample(rng, len(train.Features), p.FeatureFraction)

		tree := l.grow(bag)
		if len(tree.Nodes) == 1 {
			break
		}
		model.Trees = append(model.Trees, tree)

		for i := range score {
			score[i] += tree.predict(gather(row, train.Columns, i))
		}
		res.TrainAUC = append(res.TrainAUC, AUC(train.Label, score))

		if valid == nil {
			continue
		}
		for i := range vscore {
			vscore[i] += tree.predict(gather(row, valid.Columns, i))
		}
		auc := AUC(valid.Label, vscore)
		res.ValidAUC = append(res.ValidAUC, auc)
		if len(res.ValidAUC) == 1 || auc > res.BestAUC {
			res.BestAUC = auc
			best = len(model.Trees)
		}
		if p.EarlyStopping > 0 && len(model.Trees)-best >= p.EarlyStopping {
			break
		}
	}

	if valid != nil && best > 0 {
		model.Trees = model.Trees[:best]
	}
	model.BestIteration = len(model.Trees)
	return res, nil
}

func gather(row []float64, cols [][]float64, i int) []float64 {
	for j, c := range cols {
		row[j] = c[i]
	}
	return row
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// sample draws round(frac·n) distinct indices (at least one) in ascending order.
func sample(rng *rand.Rand, n int, frac float64) []int {
	k := int(frac*float64(n) + 0.5)
	if k < 1 {
		k = 1
	}
	if k >= n {
		return seq(n)
	}
	idx := rng.Perm(n)[:k]
	sort.Ints(idx)
	return idx
}

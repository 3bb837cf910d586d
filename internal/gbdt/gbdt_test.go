package gbdt

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic builds rows where the label follows x0 and level 2 of the
// categorical feature, with x1 as noise.
func synthetic(n int, seed uint64) *Dataset {
	rng := rand.New(rand.NewPCG(seed, seed))
	d := &Dataset{
		Features: []Feature{{Name: "x0"}, {Name: "x1"}, {Name: "program", Categorical: true, Levels: 4}},
		Columns:  [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)},
		Label:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		x0, x1, cat := rng.Float64(), rng.Float64(), float64(i%4)
		d.Columns[0][i], d.Columns[1][i], d.Columns[2][i] = x0, x1, cat
		score := x0
		if cat == 2 {
			score += 0.3
		}
		if score > 0.65 {
			d.Label[i] = 1
		}
	}
	return d
}

func fastParams() Params {
	p := DefaultParams()
	p.NumRounds = 200
	p.EarlyStopping = 20
	return p
}

func TestBalancedWeightsOnImbalancedLabels(t *testing.T) {
	label := make([]float64, 100)
	for i := 0; i < 5; i++ {
		label[i] = 1
	}
	w := BalancedWeights(label)
	assert.InDelta(t, 10.0, w[0], 1e-12)
	assert.InDelta(t, 100.0/190.0, w[99], 1e-12)
	assert.InDelta(t, 19.0, w[0]/w[99], 1e-9, "weight ratio is the inverse class frequency ratio")

	var pos, neg float64
	for i, y := range label {
		if y == 1 {
			pos += w[i]
		} else {
			neg += w[i]
		}
	}
	assert.InDelta(t, pos, neg, 1e-9)
}

func TestBalancedTrainingStartsFromEvenOdds(t *testing.T) {
	d := synthetic(400, 1)
	for i := range d.Label {
		d.Label[i] = 0
		if i%20 == 0 {
			d.Label[i] = 1
		}
	}
	p := fastParams()
	p.NumRounds = 1

	res, err := Train(d, nil, p)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Model.InitScore, 1e-12)

	p.Balanced = false
	res, err = Train(d, nil, p)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.05/0.95), res.Model.InitScore, 1e-12)
}

func TestTrainLearnsSignal(t *testing.T) {
	res, err := Train(synthetic(1200, 1), synthetic(400, 2), fastParams())
	require.NoError(t, err)

	m := res.Model
	require.NotEmpty(t, m.Trees)
	assert.Greater(t, res.BestAUC, 0.95)
	assert.Equal(t, len(m.Trees), m.BestIteration)
	assert.Equal(t, res.BestAUC, res.ValidAUC[m.BestIteration-1])
	assert.LessOrEqual(t, m.BestIteration, len(res.ValidAUC))
	for _, tree := range m.Trees {
		assert.LessOrEqual(t, tree.leaves(), 31)
	}

	hi := m.Predict([]float64{0.95, 0.5, 0})
	lo := m.Predict([]float64{0.05, 0.5, 0})
	assert.Greater(t, hi, 0.5)
	assert.Less(t, lo, 0.5)

	gain := map[string]float64{}
	for _, imp := range m.Importance() {
		gain[imp.Feature] = imp.Gain
	}
	require.Len(t, gain, 3)
	assert.Greater(t, gain["x0"], gain["x1"])
	assert.Greater(t, gain["program"], 0.0)
}

func TestTrainingIsDeterministic(t *testing.T) {
	a, err := Train(synthetic(600, 3), synthetic(200, 4), fastParams())
	require.NoError(t, err)
	b, err := Train(synthetic(600, 3), synthetic(200, 4), fastParams())
	require.NoError(t, err)
	assert.Equal(t, a.Model, b.Model)
}

func TestPredictIsBitIdenticalAfterRoundTrip(t *testing.T) {
	res, err := Train(synthetic(600, 5), synthetic(200, 6), fastParams())
	require.NoError(t, err)

	raw, err := json.Marshal(res.Model)
	require.NoError(t, err)
	var loaded Model
	require.NoError(t, json.Unmarshal(raw, &loaded))
	require.NoError(t, loaded.Validate())

	row := []float64{0.42, 0.17, 2}
	want := res.Model.Predict(row)
	for i := 0; i < 5; i++ {
		assert.Equal(t, math.Float64bits(want), math.Float64bits(loaded.Predict(row)))
	}
}

func TestCategoricalSplitSeparatesLevels(t *testing.T) {
	n := 600
	d := &Dataset{
		Features: []Feature{{Name: "program", Categorical: true, Levels: 6}},
		Columns:  [][]float64{make([]float64, n)},
		Label:    make([]float64, n),
	}
	for i := 0; i < n; i++ {
		lvl := i % 6
		d.Columns[0][i] = float64(lvl)
		if lvl == 1 || lvl == 4 {
			d.Label[i] = 1
		}
	}
	p := fastParams()
	p.NumRounds = 30
	p.FeatureFraction = 1
	res, err := Train(d, nil, p)
	require.NoError(t, err)

	m := res.Model
	for lvl := 0; lvl < 6; lvl++ {
		prob := m.Predict([]float64{float64(lvl)})
		if lvl == 1 || lvl == 4 {
			assert.Greater(t, prob, 0.5, "level %d", lvl)
		} else {
			assert.Less(t, prob, 0.5, "level %d", lvl)
		}
	}
	root := m.Trees[0].Nodes[0]
	assert.NotEmpty(t, root.Categories)
}

func TestNumericMissingGoesLeft(t *testing.T) {
	n := Node{Feature: 0, Threshold: 1}
	assert.True(t, n.goesLeft(math.NaN()))
	assert.True(t, n.goesLeft(1))
	assert.False(t, n.goesLeft(1.5))

	c := Node{Feature: 0, Categories: []int{2}}
	assert.True(t, c.goesLeft(2))
	assert.False(t, c.goesLeft(math.NaN()))
	assert.False(t, c.goesLeft(7))
}

func TestTrainRejectsSingleClass(t *testing.T) {
	d := synthetic(100, 1)
	for i := range d.Label {
		d.Label[i] = 0
	}
	_, err := Train(d, nil, fastParams())
	assert.Error(t, err)
}

func TestValidateRejectsBrokenTree(t *testing.T) {
	m := &Model{
		Features: []Feature{{Name: "x"}},
		Trees:    []Tree{{Nodes: []Node{{Feature: 0, Threshold: 1, Left: 1, Right: 5}, {Feature: -1}}}},
	}
	assert.Error(t, m.Validate())

	m.Trees[0].Nodes = []Node{{Feature: -1, Value: 0.1}}
	assert.NoError(t, m.Validate())
}

func TestAUC(t *testing.T) {
	label := []float64{0, 0, 1, 1}
	assert.Equal(t, 1.0, AUC(label, []float64{0.1, 0.2, 0.8, 0.9}))
	assert.Equal(t, 0.0, AUC(label, []float64{0.9, 0.8, 0.2, 0.1}))
	assert.Equal(t, 0.5, AUC(label, []float64{0.5, 0.5, 0.5, 0.5}))
	assert.Equal(t, 0.75, AUC(label, []float64{0.1, 0.6, 0.4, 0.9}))
	assert.True(t, math.IsNaN(AUC([]float64{1, 1}, []float64{0.2, 0.3})))
}

func TestEvaluateAtThreshold(t *testing.T) {
	label := []float64{0, 0, 0, 1, 1}
	prob := []float64{0.1, 0.5, 0.4, 0.5, 0.2}
	e := Evaluate(label, prob, 0.5)
	assert.Equal(t, Confusion{TN: 2, FP: 1, FN: 1, TP: 1}, e.Confusion)
	assert.InDelta(t, 0.6, e.Accuracy, 1e-12)
	assert.InDelta(t, 0.5, e.Precision, 1e-12)
	assert.InDelta(t, 0.5, e.Recall, 1e-12)
	assert.InDelta(t, 0.5, e.F1, 1e-12)

	none := Evaluate(label, []float64{0, 0, 0, 0, 0}, 0.5)
	assert.Zero(t, none.Precision)
	assert.Zero(t, none.F1)
}

func TestBinMapperEqualFrequency(t *testing.T) {
	v := make([]float64, 1000)
	for i := range v {
		v[i] = float64(i)
	}
	m := newBinMapper(Feature{Name: "x"}, v, 10)
	assert.Equal(t, 10, len(m.bounds))
	assert.True(t, math.IsInf(m.bounds[9], 1))
	assert.Equal(t, 0, m.bin(math.NaN()))
	assert.Equal(t, 1, m.bin(-5))
	assert.Equal(t, 10, m.bin(5000))

	small := newBinMapper(Feature{Name: "y"}, []float64{3, 1, 1, 2}, 10)
	assert.Equal(t, []float64{1.5, 2.5, math.Inf(1)}, small.bounds)
}

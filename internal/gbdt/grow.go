package gbdt

import (
	"math"
	"sort"
)

type binStat struct {
	g, h float64
	n    int
}

// histogram is indexed [feature][bin]; features outside the tree's sample are nil.
type histogram [][]binStat

func (h histogram) sub(o histogram) histogram {
	out := make(histogram, len(h))
	for j := range h {
		if h[j] == nil {
			continue
		}
		out[j] = make([]binStat, len(h[j]))
		for b := range h[j] {
			out[j][b] = binStat{g: h[j][b].g - o[j][b].g, h: h[j][b].h - o[j][b].h, n: h[j][b].n - o[j][b].n}
		}
	}
	return out
}

type split struct {
	valid     bool
	feature   int
	gain      float64
	threshold int          // numeric: bins 0..threshold go left
	left      map[int]bool // categorical: bins that go left
	lg, lh    float64
	ln        int
	rg, rh    float64
	rn        int
}

type leaf struct {
	node  int
	rows  []int
	g, h  float64
	depth int
	hist  histogram
	best  split
}

// learner grows one tree over the binned training matrix.
type learner struct {
	p        Params
	data     *binned
	grad     []float64
	hess     []float64
	features []int
}

func thresholdL1(g, l1 float64) float64 {
	switch {
	case g > l1:
		return g - l1
	case g < -l1:
		return g + l1
	}
	return 0
}

func (l *learner) leafGain(g, h float64) float64 {
	t := thresholdL1(g, l.p.LambdaL1)
	return t * t / (h + l.p.LambdaL2)
}

func (l *learner) leafOutput(g, h float64) float64 {
	return -thresholdL1(g, l.p.LambdaL1) / (h + l.p.LambdaL2)
}

func (l *learner) histogram(rows []int) histogram {
	hist := make(histogram, len(l.data.bins))
	for _, j := range l.features {
		stats := make([]binStat, l.data.mappers[j].numBins())
		col := l.data.bins[j]
		for _, i := range rows {
			s := &stats[col[i]]
			s.g += l.grad[i]
			s.h += l.hess[i]
			s.n++
		}
		hist[j] = stats
	}
	return hist
}

func (l *learner) admissible(n int, h float64) bool {
	return n >= l.p.MinDataInLeaf && h >= l.p.MinSumHessian
}

// findBest stores the best split of lf over the sampled features.
func (l *learner) findBest(lf *leaf) {
	lf.best = split{}
	if l.p.MaxDepth > 0 && lf.depth >= l.p.MaxDepth {
		return
	}
	if len(lf.rows) < 2*l.p.MinDataInLeaf {
		return
	}
	parent := l.leafGain(lf.g, lf.h)
	n := len(lf.rows)
	for _, j := range l.features {
		var s split
		if l.data.mappers[j].categorical {
			s = l.bestCategorical(lf.hist[j], lf.g, lf.h, n, parent)
		} else {
			s = l.bestNumeric(lf.hist[j], lf.g, lf.h, n, parent)
		}
		if s.valid && (!lf.best.valid || s.gain > lf.best.gain) {
			s.feature = j
			lf.best = s
		}
	}
}

func (l *learner) bestNumeric(stats []binStat, g, h float64, n int, parent float64) split {
	var best split
	var lg, lh float64
	var ln int
	// bin 0 (missing) always sits on the left
	for b := 0; b < len(stats)-1; b++ {
		lg += stats[b].g
		lh += stats[b].h
		ln += stats[b].n
		if b == 0 {
			continue
		}
		rg, rh, rn := g-lg, h-lh, n-ln
		if !l.admissible(ln, lh) || !l.admissible(rn, rh) {
			continue
		}
		gain := l.leafGain(lg, lh) + l.leafGain(rg, rh) - parent
		if gain > 0 && (!best.valid || gain > best.gain) {
			best = split{valid: true, gain: gain, threshold: b, lg: lg, lh: lh, ln: ln, rg: rg, rh: rh, rn: rn}
		}
	}
	return best
}

// bestCategorical orders the non-empty levels by gradient/hessian ratio and
// scans prefixes from both ends; missing values stay on the right.
func (l *learner) bestCategorical(stats []binStat, g, h float64, n int, parent float64) split {
	var used []int
	for b := 1; b < len(stats); b++ {
		if stats[b].n > 0 {
			used = append(used, b)
		}
	}
	if len(used) == 0 {
		return split{}
	}
	ratio := func(b int) float64 { return stats[b].g / (stats[b].h + l.p.CatSmooth) }
	sort.SliceStable(used, func(a, b int) bool { return ratio(used[a]) < ratio(used[b]) })

	limit := len(used)
	if l.p.MaxCatThreshold > 0 && limit > l.p.MaxCatThreshold {
		limit = l.p.MaxCatThreshold
	}

	var best split
	for _, dir := range []int{1, -1} {
		var lg, lh float64
		var ln int
		for k := 0; k < limit; k++ {
			b := used[k]
			if dir < 0 {
				b = used[len(used)-1-k]
			}
			lg += stats[b].g
			lh += stats[b].h
			ln += stats[b].n
			rg, rh, rn := g-lg, h-lh, n-ln
			if !l.admissible(ln, lh) || !l.admissible(rn, rh) {
				continue
			}
			gain := l.leafGain(lg, lh) + l.leafGain(rg, rh) - parent
			if gain > 0 && (!best.valid || gain > best.gain) {
				left := make(map[int]bool, k+1)
				for m := 0; m <= k; m++ {
					if dir > 0 {
						left[used[m]] = true
					} else {
						left[used[len(used)-1-m]] = true
					}
				}
				best = split{valid: true, gain: gain, left: left, lg: lg, lh: lh, ln: ln, rg: rg, rh: rh, rn: rn}
			}
		}
	}
	return best
}

// grow builds a leaf-wise tree: at every step the leaf with the largest gain
// is split, until NumLeaves is reached or no leaf has a positive gain.
func (l *learner) grow(rows []int) Tree {
	tree := Tree{Nodes: []Node{{Feature: -1}}}
	root := &leaf{node: 0, rows: rows}
	for _, i := range rows {
		root.g += l.grad[i]
		root.h += l.hess[i]
	}
	root.hist = l.histogram(rows)
	l.findBest(root)

	leaves := []*leaf{root}
	for len(leaves) < l.p.NumLeaves {
		pick := -1
		for k, lf := range leaves {
			if lf.best.valid && (pick < 0 || lf.best.gain > leaves[pick].best.gain) {
				pick = k
			}
		}
		if pick < 0 {
			break
		}
		left, right := l.splitLeaf(&tree, leaves[pick])
		leaves[pick] = left
		leaves = append(leaves, right)
	}

	for _, lf := range leaves {
		n := &tree.Nodes[lf.node]
		n.Value = l.p.LearningRate * l.leafOutput(lf.g, lf.h)
		n.Count = len(lf.rows)
	}
	return tree
}

func (l *learner) splitLeaf(tree *Tree, lf *leaf) (*leaf, *leaf) {
	s := lf.best
	col := l.data.bins[s.feature]
	goesLeft := func(b uint16) bool {
		if s.left != nil {
			return s.left[int(b)]
		}
		return int(b) <= s.threshold
	}

	var lrows, rrows []int
	for _, i := range lf.rows {
		if goesLeft(col[i]) {
			lrows = append(lrows, i)
		} else {
			rrows = append(rrows, i)
		}
	}

	li, ri := len(tree.Nodes), len(tree.Nodes)+1
	node := Node{Feature: s.feature, Left: li, Right: ri, Gain: s.gain, Count: len(lf.rows)}
	m := l.data.mappers[s.feature]
	if s.left != nil {
		for b := range s.left {
			node.Categories = append(node.Categories, b-1)
		}
		sort.Ints(node.Categories)
	} else {
		node.Threshold = m.bounds[s.threshold-1]
	}
	tree.Nodes[lf.node] = node
	tree.Nodes = append(tree.Nodes, Node{Feature: -1}, Node{Feature: -1})

	left := &leaf{node: li, rows: lrows, g: s.lg, h: s.lh, depth: lf.depth + 1}
	right := &leaf{node: ri, rows: rrows, g: s.rg, h: s.rh, depth: lf.depth + 1}
	if len(lrows) <= len(rrows) {
		left.hist = l.histogram(lrows)
		right.hist = lf.hist.sub(left.hist)
	} else {
		right.hist = l.histogram(rrows)
		left.hist = lf.hist.sub(right.hist)
	}
	lf.hist = nil
	l.findBest(left)
	l.findBest(right)
	return left, right
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

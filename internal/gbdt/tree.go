package gbdt

import "math"

// Node is one tree node. Leaves have Feature == -1 and carry Value.
// Numeric splits send v <= Threshold and missing values left. Categorical
// splits send the listed level codes left and everything else right.
type Node struct {
	Feature    int     `json:"feature"`
	Threshold  float64 `json:"threshold,omitempty"`
	Categories []int   `json:"categories,omitempty"`
	Left       int     `json:"left,omitempty"`
	Right      int     `json:"right,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Gain       float64 `json:"gain,omitempty"`
	Count      int     `json:"count"`
}

func (n *Node) isLeaf() bool { return n.Feature < 0 }

// Tree stores nodes flat; the root is Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(row []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.isLeaf() {
			return n.Value
		}
		if n.goesLeft(row[n.Feature]) {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (n *Node) goesLeft(v float64) bool {
	if n.Categories != nil {
		if math.IsNaN(v) {
			return false
		}
		for _, c := range n.Categories {
			if float64(c) == v {
				return true
			}
		}
		return false
	}
	return math.IsNaN(v) || v <= n.Threshold
}

func (t *Tree) leaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].isLeaf() {
			n++
		}
	}
	return n
}

package gbdt

import (
	"math"
	"sort"
)

// AUC is the area under the ROC curve of score against binary label, with
// tied scores counted as half. It is NaN when only one class is present.
func AUC(label, score []float64) float64 {
	idx := seq(len(score))
	sort.SliceStable(idx, func(a, b int) bool { return score[idx[a]] < score[idx[b]] })

	var pos, neg float64
	var rankSum float64
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && score[idx[j]] == score[idx[i]] {
			j++
		}
		// average 1-based rank of the tie group
		rank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if label[idx[k]] == 1 {
				pos++
				rankSum += rank
			} else {
				neg++
			}
		}
		i = j
	}
	if pos == 0 || neg == 0 {
		return math.NaN()
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

// Confusion counts predictions against labels at a decision threshold.
type Confusion struct {
	TN, FP, FN, TP int
}

// Evaluation is the validation report of a binary classifier.
type Evaluation struct {
	AUC       float64
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	Confusion Confusion
}

// Evaluate classifies prob >= threshold as positive. Undefined ratios are 0.
func Evaluate(label, prob []float64, threshold float64) Evaluation {
	var c Confusion
	for i, p := range prob {
		predicted := p >= threshold
		switch {
		case label[i] == 1 && predicted:
			c.TP++
		case label[i] == 1:
			c.FN++
		case predicted:
			c.FP++
		default:
			c.TN++
		}
	}
	e := Evaluation{AUC: AUC(label, prob), Confusion: c}
	e.Accuracy = ratio(c.TP+c.TN, len(prob))
	e.Precision = ratio(c.TP, c.TP+c.FP)
	e.Recall = ratio(c.TP, c.TP+c.FN)
	if e.Precision+e.Recall > 0 {
		e.F1 = 2 * e.Precision * e.Recall / (e.Precision + e.Recall)
	}
	return e
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// Package segment assigns rule-based RFM and CLV labels to a batch of customers.
package segment

import (
	"math"
	"time"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/numeric"
	"github.com/jmehdipour/crm-analytics/internal/outlier"
	"github.com/jmehdipour/crm-analytics/internal/util"
)

const (
	monetaryBins  = 5
	frequencyBins = 3
)

// Result is the classified batch plus what was derived along the way.
type Result struct {
	Frame      *frame.Frame
	Thresholds CLVThresholds
	// Dropped counts input rows with an unparseable purchase or payment date.
	Dropped int
}

// Classify labels every customer in f. It never modifies f. now anchors the
// recency windows.
func Classify(f *frame.Frame, now time.Time) (*Result, error) {
	last, err := dates(f, ColLastPurchase)
	if err != nil {
		return nil, err
	}
	first, err := dates(f, ColFirstPayment)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{ColFrequency, ColMonetary, ColDiscountUsage, ColAvgDiscount, ColRevenue, ColTxnCount} {
		if _, err := f.Floats(name); err != nil {
			return nil, err
		}
	}

	keep := make([]int, 0, f.Len())
	for i := range last {
		if !last[i].IsZero() && !first[i].IsZero() {
			keep = append(keep, i)
		}
	}
	res := &Result{Dropped: f.Len() - len(keep)}
	if len(keep) == 0 {
		return nil, apperrors.DataUnavailable("segmentation: no customers with valid dates (%d dropped)", res.Dropped)
	}
	last, first = pick(last, keep), pick(first, keep)
	out := f.Take(keep)
	_ = out.SetTimes(ColLastPurchase, last)
	_ = out.SetTimes(ColFirstPayment, first)

	n := out.Len()
	freq, _ := out.Floats(ColFrequency)
	revenue, _ := out.Floats(ColRevenue)
	count, _ := out.Floats(ColTxnCount)

	customers := make([]Customer, n)
	for i := range customers {
		c := Customer{LastPurchase: last[i], FirstPayment: first[i], TxnCount: count[i]}
		c.Lifespan = math.Max(util.DaysBetween(c.FirstPayment, c.LastPurchase), 1)
		c.AvgPurchaseValue = revenue[i] / count[i]
		c.CLV = numeric.RoundHalfEven(c.AvgPurchaseValue * c.TxnCount * (c.Lifespan / 365))
		customers[i] = c
	}

	recency := make([]string, n)
	rules := RecencyRules(now)
	for i, c := range customers {
		recency[i] = LastMatch(rules, RecencyPassive, c)
	}
	if err := out.Set(categorical(ColRecencySegment, RecencyLabels, recency)); err != nil {
		return nil, err
	}

	monetaryScaled, frequencyScaled, err := scaled(out)
	if err != nil {
		return nil, err
	}
	_ = out.SetFloats(ColMonetaryScaled, monetaryScaled)
	_ = out.SetFloats(ColFrequencyScaled, frequencyScaled)

	monetary := binLabels(monetaryScaled, MonetaryLabels, nil)
	_ = out.Set(categorical(ColMonetarySegment, MonetaryLabels, monetary))

	repeat := make([]bool, n)
	for i, v := range freq {
		repeat[i] = v > 1
	}
	frequency := binLabels(frequencyScaled, FrequencyBins, repeat)
	for i, v := range freq {
		if v == 1 {
			frequency[i] = FrequencySingle
		}
	}
	_ = out.Set(categorical(ColFrequencySegment, FrequencyLabels, frequency))

	usage, _ := out.Floats(ColDiscountUsage)
	_ = out.Set(categorical(ColDiscountSensitive,
		[]string{DiscountInsensitive, DiscountSensitive},
		medianSplit(usage, DiscountInsensitive, DiscountSensitive)))
	avgDiscount, _ := out.Floats(ColAvgDiscount)
	_ = out.Set(categorical(ColDiscountExpecting,
		[]string{DiscountStandard, DiscountHigh},
		medianSplit(avgDiscount, DiscountStandard, DiscountHigh)))

	lifespan := make([]float64, n)
	apv := make([]float64, n)
	clv := make([]float64, n)
	for i, c := range customers {
		lifespan[i], apv[i], clv[i] = c.Lifespan, c.AvgPurchaseValue, c.CLV
	}
	_ = out.SetFloats(ColLifespan, lifespan)
	_ = out.SetFloats(ColAvgPurchaseValue, apv)
	_ = out.SetFloats(ColCLV, clv)

	res.Thresholds = CLVThresholds{
		VIPCLV:        numeric.Quantile(clv, 0.8),
		VIPPurchase:   numeric.Quantile(apv, 0.8),
		LoyalCLV:      numeric.Quantile(clv, 0.5),
		LoyalTxnCount: numeric.Quantile(count, 0.5),
		GrowthCLV:     numeric.Quantile(clv, 0.5),
		GrowthSpan:    numeric.Quantile(lifespan, 0.5),
	}
	clvRules := CLVRules(res.Thresholds)
	segments := make([]string, n)
	for i, c := range customers {
		segments[i] = FirstMatch(clvRules, CLVAtRisk, c)
	}
	_ = out.Set(categorical(ColCLVSegment, CLVLabels, segments))

	res.Frame = out
	return res, nil
}

// scaled suppresses working copies of MONETARY and FREQUENCY and min-max
// scales them. The input columns are left as they are.
func scaled(f *frame.Frame) (monetary, frequency []float64, err error) {
	work, err := f.Select(ColMonetary, ColFrequency)
	if err != nil {
		return nil, nil, err
	}
	work, err = outlier.Suppress(work, []string{ColMonetary, ColFrequency})
	if err != nil {
		return nil, nil, err
	}
	m, _ := work.Floats(ColMonetary)
	fr, _ := work.Floats(ColFrequency)
	return numeric.MinMax(m), numeric.MinMax(fr), nil
}

// binLabels cuts v into len(labels) equal-width bins. When only is set, rows
// outside it take no part in the edges and get no label. Unbinnable rows get "".
func binLabels(v []float64, labels []string, only []bool) []string {
	use := v
	if only != nil {
		use = make([]float64, len(v))
		for i, x := range v {
			use[i] = x
			if !only[i] {
				use[i] = math.NaN()
			}
		}
	}
	out := make([]string, len(v))
	edges := numeric.CutEdges(use, len(labels))
	if edges == nil {
		return out
	}
	for i, b := range numeric.Cut(use, edges) {
		if b >= 0 {
			out[i] = labels[b]
		}
	}
	return out
}

// medianSplit labels values strictly above the batch median as high.
func medianSplit(v []float64, low, high string) []string {
	med := numeric.Median(v)
	out := make([]string, len(v))
	for i, x := range v {
		out[i] = low
		if x > med {
			out[i] = high
		}
	}
	return out
}

// categorical builds a Category column with the given ordered levels; "" is null.
func categorical(name string, levels, values []string) *frame.Column {
	pos := make(map[string]int32, len(levels))
	for i, l := range levels {
		pos[l] = int32(i)
	}
	codes := make([]int32, len(values))
	for i, v := range values {
		code, ok := pos[v]
		if !ok {
			code = -1
		}
		codes[i] = code
	}
	return frame.NewCategory(name, append([]string(nil), levels...), codes)
}

// dates reads a warehouse date column stored as YYYYMMDD numbers, text or
// timestamps. Unparseable values come back as the zero time.
func dates(f *frame.Frame, name string) ([]time.Time, error) {
	c, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, c.Len())
	switch c.Kind {
	case frame.Time:
		for i, t := range c.Times {
			if !t.IsZero() {
				out[i] = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			}
		}
	case frame.Float:
		for i, v := range c.Floats {
			out[i], _ = util.ParseYYYYMMDD(v)
		}
	case frame.String, frame.Category:
		for i := range out {
			s, _ := c.Format(i)
			out[i], _ = util.ParseYYYYMMDDString(s)
		}
	}
	return out, nil
}

func pick(ts []time.Time, idx []int) []time.Time {
	out := make([]time.Time, len(idx))
	for j, i := range idx {
		out[j] = ts[i]
	}
	return out
}

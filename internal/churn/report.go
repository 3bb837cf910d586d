package churn

import (
	"sort"
	"strconv"
	"time"

	"github.com/jmehdipour/crm-analytics/internal/frame"
	"github.com/jmehdipour/crm-analytics/internal/gbdt"
	"github.com/jmehdipour/crm-analytics/internal/numeric"
)

// Audit tags report rows with who produced them and for which firm.
type Audit struct {
	FirmID int64
	User   string
	RunID  int64
	Now    time.Time
}

func (a Audit) day() time.Time {
	return time.Date(a.Now.Year(), a.Now.Month(), a.Now.Day(), 0, 0, 0, 0, time.UTC)
}

// runID is rendered as text; it does not fit a float64 exactly.
func (a Audit) runID() string {
	return strconv.FormatInt(a.RunID, 10)
}

// PerformanceFrame is the single CHURN_PERFORMANCE_METRICS row of a run.
func PerformanceFrame(e gbdt.Evaluation, a Audit) (*frame.Frame, error) {
	c := e.Confusion
	return frame.FromColumns(
		frame.NewString("CREATED_BY", []string{a.User}),
		frame.NewTime("CREATE_DATE", []time.Time{a.Now}),
		frame.NewFloat("FIRM_ID", []float64{float64(a.FirmID)}),
		frame.NewFloat("AUC", []float64{e.AUC}),
		frame.NewFloat("ACCURACY", []float64{e.Accuracy}),
		frame.NewFloat("PRECISION", []float64{e.Precision}),
		frame.NewFloat("RECALL", []float64{e.Recall}),
		frame.NewFloat("F1_SCORE", []float64{e.F1}),
		frame.NewFloat("TN", []float64{float64(c.TN)}),
		frame.NewFloat("FP", []float64{float64(c.FP)}),
		frame.NewFloat("FN", []float64{float64(c.FN)}),
		frame.NewFloat("TP", []float64{float64(c.TP)}),
		frame.NewString("CHRN_PRF_METRICS_ID", []string{a.runID()}),
	)
}

// ImportanceFrame holds one CHURN_FEATURE_IMPORTANCES row per model feature;
// IMPORTANCE is the split count.
func ImportanceFrame(imp []gbdt.Importance, a Audit) (*frame.Frame, error) {
	n := len(imp)
	names := make([]string, n)
	splits := make([]float64, n)
	for i, x := range imp {
		names[i] = x.Feature
		splits[i] = float64(x.Splits)
	}
	return frame.FromColumns(
		frame.NewString("CREATED_BY", repeatString(a.User, n)),
		frame.NewString("UPDATED_BY", repeatString(a.User, n)),
		frame.NewTime("CREATE_DATE", repeatTime(a.day(), n)),
		frame.NewTime("UPDATE_DATE", repeatTime(a.day(), n)),
		frame.NewString("CHRN_FEATURE_IMP_ID", repeatString(a.runID(), n)),
		frame.NewFloat("FIRM_ID", repeatFloat(float64(a.FirmID), n)),
		frame.NewString("FEATURE", names),
		frame.NewFloat("IMPORTANCE", splits),
	)
}

// SummaryColumns are summarized by their median in CHURN_FIRM_BASED.
var SummaryColumns = []string{
	"AVG_DAYS_BETWEEN_TRANSACTIONS",
	"DAYS_SINCE_LAST_TRANSACTION",
	"CUSTOMER_LIFETIME",
	"DISTINCT_TRANSACTIONS",
	"AVG_SPENT",
	"MAX_SPENT",
	"TOTAL_USED_POINT",
}

// Summarize groups scored customers by (IS_CHURN, CHURN_CLASS, DWH_PROGRAM_ID)
// and reports the customer count and the median of every SummaryColumns
// entry. Groups are sorted by their key.
func Summarize(scored *frame.Frame, a Audit) (*frame.Frame, error) {
	keys := []string{ColTarget, ColClass, ColProgram}
	keyCols := make([]*frame.Column, len(keys))
	for i, k := range keys {
		c, err := scored.Column(k)
		if err != nil {
			return nil, err
		}
		keyCols[i] = c
	}
	values := make([][]float64, len(SummaryColumns))
	for i, name := range SummaryColumns {
		v, err := scored.Floats(name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	type group struct {
		key  [3]string
		rows []int
	}
	groups := map[[3]string]*group{}
	for i := 0; i < scored.Len(); i++ {
		var k [3]string
		for j, c := range keyCols {
			k[j], _ = c.Format(i)
		}
		g, ok := groups[k]
		if !ok {
			g = &group{key: k}
			groups[k] = g
		}
		g.rows = append(g.rows, i)
	}
	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(x, y int) bool {
		kx, ky := ordered[x].key, ordered[y].key
		for j := range kx {
			if kx[j] != ky[j] {
				return lessKey(kx[j], ky[j])
			}
		}
		return false
	})

	n := len(ordered)
	cols := make([][]string, len(keys))
	for j := range cols {
		cols[j] = make([]string, n)
	}
	count := make([]float64, n)
	medians := make([][]float64, len(SummaryColumns))
	for m := range medians {
		medians[m] = make([]float64, n)
	}
	buf := []float64{}
	for gi, g := range ordered {
		for j := range keys {
			cols[j][gi] = g.key[j]
		}
		count[gi] = float64(len(g.rows))
		for m, v := range values {
			buf = buf[:0]
			for _, i := range g.rows {
				buf = append(buf, v[i])
			}
			medians[m][gi] = numeric.Median(buf)
		}
	}

	out := frame.New()
	for j, k := range keys {
		if err := out.Set(frame.NewString(k, cols[j])); err != nil {
			return nil, err
		}
	}
	if err := out.Set(frame.NewFloat("CUSTOMER_COUNT", count)); err != nil {
		return nil, err
	}
	for m, name := range SummaryColumns {
		if err := out.Set(frame.NewFloat(name, medians[m])); err != nil {
			return nil, err
		}
	}
	for _, c := range []*frame.Column{
		frame.NewString("CREATED_BY", repeatString(a.User, n)),
		frame.NewString("UPDATED_BY", repeatString(a.User, n)),
		frame.NewTime("CREATE_DATE", repeatTime(a.day(), n)),
		frame.NewString("CHRN_FRM_SUM_ID", repeatString(a.runID(), n)),
		frame.NewFloat("FIRM_ID", repeatFloat(float64(a.FirmID), n)),
	} {
		if err := out.Set(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// lessKey orders numeric keys numerically and everything else as text.
func lessKey(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

func repeatString(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func repeatFloat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func repeatTime(t time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = t
	}
	return out
}
